package codec

// Framer reassembles frames from arbitrary stream chunks.
// It is not safe for concurrent use.
type Framer struct {
	buf []byte
}

// Feed appends a received chunk. The chunk is copied.
func (f *Framer) Feed(p []byte) {
	f.buf = append(f.buf, p...)
}

// Next returns the body of the next complete frame. The returned slice is
// only valid until the following call to Feed or Next.
func (f *Framer) Next() ([]byte, bool, error) {
	body, n, ok, err := SplitFrame(f.buf)
	if err != nil || !ok {
		return nil, false, err
	}
	f.buf = f.buf[n:]
	if len(f.buf) == 0 {
		f.buf = f.buf[:0:0]
	}
	return body, true, nil
}

// Buffered is the number of bytes waiting for the rest of their frame.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Reset drops any partial frame.
func (f *Framer) Reset() {
	f.buf = nil
}
