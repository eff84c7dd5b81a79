package memory

import "github.com/eapache/queue"

// Buffer is a pooled byte slice with a stable identity.
type Buffer struct {
	B []byte

	inUse bool
}

// Kind tells a pool how to size the buffers it hands out.
type Kind int

const (
	// Fixed buffers always have len == size (receive buffers).
	Fixed Kind = iota
	// Variable buffers are handed out empty with at least size capacity
	// and may grow while encoding (send buffers).
	Variable
)

// Stats is a point-in-time view of a pool.
type Stats struct {
	Allocated uint64 // buffers created over the pool's lifetime
	Reused    uint64 // Get calls served from the free list
	Free      int    // buffers currently parked
}

// BufferPool is a free list of Buffers.
type BufferPool struct {
	kind  Kind
	size  int
	free  *queue.Queue
	stats Stats
}

func NewPool(kind Kind, size int) *BufferPool {
	if size <= 0 {
		size = 4096
	}
	return &BufferPool{
		kind: kind,
		size: size,
		free: queue.New(),
	}
}

// Get pops a parked buffer, or allocates one if the pool is empty.
func (p *BufferPool) Get() *Buffer {
	var b *Buffer
	if p.free.Length() > 0 {
		b = p.free.Remove().(*Buffer)
		p.stats.Reused++
	} else {
		b = &Buffer{B: make([]byte, p.size)}
		p.stats.Allocated++
	}

	if p.kind == Fixed {
		b.B = b.B[:p.size]
	} else {
		b.B = b.B[:0]
	}
	b.inUse = true
	return b
}

// Put parks b for reuse. Returning a buffer that is not checked out is a bug
// in the caller and panics.
func (p *BufferPool) Put(b *Buffer) {
	if b == nil {
		return
	}
	if !b.inUse {
		panic("memory.BufferPool: buffer returned twice")
	}
	b.inUse = false
	if p.kind == Fixed && cap(b.B) < p.size {
		b.B = make([]byte, p.size)
	}
	p.free.Add(b)
}

func (p *BufferPool) Stats() Stats {
	s := p.stats
	s.Free = p.free.Length()
	return s
}
