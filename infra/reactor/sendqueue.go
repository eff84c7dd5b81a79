package reactor

import (
	"net"
	"sync"

	"github.com/eapache/queue"
)

type sendOp struct {
	buf []byte
	h   IOHandler
}

// sendQueue serialises writes for one connection on a dedicated goroutine,
// which is what keeps send completions in issue order.
type sendQueue struct {
	loop  *Loop
	write func([]byte) (int, error)

	mu     sync.Mutex
	ops    *queue.Queue
	closed bool
	wake   chan struct{}
	stop   chan struct{}
}

func newSendQueue(loop *Loop, write func([]byte) (int, error)) *sendQueue {
	q := &sendQueue{
		loop:  loop,
		write: write,
		ops:   queue.New(),
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *sendQueue) push(buf []byte, h IOHandler) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.loop.Post(func() { h(net.ErrClosed, 0) })
		return
	}
	q.ops.Add(sendOp{buf: buf, h: h})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *sendQueue) pop() (sendOp, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ops.Length() == 0 {
		return sendOp{}, false
	}
	return q.ops.Remove().(sendOp), true
}

func (q *sendQueue) run() {
	for {
		select {
		case <-q.stop:
			q.drain()
			return
		case <-q.wake:
		}

		for {
			op, ok := q.pop()
			if !ok {
				break
			}
			n, err := q.write(op.buf)
			h := op.h
			q.loop.Post(func() { h(err, n) })
		}
	}
}

// close fails every queued send. Sends already inside write fail on their own
// once the underlying socket is closed.
func (q *sendQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.stop)
}

func (q *sendQueue) drain() {
	for {
		op, ok := q.pop()
		if !ok {
			return
		}
		h := op.h
		q.loop.Post(func() { h(net.ErrClosed, 0) })
	}
}
