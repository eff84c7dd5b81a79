// Package reactortest provides a deterministic, single-threaded stand-in for
// the reactor. Nothing completes until the test says so, and completions run
// synchronously on the calling goroutine, which plays the role of the loop.
package reactortest

import (
	"errors"

	"depthfeed/infra/reactor"
)

var ErrInjected = errors.New("reactortest: injected failure")

type ioOp struct {
	buf []byte
	h   reactor.IOHandler
}

// Conn records every operation issued against it.
type Conn struct {
	Addr   string
	Closed bool

	sent  [][]byte
	sends []ioOp
	recvs []ioOp
}

func NewConn(addr string) *Conn {
	return &Conn{Addr: addr}
}

// Send snapshots the bytes at post time; the buffer stays pending.
func (c *Conn) Send(buf []byte, h reactor.IOHandler) {
	c.sent = append(c.sent, append([]byte(nil), buf...))
	c.sends = append(c.sends, ioOp{buf: buf, h: h})
}

func (c *Conn) Receive(buf []byte, h reactor.IOHandler) {
	c.recvs = append(c.recvs, ioOp{buf: buf, h: h})
}

func (c *Conn) RemoteAddr() string { return c.Addr }

func (c *Conn) Close() error {
	c.Closed = true
	return nil
}

// Sent returns a copy of every payload posted so far, in order.
func (c *Conn) Sent() [][]byte {
	return append([][]byte(nil), c.sent...)
}

// PendingSendBuffers exposes the buffers still owned by the reactor.
func (c *Conn) PendingSendBuffers() [][]byte {
	out := make([][]byte, len(c.sends))
	for i, op := range c.sends {
		out[i] = op.buf
	}
	return out
}

func (c *Conn) PendingSends() int    { return len(c.sends) }
func (c *Conn) PendingReceives() int { return len(c.recvs) }

// CompleteSends completes every send pending right now, successfully and in
// order. Sends issued by the handlers stay pending.
func (c *Conn) CompleteSends() int {
	ops := c.sends
	c.sends = nil
	for _, op := range ops {
		op.h(nil, len(op.buf))
	}
	return len(ops)
}

// CompleteSend completes the oldest pending send successfully.
func (c *Conn) CompleteSend() bool {
	if len(c.sends) == 0 {
		return false
	}
	op := c.sends[0]
	c.sends = c.sends[1:]
	op.h(nil, len(op.buf))
	return true
}

// FailSend fails the oldest pending send.
func (c *Conn) FailSend(err error) bool {
	if len(c.sends) == 0 {
		return false
	}
	op := c.sends[0]
	c.sends = c.sends[1:]
	op.h(err, 0)
	return true
}

// Deliver completes the pending receive with data.
func (c *Conn) Deliver(data []byte) bool {
	if len(c.recvs) == 0 {
		return false
	}
	op := c.recvs[0]
	c.recvs = c.recvs[1:]
	n := copy(op.buf, data)
	op.h(nil, n)
	return true
}

// FailReceive fails the pending receive.
func (c *Conn) FailReceive(err error) bool {
	if len(c.recvs) == 0 {
		return false
	}
	op := c.recvs[0]
	c.recvs = c.recvs[1:]
	op.h(err, 0)
	return true
}

// Acceptor hands out whatever Conn the test admits.
type Acceptor struct {
	pending []reactor.AcceptHandler
	Closed  bool
}

func (a *Acceptor) Accept(h reactor.AcceptHandler) {
	a.pending = append(a.pending, h)
}

func (a *Acceptor) Addr() string { return "fake:0" }

func (a *Acceptor) Close() error {
	a.Closed = true
	return nil
}

// Pending reports how many accepts are armed.
func (a *Acceptor) Pending() int { return len(a.pending) }

// Admit completes the oldest armed accept with conn.
func (a *Acceptor) Admit(conn reactor.Conn) bool {
	if len(a.pending) == 0 {
		return false
	}
	h := a.pending[0]
	a.pending = a.pending[1:]
	h(conn, nil)
	return true
}

// Fail completes the oldest armed accept with err.
func (a *Acceptor) Fail(err error) bool {
	if len(a.pending) == 0 {
		return false
	}
	h := a.pending[0]
	a.pending = a.pending[1:]
	h(nil, err)
	return true
}

// Dialer records connect attempts.
type Dialer struct {
	Endpoints []string
	pending   []reactor.ConnectHandler
}

func (d *Dialer) Connect(endpoint string, h reactor.ConnectHandler) {
	d.Endpoints = append(d.Endpoints, endpoint)
	d.pending = append(d.pending, h)
}

func (d *Dialer) Pending() int { return len(d.pending) }

// Complete finishes the oldest connect attempt.
func (d *Dialer) Complete(conn reactor.Conn, err error) bool {
	if len(d.pending) == 0 {
		return false
	}
	h := d.pending[0]
	d.pending = d.pending[1:]
	h(conn, err)
	return true
}
