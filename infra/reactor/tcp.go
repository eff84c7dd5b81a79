package reactor

import (
	"net"
	"sync"
	"time"
)

// ---------------- Conn ----------------

type tcpConn struct {
	loop  *Loop
	conn  net.Conn
	sends *sendQueue
	once  sync.Once
}

func newTCPConn(loop *Loop, c net.Conn) *tcpConn {
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &tcpConn{
		loop:  loop,
		conn:  c,
		sends: newSendQueue(loop, c.Write),
	}
}

func (c *tcpConn) Send(buf []byte, h IOHandler) {
	c.sends.push(buf, h)
}

func (c *tcpConn) Receive(buf []byte, h IOHandler) {
	go func() {
		n, err := c.conn.Read(buf)
		c.loop.Post(func() { h(err, n) })
	}()
}

func (c *tcpConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *tcpConn) Close() error {
	var err error
	c.once.Do(func() {
		c.sends.close()
		err = c.conn.Close()
	})
	return err
}

// ---------------- Acceptor ----------------

// TCPAcceptor accepts subscriber connections on a TCP listener.
type TCPAcceptor struct {
	loop *Loop
	ln   net.Listener
}

func ListenTCP(loop *Loop, addr string) (*TCPAcceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPAcceptor{loop: loop, ln: ln}, nil
}

func (a *TCPAcceptor) Accept(h AcceptHandler) {
	go func() {
		c, err := a.ln.Accept()
		if err != nil {
			a.loop.Post(func() { h(nil, err) })
			return
		}
		conn := newTCPConn(a.loop, c)
		if !a.loop.Post(func() { h(conn, nil) }) {
			_ = conn.Close()
		}
	}()
}

func (a *TCPAcceptor) Addr() string {
	return a.ln.Addr().String()
}

func (a *TCPAcceptor) Close() error {
	return a.ln.Close()
}

// ---------------- Dialer ----------------

// TCPDialer connects to an upstream feed.
type TCPDialer struct {
	Loop    *Loop
	Timeout time.Duration
}

func (d *TCPDialer) Connect(endpoint string, h ConnectHandler) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	go func() {
		c, err := net.DialTimeout("tcp", endpoint, timeout)
		if err != nil {
			d.Loop.Post(func() { h(nil, err) })
			return
		}
		conn := newTCPConn(d.Loop, c)
		if !d.Loop.Post(func() { h(conn, nil) }) {
			_ = conn.Close()
		}
	}()
}
