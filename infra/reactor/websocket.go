package reactor

import (
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketAcceptor admits subscribers over WebSocket. Each binary message a
// session sends carries exactly one encoded buffer.
type WebSocketAcceptor struct {
	loop     *Loop
	ln       net.Listener
	srv      *http.Server
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
	closed   chan struct{}
	once     sync.Once
}

func ListenWebSocket(loop *Loop, addr, path string) (*WebSocketAcceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = "/feed"
	}

	a := &WebSocketAcceptor{
		loop: loop,
		ln:   ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns:  make(chan *websocket.Conn),
		closed: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, a.upgrade)
	a.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ws] serve: %v", err)
		}
	}()
	return a, nil
}

func (a *WebSocketAcceptor) upgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	select {
	case a.conns <- ws:
	case <-a.closed:
		_ = ws.Close()
	}
}

func (a *WebSocketAcceptor) Accept(h AcceptHandler) {
	go func() {
		select {
		case ws := <-a.conns:
			conn := newWSConn(a.loop, ws)
			if !a.loop.Post(func() { h(conn, nil) }) {
				_ = conn.Close()
			}
		case <-a.closed:
			a.loop.Post(func() { h(nil, ErrAcceptorClosed) })
		}
	}()
}

func (a *WebSocketAcceptor) Addr() string {
	return a.ln.Addr().String()
}

func (a *WebSocketAcceptor) Close() error {
	var err error
	a.once.Do(func() {
		close(a.closed)
		err = a.srv.Close()
	})
	return err
}

// ---------------- Conn ----------------

type wsConn struct {
	loop  *Loop
	ws    *websocket.Conn
	sends *sendQueue
	once  sync.Once

	// tail of a message larger than the last receive buffer
	pending []byte
}

func newWSConn(loop *Loop, ws *websocket.Conn) *wsConn {
	c := &wsConn{loop: loop, ws: ws}
	c.sends = newSendQueue(loop, func(b []byte) (int, error) {
		if err := ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
			return 0, err
		}
		return len(b), nil
	})
	return c
}

func (c *wsConn) Send(buf []byte, h IOHandler) {
	c.sends.push(buf, h)
}

func (c *wsConn) Receive(buf []byte, h IOHandler) {
	go func() {
		if len(c.pending) == 0 {
			_, msg, err := c.ws.ReadMessage()
			if err != nil {
				c.loop.Post(func() { h(err, 0) })
				return
			}
			c.pending = msg
		}
		n := copy(buf, c.pending)
		c.pending = c.pending[n:]
		c.loop.Post(func() { h(nil, n) })
	}()
}

func (c *wsConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		c.sends.close()
		err = c.ws.Close()
	})
	return err
}
