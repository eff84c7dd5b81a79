package reactor

import "errors"

var (
	ErrAcceptorClosed = errors.New("reactor: acceptor closed")
	ErrLoopStopped    = errors.New("reactor: loop stopped")
)

// IOHandler receives the outcome of a send or receive.
type IOHandler func(err error, n int)

// AcceptHandler receives a newly accepted connection, or the accept error.
type AcceptHandler func(conn Conn, err error)

// ConnectHandler receives the dialed connection, or the connect error.
type ConnectHandler func(conn Conn, err error)

// Conn is a move-only connection handle. The owner that issued the accept or
// connect holds it until Close.
//
// At most one Receive may be outstanding at a time; any number of Sends may
// be queued and complete in issue order. The buffer passed to Send or Receive
// belongs to the reactor until its handler runs.
type Conn interface {
	Send(buf []byte, h IOHandler)
	Receive(buf []byte, h IOHandler)
	RemoteAddr() string
	Close() error
}

// Acceptor produces subscriber connections, one per Accept call.
type Acceptor interface {
	Accept(h AcceptHandler)
	Addr() string
	Close() error
}

// Dialer opens outbound connections.
type Dialer interface {
	Connect(endpoint string, h ConnectHandler)
}
