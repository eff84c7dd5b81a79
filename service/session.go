package service

import (
	"errors"
	"log"

	"depthfeed/domain/depth"
	"depthfeed/infra/codec"
	"depthfeed/infra/memory"
	"depthfeed/infra/reactor"
	"depthfeed/infra/sequence"
)

// SessionID is the stable handle of a subscriber session.
type SessionID uint64

// State of a session. There is no way back from Closed.
type State int

const (
	Pending State = iota
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Connected:
		return "CONNECTED"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

var ErrSessionClosed = errors.New("service: session not connected")

// Session is one subscriber connection. It is owned by the Hub and never
// handed out; callers refer to it by SessionID.
type Session struct {
	id    SessionID
	hub   *Hub
	conn  reactor.Conn
	state State

	seq          *sequence.Sequencer
	bootstrapped map[depth.Symbol]struct{}
	inflight     int
}

func newSession(id SessionID, hub *Hub) *Session {
	return &Session{
		id:           id,
		hub:          hub,
		state:        Pending,
		seq:          sequence.New(0),
		bootstrapped: make(map[depth.Symbol]struct{}),
	}
}

func (s *Session) ID() SessionID    { return s.id }
func (s *Session) State() State     { return s.state }
func (s *Session) Connected() bool  { return s.state == Connected }
func (s *Session) Sequence() uint64 { return s.seq.Current() }

// Bootstrapped reports whether symbol has had its full snapshot on this session.
func (s *Session) Bootstrapped(symbol depth.Symbol) bool {
	_, ok := s.bootstrapped[symbol]
	return ok
}

func (s *Session) setConnected(conn reactor.Conn) {
	s.conn = conn
	s.state = Connected
}

// SendTrade transmits unconditionally.
func (s *Session) SendTrade(msg *depth.Trade) error {
	return s.send(msg, codec.TemplateTrade)
}

// SendIncrementalUpdate transmits only if symbol is already bootstrapped on
// this session. A false result means the session was skipped.
func (s *Session) SendIncrementalUpdate(symbol depth.Symbol, msg *depth.Depth) (bool, error) {
	if !s.Bootstrapped(symbol) {
		return false, nil
	}
	if err := s.send(msg, codec.TemplateDepth); err != nil {
		return true, err
	}
	return true, nil
}

// SendFullUpdate transmits only if symbol has not been bootstrapped yet, and
// marks it bootstrapped once the send is posted. It reports whether anything
// was sent.
func (s *Session) SendFullUpdate(symbol depth.Symbol, msg *depth.Depth) (bool, error) {
	if s.Bootstrapped(symbol) {
		return false, nil
	}
	if err := s.send(msg, codec.TemplateDepth); err != nil {
		return false, err
	}
	s.bootstrapped[symbol] = struct{}{}
	return true, nil
}

// send stamps the next sequence number, encodes into a pooled buffer and
// posts it. A sequence number is only consumed when the frame is posted.
func (s *Session) send(msg depth.Message, tid codec.TemplateID) error {
	if s.state != Connected {
		return ErrSessionClosed
	}

	buf := s.hub.ReserveSendBuffer()
	msg.SetSequence(s.seq.Peek())
	out, err := s.hub.codec.Encode(buf.B[:0], msg, tid)
	if err != nil {
		s.hub.ReleaseSendBuffer(buf)
		return err
	}
	s.seq.Next()
	buf.B = out

	s.inflight++
	s.conn.Send(buf.B, func(err error, n int) {
		s.onSend(buf, err, n)
	})
	return nil
}

func (s *Session) onSend(buf *memory.Buffer, err error, n int) {
	s.inflight--
	if err != nil {
		// the buffer is dropped, not pooled: its fate in the reactor is unknown
		s.hub.dropSession(s, err)
		return
	}
	s.hub.ReleaseSendBuffer(buf)
}

// issueRead keeps one receive outstanding so a hang-up surfaces as an error.
// Whatever the subscriber sends is discarded.
func (s *Session) issueRead() {
	buf := s.hub.ReserveRecvBuffer()
	s.conn.Receive(buf.B, func(err error, n int) {
		s.onReceive(buf, err, n)
	})
}

func (s *Session) onReceive(buf *memory.Buffer, err error, n int) {
	if err != nil {
		s.hub.dropSession(s, err)
		return
	}
	s.hub.ReleaseRecvBuffer(buf)
	if s.state == Connected {
		s.issueRead()
	}
}

// close is idempotent. Pending operations complete through the reactor.
func (s *Session) close() {
	if s.state == Closed {
		return
	}
	s.state = Closed
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			log.Printf("[session] %d close: %v", s.id, err)
		}
	}
}
