package service

import (
	"errors"
	"log"
	"net"
	"time"

	"depthfeed/domain/depth"
	"depthfeed/infra/codec"
	"depthfeed/infra/memory"
	"depthfeed/infra/reactor"
)

// MessageHandler receives each chunk read from the upstream feed. buf is only
// valid for the duration of the call. Returning false marks the upstream as
// stale: it is closed and the reset handler runs.
type MessageHandler func(buf *memory.Buffer, n int) bool

// ResetHandler runs whenever the upstream connection must be considered stale.
type ResetHandler func()

// SessionHandler observes session admission and eviction.
type SessionHandler func(id SessionID)

// TradeTap sees every trade after it has been fanned out.
type TradeTap func(msg *depth.Trade)

var (
	ErrNotSnapshot = errors.New("service: full update must carry a snapshot")
	ErrNoUpstream  = errors.New("service: upstream not connected")
)

const (
	DefaultRecvBufferSize = 4096
	DefaultSendBufferSize = 512
	DefaultAcceptRetry    = 100 * time.Millisecond
)

type Options struct {
	Acceptor reactor.Acceptor
	Dialer   reactor.Dialer
	Upstream string
	Codec    codec.Encoder

	RecvBufferSize int
	SendBufferSize int

	// Post schedules work on the loop. With it set, a failed accept is
	// re-armed after AcceptRetry instead of immediately.
	Post        func(func()) bool
	AcceptRetry time.Duration
}

// Hub fans one upstream feed out to many subscriber sessions.
type Hub struct {
	acceptor     reactor.Acceptor
	dialer       reactor.Dialer
	upstreamAddr string
	codec        codec.Encoder

	upstream          reactor.Conn
	upstreamConnected bool
	connecting        bool

	sessions  []*Session
	pending   *Session
	nextID    SessionID
	accepting bool
	closed    bool

	recvPool *memory.BufferPool
	sendPool *memory.BufferPool

	post        func(func()) bool
	acceptRetry time.Duration
	acceptFails int

	msgHandler     MessageHandler
	resetHandler   ResetHandler
	connectHandler func()
	acceptHandler  SessionHandler
	evictHandler   SessionHandler
	tap            TradeTap
}

func NewHub(opts Options) *Hub {
	if opts.Codec == nil {
		opts.Codec = codec.Codec{}
	}
	if opts.RecvBufferSize <= 0 {
		opts.RecvBufferSize = DefaultRecvBufferSize
	}
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = DefaultSendBufferSize
	}
	if opts.AcceptRetry <= 0 {
		opts.AcceptRetry = DefaultAcceptRetry
	}
	return &Hub{
		acceptor:     opts.Acceptor,
		dialer:       opts.Dialer,
		upstreamAddr: opts.Upstream,
		codec:        opts.Codec,
		recvPool:     memory.NewPool(memory.Fixed, opts.RecvBufferSize),
		sendPool:     memory.NewPool(memory.Variable, opts.SendBufferSize),
		post:         opts.Post,
		acceptRetry:  opts.AcceptRetry,
	}
}

// ---------------- Handlers ----------------

func (h *Hub) SetMessageHandler(fn MessageHandler) { h.msgHandler = fn }
func (h *Hub) SetResetHandler(fn ResetHandler)     { h.resetHandler = fn }
func (h *Hub) SetConnectHandler(fn func())         { h.connectHandler = fn }
func (h *Hub) SetAcceptHandler(fn SessionHandler)  { h.acceptHandler = fn }
func (h *Hub) SetEvictHandler(fn SessionHandler)   { h.evictHandler = fn }
func (h *Hub) SetTradeTap(fn TradeTap)             { h.tap = fn }

// ---------------- Buffers ----------------

func (h *Hub) ReserveRecvBuffer() *memory.Buffer { return h.recvPool.Get() }
func (h *Hub) ReserveSendBuffer() *memory.Buffer { return h.sendPool.Get() }

// ReleaseSendBuffer returns a send buffer whose operation has completed.
func (h *Hub) ReleaseSendBuffer(buf *memory.Buffer) { h.sendPool.Put(buf) }

// ReleaseRecvBuffer returns a receive buffer whose operation has completed.
func (h *Hub) ReleaseRecvBuffer(buf *memory.Buffer) { h.recvPool.Put(buf) }

// SendBuffer posts a caller-filled send buffer on the upstream connection.
// The hub owns buf from here on: it is pooled again when the send completes
// and dropped if the send fails, which also tears the upstream down.
func (h *Hub) SendBuffer(buf *memory.Buffer) error {
	if h.upstream == nil {
		return ErrNoUpstream
	}
	conn := h.upstream
	conn.Send(buf.B, func(err error, n int) {
		h.onUpstreamSend(conn, buf, err)
	})
	return nil
}

func (h *Hub) onUpstreamSend(conn reactor.Conn, buf *memory.Buffer, err error) {
	if err == nil {
		h.ReleaseSendBuffer(buf)
		return
	}
	if conn != h.upstream {
		return
	}
	log.Printf("[hub] upstream send failed: %v", err)
	h.dropUpstream()
}

// ---------------- Publish ----------------

// PublishTrade sends msg to every connected session.
func (h *Hub) PublishTrade(msg *depth.Trade) error {
	for _, s := range h.sessions {
		if !s.Connected() {
			continue
		}
		if err := s.SendTrade(msg); err != nil {
			return err
		}
	}
	if h.tap != nil {
		h.tap(msg)
	}
	return nil
}

// PublishIncremental sends msg to every session already bootstrapped for
// symbol. It returns true only if no connected session was skipped; false
// tells the caller to follow up with PublishFullUpdate for symbol.
func (h *Hub) PublishIncremental(symbol depth.Symbol, msg *depth.Depth) (bool, error) {
	all := true
	for _, s := range h.sessions {
		if !s.Connected() {
			continue
		}
		ok, err := s.SendIncrementalUpdate(symbol, msg)
		if err != nil {
			return false, err
		}
		if !ok {
			all = false
		}
	}
	return all, nil
}

// PublishFullUpdate sends the snapshot msg to every session not yet
// bootstrapped for symbol. Sessions that already have it are skipped.
func (h *Hub) PublishFullUpdate(symbol depth.Symbol, msg *depth.Depth) error {
	if !msg.Full {
		return ErrNotSnapshot
	}
	for _, s := range h.sessions {
		if !s.Connected() {
			continue
		}
		if _, err := s.SendFullUpdate(symbol, msg); err != nil {
			return err
		}
	}
	return nil
}

// PublishDepth runs the catch-up protocol for one depth change: the change
// goes out incrementally, and if any session lacked a baseline the snapshot
// (which must already include the change) is published for the laggards.
func (h *Hub) PublishDepth(symbol depth.Symbol, change *depth.Depth, snapshot func() *depth.Depth) error {
	ok, err := h.PublishIncremental(symbol, change)
	if err != nil || ok {
		return err
	}
	return h.PublishFullUpdate(symbol, snapshot())
}

// ---------------- Sessions ----------------

// Accept arms the acceptor. It re-arms itself after every completion until
// the acceptor is closed.
func (h *Hub) Accept() {
	if h.acceptor == nil || h.accepting || h.closed {
		return
	}
	h.accepting = true
	h.nextID++
	s := newSession(h.nextID, h)
	h.pending = s
	h.acceptor.Accept(func(conn reactor.Conn, err error) {
		h.onAccept(s, conn, err)
	})
}

func (h *Hub) onAccept(s *Session, conn reactor.Conn, err error) {
	h.accepting = false
	h.pending = nil

	if err != nil {
		s.state = Closed
		if errors.Is(err, reactor.ErrAcceptorClosed) || errors.Is(err, net.ErrClosed) {
			log.Printf("[hub] acceptor closed")
			return
		}
		h.acceptFails++
		if h.acceptFails == 1 || h.acceptFails%100 == 0 {
			log.Printf("[hub] accept failed (%d in a row): %v", h.acceptFails, err)
		}
		h.rearmAccept()
		return
	}
	h.acceptFails = 0
	if h.closed {
		_ = conn.Close()
		return
	}

	s.setConnected(conn)
	h.sessions = append(h.sessions, s)
	log.Printf("[hub] session %d accepted from %s (%d live)", s.id, conn.RemoteAddr(), len(h.sessions))

	s.issueRead()
	if h.acceptHandler != nil {
		h.acceptHandler(s.id)
	}
	h.Accept()
}

// rearmAccept backs off through the loop when one is available, so a
// persistent accept error cannot spin the loop.
func (h *Hub) rearmAccept() {
	if h.post == nil {
		h.Accept()
		return
	}
	time.AfterFunc(h.acceptRetry, func() {
		h.post(h.Accept)
	})
}

// CloseSession closes and forgets the session with the given id.
func (h *Hub) CloseSession(id SessionID) bool {
	for _, s := range h.sessions {
		if s.id == id {
			h.dropSession(s, nil)
			return true
		}
	}
	return false
}

// dropSession evicts s. The slice is rebuilt rather than edited in place so a
// publish loop ranging over the old slice is unaffected.
func (h *Hub) dropSession(s *Session, cause error) {
	if s.state == Closed {
		return
	}
	s.close()

	kept := make([]*Session, 0, len(h.sessions))
	for _, other := range h.sessions {
		if other != s {
			kept = append(kept, other)
		}
	}
	h.sessions = kept

	if cause != nil {
		log.Printf("[hub] session %d dropped: %v (%d live)", s.id, cause, len(h.sessions))
	} else {
		log.Printf("[hub] session %d closed (%d live)", s.id, len(h.sessions))
	}
	if h.evictHandler != nil {
		h.evictHandler(s.id)
	}
}

// Session returns a read-only view of one session.
func (h *Hub) Session(id SessionID) (SessionInfo, bool) {
	for _, s := range h.sessions {
		if s.id == id {
			return s.info(), true
		}
	}
	return SessionInfo{}, false
}

// Sessions lists live sessions in admission order.
func (h *Hub) Sessions() []SessionInfo {
	out := make([]SessionInfo, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s.info())
	}
	return out
}

// ---------------- Upstream ----------------

// Connect dials the upstream feed. A failed attempt runs the reset handler;
// retrying is up to the caller.
func (h *Hub) Connect() {
	if h.dialer == nil || h.upstreamAddr == "" || h.closed {
		return
	}
	if h.upstream != nil || h.connecting {
		return
	}
	h.connecting = true
	h.dialer.Connect(h.upstreamAddr, h.onConnect)
}

func (h *Hub) onConnect(conn reactor.Conn, err error) {
	h.connecting = false
	if err != nil {
		log.Printf("[hub] connect %s failed: %v", h.upstreamAddr, err)
		h.reset()
		return
	}
	if h.closed {
		_ = conn.Close()
		return
	}

	h.upstream = conn
	h.upstreamConnected = true
	log.Printf("[hub] connected to upstream %s", h.upstreamAddr)
	if h.connectHandler != nil {
		h.connectHandler()
	}
	h.issueRead(conn)
}

func (h *Hub) issueRead(conn reactor.Conn) {
	buf := h.ReserveRecvBuffer()
	conn.Receive(buf.B, func(err error, n int) {
		h.onReceive(conn, buf, err, n)
	})
}

func (h *Hub) onReceive(conn reactor.Conn, buf *memory.Buffer, err error, n int) {
	if conn != h.upstream {
		// completion from a connection we already tore down
		if err == nil {
			h.ReleaseRecvBuffer(buf)
		}
		return
	}
	if err != nil {
		log.Printf("[hub] upstream receive failed: %v", err)
		h.dropUpstream()
		return
	}

	consumed := true
	if h.msgHandler != nil {
		consumed = h.msgHandler(buf, n)
	}
	h.ReleaseRecvBuffer(buf)

	if !consumed {
		log.Printf("[hub] upstream message rejected")
		h.dropUpstream()
		return
	}
	h.issueRead(conn)
}

func (h *Hub) dropUpstream() {
	if h.upstream != nil {
		_ = h.upstream.Close()
	}
	h.upstream = nil
	h.upstreamConnected = false
	h.reset()
}

func (h *Hub) reset() {
	if h.resetHandler != nil {
		h.resetHandler()
	}
}

// UpstreamConnected reports the state of the upstream feed.
func (h *Hub) UpstreamConnected() bool {
	return h.upstreamConnected
}

// ---------------- Lifecycle ----------------

// Close stops accepting, drops the upstream without a reset and closes every
// session. Completions still in flight are absorbed by the closed state.
func (h *Hub) Close() {
	if h.closed {
		return
	}
	h.closed = true

	if h.acceptor != nil {
		_ = h.acceptor.Close()
	}
	if h.upstream != nil {
		_ = h.upstream.Close()
		h.upstream = nil
		h.upstreamConnected = false
	}
	for _, s := range h.sessions {
		s.close()
	}
	h.sessions = nil
	log.Printf("[hub] closed")
}
