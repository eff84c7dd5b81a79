package service

import (
	"depthfeed/domain/depth"
	"depthfeed/infra/memory"
)

// SessionInfo is a copy of a session's observable state.
type SessionInfo struct {
	ID       SessionID
	Remote   string
	State    State
	Sequence uint64
	Symbols  []depth.Symbol
	Inflight int
}

func (s *Session) info() SessionInfo {
	info := SessionInfo{
		ID:       s.id,
		State:    s.state,
		Sequence: s.seq.Current(),
		Inflight: s.inflight,
		Symbols:  make([]depth.Symbol, 0, len(s.bootstrapped)),
	}
	if s.conn != nil {
		info.Remote = s.conn.RemoteAddr()
	}
	for sym := range s.bootstrapped {
		info.Symbols = append(info.Symbols, sym)
	}
	return info
}

// Stats is a point-in-time view of the hub.
type Stats struct {
	Sessions          int
	UpstreamConnected bool
	RecvPool          memory.Stats
	SendPool          memory.Stats
}

func (h *Hub) Stats() Stats {
	return Stats{
		Sessions:          len(h.sessions),
		UpstreamConnected: h.upstreamConnected,
		RecvPool:          h.recvPool.Stats(),
		SendPool:          h.sendPool.Stats(),
	}
}
