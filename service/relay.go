package service

import (
	"fmt"
	"log"

	"depthfeed/domain/depth"
	"depthfeed/infra/codec"
	"depthfeed/infra/memory"
	"depthfeed/snapshot"
)

// Relay republishes an upstream depth feed through a Hub.
//
// Every depth message from upstream, full or incremental, is folded into the
// stored book for its symbol and goes downstream as the set of levels that
// actually changed. Sessions that lack a baseline get the stored snapshot.
type Relay struct {
	hub    *Hub
	store  *snapshot.Store
	levels int
	framer codec.Framer
}

func NewRelay(hub *Hub, store *snapshot.Store, levels int) *Relay {
	if levels <= 0 {
		levels = depth.DefaultLevels
	}
	return &Relay{hub: hub, store: store, levels: levels}
}

// Attach registers the relay's message and accept handlers on its hub.
// Reset handling stays with the caller, which should call Reset from it.
func (r *Relay) Attach() {
	r.hub.SetMessageHandler(r.HandleMessage)
	r.hub.SetAcceptHandler(r.Bootstrap)
}

// HandleMessage consumes one upstream chunk. Any undecodable frame rejects
// the chunk, which makes the hub treat the upstream as stale.
func (r *Relay) HandleMessage(buf *memory.Buffer, n int) bool {
	r.framer.Feed(buf.B[:n])
	for {
		body, ok, err := r.framer.Next()
		if err != nil {
			log.Printf("[relay] bad frame: %v", err)
			return false
		}
		if !ok {
			return true
		}
		if err := r.dispatch(body); err != nil {
			log.Printf("[relay] %v", err)
			return false
		}
	}
}

func (r *Relay) dispatch(body []byte) error {
	_, msg, err := codec.DecodeBody(body)
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case *depth.Trade:
		return r.hub.PublishTrade(m)
	case *depth.Depth:
		return r.publishDepth(m)
	default:
		return fmt.Errorf("unexpected message %T", msg)
	}
}

func (r *Relay) publishDepth(d *depth.Depth) error {
	book, err := r.store.Load(d.Symbol, r.levels)
	if err != nil {
		return err
	}
	change, err := book.Changes(d)
	if err != nil {
		return err
	}
	if err := book.Apply(d); err != nil {
		return err
	}
	if err := r.store.Save(book); err != nil {
		return err
	}
	if !change.Changed() {
		return nil
	}
	return r.hub.PublishDepth(d.Symbol, change, book.Snapshot)
}

// Bootstrap sends every stored snapshot to sessions that lack it; only the
// newly admitted session will actually receive anything.
func (r *Relay) Bootstrap(id SessionID) {
	err := r.store.Each(func(d *depth.Depth) error {
		return r.hub.PublishFullUpdate(d.Symbol, d)
	})
	if err != nil {
		log.Printf("[relay] bootstrap session %d: %v", id, err)
	}
}

// Reset drops any partially received frame. Stored books are kept: the
// next upstream snapshot is diffed against them, which is what corrects
// downstream sessions that were bootstrapped before the upstream went away.
func (r *Relay) Reset() {
	if n := r.framer.Buffered(); n > 0 {
		log.Printf("[relay] discarding %d bytes of partial frame", n)
	}
	r.framer.Reset()
}
