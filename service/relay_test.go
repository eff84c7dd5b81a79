package service

import (
	"testing"

	"depthfeed/domain/depth"
	"depthfeed/infra/codec"
	"depthfeed/infra/reactor/reactortest"
	"depthfeed/snapshot"
)

type relayFixture struct {
	hub      *Hub
	relay    *Relay
	acc      *reactortest.Acceptor
	upstream *reactortest.Conn
	resets   int
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()
	store, err := snapshot.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	f := &relayFixture{acc: &reactortest.Acceptor{}}
	d := &reactortest.Dialer{}
	f.hub = NewHub(Options{Acceptor: f.acc, Dialer: d, Upstream: "feed:1", RecvBufferSize: 64})
	f.relay = NewRelay(f.hub, store, 3)
	f.relay.Attach()
	f.hub.SetResetHandler(func() {
		f.resets++
		f.relay.Reset()
	})

	f.hub.Accept()
	f.hub.Connect()
	f.upstream = reactortest.NewConn("upstream")
	d.Complete(f.upstream, nil)
	return f
}

// feed sends frames upstream in chunks of at most 64 bytes.
func (f *relayFixture) feed(t *testing.T, msgs ...depth.Message) {
	t.Helper()
	var c codec.Codec
	var stream []byte
	for _, m := range msgs {
		tid := codec.TemplateDepth
		if _, ok := m.(*depth.Trade); ok {
			tid = codec.TemplateTrade
		}
		var err error
		if stream, err = c.Encode(stream, m, tid); err != nil {
			t.Fatal(err)
		}
	}
	for len(stream) > 0 {
		n := min(64, len(stream))
		if !f.upstream.Deliver(stream[:n]) {
			t.Fatal("no upstream receive armed")
		}
		stream = stream[n:]
	}
}

func TestRelay_BootstrapsNewSessionFromStore(t *testing.T) {
	f := newRelayFixture(t)

	f.feed(t, &depth.Depth{Symbol: "AAPL", Full: true, Bids: []depth.Level{{Index: 1, Price: 100, Qty: 5, Orders: 1}}})

	c := admit(t, f.acc, "sub")
	msgs := decodeAll(t, c)
	if len(msgs) != 1 {
		t.Fatalf("expected one bootstrap snapshot, got %d", len(msgs))
	}
	d := msgs[0].(*depth.Depth)
	if !d.Full || d.Symbol != "AAPL" || d.Bids[0].Price != 100 {
		t.Errorf("unexpected snapshot %+v", d)
	}
	if len(d.Bids) != 3 {
		t.Errorf("snapshot must carry every level, got %d", len(d.Bids))
	}
}

func TestRelay_ForwardsChangesOnly(t *testing.T) {
	f := newRelayFixture(t)
	c := admit(t, f.acc, "sub")

	f.feed(t,
		&depth.Depth{Symbol: "AAPL", Full: true, Bids: []depth.Level{
			{Index: 1, Price: 100, Qty: 5, Orders: 1},
			{Index: 2, Price: 99, Qty: 5, Orders: 1},
		}},
		&depth.Trade{Symbol: "AAPL", Qty: 5, Cost: 500},
		&depth.Depth{Symbol: "AAPL", Bids: []depth.Level{{Index: 1, Price: 100, Qty: 2, Orders: 1}}},
	)

	msgs := decodeAll(t, c)
	if len(msgs) != 3 {
		t.Fatalf("expected snapshot, trade, change; got %d messages", len(msgs))
	}
	if d := msgs[0].(*depth.Depth); !d.Full {
		t.Error("first depth message to a new session must be a snapshot")
	}
	if tr, ok := msgs[1].(*depth.Trade); !ok || tr.Cost != 500 {
		t.Errorf("expected trade, got %+v", msgs[1])
	}
	change := msgs[2].(*depth.Depth)
	if change.Full || len(change.Bids) != 1 || change.Bids[0].Qty != 2 {
		t.Errorf("expected single level change, got %+v", change)
	}
	for i, m := range msgs {
		if m.Sequence() != uint64(i+1) {
			t.Errorf("message %d restamped with seq %d", i, m.Sequence())
		}
	}
}

func TestRelay_UpstreamSnapshotCorrectsSessions(t *testing.T) {
	f := newRelayFixture(t)
	c := admit(t, f.acc, "sub")

	f.feed(t, &depth.Depth{Symbol: "AAPL", Full: true, Bids: []depth.Level{
		{Index: 1, Price: 100, Qty: 5, Orders: 1},
		{Index: 2, Price: 99, Qty: 5, Orders: 1},
	}})
	// upstream re-sends state with level 2 gone
	f.feed(t, &depth.Depth{Symbol: "AAPL", Full: true, Bids: []depth.Level{
		{Index: 1, Price: 100, Qty: 5, Orders: 1},
	}})

	msgs := decodeAll(t, c)
	if len(msgs) != 2 {
		t.Fatalf("expected snapshot then correction, got %d", len(msgs))
	}
	fix := msgs[1].(*depth.Depth)
	if fix.Full || len(fix.Bids) != 1 || fix.Bids[0].Index != 2 || !fix.Bids[0].Empty() {
		t.Errorf("expected level 2 cleared incrementally, got %+v", fix)
	}
}

func TestRelay_GarbageResetsUpstream(t *testing.T) {
	f := newRelayFixture(t)

	// a frame header claiming a body over the size limit
	f.upstream.Deliver([]byte{0xff, 0xff, 0xff, 0xff, 0x7f})
	if f.resets != 1 {
		t.Fatalf("expected reset, got %d", f.resets)
	}
	if f.hub.UpstreamConnected() {
		t.Error("upstream must be dropped")
	}
}
