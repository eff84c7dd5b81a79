package service

import (
	"testing"
	"time"

	"depthfeed/domain/depth"
	"depthfeed/domain/orderbook"
)

func newTestExchange(t *testing.T) (*Exchange, *Hub, func(string) []depth.Message) {
	t.Helper()
	h, acc := newTestHub(t)
	e := NewExchange(h, []depth.Symbol{"MSFT", "AAPL"}, 2)
	e.now = func() time.Time { return time.Unix(0, 42) }
	e.Attach()

	conns := map[string]func() []depth.Message{}
	sub := func(name string) []depth.Message {
		if _, ok := conns[name]; !ok {
			c := admit(t, acc, name)
			conns[name] = func() []depth.Message { return decodeAll(t, c) }
		}
		return conns[name]()
	}
	return e, h, sub
}

func TestExchange_BootstrapsEverySymbol(t *testing.T) {
	_, _, sub := newTestExchange(t)

	msgs := sub("a")
	if len(msgs) != 2 {
		t.Fatalf("expected a snapshot per symbol, got %d", len(msgs))
	}
	first := msgs[0].(*depth.Depth)
	second := msgs[1].(*depth.Depth)
	if first.Symbol != "AAPL" || second.Symbol != "MSFT" || !first.Full || !second.Full {
		t.Errorf("unexpected bootstrap %+v %+v", first, second)
	}
}

func TestExchange_PublishesTradesAndChanges(t *testing.T) {
	e, _, sub := newTestExchange(t)
	sub("a")

	if err := e.Place("AAPL", orderbook.Ask, orderbook.Limit, 101, 5); err != nil {
		t.Fatal(err)
	}
	if err := e.Place("AAPL", orderbook.Bid, orderbook.Limit, 101, 2); err != nil {
		t.Fatal(err)
	}

	msgs := sub("a")[2:]
	if len(msgs) != 3 {
		t.Fatalf("expected change, trade, change; got %d", len(msgs))
	}
	if d := msgs[0].(*depth.Depth); d.Full || len(d.Asks) != 1 || d.Asks[0].Qty != 5 {
		t.Errorf("unexpected first change %+v", d)
	}
	tr, ok := msgs[1].(*depth.Trade)
	if !ok || tr.Qty != 2 || tr.Cost != 202 || tr.Timestamp != 42 {
		t.Errorf("unexpected trade %+v", msgs[1])
	}
	if d := msgs[2].(*depth.Depth); len(d.Asks) != 1 || d.Asks[0].Qty != 3 || len(d.Bids) != 0 {
		t.Errorf("unexpected second change %+v", d)
	}
}

func TestExchange_LateJoinerGetsCurrentDepth(t *testing.T) {
	e, _, sub := newTestExchange(t)
	sub("early")
	_ = e.Place("MSFT", orderbook.Bid, orderbook.Limit, 400, 1)

	msgs := sub("late")
	var msft *depth.Depth
	for _, m := range msgs {
		if d := m.(*depth.Depth); d.Symbol == "MSFT" {
			msft = d
		}
	}
	if msft == nil || !msft.Full || msft.Bids[0].Price != 400 {
		t.Fatalf("late joiner must see current MSFT depth, got %+v", msft)
	}
}

func TestExchange_RejectsBadOrders(t *testing.T) {
	e, _, _ := newTestExchange(t)
	if err := e.Place("TSLA", orderbook.Bid, orderbook.Limit, 1, 1); err == nil {
		t.Error("expected unknown symbol error")
	}
	if err := e.Place("AAPL", orderbook.Bid, orderbook.Limit, 1, 0); err == nil {
		t.Error("expected invalid quantity error")
	}
}
