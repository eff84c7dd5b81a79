package service

import (
	"errors"
	"testing"

	"depthfeed/domain/depth"
)

func TestFeedChecker(t *testing.T) {
	var c FeedChecker

	if err := c.Check(&depth.Trade{Seq: 1, Symbol: "AAPL"}); err != nil {
		t.Fatalf("trade: %v", err)
	}
	err := c.Check(&depth.Depth{Seq: 2, Symbol: "AAPL", Bids: []depth.Level{{Index: 1, Price: 100, Qty: 1}}})
	if !errors.Is(err, ErrIncrementalTooEarly) {
		t.Fatalf("expected ErrIncrementalTooEarly, got %v", err)
	}

	full := &depth.Depth{Seq: 3, Symbol: "AAPL", Full: true, Bids: []depth.Level{{Index: 1, Price: 100, Qty: 1}}}
	if err := c.Check(full); err != nil {
		t.Fatalf("full: %v", err)
	}
	incr := &depth.Depth{Seq: 4, Symbol: "AAPL", Bids: []depth.Level{{Index: 1, Price: 100, Qty: 7}}}
	if err := c.Check(incr); err != nil {
		t.Fatalf("incremental: %v", err)
	}
	snap, ok := c.Book("AAPL")
	if !ok || snap.Bids[0].Qty != 7 {
		t.Fatalf("rebuilt book is wrong: %+v", snap)
	}

	if err := c.Check(&depth.Trade{Seq: 6, Symbol: "AAPL"}); !errors.Is(err, ErrSequenceGap) {
		t.Fatalf("expected ErrSequenceGap, got %v", err)
	}
	if c.Last() != 6 {
		t.Fatalf("checker must resync on the new sequence, last=%d", c.Last())
	}
}
