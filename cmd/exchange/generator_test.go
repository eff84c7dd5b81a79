package main

import (
	"encoding/json"
	"testing"

	"depthfeed/config"
	"depthfeed/infra/kafka"
)

func TestGenerator_OrdersParse(t *testing.T) {
	cfg := config.Default()
	gen := newGenerator(cfg)

	sides := map[string]int{}
	for i := 0; i < 500; i++ {
		o := gen.next()
		b, err := json.Marshal(o)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := kafka.ParseOrder(b); err != nil {
			t.Fatalf("order %d does not parse: %v", i, err)
		}
		if o.Price < cfg.Exchange.BasePrice-5 || o.Price > cfg.Exchange.BasePrice+5 {
			t.Errorf("price %d outside the band", o.Price)
		}
		sides[o.Side]++
	}
	if sides["buy"] == 0 || sides["sell"] == 0 {
		t.Errorf("expected both sides, got %v", sides)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a, b := newGenerator(config.Default()), newGenerator(config.Default())
	for i := 0; i < 50; i++ {
		if x, y := a.next(), b.next(); x != y {
			t.Fatalf("order %d differs for the same seed: %+v vs %+v", i, x, y)
		}
	}
}
