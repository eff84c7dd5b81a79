package main

import (
	"math/rand/v2"

	"depthfeed/config"
	"depthfeed/infra/kafka"
)

// generator produces random orders around the base price so the books keep
// crossing and every symbol sees both trades and depth changes.
type generator struct {
	rng     *rand.Rand
	symbols []string
	base    int64
}

func newGenerator(cfg *config.Config) *generator {
	seed := uint64(cfg.Exchange.Seed)
	return &generator{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		symbols: cfg.Exchange.Symbols,
		base:    cfg.Exchange.BasePrice,
	}
}

func (g *generator) next() kafka.Order {
	o := kafka.Order{
		Symbol: g.symbols[g.rng.IntN(len(g.symbols))],
		Side:   "buy",
		Type:   "limit",
		Price:  g.base + int64(g.rng.IntN(11)-5),
		Qty:    int64(1 + g.rng.IntN(10)),
	}
	if g.rng.IntN(2) == 1 {
		o.Side = "sell"
	}
	if g.rng.IntN(10) == 0 {
		o.Type = "market"
	}
	return o
}
