package orderbook

import "depthfeed/domain/depth"

// Fill is one execution produced by Place.
type Fill struct {
	Price int64
	Qty   int64
}

// OrderBook is a single-writer price-time book for one symbol.
type OrderBook struct {
	Symbol depth.Symbol

	bids *ladder
	asks *ladder
}

func NewOrderBook(symbol depth.Symbol) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids:   newLadder(func(a, b int64) bool { return a > b }),
		asks:   newLadder(func(a, b int64) bool { return a < b }),
	}
}

// Place matches o against the opposite side and rests any limit remainder.
func (b *OrderBook) Place(o *Order) []Fill {
	var fills []Fill
	if o.Side == Bid {
		fills = b.match(o, b.asks, func(best int64) bool { return best <= o.Price })
		if o.Remaining() > 0 && o.Type == Limit {
			b.bids.getOrCreate(o.Price).Enqueue(o)
		}
	} else {
		fills = b.match(o, b.bids, func(best int64) bool { return best >= o.Price })
		if o.Remaining() > 0 && o.Type == Limit {
			b.asks.getOrCreate(o.Price).Enqueue(o)
		}
	}
	return fills
}

func (b *OrderBook) match(o *Order, opp *ladder, crosses func(int64) bool) []Fill {
	var fills []Fill
	for o.Remaining() > 0 {
		best := opp.best()
		if best == nil {
			break
		}
		if o.Type != Market && !crosses(best.Price) {
			break
		}

		n := best.Fill(o.Remaining())
		o.Filled += n
		fills = appendFill(fills, best.Price, n)

		if best.Empty() {
			opp.popBest()
		}
	}
	return fills
}

// appendFill merges consecutive executions at one price into a single fill.
func appendFill(fills []Fill, price, qty int64) []Fill {
	if n := len(fills); n > 0 && fills[n-1].Price == price {
		fills[n-1].Qty += qty
		return fills
	}
	return append(fills, Fill{Price: price, Qty: qty})
}

// BestBid and BestAsk return 0 when the side is empty.
func (b *OrderBook) BestBid() int64 {
	if lvl := b.bids.best(); lvl != nil {
		return lvl.Price
	}
	return 0
}

func (b *OrderBook) BestAsk() int64 {
	if lvl := b.asks.best(); lvl != nil {
		return lvl.Price
	}
	return 0
}

// Depth aggregates the top levels of both sides into a full snapshot.
func (b *OrderBook) Depth(levels int) *depth.Depth {
	if levels <= 0 {
		levels = depth.DefaultLevels
	}
	return &depth.Depth{
		Symbol: b.Symbol,
		Full:   true,
		Bids:   aggregate(b.bids, levels),
		Asks:   aggregate(b.asks, levels),
	}
}

func aggregate(side *ladder, levels int) []depth.Level {
	out := make([]depth.Level, levels)
	for i := range out {
		out[i].Index = uint32(i + 1)
	}
	i := 0
	side.walk(func(lvl *PriceLevel) bool {
		if i == levels {
			return false
		}
		out[i] = depth.Level{
			Index:  uint32(i + 1),
			Price:  lvl.Price,
			Qty:    lvl.TotalQty,
			Orders: uint32(lvl.OrderCount),
		}
		i++
		return true
	})
	return out
}
