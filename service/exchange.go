package service

import (
	"fmt"
	"log"
	"sort"
	"time"

	"depthfeed/domain/depth"
	"depthfeed/domain/orderbook"
)

/*
Exchange is the ONLY write entry point of the simulator.

It owns one order book per symbol and turns every placed order into
- a trade per fill
- the depth levels that changed
published through the hub. Like the hub itself it runs on the loop.
*/

type Exchange struct {
	hub    *Hub
	levels int
	books  map[depth.Symbol]*orderbook.OrderBook
	last   map[depth.Symbol]*depth.Depth
	nextID uint64
	now    func() time.Time
}

func NewExchange(hub *Hub, symbols []depth.Symbol, levels int) *Exchange {
	if levels <= 0 {
		levels = depth.DefaultLevels
	}
	e := &Exchange{
		hub:    hub,
		levels: levels,
		books:  make(map[depth.Symbol]*orderbook.OrderBook, len(symbols)),
		last:   make(map[depth.Symbol]*depth.Depth, len(symbols)),
		now:    time.Now,
	}
	for _, sym := range symbols {
		book := orderbook.NewOrderBook(sym)
		e.books[sym] = book
		e.last[sym] = book.Depth(levels)
	}
	return e
}

// Attach makes every admitted session receive full depth for all symbols.
func (e *Exchange) Attach() {
	e.hub.SetAcceptHandler(e.Bootstrap)
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Place submits an order and publishes its consequences.
func (e *Exchange) Place(
	symbol depth.Symbol,
	side orderbook.Side,
	otype orderbook.OrderType,
	price int64,
	qty int64,
) error {
	book, ok := e.books[symbol]
	if !ok {
		return fmt.Errorf("exchange: unknown symbol %q", symbol)
	}
	if qty <= 0 {
		return fmt.Errorf("exchange: invalid quantity %d", qty)
	}

	e.nextID++
	o := &orderbook.Order{
		ID:    e.nextID,
		Side:  side,
		Type:  otype,
		Price: price,
		Qty:   qty,
	}

	// 1️⃣ Execute deterministic domain logic
	fills := book.Place(o)

	// 2️⃣ Trades first, so depth never runs ahead of the prints
	for _, f := range fills {
		err := e.hub.PublishTrade(&depth.Trade{
			Symbol:    symbol,
			Qty:       f.Qty,
			Cost:      f.Qty * f.Price,
			Timestamp: e.now().UnixNano(),
		})
		if err != nil {
			return err
		}
	}

	// 3️⃣ Publish only the levels that moved
	next := book.Depth(e.levels)
	change := depth.Diff(e.last[symbol], next)
	e.last[symbol] = next
	if !change.Changed() {
		return nil
	}
	return e.hub.PublishDepth(symbol, change, func() *depth.Depth {
		return book.Depth(e.levels)
	})
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

// Symbols lists traded symbols in sorted order.
func (e *Exchange) Symbols() []depth.Symbol {
	out := make([]depth.Symbol, 0, len(e.books))
	for sym := range e.books {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot returns the current full depth of symbol.
func (e *Exchange) Snapshot(symbol depth.Symbol) (*depth.Depth, bool) {
	book, ok := e.books[symbol]
	if !ok {
		return nil, false
	}
	return book.Depth(e.levels), true
}

// Bootstrap sends full depth for every symbol to sessions that lack it.
func (e *Exchange) Bootstrap(id SessionID) {
	for _, sym := range e.Symbols() {
		snap, _ := e.Snapshot(sym)
		if err := e.hub.PublishFullUpdate(sym, snap); err != nil {
			log.Printf("[exchange] bootstrap session %d %s: %v", id, sym, err)
		}
	}
}
