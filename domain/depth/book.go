package depth

import (
	"errors"
	"fmt"
)

// DefaultLevels is the number of price levels kept per side.
const DefaultLevels = 5

var ErrLevelOutOfRange = errors.New("depth: level index out of range")

// Book is the fixed-size aggregated view of one symbol.
// It is not safe for concurrent use.
type Book struct {
	symbol Symbol
	bids   []Level
	asks   []Level
}

func NewBook(symbol Symbol, levels int) *Book {
	if levels <= 0 {
		levels = DefaultLevels
	}
	b := &Book{
		symbol: symbol,
		bids:   make([]Level, levels),
		asks:   make([]Level, levels),
	}
	b.clear()
	return b
}

func (b *Book) Symbol() Symbol { return b.symbol }
func (b *Book) Levels() int    { return len(b.bids) }

// Apply folds a depth message into the book. A full message first clears
// every level, so levels it omits become empty.
func (b *Book) Apply(d *Depth) error {
	if d.Symbol != b.symbol {
		return fmt.Errorf("depth: apply %q to book %q", d.Symbol, b.symbol)
	}
	if d.Full {
		b.clear()
	}
	if err := applySide(b.bids, d.Bids); err != nil {
		return err
	}
	return applySide(b.asks, d.Asks)
}

// Snapshot returns a full message describing every level of the book.
func (b *Book) Snapshot() *Depth {
	return &Depth{
		Symbol: b.symbol,
		Full:   true,
		Bids:   append([]Level(nil), b.bids...),
		Asks:   append([]Level(nil), b.asks...),
	}
}

// Changes converts a message into the level changes it causes on this book,
// without applying it. A full message yields every level that differs,
// including levels it clears.
func (b *Book) Changes(d *Depth) (*Depth, error) {
	next := NewBook(b.symbol, b.Levels())
	copy(next.bids, b.bids)
	copy(next.asks, b.asks)
	if err := next.Apply(d); err != nil {
		return nil, err
	}
	return Diff(b.Snapshot(), next.Snapshot()), nil
}

func (b *Book) clear() {
	for i := range b.bids {
		b.bids[i] = Level{Index: uint32(i + 1)}
		b.asks[i] = Level{Index: uint32(i + 1)}
	}
}

func applySide(side []Level, changes []Level) error {
	for _, l := range changes {
		if l.Index == 0 || int(l.Index) > len(side) {
			return fmt.Errorf("%w: %d", ErrLevelOutOfRange, l.Index)
		}
		side[l.Index-1] = l
	}
	return nil
}

// Diff returns an incremental message holding only the levels of next that
// differ from prev. Both must describe the same symbol and depth.
func Diff(prev, next *Depth) *Depth {
	return &Depth{
		Symbol: next.Symbol,
		Bids:   diffSide(prev.Bids, next.Bids),
		Asks:   diffSide(prev.Asks, next.Asks),
	}
}

func diffSide(prev, next []Level) []Level {
	var out []Level
	for i, l := range next {
		if i < len(prev) && prev[i] == l {
			continue
		}
		out = append(out, l)
	}
	return out
}
