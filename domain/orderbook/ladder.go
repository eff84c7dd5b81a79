package orderbook

import "sort"

// ladder keeps the price levels of one side sorted best-first.
type ladder struct {
	levels []*PriceLevel
	better func(a, b int64) bool
}

func newLadder(better func(a, b int64) bool) *ladder {
	return &ladder{better: better}
}

// search returns the position of price, or where it would be inserted.
func (l *ladder) search(price int64) int {
	return sort.Search(len(l.levels), func(i int) bool {
		return !l.better(l.levels[i].Price, price)
	})
}

func (l *ladder) getOrCreate(price int64) *PriceLevel {
	i := l.search(price)
	if i < len(l.levels) && l.levels[i].Price == price {
		return l.levels[i]
	}
	lvl := &PriceLevel{Price: price}
	l.levels = append(l.levels, nil)
	copy(l.levels[i+1:], l.levels[i:])
	l.levels[i] = lvl
	return lvl
}

func (l *ladder) best() *PriceLevel {
	if len(l.levels) == 0 {
		return nil
	}
	return l.levels[0]
}

func (l *ladder) popBest() {
	l.levels[0] = nil
	l.levels = l.levels[1:]
}

func (l *ladder) walk(fn func(*PriceLevel) bool) {
	for _, lvl := range l.levels {
		if !fn(lvl) {
			return
		}
	}
}

func (l *ladder) len() int {
	return len(l.levels)
}
