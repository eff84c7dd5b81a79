package service

import (
	"errors"
	"fmt"

	"depthfeed/domain/depth"
)

var (
	ErrSequenceGap         = errors.New("service: sequence gap")
	ErrIncrementalTooEarly = errors.New("service: incremental before snapshot")
)

// FeedChecker validates a session's stream from the subscriber side:
// sequence numbers start at 1 and never skip, and no incremental depth
// arrives for a symbol before its full snapshot.
type FeedChecker struct {
	last  uint64
	books map[depth.Symbol]*depth.Book
	// Levels sizes the books the checker maintains.
	Levels int
}

func (c *FeedChecker) Check(msg depth.Message) error {
	seq := msg.Sequence()
	if seq != c.last+1 {
		err := fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, c.last+1, seq)
		c.last = seq
		return err
	}
	c.last = seq

	d, ok := msg.(*depth.Depth)
	if !ok {
		return nil
	}
	if c.books == nil {
		c.books = make(map[depth.Symbol]*depth.Book)
	}
	book, ok := c.books[d.Symbol]
	if !ok {
		if !d.Full {
			return fmt.Errorf("%w: %s seq %d", ErrIncrementalTooEarly, d.Symbol, seq)
		}
		levels := c.Levels
		if levels <= 0 {
			levels = depth.DefaultLevels
		}
		book = depth.NewBook(d.Symbol, levels)
		c.books[d.Symbol] = book
	}
	return book.Apply(d)
}

// Book returns the depth rebuilt from the stream so far.
func (c *FeedChecker) Book(symbol depth.Symbol) (*depth.Depth, bool) {
	book, ok := c.books[symbol]
	if !ok {
		return nil, false
	}
	return book.Snapshot(), true
}

// Last is the highest sequence number seen.
func (c *FeedChecker) Last() uint64 { return c.last }
