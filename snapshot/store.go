package snapshot

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"depthfeed/domain/depth"
	"depthfeed/infra/codec"
)

const keyPrefix = "depth/"

// Store maps symbol -> last full depth, encoded with the feed codec.
type Store struct {
	db    *pebble.DB
	codec codec.Codec
}

// Open opens a store in dir, or a purely in-memory one when dir is empty.
func Open(dir string) (*Store, error) {
	opts := &pebble.Options{}
	if dir == "" {
		opts.FS = vfs.NewMem()
		dir = "snapshot"
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// -------------------- API --------------------

// Load returns the book for symbol, or an empty book with the given number
// of levels if the symbol has never been stored.
func (s *Store) Load(symbol depth.Symbol, levels int) (*depth.Book, error) {
	book := depth.NewBook(symbol, levels)

	val, closer, err := s.db.Get(keyFor(symbol))
	if errors.Is(err, pebble.ErrNotFound) {
		return book, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	d, err := decodeDepth(val)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", symbol, err)
	}
	if err := book.Apply(d); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", symbol, err)
	}
	return book, nil
}

// Save stores the book's current snapshot.
func (s *Store) Save(book *depth.Book) error {
	val, err := s.codec.Encode(nil, book.Snapshot(), codec.TemplateDepth)
	if err != nil {
		return err
	}
	return s.db.Set(keyFor(book.Symbol()), val, pebble.NoSync)
}

// Delete forgets symbol.
func (s *Store) Delete(symbol depth.Symbol) error {
	return s.db.Delete(keyFor(symbol), pebble.NoSync)
}

// -------------------- Scan --------------------

// Each visits every stored snapshot in symbol order.
func (s *Store) Each(fn func(*depth.Depth) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: prefixEnd(keyPrefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		d, err := decodeDepth(iter.Value())
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", iter.Key(), err)
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Symbols lists every stored symbol.
func (s *Store) Symbols() ([]depth.Symbol, error) {
	var out []depth.Symbol
	err := s.Each(func(d *depth.Depth) error {
		out = append(out, d.Symbol)
		return nil
	})
	return out, err
}

// -------------------- Helpers --------------------

func keyFor(symbol depth.Symbol) []byte {
	return []byte(keyPrefix + string(symbol))
}

func prefixEnd(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}

func decodeDepth(val []byte) (*depth.Depth, error) {
	tid, msg, err := codec.Decode(val)
	if err != nil {
		return nil, err
	}
	d, ok := msg.(*depth.Depth)
	if !ok || !d.Full {
		return nil, fmt.Errorf("%w: stored %s is not a snapshot", codec.ErrTemplateMismatch, tid)
	}
	return d, nil
}
