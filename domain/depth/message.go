package depth

// Symbol identifies an instrument on the feed.
type Symbol string

// Message is anything the hub can stamp and ship.
// The sequence number is the only field the hub ever writes.
type Message interface {
	Sequence() uint64
	SetSequence(seq uint64)
}

// Trade is a single execution. Trades are not symbol-gated by bootstrap.
type Trade struct {
	Seq       uint64
	Symbol    Symbol
	Qty       int64
	Cost      int64
	Timestamp int64
}

func (t *Trade) Sequence() uint64       { return t.Seq }
func (t *Trade) SetSequence(seq uint64) { t.Seq = seq }

// Level is one aggregated price level. Index is 1-based from the top of book;
// a level with zero Qty means "no level here".
type Level struct {
	Index  uint32
	Price  int64
	Qty    int64
	Orders uint32
}

// Empty reports whether the level carries no resting quantity.
func (l Level) Empty() bool {
	return l.Qty == 0
}

// Depth carries either a full snapshot (Full=true, every level present)
// or only the levels that changed since the previous message.
type Depth struct {
	Seq    uint64
	Symbol Symbol
	Full   bool
	Bids   []Level
	Asks   []Level
}

func (d *Depth) Sequence() uint64       { return d.Seq }
func (d *Depth) SetSequence(seq uint64) { d.Seq = seq }

// Changed reports whether the message carries any level.
func (d *Depth) Changed() bool {
	return len(d.Bids) > 0 || len(d.Asks) > 0
}
