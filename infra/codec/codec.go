package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"depthfeed/domain/depth"
)

// TemplateID selects the body layout of a frame.
type TemplateID uint32

const (
	TemplateTrade TemplateID = 1
	TemplateDepth TemplateID = 2
)

func (t TemplateID) String() string {
	switch t {
	case TemplateTrade:
		return "TRADE"
	case TemplateDepth:
		return "DEPTH"
	default:
		return fmt.Sprintf("TEMPLATE(%d)", uint32(t))
	}
}

var (
	ErrTemplateMismatch = errors.New("codec: template does not match message kind")
	ErrUnknownTemplate  = errors.New("codec: unknown template id")
	ErrTruncated        = errors.New("codec: truncated frame")
	ErrFrameTooLarge    = errors.New("codec: frame exceeds limit")
)

// MaxFrameSize bounds a single body; anything larger is treated as corruption.
const MaxFrameSize = 1 << 20

// Encoder is the codec surface the hub consumes.
type Encoder interface {
	Encode(dst []byte, msg depth.Message, tid TemplateID) ([]byte, error)
}

// field numbers shared by every template
const (
	fieldTemplate protowire.Number = 1
	fieldSeq      protowire.Number = 2
	fieldSymbol   protowire.Number = 3
)

// trade fields
const (
	fieldTradeQty  protowire.Number = 4
	fieldTradeCost protowire.Number = 5
	fieldTradeTime protowire.Number = 6
)

// depth fields
const (
	fieldDepthFull protowire.Number = 4
	fieldDepthBid  protowire.Number = 5
	fieldDepthAsk  protowire.Number = 6
)

// level fields
const (
	fieldLevelIndex  protowire.Number = 1
	fieldLevelPrice  protowire.Number = 2
	fieldLevelQty    protowire.Number = 3
	fieldLevelOrders protowire.Number = 4
)

// Codec is the protobuf-wire implementation of Encoder. The zero value is ready.
type Codec struct{}

// Encode appends one frame for msg to dst. The body size is computed up
// front so the frame is written straight into dst.
func (Codec) Encode(dst []byte, msg depth.Message, tid TemplateID) ([]byte, error) {
	switch m := msg.(type) {
	case *depth.Trade:
		if tid != TemplateTrade {
			return dst, fmt.Errorf("%w: %s for trade", ErrTemplateMismatch, tid)
		}
		size := sizeHeader(tid, m.Seq, m.Symbol) +
			sizeSint(fieldTradeQty, m.Qty) +
			sizeSint(fieldTradeCost, m.Cost) +
			sizeSint(fieldTradeTime, m.Timestamp)
		if size > MaxFrameSize {
			return dst, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
		}

		dst = protowire.AppendVarint(dst, uint64(size))
		dst = appendHeader(dst, tid, m.Seq, m.Symbol)
		dst = appendSint(dst, fieldTradeQty, m.Qty)
		dst = appendSint(dst, fieldTradeCost, m.Cost)
		return appendSint(dst, fieldTradeTime, m.Timestamp), nil

	case *depth.Depth:
		if tid != TemplateDepth {
			return dst, fmt.Errorf("%w: %s for depth", ErrTemplateMismatch, tid)
		}
		size := sizeHeader(tid, m.Seq, m.Symbol)
		if m.Full {
			size += protowire.SizeTag(fieldDepthFull) + protowire.SizeVarint(1)
		}
		for _, l := range m.Bids {
			size += sizeLevelField(fieldDepthBid, l)
		}
		for _, l := range m.Asks {
			size += sizeLevelField(fieldDepthAsk, l)
		}
		if size > MaxFrameSize {
			return dst, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
		}

		dst = protowire.AppendVarint(dst, uint64(size))
		dst = appendHeader(dst, tid, m.Seq, m.Symbol)
		if m.Full {
			dst = protowire.AppendTag(dst, fieldDepthFull, protowire.VarintType)
			dst = protowire.AppendVarint(dst, 1)
		}
		for _, l := range m.Bids {
			dst = appendLevel(dst, fieldDepthBid, l)
		}
		for _, l := range m.Asks {
			dst = appendLevel(dst, fieldDepthAsk, l)
		}
		return dst, nil

	default:
		return dst, fmt.Errorf("%w: %T", ErrUnknownTemplate, msg)
	}
}

// ---------- Sizes ----------

func sizeHeader(tid TemplateID, seq uint64, sym depth.Symbol) int {
	return protowire.SizeTag(fieldTemplate) + protowire.SizeVarint(uint64(tid)) +
		protowire.SizeTag(fieldSeq) + protowire.SizeVarint(seq) +
		protowire.SizeTag(fieldSymbol) + protowire.SizeBytes(len(sym))
}

func sizeSint(num protowire.Number, v int64) int {
	return protowire.SizeTag(num) + protowire.SizeVarint(protowire.EncodeZigZag(v))
}

func sizeLevel(l depth.Level) int {
	return protowire.SizeTag(fieldLevelIndex) + protowire.SizeVarint(uint64(l.Index)) +
		sizeSint(fieldLevelPrice, l.Price) +
		sizeSint(fieldLevelQty, l.Qty) +
		protowire.SizeTag(fieldLevelOrders) + protowire.SizeVarint(uint64(l.Orders))
}

func sizeLevelField(num protowire.Number, l depth.Level) int {
	return protowire.SizeTag(num) + protowire.SizeBytes(sizeLevel(l))
}

// ---------- Appenders ----------

func appendHeader(b []byte, tid TemplateID, seq uint64, sym depth.Symbol) []byte {
	b = protowire.AppendTag(b, fieldTemplate, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(tid))
	b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, seq)
	b = protowire.AppendTag(b, fieldSymbol, protowire.BytesType)
	return protowire.AppendString(b, string(sym))
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

// appendLevel writes the embedded level in place: length first, then fields.
func appendLevel(b []byte, num protowire.Number, l depth.Level) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(sizeLevel(l)))
	b = protowire.AppendTag(b, fieldLevelIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(l.Index))
	b = appendSint(b, fieldLevelPrice, l.Price)
	b = appendSint(b, fieldLevelQty, l.Qty)
	b = protowire.AppendTag(b, fieldLevelOrders, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(l.Orders))
}
