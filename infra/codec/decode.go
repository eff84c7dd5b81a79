package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"depthfeed/domain/depth"
)

// SplitFrame returns the body of the first frame in b and the number of bytes
// the frame occupies. ok is false when b does not yet hold a whole frame.
func SplitFrame(b []byte) (body []byte, n int, ok bool, err error) {
	size, m := protowire.ConsumeVarint(b)
	if m < 0 {
		if len(b) < protowire.SizeVarint(^uint64(0)) {
			return nil, 0, false, nil
		}
		return nil, 0, false, protowire.ParseError(m)
	}
	if size > MaxFrameSize {
		return nil, 0, false, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	end := m + int(size)
	if len(b) < end {
		return nil, 0, false, nil
	}
	return b[m:end], end, true, nil
}

// Decode parses one complete frame.
func Decode(frame []byte) (TemplateID, depth.Message, error) {
	body, _, ok, err := SplitFrame(frame)
	if err != nil {
		return 0, nil, err
	}
	if !ok {
		return 0, nil, ErrTruncated
	}
	return DecodeBody(body)
}

// DecodeBody parses a frame body produced by Encode.
func DecodeBody(body []byte) (TemplateID, depth.Message, error) {
	var (
		tid    TemplateID
		seq    uint64
		sym    depth.Symbol
		values = map[protowire.Number]uint64{}
		bids   []depth.Level
		asks   []depth.Level
	)

	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return 0, nil, protowire.ParseError(n)
		}
		body = body[n:]

		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(body)
			if m < 0 {
				return 0, nil, protowire.ParseError(m)
			}
			body = body[m:]
			switch num {
			case fieldTemplate:
				tid = TemplateID(v)
			case fieldSeq:
				seq = v
			default:
				values[num] = v
			}
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(body)
			if m < 0 {
				return 0, nil, protowire.ParseError(m)
			}
			body = body[m:]
			switch num {
			case fieldSymbol:
				sym = depth.Symbol(v)
			case fieldDepthBid, fieldDepthAsk:
				l, err := decodeLevel(v)
				if err != nil {
					return 0, nil, err
				}
				if num == fieldDepthBid {
					bids = append(bids, l)
				} else {
					asks = append(asks, l)
				}
			}
		default:
			m := protowire.ConsumeFieldValue(num, typ, body)
			if m < 0 {
				return 0, nil, protowire.ParseError(m)
			}
			body = body[m:]
		}
	}

	switch tid {
	case TemplateTrade:
		return tid, &depth.Trade{
			Seq:       seq,
			Symbol:    sym,
			Qty:       protowire.DecodeZigZag(values[fieldTradeQty]),
			Cost:      protowire.DecodeZigZag(values[fieldTradeCost]),
			Timestamp: protowire.DecodeZigZag(values[fieldTradeTime]),
		}, nil
	case TemplateDepth:
		return tid, &depth.Depth{
			Seq:    seq,
			Symbol: sym,
			Full:   values[fieldDepthFull] != 0,
			Bids:   bids,
			Asks:   asks,
		}, nil
	default:
		return tid, nil, fmt.Errorf("%w: %d", ErrUnknownTemplate, uint32(tid))
	}
}

func decodeLevel(b []byte) (depth.Level, error) {
	var l depth.Level
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return l, protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.VarintType {
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return l, protowire.ParseError(m)
			}
			b = b[m:]
			continue
		}
		v, m := protowire.ConsumeVarint(b)
		if m < 0 {
			return l, protowire.ParseError(m)
		}
		b = b[m:]
		switch num {
		case fieldLevelIndex:
			l.Index = uint32(v)
		case fieldLevelPrice:
			l.Price = protowire.DecodeZigZag(v)
		case fieldLevelQty:
			l.Qty = protowire.DecodeZigZag(v)
		case fieldLevelOrders:
			l.Orders = uint32(v)
		}
	}
	return l, nil
}
