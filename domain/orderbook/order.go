package orderbook

type Side int
type OrderType int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Ask {
		return "ASK"
	}
	return "BID"
}

const (
	Limit OrderType = iota
	Market
)

// Order is a resting or incoming order.
type Order struct {
	ID     uint64
	Price  int64
	Qty    int64
	Filled int64

	Side Side
	Type OrderType

	next *Order
	prev *Order
}

func (o *Order) Remaining() int64 {
	return o.Qty - o.Filled
}

// Next walks the FIFO of the order's price level.
func (o *Order) Next() *Order {
	return o.next
}
