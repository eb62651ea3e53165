package enums

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusBasket    OrderStatus = "basket"
	OrderStatusNew       OrderStatus = "new"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusAssembled OrderStatus = "assembled"
	OrderStatusSent      OrderStatus = "sent"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCanceled  OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusBasket,
	OrderStatusNew,
	OrderStatusConfirmed,
	OrderStatusAssembled,
	OrderStatusSent,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

// forward lists the single next step of the fulfilment chain.
var forward = map[OrderStatus]OrderStatus{
	OrderStatusBasket:    OrderStatusNew,
	OrderStatusNew:       OrderStatusConfirmed,
	OrderStatusConfirmed: OrderStatusAssembled,
	OrderStatusAssembled: OrderStatusSent,
	OrderStatusSent:      OrderStatusDelivered,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	return member(s, validOrderStatuses)
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// IsPlaced reports whether the order has left the basket.
func (s OrderStatus) IsPlaced() bool {
	return s.IsValid() && s != OrderStatusBasket
}

// CanTransitionTo reports whether next is a legal successor of s.
// A basket can only be placed; placed orders move forward one step at a
// time or get canceled while not terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() {
		return false
	}
	if next == OrderStatusCanceled {
		return s != OrderStatusBasket
	}
	return forward[s] == next
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse(value, "order status", validOrderStatuses)
}
