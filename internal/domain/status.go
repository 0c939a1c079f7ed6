package domain

// OrderStatus is the lifecycle stage of a single order.
type OrderStatus string

const (
	StatusNew       OrderStatus = "new"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status ends the order's lifecycle.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusNew, StatusPreparing, StatusReady, StatusServed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// next holds the forward edge of the order lifecycle:
// new -> preparing -> ready -> served -> completed.
var next = map[OrderStatus]OrderStatus{
	StatusNew:       StatusPreparing,
	StatusPreparing: StatusReady,
	StatusReady:     StatusServed,
	StatusServed:    StatusCompleted,
}

// CanTransition reports whether an order may move from one status to
// another. Cancellation is reachable from any non-terminal state;
// terminal states have no outgoing transitions.
func CanTransition(from, to OrderStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return next[from] == to
}

// RequestType distinguishes guest-initiated service requests.
type RequestType string

const (
	RequestCallWaiter  RequestType = "call_waiter"
	RequestRequestBill RequestType = "request_bill"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestCompleted RequestStatus = "completed"
)
