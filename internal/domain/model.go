package domain

import (
	"strings"
	"time"
)

// Order is a single customer order as fetched from the remote store.
// Items are loaded lazily; an order patched in from a push event may
// carry an empty Items slice until the next refresh hydrates it.
type Order struct {
	ID            string      `json:"id"`
	OrderNumber   int         `json:"order_number"`
	TableNumber   *string     `json:"table_number,omitempty"` // nil for takeout/delivery
	CustomerName  string      `json:"customer_name"`
	Status        OrderStatus `json:"status"`
	OrderType     string      `json:"order_type"`
	PaymentMethod string      `json:"payment_method"`
	Notes         *string     `json:"notes,omitempty"`
	Total         float64     `json:"total"`
	CreatedAt     time.Time   `json:"created_at"`
	Items         []OrderItem `json:"items,omitempty"`
}

// Table returns the trimmed table number and whether the order belongs
// to a physical table at all.
func (o Order) Table() (string, bool) {
	if o.TableNumber == nil {
		return "", false
	}
	tn := strings.TrimSpace(*o.TableNumber)
	return tn, tn != ""
}

// Open reports whether the order still counts toward the live floor view.
func (o Order) Open() bool { return !o.Status.Terminal() }

type OrderItem struct {
	ItemName            string     `json:"item_name"`
	ItemNameLocalized   string     `json:"item_name_localized,omitempty"`
	Quantity            int        `json:"quantity"`
	UnitPrice           float64    `json:"unit_price"`
	TotalPrice          float64    `json:"total_price"` // quantity * unit_price
	SpecialInstructions *string    `json:"special_instructions,omitempty"`
	Modifiers           []Modifier `json:"modifiers,omitempty"`
}

type Modifier struct {
	Name            string  `json:"name"`
	PriceAdjustment float64 `json:"price_adjustment"`
}

// ServiceRequest is a guest-initiated staff request (call waiter,
// request bill), independent of any order.
type ServiceRequest struct {
	ID          string        `json:"id"`
	TableNumber string        `json:"table_number"`
	Type        RequestType   `json:"request_type"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// LiveTable is the derived per-table operational view. It is never
// persisted; it is recomputed from the order and request stores.
type LiveTable struct {
	TableNumber     string           `json:"table_number"`
	Orders          []Order          `json:"orders"`
	TotalAmount     float64          `json:"total_amount"`
	HasReadyOrders  bool             `json:"has_ready_orders"`
	HasServedOrders bool             `json:"has_served_orders"`
	AllServed       bool             `json:"all_served"`
	ServiceRequests []ServiceRequest `json:"service_requests"`
}
