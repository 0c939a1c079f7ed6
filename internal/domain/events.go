package domain

import (
	"encoding/json"
	"fmt"
)

// Entity names the remote collection a change event belongs to.
type Entity string

const (
	EntityOrders          Entity = "orders"
	EntityServiceRequests Entity = "service_requests"
)

// Operation is the kind of change delivered on the push stream.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ChangeEvent is the push-stream envelope: one changed record from the
// remote store. Record is kept raw until the owning store decodes it,
// so a malformed payload for one entity never breaks the other.
type ChangeEvent struct {
	Entity    Entity          `json:"entity"`
	Operation Operation       `json:"operation"`
	Record    json.RawMessage `json:"record"`
}

// RoutingKey is the topic key the event is published under,
// e.g. "orders.insert".
func (e ChangeEvent) RoutingKey() string {
	return fmt.Sprintf("%s.%s", e.Entity, e.Operation)
}

func (e ChangeEvent) Validate() error {
	switch e.Entity {
	case EntityOrders, EntityServiceRequests:
	default:
		return fmt.Errorf("unknown entity %q", e.Entity)
	}
	switch e.Operation {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("unknown operation %q", e.Operation)
	}
	if len(e.Record) == 0 {
		return fmt.Errorf("empty record")
	}
	return nil
}

// DecodeOrder unmarshals the event record as an order. Delete events
// may carry only the id.
func (e ChangeEvent) DecodeOrder() (Order, error) {
	var o Order
	if err := json.Unmarshal(e.Record, &o); err != nil {
		return Order{}, fmt.Errorf("decode order record: %w", err)
	}
	if o.ID == "" {
		return Order{}, fmt.Errorf("order record without id")
	}
	return o, nil
}

func (e ChangeEvent) DecodeServiceRequest() (ServiceRequest, error) {
	var r ServiceRequest
	if err := json.Unmarshal(e.Record, &r); err != nil {
		return ServiceRequest{}, fmt.Errorf("decode service request record: %w", err)
	}
	if r.ID == "" {
		return ServiceRequest{}, fmt.Errorf("service request record without id")
	}
	return r, nil
}

// NewOrderEvent builds an envelope for an order change. Used by the
// gateway's write-through loopback and by tests.
func NewOrderEvent(op Operation, o Order) (ChangeEvent, error) {
	rec, err := json.Marshal(o)
	if err != nil {
		return ChangeEvent{}, err
	}
	return ChangeEvent{Entity: EntityOrders, Operation: op, Record: rec}, nil
}

func NewServiceRequestEvent(op Operation, r ServiceRequest) (ChangeEvent, error) {
	rec, err := json.Marshal(r)
	if err != nil {
		return ChangeEvent{}, err
	}
	return ChangeEvent{Entity: EntityServiceRequests, Operation: op, Record: rec}, nil
}
