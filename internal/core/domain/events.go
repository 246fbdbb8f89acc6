package domain

// EventKind names a notification published on the bus.
type EventKind string

const (
	EventOrderPlaced  EventKind = "orderPlaced"
	EventOrderUpdated EventKind = "orderUpdated"
)

// IsValid reports whether the kind is one the bus carries.
func (k EventKind) IsValid() bool {
	return k == EventOrderPlaced || k == EventOrderUpdated
}

// Event is a transient notification. It is created at publish time and
// never stored.
type Event struct {
	Kind    EventKind `json:"kind"`
	Payload any       `json:"payload"`
}

// OrderIdentified is implemented by payloads that can be routed to an
// order's group.
type OrderIdentified interface {
	OrderID() int64
}
