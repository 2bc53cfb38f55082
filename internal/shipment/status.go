package shipment

// Status tracks an import shipment from booking to warehouse delivery.
type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusDeparted  Status = "DEPARTED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusAtPort    Status = "AT_PORT"
	StatusHeld      Status = "HELD"
	StatusCleared   Status = "CLEARED"
	StatusDelivered Status = "DELIVERED"
)

// Valid reports whether s is a known shipment status.
func (s Status) Valid() bool {
	switch s {
	case StatusBooked, StatusDeparted, StatusInTransit, StatusAtPort, StatusHeld, StatusCleared, StatusDelivered:
		return true
	}
	return false
}

// allowedTransition encodes the tracking state machine. Repeating the current
// status is allowed so courier feeds can re-deliver events.
func allowedTransition(current, next Status) bool {
	if current == next {
		return true
	}
	switch current {
	case StatusBooked:
		return next == StatusDeparted
	case StatusDeparted:
		return next == StatusInTransit || next == StatusAtPort || next == StatusHeld
	case StatusInTransit:
		return next == StatusAtPort || next == StatusHeld
	case StatusAtPort:
		return next == StatusHeld || next == StatusCleared
	case StatusHeld:
		// customs holds release back into the flow or straight to cleared
		return next == StatusDeparted || next == StatusInTransit || next == StatusAtPort || next == StatusCleared
	case StatusCleared:
		return next == StatusDelivered
	default:
		return false
	}
}
