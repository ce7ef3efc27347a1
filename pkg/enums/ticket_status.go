package enums

import "fmt"

// TicketStatus tracks an issued ticket through its scanning lifecycle.
type TicketStatus string

const (
	TicketStatusValid    TicketStatus = "valid"
	TicketStatusUsed     TicketStatus = "used"
	TicketStatusRefunded TicketStatus = "refunded"
	TicketStatusVoid     TicketStatus = "void"
)

var validTicketStatuses = []TicketStatus{
	TicketStatusValid,
	TicketStatusUsed,
	TicketStatusRefunded,
	TicketStatusVoid,
}

// String implements fmt.Stringer.
func (s TicketStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TicketStatus.
func (s TicketStatus) IsValid() bool {
	for _, candidate := range validTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Scannable reports whether the ticket may still be redeemed at the gate.
func (s TicketStatus) Scannable() bool {
	return s == TicketStatusValid
}

// ParseTicketStatus converts raw input into a TicketStatus.
func ParseTicketStatus(value string) (TicketStatus, error) {
	for _, candidate := range validTicketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket status %q", value)
}
