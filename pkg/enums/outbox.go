package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateBill   OutboxAggregateType = "bill"
	AggregateFarmer OutboxAggregateType = "farmer"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateBill,
	AggregateFarmer,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventBillCreated              OutboxEventType = "bill_created"
	EventPaymentRecorded          OutboxEventType = "payment_recorded"
	EventBillMarkedPaid           OutboxEventType = "bill_marked_paid"
	EventPaymentReminderRequested OutboxEventType = "payment_reminder_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBillCreated,
	EventPaymentRecorded,
	EventBillMarkedPaid,
	EventPaymentReminderRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
