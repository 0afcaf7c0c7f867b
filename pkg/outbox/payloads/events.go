package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bananabill/backend/pkg/enums"
)

// BillCreatedEvent signals a freshly numbered bill.
type BillCreatedEvent struct {
	BillID      uuid.UUID       `json:"bill_id"`
	BillNumber  string          `json:"bill_number"`
	FarmerID    uuid.UUID       `json:"farmer_id"`
	FarmerName  string          `json:"farmer_name,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	NetAmount   decimal.Decimal `json:"net_amount"`
}

// PaymentRecordedEvent is emitted for every ledger entry applied to a bill.
type PaymentRecordedEvent struct {
	BillID        uuid.UUID           `json:"bill_id"`
	BillNumber    string              `json:"bill_number"`
	Amount        decimal.Decimal     `json:"amount"`
	PaymentType   enums.PaymentType   `json:"payment_type"`
	PaidAmount    decimal.Decimal     `json:"paid_amount"`
	AdvanceAmount decimal.Decimal     `json:"advance_amount"`
	Status        enums.PaymentStatus `json:"status"`
}

// BillMarkedPaidEvent signals a bill settled in full in one step.
type BillMarkedPaidEvent struct {
	BillID     uuid.UUID       `json:"bill_id"`
	BillNumber string          `json:"bill_number"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	PaidAt     time.Time       `json:"paid_at"`
}

// PaymentReminderEvent asks downstream channels to nudge a farmer payout.
type PaymentReminderEvent struct {
	BillID       uuid.UUID       `json:"bill_id"`
	BillNumber   string          `json:"bill_number"`
	FarmerID     uuid.UUID       `json:"farmer_id"`
	FarmerName   string          `json:"farmer_name,omitempty"`
	FarmerMobile string          `json:"farmer_mobile,omitempty"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
}
