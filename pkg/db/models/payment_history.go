package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bananabill/backend/pkg/enums"
)

// PaymentHistory is an append-only audit row for a payment event against a
// bill. Rows are never updated or deleted, and they carry a snapshot of the
// bill so the trail stays readable even if the bill itself is removed.
type PaymentHistory struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BillID     uuid.UUID `gorm:"column:bill_id;type:uuid;not null;index"`
	BillNumber string    `gorm:"column:bill_number;not null"`

	Amount      decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentType enums.PaymentType `gorm:"column:payment_type;not null"`

	Method         string `gorm:"column:method"`
	TransactionRef string `gorm:"column:transaction_ref"`

	// Bill payment state around this event.
	PreviousPaidAmount decimal.Decimal     `gorm:"column:previous_paid_amount;type:numeric(12,2);not null"`
	PaidAmountAfter    decimal.Decimal     `gorm:"column:paid_amount_after;type:numeric(12,2);not null"`
	BillNetAmount      decimal.Decimal     `gorm:"column:bill_net_amount;type:numeric(12,2);not null"`
	StatusAfter        enums.PaymentStatus `gorm:"column:status_after;not null"`

	Note string `gorm:"column:note"`

	RecordedBy uuid.UUID `gorm:"column:recorded_by;type:uuid;not null"`
	RecordedAt time.Time `gorm:"column:recorded_at;autoCreateTime;index"`
}

func (PaymentHistory) TableName() string { return "payment_history" }
