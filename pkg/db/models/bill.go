package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bananabill/backend/pkg/enums"
)

// Bill is the billing aggregate for one weighment. Derived columns are only
// ever written by the calculation engine; version is the optimistic lock
// token compared-and-swapped on every write.
type Bill struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Version    int64     `gorm:"column:version;not null;default:0"`
	BillNumber string    `gorm:"column:bill_number;not null;uniqueIndex"`

	FarmerID uuid.UUID `gorm:"column:farmer_id;type:uuid;not null;index"`
	// Farmer display fields denormalized at write time; the farmers table
	// stays authoritative.
	FarmerName   string `gorm:"column:farmer_name"`
	FarmerMobile string `gorm:"column:farmer_mobile"`

	VehicleNumber string `gorm:"column:vehicle_number"`

	// Weighment inputs, all in kg.
	GrossWeight decimal.Decimal `gorm:"column:gross_weight;type:numeric(12,2);not null"`
	PattiWeight decimal.Decimal `gorm:"column:patti_weight;type:numeric(12,2);not null"`
	BoxCount    int             `gorm:"column:box_count;not null;default:0"`
	TutWastage  decimal.Decimal `gorm:"column:tut_wastage;type:numeric(12,2);not null"`

	// Derived weights.
	BaseNetWeight    decimal.Decimal `gorm:"column:base_net_weight;type:numeric(12,2);not null"`
	DandaWeight      decimal.Decimal `gorm:"column:danda_weight;type:numeric(12,2);not null"`
	ChargeableWeight decimal.Decimal `gorm:"column:chargeable_weight;type:numeric(12,2);not null"`

	// Pricing.
	RatePerKg   decimal.Decimal `gorm:"column:rate_per_kg;type:numeric(12,2);not null"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Majuri      decimal.Decimal `gorm:"column:majuri;type:numeric(12,2);not null"`
	NetAmount   decimal.Decimal `gorm:"column:net_amount;type:numeric(12,2);not null"`

	// Payment tracking (trader pays farmer).
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;not null;default:'UNPAID'"`
	PaidAmount       decimal.Decimal     `gorm:"column:paid_amount;type:numeric(12,2);not null"`
	AdvanceAmount    decimal.Decimal     `gorm:"column:advance_amount;type:numeric(12,2);not null"`
	PaymentDate      *time.Time          `gorm:"column:payment_date"`
	DueDate          *time.Time          `gorm:"column:due_date;index"`
	LastReminderSent *time.Time          `gorm:"column:last_reminder_sent"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedBy uuid.UUID `gorm:"column:updated_by;type:uuid"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
