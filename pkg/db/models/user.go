package models

import (
	"time"

	"github.com/google/uuid"
)

// User identifies an operator of the billing desk. Authentication happens
// upstream; this table backs the audit columns on bills and payments.
type User struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name     string    `gorm:"column:name;not null"`
	Mobile   string    `gorm:"column:mobile;uniqueIndex"`
	Disabled bool      `gorm:"column:disabled;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
