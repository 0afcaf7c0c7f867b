package models

import (
	"time"

	"github.com/google/uuid"
)

type Farmer struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name    string    `gorm:"column:name;not null;index"`
	Mobile  string    `gorm:"column:mobile;uniqueIndex"`
	Village string    `gorm:"column:village"`
	Address string    `gorm:"column:address"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
