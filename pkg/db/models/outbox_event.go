package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bananabill/backend/pkg/enums"
)

// OutboxEvent is written in the same transaction as the domain change it
// describes and published asynchronously by the outbox worker.
type OutboxEvent struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                `gorm:"column:aggregate_id;type:uuid;not null;index"`
	EventType     enums.OutboxEventType    `gorm:"column:event_type;not null"`
	Payload       []byte                   `gorm:"column:payload;type:jsonb;not null"`

	Attempts      int        `gorm:"column:attempts;not null;default:0"`
	NextAttemptAt time.Time  `gorm:"column:next_attempt_at;not null;index"`
	PublishedAt   *time.Time `gorm:"column:published_at;index"`
	LastError     string     `gorm:"column:last_error"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
