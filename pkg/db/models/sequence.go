package models

// Sequence is a named monotonic counter. One row per billing period, keyed
// by the period prefix, incremented atomically with an upsert.
type Sequence struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value int64  `gorm:"column:value;not null;default:0"`
}

func (Sequence) TableName() string { return "sequences" }
