package sequence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bananabill/backend/pkg/db/models"
)

// Store hands out monotonically increasing values per named counter.
type Store interface {
	// Next atomically increments the counter for key and returns the new
	// value. The first call for a key returns 1.
	Next(ctx context.Context, key string) (int64, error)
	// Current returns the last value handed out for key, zero when the
	// counter does not exist yet.
	Current(ctx context.Context, key string) (int64, error)
	// Reset forces the counter to the given value. Admin tooling only.
	Reset(ctx context.Context, key string, value int64) error
}

type store struct {
	db *gorm.DB
}

// NewStore returns a counter store bound to the provided database.
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Next(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, errors.New("sequence key is required")
	}
	var value int64
	err := s.db.WithContext(ctx).Raw(
		`INSERT INTO sequences (key, value) VALUES (?, 1)
		 ON CONFLICT (key) DO UPDATE SET value = sequences.value + 1
		 RETURNING value`,
		key,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (s *store) Reset(ctx context.Context, key string, value int64) error {
	if key == "" {
		return errors.New("sequence key is required")
	}
	if value < 0 {
		return errors.New("sequence value must be non-negative")
	}
	return s.db.WithContext(ctx).Exec(
		`INSERT INTO sequences (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	).Error
}

func (s *store) Current(ctx context.Context, key string) (int64, error) {
	var row models.Sequence
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Value, nil
}
