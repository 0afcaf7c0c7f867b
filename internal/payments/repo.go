package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bananabill/backend/pkg/db/models"
)

// HistoryRepository manages the append-only payment audit trail.
type HistoryRepository interface {
	WithTx(tx *gorm.DB) HistoryRepository
	Append(ctx context.Context, row *models.PaymentHistory) error
	ListByBill(ctx context.Context, billID uuid.UUID) ([]models.PaymentHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository returns a payment history repository bound to the
// provided database.
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) WithTx(tx *gorm.DB) HistoryRepository {
	if tx == nil {
		return r
	}
	return &historyRepository{db: tx}
}

func (r *historyRepository) Append(ctx context.Context, row *models.PaymentHistory) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *historyRepository) ListByBill(ctx context.Context, billID uuid.UUID) ([]models.PaymentHistory, error) {
	var rows []models.PaymentHistory
	err := r.db.WithContext(ctx).
		Where("bill_id = ?", billID).
		Order("recorded_at DESC").
		Find(&rows).Error
	return rows, err
}
