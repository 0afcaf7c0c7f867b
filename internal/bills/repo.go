package bills

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bananabill/backend/pkg/db/models"
	"github.com/bananabill/backend/pkg/enums"
	"github.com/bananabill/backend/pkg/pagination"
)

// ErrVersionConflict is returned when a versioned write matched no row,
// either because the bill is gone or its version moved on.
var ErrVersionConflict = errors.New("bill version conflict")

// SearchFilters narrows bill searches. Zero values are ignored.
type SearchFilters struct {
	FarmerMobile string
	Status       enums.PaymentStatus
	Start        *time.Time
	End          *time.Time
	Limit        int
}

// FarmerTotals aggregates a farmer's billing position.
type FarmerTotals struct {
	BillCount        int64
	TotalNetAmount   decimal.Decimal
	TotalChargeable  decimal.Decimal
	UnpaidBillCount  int64
	OutstandingTotal decimal.Decimal
}

// Repository manages persistence for bill aggregates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, bill *models.Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bill, error)
	GetByNumber(ctx context.Context, number string) (*models.Bill, error)
	// UpdateVersioned persists the bill only when the stored version still
	// equals expectedVersion; the bill's version must already be bumped.
	UpdateVersioned(ctx context.Context, bill *models.Bill, expectedVersion int64) error
	Delete(ctx context.Context, id uuid.UUID) error

	ListByFarmer(ctx context.Context, farmerID uuid.UUID, limit int) ([]models.Bill, error)
	ListPage(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Bill, error)
	ListUnpaid(ctx context.Context, limit int) ([]models.Bill, error)
	ListOverdue(ctx context.Context, dueBefore, reminderBefore time.Time, limit int) ([]models.Bill, error)
	ListRecent(ctx context.Context, limit int) ([]models.Bill, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Bill, error)
	Search(ctx context.Context, filters SearchFilters) ([]models.Bill, error)

	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	CountUnpaid(ctx context.Context) (int64, error)
	TotalUnpaidAmount(ctx context.Context) (decimal.Decimal, error)
	FarmerTotals(ctx context.Context, farmerID uuid.UUID) (*FarmerTotals, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bill repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, bill *models.Bill) error {
	return r.db.WithContext(ctx).Create(bill).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	var bill models.Bill
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*models.Bill, error) {
	var bill models.Bill
	if err := r.db.WithContext(ctx).Where("bill_number = ?", number).First(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repository) UpdateVersioned(ctx context.Context, bill *models.Bill, expectedVersion int64) error {
	res := r.db.WithContext(ctx).Model(&models.Bill{}).
		Where("id = ? AND version = ?", bill.ID, expectedVersion).
		Select("*").
		Omit("id", "bill_number", "created_at", "created_by").
		Updates(bill)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Bill{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListByFarmer(ctx context.Context, farmerID uuid.UUID, limit int) ([]models.Bill, error) {
	var rows []models.Bill
	q := r.db.WithContext(ctx).
		Where("farmer_id = ?", farmerID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return rows, q.Find(&rows).Error
}

func (r *repository) ListUnpaid(ctx context.Context, limit int) ([]models.Bill, error) {
	var rows []models.Bill
	q := r.db.WithContext(ctx).
		Where("payment_status <> ?", enums.PaymentStatusPaid).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return rows, q.Find(&rows).Error
}

func (r *repository) ListOverdue(ctx context.Context, dueBefore, reminderBefore time.Time, limit int) ([]models.Bill, error) {
	var rows []models.Bill
	q := r.db.WithContext(ctx).
		Where("payment_status <> ?", enums.PaymentStatusPaid).
		Where("due_date IS NOT NULL AND due_date < ?", dueBefore).
		Where("last_reminder_sent IS NULL OR last_reminder_sent < ?", reminderBefore).
		Order("due_date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return rows, q.Find(&rows).Error
}

func (r *repository) ListPage(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Bill, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Bill
	return rows, q.Find(&rows).Error
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]models.Bill, error) {
	var rows []models.Bill
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return rows, q.Find(&rows).Error
}

func (r *repository) ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Bill, error) {
	var rows []models.Bill
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Search(ctx context.Context, filters SearchFilters) ([]models.Bill, error) {
	q := r.db.WithContext(ctx).Model(&models.Bill{})
	if filters.FarmerMobile != "" {
		q = q.Where("farmer_mobile = ?", filters.FarmerMobile)
	}
	if filters.Status != "" {
		q = q.Where("payment_status = ?", filters.Status)
	}
	if filters.Start != nil {
		q = q.Where("created_at >= ?", *filters.Start)
	}
	if filters.End != nil {
		q = q.Where("created_at < ?", *filters.End)
	}
	if filters.Limit > 0 {
		q = q.Limit(filters.Limit)
	}
	var rows []models.Bill
	return rows, q.Order("created_at DESC").Find(&rows).Error
}

func (r *repository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Bill{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *repository) CountUnpaid(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Bill{}).
		Where("payment_status <> ?", enums.PaymentStatusPaid).
		Count(&count).Error
	return count, err
}

func (r *repository) TotalUnpaidAmount(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&models.Bill{}).
		Select("SUM(net_amount - paid_amount)").
		Where("payment_status <> ?", enums.PaymentStatusPaid).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) FarmerTotals(ctx context.Context, farmerID uuid.UUID) (*FarmerTotals, error) {
	type row struct {
		BillCount        int64
		TotalNetAmount   decimal.NullDecimal
		TotalChargeable  decimal.NullDecimal
		UnpaidBillCount  int64
		OutstandingTotal decimal.NullDecimal
	}
	var out row
	err := r.db.WithContext(ctx).Model(&models.Bill{}).
		Select(`COUNT(*) AS bill_count,
			SUM(net_amount) AS total_net_amount,
			SUM(chargeable_weight) AS total_chargeable,
			COUNT(*) FILTER (WHERE payment_status <> 'PAID') AS unpaid_bill_count,
			SUM(net_amount - paid_amount) FILTER (WHERE payment_status <> 'PAID') AS outstanding_total`).
		Where("farmer_id = ?", farmerID).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	totals := &FarmerTotals{
		BillCount:        out.BillCount,
		TotalNetAmount:   decimal.Zero,
		TotalChargeable:  decimal.Zero,
		UnpaidBillCount:  out.UnpaidBillCount,
		OutstandingTotal: decimal.Zero,
	}
	if out.TotalNetAmount.Valid {
		totals.TotalNetAmount = out.TotalNetAmount.Decimal
	}
	if out.TotalChargeable.Valid {
		totals.TotalChargeable = out.TotalChargeable.Decimal
	}
	if out.OutstandingTotal.Valid {
		totals.OutstandingTotal = out.OutstandingTotal.Decimal
	}
	return totals, nil
}
