package farmers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bananabill/backend/pkg/db/models"
)

// Repository manages persistence for the farmer directory.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, farmer *models.Farmer) error
	Update(ctx context.Context, farmer *models.Farmer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Farmer, error)
	GetByMobile(ctx context.Context, mobile string) (*models.Farmer, error)
	List(ctx context.Context, limit, offset int) ([]models.Farmer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a farmer repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, farmer *models.Farmer) error {
	return r.db.WithContext(ctx).Create(farmer).Error
}

func (r *repository) Update(ctx context.Context, farmer *models.Farmer) error {
	return r.db.WithContext(ctx).Save(farmer).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Farmer, error) {
	var farmer models.Farmer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&farmer).Error; err != nil {
		return nil, err
	}
	return &farmer, nil
}

func (r *repository) GetByMobile(ctx context.Context, mobile string) (*models.Farmer, error) {
	var farmer models.Farmer
	if err := r.db.WithContext(ctx).Where("mobile = ?", mobile).First(&farmer).Error; err != nil {
		return nil, err
	}
	return &farmer, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]models.Farmer, error) {
	var rows []models.Farmer
	q := r.db.WithContext(ctx).Order("name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return rows, q.Find(&rows).Error
}
