package farmers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/bananabill/backend/pkg/db"
	"github.com/bananabill/backend/pkg/db/models"
	apperrors "github.com/bananabill/backend/pkg/errors"
)

// CreateFarmerInput carries the directory fields for a new farmer.
type CreateFarmerInput struct {
	Name    string
	Mobile  string
	Village string
	Address string
}

// UpdateFarmerInput carries replacement directory fields.
type UpdateFarmerInput struct {
	Name    string
	Mobile  string
	Village string
	Address string
}

// ServiceParams groups dependencies for the farmer directory service.
type ServiceParams struct {
	Repo Repository
}

// Service maintains the farmer directory bills reference.
type Service struct {
	repo Repository
}

// NewService builds a farmer directory service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// Resolve loads the farmer or fails with NOT_FOUND.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*models.Farmer, error) {
	farmer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "farmer not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading farmer")
	}
	return farmer, nil
}

func (s *Service) Create(ctx context.Context, input CreateFarmerInput) (*models.Farmer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "farmer name is required")
	}
	farmer := &models.Farmer{
		ID:      uuid.New(),
		Name:    name,
		Mobile:  strings.TrimSpace(input.Mobile),
		Village: strings.TrimSpace(input.Village),
		Address: strings.TrimSpace(input.Address),
	}
	if err := s.repo.Create(ctx, farmer); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_farmers_mobile") {
			return nil, apperrors.New(apperrors.CodeValidation, "mobile number already registered")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating farmer")
	}
	return farmer, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateFarmerInput) (*models.Farmer, error) {
	farmer, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		farmer.Name = name
	}
	farmer.Mobile = strings.TrimSpace(input.Mobile)
	farmer.Village = strings.TrimSpace(input.Village)
	farmer.Address = strings.TrimSpace(input.Address)

	if err := s.repo.Update(ctx, farmer); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_farmers_mobile") {
			return nil, apperrors.New(apperrors.CodeValidation, "mobile number already registered")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "updating farmer")
	}
	return farmer, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Farmer, error) {
	return s.repo.List(ctx, limit, offset)
}

// FindByMobile looks a farmer up by their mobile number.
func (s *Service) FindByMobile(ctx context.Context, mobile string) (*models.Farmer, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "mobile number is required")
	}
	farmer, err := s.repo.GetByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "farmer not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading farmer")
	}
	return farmer, nil
}
