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
	apperrors "github.com/bananabill/backend/pkg/errors"
	"github.com/bananabill/backend/pkg/logger"
	"github.com/bananabill/backend/pkg/outbox"
	"github.com/bananabill/backend/pkg/outbox/payloads"
	"github.com/bananabill/backend/pkg/pagination"
)

// BillNumberer hands out formatted bill numbers.
type BillNumberer interface {
	BillNumber(ctx context.Context) (string, error)
}

// FarmerDirectory resolves farmers referenced by bills.
type FarmerDirectory interface {
	Resolve(ctx context.Context, id uuid.UUID) (*models.Farmer, error)
}

// OutboxEmitter queues domain events inside the caller's transaction.
type OutboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// TxRunner executes fn inside a database transaction.
type TxRunner func(ctx context.Context, fn func(tx *gorm.DB) error) error

// CreateBillInput carries everything needed to cut a new bill.
type CreateBillInput struct {
	FarmerID      uuid.UUID
	VehicleNumber string
	GrossWeight   decimal.Decimal
	PattiWeight   decimal.Decimal
	BoxCount      int
	TutWastage    decimal.Decimal
	RatePerKg     decimal.Decimal
	Majuri        decimal.Decimal
	DueDate       *time.Time
	ActorID       uuid.UUID
}

// UpdateBillInput carries replacement figures plus the version the caller
// last saw.
type UpdateBillInput struct {
	FarmerID        uuid.UUID
	VehicleNumber   string
	GrossWeight     decimal.Decimal
	PattiWeight     decimal.Decimal
	BoxCount        int
	TutWastage      decimal.Decimal
	RatePerKg       decimal.Decimal
	Majuri          decimal.Decimal
	DueDate         *time.Time
	ExpectedVersion int64
	ActorID         uuid.UUID
}

// ServiceParams groups dependencies for the bill service.
type ServiceParams struct {
	Repo     Repository
	Farmers  FarmerDirectory
	Numberer BillNumberer
	Calc     *Calculator
	Outbox   OutboxEmitter
	Tx       TxRunner
	Logger   *logger.Logger
	Now      func() time.Time
}

// Service orchestrates bill creation, recalculation and queries.
type Service struct {
	repo     Repository
	farmers  FarmerDirectory
	numberer BillNumberer
	calc     *Calculator
	outbox   OutboxEmitter
	tx       TxRunner
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a bill service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Farmers == nil {
		return nil, errors.New("farmer directory is required")
	}
	if params.Numberer == nil {
		return nil, errors.New("numberer is required")
	}
	if params.Calc == nil {
		return nil, errors.New("calculator is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Service{
		repo:     params.Repo,
		farmers:  params.Farmers,
		numberer: params.Numberer,
		calc:     params.Calc,
		outbox:   params.Outbox,
		tx:       params.Tx,
		logg:     params.Logger,
		now:      params.Now,
	}, nil
}

// Create resolves the farmer, runs the calculation, draws the next bill
// number and persists the aggregate at version zero.
func (s *Service) Create(ctx context.Context, input CreateBillInput) (*models.Bill, error) {
	farmer, err := s.farmers.Resolve(ctx, input.FarmerID)
	if err != nil {
		return nil, err
	}

	result, err := s.calc.Calculate(calcInputFrom(input.GrossWeight, input.PattiWeight, input.BoxCount, input.TutWastage, input.RatePerKg, input.Majuri))
	if err != nil {
		return nil, err
	}

	number, err := s.numberer.BillNumber(ctx)
	if err != nil {
		return nil, err
	}

	bill := &models.Bill{
		ID:         uuid.New(),
		Version:    0,
		BillNumber: number,

		FarmerID:     farmer.ID,
		FarmerName:   farmer.Name,
		FarmerMobile: farmer.Mobile,

		VehicleNumber: input.VehicleNumber,

		GrossWeight: input.GrossWeight,
		PattiWeight: input.PattiWeight,
		BoxCount:    input.BoxCount,
		TutWastage:  input.TutWastage,

		BaseNetWeight:    result.BaseNetWeight,
		DandaWeight:      result.DandaWeight,
		ChargeableWeight: result.ChargeableWeight,

		RatePerKg:   input.RatePerKg,
		TotalAmount: result.TotalAmount,
		Majuri:      input.Majuri,
		NetAmount:   result.NetAmount,

		PaymentStatus: enums.PaymentStatusUnpaid,
		PaidAmount:    decimal.Zero,
		AdvanceAmount: decimal.Zero,
		DueDate:       input.DueDate,

		CreatedBy: input.ActorID,
		UpdatedBy: input.ActorID,
	}

	err = s.tx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, bill); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "persisting bill")
		}
		return s.emitCreated(ctx, tx, bill, input.ActorID)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithBillNumber(ctx, bill.BillNumber), "bill created")
	}
	return bill, nil
}

// Update re-resolves the farmer, recalculates every derived figure and
// persists with compare-and-swap on the version the caller last saw.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateBillInput) (*models.Bill, error) {
	bill, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	farmer, err := s.farmers.Resolve(ctx, input.FarmerID)
	if err != nil {
		return nil, err
	}

	result, err := s.calc.Calculate(calcInputFrom(input.GrossWeight, input.PattiWeight, input.BoxCount, input.TutWastage, input.RatePerKg, input.Majuri))
	if err != nil {
		return nil, err
	}

	bill.FarmerID = farmer.ID
	bill.FarmerName = farmer.Name
	bill.FarmerMobile = farmer.Mobile
	bill.VehicleNumber = input.VehicleNumber

	bill.GrossWeight = input.GrossWeight
	bill.PattiWeight = input.PattiWeight
	bill.BoxCount = input.BoxCount
	bill.TutWastage = input.TutWastage
	bill.RatePerKg = input.RatePerKg
	bill.Majuri = input.Majuri

	bill.BaseNetWeight = result.BaseNetWeight
	bill.DandaWeight = result.DandaWeight
	bill.ChargeableWeight = result.ChargeableWeight
	bill.TotalAmount = result.TotalAmount
	bill.NetAmount = result.NetAmount
	bill.DueDate = input.DueDate
	bill.UpdatedBy = input.ActorID

	if err := s.persistVersioned(ctx, bill, input.ExpectedVersion); err != nil {
		return nil, err
	}
	return bill, nil
}

// Delete removes the bill. The bill number is not reclaimed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "bill not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "deleting bill")
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	bill, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "bill not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading bill")
	}
	return bill, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*models.Bill, error) {
	bill, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "bill not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading bill")
	}
	return bill, nil
}

func (s *Service) ListByFarmer(ctx context.Context, farmerID uuid.UUID, limit int) ([]models.Bill, error) {
	return s.repo.ListByFarmer(ctx, farmerID, limit)
}

func (s *Service) ListUnpaid(ctx context.Context, limit int) ([]models.Bill, error) {
	return s.repo.ListUnpaid(ctx, limit)
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]models.Bill, error) {
	return s.repo.ListRecent(ctx, limit)
}

// ListPage pages through bills newest first using an opaque keyset cursor.
// The returned cursor is empty on the last page.
func (s *Service) ListPage(ctx context.Context, params pagination.Params) ([]models.Bill, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListPage(ctx, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeInternal, err, "listing bills")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (s *Service) ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Bill, error) {
	return s.repo.ListByDateRange(ctx, start, end)
}

func (s *Service) Search(ctx context.Context, filters SearchFilters) ([]models.Bill, error) {
	return s.repo.Search(ctx, filters)
}

// CountToday counts bills cut since local midnight.
func (s *Service) CountToday(ctx context.Context) (int64, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.repo.CountCreatedSince(ctx, dayStart)
}

func (s *Service) CountUnpaid(ctx context.Context) (int64, error) {
	return s.repo.CountUnpaid(ctx)
}

func (s *Service) TotalUnpaidAmount(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.TotalUnpaidAmount(ctx)
}

// FarmerReport aggregates a farmer's billing position.
func (s *Service) FarmerReport(ctx context.Context, farmerID uuid.UUID) (*FarmerTotals, error) {
	if _, err := s.farmers.Resolve(ctx, farmerID); err != nil {
		return nil, err
	}
	return s.repo.FarmerTotals(ctx, farmerID)
}

// SetDueDate stamps the payout due date under the version lock.
func (s *Service) SetDueDate(ctx context.Context, id uuid.UUID, dueDate time.Time) (*models.Bill, error) {
	bill, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := bill.Version
	bill.DueDate = &dueDate
	if err := s.persistVersioned(ctx, bill, expected); err != nil {
		return nil, err
	}
	return bill, nil
}

// StampReminderSent records that a payout reminder went out for the bill.
func (s *Service) StampReminderSent(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	bill, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := bill.Version
	now := s.now()
	bill.LastReminderSent = &now
	if err := s.persistVersioned(ctx, bill, expected); err != nil {
		return nil, err
	}
	return bill, nil
}

// ListOverdue returns unpaid bills past their due date whose last reminder
// is older than reminderBefore.
func (s *Service) ListOverdue(ctx context.Context, reminderBefore time.Time, limit int) ([]models.Bill, error) {
	return s.repo.ListOverdue(ctx, s.now(), reminderBefore, limit)
}

func (s *Service) persistVersioned(ctx context.Context, bill *models.Bill, expectedVersion int64) error {
	bill.Version = expectedVersion + 1
	err := s.repo.UpdateVersioned(ctx, bill, expectedVersion)
	if err == nil {
		return nil
	}
	bill.Version = expectedVersion
	if errors.Is(err, ErrVersionConflict) {
		return apperrors.New(apperrors.CodeConflict, "bill was modified concurrently, reload and retry")
	}
	return apperrors.Wrap(apperrors.CodeInternal, err, "persisting bill")
}

func (s *Service) emitCreated(ctx context.Context, tx *gorm.DB, bill *models.Bill, actorID uuid.UUID) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventBillCreated,
		AggregateType: enums.AggregateBill,
		AggregateID:   bill.ID,
		Actor:         &outbox.ActorRef{UserID: actorID},
		Data: payloads.BillCreatedEvent{
			BillID:      bill.ID,
			BillNumber:  bill.BillNumber,
			FarmerID:    bill.FarmerID,
			FarmerName:  bill.FarmerName,
			TotalAmount: bill.TotalAmount,
			NetAmount:   bill.NetAmount,
		},
	})
}

func calcInputFrom(gross, patti decimal.Decimal, boxes int, tut, rate, majuri decimal.Decimal) CalcInput {
	return CalcInput{
		GrossWeight: gross,
		PattiWeight: patti,
		BoxCount:    boxes,
		TutWastage:  tut,
		RatePerKg:   rate,
		Majuri:      majuri,
	}
}
