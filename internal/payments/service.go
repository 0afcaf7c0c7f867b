package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bananabill/backend/internal/bills"
	"github.com/bananabill/backend/pkg/config"
	"github.com/bananabill/backend/pkg/db/models"
	"github.com/bananabill/backend/pkg/enums"
	apperrors "github.com/bananabill/backend/pkg/errors"
	"github.com/bananabill/backend/pkg/logger"
	"github.com/bananabill/backend/pkg/outbox"
	"github.com/bananabill/backend/pkg/outbox/payloads"
)

// RecordPaymentInput describes one ledger entry against a bill.
type RecordPaymentInput struct {
	BillID         uuid.UUID
	Amount         decimal.Decimal
	Method         string
	TransactionRef string
	Notes          string
	ActorID        uuid.UUID
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Bills   bills.Repository
	History HistoryRepository
	Outbox  bills.OutboxEmitter
	Tx      bills.TxRunner
	Billing config.BillingConfig
	Logger  *logger.Logger
	Now     func() time.Time
}

// Service applies payments to bills and keeps the audit trail.
type Service struct {
	bills   bills.Repository
	history HistoryRepository
	outbox  bills.OutboxEmitter
	tx      bills.TxRunner
	cfg     config.BillingConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a payment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Bills == nil {
		return nil, errors.New("bill repo is required")
	}
	if params.History == nil {
		return nil, errors.New("history repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Service{
		bills:   params.Bills,
		history: params.History,
		outbox:  params.Outbox,
		tx:      params.Tx,
		cfg:     params.Billing,
		logg:    params.Logger,
		now:     params.Now,
	}, nil
}

// RecordPayment adds the amount to the bill's paid total. Paying past the
// net amount is accepted; the surplus is tracked as the farmer's advance.
// The history row and the outbox event are best-effort: a failure there is
// logged and never rolls back the payment itself.
func (s *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Bill, error) {
	if input.Amount.IsZero() || input.Amount.IsNegative() {
		return nil, apperrors.New(apperrors.CodeInvalidPayment, "payment amount must be positive")
	}

	bill, err := s.loadBill(ctx, input.BillID)
	if err != nil {
		return nil, err
	}

	expected := bill.Version
	previousPaid := bill.PaidAmount
	bill.PaidAmount = bill.PaidAmount.Add(input.Amount).Round(s.cfg.MoneyScale)
	bill.PaymentStatus = deriveStatus(bill.PaidAmount, bill.NetAmount)
	bill.AdvanceAmount = s.deriveAdvance(bill.PaidAmount, bill.NetAmount)
	now := s.now()
	bill.PaymentDate = &now
	bill.UpdatedBy = input.ActorID

	if err := s.persistVersioned(ctx, bill, expected); err != nil {
		return nil, err
	}

	s.appendHistory(ctx, &models.PaymentHistory{
		BillID:             bill.ID,
		BillNumber:         bill.BillNumber,
		Amount:             input.Amount,
		PaymentType:        enums.PaymentTypePayment,
		Method:             input.Method,
		TransactionRef:     input.TransactionRef,
		PreviousPaidAmount: previousPaid,
		PaidAmountAfter:    bill.PaidAmount,
		BillNetAmount:      bill.NetAmount,
		StatusAfter:        bill.PaymentStatus,
		Note:               input.Notes,
		RecordedBy:         input.ActorID,
	})
	s.emitRecorded(ctx, bill, input)

	return bill, nil
}

// MarkAsPaid settles the bill in one step: the paid amount is overwritten
// with the net amount, not added to. Any advance already tracked stays as
// is. No history row is written.
func (s *Service) MarkAsPaid(ctx context.Context, billID, actorID uuid.UUID) (*models.Bill, error) {
	bill, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	expected := bill.Version
	bill.PaidAmount = bill.NetAmount
	bill.PaymentStatus = enums.PaymentStatusPaid
	now := s.now()
	bill.PaymentDate = &now
	bill.UpdatedBy = actorID

	if err := s.persistVersioned(ctx, bill, expected); err != nil {
		return nil, err
	}

	s.emitMarkedPaid(ctx, bill, actorID)
	return bill, nil
}

// UpdatePaymentStatus force-sets the status, optionally overriding the paid
// amount. The override bypasses the advance computation and is audited as an
// ADJUSTMENT entry.
func (s *Service) UpdatePaymentStatus(ctx context.Context, billID uuid.UUID, status enums.PaymentStatus, paidAmount *decimal.Decimal, actorID uuid.UUID) (*models.Bill, error) {
	if !status.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown payment status")
	}
	if paidAmount != nil && paidAmount.IsNegative() {
		return nil, apperrors.New(apperrors.CodeInvalidPayment, "paid amount must not be negative")
	}

	bill, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	expected := bill.Version
	previousPaid := bill.PaidAmount
	bill.PaymentStatus = status
	if paidAmount != nil {
		bill.PaidAmount = paidAmount.Round(s.cfg.MoneyScale)
	}
	if status == enums.PaymentStatusPaid && bill.PaymentDate == nil {
		now := s.now()
		bill.PaymentDate = &now
	}
	bill.UpdatedBy = actorID

	if err := s.persistVersioned(ctx, bill, expected); err != nil {
		return nil, err
	}

	if paidAmount != nil {
		s.appendHistory(ctx, &models.PaymentHistory{
			BillID:             bill.ID,
			BillNumber:         bill.BillNumber,
			Amount:             *paidAmount,
			PaymentType:        enums.PaymentTypeAdjustment,
			PreviousPaidAmount: previousPaid,
			PaidAmountAfter:    bill.PaidAmount,
			BillNetAmount:      bill.NetAmount,
			StatusAfter:        bill.PaymentStatus,
			Note:               "manual status override",
			RecordedBy:         actorID,
		})
	}
	return bill, nil
}

// History lists every audit entry for the bill, newest first.
func (s *Service) History(ctx context.Context, billID uuid.UUID) ([]models.PaymentHistory, error) {
	if _, err := s.loadBill(ctx, billID); err != nil {
		return nil, err
	}
	rows, err := s.history.ListByBill(ctx, billID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading payment history")
	}
	return rows, nil
}

func (s *Service) loadBill(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	bill, err := s.bills.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "bill not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading bill")
	}
	return bill, nil
}

func (s *Service) persistVersioned(ctx context.Context, bill *models.Bill, expectedVersion int64) error {
	bill.Version = expectedVersion + 1
	err := s.bills.UpdateVersioned(ctx, bill, expectedVersion)
	if err == nil {
		return nil
	}
	bill.Version = expectedVersion
	if errors.Is(err, bills.ErrVersionConflict) {
		return apperrors.New(apperrors.CodeConflict, "bill was modified concurrently, reload and retry")
	}
	return apperrors.Wrap(apperrors.CodeInternal, err, "persisting payment")
}

// appendHistory writes the audit row outside the payment's own write path.
// Failures are logged and swallowed so a broken audit trail never blocks a
// payout.
func (s *Service) appendHistory(ctx context.Context, row *models.PaymentHistory) {
	if err := s.history.Append(ctx, row); err != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"bill_id":      row.BillID.String(),
			"payment_type": row.PaymentType,
		})
		s.logg.Error(logCtx, "appending payment history failed", err)
	}
}

func (s *Service) emitRecorded(ctx context.Context, bill *models.Bill, input RecordPaymentInput) {
	if s.outbox == nil {
		return
	}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregateBill,
			AggregateID:   bill.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID},
			Data: payloads.PaymentRecordedEvent{
				BillID:        bill.ID,
				BillNumber:    bill.BillNumber,
				Amount:        input.Amount,
				PaymentType:   enums.PaymentTypePayment,
				PaidAmount:    bill.PaidAmount,
				AdvanceAmount: bill.AdvanceAmount,
				Status:        bill.PaymentStatus,
			},
		})
	})
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithBillNumber(ctx, bill.BillNumber), "queueing payment event failed", err)
	}
}

func (s *Service) emitMarkedPaid(ctx context.Context, bill *models.Bill, actorID uuid.UUID) {
	if s.outbox == nil {
		return
	}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBillMarkedPaid,
			AggregateType: enums.AggregateBill,
			AggregateID:   bill.ID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data: payloads.BillMarkedPaidEvent{
				BillID:     bill.ID,
				BillNumber: bill.BillNumber,
				PaidAmount: bill.PaidAmount,
				PaidAt:     *bill.PaymentDate,
			},
		})
	})
	if err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithBillNumber(ctx, bill.BillNumber), "queueing settlement event failed", err)
	}
}

func (s *Service) deriveAdvance(paid, net decimal.Decimal) decimal.Decimal {
	if !s.cfg.TrackOverpayment {
		return decimal.Zero
	}
	surplus := paid.Sub(net)
	if surplus.IsNegative() {
		return decimal.Zero
	}
	return surplus
}

func deriveStatus(paid, net decimal.Decimal) enums.PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(net):
		return enums.PaymentStatusPaid
	case paid.GreaterThan(decimal.Zero):
		return enums.PaymentStatusPartial
	default:
		return enums.PaymentStatusUnpaid
	}
}
