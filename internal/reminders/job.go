package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bananabill/backend/internal/bills"
	"github.com/bananabill/backend/pkg/config"
	"github.com/bananabill/backend/pkg/db/models"
	"github.com/bananabill/backend/pkg/enums"
	"github.com/bananabill/backend/pkg/logger"
	"github.com/bananabill/backend/pkg/metrics"
	"github.com/bananabill/backend/pkg/outbox"
	"github.com/bananabill/backend/pkg/outbox/payloads"
	"github.com/bananabill/backend/pkg/redis"
)

const jobName = "payment-reminders"

// BillSource exposes the bill operations the reminder job needs.
type BillSource interface {
	ListOverdue(ctx context.Context, reminderBefore time.Time, limit int) ([]models.Bill, error)
	StampReminderSent(ctx context.Context, id uuid.UUID) (*models.Bill, error)
}

// ReminderEmitter queues reminder events, deduplicating per bill.
type ReminderEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// JobParams groups dependencies for the reminder job.
type JobParams struct {
	Bills   BillSource
	Emitter ReminderEmitter
	Locker  redis.Locker
	Tx      bills.TxRunner
	Metrics *metrics.JobMetrics
	Config  config.ReminderConfig
	Logger  *logger.Logger
	Now     func() time.Time
}

// Job walks overdue bills and queues one payout reminder per bill.
type Job struct {
	bills   BillSource
	emitter ReminderEmitter
	locker  redis.Locker
	tx      bills.TxRunner
	metrics *metrics.JobMetrics
	cfg     config.ReminderConfig
	logg    *logger.Logger
	now     func() time.Time
	owner   string
}

// NewJob builds a reminder job.
func NewJob(params JobParams) (*Job, error) {
	if params.Bills == nil {
		return nil, errors.New("bill source is required")
	}
	if params.Emitter == nil {
		return nil, errors.New("emitter is required")
	}
	if params.Locker == nil {
		return nil, errors.New("locker is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Job{
		bills:   params.Bills,
		emitter: params.Emitter,
		locker:  params.Locker,
		tx:      params.Tx,
		metrics: params.Metrics,
		cfg:     params.Config,
		logg:    params.Logger,
		now:     params.Now,
		owner:   uuid.NewString(),
	}, nil
}

// Run takes the daily advisory lock and processes the overdue batch. The
// lock is left to expire on its own so the job runs at most once per TTL
// window across all instances.
func (j *Job) Run(ctx context.Context) error {
	start := j.now()

	got, err := j.locker.AcquireLock(ctx, jobName, j.owner, j.cfg.LockTTL)
	if err != nil {
		j.metrics.IncFailure(jobName)
		return err
	}
	if !got {
		if j.logg != nil {
			j.logg.Info(ctx, "reminder lock held elsewhere, skipping run")
		}
		return nil
	}

	processed, err := j.processBatch(ctx)
	j.metrics.ObserveDuration(jobName, j.now().Sub(start))
	j.metrics.AddProcessed(jobName, processed)
	if err != nil {
		j.metrics.IncFailure(jobName)
		return err
	}
	j.metrics.IncSuccess(jobName)

	if j.logg != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{"reminders": processed})
		j.logg.Info(logCtx, "reminder run finished")
	}
	return nil
}

func (j *Job) processBatch(ctx context.Context) (int, error) {
	reminderBefore := j.now().Add(-j.cfg.RepeatInterval)
	overdue, err := j.bills.ListOverdue(ctx, reminderBefore, j.cfg.BatchLimit)
	if err != nil {
		return 0, err
	}

	processed := 0
	var firstErr error
	for _, bill := range overdue {
		if err := j.remind(ctx, bill); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if j.logg != nil {
				j.logg.Error(j.logg.WithBillNumber(ctx, bill.BillNumber), "queueing reminder failed", err)
			}
			continue
		}
		processed++
	}
	return processed, firstErr
}

func (j *Job) remind(ctx context.Context, bill models.Bill) error {
	outstanding := bill.NetAmount.Sub(bill.PaidAmount)
	err := j.tx(ctx, func(tx *gorm.DB) error {
		return j.emitter.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentReminderRequested,
			AggregateType: enums.AggregateBill,
			AggregateID:   bill.ID,
			Data: payloads.PaymentReminderEvent{
				BillID:       bill.ID,
				BillNumber:   bill.BillNumber,
				FarmerID:     bill.FarmerID,
				FarmerName:   bill.FarmerName,
				FarmerMobile: bill.FarmerMobile,
				Outstanding:  outstanding,
				DueDate:      bill.DueDate,
			},
		})
	})
	if err != nil {
		return err
	}
	_, err = j.bills.StampReminderSent(ctx, bill.ID)
	return err
}
