package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bananabill/backend/pkg/config"
	"github.com/bananabill/backend/pkg/db/models"
	"github.com/bananabill/backend/pkg/enums"
	"github.com/bananabill/backend/pkg/outbox"
)

type fakeBillSource struct {
	overdue    []models.Bill
	listErr    error
	stamped    []uuid.UUID
	stampErrOn map[uuid.UUID]error
}

func (f *fakeBillSource) ListOverdue(ctx context.Context, reminderBefore time.Time, limit int) ([]models.Bill, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.overdue, nil
}

func (f *fakeBillSource) StampReminderSent(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	if err := f.stampErrOn[id]; err != nil {
		return nil, err
	}
	f.stamped = append(f.stamped, id)
	return &models.Bill{ID: id}, nil
}

type fakeEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeLocker struct {
	acquired bool
	denied   bool
	err      error
	released bool
}

func (f *fakeLocker) AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.denied {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLocker) ReleaseLock(ctx context.Context, name string) error {
	f.released = true
	return nil
}

func noTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func overdueBill(net, paid string) models.Bill {
	due := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	return models.Bill{
		ID:            uuid.New(),
		BillNumber:    "BB251200042",
		FarmerID:      uuid.New(),
		FarmerName:    "Ganesh Jadhav",
		FarmerMobile:  "9822001100",
		NetAmount:     decimal.RequireFromString(net),
		PaidAmount:    decimal.RequireFromString(paid),
		PaymentStatus: enums.PaymentStatusPartial,
		DueDate:       &due,
	}
}

func testJob(t *testing.T, source *fakeBillSource, emitter *fakeEmitter, locker *fakeLocker) *Job {
	t.Helper()
	job, err := NewJob(JobParams{
		Bills:   source,
		Emitter: emitter,
		Locker:  locker,
		Tx:      noTx,
		Config: config.ReminderConfig{
			LockTTL:        23 * time.Hour,
			RepeatInterval: 72 * time.Hour,
			BatchLimit:     500,
		},
	})
	if err != nil {
		t.Fatalf("building job: %v", err)
	}
	return job
}

func TestRunEmitsReminderAndStamps(t *testing.T) {
	bill := overdueBill("5000.00", "1000.00")
	source := &fakeBillSource{overdue: []models.Bill{bill}}
	emitter := &fakeEmitter{}
	locker := &fakeLocker{}
	job := testJob(t, source, emitter, locker)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 reminder event, got %d", len(emitter.events))
	}
	event := emitter.events[0]
	if event.EventType != enums.EventPaymentReminderRequested {
		t.Errorf("unexpected event type %s", event.EventType)
	}
	if event.AggregateID != bill.ID {
		t.Errorf("event not tied to bill")
	}
	if len(source.stamped) != 1 || source.stamped[0] != bill.ID {
		t.Errorf("reminder stamp missing")
	}
	if locker.released {
		t.Errorf("lock must be left to expire, not released")
	}
}

func TestRunSkipsWhenLockHeldElsewhere(t *testing.T) {
	source := &fakeBillSource{overdue: []models.Bill{overdueBill("5000.00", "0")}}
	emitter := &fakeEmitter{}
	job := testJob(t, source, emitter, &fakeLocker{denied: true})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(emitter.events) != 0 {
		t.Errorf("no events expected when lock is held elsewhere")
	}
}

func TestRunLockErrorFails(t *testing.T) {
	job := testJob(t, &fakeBillSource{}, &fakeEmitter{}, &fakeLocker{err: errors.New("redis down")})
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected lock error to surface")
	}
}

func TestRunContinuesPastPerBillFailures(t *testing.T) {
	good := overdueBill("5000.00", "0")
	bad := overdueBill("3000.00", "0")
	source := &fakeBillSource{
		overdue:    []models.Bill{bad, good},
		stampErrOn: map[uuid.UUID]error{bad.ID: errors.New("stamp conflict")},
	}
	emitter := &fakeEmitter{}
	job := testJob(t, source, emitter, &fakeLocker{})

	err := job.Run(context.Background())
	if err == nil {
		t.Fatalf("first failure must surface after the batch")
	}
	if len(source.stamped) != 1 || source.stamped[0] != good.ID {
		t.Errorf("remaining bills must still be processed")
	}
}
