package bills

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bananabill/backend/pkg/db/models"
	"github.com/bananabill/backend/pkg/enums"
	"github.com/bananabill/backend/pkg/pagination"
	apperrors "github.com/bananabill/backend/pkg/errors"
)

type fakeRepository struct {
	mu    sync.Mutex
	bills map[uuid.UUID]*models.Bill

	createFn          func(ctx context.Context, bill *models.Bill) error
	updateVersionedFn func(ctx context.Context, bill *models.Bill, expectedVersion int64) error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{bills: make(map[uuid.UUID]*models.Bill)}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, bill *models.Bill) error {
	if f.createFn != nil {
		return f.createFn(ctx, bill)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *bill
	f.bills[bill.ID] = &copied
	return nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bill, ok := f.bills[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *bill
	return &copied, nil
}

func (f *fakeRepository) GetByNumber(ctx context.Context, number string) (*models.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, bill := range f.bills {
		if bill.BillNumber == number {
			copied := *bill
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpdateVersioned(ctx context.Context, bill *models.Bill, expectedVersion int64) error {
	if f.updateVersionedFn != nil {
		return f.updateVersionedFn(ctx, bill, expectedVersion)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.bills[bill.ID]
	if !ok || stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	copied := *bill
	f.bills[bill.ID] = &copied
	return nil
}

func (f *fakeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bills[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.bills, id)
	return nil
}

func (f *fakeRepository) ListByFarmer(ctx context.Context, farmerID uuid.UUID, limit int) ([]models.Bill, error) {
	return nil, nil
}
func (f *fakeRepository) ListUnpaid(ctx context.Context, limit int) ([]models.Bill, error) {
	return nil, nil
}
func (f *fakeRepository) ListOverdue(ctx context.Context, dueBefore, reminderBefore time.Time, limit int) ([]models.Bill, error) {
	return nil, nil
}
func (f *fakeRepository) ListRecent(ctx context.Context, limit int) ([]models.Bill, error) {
	return nil, nil
}
func (f *fakeRepository) ListPage(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Bill, error) {
	return nil, nil
}
func (f *fakeRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Bill, error) {
	return nil, nil
}
func (f *fakeRepository) Search(ctx context.Context, filters SearchFilters) ([]models.Bill, error) {
	return nil, nil
}
func (f *fakeRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}
func (f *fakeRepository) CountUnpaid(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeRepository) TotalUnpaidAmount(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeRepository) FarmerTotals(ctx context.Context, farmerID uuid.UUID) (*FarmerTotals, error) {
	return &FarmerTotals{}, nil
}

type fakeFarmers struct {
	farmers map[uuid.UUID]*models.Farmer
}

func (f *fakeFarmers) Resolve(ctx context.Context, id uuid.UUID) (*models.Farmer, error) {
	farmer, ok := f.farmers[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "farmer not found")
	}
	return farmer, nil
}

type fakeNumberer struct {
	mu   sync.Mutex
	next int
}

func (f *fakeNumberer) BillNumber(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("BB2601%05d", f.next), nil
}

func noTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func testService(t *testing.T, repo Repository, farmerID uuid.UUID) *Service {
	t.Helper()
	farmer := &models.Farmer{ID: farmerID, Name: "Suresh Patil", Mobile: "9876543210"}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Farmers:  &fakeFarmers{farmers: map[uuid.UUID]*models.Farmer{farmerID: farmer}},
		Numberer: &fakeNumberer{},
		Calc:     NewCalculator(defaultBillingConfig()),
		Tx:       noTx,
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

func baseCreateInput(farmerID uuid.UUID) CreateBillInput {
	return CreateBillInput{
		FarmerID:    farmerID,
		GrossWeight: dec("100.00"),
		PattiWeight: dec("5.00"),
		BoxCount:    10,
		TutWastage:  dec("2.00"),
		RatePerKg:   dec("50.00"),
		Majuri:      dec("500.00"),
		ActorID:     uuid.New(),
	}
}

func TestServiceCreate(t *testing.T) {
	repo := newFakeRepository()
	farmerID := uuid.New()
	svc := testService(t, repo, farmerID)

	bill, err := svc.Create(context.Background(), baseCreateInput(farmerID))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if bill.Version != 0 {
		t.Errorf("new bill starts at version 0, got %d", bill.Version)
	}
	if bill.PaymentStatus != enums.PaymentStatusUnpaid {
		t.Errorf("new bill starts UNPAID, got %s", bill.PaymentStatus)
	}
	if !bill.PaidAmount.IsZero() {
		t.Errorf("new bill starts with zero paid, got %s", bill.PaidAmount)
	}
	if !bill.NetAmount.Equal(dec("4147.50")) {
		t.Errorf("unexpected net amount %s", bill.NetAmount)
	}
	if bill.FarmerName != "Suresh Patil" || bill.FarmerMobile != "9876543210" {
		t.Errorf("farmer snapshot not denormalized: %q %q", bill.FarmerName, bill.FarmerMobile)
	}
	if bill.BillNumber == "" {
		t.Errorf("bill number missing")
	}
}

func TestServiceCreateUnknownFarmer(t *testing.T) {
	repo := newFakeRepository()
	svc := testService(t, repo, uuid.New())

	input := baseCreateInput(uuid.New())
	_, err := svc.Create(context.Background(), input)
	if err == nil {
		t.Fatalf("expected farmer resolution to fail")
	}
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestServiceUpdateRecalculatesAndBumpsVersion(t *testing.T) {
	repo := newFakeRepository()
	farmerID := uuid.New()
	svc := testService(t, repo, farmerID)

	bill, err := svc.Create(context.Background(), baseCreateInput(farmerID))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	updated, err := svc.Update(context.Background(), bill.ID, UpdateBillInput{
		FarmerID:        farmerID,
		GrossWeight:     dec("200.00"),
		PattiWeight:     dec("5.00"),
		BoxCount:        10,
		TutWastage:      dec("2.00"),
		RatePerKg:       dec("50.00"),
		Majuri:          dec("500.00"),
		ExpectedVersion: 0,
		ActorID:         uuid.New(),
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.Version != 1 {
		t.Errorf("expected version bump to 1, got %d", updated.Version)
	}
	if !updated.BaseNetWeight.Equal(dec("185.00")) {
		t.Errorf("expected recalculated base net 185.00, got %s", updated.BaseNetWeight)
	}
	if updated.BillNumber != bill.BillNumber {
		t.Errorf("bill number must survive updates")
	}
}

func TestServiceUpdateStaleVersionConflicts(t *testing.T) {
	repo := newFakeRepository()
	farmerID := uuid.New()
	svc := testService(t, repo, farmerID)

	bill, err := svc.Create(context.Background(), baseCreateInput(farmerID))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	update := func(expected int64) error {
		_, err := svc.Update(context.Background(), bill.ID, UpdateBillInput{
			FarmerID:        farmerID,
			GrossWeight:     dec("150.00"),
			PattiWeight:     dec("5.00"),
			BoxCount:        10,
			TutWastage:      dec("2.00"),
			RatePerKg:       dec("50.00"),
			Majuri:          dec("500.00"),
			ExpectedVersion: expected,
		})
		return err
	}

	if err := update(0); err != nil {
		t.Fatalf("first update should win: %v", err)
	}
	err = update(0)
	if err == nil {
		t.Fatalf("second update with stale version must fail")
	}
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("expected CONFLICT, got %v", err)
	}
}

func TestServiceSetDueDateAndReminderStamp(t *testing.T) {
	repo := newFakeRepository()
	farmerID := uuid.New()
	svc := testService(t, repo, farmerID)

	bill, err := svc.Create(context.Background(), baseCreateInput(farmerID))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	due := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	withDue, err := svc.SetDueDate(context.Background(), bill.ID, due)
	if err != nil {
		t.Fatalf("SetDueDate error: %v", err)
	}
	if withDue.DueDate == nil || !withDue.DueDate.Equal(due) {
		t.Errorf("due date not stamped")
	}
	if withDue.Version != 1 {
		t.Errorf("due date write must bump version, got %d", withDue.Version)
	}

	stamped, err := svc.StampReminderSent(context.Background(), bill.ID)
	if err != nil {
		t.Fatalf("StampReminderSent error: %v", err)
	}
	if stamped.LastReminderSent == nil {
		t.Errorf("reminder stamp missing")
	}
	if stamped.Version != 2 {
		t.Errorf("reminder write must bump version, got %d", stamped.Version)
	}
}

func TestServiceDelete(t *testing.T) {
	repo := newFakeRepository()
	farmerID := uuid.New()
	svc := testService(t, repo, farmerID)

	bill, err := svc.Create(context.Background(), baseCreateInput(farmerID))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := svc.Delete(context.Background(), bill.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	err = svc.Delete(context.Background(), bill.ID)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND on double delete, got %v", err)
	}
}

func TestServiceConcurrentUpdatesOneWinner(t *testing.T) {
	repo := newFakeRepository()
	farmerID := uuid.New()
	svc := testService(t, repo, farmerID)

	bill, err := svc.Create(context.Background(), baseCreateInput(farmerID))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Update(context.Background(), bill.ID, UpdateBillInput{
				FarmerID:        farmerID,
				GrossWeight:     dec("120.00"),
				PattiWeight:     dec("5.00"),
				BoxCount:        10,
				TutWastage:      dec("2.00"),
				RatePerKg:       dec("50.00"),
				Majuri:          dec("500.00"),
				ExpectedVersion: 0,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else if !apperrors.HasCode(err, apperrors.CodeConflict) {
			t.Errorf("loser must see CONFLICT, got %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("exactly one update may win, got %d", winners)
	}
}
