package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/bananabill/backend/pkg/errors"
)

const (
	// BillPrefix starts every bill number.
	BillPrefix = "BB"
	// periodLayout renders the two-digit year and month, e.g. "2601".
	periodLayout = "0601"
)

// Numberer issues formatted bill numbers, one counter per calendar month.
type Numberer struct {
	store       Store
	maxPerMonth int64
	now         func() time.Time
}

// NumbererParams groups dependencies for the bill numberer.
type NumbererParams struct {
	Store       Store
	MaxPerMonth int64
	Now         func() time.Time
}

// NewNumberer builds a bill numberer.
func NewNumberer(params NumbererParams) (*Numberer, error) {
	if params.Store == nil {
		return nil, errors.New("sequence store is required")
	}
	if params.MaxPerMonth <= 0 {
		params.MaxPerMonth = 99999
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Numberer{
		store:       params.Store,
		maxPerMonth: params.MaxPerMonth,
		now:         params.Now,
	}, nil
}

// PeriodKey returns the counter key for the month containing t.
func PeriodKey(t time.Time) string {
	return "bill_" + t.Format(periodLayout)
}

// Period renders the YYMM fragment embedded in bill numbers.
func Period(t time.Time) string {
	return t.Format(periodLayout)
}

// BillNumber draws the next number for the current month and renders it as
// prefix, period and a zero-padded five digit sequence, e.g. "BB260100042".
// Once the monthly ceiling is crossed every further call fails until the
// period rolls over.
func (n *Numberer) BillNumber(ctx context.Context) (string, error) {
	now := n.now()
	period := Period(now)
	value, err := n.store.Next(ctx, PeriodKey(now))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeDependency, err, "drawing bill sequence")
	}
	if value > n.maxPerMonth {
		return "", apperrors.New(
			apperrors.CodeSequenceExhausted,
			fmt.Sprintf("bill numbers exhausted for period %s", period),
		)
	}
	return fmt.Sprintf("%s%s%05d", BillPrefix, period, value), nil
}
