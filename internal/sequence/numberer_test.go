package sequence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/bananabill/backend/pkg/errors"
)

type fakeStore struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]int64)}
}

func (f *fakeStore) Next(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.values[key]++
	return f.values[key], nil
}

func (f *fakeStore) Current(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key], nil
}

func (f *fakeStore) Reset(_ context.Context, key string, value int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestBillNumberSequential(t *testing.T) {
	jan := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)
	n, err := NewNumberer(NumbererParams{Store: newFakeStore(), Now: fixedClock(jan)})
	require.NoError(t, err)

	ctx := context.Background()
	for i, want := range []string{"BB260100001", "BB260100002", "BB260100003"} {
		got, err := n.BillNumber(ctx)
		require.NoError(t, err, "draw %d", i)
		require.Equal(t, want, got)
	}
}

func TestBillNumberPeriodRollsOver(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	dec := time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC)
	n, err := NewNumberer(NumbererParams{Store: store, Now: fixedClock(dec)})
	require.NoError(t, err)
	got, err := n.BillNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, "BB251200001", got)

	jan := dec.Add(2 * time.Hour)
	n, err = NewNumberer(NumbererParams{Store: store, Now: fixedClock(jan)})
	require.NoError(t, err)
	got, err = n.BillNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, "BB260100001", got, "new month restarts at 1")
}

func TestBillNumberExhaustion(t *testing.T) {
	store := newFakeStore()
	jan := time.Date(2026, time.January, 2, 9, 0, 0, 0, time.UTC)
	store.values[PeriodKey(jan)] = 99998

	n, err := NewNumberer(NumbererParams{Store: store, Now: fixedClock(jan)})
	require.NoError(t, err)

	ctx := context.Background()
	got, err := n.BillNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, "BB260199999", got)

	_, err = n.BillNumber(ctx)
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeSequenceExhausted))

	// Still exhausted on the next draw.
	_, err = n.BillNumber(ctx)
	require.True(t, apperrors.HasCode(err, apperrors.CodeSequenceExhausted))
}

func TestBillNumberConcurrentDrawsAreUnique(t *testing.T) {
	jan := time.Date(2026, time.January, 20, 14, 0, 0, 0, time.UTC)
	n, err := NewNumberer(NumbererParams{Store: newFakeStore(), Now: fixedClock(jan)})
	require.NoError(t, err)

	const draws = 200
	results := make(chan string, draws)
	var wg sync.WaitGroup
	for i := 0; i < draws; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := n.BillNumber(context.Background())
			if err != nil {
				t.Errorf("draw failed: %v", err)
				return
			}
			results <- got
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]struct{}, draws)
	for number := range results {
		if _, dup := seen[number]; dup {
			t.Fatalf("duplicate bill number %s", number)
		}
		seen[number] = struct{}{}
	}
	require.Len(t, seen, draws)
}
