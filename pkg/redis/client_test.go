package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestAdvisoryLock(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	got, err := client.AcquireLock(ctx, "payment-reminders", "worker-1", time.Hour)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !got {
		t.Fatalf("expected first acquire to win")
	}

	got, err = client.AcquireLock(ctx, "payment-reminders", "worker-2", time.Hour)
	if err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}
	if got {
		t.Fatalf("expected second acquire to lose while lock held")
	}

	if err := client.ReleaseLock(ctx, "payment-reminders"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	got, err = client.AcquireLock(ctx, "payment-reminders", "worker-2", time.Hour)
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	if !got {
		t.Fatalf("expected acquire to succeed after release")
	}
}

func TestIdempotencyRoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.IdempotencyKey("payments", "req-1")
	set, err := client.SetNX(ctx, key, "record", time.Hour)
	if err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	if !set {
		t.Fatalf("expected first write to claim the key")
	}

	set, err = client.SetNX(ctx, key, "other", time.Hour)
	if err != nil {
		t.Fatalf("second setnx failed: %v", err)
	}
	if set {
		t.Fatalf("expected duplicate write to lose")
	}

	got, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != "record" {
		t.Fatalf("expected first value to survive, got %q", got)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("payments", "id"); got != "bb:idempotency:payments:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.LockKey("payment-reminders"); got != "bb:lock:payment-reminders" {
		t.Fatalf("unexpected lock key %s", got)
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
