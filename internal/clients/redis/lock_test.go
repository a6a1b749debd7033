package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

func TestLockIsExclusive(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb, err := NewClient(logger.Nop(), Config{Addr: addr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer rdb.Close()

	ctx := context.Background()
	key := "hearth:test:lock:" + uuid.NewString()
	a := NewLock(rdb, key, time.Minute)
	b := NewLock(rdb, key, time.Minute)

	if ok, err := a.TryAcquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, err := b.TryAcquire(ctx); err != nil || ok {
		t.Fatalf("second acquire: want=false got ok=%v err=%v", ok, err)
	}
	if err := b.Release(ctx); err != nil {
		t.Fatalf("foreign release: %v", err)
	}
	if ok, _ := b.TryAcquire(ctx); ok {
		t.Fatalf("foreign release must not free the lock")
	}
	if err := a.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, err := b.TryAcquire(ctx); err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
	_ = b.Release(ctx)
}

func TestConfigEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Fatalf("empty config should be disabled")
	}
	if !(Config{Addr: "localhost:6379"}).Enabled() {
		t.Fatalf("config with addr should be enabled")
	}
}
