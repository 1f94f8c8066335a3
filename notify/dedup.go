// Package notify decides which notifications go out and makes sure each
// (task, date, kind) triple is dispatched at most once.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cppla/careping/models"
)

// DefaultMarkerTTL covers one full day plus clock skew.
const DefaultMarkerTTL = 25 * time.Hour

// Key identifies one notification slot.
type Key struct {
	TaskID uint
	Date   string // YYYY-MM-DD
	Kind   models.NotifyKind
}

func (k Key) marker() string {
	return fmt.Sprintf("notify:%d:%s:%s", k.TaskID, k.Date, k.Kind)
}

// LogStore is the durable notification log.
type LogStore interface {
	Exists(ctx context.Context, taskID uint, date string, kind models.NotifyKind) (bool, error)
	Insert(ctx context.Context, entry *models.NotificationLog) error
}

// Dedup is the idempotency gate: a Redis marker for the fast path and the durable log
// as the record of truth when Redis has lost its data.
type Dedup struct {
	rdb     redis.Cmdable
	logs    LogStore
	ttl     time.Duration
	timeout time.Duration
	log     *zap.Logger
}

// NewDedup builds a gate. Zero ttl or timeout fall back to DefaultMarkerTTL and two seconds.
func NewDedup(rdb redis.Cmdable, logs LogStore, ttl, timeout time.Duration, log *zap.Logger) *Dedup {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Dedup{rdb: rdb, logs: logs, ttl: ttl, timeout: timeout, log: log}
}

// TryAcquire claims k. It returns true for exactly one caller per triple; every other
// caller, concurrent or later, gets false. Store errors return false so a failing
// store never causes a duplicate.
func (d *Dedup) TryAcquire(ctx context.Context, k Key) (bool, error) {
	key := k.marker()

	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	n, err := d.rdb.Exists(cctx, key).Result()
	cancel()
	if err != nil {
		return false, fmt.Errorf("check marker %s: %w", key, err)
	}
	if n > 0 {
		return false, nil
	}

	logged, err := d.logs.Exists(ctx, k.TaskID, k.Date, k.Kind)
	if err != nil {
		return false, err
	}
	if logged {
		// marker lost, heal it so the next poll stays on the fast path
		cctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.rdb.Set(cctx, key, "1", d.ttl).Err()
		cancel()
		if err != nil {
			d.log.Warn("marker backfill failed", zap.String("key", key), zap.Error(err))
		}
		return false, nil
	}

	cctx, cancel = context.WithTimeout(ctx, d.timeout)
	defer cancel()
	ok, err := d.rdb.SetNX(cctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim marker %s: %w", key, err)
	}
	return ok, nil
}

// Marked reports whether a marker is currently set for k.
func (d *Dedup) Marked(ctx context.Context, k Key) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	n, err := d.rdb.Exists(ctx, k.marker()).Result()
	if err != nil {
		return false, fmt.Errorf("check marker: %w", err)
	}
	return n > 0, nil
}
