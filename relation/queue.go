package relation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the sorted set holding pending unbind finalizations.
const DefaultQueueKey = "unbind:queue"

// popDueScript removes and returns up to ARGV[2] members scored at or below ARGV[1].
var popDueScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
if #ids > 0 then
  redis.call('ZREM', KEYS[1], unpack(ids))
end
return ids
`)

// DelayQueue orders relation ids by the instant their unbind becomes final.
// Scores are Unix milliseconds.
type DelayQueue struct {
	rdb     redis.Cmdable
	key     string
	timeout time.Duration
}

func NewDelayQueue(rdb redis.Cmdable, key string, timeout time.Duration) *DelayQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &DelayQueue{rdb: rdb, key: key, timeout: timeout}
}

func member(id uint) string { return strconv.FormatUint(uint64(id), 10) }

// Add schedules id at due, replacing any earlier schedule.
func (q *DelayQueue) Add(ctx context.Context, id uint, due time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	err := q.rdb.ZAdd(ctx, q.key, redis.Z{Score: float64(due.UnixMilli()), Member: member(id)}).Err()
	if err != nil {
		return fmt.Errorf("enqueue relation %d: %w", id, err)
	}
	return nil
}

// AddIfAbsent schedules id only when it is not queued. It reports whether it was added.
func (q *DelayQueue) AddIfAbsent(ctx context.Context, id uint, due time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	n, err := q.rdb.ZAddNX(ctx, q.key, redis.Z{Score: float64(due.UnixMilli()), Member: member(id)}).Result()
	if err != nil {
		return false, fmt.Errorf("enqueue relation %d: %w", id, err)
	}
	return n == 1, nil
}

// Remove drops id from the queue. Removing an absent id is not an error.
func (q *DelayQueue) Remove(ctx context.Context, id uint) error {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	if err := q.rdb.ZRem(ctx, q.key, member(id)).Err(); err != nil {
		return fmt.Errorf("dequeue relation %d: %w", id, err)
	}
	return nil
}

// PopDue atomically removes and returns up to limit ids due at or before now.
// Concurrent pollers never receive the same id.
func (q *DelayQueue) PopDue(ctx context.Context, now time.Time, limit int) ([]uint, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	raw, err := popDueScript.Run(ctx, q.rdb, []string{q.key}, now.UnixMilli(), limit).StringSlice()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pop due relations: %w", err)
	}
	ids := make([]uint, 0, len(raw))
	for _, s := range raw {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(n))
	}
	return ids, nil
}

// Due returns the scheduled instant of id, if queued.
func (q *DelayQueue) Due(ctx context.Context, id uint) (time.Time, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	score, err := q.rdb.ZScore(ctx, q.key, member(id)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read schedule of relation %d: %w", id, err)
	}
	return time.UnixMilli(int64(score)), true, nil
}

// Len reports how many finalizations are pending.
func (q *DelayQueue) Len(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	n, err := q.rdb.ZCard(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}
