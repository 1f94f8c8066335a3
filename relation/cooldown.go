package relation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown blocks re-pairing two users for a while after they unbind.
// The mark is keyed by the unordered pair.
type Cooldown struct {
	rdb     redis.Cmdable
	timeout time.Duration
}

func NewCooldown(rdb redis.Cmdable, timeout time.Duration) *Cooldown {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Cooldown{rdb: rdb, timeout: timeout}
}

func cooldownKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("unbind:cooldown:%d:%d", a, b)
}

// Set opens a cooldown for the pair lasting ttl.
func (c *Cooldown) Set(ctx context.Context, a, b uint, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.rdb.Set(ctx, cooldownKey(a, b), "1", ttl).Err(); err != nil {
		return fmt.Errorf("set cooldown: %w", err)
	}
	return nil
}

// Clear drops the pair's cooldown.
func (c *Cooldown) Clear(ctx context.Context, a, b uint) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.rdb.Del(ctx, cooldownKey(a, b)).Err(); err != nil {
		return fmt.Errorf("clear cooldown: %w", err)
	}
	return nil
}

// Remaining returns how long the pair stays blocked; zero when it is free.
func (c *Cooldown) Remaining(ctx context.Context, a, b uint) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	d, err := c.rdb.PTTL(ctx, cooldownKey(a, b)).Result()
	if err != nil {
		return 0, fmt.Errorf("read cooldown: %w", err)
	}
	if d <= 0 {
		return 0, nil
	}
	return d, nil
}
