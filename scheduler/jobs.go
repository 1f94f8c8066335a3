package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// UnbindDriver finalizes due unbinds and repairs the delay queue.
type UnbindDriver interface {
	PollDue(ctx context.Context) (int, error)
	Reconcile(ctx context.Context) (int, error)
}

// Intervals configures how often each job runs.
type Intervals struct {
	Reminder  time.Duration
	Unbind    time.Duration
	Reconcile time.Duration
	Timeout   time.Duration
}

// UnbindScanner adapts an UnbindDriver to scheduler jobs.
type UnbindScanner struct {
	driver UnbindDriver
	log    *zap.Logger
}

func NewUnbindScanner(driver UnbindDriver, log *zap.Logger) *UnbindScanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &UnbindScanner{driver: driver, log: log}
}

func (u *UnbindScanner) Scan(ctx context.Context) error {
	n, err := u.driver.PollDue(ctx)
	if n > 0 {
		u.log.Info("unbinds finalized", zap.Int("count", n))
	}
	return err
}

func (u *UnbindScanner) Reconcile(ctx context.Context) error {
	n, err := u.driver.Reconcile(ctx)
	if n > 0 {
		u.log.Warn("unbind queue entries restored", zap.Int("count", n))
	}
	return err
}

// Register installs the reminder, unbind and reconcile jobs. A nil reminder or scanner is skipped.
func Register(s *Scheduler, r *Reminder, u *UnbindScanner, iv Intervals) error {
	if r != nil {
		if _, err := s.Every("reminder", iv.Reminder, iv.Timeout, r.Run); err != nil {
			return err
		}
	}
	if u != nil {
		if _, err := s.Every("unbind-scan", iv.Unbind, iv.Timeout, u.Scan); err != nil {
			return err
		}
		if _, err := s.Every("unbind-reconcile", iv.Reconcile, iv.Timeout, u.Reconcile); err != nil {
			return err
		}
	}
	return nil
}
