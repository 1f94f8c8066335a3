package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/cppla/careping/clock"
	"github.com/cppla/careping/models"
	"github.com/cppla/careping/notify"
	"github.com/cppla/careping/occurrence"
)

// TaskSource streams every enabled task.
type TaskSource interface {
	ListAllEnabled(ctx context.Context, batchSize int, fn func([]models.Task) error) error
}

// RecordLookup tells whether an occurrence already has a check-in.
type RecordLookup interface {
	Exists(ctx context.Context, userID, taskID uint, date string) (bool, error)
}

// Dispatcher sends deduplicated notices.
type Dispatcher interface {
	Dispatch(ctx context.Context, n notify.Notice) (bool, error)
}

// Gate answers whether a notice slot was already used, so polls can skip settled occurrences cheaply.
type Gate interface {
	Marked(ctx context.Context, k notify.Key) (bool, error)
}

// Reminder sends REMIND when an occurrence's window opens and MISSED once it closes
// without a check-in.
type Reminder struct {
	tasks      TaskSource
	records    RecordLookup
	gate       Gate
	dispatcher Dispatcher
	users      notify.UserDirectory
	policy     occurrence.Policy
	clock      clock.Clock
	batchSize  int
	log        *zap.Logger
}

func NewReminder(tasks TaskSource, records RecordLookup, gate Gate, dispatcher Dispatcher, users notify.UserDirectory, policy occurrence.Policy, clk clock.Clock, log *zap.Logger) *Reminder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reminder{
		tasks:      tasks,
		records:    records,
		gate:       gate,
		dispatcher: dispatcher,
		users:      users,
		policy:     policy,
		clock:      clk,
		batchSize:  200,
		log:        log,
	}
}

// PollResult counts what one poll sent.
type PollResult struct {
	Reminded int
	Missed   int
}

// Run polls at the current clock time.
func (r *Reminder) Run(ctx context.Context) error {
	_, err := r.Poll(ctx, r.clock.Now())
	return err
}

// Poll examines today's and yesterday's occurrences at now. Occurrences are independent:
// a failure on one is collected and the rest still run.
func (r *Reminder) Poll(ctx context.Context, now time.Time) (PollResult, error) {
	var res PollResult
	today := clock.DayStart(now)
	days := []time.Time{clock.AddDays(today, -1), today}

	var errs error
	err := r.tasks.ListAllEnabled(ctx, r.batchSize, func(batch []models.Task) error {
		for _, day := range days {
			for _, occ := range occurrence.Materialize(batch, day) {
				sent, kind, err := r.handle(ctx, occ, now)
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("task %d on %s: %w", occ.Task.ID, occ.DateKey(), err))
					continue
				}
				if !sent {
					continue
				}
				if kind == models.NotifyRemind {
					res.Reminded++
				} else {
					res.Missed++
				}
			}
		}
		return ctx.Err()
	})
	return res, multierr.Append(err, errs)
}

func (r *Reminder) handle(ctx context.Context, occ occurrence.Occurrence, now time.Time) (bool, models.NotifyKind, error) {
	if occ.Date.Before(clock.DayStart(occ.Task.CreatedAt.In(occ.Date.Location()))) {
		// occurrences before the task existed are never owed
		return false, "", nil
	}
	var kind models.NotifyKind
	var recipient uint
	switch {
	case r.policy.WindowOpen(occ.Target, now):
		kind, recipient = models.NotifyRemind, occ.Task.UserID
	case r.policy.Overdue(occ.Target, now):
		kind, recipient = models.NotifyMissed, occ.Task.CreatorID
	default:
		return false, "", nil
	}

	key := notify.Key{TaskID: occ.Task.ID, Date: occ.DateKey(), Kind: kind}
	marked, err := r.gate.Marked(ctx, key)
	if err != nil {
		return false, kind, err
	}
	if marked {
		return false, kind, nil
	}
	done, err := r.records.Exists(ctx, occ.Task.UserID, occ.Task.ID, occ.DateKey())
	if err != nil {
		return false, kind, err
	}
	if done {
		return false, kind, nil
	}

	n := notify.Notice{
		Kind:        kind,
		TaskID:      occ.Task.ID,
		Date:        occ.DateKey(),
		RecipientID: recipient,
		Subject:     occ.Task.Title,
		At:          occ.Target,
	}
	if kind == models.NotifyMissed {
		n.Actor = r.displayName(ctx, occ.Task.UserID)
	}
	sent, err := r.dispatcher.Dispatch(ctx, n)
	if sent {
		r.log.Info("occurrence notice sent",
			zap.Uint("task_id", occ.Task.ID), zap.String("date", occ.DateKey()), zap.String("kind", string(kind)))
	}
	return sent, kind, err
}

func (r *Reminder) displayName(ctx context.Context, userID uint) string {
	if r.users != nil {
		if u, err := r.users.GetByID(ctx, userID); err == nil {
			return u.DisplayName()
		}
	}
	return fmt.Sprintf("user %d", userID)
}
