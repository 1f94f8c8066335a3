// Package checkin is the request-facing side of the engine: check-ins, daily and
// supervised status, dashboard stats and task management.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/careping/attendance"
	"github.com/cppla/careping/clock"
	"github.com/cppla/careping/errcode"
	"github.com/cppla/careping/models"
	"github.com/cppla/careping/notify"
	"github.com/cppla/careping/occurrence"
)

// TaskStore persists task definitions.
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uint) (*models.Task, error)
	ListEnabled(ctx context.Context, userID, creatorID uint) ([]models.Task, error)
	ListByCreator(ctx context.Context, creatorID uint) ([]models.Task, error)
}

// RecordStore persists check-ins. Insert must reject a second record per occurrence.
type RecordStore interface {
	Insert(ctx context.Context, rec *models.CheckInLog) error
	Exists(ctx context.Context, userID, taskID uint, date string) (bool, error)
	ListForDateRange(ctx context.Context, taskIDs []uint, start, end string) ([]models.CheckInLog, error)
}

// Dispatcher sends notices.
type Dispatcher interface {
	Dispatch(ctx context.Context, n notify.Notice) (bool, error)
	Direct(ctx context.Context, n notify.Notice) error
}

// Relations answers pairing questions.
type Relations interface {
	Bound(ctx context.Context, a, b uint) (bool, error)
	Partners(ctx context.Context, userID uint) ([]uint, error)
}

// Service is safe for concurrent use.
type Service struct {
	tasks     TaskStore
	records   RecordStore
	ledger    *attendance.Ledger
	notifier  Dispatcher
	relations Relations
	users     notify.UserDirectory
	policy    occurrence.Policy
	clock     clock.Clock
	log       *zap.Logger
}

func NewService(tasks TaskStore, records RecordStore, ledger *attendance.Ledger, notifier Dispatcher, relations Relations, users notify.UserDirectory, policy occurrence.Policy, clk clock.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		tasks:     tasks,
		records:   records,
		ledger:    ledger,
		notifier:  notifier,
		relations: relations,
		users:     users,
		policy:    policy,
		clock:     clk,
		log:       log,
	}
}

// Now exposes the service clock to callers that default "at" to the present.
func (s *Service) Now() time.Time { return s.clock.Now() }

// DoCheckIn records userID's check-in for taskID at the given instant.
func (s *Service) DoCheckIn(ctx context.Context, userID, taskID uint, at time.Time) (*models.CheckInLog, error) {
	at = at.In(s.clock.Now().Location())
	task, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, errcode.ErrNotFound) {
		return nil, errcode.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	if !task.Enabled || task.UserID != userID {
		return nil, errcode.ErrTaskNotFound
	}

	occ, ok := s.openOccurrence(task, at)
	if !ok {
		// no window contains at: report against today's occurrence
		day := clock.DayStart(at)
		target := occurrence.Target(task, day)
		if _, err := s.policy.Validate(target, at); err != nil {
			return nil, err
		}
		return nil, errcode.ErrTaskNotFound
	}
	outcome, err := s.policy.Validate(occ.Target, at)
	if err != nil {
		return nil, err
	}

	dup, err := s.records.Exists(ctx, userID, taskID, occ.DateKey())
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, errcode.ErrDuplicate
	}
	rec := &models.CheckInLog{
		UserID:         userID,
		TaskID:         taskID,
		OccurrenceDate: occ.DateKey(),
		CheckTime:      at,
		Outcome:        outcome,
	}
	if err := s.records.Insert(ctx, rec); err != nil {
		return nil, err
	}

	s.afterCheckIn(ctx, task, occ, rec)
	return rec, nil
}

// openOccurrence finds the active occurrence whose window contains at. Yesterday and
// tomorrow are considered so windows crossing midnight resolve to the right date.
func (s *Service) openOccurrence(task *models.Task, at time.Time) (occurrence.Occurrence, bool) {
	today := clock.DayStart(at)
	for _, off := range []int{0, -1, 1} {
		day := clock.AddDays(today, off)
		if !occurrence.IsActive(task, day) {
			continue
		}
		target := occurrence.Target(task, day)
		if s.policy.WindowOpen(target, at) {
			return occurrence.Occurrence{Task: task, Date: day, Target: target}, true
		}
	}
	return occurrence.Occurrence{}, false
}

// afterCheckIn updates the ledger and tells the creator. Failures never undo the check-in.
func (s *Service) afterCheckIn(ctx context.Context, task *models.Task, occ occurrence.Occurrence, rec *models.CheckInLog) {
	if err := s.ledger.RecordTask(ctx, rec.UserID, task.ID, occ.Date); err != nil {
		s.log.Error("record attendance failed",
			zap.Uint("user_id", rec.UserID), zap.Uint("task_id", task.ID), zap.Error(err))
	}
	if task.CreatorID == task.UserID {
		return
	}
	kind := models.NotifyCheckInComplete
	if rec.Outcome == models.OutcomeLate {
		kind = models.NotifyMakeUp
	}
	n := notify.Notice{
		Kind:        kind,
		TaskID:      task.ID,
		Date:        occ.DateKey(),
		RecipientID: task.CreatorID,
		Subject:     task.Title,
		Actor:       s.displayName(ctx, rec.UserID),
		At:          rec.CheckTime,
	}
	if _, err := s.notifier.Dispatch(ctx, n); err != nil {
		s.log.Warn("check-in notice failed",
			zap.Uint("task_id", task.ID), zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (s *Service) displayName(ctx context.Context, userID uint) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Sprintf("user %d", userID)
	}
	return u.DisplayName()
}
