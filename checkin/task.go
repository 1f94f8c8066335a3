package checkin

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cppla/careping/errcode"
	"github.com/cppla/careping/models"
	"github.com/cppla/careping/notify"
)

const maxTitleLen = 128

// TaskInput carries the editable fields of a task.
type TaskInput struct {
	UserID     uint
	Title      string
	RemindAt   time.Time
	RepeatType models.RepeatType
}

func (in TaskInput) validate() error {
	title := strings.TrimSpace(in.Title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLen {
		return errcode.New(errcode.Invalid, "title must be 1-128 characters")
	}
	if in.RemindAt.IsZero() {
		return errcode.New(errcode.Invalid, "remind time is required")
	}
	if _, err := models.ParseRepeatType(string(in.RepeatType)); err != nil {
		return errcode.New(errcode.Invalid, err.Error())
	}
	return nil
}

// CreateTask sets a task for in.UserID. The creator must be that user or share an
// accepted relation with them.
func (s *Service) CreateTask(ctx context.Context, creatorID uint, in TaskInput) (*models.Task, error) {
	if in.UserID == 0 {
		in.UserID = creatorID
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.UserID != creatorID {
		ok, err := s.relations.Bound(ctx, creatorID, in.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errcode.ErrForbidden
		}
	}

	now := s.clock.Now()
	task := &models.Task{
		CreatorID:  creatorID,
		UserID:     in.UserID,
		Title:      strings.TrimSpace(in.Title),
		RemindAt:   in.RemindAt,
		RepeatType: in.RepeatType,
		Enabled:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	if task.UserID != creatorID {
		err := s.notifier.Direct(ctx, notify.Notice{
			Kind:        models.NotifyTaskAssigned,
			TaskID:      task.ID,
			RecipientID: task.UserID,
			Subject:     task.Title,
			Actor:       s.displayName(ctx, creatorID),
			At:          task.RemindAt.In(s.clock.Now().Location()),
		})
		if err != nil {
			s.log.Warn("task assigned notice failed", zap.Uint("task_id", task.ID), zap.Error(err))
		}
	}
	return task, nil
}

// UpdateTask changes the title, time or recurrence of a task. Creator only.
func (s *Service) UpdateTask(ctx context.Context, operatorID, taskID uint, in TaskInput) (*models.Task, error) {
	task, err := s.ownedTask(ctx, operatorID, taskID)
	if err != nil {
		return nil, err
	}
	in.UserID = task.UserID
	if err := in.validate(); err != nil {
		return nil, err
	}
	task.Title = strings.TrimSpace(in.Title)
	task.RemindAt = in.RemindAt
	task.RepeatType = in.RepeatType
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DisableTask soft-deletes a task. Creator only; disabling twice is a no-op.
func (s *Service) DisableTask(ctx context.Context, operatorID, taskID uint) error {
	task, err := s.ownedTask(ctx, operatorID, taskID)
	if err != nil {
		return err
	}
	if !task.Enabled {
		return nil
	}
	task.Enabled = false
	return s.tasks.Update(ctx, task)
}

// Tasks lists the enabled tasks assigned to userID and every task userID created.
func (s *Service) Tasks(ctx context.Context, userID uint) (assigned, created []models.Task, err error) {
	if assigned, err = s.tasks.ListEnabled(ctx, userID, 0); err != nil {
		return nil, nil, err
	}
	if created, err = s.tasks.ListByCreator(ctx, userID); err != nil {
		return nil, nil, err
	}
	return assigned, created, nil
}

func (s *Service) ownedTask(ctx context.Context, operatorID, taskID uint) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, errcode.ErrNotFound) {
		return nil, errcode.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	if task.CreatorID != operatorID {
		return nil, errcode.ErrForbidden
	}
	return task, nil
}
