package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cppla/careping/errcode"
	"github.com/cppla/careping/models"
)

// UserDirectory resolves a user id to its push address.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// Transport delivers a message. Failures are recorded by the caller and never retried.
type Transport interface {
	Send(ctx context.Context, to Recipient, msg Message) error
}

// Dispatcher sends notices through the dedup gate and records every attempt.
type Dispatcher struct {
	dedup     *Dedup
	logs      LogStore
	users     UserDirectory
	transport Transport
	log       *zap.Logger
}

func NewDispatcher(dedup *Dedup, logs LogStore, users UserDirectory, transport Transport, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{dedup: dedup, logs: logs, users: users, transport: transport, log: log}
}

// Dispatch sends n once per (task, date, kind). It returns false when the slot was
// already taken. A failed send is logged durably and reported as sent, since the slot
// is consumed either way. Only gate errors are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notice) (bool, error) {
	if !n.Kind.Deduplicated() {
		return false, fmt.Errorf("dispatch %s: kind is not deduplicated, use Direct", n.Kind)
	}
	ok, err := d.dedup.TryAcquire(ctx, Key{TaskID: n.TaskID, Date: n.Date, Kind: n.Kind})
	if err != nil || !ok {
		return false, err
	}

	entry := &models.NotificationLog{
		TaskID:      n.TaskID,
		NotifyDate:  n.Date,
		Kind:        n.Kind,
		RecipientID: n.RecipientID,
		DispatchID:  uuid.NewString(),
	}
	if sendErr := d.send(ctx, n); sendErr != nil {
		entry.ErrorMsg = truncate(sendErr.Error(), 512)
		d.log.Warn("notification send failed",
			zap.String("dispatch_id", entry.DispatchID),
			zap.Uint("task_id", n.TaskID),
			zap.String("date", n.Date),
			zap.String("kind", string(n.Kind)),
			zap.Error(sendErr))
	} else {
		entry.Success = true
	}

	if err := d.logs.Insert(ctx, entry); err != nil && !errors.Is(err, errcode.ErrDuplicate) {
		// the marker still blocks a resend for its TTL
		d.log.Error("notification log write failed",
			zap.String("dispatch_id", entry.DispatchID),
			zap.Uint("task_id", n.TaskID),
			zap.String("kind", string(n.Kind)),
			zap.Error(err))
	}
	return true, nil
}

// Direct sends a one-off notice that has no dedup slot, such as an unbind request.
func (d *Dispatcher) Direct(ctx context.Context, n Notice) error {
	if err := d.send(ctx, n); err != nil {
		d.log.Warn("notification send failed",
			zap.Uint("recipient_id", n.RecipientID),
			zap.String("kind", string(n.Kind)),
			zap.Error(err))
		return err
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, n Notice) error {
	u, err := d.users.GetByID(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient %d: %w", n.RecipientID, err)
	}
	to := Recipient{UserID: u.ID, Name: u.DisplayName(), Channel: u.PushChannel, Handle: u.PushHandle}
	return d.transport.Send(ctx, to, Render(n))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
