// Package relation runs the pairing lifecycle between users: invite, accept,
// delayed unbind with withdrawal, and the cooldown that follows an unbind.
package relation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/cppla/careping/clock"
	"github.com/cppla/careping/errcode"
	"github.com/cppla/careping/models"
	"github.com/cppla/careping/notify"
)

// Store persists relations and their audit trail.
type Store interface {
	Create(ctx context.Context, rel *models.UserRelation) error
	GetByID(ctx context.Context, id uint) (*models.UserRelation, error)
	FindOccupying(ctx context.Context, a, b uint) (*models.UserRelation, error)
	ListForUser(ctx context.Context, userID uint, statuses ...models.RelationStatus) ([]models.UserRelation, error)
	Transition(ctx context.Context, id uint, from, to models.RelationStatus, expireAt *time.Time) (bool, error)
	ListUnbindingExpired(ctx context.Context, now time.Time) ([]models.UserRelation, error)
	AppendHistory(ctx context.Context, h *models.RelationHistory) error
}

// Notifier delivers one-off notices.
type Notifier interface {
	Direct(ctx context.Context, n notify.Notice) error
}

// Options tunes the lifecycle durations.
type Options struct {
	UnbindDelay time.Duration
	Cooldown    time.Duration
	PopBatch    int
}

// Service is safe for concurrent use by request handlers and the scheduler.
type Service struct {
	store    Store
	users    notify.UserDirectory
	queue    *DelayQueue
	cooldown *Cooldown
	notifier Notifier
	clock    clock.Clock
	opts     Options
	log      *zap.Logger
}

func NewService(store Store, users notify.UserDirectory, queue *DelayQueue, cooldown *Cooldown, notifier Notifier, clk clock.Clock, opts Options, log *zap.Logger) *Service {
	if opts.UnbindDelay <= 0 {
		opts.UnbindDelay = 24 * time.Hour
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 24 * time.Hour
	}
	if opts.PopBatch <= 0 {
		opts.PopBatch = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, users: users, queue: queue, cooldown: cooldown, notifier: notifier, clock: clk, opts: opts, log: log}
}

// Invite opens a PENDING relation from initiatorID to partnerID.
func (s *Service) Invite(ctx context.Context, initiatorID, partnerID uint, name string) (*models.UserRelation, error) {
	if partnerID == 0 || partnerID == initiatorID {
		return nil, errcode.New(errcode.Invalid, "cannot pair with yourself")
	}
	if _, err := s.users.GetByID(ctx, partnerID); err != nil {
		return nil, err
	}
	left, err := s.cooldown.Remaining(ctx, initiatorID, partnerID)
	if err != nil {
		return nil, err
	}
	if left > 0 {
		return nil, errcode.Newf(errcode.Cooldown, "try again in %s", left.Round(time.Minute))
	}
	existing, err := s.store.FindOccupying(ctx, initiatorID, partnerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errcode.ErrAlreadyBound
	}

	rel := &models.UserRelation{
		InitiatorID: initiatorID,
		PartnerID:   partnerID,
		Name:        name,
		Status:      models.RelationPending,
	}
	if err := s.store.Create(ctx, rel); err != nil {
		return nil, err
	}
	s.history(ctx, rel.ID, models.ActionInvited, initiatorID, "")
	return rel, nil
}

// Accept confirms a pending invite. Only the invitee may accept.
func (s *Service) Accept(ctx context.Context, relationID, operatorID uint) error {
	return s.answer(ctx, relationID, operatorID, models.RelationAccepted, models.ActionBind)
}

// Reject declines a pending invite. Only the invitee may reject.
func (s *Service) Reject(ctx context.Context, relationID, operatorID uint) error {
	return s.answer(ctx, relationID, operatorID, models.RelationRejected, models.ActionRejected)
}

func (s *Service) answer(ctx context.Context, relationID, operatorID uint, to models.RelationStatus, action models.RelationAction) error {
	rel, err := s.store.GetByID(ctx, relationID)
	if err != nil {
		return err
	}
	if rel.PartnerID != operatorID {
		return errcode.ErrForbidden
	}
	if rel.Status != models.RelationPending {
		return errcode.ErrWrongState
	}
	ok, err := s.store.Transition(ctx, relationID, models.RelationPending, to, nil)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.ErrWrongState
	}
	s.history(ctx, relationID, action, operatorID, "")
	return nil
}

// InitiateUnbind starts the delayed unbind of an ACCEPTED relation. Either party may
// start it; it becomes final after the unbind delay unless withdrawn.
func (s *Service) InitiateUnbind(ctx context.Context, relationID, operatorID uint, reason string) error {
	rel, err := s.store.GetByID(ctx, relationID)
	if err != nil {
		return err
	}
	if !rel.HasParty(operatorID) {
		return errcode.ErrForbidden
	}
	if rel.Status != models.RelationAccepted {
		return errcode.ErrWrongState
	}

	expire := s.clock.Now().Add(s.opts.UnbindDelay)
	ok, err := s.store.Transition(ctx, relationID, models.RelationAccepted, models.RelationUnbinding, &expire)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.ErrWrongState
	}
	if err := s.queue.Add(ctx, relationID, expire); err != nil {
		// reconciliation re-enqueues expired UNBINDING rows
		s.log.Warn("enqueue unbind failed", zap.Uint("relation_id", relationID), zap.Error(err))
	}
	s.history(ctx, relationID, models.ActionUnbindInitiated, operatorID, reason)
	s.notifyUnbind(ctx, rel, operatorID, expire)
	return nil
}

// WithdrawUnbind returns an UNBINDING relation to ACCEPTED and cancels its finalization.
func (s *Service) WithdrawUnbind(ctx context.Context, relationID, operatorID uint) error {
	rel, err := s.store.GetByID(ctx, relationID)
	if err != nil {
		return err
	}
	if !rel.HasParty(operatorID) {
		return errcode.ErrForbidden
	}
	if rel.Status != models.RelationUnbinding {
		return errcode.ErrWrongState
	}
	ok, err := s.store.Transition(ctx, relationID, models.RelationUnbinding, models.RelationAccepted, nil)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.ErrWrongState
	}
	if err := s.queue.Remove(ctx, relationID); err != nil {
		// Finalize re-checks the status, a stale entry is harmless
		s.log.Warn("dequeue unbind failed", zap.Uint("relation_id", relationID), zap.Error(err))
	}
	s.history(ctx, relationID, models.ActionUnbindWithdrawn, operatorID, "")
	return nil
}

// Finalize completes the unbind of relationID if it is due. It is idempotent: a relation
// that was withdrawn, already finalized or deleted is left alone. A relation that is not
// yet due is put back on the queue. It reports whether this call made the relation UNBOUND.
func (s *Service) Finalize(ctx context.Context, relationID uint) (bool, error) {
	rel, err := s.store.GetByID(ctx, relationID)
	if errors.Is(err, errcode.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if rel.Status != models.RelationUnbinding {
		return false, nil
	}
	now := s.clock.Now()
	if rel.UnbindExpireAt == nil {
		return false, nil
	}
	if now.Before(*rel.UnbindExpireAt) {
		return false, s.queue.Add(ctx, relationID, *rel.UnbindExpireAt)
	}

	// the cooldown goes first: a relation must never be UNBOUND without one
	if err := s.cooldown.Set(ctx, rel.InitiatorID, rel.PartnerID, s.opts.Cooldown); err != nil {
		return false, err
	}
	ok, err := s.store.Transition(ctx, relationID, models.RelationUnbinding, models.RelationUnbound, rel.UnbindExpireAt)
	if err != nil {
		return false, err
	}
	if !ok {
		s.dropStaleCooldown(ctx, rel)
		return false, nil
	}
	if err := s.queue.Remove(ctx, relationID); err != nil {
		s.log.Warn("dequeue unbind failed", zap.Uint("relation_id", relationID), zap.Error(err))
	}
	s.history(ctx, relationID, models.ActionUnbindCompleted, 0, "")
	s.log.Info("relation unbound", zap.Uint("relation_id", relationID),
		zap.Uint("initiator_id", rel.InitiatorID), zap.Uint("partner_id", rel.PartnerID))
	return true, nil
}

// dropStaleCooldown clears the mark opened by a Finalize that lost to a withdraw.
// A concurrent Finalize that won keeps its mark.
func (s *Service) dropStaleCooldown(ctx context.Context, rel *models.UserRelation) {
	cur, err := s.store.GetByID(ctx, rel.ID)
	if err == nil && cur.Status == models.RelationUnbound {
		return
	}
	if err := s.cooldown.Clear(ctx, rel.InitiatorID, rel.PartnerID); err != nil {
		s.log.Warn("clear cooldown failed", zap.Uint("relation_id", rel.ID), zap.Error(err))
	}
}

// PollDue finalizes every relation whose unbind is due. An id whose finalization
// fails is put back so the next poll retries it.
func (s *Service) PollDue(ctx context.Context) (int, error) {
	now := s.clock.Now()
	ids, err := s.queue.PopDue(ctx, now, s.opts.PopBatch)
	if err != nil {
		return 0, err
	}
	var errs error
	done := 0
	for _, id := range ids {
		ok, err := s.Finalize(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("finalize relation %d: %w", id, err))
			if qerr := s.queue.Add(ctx, id, now); qerr != nil {
				errs = multierr.Append(errs, qerr)
			}
			continue
		}
		if ok {
			done++
		}
	}
	return done, errs
}

// Reconcile re-enqueues UNBINDING relations past their expiry that the queue lost.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	rels, err := s.store.ListUnbindingExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	var errs error
	added := 0
	for _, rel := range rels {
		ok, err := s.queue.AddIfAbsent(ctx, rel.ID, *rel.UnbindExpireAt)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if ok {
			added++
			s.log.Info("re-enqueued lost unbind", zap.Uint("relation_id", rel.ID))
		}
	}
	return added, errs
}

// CooldownRemaining reports how long a and b must wait before pairing again.
func (s *Service) CooldownRemaining(ctx context.Context, a, b uint) (time.Duration, error) {
	return s.cooldown.Remaining(ctx, a, b)
}

// List returns every relation userID is part of.
func (s *Service) List(ctx context.Context, userID uint) ([]models.UserRelation, error) {
	return s.store.ListForUser(ctx, userID)
}

// Partners returns the ids of users with an ACCEPTED or UNBINDING relation to userID.
func (s *Service) Partners(ctx context.Context, userID uint) ([]uint, error) {
	rels, err := s.store.ListForUser(ctx, userID, models.RelationAccepted, models.RelationUnbinding)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(rels))
	for _, r := range rels {
		ids = append(ids, r.Other(userID))
	}
	return ids, nil
}

// Bound reports whether a and b share a relation that allows assigning tasks.
func (s *Service) Bound(ctx context.Context, a, b uint) (bool, error) {
	rel, err := s.store.FindOccupying(ctx, a, b)
	if err != nil || rel == nil {
		return false, err
	}
	return rel.Status == models.RelationAccepted || rel.Status == models.RelationUnbinding, nil
}

func (s *Service) history(ctx context.Context, relationID uint, action models.RelationAction, operatorID uint, reason string) {
	h := &models.RelationHistory{
		RelationID: relationID,
		Action:     action,
		OperatorID: operatorID,
		Reason:     reason,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.AppendHistory(ctx, h); err != nil {
		s.log.Error("append relation history failed",
			zap.Uint("relation_id", relationID), zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *Service) notifyUnbind(ctx context.Context, rel *models.UserRelation, operatorID uint, expire time.Time) {
	if s.notifier == nil {
		return
	}
	actor := ""
	if u, err := s.users.GetByID(ctx, operatorID); err == nil {
		actor = u.DisplayName()
	}
	err := s.notifier.Direct(ctx, notify.Notice{
		Kind:        models.NotifyUnbindRequested,
		RecipientID: rel.Other(operatorID),
		Subject:     rel.Name,
		Actor:       actor,
		At:          expire,
	})
	if err != nil {
		s.log.Warn("unbind notice failed", zap.Uint("relation_id", rel.ID), zap.Error(err))
	}
}
