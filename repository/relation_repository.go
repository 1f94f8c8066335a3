package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/careping/models"
)

// RelationRepository stores user pairings and their audit trail.
type RelationRepository struct {
	db *gorm.DB
}

func NewRelationRepository(db *gorm.DB) *RelationRepository {
	return &RelationRepository{db: db}
}

func (r *RelationRepository) Create(ctx context.Context, rel *models.UserRelation) error {
	if err := r.db.WithContext(ctx).Create(rel).Error; err != nil {
		return fmt.Errorf("create relation: %w", err)
	}
	return nil
}

// GetByID returns errcode.ErrNotFound when no relation has id.
func (r *RelationRepository) GetByID(ctx context.Context, id uint) (*models.UserRelation, error) {
	var rel models.UserRelation
	if err := r.db.WithContext(ctx).First(&rel, id).Error; err != nil {
		return nil, fmt.Errorf("get relation %d: %w", id, translate(err))
	}
	return &rel, nil
}

// FindOccupying returns the relation holding the unordered pair (a, b), or nil when the pair is free.
func (r *RelationRepository) FindOccupying(ctx context.Context, a, b uint) (*models.UserRelation, error) {
	var rels []models.UserRelation
	err := r.db.WithContext(ctx).
		Where("((initiator_id = ? AND partner_id = ?) OR (initiator_id = ? AND partner_id = ?)) AND status IN ?",
			a, b, b, a, models.OccupyingRelationStatuses).
		Order("id DESC").Limit(1).Find(&rels).Error
	if err != nil {
		return nil, fmt.Errorf("find relation by pair: %w", err)
	}
	if len(rels) == 0 {
		return nil, nil
	}
	return &rels[0], nil
}

// ListForUser returns relations in which userID is either party, narrowed to statuses when given.
func (r *RelationRepository) ListForUser(ctx context.Context, userID uint, statuses ...models.RelationStatus) ([]models.UserRelation, error) {
	q := r.db.WithContext(ctx).Where("initiator_id = ? OR partner_id = ?", userID, userID)
	if len(statuses) > 0 {
		q = r.db.WithContext(ctx).Where(q).Where("status IN ?", statuses)
	}
	var rels []models.UserRelation
	if err := q.Order("id").Find(&rels).Error; err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	return rels, nil
}

// Transition moves relation id from status from to status to, setting unbind_expire_at to
// expireAt. It reports false when the row was not in from, which makes every transition
// safe to repeat.
func (r *RelationRepository) Transition(ctx context.Context, id uint, from, to models.RelationStatus, expireAt *time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.UserRelation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":           to,
			"unbind_expire_at": expireAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("transition relation %d %s->%s: %w", id, from, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListUnbindingExpired returns UNBINDING relations whose expiry is before now.
func (r *RelationRepository) ListUnbindingExpired(ctx context.Context, now time.Time) ([]models.UserRelation, error) {
	var rels []models.UserRelation
	err := r.db.WithContext(ctx).
		Where("status = ? AND unbind_expire_at IS NOT NULL AND unbind_expire_at < ?", models.RelationUnbinding, now).
		Order("unbind_expire_at").Find(&rels).Error
	if err != nil {
		return nil, fmt.Errorf("list expired unbinding relations: %w", err)
	}
	return rels, nil
}

// AppendHistory records one transition in the audit trail.
func (r *RelationRepository) AppendHistory(ctx context.Context, h *models.RelationHistory) error {
	if err := r.db.WithContext(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("append relation history: %w", err)
	}
	return nil
}

// History returns the audit trail of relationID, oldest first.
func (r *RelationRepository) History(ctx context.Context, relationID uint) ([]models.RelationHistory, error) {
	var hs []models.RelationHistory
	if err := r.db.WithContext(ctx).Where("relation_id = ?", relationID).
		Order("id").Find(&hs).Error; err != nil {
		return nil, fmt.Errorf("list relation history: %w", err)
	}
	return hs, nil
}
