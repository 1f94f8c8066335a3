package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/careping/models"
)

// UserRepository resolves users and their push addresses.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

// GetByID returns errcode.ErrNotFound when no user has id.
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, translate(err))
	}
	return &u, nil
}

// GetMany returns the users in ids keyed by id. Unknown ids are absent from the map.
func (r *UserRepository) GetMany(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	out := make(map[uint]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

// UpdatePush sets how userID is reached by the push transport.
func (r *UserRepository) UpdatePush(ctx context.Context, userID uint, channel, handle string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"push_channel": channel, "push_handle": handle}).Error
	if err != nil {
		return fmt.Errorf("update push address: %w", err)
	}
	return nil
}
