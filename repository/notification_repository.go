package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/careping/models"
)

// NotificationLogRepository is the durable record of dispatch attempts.
type NotificationLogRepository struct {
	db *gorm.DB
}

func NewNotificationLogRepository(db *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

func (r *NotificationLogRepository) Exists(ctx context.Context, taskID uint, date string, kind models.NotifyKind) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.NotificationLog{}).
		Where("task_id = ? AND notify_date = ? AND kind = ?", taskID, date, kind).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("lookup notification log: %w", err)
	}
	return n > 0, nil
}

// Insert fails with errcode.ErrDuplicate when the triple is already logged.
func (r *NotificationLogRepository) Insert(ctx context.Context, entry *models.NotificationLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert notification log: %w", translate(err))
	}
	return nil
}

// ListForTask returns the log rows of taskID, newest first.
func (r *NotificationLogRepository) ListForTask(ctx context.Context, taskID uint) ([]models.NotificationLog, error) {
	var rows []models.NotificationLog
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list notification log: %w", err)
	}
	return rows, nil
}
