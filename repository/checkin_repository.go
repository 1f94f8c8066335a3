package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/careping/models"
)

// CheckInRepository stores accepted check-ins.
type CheckInRepository struct {
	db *gorm.DB
}

func NewCheckInRepository(db *gorm.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

// Insert appends rec. A second record for the same occurrence fails with errcode.ErrDuplicate.
func (r *CheckInRepository) Insert(ctx context.Context, rec *models.CheckInLog) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert check-in: %w", translate(err))
	}
	return nil
}

// Exists reports whether userID already checked in for taskID on date.
func (r *CheckInRepository) Exists(ctx context.Context, userID, taskID uint, date string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CheckInLog{}).
		Where("user_id = ? AND task_id = ? AND occurrence_date = ?", userID, taskID, date).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check existing check-in: %w", err)
	}
	return n > 0, nil
}

// ListForDateRange returns records for taskIDs whose occurrence date lies in [start, end].
func (r *CheckInRepository) ListForDateRange(ctx context.Context, taskIDs []uint, start, end string) ([]models.CheckInLog, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	var recs []models.CheckInLog
	err := r.db.WithContext(ctx).
		Where("task_id IN ? AND occurrence_date BETWEEN ? AND ?", taskIDs, start, end).
		Order("check_time").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return recs, nil
}
