package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/careping/models"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update writes the editable fields, including zero values such as Enabled=false.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	err := r.db.WithContext(ctx).Model(task).
		Select("Title", "RemindAt", "RepeatType", "Enabled").
		Updates(task).Error
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// GetByID returns errcode.ErrNotFound when no task has id.
func (r *TaskRepository) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, translate(err))
	}
	return &task, nil
}

// ListEnabled returns the enabled tasks assigned to userID. A non-zero creatorID narrows
// the result to tasks that creator set.
func (r *TaskRepository) ListEnabled(ctx context.Context, userID, creatorID uint) ([]models.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ? AND enabled = ?", userID, true)
	if creatorID != 0 {
		q = q.Where("creator_id = ?", creatorID)
	}
	var tasks []models.Task
	if err := q.Order("id").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListAllEnabled returns every enabled task, in batches of batchSize, to fn.
func (r *TaskRepository) ListAllEnabled(ctx context.Context, batchSize int, fn func([]models.Task) error) error {
	var batch []models.Task
	res := r.db.WithContext(ctx).Where("enabled = ?", true).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	if res.Error != nil {
		return fmt.Errorf("scan enabled tasks: %w", res.Error)
	}
	return nil
}

// ListByCreator returns the tasks creatorID set, enabled or not.
func (r *TaskRepository) ListByCreator(ctx context.Context, creatorID uint) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).Where("creator_id = ?", creatorID).
		Order("id").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list created tasks: %w", err)
	}
	return tasks, nil
}
