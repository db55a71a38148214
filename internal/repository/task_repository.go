package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"task-planner/internal/model"
)

// TaskRepository handles CRUD for tasks. Every query except Create is scoped by owner.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("due_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// FindOwned loads a task only if it belongs to userID, ErrNotFound otherwise.
func (r *TaskRepository) FindOwned(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// UpdateOwned writes the given columns. A row deleted in the meantime is left alone.
func (r *TaskRepository) UpdateOwned(ctx context.Context, userID, taskID uint, fields map[string]interface{}) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("user_id = ? AND id = ?", userID, taskID).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// DeleteOwned hard-deletes a task of the given user.
func (r *TaskRepository) DeleteOwned(ctx context.Context, userID, taskID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).
		Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ListUnnotified returns the user's tasks whose notified flag is still false.
func (r *TaskRepository) ListUnnotified(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND notified = ?", userID, false).
		Order("due_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list unnotified tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) MarkNotified(ctx context.Context, userID, taskID uint) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("user_id = ? AND id = ?", userID, taskID).
		Update("notified", true).Error; err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}
