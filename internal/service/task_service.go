package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"task-planner/internal/model"
	"task-planner/internal/repository"
)

// DueLayout is the format of the fecha_limite form field (datetime-local input).
const DueLayout = "2006-01-02T15:04"

// Weekdays are the list buckets in display order.
var Weekdays = []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"}

// TaskInput represents the form data of a task.
type TaskInput struct {
	Description string
	Due         string
	Weekday     string
}

// DayBucket holds the tasks filed under one weekday label.
type DayBucket struct {
	Day   string
	Tasks []model.Task
}

// TaskService wraps task-related business logic. Mutations on a task the caller
// does not own, or that no longer exists, are silent no-ops.
type TaskService struct {
	taskRepo *repository.TaskRepository
	loc      *time.Location
}

func NewTaskService(taskRepo *repository.TaskRepository, loc *time.Location) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	return &TaskService{taskRepo: taskRepo, loc: loc}
}

// Location is the zone due timestamps are read and shown in.
func (s *TaskService) Location() *time.Location {
	return s.loc
}

func (s *TaskService) Create(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	description, due, weekday, err := s.parseInput(input)
	if err != nil {
		return nil, err
	}

	task := model.Task{
		UserID:      user.ID,
		Description: description,
		DueAt:       due,
		Weekday:     weekday,
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Week buckets the user's tasks by weekday label. Labels outside Weekdays are not shown.
func (s *TaskService) Week(ctx context.Context, user *model.User) ([]DayBucket, error) {
	tasks, err := s.taskRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(Weekdays))
	buckets := make([]DayBucket, len(Weekdays))
	for i, day := range Weekdays {
		index[day] = i
		buckets[i] = DayBucket{Day: day}
	}
	for _, task := range tasks {
		if i, ok := index[task.Weekday]; ok {
			buckets[i].Tasks = append(buckets[i].Tasks, task)
		}
	}
	return buckets, nil
}

// Get returns an owned task or ErrTaskNotFound.
func (s *TaskService) Get(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	return s.owned(ctx, user, taskID)
}

// Update overwrites description, due timestamp and weekday. Moving the due
// timestamp clears the notified flag so the task alerts again.
func (s *TaskService) Update(ctx context.Context, user *model.User, taskID uint, input TaskInput) error {
	description, due, weekday, err := s.parseInput(input)
	if err != nil {
		return err
	}

	task, err := s.owned(ctx, user, taskID)
	if errors.Is(err, ErrTaskNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"description": description,
		"due_at":      due,
		"weekday":     weekday,
	}
	if !due.Equal(task.DueAt) {
		fields["notified"] = false
	}
	return s.taskRepo.UpdateOwned(ctx, user.ID, task.ID, fields)
}

// SaveNote overwrites the long-form note.
func (s *TaskService) SaveNote(ctx context.Context, user *model.User, taskID uint, note string) error {
	task, err := s.owned(ctx, user, taskID)
	if errors.Is(err, ErrTaskNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.taskRepo.UpdateOwned(ctx, user.ID, task.ID, map[string]interface{}{"note": note})
}

// Delete removes the task for good.
func (s *TaskService) Delete(ctx context.Context, user *model.User, taskID uint) error {
	task, err := s.owned(ctx, user, taskID)
	if errors.Is(err, ErrTaskNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.taskRepo.DeleteOwned(ctx, user.ID, task.ID)
}

// owned is the single ownership check used by every per-task operation.
func (s *TaskService) owned(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	task, err := s.taskRepo.FindOwned(ctx, user.ID, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) parseInput(input TaskInput) (string, time.Time, string, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return "", time.Time{}, "", invalid("descripcion", "La descripción es obligatoria")
	}
	weekday := strings.TrimSpace(input.Weekday)
	if weekday == "" {
		return "", time.Time{}, "", invalid("dia", "El día es obligatorio")
	}
	raw := strings.TrimSpace(input.Due)
	if raw == "" {
		return "", time.Time{}, "", invalid("fecha_limite", "La fecha límite es obligatoria")
	}
	due, err := time.ParseInLocation(DueLayout, raw, s.loc)
	if err != nil {
		return "", time.Time{}, "", invalid("fecha_limite", "La fecha límite no es válida")
	}
	// stored in UTC so the text column orders by instant
	return description, due.UTC(), weekday, nil
}
