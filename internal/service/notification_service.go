package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"task-planner/internal/metrics"
	"task-planner/internal/model"
	"task-planner/internal/repository"
)

// Channel selects how due tasks reach the user.
type Channel string

const (
	// ChannelPoll exposes due tasks to a client that polls and flags them.
	ChannelPoll Channel = "poll"
	// ChannelEmail mails due tasks while the list page is loaded.
	ChannelEmail Channel = "email"
)

const expiredSubject = "Tarea vencida"

// DueTask is the payload of the polling endpoint.
type DueTask struct {
	ID          uint   `json:"id"`
	Description string `json:"descripcion"`
}

// NotificationService finds due, unflagged tasks and delivers them on the configured channel.
// Both channels share the task's notified flag.
type NotificationService struct {
	channel  Channel
	taskRepo *repository.TaskRepository
	mailer   Mailer
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewNotificationService(channel Channel, taskRepo *repository.TaskRepository, mailer Mailer, m *metrics.Metrics, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{
		channel:  channel,
		taskRepo: taskRepo,
		mailer:   mailer,
		metrics:  m,
		log:      log,
	}
}

func (s *NotificationService) Channel() Channel {
	return s.channel
}

// Due lists the user's tasks due at or before now that were not flagged yet.
func (s *NotificationService) Due(ctx context.Context, user *model.User, now time.Time) ([]DueTask, error) {
	tasks, err := s.dueTasks(ctx, user, now)
	if err != nil {
		return nil, err
	}
	out := make([]DueTask, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, DueTask{ID: task.ID, Description: task.Description})
	}
	s.count("polled", len(out))
	return out, nil
}

// MarkNotified flags an owned task. Flagging twice, or flagging someone else's task, changes nothing.
func (s *NotificationService) MarkNotified(ctx context.Context, user *model.User, taskID uint) error {
	return s.taskRepo.MarkNotified(ctx, user.ID, taskID)
}

// NotifyExpired mails every due, unflagged task to the user's linked email and flags
// it once the relay accepted it. Send failures leave the flag unset and are only
// logged, so the next page load tries again. Returns the number of mails sent.
func (s *NotificationService) NotifyExpired(ctx context.Context, user *model.User, now time.Time) (int, error) {
	if s.channel != ChannelEmail || s.mailer == nil || !user.HasLinkedEmail() {
		return 0, nil
	}

	tasks, err := s.dueTasks(ctx, user, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, task := range tasks {
		body := fmt.Sprintf("La tarea '%s' ha expirado.", task.Description)
		if err := s.mailer.Send(ctx, user.Email, expiredSubject, body); err != nil {
			s.log.Warn("send expired task email",
				zap.Uint("user_id", user.ID),
				zap.Uint("task_id", task.ID),
				zap.Error(err),
			)
			s.count("failed", 1)
			continue
		}
		if err := s.taskRepo.MarkNotified(ctx, user.ID, task.ID); err != nil {
			return sent, err
		}
		s.count("sent", 1)
		sent++
	}
	return sent, nil
}

func (s *NotificationService) dueTasks(ctx context.Context, user *model.User, now time.Time) ([]model.Task, error) {
	tasks, err := s.taskRepo.ListUnnotified(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	due := tasks[:0]
	for _, task := range tasks {
		if task.IsDue(now) {
			due = append(due, task)
		}
	}
	return due, nil
}

func (s *NotificationService) count(result string, n int) {
	if s.metrics == nil || n == 0 {
		return
	}
	s.metrics.Notifications.WithLabelValues(string(s.channel), result).Add(float64(n))
}
