package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-planner/internal/service"
)

func (s *Server) home(c *gin.Context, p Principal) {
	s.renderHome(c, p, http.StatusOK, gin.H{})
}

func (s *Server) renderHome(c *gin.Context, p Principal, status int, extra gin.H) {
	ctx := c.Request.Context()

	if s.notify != nil && s.notify.Channel() == service.ChannelEmail {
		if sent, err := s.notify.NotifyExpired(ctx, p.User, s.now()); err != nil {
			s.log.Error("notify expired tasks", zap.Uint("user_id", p.User.ID), zap.Error(err))
		} else if sent > 0 {
			s.log.Info("expired task emails sent", zap.Uint("user_id", p.User.ID), zap.Int("count", sent))
		}
	}

	week, err := s.tasks.Week(ctx, p.User)
	if err != nil {
		s.fail(c, "list tasks", err)
		return
	}

	data := gin.H{
		"User":          p.User,
		"Week":          week,
		"Weekdays":      service.Weekdays,
		"PollEnabled":   s.notify != nil && s.notify.Channel() == service.ChannelPoll,
		"GoogleEnabled": s.google != nil,
	}
	for k, v := range extra {
		data[k] = v
	}
	c.HTML(status, "index.html", data)
}

func (s *Server) addTask(c *gin.Context, p Principal) {
	input := taskInput(c)
	if _, err := s.tasks.Create(c.Request.Context(), p.User, input); err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			s.renderHome(c, p, http.StatusBadRequest, gin.H{"Error": verr.Message, "Form": input})
			return
		}
		s.fail(c, "create task", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) taskPage(c *gin.Context, p Principal) {
	s.renderTask(c, p, http.StatusOK, "")
}

func (s *Server) renderTask(c *gin.Context, p Principal, status int, message string) {
	id, ok := taskID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	task, err := s.tasks.Get(c.Request.Context(), p.User, id)
	if errors.Is(err, service.ErrTaskNotFound) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if err != nil {
		s.fail(c, "get task", err)
		return
	}
	c.HTML(status, "tarea.html", gin.H{
		"User":     p.User,
		"Task":     task,
		"Weekdays": service.Weekdays,
		"Error":    message,
	})
}

func (s *Server) editTask(c *gin.Context, p Principal) {
	id, ok := taskID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if err := s.tasks.Update(c.Request.Context(), p.User, id, taskInput(c)); err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			s.renderTask(c, p, http.StatusBadRequest, verr.Message)
			return
		}
		s.fail(c, "update task", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/tarea/"+strconv.FormatUint(uint64(id), 10))
}

func (s *Server) saveNote(c *gin.Context, p Principal) {
	id, ok := taskID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if err := s.tasks.SaveNote(c.Request.Context(), p.User, id, c.PostForm("detalle_profundo")); err != nil {
		s.fail(c, "save note", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/tarea/"+strconv.FormatUint(uint64(id), 10))
}

func (s *Server) finishTask(c *gin.Context, p Principal) {
	id, ok := taskID(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if err := s.tasks.Delete(c.Request.Context(), p.User, id); err != nil {
		s.fail(c, "delete task", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func taskInput(c *gin.Context) service.TaskInput {
	return service.TaskInput{
		Description: c.PostForm("descripcion"),
		Due:         c.PostForm("fecha_limite"),
		Weekday:     c.PostForm("dia"),
	}
}

func taskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
