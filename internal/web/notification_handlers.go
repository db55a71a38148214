package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) checkNotifications(c *gin.Context, p Principal) {
	due, err := s.notify.Due(c.Request.Context(), p.User, s.now())
	if err != nil {
		s.log.Error("check notifications", zap.Uint("user_id", p.User.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error interno"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tareas": due})
}

func (s *Server) markNotified(c *gin.Context, p Principal) {
	id, ok := taskID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id inválido"})
		return
	}
	if err := s.notify.MarkNotified(c.Request.Context(), p.User, id); err != nil {
		s.log.Error("mark notified", zap.Uint("user_id", p.User.ID), zap.Uint("task_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error interno"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
