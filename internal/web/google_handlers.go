package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-planner/internal/service"
)

func (s *Server) linkGoogle(c *gin.Context, p Principal) {
	state := service.NewState()
	if err := s.sessions.SetOAuthState(c.Request.Context(), p.Session, state); err != nil {
		s.fail(c, "store oauth state", err)
		return
	}
	c.Redirect(http.StatusFound, s.google.AuthCodeURL(state))
}

func (s *Server) googleCallback(c *gin.Context, p Principal) {
	ctx := c.Request.Context()

	if reason := c.Query("error"); reason != "" {
		s.log.Info("google linking declined", zap.Uint("user_id", p.User.ID), zap.String("reason", reason))
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	if err := s.sessions.ConsumeOAuthState(ctx, p.Session, c.Query("state")); err != nil {
		if errors.Is(err, service.ErrOAuthState) {
			c.HTML(http.StatusBadRequest, "error.html", gin.H{"Message": "La solicitud de vinculación no es válida"})
			return
		}
		s.fail(c, "consume oauth state", err)
		return
	}

	email, err := s.google.FetchEmail(ctx, c.Query("code"))
	if err != nil {
		s.log.Error("google callback", zap.Uint("user_id", p.User.ID), zap.Error(err))
		c.HTML(http.StatusBadGateway, "error.html", gin.H{"Message": "No se pudo vincular la cuenta de Google"})
		return
	}

	if err := s.auth.LinkEmail(ctx, p.User, email); err != nil {
		s.fail(c, "link email", err)
		return
	}
	s.log.Info("google account linked", zap.Uint("user_id", p.User.ID))
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) unlinkGoogle(c *gin.Context, p Principal) {
	if err := s.auth.UnlinkEmail(c.Request.Context(), p.User); err != nil {
		s.fail(c, "unlink email", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
