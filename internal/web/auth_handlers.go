package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-planner/internal/service"
)

const (
	msgBadCredentials = "Usuario o contraseña incorrectos"
	msgUsernameTaken  = "El nombre de usuario ya está en uso"
)

func (s *Server) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func (s *Server) login(c *gin.Context) {
	username := c.PostForm("username")
	user, err := s.auth.Login(c.Request.Context(), username, c.PostForm("password"))
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			s.log.Error("login", zap.Error(err))
		}
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{"Error": msgBadCredentials, "Username": username})
		return
	}

	if err := s.startSession(c, user.ID); err != nil {
		s.fail(c, "start session", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) registerPage(c *gin.Context) {
	c.HTML(http.StatusOK, "registro.html", gin.H{})
}

func (s *Server) register(c *gin.Context) {
	username := c.PostForm("username")
	user, err := s.auth.Register(c.Request.Context(), username, c.PostForm("password"))
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			c.HTML(http.StatusConflict, "registro.html", gin.H{"Error": msgUsernameTaken, "Username": username})
		case errors.As(err, &verr):
			c.HTML(http.StatusBadRequest, "registro.html", gin.H{"Error": verr.Message, "Username": username})
		default:
			s.fail(c, "register", err)
		}
		return
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID))
	if err := s.startSession(c, user.ID); err != nil {
		s.fail(c, "start session", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) logout(c *gin.Context) {
	if token, err := c.Cookie(s.cookie.Name); err == nil {
		if err := s.sessions.End(c.Request.Context(), token); err != nil {
			s.log.Warn("end session", zap.Error(err))
		}
	}
	s.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/login")
}

// startSession replaces any session the browser still carries with a fresh one.
func (s *Server) startSession(c *gin.Context, userID uint) error {
	ctx := c.Request.Context()
	if old, err := c.Cookie(s.cookie.Name); err == nil && old != "" {
		if err := s.sessions.End(ctx, old); err != nil {
			s.log.Warn("end previous session", zap.Error(err))
		}
	}
	token, _, err := s.sessions.Start(ctx, userID)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, token)
	return nil
}

// fail logs an unexpected error and renders a generic error page.
func (s *Server) fail(c *gin.Context, op string, err error) {
	s.log.Error(op, zap.Error(err), zap.String("path", c.Request.URL.Path))
	c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Message": "Ocurrió un error inesperado"})
	c.Abort()
}
