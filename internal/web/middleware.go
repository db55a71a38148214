package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-planner/internal/metrics"
	"task-planner/internal/model"
	"task-planner/internal/repository"
	"task-planner/internal/service"
)

// Principal is the authenticated caller, handed to protected handlers explicitly.
type Principal struct {
	User    *model.User
	Session *model.Session
}

type principalHandler func(c *gin.Context, p Principal)

// page guards a browser route: callers without a valid session go to the login page.
func (s *Server) page(h principalHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := s.resolve(c)
		if err != nil {
			if !errors.Is(err, service.ErrNoSession) {
				s.log.Error("resolve session", zap.Error(err))
			}
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		h(c, p)
	}
}

// api guards a JSON route: callers without a valid session get 401.
func (s *Server) api(h principalHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := s.resolve(c)
		if err != nil {
			if !errors.Is(err, service.ErrNoSession) {
				s.log.Error("resolve session", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no autenticado"})
			return
		}
		h(c, p)
	}
}

func (s *Server) resolve(c *gin.Context) (Principal, error) {
	token, err := c.Cookie(s.cookie.Name)
	if err != nil || token == "" {
		return Principal{}, service.ErrNoSession
	}

	ctx := c.Request.Context()
	session, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	user, err := s.auth.UserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Principal{}, service.ErrNoSession
		}
		return Principal{}, err
	}
	return Principal{User: user, Session: session}, nil
}

func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookie.Name, token, int(s.sessions.TTL().Seconds()), "/", "", s.cookie.Secure, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookie.Name, "", -1, "/", "", s.cookie.Secure, true)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func requestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		s.log.Error("panic in handler",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
