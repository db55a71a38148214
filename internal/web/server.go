package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-planner/internal/metrics"
	"task-planner/internal/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Deps are the collaborators of the HTTP layer. Google may be nil when linking is not configured.
type Deps struct {
	Auth          *service.AuthService
	Sessions      *service.SessionService
	Tasks         *service.TaskService
	Notifications *service.NotificationService
	Google        *service.GoogleLinker
	Metrics       *metrics.Metrics
	Log           *zap.Logger
	Cookie        CookieConfig
	// Ready reports whether backing stores answer; nil means always ready.
	Ready func(ctx context.Context) error
}

// Server is the planner's web front end.
type Server struct {
	engine   *gin.Engine
	auth     *service.AuthService
	sessions *service.SessionService
	tasks    *service.TaskService
	notify   *service.NotificationService
	google   *service.GoogleLinker
	metrics  *metrics.Metrics
	log      *zap.Logger
	cookie   CookieConfig
	ready    func(ctx context.Context) error
	now      func() time.Time
}

func NewServer(d Deps) (*Server, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Cookie.Name == "" {
		d.Cookie.Name = "planner_session"
	}

	s := &Server{
		auth:     d.Auth,
		sessions: d.Sessions,
		tasks:    d.Tasks,
		notify:   d.Notifications,
		google:   d.Google,
		metrics:  d.Metrics,
		log:      d.Log,
		cookie:   d.Cookie,
		ready:    d.Ready,
		now:      time.Now,
	}

	tmpl, err := template.New("").Funcs(s.templateFuncs()).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	r := gin.New()
	r.Use(requestLogger(s.log), s.recovery())
	if s.metrics != nil {
		r.Use(requestMetrics(s.metrics))
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(static))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", s.readyz)

	// Public
	r.GET("/login", s.loginPage)
	r.POST("/login", s.login)
	r.GET("/registro", s.registerPage)
	r.POST("/registro", s.register)
	r.GET("/logout", s.logout)

	// Protected pages
	r.GET("/", s.page(s.home))
	r.POST("/agregar", s.page(s.addTask))
	r.GET("/tarea/:id", s.page(s.taskPage))
	r.POST("/editar/:id", s.page(s.editTask))
	r.POST("/guardar_detalle/:id", s.page(s.saveNote))
	r.POST("/finalizar/:id", s.page(s.finishTask))

	if s.notify != nil && s.notify.Channel() == service.ChannelPoll {
		api := r.Group("/api")
		api.GET("/check-notificaciones", s.api(s.checkNotifications))
		api.POST("/marcar-notificada/:id", s.api(s.markNotified))
	}

	if s.google != nil {
		r.GET("/link-google", s.page(s.linkGoogle))
		r.GET("/auth-google", s.page(s.googleCallback))
		r.GET("/unlink-google", s.page(s.unlinkGoogle))
	}

	s.engine = r
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) readyz(c *gin.Context) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.log.Warn("readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"due": func(t time.Time) string {
			return t.In(s.tasks.Location()).Format("02/01/2006 15:04")
		},
		"dueInput": func(t time.Time) string {
			return t.In(s.tasks.Location()).Format(service.DueLayout)
		},
		"overdue": func(t time.Time) bool {
			return !t.After(s.now())
		},
	}
}
