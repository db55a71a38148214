package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"task-planner/internal/config"
	"task-planner/internal/logging"
	"task-planner/internal/metrics"
	"task-planner/internal/repository"
	"task-planner/internal/service"
	"task-planner/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "planner",
		Short:        "Weekly task planner web application",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			return migrate(configPath)
		},
	})
	return root
}

func migrate(configPath string) error {
	cfg, log, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := repository.NewDB(cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	closeDB(db, log)
	log.Info("schema migrated", zap.String("database", cfg.Database.Path))
	return nil
}

func serve(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := repository.NewDB(cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer closeDB(db, log)
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db handle: %w", err)
	}

	ready := []func(context.Context) error{sqlDB.PingContext}

	var sessionStore repository.SessionStore = repository.NewSessionRepository(db)
	if cfg.Session.Store == "redis" {
		rdb := repository.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		sessionStore = repository.NewRedisSessionStore(rdb)
		ready = append(ready, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	m := metrics.New()
	taskRepo := repository.NewTaskRepository(db)

	authSvc := service.NewAuthService(repository.NewUserRepository(db), cfg.Auth.BcryptCost)
	sessionSvc := service.NewSessionService(sessionStore, cfg.Session.Secret, cfg.Session.TTL)
	taskSvc := service.NewTaskService(taskRepo, loc)
	notifySvc := service.NewNotificationService(
		service.Channel(cfg.Notifications.Channel),
		taskRepo,
		service.NewSMTPMailer(cfg.SMTP),
		m,
		log.Named("notify"),
	)

	var google *service.GoogleLinker
	if cfg.Google.Enabled() {
		google = service.NewGoogleLinker(cfg.Google)
	} else {
		log.Info("google linking disabled: no client credentials")
	}

	scheduler := service.NewSchedulerService(loc, log.Named("scheduler"))
	if _, err := scheduler.SchedulePurge(cfg.Session.PurgeInterval, sessionSvc, m); err != nil {
		return fmt.Errorf("schedule session purge: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	server, err := web.NewServer(web.Deps{
		Auth:          authSvc,
		Sessions:      sessionSvc,
		Tasks:         taskSvc,
		Notifications: notifySvc,
		Google:        google,
		Metrics:       m,
		Log:           log.Named("http"),
		Cookie:        web.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.Secure},
		Ready: func(ctx context.Context) error {
			for _, check := range ready {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("web: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("planner listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("notifications", cfg.Notifications.Channel),
			zap.String("session_store", cfg.Session.Store),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

func bootstrap(configPath string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		return cfg, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

func closeDB(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database", zap.Error(err))
	}
}
