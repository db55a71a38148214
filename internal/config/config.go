package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the planner.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Log           LogConfig           `yaml:"log"`
	Auth          AuthConfig          `yaml:"auth"`
	Session       SessionConfig       `yaml:"session"`
	Redis         RedisConfig         `yaml:"redis"`
	Tasks         TasksConfig         `yaml:"tasks"`
	Notifications NotificationsConfig `yaml:"notifications"`
	SMTP          SMTPConfig          `yaml:"smtp"`
	Google        GoogleConfig        `yaml:"google"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

type SessionConfig struct {
	Secret        string        `yaml:"secret"`
	CookieName    string        `yaml:"cookie_name"`
	Secure        bool          `yaml:"secure"`
	TTL           time.Duration `yaml:"ttl"`
	Store         string        `yaml:"store"` // sql or redis
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TasksConfig struct {
	Timezone string `yaml:"timezone"`
}

type NotificationsConfig struct {
	Channel string `yaml:"channel"` // poll or email
}

type SMTPConfig struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	From      string        `yaml:"from"`
	TLSPolicy string        `yaml:"tls_policy"` // mandatory, opportunistic or none
	SSL       bool          `yaml:"ssl"`
	Timeout   time.Duration `yaml:"timeout"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
	UserInfoURL  string `yaml:"userinfo_url"`
}

// Enabled reports whether Google account linking is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Default returns the settings used when nothing else is provided.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8000"},
		Database: DatabaseConfig{Path: "tareas.db"},
		Log:      LogConfig{Level: "info"},
		Auth:     AuthConfig{BcryptCost: 10},
		Session: SessionConfig{
			CookieName:    "planner_session",
			TTL:           30 * 24 * time.Hour,
			Store:         "sql",
			PurgeInterval: time.Hour,
		},
		Redis:         RedisConfig{Addr: "localhost:6379"},
		Tasks:         TasksConfig{Timezone: "Local"},
		Notifications: NotificationsConfig{Channel: "poll"},
		SMTP: SMTPConfig{
			Host:      "smtp.gmail.com",
			Port:      587,
			TLSPolicy: "mandatory",
			Timeout:   10 * time.Second,
		},
		Google: GoogleConfig{
			RedirectURL: "http://localhost:8000/auth-google",
		},
	}
}

// Load reads configuration from an optional YAML file, then .env, then environment variables.
// An empty path skips the YAML file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config %q: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks required settings and enumerated values.
func (c Config) Validate() error {
	if c.Session.Secret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	switch c.Session.Store {
	case "sql", "redis":
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	switch c.Notifications.Channel {
	case "poll", "email":
	default:
		return fmt.Errorf("unknown notification channel %q", c.Notifications.Channel)
	}
	// linked emails only come from Google, so the email channel needs it
	if c.Notifications.Channel == "email" && !c.Google.Enabled() {
		return errors.New("notification channel email requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")
	}
	switch c.SMTP.TLSPolicy {
	case "mandatory", "opportunistic", "none":
	default:
		return fmt.Errorf("unknown smtp tls policy %q", c.SMTP.TLSPolicy)
	}
	if c.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the timezone due timestamps are interpreted in.
func (c Config) Location() (*time.Location, error) {
	if c.Tasks.Timezone == "" || c.Tasks.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Tasks.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Tasks.Timezone, err)
	}
	return loc, nil
}

func overrideFromEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Database.Path, "DATABASE_PATH")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setInt(&cfg.Auth.BcryptCost, "BCRYPT_COST")

	setString(&cfg.Session.Secret, "SESSION_SECRET")
	setString(&cfg.Session.CookieName, "SESSION_COOKIE_NAME")
	setBool(&cfg.Session.Secure, "SESSION_SECURE")
	setDuration(&cfg.Session.TTL, "SESSION_TTL")
	setString(&cfg.Session.Store, "SESSION_STORE")
	setDuration(&cfg.Session.PurgeInterval, "SESSION_PURGE_INTERVAL")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.Tasks.Timezone, "TASKS_TIMEZONE")
	setString(&cfg.Notifications.Channel, "NOTIFICATION_CHANNEL")

	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setInt(&cfg.SMTP.Port, "SMTP_PORT")
	setString(&cfg.SMTP.Username, "SMTP_USERNAME")
	setString(&cfg.SMTP.Password, "SMTP_PASSWORD")
	setString(&cfg.SMTP.From, "SMTP_FROM")
	setString(&cfg.SMTP.TLSPolicy, "SMTP_TLS_POLICY")
	setBool(&cfg.SMTP.SSL, "SMTP_SSL")
	setDuration(&cfg.SMTP.Timeout, "SMTP_TIMEOUT")

	setString(&cfg.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&cfg.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&cfg.Google.RedirectURL, "GOOGLE_REDIRECT_URL")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
}
