package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"lendit-admin/internal/platform/db"
)

const DefaultPath = "config/config.yaml"

// セッションの保存先
const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

// バックエンド（外部 REST API）
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	Driver            string        `yaml:"driver"` // memory | mysql | sqlite | postgres
	DSN               string        `yaml:"dsn"`
	Secret            string        `yaml:"secret"`
	CookieName        string        `yaml:"cookie_name"`
	InactivityTimeout time.Duration `yaml:"inactivity_timeout"`
	RefreshWindow     time.Duration `yaml:"refresh_window"`
	VerifyInterval    time.Duration `yaml:"verify_interval"`
}

type ImportConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

type Config struct {
	Version     string            `yaml:"version"`
	Mode        string            `yaml:"mode"`
	Listen      string            `yaml:"listen"`
	Backend     BackendConfig     `yaml:"backend"`
	Session     SessionConfig     `yaml:"session"`
	Import      ImportConfig      `yaml:"import"`
	DB          db.DatabaseConfig `yaml:"database"`
	Certificate Certs             `yaml:"certificate"`
}

// Load: yaml を読み込み、.env と LENDIT_* 環境変数で上書きする
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	buf, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// 設定ファイルなしでも環境変数だけで起動できる
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg, os.Getenv)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("LENDIT_MODE", &cfg.Mode)
	str("LENDIT_LISTEN", &cfg.Listen)
	str("LENDIT_BACKEND_URL", &cfg.Backend.BaseURL)
	dur("LENDIT_BACKEND_TIMEOUT", &cfg.Backend.Timeout)
	str("LENDIT_SESSION_DRIVER", &cfg.Session.Driver)
	str("LENDIT_SESSION_DSN", &cfg.Session.DSN)
	str("LENDIT_SESSION_SECRET", &cfg.Session.Secret)
	dur("LENDIT_INACTIVITY_TIMEOUT", &cfg.Session.InactivityTimeout)
	dur("LENDIT_REFRESH_WINDOW", &cfg.Session.RefreshWindow)
	str("LENDIT_DB_HOST", &cfg.DB.Host)
	str("LENDIT_DB_USER", &cfg.DB.Username)
	str("LENDIT_DB_PASSWORD", &cfg.DB.Password)
	str("LENDIT_DB_NAME", &cfg.DB.DBName)
	if v := getenv("LENDIT_DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.DB.Port = p
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "dev"
	}
	if c.Listen == "" {
		c.Listen = ":8443"
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:8000"
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 15 * time.Second
	}
	if c.Session.Driver == "" {
		c.Session.Driver = DriverMemory
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "lendit_sid"
	}
	if c.Session.InactivityTimeout <= 0 {
		c.Session.InactivityTimeout = 30 * time.Minute
	}
	if c.Session.RefreshWindow <= 0 {
		c.Session.RefreshWindow = 5 * time.Minute
	}
	if c.Session.VerifyInterval <= 0 {
		c.Session.VerifyInterval = time.Minute
	}
	if c.Import.Timeout <= 0 {
		c.Import.Timeout = 30 * time.Second
	}
	if c.Import.MaxBytes <= 0 {
		c.Import.MaxBytes = 10 << 20
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
}

func (c *Config) Validate() error {
	if c.Mode != "dev" && c.Mode != "release" {
		return fmt.Errorf("invalid mode %q: want dev or release", c.Mode)
	}
	switch c.Session.Driver {
	case DriverMemory:
	case DriverMySQL, DriverSQLite, DriverPostgres:
		if c.Session.Secret == "" {
			return fmt.Errorf("session.secret is required for driver %q", c.Session.Driver)
		}
		if c.Session.Driver != DriverMySQL && c.Session.DSN == "" {
			return fmt.Errorf("session.dsn is required for driver %q", c.Session.Driver)
		}
	default:
		return fmt.Errorf("unknown session driver %q", c.Session.Driver)
	}
	if c.Session.RefreshWindow >= c.Session.InactivityTimeout {
		return errors.New("session.refresh_window must be shorter than session.inactivity_timeout")
	}
	return nil
}
