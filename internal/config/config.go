package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Port            string        `yaml:"port"`
	DBDriver        string        `yaml:"db_driver"`
	DBDSN           string        `yaml:"db_dsn"`
	Secret          string        `yaml:"secret"`
	SecureCookies   bool          `yaml:"secure_cookies"`
	MediaDir        string        `yaml:"media_dir"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LoginRate       LoginRate     `yaml:"login_rate"`
	AdminPanel      AdminPanel    `yaml:"admin_panel"`
	BootstrapAdmin  *Bootstrap    `yaml:"bootstrap_admin"`
}

// LoginRate bounds how many login attempts one client address may make.
type LoginRate struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

// AdminPanel lists the accounts, besides superusers, that may open /admin/.
type AdminPanel struct {
	AllowedUsernames []string `yaml:"allowed_usernames"`
	AllowedFullNames []string `yaml:"allowed_full_names"`
}

type Bootstrap struct {
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

func Default() *Config {
	return &Config{
		Port:            "8080",
		DBDriver:        "sqlite3",
		DBDSN:           "evidence.db",
		Secret:          "change-me-in-production",
		MediaDir:        "media",
		MaxUploadMB:     25,
		LogLevel:        "info",
		LogFormat:       "json",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LoginRate:       LoginRate{PerMinute: 10, Burst: 5},
	}
}

// Load reads filename on top of the defaults. A missing file is not an error;
// callers get the defaults plus environment overrides.
func Load(filename string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.DBDriver = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		c.DBDSN = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.Secret = v
	}
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return errors.New("db_dsn is required")
	}
	if c.Secret == "" {
		return errors.New("secret is required")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("max_upload_mb must be positive")
	}
	if c.LoginRate.PerMinute <= 0 || c.LoginRate.Burst <= 0 {
		return errors.New("login_rate values must be positive")
	}
	return nil
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
