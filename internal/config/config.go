package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Port     string         `yaml:"port"`
	GinMode  string         `yaml:"gin_mode"`
	LogLevel string         `yaml:"log_level"`
	DB       DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Upload   UploadConfig   `yaml:"upload"`
	Feed     FeedConfig     `yaml:"feed"`
	Auth     AuthConfig     `yaml:"auth"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	// ConnectTimeout bounds the startup retry loop.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpiresHour int    `yaml:"expires_hours"`
}

type UploadConfig struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
}

type FeedConfig struct {
	PageCapacity int `yaml:"page_capacity"`
	PerType      int `yaml:"per_type"`
}

type AuthConfig struct {
	// RatePerMinute limits register/login attempts per client IP.
	RatePerMinute int `yaml:"rate_per_minute"`
	Burst         int `yaml:"burst"`
}

func Default() *Config {
	return &Config{
		Port:     "8080",
		LogLevel: "info",
		DB: DatabaseConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           "5432",
			User:           "postgres",
			Name:           "gallery_davinci",
			SSLMode:        "disable",
			ConnectTimeout: 30 * time.Second,
		},
		JWT: JWTConfig{
			ExpiresHour: 7 * 24,
		},
		Upload: UploadConfig{
			Dir:     "uploads",
			BaseURL: "/uploads",
		},
		Feed: FeedConfig{
			PageCapacity: 20,
			PerType:      10,
		},
		Auth: AuthConfig{
			RatePerMinute: 30,
			Burst:         10,
		},
	}
}

// Load reads .env, then the optional YAML file at path, then applies
// environment overrides on top.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded, continuing with environment variables")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.GinMode, "GIN_MODE")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	setString(&cfg.DB.Driver, "DB_DRIVER")
	setString(&cfg.DB.DSN, "DB_DSN")
	setString(&cfg.DB.Host, "DB_HOST")
	setString(&cfg.DB.Port, "DB_PORT")
	setString(&cfg.DB.User, "DB_USER")
	setString(&cfg.DB.Password, "DB_PASSWORD")
	setString(&cfg.DB.Name, "DB_NAME")
	setString(&cfg.DB.SSLMode, "DB_SSLMODE")

	setString(&cfg.JWT.Secret, "JWT_SECRET")
	if v := os.Getenv("JWT_EXPIRES_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h > 0 {
			cfg.JWT.ExpiresHour = h
		}
	}

	setString(&cfg.Upload.Dir, "UPLOAD_DIR")
	setString(&cfg.Upload.BaseURL, "UPLOAD_BASE_URL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.DB.Driver != "postgres" && c.DB.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
	}
	if c.Feed.PageCapacity < 1 || c.Feed.PerType < 1 {
		return errors.New("feed page sizes must be positive")
	}
	return nil
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpiresHour) * time.Hour
}

// PostgresDSN builds the libpq-style DSN from the individual fields unless
// an explicit DSN was given.
func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s user=%s dbname=%s port=%s sslmode=%s password=%s",
		d.Host, d.User, d.Name, d.Port, d.SSLMode, d.Password)
}
