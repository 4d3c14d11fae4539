package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	ServerURL    string        `env:"INFECT_SERVER_URL" envDefault:"wss://ws.infect.live/ws"`
	IdentityPath string        `env:"INFECT_IDENTITY_PATH" envDefault:"infect-identity.db"`
	Cooldown     time.Duration `env:"INFECT_COOLDOWN" envDefault:"2s"`
	Flash        time.Duration `env:"INFECT_FLASH" envDefault:"150ms"`
	Notice       time.Duration `env:"INFECT_NOTICE" envDefault:"3s"`
	IDLength     int           `env:"INFECT_ID_LENGTH" envDefault:"6"`
	ReconnectMax time.Duration `env:"INFECT_RECONNECT_MAX" envDefault:"10s"`
	HTTPAddr     string        `env:"INFECT_HTTP_ADDR" envDefault:"127.0.0.1:8090"`
	LogLevel     string        `env:"INFECT_LOG_LEVEL" envDefault:"info"`
	LogDev       bool          `env:"INFECT_LOG_DEV" envDefault:"false"`
}

// Load reads an optional .env file, then the environment.
func Load(files ...string) (Config, error) {
	if err := loadDotenv(files...); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("%w: server url: %v", ErrInvalid, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: server url scheme must be ws or wss, got %q", ErrInvalid, u.Scheme)
	}
	if c.Cooldown <= 0 || c.Flash <= 0 || c.Notice <= 0 || c.ReconnectMax <= 0 {
		return fmt.Errorf("%w: durations must be positive", ErrInvalid)
	}
	if c.Flash > c.Cooldown {
		return fmt.Errorf("%w: flash (%s) longer than cooldown (%s)", ErrInvalid, c.Flash, c.Cooldown)
	}
	if c.IDLength < 4 {
		return fmt.Errorf("%w: id length must be at least 4", ErrInvalid)
	}
	return nil
}

// A missing default .env is fine; an explicitly named file must exist.
func loadDotenv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}
