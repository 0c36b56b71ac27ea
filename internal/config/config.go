package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultPath = "./dictd.yaml"

type Config struct {
	Server       ServerConfig  `yaml:"server"`
	Log          LogConfig     `yaml:"log"`
	Search       SearchConfig  `yaml:"search"`
	Session      SessionConfig `yaml:"session"`
	Dictionaries []DictConfig  `yaml:"dictionaries"`
}

type ServerConfig struct {
	Listen          string        `yaml:"listen"           env:"DICTD_LISTEN"           env-default:":8080"`
	BasePath        string        `yaml:"base_path"        env:"DICTD_BASE_PATH"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"DICTD_READ_TIMEOUT"     env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"DICTD_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"DICTD_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"DICTD_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"DICTD_LOG_FORMAT" env-default:"json"`
}

// SearchConfig bounds the word store lookups shared by every session.
type SearchConfig struct {
	Limit       int           `yaml:"limit"        env:"DICTD_SEARCH_LIMIT"        env-default:"20"`
	CacheSize   int           `yaml:"cache_size"   env:"DICTD_SEARCH_CACHE_SIZE"   env-default:"1024"`
	CacheTTL    time.Duration `yaml:"cache_ttl"    env:"DICTD_SEARCH_CACHE_TTL"    env-default:"5m"`
	WaitTimeout time.Duration `yaml:"wait_timeout" env:"DICTD_SEARCH_WAIT_TIMEOUT" env-default:"10s"`
}

type SessionConfig struct {
	MaxSessions int           `yaml:"max_sessions" env:"DICTD_MAX_SESSIONS" env-default:"1000"`
	TTL         time.Duration `yaml:"ttl"          env:"DICTD_SESSION_TTL"  env-default:"30m"`
}

type DictConfig struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`
	CaseFold  bool   `yaml:"case_fold"`
}

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults. An empty path falls back to CONFIG_PATH and
// then to ./dictd.yaml; a missing default file means ENV + defaults only.
func Load(path string) (*Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if !explicit {
		path = defaultPath
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	case explicit || !errors.Is(statErr, os.ErrNotExist):
		return nil, fmt.Errorf("config: file %s: %w", path, statErr)
	default:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}
