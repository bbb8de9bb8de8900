package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	App struct {
		LogLevel           string `toml:"log_level"`
		RefreshIntervalSec int    `toml:"refresh_interval_sec"`
	} `toml:"app"`

	HTTP struct {
		Addr                 string `toml:"addr"`
		ReadHeaderTimeoutSec int    `toml:"read_header_timeout_sec"`
	} `toml:"http"`

	Pyth struct {
		BaseURL    string  `toml:"base_url"`
		TimeoutSec int     `toml:"timeout_sec"`
		RatePerSec float64 `toml:"rate_per_sec"`
		Burst      int     `toml:"burst"`
	} `toml:"pyth"`

	Dexscreener struct {
		BaseURL    string `toml:"base_url"`
		TimeoutSec int    `toml:"timeout_sec"`
	} `toml:"dexscreener"`

	Storage struct {
		// 第一个为主存储，其余为镜像
		Drivers []string `toml:"drivers"`

		File struct {
			Path string `toml:"path"`
		} `toml:"file"`

		SQLite struct {
			Path string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			DSN string `toml:"dsn"`
		} `toml:"postgres"`

		Redis struct {
			Addr     string `toml:"addr"`
			Password string `toml:"password"`
			DB       int    `toml:"db"`
			Key      string `toml:"key"`
		} `toml:"redis"`
	} `toml:"storage"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied, for running without a file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

func ApplyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.App.LogLevel) == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.RefreshIntervalSec <= 0 {
		cfg.App.RefreshIntervalSec = 60
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadHeaderTimeoutSec <= 0 {
		cfg.HTTP.ReadHeaderTimeoutSec = 10
	}
	if strings.TrimSpace(cfg.Pyth.BaseURL) == "" {
		cfg.Pyth.BaseURL = "https://hermes.pyth.network"
	}
	if cfg.Pyth.TimeoutSec <= 0 {
		cfg.Pyth.TimeoutSec = 10
	}
	if cfg.Pyth.RatePerSec <= 0 {
		cfg.Pyth.RatePerSec = 10
	}
	if cfg.Pyth.Burst <= 0 {
		cfg.Pyth.Burst = 20
	}
	if strings.TrimSpace(cfg.Dexscreener.BaseURL) == "" {
		cfg.Dexscreener.BaseURL = "https://api.dexscreener.com"
	}
	if cfg.Dexscreener.TimeoutSec <= 0 {
		cfg.Dexscreener.TimeoutSec = 10
	}
	cfg.Storage.Drivers = normalizeDrivers(cfg.Storage.Drivers)
	if len(cfg.Storage.Drivers) == 0 {
		cfg.Storage.Drivers = []string{DriverFile}
	}
	if strings.TrimSpace(cfg.Storage.File.Path) == "" {
		cfg.Storage.File.Path = "data/strategies.json"
	}
	if strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
		cfg.Storage.SQLite.Path = "data/livefeed.db"
	}
	if strings.TrimSpace(cfg.Storage.Redis.Key) == "" {
		cfg.Storage.Redis.Key = "livefeed:strategies"
	}
}

func validate(cfg *Config) error {
	for _, d := range cfg.Storage.Drivers {
		switch d {
		case DriverMemory, DriverFile, DriverSQLite:
		case DriverPostgres:
			if strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
				return errors.New("storage.postgres.dsn empty but postgres enabled")
			}
		case DriverRedis:
			if strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
				return errors.New("storage.redis.addr empty but redis enabled")
			}
		default:
			return fmt.Errorf("storage.drivers: unknown driver %q", d)
		}
	}
	return nil
}

func normalizeDrivers(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		d := strings.ToLower(strings.TrimSpace(s))
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.App.RefreshIntervalSec) * time.Second
}

func (c *Config) PythTimeout() time.Duration {
	return time.Duration(c.Pyth.TimeoutSec) * time.Second
}

func (c *Config) DexscreenerTimeout() time.Duration {
	return time.Duration(c.Dexscreener.TimeoutSec) * time.Second
}

func (c *Config) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.HTTP.ReadHeaderTimeoutSec) * time.Second
}
