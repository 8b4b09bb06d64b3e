package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	httpAddrEnvName       = "HTTP_ADDR"
	allowedOriginsEnvName = "ALLOWED_ORIGINS"
	appEnvEnvName         = "APP_ENV"
	logLevelEnvName       = "LOG_LEVEL"
	wsIdleTimeoutEnvName  = "WS_IDLE_TIMEOUT"
	statsIntervalEnvName  = "STATS_INTERVAL"
)

type Config struct {
	HTTPAddr       string
	AllowedOrigins []string
	AppEnv         string
	LogLevel       string
	WSIdleTimeout  time.Duration
	StatsInterval  time.Duration
}

func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		AllowedOrigins: []string{"http://localhost:3000"},
		AppEnv:         "development",
		LogLevel:       "info",
		WSIdleTimeout:  5 * time.Minute,
		StatsInterval:  30 * time.Second,
	}
}

// Load reads a .env file into the process environment. A missing file is
// reported as false, not as an error.
func Load(path string) (bool, error) {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", path, err)
	}
	return true, nil
}

// FromEnv builds a Config from the environment on top of Default.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(httpAddrEnvName); ok && v != "" {
		cfg.HTTPAddr = v
	}
	if v, ok := lookup(allowedOriginsEnvName); ok && v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup(appEnvEnvName); ok && v != "" {
		cfg.AppEnv = v
	}
	if v, ok := lookup(logLevelEnvName); ok && v != "" {
		cfg.LogLevel = v
	}

	var err error
	if cfg.WSIdleTimeout, err = duration(lookup, wsIdleTimeoutEnvName, cfg.WSIdleTimeout); err != nil {
		return Config{}, err
	}
	if cfg.StatsInterval, err = duration(lookup, statsIntervalEnvName, cfg.StatsInterval); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func duration(lookup func(string) (string, bool), name string, def time.Duration) (time.Duration, error) {
	v, ok := lookup(name)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c Config) Production() bool { return c.AppEnv == "production" }
