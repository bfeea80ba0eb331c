// Package config loads ratelimitd's runtime configuration from the
// environment, grounded on the teacher's envMap/parseXEnv helpers.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/axiomwire/ratelimitd/pkg/ratelimit"
)

// Config is the fully resolved runtime configuration for cmd/ratelimitd.
type Config struct {
	Algorithm string
	FailMode  ratelimit.FailMode

	StoreHost      string
	StorePort      int
	StoreDB        int
	StoreTimeoutMs int

	BreakerThreshold       int
	BreakerCooldownSeconds int

	RulesJSON      string
	MetricsEnabled bool
	HTTPListenAddr string
	LogLevel       string
}

const (
	defaultAlgorithm              = "token_bucket"
	defaultFailMode               = ratelimit.FailOpen
	defaultStoreHost              = "localhost"
	defaultStorePort              = 6379
	defaultStoreDB                = 0
	defaultStoreTimeoutMs         = 100
	defaultBreakerThreshold       = 5
	defaultBreakerCooldownSeconds = 60
	defaultHTTPListenAddr         = ":8080"
	defaultLogLevel               = "info"
)

// Load reads configuration from environ (the os.Environ() format,
// "KEY=VALUE" entries), applying spec.md section 6's defaults for anything
// unset.
func Load(environ []string) (Config, error) {
	values := envMap(environ)

	cfg := Config{
		Algorithm:              defaultAlgorithm,
		FailMode:               defaultFailMode,
		StoreHost:              defaultStoreHost,
		StorePort:              defaultStorePort,
		StoreDB:                defaultStoreDB,
		StoreTimeoutMs:         defaultStoreTimeoutMs,
		BreakerThreshold:       defaultBreakerThreshold,
		BreakerCooldownSeconds: defaultBreakerCooldownSeconds,
		HTTPListenAddr:         defaultHTTPListenAddr,
		LogLevel:               defaultLogLevel,
	}

	if v, ok := values["ALGORITHM"]; ok {
		cfg.Algorithm = strings.ToLower(v)
	}
	if v, ok := values["FAIL_MODE"]; ok {
		switch strings.ToLower(v) {
		case string(ratelimit.FailOpen):
			cfg.FailMode = ratelimit.FailOpen
		case string(ratelimit.FailClosed):
			cfg.FailMode = ratelimit.FailClosed
		default:
			return Config{}, errors.Errorf("invalid FAIL_MODE %q: must be %q or %q", v, ratelimit.FailOpen, ratelimit.FailClosed)
		}
	}
	if v, ok := values["STORE_HOST"]; ok {
		cfg.StoreHost = v
	}
	if v, ok := values["STORE_PORT"]; ok {
		n, err := parseIntEnv("STORE_PORT", v)
		if err != nil {
			return Config{}, err
		}
		cfg.StorePort = int(n)
	}
	if v, ok := values["STORE_DB"]; ok {
		n, err := parseIntEnv("STORE_DB", v)
		if err != nil {
			return Config{}, err
		}
		cfg.StoreDB = int(n)
	}
	if v, ok := values["STORE_TIMEOUT_MS"]; ok {
		n, err := parseIntEnv("STORE_TIMEOUT_MS", v)
		if err != nil {
			return Config{}, err
		}
		cfg.StoreTimeoutMs = int(n)
	}
	if v, ok := values["BREAKER_THRESHOLD"]; ok {
		n, err := parseIntEnv("BREAKER_THRESHOLD", v)
		if err != nil {
			return Config{}, err
		}
		cfg.BreakerThreshold = int(n)
	}
	if v, ok := values["BREAKER_COOLDOWN_SECONDS"]; ok {
		n, err := parseIntEnv("BREAKER_COOLDOWN_SECONDS", v)
		if err != nil {
			return Config{}, err
		}
		cfg.BreakerCooldownSeconds = int(n)
	}
	if v, ok := values["RATELIMIT_RULES_JSON"]; ok {
		cfg.RulesJSON = v
	}
	if v, ok := values["METRICS_ENABLED"]; ok {
		b, err := parseBoolEnv("METRICS_ENABLED", v)
		if err != nil {
			return Config{}, err
		}
		cfg.MetricsEnabled = b
	} else {
		cfg.MetricsEnabled = true
	}
	if v, ok := values["HTTP_LISTEN_ADDR"]; ok {
		cfg.HTTPListenAddr = v
	}
	if v, ok := values["LOG_LEVEL"]; ok {
		cfg.LogLevel = v
	}

	return cfg, nil
}

// StoreTimeout is StoreTimeoutMs as a time.Duration.
func (c Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMs) * time.Millisecond
}

// BreakerCooldown is BreakerCooldownSeconds as a time.Duration.
func (c Config) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSeconds) * time.Second
}

func envMap(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		values[key] = parts[1]
	}
	return values
}

func parseIntEnv(name, value string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid env value for %s: %q", name, value)
	}
	return n, nil
}

func parseBoolEnv(name, value string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, errors.Errorf("invalid env value for %s: %q", name, value)
	}
	return b, nil
}
