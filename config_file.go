package tomeauth

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// envPrefix prefixes every environment override read by [Config.ApplyEnv].
const envPrefix = "TOMEAUTH_"

// LoadConfig reads a YAML document over the defaults. Sections and fields
// absent from the document keep their default values. Durations are Go
// duration strings ("30m", "1s").
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// YAML renders c as a document accepted by [LoadConfig].
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ApplyEnv overrides fields from TOMEAUTH_* environment variables. Unset
// variables leave the field alone; malformed values are an error.
func (c *Config) ApplyEnv() error {
	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"SESSION_DURATION", &c.Session.Duration},
		{"SESSION_GRACE_PERIOD", &c.Session.GracePeriod},
		{"SESSION_REFRESH_THRESHOLD", &c.Session.RefreshThreshold},
		{"RATE_LIMIT_WINDOW", &c.RateLimit.Window},
		{"REFRESH_RETRY_DELAY", &c.Refresh.RetryDelay},
		{"SIGN_IN_SIMULATED_LATENCY", &c.SignIn.SimulatedLatency},
	}
	for _, d := range durations {
		v, ok := os.LookupEnv(envPrefix + d.name)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, d.name, err)
		}
		*d.dst = parsed
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"RATE_LIMIT_MAX_ATTEMPTS", &c.RateLimit.MaxAttempts},
		{"REFRESH_MAX_ATTEMPTS", &c.Refresh.MaxAttempts},
		{"STORAGE_REDIS_DB", &c.Storage.RedisDB},
		{"AUDIT_BUFFER_SIZE", &c.Audit.BufferSize},
	}
	for _, n := range ints {
		v, ok := os.LookupEnv(envPrefix + n.name)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, n.name, err)
		}
		*n.dst = parsed
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"AUDIT_ENABLED", &c.Audit.Enabled},
		{"METRICS_ENABLED", &c.Metrics.Enabled},
	}
	for _, b := range bools {
		v, ok := os.LookupEnv(envPrefix + b.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, b.name, err)
		}
		*b.dst = parsed
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"SESSION_KEY_PREFIX", &c.Session.KeyPrefix},
		{"SIGN_IN_SHARED_SECRET", &c.SignIn.SharedSecret},
		{"STORAGE_BACKEND", &c.Storage.Backend},
		{"STORAGE_REDIS_ADDR", &c.Storage.RedisAddr},
		{"STORAGE_REDIS_PASSWORD", &c.Storage.RedisPassword},
		{"STORAGE_FILE_DIR", &c.Storage.FileDir},
		{"STORAGE_SQL_DSN", &c.Storage.SQLDSN},
		{"LOG_LEVEL", &c.Logging.Level},
		{"LOG_FORMAT", &c.Logging.Format},
		{"HTTP_ADDR", &c.HTTP.Addr},
	}
	for _, s := range strs {
		if v, ok := os.LookupEnv(envPrefix + s.name); ok {
			*s.dst = v
		}
	}

	return nil
}
