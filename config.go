package tomeauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maantoa/tomeauth/credentials"
	"github.com/maantoa/tomeauth/password"
	"github.com/maantoa/tomeauth/session"
)

// Config holds every engine tunable. Obtain defaults from [DefaultConfig] and
// override what you need.
type Config struct {
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	SignIn    SignInConfig    `yaml:"sign_in"`
	Password  PasswordConfig  `yaml:"password"`
	Storage   StorageConfig   `yaml:"storage"`
	Audit     AuditConfig     `yaml:"audit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	HTTP      HTTPConfig      `yaml:"http"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and the storage key layout.
type SessionConfig struct {
	// Duration is both the session lifetime written at sign-in and refresh,
	// and the inactivity timeout.
	Duration         time.Duration `yaml:"duration"`
	GracePeriod      time.Duration `yaml:"grace_period"`
	RefreshThreshold time.Duration `yaml:"refresh_threshold"`
	KeyPrefix        string        `yaml:"key_prefix"`
	Keys             KeysConfig    `yaml:"keys"`
}

// KeysConfig names the record keys within a profile namespace.
type KeysConfig struct {
	User      string `yaml:"user"`
	Session   string `yaml:"session"`
	State     string `yaml:"state"`
	Activity  string `yaml:"activity"`
	RateLimit string `yaml:"rate_limit"`
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig throttles failed sign-in attempts per profile.
type RateLimitConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Window      time.Duration `yaml:"window"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls session refresh retries. MaxAttempts counts the
// first try.
type RefreshConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

/*
====================================
SIGN-IN CONFIG
====================================
*/

// SignInConfig controls the credential check.
type SignInConfig struct {
	SimulatedLatency time.Duration `yaml:"simulated_latency"`
	// SharedSecret is the secret of the built-in development directory. It
	// is ignored when a custom verifier is supplied.
	SharedSecret string `yaml:"shared_secret"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig tunes the Argon2id hash of the built-in directory's secret.
type PasswordConfig struct {
	Memory      uint32 `yaml:"memory"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	SaltLength  uint32 `yaml:"salt_length"`
	KeyLength   uint32 `yaml:"key_length"`
	MinLength   int    `yaml:"min_length"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig selects the backend opened by the command-line tool. The
// library itself takes a ready [storage.Store] through the Builder.
type StorageConfig struct {
	Backend       string `yaml:"backend"` // memory | redis | file | sql
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	FileDir       string `yaml:"file_dir"`
	SQLDSN        string `yaml:"sql_dsn"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls async audit delivery.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process metrics.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
LOGGING / HTTP CONFIG
====================================
*/

// LoggingConfig configures the command-line tool's slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// HTTPConfig configures the HTTP surface served by the command-line tool.
type HTTPConfig struct {
	Addr          string `yaml:"addr"`
	ProfileHeader string `yaml:"profile_header"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	keys := session.DefaultKeys()
	pw := password.DefaultConfig()
	return Config{
		Session: SessionConfig{
			Duration:         30 * time.Minute,
			GracePeriod:      30 * time.Minute,
			RefreshThreshold: 5 * time.Minute,
			KeyPrefix:        "tomeauth",
			Keys: KeysConfig{
				User:      keys.User,
				Session:   keys.Session,
				State:     keys.State,
				Activity:  keys.Activity,
				RateLimit: keys.RateLimit,
			},
		},
		RateLimit: RateLimitConfig{
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		Refresh: RefreshConfig{
			MaxAttempts: 3,
			RetryDelay:  time.Second,
		},
		SignIn: SignInConfig{
			SimulatedLatency: 500 * time.Millisecond,
			SharedSecret:     credentials.DefaultSharedSecret,
		},
		Password: PasswordConfig{
			Memory:      pw.Memory,
			Time:        pw.Time,
			Parallelism: pw.Parallelism,
			SaltLength:  pw.SaltLength,
			KeyLength:   pw.KeyLength,
			MinLength:   pw.MinLength,
		},
		Storage: StorageConfig{
			Backend:   "file",
			RedisAddr: "127.0.0.1:6379",
			FileDir:   "~/.tomeauth",
			SQLDSN:    "tomeauth.db",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		HTTP: HTTPConfig{
			Addr:          ":8080",
			ProfileHeader: "X-Profile-ID",
		},
	}
}

func cloneConfig(cfg Config) Config {
	// every field is a value type
	return cfg
}

func (p PasswordConfig) argon2() password.Config {
	return password.Config{
		Memory:      p.Memory,
		Time:        p.Time,
		Parallelism: p.Parallelism,
		SaltLength:  p.SaltLength,
		KeyLength:   p.KeyLength,
		MinLength:   p.MinLength,
	}
}

func (k KeysConfig) sessionKeys() session.Keys {
	return session.Keys{
		User:      k.User,
		Session:   k.Session,
		State:     k.State,
		Activity:  k.Activity,
		RateLimit: k.RateLimit,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Session
	if c.Session.Duration <= 0 {
		return errors.New("Session Duration must be > 0")
	}
	if c.Session.GracePeriod < 0 {
		return errors.New("Session GracePeriod must be >= 0")
	}
	if c.Session.RefreshThreshold < 0 {
		return errors.New("Session RefreshThreshold must be >= 0")
	}
	if c.Session.RefreshThreshold >= c.Session.Duration {
		return errors.New("Session RefreshThreshold must be < Duration")
	}
	if strings.Contains(c.Session.KeyPrefix, ":") {
		return errors.New("Session KeyPrefix must not contain ':'")
	}
	seen := map[string]string{}
	for name, v := range map[string]string{
		"User":      c.Session.Keys.User,
		"Session":   c.Session.Keys.Session,
		"State":     c.Session.Keys.State,
		"Activity":  c.Session.Keys.Activity,
		"RateLimit": c.Session.Keys.RateLimit,
	} {
		if v == "" {
			continue
		}
		if other, dup := seen[v]; dup {
			return fmt.Errorf("Session Keys %s and %s share the name %q", name, other, v)
		}
		seen[v] = name
	}

	// Rate limit
	if c.RateLimit.MaxAttempts < 1 {
		return errors.New("RateLimit MaxAttempts must be >= 1")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit Window must be > 0")
	}

	// Refresh
	if c.Refresh.MaxAttempts < 1 {
		return errors.New("Refresh MaxAttempts must be >= 1")
	}
	if c.Refresh.RetryDelay < 0 {
		return errors.New("Refresh RetryDelay must be >= 0")
	}

	// Sign-in
	if c.SignIn.SimulatedLatency < 0 {
		return errors.New("SignIn SimulatedLatency must be >= 0")
	}

	// Password
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	// Storage
	switch c.Storage.Backend {
	case "memory", "redis", "file", "sql":
	default:
		return fmt.Errorf("Storage Backend %q must be memory, redis, file or sql", c.Storage.Backend)
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("Logging Level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("Logging Format %q must be text or json", c.Logging.Format)
	}

	return nil
}
