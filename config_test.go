package tomeauth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.Session.Duration != 30*time.Minute ||
		cfg.Session.GracePeriod != 30*time.Minute ||
		cfg.Session.RefreshThreshold != 5*time.Minute {
		t.Fatalf("unexpected session defaults %+v", cfg.Session)
	}
	if cfg.RateLimit.MaxAttempts != 5 || cfg.RateLimit.Window != 15*time.Minute {
		t.Fatalf("unexpected rate limit defaults %+v", cfg.RateLimit)
	}
	if cfg.Refresh.MaxAttempts != 3 || cfg.Refresh.RetryDelay != time.Second {
		t.Fatalf("unexpected refresh defaults %+v", cfg.Refresh)
	}
	if cfg.SignIn.SimulatedLatency != 500*time.Millisecond {
		t.Fatalf("unexpected sign-in latency %v", cfg.SignIn.SimulatedLatency)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "zero session duration",
			mutate: func(c *Config) {
				c.Session.Duration = 0
			},
		},
		{
			name: "negative grace period",
			mutate: func(c *Config) {
				c.Session.GracePeriod = -time.Second
			},
		},
		{
			name: "threshold not below duration",
			mutate: func(c *Config) {
				c.Session.RefreshThreshold = c.Session.Duration
			},
		},
		{
			name: "prefix with separator",
			mutate: func(c *Config) {
				c.Session.KeyPrefix = "a:b"
			},
		},
		{
			name: "empty prefix",
			mutate: func(c *Config) {
				c.Session.KeyPrefix = ""
			},
			wantValid: true,
		},
		{
			name: "duplicate key names",
			mutate: func(c *Config) {
				c.Session.Keys.State = c.Session.Keys.Session
			},
		},
		{
			name: "zero max attempts",
			mutate: func(c *Config) {
				c.RateLimit.MaxAttempts = 0
			},
		},
		{
			name: "zero window",
			mutate: func(c *Config) {
				c.RateLimit.Window = 0
			},
		},
		{
			name: "zero refresh attempts",
			mutate: func(c *Config) {
				c.Refresh.MaxAttempts = 0
			},
		},
		{
			name: "negative latency",
			mutate: func(c *Config) {
				c.SignIn.SimulatedLatency = -time.Millisecond
			},
		},
		{
			name: "unknown backend",
			mutate: func(c *Config) {
				c.Storage.Backend = "etcd"
			},
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
		},
		{
			name: "unknown log level",
			mutate: func(c *Config) {
				c.Logging.Level = "trace"
			},
		},
		{
			name: "unknown log format",
			mutate: func(c *Config) {
				c.Logging.Format = "xml"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tomeauth.yaml")
	doc := `
session:
  duration: 45m
  key_prefix: compendium
rate_limit:
  max_attempts: 3
storage:
  backend: redis
  redis_addr: cache:6379
logging:
  format: json
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Session.Duration != 45*time.Minute || cfg.Session.KeyPrefix != "compendium" {
		t.Fatalf("session section not applied: %+v", cfg.Session)
	}
	if cfg.Session.GracePeriod != 30*time.Minute {
		t.Fatalf("unset fields must keep defaults, got %v", cfg.Session.GracePeriod)
	}
	if cfg.Session.Keys.Session != "auth_session" {
		t.Fatalf("key names must keep defaults, got %+v", cfg.Session.Keys)
	}
	if cfg.RateLimit.MaxAttempts != 3 || cfg.RateLimit.Window != 15*time.Minute {
		t.Fatalf("rate limit section %+v", cfg.RateLimit)
	}
	if cfg.Storage.Backend != "redis" || cfg.Storage.RedisAddr != "cache:6379" {
		t.Fatalf("storage section %+v", cfg.Storage)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Fatalf("logging section %+v", cfg.Logging)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("rate_limit:\n  max_attempts: 0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(bad); err == nil || !strings.Contains(err.Error(), "MaxAttempts") {
		t.Fatalf("expected validation error, got %v", err)
	}

	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("session: [\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(broken); err == nil {
		t.Fatalf("expected parse error")
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Duration = 20 * time.Minute

	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(string(out), "duration: 20m0s") {
		t.Fatalf("durations should render as strings:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, out, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TOMEAUTH_SESSION_DURATION", "10m")
	t.Setenv("TOMEAUTH_RATE_LIMIT_MAX_ATTEMPTS", "7")
	t.Setenv("TOMEAUTH_AUDIT_ENABLED", "true")
	t.Setenv("TOMEAUTH_STORAGE_BACKEND", "sql")
	t.Setenv("TOMEAUTH_HTTP_ADDR", ":9090")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Session.Duration != 10*time.Minute ||
		cfg.RateLimit.MaxAttempts != 7 ||
		!cfg.Audit.Enabled ||
		cfg.Storage.Backend != "sql" ||
		cfg.HTTP.Addr != ":9090" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestApplyEnvRejectsMalformed(t *testing.T) {
	t.Setenv("TOMEAUTH_REFRESH_RETRY_DELAY", "soon")

	cfg := DefaultConfig()
	err := cfg.ApplyEnv()
	if err == nil || !strings.Contains(err.Error(), "TOMEAUTH_REFRESH_RETRY_DELAY") {
		t.Fatalf("expected error naming the variable, got %v", err)
	}
}
