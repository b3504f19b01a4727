package tomeauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/maantoa/tomeauth/credentials"
	internalaudit "github.com/maantoa/tomeauth/internal/audit"
	"github.com/maantoa/tomeauth/internal/flows"
	"github.com/maantoa/tomeauth/internal/locks"
	"github.com/maantoa/tomeauth/internal/rate"
	"github.com/maantoa/tomeauth/password"
	"github.com/maantoa/tomeauth/session"
	"github.com/maantoa/tomeauth/storage"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder is single use.
type Builder struct {
	config Config

	backend  storage.Store
	redis    redis.UniversalClient
	verifier credentials.Verifier

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the record backend. It takes precedence over WithRedis.
// Without either the engine keeps its records in memory.
func (b *Builder) WithStorage(store storage.Store) *Builder {
	b.backend = store
	return b
}

// WithRedis stores records in Redis through client. The caller owns client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithVerifier replaces the built-in development directory.
func (b *Builder) WithVerifier(v credentials.Verifier) *Builder {
	b.verifier = v
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for every timestamp and
// expiry decision.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithSleeper overrides how the engine waits for the simulated sign-in
// latency and between refresh attempts. sleep must return ctx.Err() when
// ctx ends first.
func (b *Builder) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) *Builder {
	b.sleep = sleep
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- STORAGE --------
	backend := b.backend
	if backend == nil && b.redis != nil {
		backend = storage.NewRedisStore(b.redis)
	}
	if backend == nil {
		backend = storage.NewMemoryStore()
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	var sleep flows.Sleeper = flows.SleepContext
	if b.sleep != nil {
		sleep = b.sleep
	}
	warn := func(msg string, args ...any) {
		logger.Warn(msg, args...)
	}

	// -------- CREDENTIALS --------
	verifier := b.verifier
	if verifier == nil {
		hasher, err := password.NewArgon2(cfg.Password.argon2())
		if err != nil {
			return nil, err
		}
		dir, err := credentials.NewStaticDirectory(credentials.DefaultEntries(), cfg.SignIn.SharedSecret, hasher)
		if err != nil {
			return nil, err
		}
		verifier = dir
	}

	store := session.NewStore(backend, cfg.Session.KeyPrefix, cfg.Session.Keys.sessionKeys())

	engine := &Engine{
		config:   cloneConfig(cfg),
		backend:  backend,
		store:    store,
		activity: session.NewActivityLog(store, now, warn),
		limiter: rate.New(store, rate.Config{
			MaxAttempts: cfg.RateLimit.MaxAttempts,
			Window:      cfg.RateLimit.Window,
		}, now, warn),
		locks:    &locks.Set{},
		profiles: &locks.RWSet{},
		verifier: verifier,
		shape:    validator.New(validator.WithRequiredStructEnabled()),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		now:     now,
	}

	// -------- FLOWS --------
	rt := flows.Runtime{
		ProfileFromContext: ProfileFromContext,
		Now:                now,
		MetricInc:          engine.metricInc,
		EmitAudit:          engine.emitAudit,
		Warn:               warn,
		LockProfile:        engine.profiles.Lock,
		RLockProfile:       engine.profiles.RLock,
	}
	validate := flows.ValidateDeps{
		Runtime:          rt,
		Store:            store,
		GracePeriod:      cfg.Session.GracePeriod,
		RefreshThreshold: cfg.Session.RefreshThreshold,
		DispatchRefresh:  engine.dispatchRefresh,
	}
	engine.flow = flows.New(flows.Deps{
		SignIn: flows.SignInDeps{
			Runtime:            rt,
			Store:              store,
			Activity:           engine.activity,
			Limiter:            engine.limiter,
			ValidateShape:      engine.validateShape,
			Verify:             verifier.Verify,
			InvalidCredentials: credentials.ErrInvalidCredentials,
			Sleep:              sleep,
			SimulatedLatency:   cfg.SignIn.SimulatedLatency,
			SessionDuration:    cfg.Session.Duration,
			ObserveLatency: func(d time.Duration) {
				engine.metrics.Observe(MetricSignInLatency, d)
			},
		},
		SignOut: flows.SignOutDeps{
			Runtime: rt,
			Store:   store,
		},
		CurrentUser: flows.CurrentUserDeps{
			Runtime:  rt,
			Store:    store,
			Validate: validate,
		},
		Validate: validate,
		Verify: flows.VerifyDeps{
			Runtime:         rt,
			Store:           store,
			Activity:        engine.activity,
			Validate:        validate,
			SessionDuration: cfg.Session.Duration,
			SchemaVersion:   SchemaVersion,
		},
		Refresh: flows.RefreshDeps{
			Runtime:         rt,
			Store:           store,
			Locks:           engine.locks,
			GracePeriod:     cfg.Session.GracePeriod,
			SessionDuration: cfg.Session.Duration,
			MaxAttempts:     cfg.Refresh.MaxAttempts,
			RetryDelay:      cfg.Refresh.RetryDelay,
			Sleep:           sleep,
		},
	})

	b.built = true

	return engine, nil
}

// credentialShape is the syntactic check applied before any credential
// lookup.
type credentialShape struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

func (e *Engine) validateShape(email, password string) error {
	if err := e.shape.Struct(credentialShape{Email: email, Password: password}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return nil
}
