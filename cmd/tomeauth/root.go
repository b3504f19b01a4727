package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/maantoa/tomeauth"
	"github.com/spf13/cobra"
)

const appName = "tomeauth"

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	envFile    string
	profile    string

	config tomeauth.Config
	logger *slog.Logger
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Session lifecycle for the compendium",
		Long: `tomeauth signs users in and out of the compendium, keeps their
sessions alive and serves the same lifecycle over HTTP.

Configuration is read from --config (YAML), then overridden by
TOMEAUTH_* environment variables. A .env file is loaded first when present.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.PersistentFlags().StringVarP(&a.profile, "profile", "p", tomeauth.DefaultProfile, "profile to operate on")

	cmd.AddCommand(
		signInCmd(a),
		signOutCmd(a),
		whoamiCmd(a),
		verifyCmd(a),
		refreshCmd(a),
		statusCmd(a),
		healthCmd(a),
		configCmd(a),
		serveCmd(a),
		loadtestCmd(a),
	)

	return cmd
}

func (a *app) load(stderr io.Writer) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", a.envFile, err)
		}
	}

	cfg := tomeauth.DefaultConfig()
	if a.configPath != "" {
		loaded, err := tomeauth.LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.config = cfg
	a.logger = newLogger(stderr, cfg.Logging)
	return nil
}

func newLogger(w io.Writer, cfg tomeauth.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ctx scopes parent to the --profile flag.
func (a *app) ctx(parent context.Context) context.Context {
	return tomeauth.WithProfile(parent, a.profile)
}

// engine opens the configured backend and builds an engine over it. The
// returned cleanup closes both.
func (a *app) engine(ctx context.Context) (*tomeauth.Engine, func(), error) {
	backend, closeBackend, err := openBackend(ctx, a.config.Storage, a.logger)
	if err != nil {
		return nil, nil, err
	}

	b := tomeauth.New().
		WithConfig(a.config).
		WithStorage(backend).
		WithLogger(a.logger)
	if a.config.Audit.Enabled {
		b = b.WithAuditSink(tomeauth.NewSlogSink(a.logger.With("component", "audit")))
	}

	engine, err := b.Build()
	if err != nil {
		closeBackend()
		return nil, nil, err
	}

	return engine, func() {
		engine.Close()
		closeBackend()
	}, nil
}
