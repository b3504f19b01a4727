package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alicebob/miniredis/v2"
	"github.com/maantoa/tomeauth"
	"github.com/maantoa/tomeauth/storage"
	"github.com/redis/go-redis/v9"
)

// openBackend opens the record store named by cfg.Backend. The redis backend
// starts an embedded miniredis when no address is configured.
func openBackend(ctx context.Context, cfg tomeauth.StorageConfig, logger *slog.Logger) (storage.Store, func(), error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStore(), func() {}, nil

	case "redis":
		addr := cfg.RedisAddr
		var mr *miniredis.Miniredis
		if addr == "" {
			var err error
			mr, err = miniredis.Run()
			if err != nil {
				return nil, nil, fmt.Errorf("start miniredis: %w", err)
			}
			addr = mr.Addr()
			logger.Info("using embedded miniredis", "addr", addr)
		}

		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{addr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cleanup := func() {
			_ = client.Close()
			if mr != nil {
				mr.Close()
			}
		}

		store := storage.NewRedisStore(client)
		if err := store.Ping(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		return store, cleanup, nil

	case "file":
		dir, err := expandHome(cfg.FileDir)
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.OpenFileStore(dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("using file store", "path", store.Path())
		return store, func() {}, nil

	case "sql":
		store, err := storage.OpenSQLite(cfg.SQLDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close sql store", "error", err)
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
