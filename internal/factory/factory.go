// Package factory wires the store's components together for the daemon
// and for tests.
package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deployment-bingo/bingosync/internal/dependencies/clock"
	"github.com/deployment-bingo/bingosync/internal/dependencies/random"
	"github.com/deployment-bingo/bingosync/internal/server"
	"github.com/deployment-bingo/bingosync/internal/storage"
	"github.com/deployment-bingo/bingosync/internal/storage/memory"
	redisstorage "github.com/deployment-bingo/bingosync/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	Service  *server.Service
	Hub      *server.Hub
	Metrics  *server.Metrics
	Registry *prometheus.Registry
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired. The hub is
// created but not started; callers own its Run/Close lifecycle.
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	return newWithDependencies(store, clock.New(), random.New(), logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	registry := prometheus.NewRegistry()
	metrics := server.NewMetrics(registry)

	return &App{
		Storage:  store,
		Clock:    clk,
		Random:   rnd,
		Service:  server.NewService(store, clk, rnd, logger),
		Hub:      server.NewHub(logger, metrics),
		Metrics:  metrics,
		Registry: registry,
	}
}
