package fx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/priyaranjankumar/linkly/config"
	"github.com/priyaranjankumar/linkly/internal/application"
	"github.com/priyaranjankumar/linkly/internal/domain"
	"github.com/priyaranjankumar/linkly/internal/infrastructure/cache"
	memoryRepo "github.com/priyaranjankumar/linkly/internal/infrastructure/memory"
	postgresRepo "github.com/priyaranjankumar/linkly/internal/infrastructure/postgres"
	redisCache "github.com/priyaranjankumar/linkly/internal/infrastructure/redis"
	sqliteRepo "github.com/priyaranjankumar/linkly/internal/infrastructure/sqlite"
	"github.com/priyaranjankumar/linkly/internal/pkg/metrics"
	"github.com/priyaranjankumar/linkly/migrations"
)

const memoryCacheCleanupInterval = 10 * time.Minute

// ProvideLogger creates and configures the application logger
func ProvideLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// OpenDatabase connects to the configured SQL store and returns the handle
// with the migrate driver name. It fails for the memory store.
func OpenDatabase(cfg *config.Config) (*sqlx.DB, string, error) {
	switch cfg.Database.Type {
	case "sqlite":
		db, err := sqliteRepo.Open(cfg.GetDatabaseURL())
		if err != nil {
			return nil, "", err
		}
		return db, "sqlite3", nil

	case "postgres":
		db, err := sqlx.Connect("postgres", cfg.GetDatabaseURL())
		if err != nil {
			return nil, "", fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if cfg.Database.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
			db.SetMaxIdleConns(cfg.Database.MaxOpenConns / 2)
		}
		return db, "postgres", nil

	default:
		return nil, "", fmt.Errorf("database type %q has no SQL connection", cfg.Database.Type)
	}
}

// ProvideRepository creates the appropriate repository based on configuration
func ProvideRepository(cfg *config.Config, logger *slog.Logger) (domain.MappingRepository, error) {
	if cfg.Database.Type == "memory" {
		logger.Info("Using in-memory repository")
		return memoryRepo.NewMappingRepository(), nil
	}

	db, driverName, err := OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(db.DB, driverName); err != nil {
		_ = db.Close()
		return nil, err
	}

	switch driverName {
	case "sqlite3":
		logger.Info("Using SQLite repository", "path", cfg.GetDatabaseURL())
		return sqliteRepo.NewMappingRepository(db), nil
	default:
		logger.Info("Using PostgreSQL repository")
		return postgresRepo.NewMappingRepository(db), nil
	}
}

// ProvideRedisClient returns nil unless the redis cache is selected.
func ProvideRedisClient(cfg *config.Config) *goredis.Client {
	if cfg.Cache.Type != "redis" {
		return nil
	}
	return redisCache.NewClient(redisCache.Options{
		Addr:      cfg.Cache.Redis.Addr,
		Password:  cfg.Cache.Redis.Password,
		DB:        cfg.Cache.Redis.DB,
		OpTimeout: cfg.Cache.OperationTimeout,
	})
}

func ProvideCache(cfg *config.Config, client *goredis.Client, logger *slog.Logger) domain.Cache {
	switch cfg.Cache.Type {
	case "redis":
		logger.Info("Using Redis cache",
			"addr", cfg.Cache.Redis.Addr,
			"namespace", cfg.Cache.Namespace,
			"ttl", cfg.Cache.TTL,
			"operation_timeout", cfg.Cache.OperationTimeout,
		)
		return redisCache.NewRedisCache(client, cfg.Cache.Namespace, cfg.Cache.OperationTimeout, logger)
	case "memory":
		logger.Info("Using in-process cache", "ttl", cfg.Cache.TTL)
		return cache.NewMemoryCache(cfg.Cache.TTL, memoryCacheCleanupInterval)
	default:
		logger.Info("Cache disabled")
		return cache.NewNoOpCache()
	}
}

func ProvideMetricsRegistry(cfg *config.Config) (metrics.Registry, error) {
	if !cfg.Metrics.Enabled {
		return metrics.NewNoOpRegistry(), nil
	}
	return metrics.NewPrometheusRegistry(cfg.Metrics)
}

// ProvideVisitRecorder picks the recorder from visits.mode. The async
// recorder is started and drained with the application lifecycle.
func ProvideVisitRecorder(lc fx.Lifecycle, cfg *config.Config, repo domain.MappingRepository, registry metrics.Registry, logger *slog.Logger) application.VisitRecorder {
	if cfg.Visits.Mode == "sync" {
		logger.Info("Recording visits synchronously")
		return application.NewSyncVisitRecorder(repo, registry, cfg.Visits.Timeout)
	}

	recorder := application.NewAsyncVisitRecorder(repo, registry, cfg.Visits.Workers, cfg.Visits.QueueSize, cfg.Visits.Timeout)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			recorder.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := recorder.Stop(ctx); err != nil {
				logger.Error("Visit recorder did not drain", "error", err)
				return err
			}
			return nil
		},
	})
	return recorder
}

func ProvideResolver(cfg *config.Config, repo domain.MappingRepository, c domain.Cache, visits application.VisitRecorder, registry metrics.Registry) *application.Resolver {
	return application.NewResolver(repo, c, visits, registry, cfg.Cache.TTL, cfg.Database.OperationTimeout)
}

func ProvideLinkService(cfg *config.Config, repo domain.MappingRepository, c domain.Cache, registry metrics.Registry) *application.LinkService {
	return application.NewLinkService(repo, c, registry, application.ServiceConfig{
		BaseURL:          cfg.App.BaseURL,
		CacheTTL:         cfg.Cache.TTL,
		CacheTimeout:     cfg.Cache.OperationTimeout,
		StoreTimeout:     cfg.Database.OperationTimeout,
		WarmOnCreate:     cfg.Cache.WarmOnCreate,
		DefaultListLimit: cfg.App.DefaultListLimit,
		MaxListLimit:     cfg.App.MaxListLimit,
	})
}

// RepositoryParams holds the parameters needed for repository lifecycle management
type RepositoryParams struct {
	fx.In

	Repository domain.MappingRepository
	Logger     *slog.Logger
}

// RegisterRepositoryHooks registers repository lifecycle hooks with FX
func RegisterRepositoryHooks(lc fx.Lifecycle, params RepositoryParams) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := params.Repository.Close(); err != nil {
				params.Logger.Error("Failed to close repository resources", "error", err)
				return err
			}
			params.Logger.Info("Repository resources closed successfully")
			return nil
		},
	})
}

type CacheParams struct {
	fx.In

	Cache  domain.Cache
	Logger *slog.Logger
}

// RegisterCacheHooks pings the cache on start. An unreachable cache is
// logged and the service starts anyway.
func RegisterCacheHooks(lc fx.Lifecycle, params CacheParams) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := params.Cache.Ping(ctx); err != nil {
				params.Logger.Warn("Cache unreachable at startup, serving from store only", "error", err)
				return nil
			}
			params.Logger.Info("Cache connection established")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := params.Cache.Close(); err != nil {
				params.Logger.Error("Failed to close cache", "error", err)
				return err
			}
			return nil
		},
	})
}

// RunMigrations opens the configured SQL store, applies pending migrations
// and closes the connection.
func RunMigrations(cfg *config.Config, logger *slog.Logger) error {
	db, driverName, err := OpenDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db.DB, driverName); err != nil {
		return err
	}
	logger.Info("Migrations applied", "driver", driverName)
	return nil
}
