//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	postgresContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	redisContainer "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/priyaranjankumar/linkly/internal/application"
	postgresRepo "github.com/priyaranjankumar/linkly/internal/infrastructure/postgres"
	redisCache "github.com/priyaranjankumar/linkly/internal/infrastructure/redis"
	"github.com/priyaranjankumar/linkly/internal/pkg/metrics"
	"github.com/priyaranjankumar/linkly/migrations"
)

const (
	testBaseURL   = "http://localhost:8080"
	testNamespace = "linkly:test"
)

var (
	sharedPostgres *postgresContainer.PostgresContainer
	sharedRedis    *redisContainer.RedisContainer
	sharedDB       *sqlx.DB
	sharedClient   *goredis.Client
	containerOnce  sync.Once
	cleanupOnce    sync.Once
)

// TestEnvironment holds the test setup
type TestEnvironment struct {
	DB          *sqlx.DB
	RedisClient *goredis.Client
	Repo        *postgresRepo.MappingRepository
	Cache       *redisCache.RedisCache
	Service     *application.LinkService
	Resolver    *application.Resolver
}

// SetupTestEnvironment starts shared PostgreSQL and Redis containers, runs
// the embedded migrations and returns services wired against both.
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	containerOnce.Do(func() {
		ctx := context.Background()

		pg, err := postgresContainer.Run(ctx,
			"postgres:16-alpine",
			postgresContainer.WithDatabase("linkly_test"),
			postgresContainer.WithUsername("test"),
			postgresContainer.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}
		sharedPostgres = pg

		connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("failed to get connection string: %v", err)
		}

		db, err := sqlx.Connect("postgres", connStr)
		if err != nil {
			t.Fatalf("failed to connect to database: %v", err)
		}
		sharedDB = db

		if err := migrations.Up(db.DB, "postgres"); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		rc, err := redisContainer.Run(ctx, "redis:7-alpine")
		if err != nil {
			t.Fatalf("failed to start redis container: %v", err)
		}
		sharedRedis = rc

		addr, err := rc.Endpoint(ctx, "")
		if err != nil {
			t.Fatalf("failed to get redis endpoint: %v", err)
		}
		sharedClient = redisCache.NewClient(redisCache.Options{Addr: addr, OpTimeout: 500 * time.Millisecond})
	})

	ctx := context.Background()
	cleanDatabase(t, sharedDB)
	if err := sharedClient.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := metrics.NewNoOpRegistry()

	repo := postgresRepo.NewMappingRepository(sharedDB)
	cache := redisCache.NewRedisCache(sharedClient, testNamespace, 500*time.Millisecond, logger)
	visits := application.NewSyncVisitRecorder(repo, registry, 2*time.Second)

	return &TestEnvironment{
		DB:          sharedDB,
		RedisClient: sharedClient,
		Repo:        repo,
		Cache:       cache,
		Service: application.NewLinkService(repo, cache, registry, application.ServiceConfig{
			BaseURL:          testBaseURL,
			CacheTTL:         time.Hour,
			CacheTimeout:     500 * time.Millisecond,
			StoreTimeout:     2 * time.Second,
			DefaultListLimit: 100,
			MaxListLimit:     500,
		}),
		Resolver: application.NewResolver(repo, cache, visits, registry, time.Hour, 2*time.Second),
	}
}

func cacheKey(shortCode string) string {
	return testNamespace + ":" + shortCode
}

// CleanupSharedResources should be called once at the end of all tests
func CleanupSharedResources() {
	cleanupOnce.Do(func() {
		ctx := context.Background()
		if sharedClient != nil {
			_ = sharedClient.Close()
		}
		if sharedDB != nil {
			_ = sharedDB.Close()
		}
		if sharedRedis != nil {
			_ = sharedRedis.Terminate(ctx)
		}
		if sharedPostgres != nil {
			_ = sharedPostgres.Terminate(ctx)
		}
	})
}

// cleanDatabase truncates all tables to ensure test isolation
func cleanDatabase(t *testing.T, db *sqlx.DB) {
	_, err := db.Exec("TRUNCATE TABLE url_mappings RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("failed to clean database: %v", err)
	}
}

// TestMain handles setup and teardown for the entire test suite
func TestMain(m *testing.M) {
	code := m.Run()

	CleanupSharedResources()

	os.Exit(code)
}
