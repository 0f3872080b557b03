package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dom/gifbox/internal/api"
	"github.com/dom/gifbox/internal/auth"
	"github.com/dom/gifbox/internal/config"
	"github.com/dom/gifbox/internal/dispatch"
	"github.com/dom/gifbox/internal/repository"
	repoPostgres "github.com/dom/gifbox/internal/repository/postgres"
	"github.com/dom/gifbox/internal/service"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_gifbox"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		tdb.Container.Terminate(context.Background())
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"saved_gifs", "users"} {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		Environment:        "test",
		LogLevel:           "debug",
		AllowedOrigins:     []string{"*"},
		JWTSecret:          "test-jwt-secret-key-for-testing-only",
		JWTExpirationHours: 1,
		BcryptCost:         bcrypt.MinCost,
		GiphyAPIKey:        "test-giphy-key",
		GiphyRating:        "g",
		SearchPageSize:     10,
		ProviderTimeout:    time.Second,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server     *httptest.Server
	DB         *TestDB
	Repos      *repository.Repositories
	Services   *service.Services
	Search     *StubSearcher
	Tokens     *auth.Authority
	Dispatcher *dispatch.Dispatcher
	Config     *config.Config
}

// NewTestServer creates a complete test server backed by PostgreSQL
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	ts := newServer(t, repoPostgres.NewRepositories(testDB.DB))
	ts.DB = testDB
	return ts
}

// NewMemoryTestServer creates a complete test server whose repositories live
// in memory. It needs no Docker daemon.
func NewMemoryTestServer(t *testing.T) *TestServer {
	t.Helper()

	repos, _, _ := NewMemoryRepositories()
	return newServer(t, repos)
}

func newServer(t *testing.T, repos *repository.Repositories) *TestServer {
	t.Helper()

	cfg := TestConfig()
	log := zap.NewNop()

	tokens, err := auth.NewAuthority(cfg.JWTSecret, cfg.TokenLifetime())
	if err != nil {
		t.Fatalf("failed to create token authority: %v", err)
	}

	services := service.NewServices(repos, cfg)
	search := NewStubSearcher()
	dispatcher := dispatch.New(services.Accounts, services.Library, search, tokens, log)

	server := httptest.NewServer(api.NewRouter(dispatcher, cfg, log))
	t.Cleanup(server.Close)

	return &TestServer{
		Server:     server,
		Repos:      repos,
		Services:   services,
		Search:     search,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Config:     cfg,
	}
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// RPCURL returns the URL of the RPC endpoint
func (ts *TestServer) RPCURL() string {
	return ts.Server.URL + "/api/v1/rpc"
}

// WebSocketURL returns the WebSocket URL, with token when non-empty
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[len("http"):] + "/api/v1/ws"
	if token != "" {
		wsURL += "?token=" + url.QueryEscape(token)
	}
	return wsURL
}
