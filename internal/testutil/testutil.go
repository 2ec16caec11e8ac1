package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dom/task-manager/internal/api"
	"github.com/dom/task-manager/internal/config"
	"github.com/dom/task-manager/internal/metrics"
	"github.com/dom/task-manager/internal/repository"
	"github.com/dom/task-manager/internal/repository/memory"
	repoPostgres "github.com/dom/task-manager/internal/repository/postgres"
	"github.com/dom/task-manager/internal/service"
	"github.com/dom/task-manager/internal/websocket"
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

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated
// connection. Skipped with -short.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_task_manager"),
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
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"tasks", "refresh_tokens", "users"} {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:                    "0",
		Environment:             "test",
		LogLevel:                "error",
		StoreDriver:             config.StoreDriverMemory,
		RefreshTokenBackend:     config.RefreshBackendMemory,
		JWTSecret:               "test-jwt-secret-key-for-testing-only",
		AccessTokenTTL:          30 * time.Minute,
		RefreshedAccessTokenTTL: 15 * time.Second,
		RefreshTokenTTL:         200 * 24 * time.Hour,
		PasswordHasher:          config.HasherBcrypt,
		BcryptCost:              bcrypt.MinCost,
	}
}

// NewTestServices wires every service on top of repos.
func NewTestServices(t *testing.T, repos *repository.Repositories, feed service.TaskFeed) *service.Services {
	t.Helper()

	services, err := service.NewServices(service.Deps{
		Repos:   repos,
		Config:  TestConfig(),
		Feed:    feed,
		Metrics: metrics.New(),
		Logger:  zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build services: %v", err)
	}
	return services
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	Store    *memory.Store
	Repos    *repository.Repositories
	Services *service.Services
	Hub      *websocket.Hub
	Metrics  *metrics.Metrics
	Config   *config.Config
}

// NewTestServer creates a complete test server backed by the in-memory store
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	cfg := TestConfig()
	store := memory.NewStore()
	repos := memory.NewRepositories(store)
	m := metrics.New()
	log := zap.NewNop()

	hub := websocket.NewHub(log)
	go hub.Run()

	services, err := service.NewServices(service.Deps{
		Repos:   repos,
		Config:  cfg,
		Feed:    hub,
		Metrics: m,
		Logger:  log,
	})
	if err != nil {
		t.Fatalf("failed to build services: %v", err)
	}

	router := api.NewRouter(services, hub, m, log)
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		Store:    store,
		Repos:    repos,
		Services: services,
		Hub:      hub,
		Metrics:  m,
		Config:   cfg,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return ts
}

// URL returns the full URL for a given path
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}

// WebSocketURL returns the WebSocket URL with token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + strings.TrimPrefix(ts.Server.URL, "http")
	return fmt.Sprintf("%s/ws?token=%s", wsURL, token)
}

// Do sends a request with an optional JSON body and bearer token. The
// caller closes the response body.
func (ts *TestServer) Do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL(path), reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
