package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/task-manager/internal/api"
	"github.com/dom/task-manager/internal/config"
	"github.com/dom/task-manager/internal/logging"
	"github.com/dom/task-manager/internal/metrics"
	"github.com/dom/task-manager/internal/notify"
	"github.com/dom/task-manager/internal/repository"
	"github.com/dom/task-manager/internal/repository/memory"
	"github.com/dom/task-manager/internal/repository/postgres"
	redisrepo "github.com/dom/task-manager/internal/repository/redis"
	"github.com/dom/task-manager/internal/service"
	"github.com/dom/task-manager/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "optional config file (yaml, json or toml)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.Must(cfg.LogLevel)
	defer log.Sync()

	repos, closeStores, err := openRepositories(cfg, log)
	if err != nil {
		log.Fatal("failed to open stores", zap.Error(err))
	}
	defer closeStores()

	m := metrics.New()

	// Initialize WebSocket hub
	hub := websocket.NewHub(log.Named("ws"))
	go hub.Run()

	services, err := service.NewServices(service.Deps{
		Repos:    repos,
		Config:   cfg,
		Notifier: notify.NewEmailNotifier(cfg, log.Named("mail")),
		Feed:     hub,
		Metrics:  m,
		Logger:   log,
	})
	if err != nil {
		log.Fatal("failed to build services", zap.Error(err))
	}

	router := api.NewRouter(services, hub, m, log)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreDriver),
			zap.String("refresh_tokens", cfg.RefreshTokenBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	hub.Stop()

	log.Info("server stopped")
}

// openRepositories wires the configured user/task store and refresh token
// backend. The returned func releases whatever connections were opened.
func openRepositories(cfg *config.Config, log *zap.Logger) (*repository.Repositories, func(), error) {
	var (
		repos   *repository.Repositories
		closers []func()
	)

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		level := logger.Warn
		if cfg.Environment == "development" {
			level = logger.Info
		}
		db, err := postgres.NewConnection(cfg.DatabaseURL, level)
		if err != nil {
			return nil, nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, func() { sqlDB.Close() })
		}
		repos = postgres.NewRepositories(db)
	default:
		log.Warn("using in-memory store; data is lost on restart")
		repos = memory.NewRepositories(memory.NewStore())
	}

	switch cfg.RefreshTokenBackend {
	case config.RefreshBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		closers = append(closers, func() { client.Close() })
		repos.RefreshToken = redisrepo.NewRefreshTokenRepo(client)
	case config.RefreshBackendMemory:
		if cfg.StoreDriver != config.StoreDriverMemory {
			repos.RefreshToken = memory.NewRepositories(memory.NewStore()).RefreshToken
		}
	}

	return repos, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
