package api

import (
	"net/http"

	"github.com/dom/task-manager/internal/api/handlers"
	"github.com/dom/task-manager/internal/api/middleware"
	"github.com/dom/task-manager/internal/metrics"
	"github.com/dom/task-manager/internal/service"
	"github.com/dom/task-manager/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(services *service.Services, hub *websocket.Hub, m *metrics.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	userHandler := handlers.NewUserHandler(services.Auth, services.User, logger.Named("users"))
	taskHandler := handlers.NewTaskHandler(services.Task, logger.Named("tasks"))
	refreshHandler := handlers.NewRefreshHandler(services.Auth, logger.Named("refresh"))
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth, logger.Named("ws"))

	auth := middleware.Auth(services.Auth, logger.Named("auth"))

	r.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.Signup)
		r.Post("/login", userHandler.Login)
		r.Get("/{id}/avatar", userHandler.GetAvatar)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/logout", userHandler.Logout)
			r.Get("/me", userHandler.Me)
			r.Patch("/me", userHandler.UpdateMe)
			r.Delete("/me", userHandler.DeleteMe)
			r.Post("/me/avatar", userHandler.UploadAvatar)
			r.Delete("/me/avatar", userHandler.DeleteAvatar)
		})
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Use(auth)
		r.Post("/", taskHandler.Create)
		r.Get("/", taskHandler.List)
		r.Patch("/{id}", taskHandler.Update)
		r.Delete("/{id}", taskHandler.Delete)
	})

	r.Post("/refresh-token", refreshHandler.Refresh)

	r.Get("/ws", wsHandler.Handle)

	return r
}
