package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/service"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserKey contextKey = "user"
)

// Auth rejects requests without a valid bearer token and attaches the
// authenticated user to the request context.
func Auth(authService *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authService.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				msg, ok := domain.Message(err)
				status := http.StatusUnauthorized
				if !ok {
					logger.Error("authentication failed",
						zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
						zap.Error(err),
					)
					msg, status = "Internal server error", http.StatusInternalServerError
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(map[string]string{"error": msg})
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok && user != nil
}
