package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dom/task-manager/internal/domain"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type ErrorResponse struct {
	Error string `json:"error"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Birthday  *string   `json:"birthday"`
	HasAvatar bool      `json:"hasAvatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		HasAvatar: len(u.Avatar) > 0,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.Birthday != nil {
		b := time.Time(*u.Birthday).Format(dateLayout)
		resp.Birthday = &b
	}
	return resp
}

type TaskResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID.String(),
		Description: t.Description,
		Completed:   t.Completed,
		Owner:       t.OwnerID.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type RefreshTokenResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func NewRefreshTokenResponse(t *domain.RefreshToken) RefreshTokenResponse {
	return RefreshTokenResponse{
		ID:        t.ID.String(),
		UserID:    t.UserID.String(),
		ExpiresAt: t.ExpiresAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeError maps err to a status code. Errors that carry no domain kind are
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	msg, ok := domain.Message(err)
	if ok {
		switch {
		case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrConflict):
			writeMessage(w, http.StatusBadRequest, msg)
			return
		case errors.Is(err, domain.ErrAuthentication):
			writeMessage(w, http.StatusUnauthorized, msg)
			return
		case errors.Is(err, domain.ErrNotFound):
			writeMessage(w, http.StatusNotFound, msg)
			return
		}
	}

	logger.Error("request failed",
		zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeMessage(w, http.StatusInternalServerError, "Internal server error")
}
