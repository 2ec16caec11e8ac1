package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/task-manager/internal/service"
	"go.uber.org/zap"
)

type RefreshHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewRefreshHandler(authService *service.AuthService, logger *zap.Logger) *RefreshHandler {
	return &RefreshHandler{authService: authService, logger: logger}
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type RefreshResponse struct {
	Token string `json:"token"`
}

func (h *RefreshHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{Token: token})
}
