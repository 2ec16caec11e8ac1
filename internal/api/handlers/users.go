package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dom/task-manager/internal/api/middleware"
	"github.com/dom/task-manager/internal/avatar"
	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserHandler struct {
	authService *service.AuthService
	userService *service.UserService
	logger      *zap.Logger
}

func NewUserHandler(authService *service.AuthService, userService *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		authService: authService,
		userService: userService,
		logger:      logger,
	}
}

type SignupRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Birthday *string `json:"birthday"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User         UserResponse         `json:"user"`
	Token        string               `json:"token"`
	RefreshToken RefreshTokenResponse `json:"refreshToken"`
}

func newAuthResponse(result *service.AuthResult) AuthResponse {
	return AuthResponse{
		User:         NewUserResponse(result.User),
		Token:        result.AccessToken,
		RefreshToken: NewRefreshTokenResponse(result.RefreshToken.Record),
	}
}

func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	input := service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.Birthday != nil && strings.TrimSpace(*req.Birthday) != "" {
		birthday, err := time.Parse(dateLayout, strings.TrimSpace(*req.Birthday))
		if err != nil {
			writeError(w, r, h.logger, service.ErrInvalidBirthday)
			return
		}
		input.Birthday = &birthday
	}

	result, err := h.authService.Signup(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAuthResponse(result))
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(result))
}

// Logout is stateless: access tokens simply run out.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	writeJSON(w, http.StatusOK, NewUserResponse(user))
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.userService.Update(r.Context(), user, fields)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, NewUserResponse(updated))
}

func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	if err := h.userService.Delete(r.Context(), user); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, NewUserResponse(user))
}

// multipartOverhead leaves room for the form framing around a maximum size
// avatar.
const multipartOverhead = 64 * 1024

func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, avatar.MaxSize+multipartOverhead)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusBadRequest, "The file exceed the max of 2MB")
			return
		}
		writeMessage(w, http.StatusBadRequest, "No image buffer found")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No image buffer found")
		return
	}
	defer file.Close()

	if header.Size > avatar.MaxSize {
		writeMessage(w, http.StatusBadRequest, "The file exceed the max of 2MB")
		return
	}
	if !avatar.AllowedFilename(header.Filename) {
		writeMessage(w, http.StatusBadRequest, "Avatar file must be jpg, jpeg or png")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if len(raw) == 0 {
		writeMessage(w, http.StatusBadRequest, "No image buffer found")
		return
	}

	img, err := h.userService.SetAvatar(r.Context(), user, raw)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	img, err := h.userService.Avatar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	updated, err := h.userService.RemoveAvatar(r.Context(), user)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, NewUserResponse(updated))
}
