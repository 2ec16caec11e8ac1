package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/task-manager/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	username string
	email    string
	password string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		username: "user_" + suffix,
		email:    fmt.Sprintf("user_%s@example.com", suffix),
		password: "testpassword123",
	}
}

func (b *UserBuilder) WithUsername(name string) *UserBuilder {
	b.username = name
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Build inserts the user straight into db and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     b.username,
		Email:        b.email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// AuthResponse matches the signup and login response bodies
type AuthResponse struct {
	User struct {
		ID        string  `json:"id"`
		Username  string  `json:"username"`
		Email     string  `json:"email"`
		Birthday  *string `json:"birthday"`
		HasAvatar bool    `json:"hasAvatar"`
	} `json:"user"`
	Token        string `json:"token"`
	RefreshToken struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		ExpiresAt time.Time `json:"expiresAt"`
	} `json:"refreshToken"`
}

// Signup creates the user through the API and returns the decoded response
func (b *UserBuilder) Signup(t *testing.T, ts *TestServer) *AuthResponse {
	t.Helper()

	resp := ts.Do(t, http.MethodPost, "/users", "", map[string]string{
		"username": b.username,
		"email":    b.email,
		"password": b.password,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected signup status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return &authResp
}

// TaskResponse matches the task representation returned by the API
type TaskResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateTask creates a task through the API as the owner of token
func CreateTask(t *testing.T, ts *TestServer, token, description string, completed bool) *TaskResponse {
	t.Helper()

	resp := ts.Do(t, http.MethodPost, "/tasks", token, map[string]interface{}{
		"description": description,
		"completed":   completed,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected create task status code: %d", resp.StatusCode)
	}

	var task TaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		t.Fatalf("failed to decode task: %v", err)
	}
	return &task
}

// ExpiredRefreshToken stores a refresh token for userID that expired an hour ago
func ExpiredRefreshToken(t *testing.T, ts *TestServer, userID uuid.UUID) *domain.RefreshToken {
	t.Helper()

	token, err := ts.Repos.RefreshToken.Generate(context.Background(), userID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("failed to store refresh token: %v", err)
	}
	return token
}
