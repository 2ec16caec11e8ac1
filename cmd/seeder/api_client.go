package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthResponse struct {
	User         User         `json:"user"`
	Token        string       `json:"token"`
	RefreshToken RefreshToken `json:"refreshToken"`
}

type Task struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Owner       string `json:"owner"`
}

// Signup creates a new account with a unique email derived from baseName
func (c *APIClient) Signup(baseName, password string) (*AuthResponse, error) {
	suffix := time.Now().UnixNano() % 1000000
	body := map[string]string{
		"username": baseName,
		"email":    fmt.Sprintf("%s_%d@seed.local", baseName, suffix),
		"password": password,
	}

	var result AuthResponse
	if err := c.do(http.MethodPost, "/users", body, "", http.StatusCreated, &result); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return &result, nil
}

// Login starts a new session for an existing account
func (c *APIClient) Login(email, password string) (*AuthResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var result AuthResponse
	if err := c.do(http.MethodPost, "/users/login", body, "", http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &result, nil
}

// CreateTask adds a task owned by the token's user
func (c *APIClient) CreateTask(token, description string) (*Task, error) {
	body := map[string]string{"description": description}

	var task Task
	if err := c.do(http.MethodPost, "/tasks", body, token, http.StatusCreated, &task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

// CompleteTask marks a task as done
func (c *APIClient) CompleteTask(token, taskID string) (*Task, error) {
	body := map[string]bool{"completed": true}

	var task Task
	if err := c.do(http.MethodPatch, "/tasks/"+taskID, body, token, http.StatusOK, &task); err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	return &task, nil
}

// ListTasks returns the token user's tasks
func (c *APIClient) ListTasks(token string) ([]Task, error) {
	var tasks []Task
	if err := c.do(http.MethodGet, "/tasks", nil, token, http.StatusOK, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Refresh exchanges a refresh token id for a new access token
func (c *APIClient) Refresh(refreshTokenID string) (string, error) {
	body := map[string]string{"refreshToken": refreshTokenID}

	var result struct {
		Token string `json:"token"`
	}
	if err := c.do(http.MethodPost, "/refresh-token", body, "", http.StatusOK, &result); err != nil {
		return "", fmt.Errorf("refresh: %w", err)
	}
	return result.Token, nil
}

// HTTP helpers

func (c *APIClient) do(method, path string, body interface{}, token string, want int, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
