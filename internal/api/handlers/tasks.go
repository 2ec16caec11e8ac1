package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dom/task-manager/internal/api/middleware"
	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TaskHandler struct {
	taskService *service.TaskService
	logger      *zap.Logger
}

func NewTaskHandler(taskService *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{taskService: taskService, logger: logger}
}

type CreateTaskRequest struct {
	Description string `json:"description"`
	Completed   *bool  `json:"completed"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.taskService.Create(r.Context(), user, req.Description, req.Completed)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewTaskResponse(task))
}

// parseTaskFilter reads completed, sort, limit and skip from the query.
func parseTaskFilter(r *http.Request) (domain.TaskFilter, error) {
	var filter domain.TaskFilter
	q := r.URL.Query()

	switch q.Get("completed") {
	case "":
	case "true":
		v := true
		filter.Completed = &v
	case "false":
		v := false
		filter.Completed = &v
	default:
		return filter, domain.Validation("Completed option must be 'true' or 'false'")
	}

	switch q.Get("sort") {
	case "":
	case "asc":
		filter.Sort = domain.SortAsc
	case "desc":
		filter.Sort = domain.SortDesc
	default:
		return filter, domain.Validation("Sort option must be 'asc' or 'desc'")
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, domain.Validation("Limit must be a non-negative integer")
		}
		filter.Limit = n
	}
	if raw := q.Get("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, domain.Validation("Skip must be a non-negative integer")
		}
		filter.Skip = n
	}
	return filter, nil
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	filter, err := parseTaskFilter(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tasks, err := h.taskService.List(r.Context(), user, filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, NewTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.taskService.Update(r.Context(), user, chi.URLParam(r, "id"), fields)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, NewTaskResponse(task))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())

	task, err := h.taskService.Delete(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, NewTaskResponse(task))
}
