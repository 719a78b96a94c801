package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/taskwise/internal/models"
	"github.com/benvon/taskwise/internal/store"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TaskHandler handles task CRUD requests
type TaskHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(s *store.Store, log *zap.Logger) *TaskHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskHandler{store: s, logger: log}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix (e.g., from apiRouter.PathPrefix("/tasks"))
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PUT")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/toggle", h.ToggleTask).Methods("POST")
}

// TaskRequest is the JSON form of a create or update submission.
// DueDate accepts YYYY-MM-DD or RFC 3339.
type TaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
	Category    string  `json:"category,omitempty"`
	Recurrence  string  `json:"recurrence,omitempty"`
}

// toInput converts the request into a TaskInput. Date-only values are midnight in loc.
func (req TaskRequest) toInput(loc *time.Location) (models.TaskInput, error) {
	in := models.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    models.Category(req.Category),
		Recurrence:  models.Recurrence(strings.ToLower(strings.TrimSpace(req.Recurrence))),
	}
	if req.DueDate == nil || strings.TrimSpace(*req.DueDate) == "" {
		return in, nil
	}

	raw := strings.TrimSpace(*req.DueDate)
	if d, err := models.ParseDate(raw); err == nil {
		due := d.Start(loc)
		in.DueDate = &due
		return in, nil
	}
	due, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return in, &store.ValidationError{Field: "dueDate", Message: fmt.Sprintf("invalid date %q", raw)}
	}
	in.DueDate = &due
	return in, nil
}

// ListTasks returns the whole collection in due-date order
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Snapshot(r.Context()))
}

// GetTask returns one task
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.Get(r.Context(), taskID(r))
	if err != nil {
		respondStoreError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	task, err := h.store.Create(r.Context(), in)
	if err != nil {
		respondStoreError(w, h.logger, err)
		return
	}
	respondJSONMessage(w, http.StatusCreated, "Task created", task)
}

// UpdateTask replaces the editable fields of a task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	task, err := h.store.Update(r.Context(), taskID(r), in)
	if err != nil {
		respondStoreError(w, h.logger, err)
		return
	}
	respondJSONMessage(w, http.StatusOK, "Task updated", task)
}

// DeleteTask removes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), taskID(r)); err != nil {
		respondStoreError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleTask flips the completed flag
func (h *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.ToggleCompletion(r.Context(), taskID(r))
	if err != nil {
		respondStoreError(w, h.logger, err)
		return
	}

	state := "pending"
	if task.Completed {
		state = "completed"
	}
	respondJSONMessage(w, http.StatusOK, "Task marked as "+state, task)
}

// decodeInput reads a TaskRequest body. It writes the error response itself.
func (h *TaskHandler) decodeInput(w http.ResponseWriter, r *http.Request) (models.TaskInput, bool) {
	var req TaskRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		// Check if error is due to request size limit
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return models.TaskInput{}, false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return models.TaskInput{}, false
	}

	in, err := req.toInput(h.store.Location())
	if err != nil {
		respondStoreError(w, h.logger, err)
		return models.TaskInput{}, false
	}
	return in, true
}

func taskID(r *http.Request) models.TaskID {
	return models.TaskID(mux.Vars(r)["id"])
}
