package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Bushidonj/kanban-board/internal/sqlite"
)

// taskInput is the write shape for create and patch. Pointer and raw
// fields distinguish "absent" from "set to zero" on PATCH; dueDate is
// raw because an explicit null must clear the stored value, and the
// decoder nils out pointer fields on null without recording that the
// key was present.
type taskInput struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	Priority    *string         `json:"priority"`
	DueDate     json.RawMessage `json:"dueDate"`
	Responsible json.RawMessage `json:"responsible"`
	Tags        json.RawMessage `json:"tags"`
	Comments    json.RawMessage `json:"comments"`
	Attachments json.RawMessage `json:"attachments"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if tasks == nil {
		tasks = []sqlite.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var input taskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now().UTC()
	task := &sqlite.Task{
		ID:        uuid.NewString(),
		Status:    "Backlog",
		Priority:  "Baixa",
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(task, input)

	if err := s.tasks.Create(r.Context(), task); err != nil {
		s.logger.Error("failed to create task", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("task created", "id", task.ID)
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handlePatchTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input taskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := s.tasks.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	applyInput(task, input)
	task.UpdatedAt = time.Now().UTC()

	if err := s.tasks.Update(r.Context(), task); err != nil {
		s.logger.Error("failed to update task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.tasks.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.logger.Error("failed to delete task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if users == nil {
		users = []sqlite.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func applyInput(task *sqlite.Task, input taskInput) {
	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if len(input.DueDate) > 0 {
		// An explicit null (or empty string) clears the due date.
		var value *string
		_ = json.Unmarshal(input.DueDate, &value)
		if value == nil || *value == "" {
			task.DueDate = nil
		} else {
			task.DueDate = value
		}
	}
	if present(input.Responsible) {
		task.Responsible = input.Responsible
	}
	if present(input.Tags) {
		task.Tags = input.Tags
	}
	if present(input.Comments) {
		task.Comments = input.Comments
	}
	if present(input.Attachments) {
		task.Attachments = input.Attachments
	}
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
