// Package httpapi implements the board's REST backend: task CRUD, the
// user directory, file uploads and token-based authentication with
// refresh.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Bushidonj/kanban-board/internal/sqlite"
)

// Config holds the server's authentication and upload settings.
type Config struct {
	JWTSecret      []byte
	SessionTTL     time.Duration
	RefreshTTL     time.Duration
	UploadDir      string
	MaxUploadBytes int64
}

// Server wires HTTP handlers.
type Server struct {
	cfg    Config
	tasks  *sqlite.TaskRepository
	users  *sqlite.UserRepository
	tokens *sqlite.RefreshTokenRepository
	logger *slog.Logger
}

// NewServer creates the API router with middleware.
func NewServer(cfg Config, tasks *sqlite.TaskRepository, users *sqlite.UserRepository, tokens *sqlite.RefreshTokenRepository, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	srv := &Server{
		cfg:    cfg,
		tasks:  tasks,
		users:  users,
		tokens: tokens,
		logger: logger,
	}

	r := chi.NewRouter()

	r.Post("/auth/login", srv.handleLogin)
	r.Post("/auth/refresh", srv.handleRefresh)
	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(srv.authMiddleware)
		r.Post("/auth/logout", srv.handleLogout)
		r.Get("/tasks", srv.handleListTasks)
		r.Post("/tasks", srv.handleCreateTask)
		r.Patch("/tasks/{id}", srv.handlePatchTask)
		r.Delete("/tasks/{id}", srv.handleDeleteTask)
		r.Get("/users", srv.handleListUsers)
		r.Post("/uploads", srv.handleUpload)
		r.Delete("/uploads/{filename}", srv.handleDeleteUpload)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
