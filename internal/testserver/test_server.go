// Package testserver spins up a complete backend (in-memory SQLite plus
// the httpapi router) for integration tests.
package testserver

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bushidonj/kanban-board/internal/httpapi"
	"github.com/Bushidonj/kanban-board/internal/sqlite"
)

// Password every seeded user logs in with.
const Password = "secret123"

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Tasks  *sqlite.TaskRepository
	Users  *sqlite.UserRepository
}

// New starts a backend seeded with an Admin ("Ana") and a User ("Bruno").
func New(t *testing.T) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	tasks := sqlite.NewTaskRepository(db)
	users := sqlite.NewUserRepository(db)
	tokens := sqlite.NewRefreshTokenRepository(db)

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, users.Create(ctx, &sqlite.User{
		ID:           uuid.NewString(),
		Name:         "Ana",
		Email:        "ana@example.com",
		Role:         "Admin",
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}))
	require.NoError(t, users.Create(ctx, &sqlite.User{
		ID:           uuid.NewString(),
		Name:         "Bruno",
		Email:        "bruno@example.com",
		Role:         "User",
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}))

	router := httpapi.NewServer(httpapi.Config{
		JWTSecret: []byte("test-secret"),
		UploadDir: t.TempDir(),
	}, tasks, users, tokens, nil)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server: server,
		DB:     db,
		Tasks:  tasks,
		Users:  users,
	}

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// SeedTask inserts a task directly into the store.
func (ts *TestServer) SeedTask(t *testing.T, task sqlite.Task) sqlite.Task {
	t.Helper()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = "Backlog"
	}
	if task.Priority == "" {
		task.Priority = "Baixa"
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	require.NoError(t, ts.Tasks.Create(context.Background(), &task))
	return task
}
