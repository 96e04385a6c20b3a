package session

import (
	"errors"
	"log/slog"
)

// Storage keys, matching what the browser frontend kept in localStorage.
const (
	KeySessionToken    = "sessionToken"
	KeyRefreshToken    = "refreshToken"
	KeyIsAuthenticated = "isAuthenticated"
	KeyUserEmail       = "userEmail"
	KeyUserName        = "userName"
	KeyUserRole        = "userRole"
)

// ErrNotAuthenticated indicates no valid session is stored.
var ErrNotAuthenticated = errors.New("not authenticated")

// Manager holds the current session on top of a durable Storage.
type Manager struct {
	storage Storage
	logger  *slog.Logger
}

// NewManager creates a session manager.
func NewManager(storage Storage, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{storage: storage, logger: logger}
}

// SaveLogin persists the session established by a successful login.
func (m *Manager) SaveLogin(sess Session) error {
	pairs := []struct{ key, value string }{
		{KeySessionToken, sess.SessionToken},
		{KeyRefreshToken, sess.RefreshToken},
		{KeyIsAuthenticated, "true"},
		{KeyUserEmail, sess.User.Email},
		{KeyUserName, sess.User.Name},
		{KeyUserRole, string(sess.User.Role)},
	}
	for _, p := range pairs {
		if err := m.storage.Set(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

// Clear wipes all session state. Used on logout and on irrecoverable
// refresh failure.
func (m *Manager) Clear() error {
	keys := []string{
		KeySessionToken,
		KeyRefreshToken,
		KeyIsAuthenticated,
		KeyUserEmail,
		KeyUserName,
		KeyUserRole,
	}
	var firstErr error
	for _, key := range keys {
		if err := m.storage.Remove(key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CurrentUser returns the stored identity, or nil when not authenticated.
func (m *Manager) CurrentUser() *User {
	if !m.IsAuthenticated() {
		return nil
	}
	return &User{
		Email: m.storage.Get(KeyUserEmail),
		Name:  m.storage.Get(KeyUserName),
		Role:  Role(m.storage.Get(KeyUserRole)),
	}
}

// IsAuthenticated reports whether a login has been persisted.
func (m *Manager) IsAuthenticated() bool {
	return m.storage.Get(KeyIsAuthenticated) == "true"
}

// SessionToken returns the stored bearer token, empty if none.
func (m *Manager) SessionToken() string {
	return m.storage.Get(KeySessionToken)
}

// RefreshToken returns the stored refresh token, empty if none.
func (m *Manager) RefreshToken() string {
	return m.storage.Get(KeyRefreshToken)
}

// SetTokens replaces the stored token pair after a refresh.
func (m *Manager) SetTokens(sessionToken, refreshToken string) error {
	if err := m.storage.Set(KeySessionToken, sessionToken); err != nil {
		return err
	}
	return m.storage.Set(KeyRefreshToken, refreshToken)
}
