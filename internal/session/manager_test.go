package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManager_SaveLoginAndCurrentUser(t *testing.T) {
	m := NewManager(NewMemoryStorage(), nil)

	require.Nil(t, m.CurrentUser())
	require.False(t, m.IsAuthenticated())

	err := m.SaveLogin(Session{
		User:         User{Email: "ana@example.com", Name: "Ana", Role: RoleAdmin},
		SessionToken: "sess-1",
		RefreshToken: "ref-1",
	})
	require.NoError(t, err)

	require.True(t, m.IsAuthenticated())
	require.Equal(t, "sess-1", m.SessionToken())
	require.Equal(t, "ref-1", m.RefreshToken())

	user := m.CurrentUser()
	require.NotNil(t, user)
	require.Equal(t, "ana@example.com", user.Email)
	require.Equal(t, RoleAdmin, user.Role)
}

func TestManager_Clear(t *testing.T) {
	m := NewManager(NewMemoryStorage(), nil)
	require.NoError(t, m.SaveLogin(Session{
		User:         User{Email: "ana@example.com", Name: "Ana", Role: RoleUser},
		SessionToken: "sess-1",
		RefreshToken: "ref-1",
	}))

	require.NoError(t, m.Clear())
	require.False(t, m.IsAuthenticated())
	require.Nil(t, m.CurrentUser())
	require.Empty(t, m.SessionToken())
	require.Empty(t, m.RefreshToken())
}

func TestManager_SetTokens(t *testing.T) {
	m := NewManager(NewMemoryStorage(), nil)
	require.NoError(t, m.SetTokens("sess-2", "ref-2"))
	require.Equal(t, "sess-2", m.SessionToken())
	require.Equal(t, "ref-2", m.RefreshToken())
}

func TestFileStorage_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	fs, err := NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set(KeySessionToken, "sess-1"))
	require.NoError(t, fs.Set(KeyUserName, "Ana"))
	require.NoError(t, fs.Remove(KeyUserName))

	// Reopen and check persistence.
	reopened, err := NewFileStorage(path)
	require.NoError(t, err)
	require.Equal(t, "sess-1", reopened.Get(KeySessionToken))
	require.Empty(t, reopened.Get(KeyUserName))
}

func TestUser_CanDeleteComment(t *testing.T) {
	admin := User{Name: "Ana", Role: RoleAdmin}
	user := User{Name: "Bruno", Role: RoleUser}

	require.True(t, admin.CanDeleteComment("Bruno"))
	require.True(t, user.CanDeleteComment("Bruno"))
	require.False(t, user.CanDeleteComment("Ana"))
}
