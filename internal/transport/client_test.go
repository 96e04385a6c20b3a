package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	mu      sync.Mutex
	session string
	refresh string
	cleared bool
}

func (f *fakeTokens) SessionToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *fakeTokens) RefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh
}

func (f *fakeTokens) SetTokens(sessionToken, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = sessionToken
	f.refresh = refreshToken
	return nil
}

func (f *fakeTokens) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = ""
	f.refresh = ""
	f.cleared = true
	return nil
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "true"})
	}))
	defer server.Close()

	client := NewClient(server.URL, &fakeTokens{session: "sess-1"}, nil)

	var out map[string]string
	require.NoError(t, client.Get(context.Background(), "/tasks", &out))
	require.Equal(t, "Bearer sess-1", gotAuth)
	require.Equal(t, "true", out["ok"])
}

func TestClient_RefreshRetryOnce(t *testing.T) {
	refreshCalls := 0
	var authSeen []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			refreshCalls++
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "ref-old", body["refreshToken"])
			_ = json.NewEncoder(w).Encode(map[string]string{
				"sessionToken": "sess-new",
				"refreshToken": "ref-new",
			})
		case "/tasks":
			authSeen = append(authSeen, r.Header.Get("Authorization"))
			if r.Header.Get("Authorization") != "Bearer sess-new" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode([]string{})
		}
	}))
	defer server.Close()

	tokens := &fakeTokens{session: "sess-old", refresh: "ref-old"}
	client := NewClient(server.URL, tokens, nil)

	var out []string
	require.NoError(t, client.Get(context.Background(), "/tasks", &out))

	require.Equal(t, 1, refreshCalls)
	require.Equal(t, []string{"Bearer sess-old", "Bearer sess-new"}, authSeen)
	require.Equal(t, "sess-new", tokens.SessionToken())
	require.Equal(t, "ref-new", tokens.RefreshToken())
}

func TestClient_ConcurrentUnauthorizedSharesOneRefresh(t *testing.T) {
	var (
		mu           sync.Mutex
		refreshCalls int
		staleHits    int
	)
	bothStale := make(chan struct{})

	// The refresh token is single-use: only the first exchange succeeds.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			mu.Lock()
			refreshCalls++
			first := refreshCalls == 1
			mu.Unlock()

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if !first || body["refreshToken"] != "ref-old" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"sessionToken": "sess-new",
				"refreshToken": "ref-new",
			})
		case "/tasks":
			if r.Header.Get("Authorization") == "Bearer sess-new" {
				_ = json.NewEncoder(w).Encode([]string{})
				return
			}
			// Hold both stale requests at the 401 so the refreshes race.
			mu.Lock()
			staleHits++
			if staleHits == 2 {
				close(bothStale)
			}
			mu.Unlock()
			<-bothStale
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	loggedOut := false
	tokens := &fakeTokens{session: "sess-old", refresh: "ref-old"}
	client := NewClient(server.URL, tokens, nil, WithLogoutHook(func() { loggedOut = true }))

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			errs <- client.Get(context.Background(), "/tasks", nil)
		}()
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	require.Equal(t, 1, refreshCalls)
	require.False(t, loggedOut)
	require.False(t, tokens.cleared)
	require.Equal(t, "sess-new", tokens.SessionToken())
	require.Equal(t, "ref-new", tokens.RefreshToken())
}

func TestClient_RefreshFailureForcesLogout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	loggedOut := false
	tokens := &fakeTokens{session: "sess-old", refresh: "ref-dead"}
	client := NewClient(server.URL, tokens, nil, WithLogoutHook(func() { loggedOut = true }))

	err := client.Get(context.Background(), "/tasks", nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.True(t, loggedOut)
	require.True(t, tokens.cleared)
}

func TestClient_NoRefreshWithoutRefreshToken(t *testing.T) {
	refreshCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshCalls++
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tokens := &fakeTokens{session: "sess-old"}
	client := NewClient(server.URL, tokens, nil)

	err := client.Get(context.Background(), "/tasks", nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Zero(t, refreshCalls)
}

func TestClient_LoginNotRetried(t *testing.T) {
	refreshCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshCalls++
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tokens := &fakeTokens{refresh: "ref-1"}
	client := NewClient(server.URL, tokens, nil)

	err := client.Post(context.Background(), "/auth/login", map[string]string{"email": "x"}, nil)
	require.True(t, IsStatus(err, http.StatusUnauthorized))
	require.Zero(t, refreshCalls)
}

func TestClient_PersistentRejectionStopsAfterOneRetry(t *testing.T) {
	taskCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"sessionToken": "sess-new",
				"refreshToken": "ref-new",
			})
		case "/tasks":
			taskCalls++
			// Backend rejects even the refreshed token.
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	tokens := &fakeTokens{session: "sess-old", refresh: "ref-old"}
	client := NewClient(server.URL, tokens, nil)

	err := client.Get(context.Background(), "/tasks", nil)
	require.True(t, IsStatus(err, http.StatusUnauthorized))
	require.Equal(t, 2, taskCalls)
}

func TestClient_NetworkError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", &fakeTokens{}, nil)
	err := client.Get(context.Background(), "/tasks", nil)
	require.ErrorIs(t, err, ErrUnreachable)
}
