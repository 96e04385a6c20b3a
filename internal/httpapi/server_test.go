package httpapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Bushidonj/kanban-board/internal/testserver"
)

type loginResult struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	} `json:"user"`
	SessionToken string `json:"sessionToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

func login(t *testing.T, baseURL, email, password string) loginResult {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(baseURL+"/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result loginResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestLogin(t *testing.T) {
	ts := testserver.New(t)

	result := login(t, ts.Server.URL, "ana@example.com", testserver.Password)
	require.NotEmpty(t, result.SessionToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Equal(t, "Admin", result.User.Role)
	require.Equal(t, "Ana", result.User.Name)
}

func TestLogin_BadPassword(t *testing.T) {
	ts := testserver.New(t)

	body, _ := json.Marshal(map[string]string{"email": "ana@example.com", "password": "wrong"})
	resp, err := http.Post(ts.Server.URL+"/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTasks_RequireAuth(t *testing.T) {
	ts := testserver.New(t)

	resp, err := http.Get(ts.Server.URL + "/tasks")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefresh_RotatesToken(t *testing.T) {
	ts := testserver.New(t)
	result := login(t, ts.Server.URL, "ana@example.com", testserver.Password)

	resp := doJSON(t, http.MethodPost, ts.Server.URL+"/auth/refresh", "", map[string]string{
		"refreshToken": result.RefreshToken,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refreshed struct {
		SessionToken string `json:"sessionToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&refreshed))
	require.NotEmpty(t, refreshed.SessionToken)
	require.NotEqual(t, result.RefreshToken, refreshed.RefreshToken)

	// The used refresh token is dead.
	second := doJSON(t, http.MethodPost, ts.Server.URL+"/auth/refresh", "", map[string]string{
		"refreshToken": result.RefreshToken,
	})
	defer second.Body.Close()
	require.Equal(t, http.StatusUnauthorized, second.StatusCode)
}

func TestTasks_CRUD(t *testing.T) {
	ts := testserver.New(t)
	auth := login(t, ts.Server.URL, "ana@example.com", testserver.Password)

	create := doJSON(t, http.MethodPost, ts.Server.URL+"/tasks", auth.SessionToken, map[string]any{
		"title":       "write report",
		"status":      "To Do",
		"priority":    "Média",
		"dueDate":     "2025-03-01T00:00:00Z",
		"responsible": []string{},
		"tags":        []any{},
		"comments":    []any{},
		"attachments": []any{},
	})
	require.Equal(t, http.StatusCreated, create.StatusCode)
	var created map[string]any
	require.NoError(t, json.NewDecoder(create.Body).Decode(&created))
	create.Body.Close()

	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	require.Equal(t, "2025-03-01T00:00:00Z", created["dueDate"])

	// Status-only PATCH leaves other fields untouched.
	patch := doJSON(t, http.MethodPatch, ts.Server.URL+"/tasks/"+id, auth.SessionToken, map[string]string{
		"status": "Doing",
	})
	require.Equal(t, http.StatusOK, patch.StatusCode)
	var patched map[string]any
	require.NoError(t, json.NewDecoder(patch.Body).Decode(&patched))
	patch.Body.Close()
	require.Equal(t, "Doing", patched["status"])
	require.Equal(t, "write report", patched["title"])
	require.Equal(t, "2025-03-01T00:00:00Z", patched["dueDate"])

	// Explicit null clears the due date.
	clear := doJSON(t, http.MethodPatch, ts.Server.URL+"/tasks/"+id, auth.SessionToken, map[string]any{
		"dueDate": nil,
	})
	require.Equal(t, http.StatusOK, clear.StatusCode)
	var cleared map[string]any
	require.NoError(t, json.NewDecoder(clear.Body).Decode(&cleared))
	clear.Body.Close()
	require.Nil(t, cleared["dueDate"])

	del := doJSON(t, http.MethodDelete, ts.Server.URL+"/tasks/"+id, auth.SessionToken, nil)
	del.Body.Close()
	require.Equal(t, http.StatusNoContent, del.StatusCode)

	list := doJSON(t, http.MethodGet, ts.Server.URL+"/tasks", auth.SessionToken, nil)
	var tasks []map[string]any
	require.NoError(t, json.NewDecoder(list.Body).Decode(&tasks))
	list.Body.Close()
	require.Empty(t, tasks)
}

func TestTasks_PatchMissing(t *testing.T) {
	ts := testserver.New(t)
	auth := login(t, ts.Server.URL, "ana@example.com", testserver.Password)

	resp := doJSON(t, http.MethodPatch, ts.Server.URL+"/tasks/ghost", auth.SessionToken, map[string]string{"status": "Doing"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUsers_List(t *testing.T) {
	ts := testserver.New(t)
	auth := login(t, ts.Server.URL, "bruno@example.com", testserver.Password)

	resp := doJSON(t, http.MethodGet, ts.Server.URL+"/users", auth.SessionToken, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	require.Len(t, users, 2)
	for _, user := range users {
		require.NotEmpty(t, user["id"])
		require.NotEmpty(t, user["name"])
	}
}

func uploadFile(t *testing.T, url, token, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fmt.Fprint(part, content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, url+"/uploads", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestUploads(t *testing.T) {
	ts := testserver.New(t)
	auth := login(t, ts.Server.URL, "ana@example.com", testserver.Password)

	resp := uploadFile(t, ts.Server.URL, auth.SessionToken, "notes.txt", "hello")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var stored struct {
		Name string `json:"name"`
		URL  string `json:"url"`
		Size int64  `json:"size"`
		Type string `json:"type"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	resp.Body.Close()
	require.Contains(t, stored.Name, "notes.txt")
	require.Equal(t, int64(5), stored.Size)

	del := doJSON(t, http.MethodDelete, ts.Server.URL+"/uploads/"+stored.Name, auth.SessionToken, nil)
	del.Body.Close()
	require.Equal(t, http.StatusNoContent, del.StatusCode)

	again := doJSON(t, http.MethodDelete, ts.Server.URL+"/uploads/"+stored.Name, auth.SessionToken, nil)
	again.Body.Close()
	require.Equal(t, http.StatusNotFound, again.StatusCode)
}

func TestUploads_InvalidType(t *testing.T) {
	ts := testserver.New(t)
	auth := login(t, ts.Server.URL, "ana@example.com", testserver.Password)

	resp := uploadFile(t, ts.Server.URL, auth.SessionToken, "payload.exe", "MZ")
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload struct {
		Error   string `json:"error"`
		Details struct {
			Code string `json:"code"`
		} `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "UPLOAD_ERROR", payload.Error)
	require.Equal(t, "INVALID_FILE_TYPE", payload.Details.Code)
}
