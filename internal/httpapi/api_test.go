package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/KianYamaguchi/Todo4/internal/auth"
	"github.com/KianYamaguchi/Todo4/internal/metrics"
	"github.com/KianYamaguchi/Todo4/internal/service"
	"github.com/KianYamaguchi/Todo4/internal/storage/sqlite"
)

// setupTestServer starts the REST API over a temp SQLite database.
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "todo4.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store, bcrypt.MinCost)
	m := metrics.New(prometheus.NewRegistry())

	validator, err := NewValidator()
	if err != nil {
		t.Fatalf("failed to compile schemas: %v", err)
	}

	srv := NewServer(
		service.NewTodoService(store, m, logger),
		service.NewAuthService(authenticator, jwtManager, store, logger),
		jwtManager,
		validator,
		store,
	)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// call sends a JSON request and returns the status code and raw body.
func call(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp.StatusCode, data
}

func decodeInto[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("failed to decode %q: %v", data, err)
	}
	return v
}

// signup registers and logs in a user, returning the bearer token.
func signup(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()

	creds := map[string]string{"email": email, "password": "password123"}
	if code, body := call(t, ts, http.MethodPost, "/register", "", creds); code != http.StatusCreated {
		t.Fatalf("register: got %d %s", code, body)
	}
	code, body := call(t, ts, http.MethodPost, "/login", "", creds)
	if code != http.StatusOK {
		t.Fatalf("login: got %d %s", code, body)
	}
	return decodeInto[map[string]string](t, body)["token"]
}

func createTodo(t *testing.T, ts *httptest.Server, token, content, due, priority string) todoJSON {
	t.Helper()

	code, body := call(t, ts, http.MethodPost, "/todos", token, map[string]string{
		"content":  content,
		"due":      due,
		"priority": priority,
	})
	if code != http.StatusCreated {
		t.Fatalf("create %s: got %d %s", content, code, body)
	}
	return decodeInto[todoJSON](t, body)
}

func contents(todos []todoJSON) []string {
	out := make([]string, len(todos))
	for i, todo := range todos {
		out[i] = todo.Content
	}
	return out
}

func assertContents(t *testing.T, todos []todoJSON, want ...string) {
	t.Helper()
	got := contents(todos)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
		if todos[i].Order != i {
			t.Errorf("%s: order = %d, want %d", todos[i].Content, todos[i].Order, i)
		}
	}
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	code, body := call(t, ts, http.MethodGet, "/healthz", "", nil)
	if code != http.StatusOK {
		t.Fatalf("got %d %s", code, body)
	}
	if status := decodeInto[map[string]string](t, body)["status"]; status != "ok" {
		t.Errorf("status = %q, want ok", status)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is gone") }

func TestHealth_StoreDown(t *testing.T) {
	srv := &Server{health: failingPinger{}}
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestAccounts(t *testing.T) {
	ts := setupTestServer(t)
	token := signup(t, ts, "alice@example.com")

	t.Run("me", func(t *testing.T) {
		code, body := call(t, ts, http.MethodGet, "/me", token, nil)
		if code != http.StatusOK {
			t.Fatalf("got %d %s", code, body)
		}
		if email := decodeInto[map[string]string](t, body)["email"]; email != "alice@example.com" {
			t.Errorf("email = %q", email)
		}
	})

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"duplicate email", "/register", map[string]string{"email": "alice@example.com", "password": "password123"}, http.StatusBadRequest},
		{"weak password", "/register", map[string]string{"email": "bob@example.com", "password": "short"}, http.StatusBadRequest},
		{"invalid email", "/register", map[string]string{"email": "not-an-email", "password": "password123"}, http.StatusBadRequest},
		{"password over 72 characters", "/register", map[string]string{"email": "bob@example.com", "password": strings.Repeat("x", 80)}, http.StatusBadRequest},
		{"password over 72 bytes", "/register", map[string]string{"email": "bob@example.com", "password": strings.Repeat("é", 40)}, http.StatusBadRequest},
		{"missing password", "/register", map[string]string{"email": "bob@example.com"}, http.StatusBadRequest},
		{"malformed JSON", "/register", "{", http.StatusBadRequest},
		{"wrong password", "/login", map[string]string{"email": "alice@example.com", "password": "wrong-password"}, http.StatusUnauthorized},
		{"unknown user", "/login", map[string]string{"email": "nobody@example.com", "password": "password123"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := call(t, ts, http.MethodPost, tt.path, "", tt.body)
			if code != tt.status {
				t.Fatalf("got %d %s, want %d", code, body, tt.status)
			}
			if decodeInto[map[string]string](t, body)["error"] == "" {
				t.Errorf("expected an error message, got %s", body)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	ts := setupTestServer(t)

	for _, token := range []string{"", "garbage"} {
		code, _ := call(t, ts, http.MethodGet, "/todos", token, nil)
		if code != http.StatusUnauthorized {
			t.Errorf("token %q: got %d, want 401", token, code)
		}
	}
}

func TestTodos_CRUD(t *testing.T) {
	ts := setupTestServer(t)
	token := signup(t, ts, "alice@example.com")

	first := createTodo(t, ts, token, "write report", "2024-02-01", "HIGH")
	second := createTodo(t, ts, token, "buy milk", "2024-01-01", "LOW")
	if first.Order != 0 || second.Order != 1 {
		t.Fatalf("orders = %d, %d, want 0, 1", first.Order, second.Order)
	}
	if first.Due != "2024-02-01" || first.Priority != "HIGH" || first.Completed {
		t.Errorf("unexpected todo: %+v", first)
	}

	code, body := call(t, ts, http.MethodGet, "/todos/"+first.ID, token, nil)
	if code != http.StatusOK || decodeInto[todoJSON](t, body).Content != "write report" {
		t.Fatalf("get: got %d %s", code, body)
	}

	code, body = call(t, ts, http.MethodPut, "/todos/"+first.ID, token, map[string]string{
		"content":  "write final report",
		"due":      "2024-03-01",
		"priority": "MEDIUM",
	})
	if code != http.StatusOK {
		t.Fatalf("update: got %d %s", code, body)
	}
	updated := decodeInto[todoJSON](t, body)
	if updated.Content != "write final report" || updated.Due != "2024-03-01" || updated.Order != 0 {
		t.Errorf("unexpected update result: %+v", updated)
	}

	code, body = call(t, ts, http.MethodGet, "/todos", token, nil)
	if code != http.StatusOK {
		t.Fatalf("list: got %d %s", code, body)
	}
	assertContents(t, decodeInto[[]todoJSON](t, body), "write final report", "buy milk")

	if code, body := call(t, ts, http.MethodDelete, "/todos/"+first.ID, token, nil); code != http.StatusNoContent {
		t.Fatalf("delete: got %d %s", code, body)
	}
	if code, _ := call(t, ts, http.MethodGet, "/todos/"+first.ID, token, nil); code != http.StatusNotFound {
		t.Errorf("get after delete: got %d, want 404", code)
	}
}

func TestTodos_Validation(t *testing.T) {
	ts := setupTestServer(t)
	token := signup(t, ts, "alice@example.com")

	tests := []struct {
		name string
		body any
	}{
		{"missing content", map[string]string{"due": "2024-01-01", "priority": "LOW"}},
		{"empty content", map[string]string{"content": "", "due": "2024-01-01", "priority": "LOW"}},
		{"missing priority", map[string]string{"content": "x", "due": "2024-01-01"}},
		{"unknown priority", map[string]string{"content": "x", "due": "2024-01-01", "priority": "URGENT"}},
		{"bad date", map[string]string{"content": "x", "due": "2024-02-30", "priority": "LOW"}},
		{"not a date", map[string]string{"content": "x", "due": "tomorrow", "priority": "LOW"}},
		{"not an object", []string{"x"}},
		{"malformed JSON", `{"content":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := call(t, ts, http.MethodPost, "/todos", token, tt.body)
			if code != http.StatusBadRequest {
				t.Fatalf("got %d %s, want 400", code, body)
			}
		})
	}

	code, body := call(t, ts, http.MethodGet, "/todos", token, nil)
	if code != http.StatusOK || len(decodeInto[[]todoJSON](t, body)) != 0 {
		t.Errorf("invalid requests must not create todos: %s", body)
	}
}

func TestTodos_RerankAndNext(t *testing.T) {
	ts := setupTestServer(t)
	token := signup(t, ts, "alice@example.com")

	a := createTodo(t, ts, token, "A", "2024-02-01", "LOW")
	b := createTodo(t, ts, token, "B", "2024-01-01", "HIGH")
	c := createTodo(t, ts, token, "C", "2024-03-01", "MEDIUM")

	code, body := call(t, ts, http.MethodPost, "/todos/sort", token, nil)
	if code != http.StatusOK {
		t.Fatalf("sort: got %d %s", code, body)
	}
	assertContents(t, decodeInto[[]todoJSON](t, body), "B", "A", "C")

	code, body = call(t, ts, http.MethodPost, "/todos/priority-sort", token, nil)
	if code != http.StatusOK {
		t.Fatalf("priority-sort: got %d %s", code, body)
	}
	assertContents(t, decodeInto[[]todoJSON](t, body), "B", "C", "A")

	tests := []struct {
		from string
		want string
	}{
		{b.ID, "C"},
		{c.ID, "A"},
		{a.ID, "B"},
	}
	for _, tt := range tests {
		code, body := call(t, ts, http.MethodGet, "/todos/"+tt.from+"/next", token, nil)
		if code != http.StatusOK {
			t.Fatalf("next: got %d %s", code, body)
		}
		if got := decodeInto[todoJSON](t, body).Content; got != tt.want {
			t.Errorf("next after %s = %s, want %s", tt.from, got, tt.want)
		}
	}
}

func TestTodos_NextLoneTodo(t *testing.T) {
	ts := setupTestServer(t)
	token := signup(t, ts, "alice@example.com")
	lone := createTodo(t, ts, token, "only", "2024-01-01", "LOW")

	code, body := call(t, ts, http.MethodGet, "/todos/"+lone.ID+"/next", token, nil)
	if code != http.StatusOK {
		t.Fatalf("got %d %s", code, body)
	}
	if string(bytes.TrimSpace(body)) != "null" {
		t.Errorf("body = %s, want null", body)
	}
}

func TestTodos_Reorder(t *testing.T) {
	ts := setupTestServer(t)
	token := signup(t, ts, "alice@example.com")

	a := createTodo(t, ts, token, "A", "2024-01-01", "LOW")
	b := createTodo(t, ts, token, "B", "2024-01-01", "LOW")
	c := createTodo(t, ts, token, "C", "2024-01-01", "LOW")

	code, body := call(t, ts, http.MethodPut, "/todos/order", token, []map[string]any{
		{"id": c.ID, "order": 0},
		{"id": a.ID, "order": 1},
		{"id": b.ID, "order": 2},
	})
	if code != http.StatusOK {
		t.Fatalf("reorder: got %d %s", code, body)
	}
	if msg := decodeInto[map[string]string](t, body)["message"]; msg == "" {
		t.Errorf("expected an acknowledgement, got %s", body)
	}

	_, body = call(t, ts, http.MethodGet, "/todos", token, nil)
	assertContents(t, decodeInto[[]todoJSON](t, body), "C", "A", "B")

	code, _ = call(t, ts, http.MethodPut, "/todos/order", token, []map[string]any{{"id": a.ID, "order": -1}})
	if code != http.StatusBadRequest {
		t.Errorf("negative order: got %d, want 400", code)
	}
}

func TestTodos_OwnershipIsolation(t *testing.T) {
	ts := setupTestServer(t)
	alice := signup(t, ts, "alice@example.com")
	bob := signup(t, ts, "bob@example.com")

	todo := createTodo(t, ts, alice, "secret", "2024-01-01", "HIGH")
	update := map[string]string{"content": "hijacked", "due": "2024-01-01", "priority": "LOW"}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"get", http.MethodGet, "/todos/" + todo.ID, nil},
		{"update", http.MethodPut, "/todos/" + todo.ID, update},
		{"delete", http.MethodDelete, "/todos/" + todo.ID, nil},
		{"next", http.MethodGet, "/todos/" + todo.ID + "/next", nil},
		{"missing", http.MethodGet, "/todos/does-not-exist", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := call(t, ts, tt.method, tt.path, bob, tt.body)
			if code != http.StatusNotFound {
				t.Fatalf("got %d %s, want 404", code, body)
			}
		})
	}

	code, body := call(t, ts, http.MethodGet, "/todos/"+todo.ID, alice, nil)
	if code != http.StatusOK || decodeInto[todoJSON](t, body).Content != "secret" {
		t.Errorf("owner's todo changed: %d %s", code, body)
	}
}

func TestTodos_CompleteAndRestore(t *testing.T) {
	ts := setupTestServer(t)
	alice := signup(t, ts, "alice@example.com")
	bob := signup(t, ts, "bob@example.com")

	a := createTodo(t, ts, alice, "A", "2024-02-01", "LOW")
	b := createTodo(t, ts, alice, "B", "2024-01-01", "LOW")
	createTodo(t, ts, alice, "C", "2024-03-01", "LOW")
	foreign := createTodo(t, ts, bob, "bob's", "2024-01-01", "LOW")

	code, body := call(t, ts, http.MethodPost, "/todos/bulk-delete", alice, []string{a.ID, b.ID, foreign.ID})
	if code != http.StatusOK {
		t.Fatalf("bulk complete: got %d %s", code, body)
	}
	if ok, _ := decodeInto[map[string]any](t, body)["success"].(bool); !ok {
		t.Errorf("expected success, got %s", body)
	}

	_, body = call(t, ts, http.MethodGet, "/completed", alice, nil)
	completed := decodeInto[[]todoJSON](t, body)
	if got := contents(completed); len(got) != 2 || got[0] != "B" || got[1] != "A" {
		t.Fatalf("completed = %v, want [B A]", got)
	}

	_, body = call(t, ts, http.MethodGet, "/todos", bob, nil)
	if got := decodeInto[[]todoJSON](t, body); len(got) != 1 || got[0].Completed {
		t.Errorf("bob's todo must stay active: %s", body)
	}

	code, body = call(t, ts, http.MethodPut, "/completed/"+a.ID, alice, nil)
	if code != http.StatusOK {
		t.Fatalf("restore: got %d %s", code, body)
	}
	restored := decodeInto[todoJSON](t, body)
	if restored.Completed || restored.Order != 3 {
		t.Errorf("restored = %+v, want active with order 3", restored)
	}

	if code, _ := call(t, ts, http.MethodDelete, "/completed/"+b.ID, bob, nil); code != http.StatusNotFound {
		t.Errorf("foreign delete: got %d, want 404", code)
	}
	if code, body := call(t, ts, http.MethodDelete, "/completed/"+b.ID, alice, nil); code != http.StatusNoContent {
		t.Fatalf("delete completed: got %d %s", code, body)
	}

	_, body = call(t, ts, http.MethodGet, "/completed", alice, nil)
	if got := decodeInto[[]todoJSON](t, body); len(got) != 0 {
		t.Errorf("completed = %v, want empty", contents(got))
	}
}
