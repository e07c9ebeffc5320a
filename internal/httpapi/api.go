// Package httpapi exposes the todo and account operations as a JSON REST API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/KianYamaguchi/Todo4/internal/auth"
	"github.com/KianYamaguchi/Todo4/internal/middleware"
	"github.com/KianYamaguchi/Todo4/internal/models"
	"github.com/KianYamaguchi/Todo4/internal/ranking"
	"github.com/KianYamaguchi/Todo4/internal/service"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies of the REST handlers.
type Server struct {
	todos     *service.TodoService
	accounts  *service.AuthService
	jwt       *auth.JWTManager
	validator *Validator
	health    Pinger
}

// NewServer creates a REST server. health may be nil, in which case /healthz
// always reports ok.
func NewServer(todos *service.TodoService, accounts *service.AuthService, jwtManager *auth.JWTManager, validator *Validator, health Pinger) *Server {
	return &Server{
		todos:     todos,
		accounts:  accounts,
		jwt:       jwtManager,
		validator: validator,
		health:    health,
	}
}

// RegisterRoutes mounts every REST route on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Accounts
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.Handle("GET /me", s.authed(s.handleMe))

	// Todos
	mux.Handle("GET /todos", s.authed(s.handleListTodos))
	mux.Handle("POST /todos", s.authed(s.handleCreateTodo))
	mux.Handle("PUT /todos/order", s.authed(s.handleReorder))
	mux.Handle("POST /todos/sort", s.authed(s.handleRerank(ranking.ByDue)))
	mux.Handle("POST /todos/priority-sort", s.authed(s.handleRerank(ranking.ByPriority)))
	mux.Handle("POST /todos/bulk-delete", s.authed(s.handleComplete))
	mux.Handle("GET /todos/{id}", s.authed(s.handleGetTodo))
	mux.Handle("PUT /todos/{id}", s.authed(s.handleUpdateTodo))
	mux.Handle("DELETE /todos/{id}", s.authed(s.handleDeleteTodo))
	mux.Handle("GET /todos/{id}/next", s.authed(s.handleNextTodo))

	// Completed
	mux.Handle("GET /completed", s.authed(s.handleListCompleted))
	mux.Handle("PUT /completed/{id}", s.authed(s.handleRestore))
	mux.Handle("DELETE /completed/{id}", s.authed(s.handleDeleteCompleted))
}

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuthHTTP(s.jwt, h)
}

// todoJSON is the wire form of a todo.
type todoJSON struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Due       string `json:"due"`
	Priority  string `json:"priority"`
	Order     int    `json:"order"`
	Completed bool   `json:"completed"`
	UserID    string `json:"userId"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

func toJSON(todo *models.Todo) *todoJSON {
	if todo == nil {
		return nil
	}
	return &todoJSON{
		ID:        todo.ID,
		Content:   todo.Content,
		Due:       todo.DueString(),
		Priority:  string(todo.Priority),
		Order:     todo.Order,
		Completed: todo.Completed,
		UserID:    todo.OwnerID,
		CreatedAt: todo.CreatedAt,
		UpdatedAt: todo.UpdatedAt,
	}
}

func toJSONList(todos []models.Todo) []todoJSON {
	out := make([]todoJSON, 0, len(todos))
	for i := range todos {
		out = append(out, *toJSON(&todos[i]))
	}
	return out
}

type todoRequest struct {
	Content  string `json:"content"`
	Due      string `json:"due"`
	Priority string `json:"priority"`
}

func (req todoRequest) input() service.TodoInput {
	return service.TodoInput{Content: req.Content, Due: req.Due, Priority: req.Priority}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a service or auth error onto an HTTP status.
// Anything unrecognised is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrEmailExists):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, service.ErrNotFound.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads the request body and validates it against the named schema.
// It writes the error response itself and reports whether decoding succeeded.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := s.validator.Decode(schema, body, dst); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return false
		}
		writeServiceError(w, r, err)
		return false
	}
	return true
}

// Health

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			slog.Error("Health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Accounts

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, schemaCredentials, &req) {
		return
	}

	user, err := s.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "registration complete",
		"id":      user.ID,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, schemaCredentials, &req) {
		return
	}

	token, _, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "login successful",
		"token":   token,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.CurrentUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":    user.ID,
		"email": user.Email,
	})
}

// Todos

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := s.todos.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJSONList(todos))
}

func (s *Server) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := s.todos.Get(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJSON(todo))
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req todoRequest
	if !s.decode(w, r, schemaTodo, &req) {
		return
	}

	todo, err := s.todos.Create(r.Context(), middleware.GetUserID(r.Context()), req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJSON(todo))
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	var req todoRequest
	if !s.decode(w, r, schemaTodo, &req) {
		return
	}

	todo, err := s.todos.Update(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJSON(todo))
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := s.todos.Delete(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleNextTodo answers with the cyclic successor, or a JSON null when the
// todo has none.
func (s *Server) handleNextTodo(w http.ResponseWriter, r *http.Request) {
	next, err := s.todos.Next(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJSON(next))
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var updates []models.OrderUpdate
	if !s.decode(w, r, schemaReorder, &updates) {
		return
	}

	if err := s.todos.Reorder(r.Context(), middleware.GetUserID(r.Context()), updates); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order updated"})
}

func (s *Server) handleRerank(by ranking.Criterion) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		todos, err := s.todos.Rerank(r.Context(), middleware.GetUserID(r.Context()), by)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toJSONList(todos))
	}
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if !s.decode(w, r, schemaIDs, &ids) {
		return
	}

	n, err := s.todos.Complete(r.Context(), middleware.GetUserID(r.Context()), ids)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"completed": n,
	})
}

// Completed

func (s *Server) handleListCompleted(w http.ResponseWriter, r *http.Request) {
	todos, err := s.todos.ListCompleted(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJSONList(todos))
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	todo, err := s.todos.Restore(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJSON(todo))
}

func (s *Server) handleDeleteCompleted(w http.ResponseWriter, r *http.Request) {
	if err := s.todos.DeleteCompleted(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
