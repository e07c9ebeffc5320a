// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/KianYamaguchi/Todo4/internal/models"
)

// ErrNotFound is returned when a record does not exist or is not visible to
// the requesting owner. The two cases are indistinguishable.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("already exists")

// TodoStore defines persistence for todos. Every method is scoped by owner.
type TodoStore interface {
	// AppendTodo persists a new todo at the end of the owner's active order.
	// ID, Order, CreatedAt and UpdatedAt are populated by the store. Reading
	// the current maximum order and inserting happen in one write transaction.
	AppendTodo(ctx context.Context, todo *models.Todo) error

	// GetTodo retrieves one of the owner's todos, active or completed.
	GetTodo(ctx context.Context, ownerID, todoID string) (*models.Todo, error)

	// UpdateTodo rewrites content, due date and priority of an owned todo.
	UpdateTodo(ctx context.Context, todo *models.Todo) error

	// DeleteTodo removes an owned todo.
	DeleteTodo(ctx context.Context, ownerID, todoID string) error

	// ListTodos returns the owner's active todos ordered by Order, or the
	// completed todos ordered by due date. Ties follow insertion order.
	ListTodos(ctx context.Context, ownerID string, completed bool) ([]models.Todo, error)

	// SetOrder writes a single order value to an owned active todo.
	// Returns ErrNotFound if no such todo exists.
	SetOrder(ctx context.Context, ownerID string, update models.OrderUpdate) error

	// ApplyOrder writes a full set of order values in one transaction.
	ApplyOrder(ctx context.Context, ownerID string, updates []models.OrderUpdate) error

	// CompleteTodos marks the owned active todos among ids as completed and
	// returns how many changed. Unknown and foreign ids are skipped.
	CompleteTodos(ctx context.Context, ownerID string, ids []string) (int64, error)

	// RestoreTodo moves an owned completed todo back into the active order,
	// appending it after the current maximum.
	RestoreTodo(ctx context.Context, ownerID, todoID string) (*models.Todo, error)
}

// UserStore defines persistence for user accounts.
type UserStore interface {
	// CreateUser returns ErrConflict if the email is already taken.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store defines the interface for all storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	TodoStore
	UserStore

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
