package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KianYamaguchi/Todo4/internal/metrics"
	"github.com/KianYamaguchi/Todo4/internal/models"
	"github.com/KianYamaguchi/Todo4/internal/ranking"
	"github.com/KianYamaguchi/Todo4/internal/storage"
)

// TodoInput carries the editable fields of a todo as received from a client.
type TodoInput struct {
	Content  string
	Due      string
	Priority string
}

// apply validates the input and copies it onto todo.
func (in TodoInput) apply(todo *models.Todo) error {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Due) == "" {
		return fmt.Errorf("%w: due is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Priority) == "" {
		return fmt.Errorf("%w: priority is required", ErrInvalidArgument)
	}
	due, err := models.ParseDue(in.Due)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	priority, err := models.ParsePriority(in.Priority)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	todo.Content = content
	todo.Due = due
	todo.Priority = priority
	return nil
}

// TodoService implements todo CRUD, ordering and completion for one owner at a time.
type TodoService struct {
	store   storage.TodoStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewTodoService creates a new TodoService with the given storage backend.
func NewTodoService(store storage.TodoStore, m *metrics.Metrics, logger *slog.Logger) *TodoService {
	return &TodoService{
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// List returns the owner's active todos in display order.
func (s *TodoService) List(ctx context.Context, ownerID string) ([]models.Todo, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	todos, err := s.store.ListTodos(ctx, ownerID, false)
	if err != nil {
		s.logger.Error("List todos failed", "user_id", ownerID, "error", err)
		return nil, err
	}
	return todos, nil
}

// ListCompleted returns the owner's completed todos.
func (s *TodoService) ListCompleted(ctx context.Context, ownerID string) ([]models.Todo, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	todos, err := s.store.ListTodos(ctx, ownerID, true)
	if err != nil {
		s.logger.Error("List completed todos failed", "user_id", ownerID, "error", err)
		return nil, err
	}
	return todos, nil
}

// Get returns one owned todo.
func (s *TodoService) Get(ctx context.Context, ownerID, todoID string) (*models.Todo, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	todo, err := s.store.GetTodo(ctx, ownerID, todoID)
	if err != nil {
		return nil, s.storeError("Get todo", ownerID, todoID, err)
	}
	return todo, nil
}

// Create validates the input and appends a new todo to the owner's order.
func (s *TodoService) Create(ctx context.Context, ownerID string, in TodoInput) (*models.Todo, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	todo := &models.Todo{OwnerID: ownerID}
	if err := in.apply(todo); err != nil {
		return nil, err
	}

	if err := s.store.AppendTodo(ctx, todo); err != nil {
		s.logger.Error("Create todo failed", "user_id", ownerID, "error", err)
		return nil, err
	}
	s.metrics.TodosCreated.Inc()

	s.logger.Info("Todo created", "user_id", ownerID, "todo_id", todo.ID, "order", todo.Order)
	return todo, nil
}

// Update rewrites content, due date and priority of an owned todo.
func (s *TodoService) Update(ctx context.Context, ownerID, todoID string, in TodoInput) (*models.Todo, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	todo, err := s.store.GetTodo(ctx, ownerID, todoID)
	if err != nil {
		return nil, s.storeError("Update todo", ownerID, todoID, err)
	}
	if err := in.apply(todo); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTodo(ctx, todo); err != nil {
		return nil, s.storeError("Update todo", ownerID, todoID, err)
	}

	s.logger.Info("Todo updated", "user_id", ownerID, "todo_id", todoID)
	return todo, nil
}

// Delete removes an owned todo, active or completed.
func (s *TodoService) Delete(ctx context.Context, ownerID, todoID string) error {
	if ownerID == "" {
		return ErrUnauthenticated
	}
	if err := s.store.DeleteTodo(ctx, ownerID, todoID); err != nil {
		return s.storeError("Delete todo", ownerID, todoID, err)
	}

	s.logger.Info("Todo deleted", "user_id", ownerID, "todo_id", todoID)
	return nil
}

// DeleteCompleted removes an owned todo only if it is completed.
func (s *TodoService) DeleteCompleted(ctx context.Context, ownerID, todoID string) error {
	todo, err := s.Get(ctx, ownerID, todoID)
	if err != nil {
		return err
	}
	if !todo.Completed {
		return ErrNotFound
	}
	return s.Delete(ctx, ownerID, todoID)
}

// Next returns the todo after todoID in the owner's active order, wrapping to
// the first todo when todoID is last. A nil todo with a nil error means there
// is no successor. Completed, missing and foreign todos yield ErrNotFound.
func (s *TodoService) Next(ctx context.Context, ownerID, todoID string) (*models.Todo, error) {
	current, err := s.Get(ctx, ownerID, todoID)
	if err != nil {
		return nil, err
	}
	if current.Completed {
		return nil, ErrNotFound
	}

	active, err := s.store.ListTodos(ctx, ownerID, false)
	if err != nil {
		s.logger.Error("Next todo failed", "user_id", ownerID, "todo_id", todoID, "error", err)
		return nil, err
	}

	next := ranking.Successor(active, current)
	if next == nil {
		s.logger.Debug("No next todo", "user_id", ownerID, "todo_id", todoID)
	}
	return next, nil
}

// Reorder writes a client-computed order. Each pair is written on its own:
// pairs naming todos the owner cannot see are skipped, and a failing pair
// does not stop the rest. Failures are joined into the returned error.
func (s *TodoService) Reorder(ctx context.Context, ownerID string, updates []models.OrderUpdate) error {
	if ownerID == "" {
		return ErrUnauthenticated
	}
	for _, u := range updates {
		if u.ID == "" {
			return fmt.Errorf("%w: id is required", ErrInvalidArgument)
		}
		if u.Order < 0 {
			return fmt.Errorf("%w: order must not be negative", ErrInvalidArgument)
		}
	}

	var errs []error
	skipped := 0
	for _, u := range updates {
		err := s.store.SetOrder(ctx, ownerID, u)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrNotFound):
			skipped++
		default:
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		s.logger.Error("Reorder partially failed",
			"user_id", ownerID,
			"failed", len(errs),
			"total", len(updates),
		)
		return errors.Join(errs...)
	}
	if skipped > 0 {
		s.logger.Warn("Reorder skipped unknown todos", "user_id", ownerID, "skipped", skipped)
	}

	s.logger.Info("Todos reordered", "user_id", ownerID, "count", len(updates)-skipped)
	return nil
}

// Rerank sorts the owner's active todos by the criterion, rewrites their
// order as 0..N-1 and returns them in the new order.
func (s *TodoService) Rerank(ctx context.Context, ownerID string, by ranking.Criterion) ([]models.Todo, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}

	active, err := s.store.ListTodos(ctx, ownerID, false)
	if err != nil {
		s.logger.Error("Rerank failed", "user_id", ownerID, "error", err)
		return nil, err
	}

	ranked, err := ranking.Rerank(active, by)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	if err := s.store.ApplyOrder(ctx, ownerID, ranking.Updates(ranked)); err != nil {
		s.logger.Error("Rerank failed", "user_id", ownerID, "criterion", by, "error", err)
		return nil, err
	}
	s.metrics.Reranks.WithLabelValues(string(by)).Inc()

	s.logger.Info("Todos reranked", "user_id", ownerID, "criterion", by, "count", len(ranked))
	return ranked, nil
}

// Complete marks the owned active todos among ids as completed. Ids that are
// unknown, foreign or already completed are skipped without error.
func (s *TodoService) Complete(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if ownerID == "" {
		return 0, ErrUnauthenticated
	}

	n, err := s.store.CompleteTodos(ctx, ownerID, ids)
	if err != nil {
		s.logger.Error("Complete todos failed", "user_id", ownerID, "error", err)
		return 0, err
	}
	s.metrics.TodosCompleted.Add(float64(n))

	s.logger.Info("Todos completed", "user_id", ownerID, "requested", len(ids), "completed", n)
	return n, nil
}

// Restore moves a completed todo back to the end of the active order.
func (s *TodoService) Restore(ctx context.Context, ownerID, todoID string) (*models.Todo, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	todo, err := s.store.RestoreTodo(ctx, ownerID, todoID)
	if err != nil {
		return nil, s.storeError("Restore todo", ownerID, todoID, err)
	}

	s.logger.Info("Todo restored", "user_id", ownerID, "todo_id", todoID, "order", todo.Order)
	return todo, nil
}

// storeError maps storage.ErrNotFound to ErrNotFound and logs anything else.
func (s *TodoService) storeError(op, ownerID, todoID string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	s.logger.Error(op+" failed", "user_id", ownerID, "todo_id", todoID, "error", err)
	return err
}
