package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KianYamaguchi/Todo4/internal/models"
	"github.com/KianYamaguchi/Todo4/internal/ranking"
	"github.com/KianYamaguchi/Todo4/internal/storage"
)

const todoColumns = `id, owner_id, content, due, priority, sort_order, completed, created_at, updated_at`

// AppendTodo persists a new todo after the owner's last active todo.
func (s *SQLiteStore) AppendTodo(ctx context.Context, todo *models.Todo) error {
	// Generate ID if not set
	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if todo.CreatedAt == 0 {
		todo.CreatedAt = now
	}
	todo.UpdatedAt = now
	todo.Completed = false

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := nextActiveOrder(ctx, tx, todo.OwnerID)
	if err != nil {
		return err
	}
	todo.Order = order

	_, err = tx.ExecContext(ctx,
		`INSERT INTO todos (`+todoColumns+`) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		todo.ID, todo.OwnerID, todo.Content, todo.DueString(), string(todo.Priority),
		todo.Order, todo.CreatedAt, todo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert todo: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetTodo retrieves an owned todo by ID.
func (s *SQLiteStore) GetTodo(ctx context.Context, ownerID, todoID string) (*models.Todo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = ? AND owner_id = ?`,
		todoID, ownerID,
	)
	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return todo, nil
}

// UpdateTodo rewrites the editable fields of an owned todo.
func (s *SQLiteStore) UpdateTodo(ctx context.Context, todo *models.Todo) error {
	todo.UpdatedAt = time.Now().Unix()

	res, err := s.db.ExecContext(ctx,
		`UPDATE todos SET content = ?, due = ?, priority = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		todo.Content, todo.DueString(), string(todo.Priority), todo.UpdatedAt,
		todo.ID, todo.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	return checkRowsAffected(res)
}

// DeleteTodo removes an owned todo.
func (s *SQLiteStore) DeleteTodo(ctx context.Context, ownerID, todoID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM todos WHERE id = ? AND owner_id = ?",
		todoID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return checkRowsAffected(res)
}

// ListTodos returns the owner's active or completed todos.
func (s *SQLiteStore) ListTodos(ctx context.Context, ownerID string, completed bool) ([]models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE owner_id = ? AND completed = ?`
	if completed {
		query += ` ORDER BY due ASC, rowid ASC`
	} else {
		query += ` ORDER BY sort_order ASC, rowid ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, ownerID, boolToInt(completed))
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := make([]models.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, *todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todos: %w", err)
	}

	return todos, nil
}

// SetOrder writes one order value. It runs outside any transaction.
func (s *SQLiteStore) SetOrder(ctx context.Context, ownerID string, update models.OrderUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE todos SET sort_order = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ? AND completed = 0`,
		update.Order, time.Now().Unix(), update.ID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to set order: %w", err)
	}
	return checkRowsAffected(res)
}

// ApplyOrder writes a full ranking atomically. Todos that were completed or
// deleted since the ranking was computed are skipped.
func (s *SQLiteStore) ApplyOrder(ctx context.Context, ownerID string, updates []models.OrderUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, u := range updates {
		_, err := tx.ExecContext(ctx,
			`UPDATE todos SET sort_order = ?, updated_at = ?
			 WHERE id = ? AND owner_id = ? AND completed = 0`,
			u.Order, now, u.ID, ownerID,
		)
		if err != nil {
			return fmt.Errorf("failed to apply order for %s: %w", u.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// completeBatchSize bounds the bind variables of one bulk-complete statement
// well below SQLite's variable limit.
const completeBatchSize = 500

// CompleteTodos flips the completed flag for the owned active todos in ids.
// Large id lists are written in batches inside one transaction.
func (s *SQLiteStore) CompleteTodos(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	var total int64
	for start := 0; start < len(ids); start += completeBatchSize {
		batch := ids[start:min(start+completeBatchSize, len(ids))]

		query := `UPDATE todos SET completed = 1, updated_at = ?
			WHERE owner_id = ? AND completed = 0 AND id IN (?` + repeatPlaceholder(len(batch)-1) + `)`

		args := make([]any, 0, len(batch)+2)
		args = append(args, now, ownerID)
		for _, id := range batch {
			args = append(args, id)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to complete todos: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read rows affected: %w", err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return total, nil
}

// RestoreTodo reactivates an owned completed todo at the end of the order.
func (s *SQLiteStore) RestoreTodo(ctx context.Context, ownerID, todoID string) (*models.Todo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	todo, err := scanTodo(tx.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = ? AND owner_id = ? AND completed = 1`,
		todoID, ownerID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}

	order, err := nextActiveOrder(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}
	todo.Order = order
	todo.Completed = false
	todo.UpdatedAt = time.Now().Unix()

	_, err = tx.ExecContext(ctx,
		`UPDATE todos SET completed = 0, sort_order = ?, updated_at = ? WHERE id = ?`,
		todo.Order, todo.UpdatedAt, todo.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to restore todo: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return todo, nil
}

// nextActiveOrder reads the owner's highest active order inside tx and
// returns the order for an appended todo.
func nextActiveOrder(ctx context.Context, tx *sql.Tx, ownerID string) (int, error) {
	var maxOrder sql.NullInt64
	err := tx.QueryRowContext(ctx,
		"SELECT MAX(sort_order) FROM todos WHERE owner_id = ? AND completed = 0",
		ownerID,
	).Scan(&maxOrder)
	if err != nil {
		return 0, fmt.Errorf("failed to read max order: %w", err)
	}
	return ranking.NextOrder(int(maxOrder.Int64), maxOrder.Valid), nil
}

func scanTodo(row rowScanner) (*models.Todo, error) {
	todo := &models.Todo{}
	var due, priority string
	var completed int
	if err := row.Scan(&todo.ID, &todo.OwnerID, &todo.Content, &due, &priority,
		&todo.Order, &completed, &todo.CreatedAt, &todo.UpdatedAt); err != nil {
		return nil, err
	}

	t, err := models.ParseDue(due)
	if err != nil {
		return nil, err
	}
	todo.Due = t
	todo.Priority = models.Priority(priority)
	todo.Completed = completed != 0
	return todo, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// repeatPlaceholder returns a string of ", ?" repeated n times.
// Used for building IN clauses with multiple placeholders.
func repeatPlaceholder(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(", ?", n)
}
