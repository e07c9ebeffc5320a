package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for due dates.
const DateLayout = "2006-01-02"

// Priority is the urgency of a todo.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Rank returns the sort weight of the priority. Higher ranks sort first when
// todos are ranked by priority. Unknown priorities rank below LOW.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// ParsePriority converts a case-insensitive string to a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// ParseDue parses a calendar date in DateLayout.
func ParseDue(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: %w", s, err)
	}
	return t, nil
}

// Todo is a single task owned by one user.
//
// Active todos (Completed == false) form the owner's ordering space: Order
// defines their display sequence. Completed todos keep the Order they had when
// they were completed, but it carries no meaning until they are restored.
type Todo struct {
	// ID is the unique identifier for the todo (UUID format).
	ID string

	// OwnerID is the user who exclusively controls the todo. Never changes.
	OwnerID string

	// Content is the free-text description.
	Content string

	// Due is the calendar date the todo is due (UTC midnight).
	Due time.Time

	Priority Priority

	// Order is the position of the todo among the owner's active todos.
	Order int

	Completed bool

	// CreatedAt is the Unix timestamp when the todo was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last modification.
	UpdatedAt int64
}

// DueString returns the due date formatted with DateLayout.
func (t *Todo) DueString() string {
	return t.Due.Format(DateLayout)
}

// OrderUpdate assigns a new position to one todo.
type OrderUpdate struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}
