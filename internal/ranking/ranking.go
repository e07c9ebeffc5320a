// Package ranking maintains the per-user order of active todos.
//
// All functions are pure: they take todos in the store's iteration order and
// return new values. Persisting the result is the caller's job.
package ranking

import (
	"fmt"
	"sort"

	"github.com/KianYamaguchi/Todo4/internal/models"
)

// Criterion selects the sort used by a full re-rank.
type Criterion string

const (
	// ByDue sorts ascending by due date.
	ByDue Criterion = "due"
	// ByPriority sorts descending by priority (HIGH, MEDIUM, LOW).
	ByPriority Criterion = "priority"
)

// NextOrder returns the order for a todo appended to an ordering space whose
// highest order is maxOrder. hasActive is false when the space is empty.
func NextOrder(maxOrder int, hasActive bool) int {
	if !hasActive {
		return 0
	}
	return maxOrder + 1
}

// Rerank sorts a copy of todos by the criterion and rewrites Order as the
// dense sequence 0..N-1. The sort is stable, so ties keep the input order.
func Rerank(todos []models.Todo, by Criterion) ([]models.Todo, error) {
	less, err := lessFunc(by)
	if err != nil {
		return nil, err
	}

	ranked := make([]models.Todo, len(todos))
	copy(ranked, todos)
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(&ranked[i], &ranked[j])
	})

	for i := range ranked {
		ranked[i].Order = i
	}
	return ranked, nil
}

// Updates lists the (id, order) pairs needed to persist todos.
func Updates(todos []models.Todo) []models.OrderUpdate {
	updates := make([]models.OrderUpdate, len(todos))
	for i, t := range todos {
		updates[i] = models.OrderUpdate{ID: t.ID, Order: t.Order}
	}
	return updates
}

func lessFunc(by Criterion) (func(a, b *models.Todo) bool, error) {
	switch by {
	case ByDue:
		return func(a, b *models.Todo) bool {
			return a.Due.Before(b.Due)
		}, nil
	case ByPriority:
		return func(a, b *models.Todo) bool {
			return a.Priority.Rank() > b.Priority.Rank()
		}, nil
	default:
		return nil, fmt.Errorf("unknown rank criterion %q", by)
	}
}
