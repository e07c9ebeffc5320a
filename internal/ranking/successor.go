package ranking

import "github.com/KianYamaguchi/Todo4/internal/models"

// Successor returns the todo that follows current in the active ordering
// space: the todo with the smallest order strictly greater than current's.
// When current holds the highest order the lookup wraps to the todo with the
// smallest order. Ties resolve to the earliest todo in active.
//
// current itself is never returned. A nil result means there is no successor,
// which happens when active is empty or holds only current.
func Successor(active []models.Todo, current *models.Todo) *models.Todo {
	var next, first *models.Todo
	for i := range active {
		t := &active[i]
		if t.ID == current.ID {
			continue
		}
		if first == nil || t.Order < first.Order {
			first = t
		}
		if t.Order > current.Order && (next == nil || t.Order < next.Order) {
			next = t
		}
	}
	if next != nil {
		return next
	}
	return first
}
