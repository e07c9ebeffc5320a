package ranking

import (
	"testing"
	"time"

	"github.com/KianYamaguchi/Todo4/internal/models"
)

func date(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ids(todos []models.Todo) []string {
	out := make([]string, len(todos))
	for i, t := range todos {
		out[i] = t.ID
	}
	return out
}

func TestNextOrder(t *testing.T) {
	tests := []struct {
		name      string
		maxOrder  int
		hasActive bool
		wantOrder int
	}{
		{"empty active set starts at zero", 0, false, 0},
		{"appends after dense sequence", 2, true, 3},
		{"appends after max even with gaps", 7, true, 8},
		{"max of zero appends at one", 0, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextOrder(tt.maxOrder, tt.hasActive)
			if got != tt.wantOrder {
				t.Errorf("NextOrder = %d, want %d", got, tt.wantOrder)
			}
		})
	}
}

func TestRerank(t *testing.T) {
	tests := []struct {
		name    string
		todos   []models.Todo
		by      Criterion
		wantIDs []string
		wantErr bool
	}{
		{
			name: "by due date ascending",
			todos: []models.Todo{
				{ID: "A", Due: date("2024-02-01"), Order: 0},
				{ID: "B", Due: date("2024-01-01"), Order: 1},
				{ID: "C", Due: date("2024-03-01"), Order: 2},
			},
			by:      ByDue,
			wantIDs: []string{"B", "A", "C"},
		},
		{
			name: "by priority descending",
			todos: []models.Todo{
				{ID: "A", Priority: models.PriorityLow},
				{ID: "B", Priority: models.PriorityHigh},
				{ID: "C", Priority: models.PriorityMedium},
			},
			by:      ByPriority,
			wantIDs: []string{"B", "C", "A"},
		},
		{
			name: "ties keep input order",
			todos: []models.Todo{
				{ID: "X", Priority: models.PriorityMedium},
				{ID: "Y", Priority: models.PriorityHigh},
				{ID: "Z", Priority: models.PriorityMedium},
			},
			by:      ByPriority,
			wantIDs: []string{"Y", "X", "Z"},
		},
		{
			name:    "empty input",
			todos:   []models.Todo{},
			by:      ByDue,
			wantIDs: []string{},
		},
		{
			name:    "unknown criterion should error",
			todos:   []models.Todo{{ID: "A"}},
			by:      Criterion("alphabetical"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rerank(tt.todos, tt.by)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Rerank failed: %v", err)
			}

			gotIDs := ids(got)
			if len(gotIDs) != len(tt.wantIDs) {
				t.Fatalf("got %v, want %v", gotIDs, tt.wantIDs)
			}
			for i := range gotIDs {
				if gotIDs[i] != tt.wantIDs[i] {
					t.Errorf("position %d: got %s, want %s", i, gotIDs[i], tt.wantIDs[i])
				}
				if got[i].Order != i {
					t.Errorf("%s: order = %d, want %d", got[i].ID, got[i].Order, i)
				}
			}
		})
	}
}

func TestRerank_DoesNotMutateInput(t *testing.T) {
	todos := []models.Todo{
		{ID: "A", Due: date("2024-02-01"), Order: 5},
		{ID: "B", Due: date("2024-01-01"), Order: 9},
	}

	if _, err := Rerank(todos, ByDue); err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}

	if todos[0].ID != "A" || todos[0].Order != 5 || todos[1].Order != 9 {
		t.Errorf("input modified: %+v", todos)
	}
}

func TestRerank_Idempotent(t *testing.T) {
	todos := []models.Todo{
		{ID: "A", Due: date("2024-02-01"), Priority: models.PriorityLow},
		{ID: "B", Due: date("2024-01-01"), Priority: models.PriorityHigh},
		{ID: "C", Due: date("2024-01-01"), Priority: models.PriorityMedium},
		{ID: "D", Due: date("2024-03-01"), Priority: models.PriorityHigh},
	}

	for _, by := range []Criterion{ByDue, ByPriority} {
		t.Run(string(by), func(t *testing.T) {
			first, err := Rerank(todos, by)
			if err != nil {
				t.Fatalf("first Rerank failed: %v", err)
			}
			second, err := Rerank(first, by)
			if err != nil {
				t.Fatalf("second Rerank failed: %v", err)
			}

			for i := range first {
				if first[i].ID != second[i].ID || first[i].Order != second[i].Order {
					t.Errorf("position %d: first=%s/%d second=%s/%d",
						i, first[i].ID, first[i].Order, second[i].ID, second[i].Order)
				}
			}
		})
	}
}

func TestUpdates(t *testing.T) {
	todos := []models.Todo{{ID: "A", Order: 1}, {ID: "B", Order: 0}}

	got := Updates(todos)

	if len(got) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(got))
	}
	if got[0] != (models.OrderUpdate{ID: "A", Order: 1}) {
		t.Errorf("update 0 = %+v", got[0])
	}
	if got[1] != (models.OrderUpdate{ID: "B", Order: 0}) {
		t.Errorf("update 1 = %+v", got[1])
	}
}
