package rpc

import "github.com/KianYamaguchi/Todo4/internal/models"

// Todo is the RPC form of a todo.
type Todo struct {
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

func todoToRPC(todo *models.Todo) *Todo {
	if todo == nil {
		return nil
	}
	return &Todo{
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

func todosToRPC(todos []models.Todo) []*Todo {
	out := make([]*Todo, len(todos))
	for i := range todos {
		out[i] = todoToRPC(&todos[i])
	}
	return out
}

type ListTodosRequest struct{}

type ListTodosResponse struct {
	Todos []*Todo `json:"todos"`
}

type GetTodoRequest struct {
	ID string `json:"id"`
}

type GetTodoResponse struct {
	Todo *Todo `json:"todo"`
}

type CreateTodoRequest struct {
	Content  string `json:"content"`
	Due      string `json:"due"`
	Priority string `json:"priority"`
}

type CreateTodoResponse struct {
	Todo *Todo `json:"todo"`
}

type UpdateTodoRequest struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Due      string `json:"due"`
	Priority string `json:"priority"`
}

type UpdateTodoResponse struct {
	Todo *Todo `json:"todo"`
}

type DeleteTodoRequest struct {
	ID string `json:"id"`
}

type DeleteTodoResponse struct{}

type NextTodoRequest struct {
	ID string `json:"id"`
}

// NextTodoResponse carries a nil Todo when there is no successor.
type NextTodoResponse struct {
	Todo *Todo `json:"todo"`
}

type ReorderTodosRequest struct {
	Orders []models.OrderUpdate `json:"orders"`
}

type ReorderTodosResponse struct{}

type SortTodosRequest struct{}

type SortTodosResponse struct {
	Todos []*Todo `json:"todos"`
}

type CompleteTodosRequest struct {
	IDs []string `json:"ids"`
}

type CompleteTodosResponse struct {
	Completed int64 `json:"completed"`
}

type ListCompletedRequest struct{}

type ListCompletedResponse struct {
	Todos []*Todo `json:"todos"`
}

type RestoreTodoRequest struct {
	ID string `json:"id"`
}

type RestoreTodoResponse struct {
	Todo *Todo `json:"todo"`
}

type DeleteCompletedRequest struct {
	ID string `json:"id"`
}

type DeleteCompletedResponse struct{}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID string `json:"userId"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
