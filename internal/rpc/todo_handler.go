package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/KianYamaguchi/Todo4/internal/middleware"
	"github.com/KianYamaguchi/Todo4/internal/ranking"
	"github.com/KianYamaguchi/Todo4/internal/service"
)

// TodoServiceName is the fully-qualified name of the todo service.
const TodoServiceName = "todo.v1.TodoService"

// Procedure paths of the todo service.
const (
	TodoServiceListTodosProcedure       = "/" + TodoServiceName + "/ListTodos"
	TodoServiceGetTodoProcedure         = "/" + TodoServiceName + "/GetTodo"
	TodoServiceCreateTodoProcedure      = "/" + TodoServiceName + "/CreateTodo"
	TodoServiceUpdateTodoProcedure      = "/" + TodoServiceName + "/UpdateTodo"
	TodoServiceDeleteTodoProcedure      = "/" + TodoServiceName + "/DeleteTodo"
	TodoServiceNextTodoProcedure        = "/" + TodoServiceName + "/NextTodo"
	TodoServiceReorderTodosProcedure    = "/" + TodoServiceName + "/ReorderTodos"
	TodoServiceSortByDueProcedure       = "/" + TodoServiceName + "/SortByDue"
	TodoServiceSortByPriorityProcedure  = "/" + TodoServiceName + "/SortByPriority"
	TodoServiceCompleteTodosProcedure   = "/" + TodoServiceName + "/CompleteTodos"
	TodoServiceListCompletedProcedure   = "/" + TodoServiceName + "/ListCompleted"
	TodoServiceRestoreTodoProcedure     = "/" + TodoServiceName + "/RestoreTodo"
	TodoServiceDeleteCompletedProcedure = "/" + TodoServiceName + "/DeleteCompleted"
)

// TodoHandler implements the Connect TodoService on top of service.TodoService.
// Every procedure acts on behalf of the user placed in the context by
// middleware.RequireAuth.
type TodoHandler struct {
	todos *service.TodoService
}

// NewTodoServiceHandler builds an HTTP handler serving every todo procedure.
// It returns the path prefix to mount the handler on.
func NewTodoServiceHandler(todos *service.TodoService, opts ...connect.HandlerOption) (string, http.Handler) {
	h := &TodoHandler{todos: todos}
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(TodoServiceListTodosProcedure, connect.NewUnaryHandler(TodoServiceListTodosProcedure, h.ListTodos, opts...))
	mux.Handle(TodoServiceGetTodoProcedure, connect.NewUnaryHandler(TodoServiceGetTodoProcedure, h.GetTodo, opts...))
	mux.Handle(TodoServiceCreateTodoProcedure, connect.NewUnaryHandler(TodoServiceCreateTodoProcedure, h.CreateTodo, opts...))
	mux.Handle(TodoServiceUpdateTodoProcedure, connect.NewUnaryHandler(TodoServiceUpdateTodoProcedure, h.UpdateTodo, opts...))
	mux.Handle(TodoServiceDeleteTodoProcedure, connect.NewUnaryHandler(TodoServiceDeleteTodoProcedure, h.DeleteTodo, opts...))
	mux.Handle(TodoServiceNextTodoProcedure, connect.NewUnaryHandler(TodoServiceNextTodoProcedure, h.NextTodo, opts...))
	mux.Handle(TodoServiceReorderTodosProcedure, connect.NewUnaryHandler(TodoServiceReorderTodosProcedure, h.ReorderTodos, opts...))
	mux.Handle(TodoServiceSortByDueProcedure, connect.NewUnaryHandler(TodoServiceSortByDueProcedure, h.SortByDue, opts...))
	mux.Handle(TodoServiceSortByPriorityProcedure, connect.NewUnaryHandler(TodoServiceSortByPriorityProcedure, h.SortByPriority, opts...))
	mux.Handle(TodoServiceCompleteTodosProcedure, connect.NewUnaryHandler(TodoServiceCompleteTodosProcedure, h.CompleteTodos, opts...))
	mux.Handle(TodoServiceListCompletedProcedure, connect.NewUnaryHandler(TodoServiceListCompletedProcedure, h.ListCompleted, opts...))
	mux.Handle(TodoServiceRestoreTodoProcedure, connect.NewUnaryHandler(TodoServiceRestoreTodoProcedure, h.RestoreTodo, opts...))
	mux.Handle(TodoServiceDeleteCompletedProcedure, connect.NewUnaryHandler(TodoServiceDeleteCompletedProcedure, h.DeleteCompleted, opts...))

	return "/" + TodoServiceName + "/", mux
}

// ListTodos returns the caller's active todos in display order.
func (h *TodoHandler) ListTodos(ctx context.Context, req *connect.Request[ListTodosRequest]) (*connect.Response[ListTodosResponse], error) {
	todos, err := h.todos.List(ctx, middleware.GetUserID(ctx))
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&ListTodosResponse{Todos: todosToRPC(todos)}), nil
}

// GetTodo retrieves one owned todo.
func (h *TodoHandler) GetTodo(ctx context.Context, req *connect.Request[GetTodoRequest]) (*connect.Response[GetTodoResponse], error) {
	todo, err := h.todos.Get(ctx, middleware.GetUserID(ctx), req.Msg.ID)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&GetTodoResponse{Todo: todoToRPC(todo)}), nil
}

// CreateTodo appends a new todo to the caller's order.
func (h *TodoHandler) CreateTodo(ctx context.Context, req *connect.Request[CreateTodoRequest]) (*connect.Response[CreateTodoResponse], error) {
	todo, err := h.todos.Create(ctx, middleware.GetUserID(ctx), service.TodoInput{
		Content:  req.Msg.Content,
		Due:      req.Msg.Due,
		Priority: req.Msg.Priority,
	})
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&CreateTodoResponse{Todo: todoToRPC(todo)}), nil
}

// UpdateTodo rewrites the editable fields of an owned todo.
func (h *TodoHandler) UpdateTodo(ctx context.Context, req *connect.Request[UpdateTodoRequest]) (*connect.Response[UpdateTodoResponse], error) {
	todo, err := h.todos.Update(ctx, middleware.GetUserID(ctx), req.Msg.ID, service.TodoInput{
		Content:  req.Msg.Content,
		Due:      req.Msg.Due,
		Priority: req.Msg.Priority,
	})
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&UpdateTodoResponse{Todo: todoToRPC(todo)}), nil
}

func (h *TodoHandler) DeleteTodo(ctx context.Context, req *connect.Request[DeleteTodoRequest]) (*connect.Response[DeleteTodoResponse], error) {
	if err := h.todos.Delete(ctx, middleware.GetUserID(ctx), req.Msg.ID); err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&DeleteTodoResponse{}), nil
}

// NextTodo returns the cyclic successor, or an empty response when there is none.
func (h *TodoHandler) NextTodo(ctx context.Context, req *connect.Request[NextTodoRequest]) (*connect.Response[NextTodoResponse], error) {
	next, err := h.todos.Next(ctx, middleware.GetUserID(ctx), req.Msg.ID)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&NextTodoResponse{Todo: todoToRPC(next)}), nil
}

func (h *TodoHandler) ReorderTodos(ctx context.Context, req *connect.Request[ReorderTodosRequest]) (*connect.Response[ReorderTodosResponse], error) {
	if err := h.todos.Reorder(ctx, middleware.GetUserID(ctx), req.Msg.Orders); err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&ReorderTodosResponse{}), nil
}

func (h *TodoHandler) SortByDue(ctx context.Context, req *connect.Request[SortTodosRequest]) (*connect.Response[SortTodosResponse], error) {
	return h.rerank(ctx, req, ranking.ByDue)
}

func (h *TodoHandler) SortByPriority(ctx context.Context, req *connect.Request[SortTodosRequest]) (*connect.Response[SortTodosResponse], error) {
	return h.rerank(ctx, req, ranking.ByPriority)
}

func (h *TodoHandler) rerank(ctx context.Context, req *connect.Request[SortTodosRequest], by ranking.Criterion) (*connect.Response[SortTodosResponse], error) {
	todos, err := h.todos.Rerank(ctx, middleware.GetUserID(ctx), by)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&SortTodosResponse{Todos: todosToRPC(todos)}), nil
}

// CompleteTodos marks the caller's todos among the ids as completed.
func (h *TodoHandler) CompleteTodos(ctx context.Context, req *connect.Request[CompleteTodosRequest]) (*connect.Response[CompleteTodosResponse], error) {
	n, err := h.todos.Complete(ctx, middleware.GetUserID(ctx), req.Msg.IDs)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&CompleteTodosResponse{Completed: n}), nil
}

func (h *TodoHandler) ListCompleted(ctx context.Context, req *connect.Request[ListCompletedRequest]) (*connect.Response[ListCompletedResponse], error) {
	todos, err := h.todos.ListCompleted(ctx, middleware.GetUserID(ctx))
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&ListCompletedResponse{Todos: todosToRPC(todos)}), nil
}

func (h *TodoHandler) RestoreTodo(ctx context.Context, req *connect.Request[RestoreTodoRequest]) (*connect.Response[RestoreTodoResponse], error) {
	todo, err := h.todos.Restore(ctx, middleware.GetUserID(ctx), req.Msg.ID)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&RestoreTodoResponse{Todo: todoToRPC(todo)}), nil
}

func (h *TodoHandler) DeleteCompleted(ctx context.Context, req *connect.Request[DeleteCompletedRequest]) (*connect.Response[DeleteCompletedResponse], error) {
	if err := h.todos.DeleteCompleted(ctx, middleware.GetUserID(ctx), req.Msg.ID); err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&DeleteCompletedResponse{}), nil
}
