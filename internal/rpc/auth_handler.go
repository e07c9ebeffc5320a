package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/KianYamaguchi/Todo4/internal/service"
)

// AuthServiceName is the fully-qualified name of the account service.
const AuthServiceName = "todo.v1.AuthService"

const (
	AuthServiceRegisterProcedure = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure    = "/" + AuthServiceName + "/Login"
)

// AuthHandler implements the Connect AuthService. Its procedures are public.
type AuthHandler struct {
	accounts *service.AuthService
}

// NewAuthServiceHandler builds an HTTP handler serving the account procedures.
func NewAuthServiceHandler(accounts *service.AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	h := &AuthHandler{accounts: accounts}
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(AuthServiceRegisterProcedure, connect.NewUnaryHandler(AuthServiceRegisterProcedure, h.Register, opts...))
	mux.Handle(AuthServiceLoginProcedure, connect.NewUnaryHandler(AuthServiceLoginProcedure, h.Login, opts...))

	return "/" + AuthServiceName + "/", mux
}

func (h *AuthHandler) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	user, err := h.accounts.Register(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&RegisterResponse{UserID: user.ID}), nil
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	token, user, err := h.accounts.Login(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		return nil, toConnectError(req.Spec().Procedure, err)
	}
	return connect.NewResponse(&LoginResponse{Token: token, UserID: user.ID}), nil
}
