package rpc

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/KianYamaguchi/Todo4/internal/auth"
	"github.com/KianYamaguchi/Todo4/internal/service"
)

// toConnectError maps service and auth errors onto Connect codes. Unknown
// errors are logged and hidden behind CodeInternal.
func toConnectError(procedure string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, auth.ErrEmailExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, service.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, service.ErrNotFound)
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, service.ErrUnauthenticated):
		return connect.NewError(connect.CodeUnauthenticated, err)
	default:
		slog.Error("RPC failed", "procedure", procedure, "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
}
