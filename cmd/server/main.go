package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/KianYamaguchi/Todo4/internal/auth"
	"github.com/KianYamaguchi/Todo4/internal/config"
	"github.com/KianYamaguchi/Todo4/internal/httpapi"
	"github.com/KianYamaguchi/Todo4/internal/metrics"
	"github.com/KianYamaguchi/Todo4/internal/middleware"
	"github.com/KianYamaguchi/Todo4/internal/rpc"
	"github.com/KianYamaguchi/Todo4/internal/service"
	"github.com/KianYamaguchi/Todo4/internal/storage/sqlite"
	"github.com/KianYamaguchi/Todo4/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel)

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DBPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store, cfg.BcryptCost)

	todos := service.NewTodoService(store, m, logger)
	accounts := service.NewAuthService(authenticator, jwtManager, store, logger)

	validator, err := httpapi.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to compile request schemas: %w", err)
	}

	mux := http.NewServeMux()

	// REST API
	httpapi.NewServer(todos, accounts, jwtManager, validator, store).RegisterRoutes(mux)

	// Connect services
	todoPath, todoHandler := rpc.NewTodoServiceHandler(todos,
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(m)),
	)
	mux.Handle(todoPath, todoHandler)

	authPath, authHandler := rpc.NewAuthServiceHandler(accounts,
		connect.WithInterceptors(middleware.LoggingInterceptor(m)),
	)
	mux.Handle(authPath, authHandler)

	mux.Handle("GET /metrics", metrics.Handler(reg))

	// Instrument must sit directly on the mux to see the matched pattern.
	handler := middleware.CORS(cfg.CORSOrigin, middleware.Logging(middleware.Instrument(m, mux)))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect streaming clients)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
