// Package api provides the HTTP REST API for Redquill Core.
//
// It exposes the session endpoints (register, login, auto-connect,
// auto-login, me) plus health and the audit trail to web clients.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redquill/redquill-core/internal/audit"
	"github.com/redquill/redquill-core/internal/auth"
	"github.com/redquill/redquill-core/internal/infrastructure/config"
	"github.com/redquill/redquill-core/internal/infrastructure/database"
	"github.com/redquill/redquill-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      *config.Config
	Logger      *logging.Logger
	DB          *database.DB
	Users       auth.UserRepository
	Devices     auth.DeviceRepository
	Provisioner *auth.Provisioner
	Registry    *auth.Registry
	Verifier    *auth.Verifier
	AuditRepo   audit.Repository // optional: nil disables the auth trail
	Version     string
}

// Server is the HTTP API server for Redquill Core.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg         *config.Config
	logger      *logging.Logger
	db          *database.DB
	users       auth.UserRepository
	devices     auth.DeviceRepository
	provisioner *auth.Provisioner
	registry    *auth.Registry
	verifier    *auth.Verifier
	auditRepo   audit.Repository
	auditCh     chan *audit.Entry
	version     string
	server      *http.Server
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if deps.Users == nil || deps.Devices == nil {
		return nil, fmt.Errorf("user and device repositories are required")
	}
	if deps.Provisioner == nil || deps.Registry == nil || deps.Verifier == nil {
		return nil, fmt.Errorf("provisioner, registry, and verifier are required")
	}

	s := &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		db:          deps.DB,
		users:       deps.Users,
		devices:     deps.Devices,
		provisioner: deps.Provisioner,
		registry:    deps.Registry,
		verifier:    deps.Verifier,
		auditRepo:   deps.AuditRepo,
		version:     deps.Version,
	}

	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, launches the audit trail writer, and starts the
// HTTP listener in a background goroutine. The server can be stopped with
// Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.auditCh != nil {
		go s.drainAuditLog(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (audit trail writer)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
