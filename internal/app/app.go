package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"userdir/internal/config"
	custommw "userdir/internal/middleware"
)

// Store is the connectable storage backend collaborator. Connect must
// complete before the listener is started; Disconnect runs on shutdown.
// Both are safe to call once each per process lifetime.
type Store interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// RouteGroup is a routable handler group mountable under a path prefix.
type RouteGroup interface {
	Routes() chi.Router
}

// ErrorFilter is the exception-classifying middleware registered last in
// the chain, so it observes errors from all prior middleware and routes.
type ErrorFilter interface {
	Handler(next http.Handler) http.Handler
}

// Dependencies carries the already-constructed collaborators. No
// reflection, no container: plain constructor injection.
type Dependencies struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       Store
	Users       RouteGroup
	ErrorFilter ErrorFilter

	// Health and Metrics are optional surfaces mounted outside /users.
	Health  http.HandlerFunc
	Metrics *custommw.HTTPMetrics

	// MetricsHandler serves the Prometheus exposition endpoint.
	MetricsHandler http.Handler
}

// Application owns the HTTP server and sequences its lifecycle:
// middleware, routes, error filter, store connect, listen — strictly in
// that order.
type Application struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   Store
	users   RouteGroup
	filter  ErrorFilter
	health  http.HandlerFunc
	metrics *custommw.HTTPMetrics
	metricsHandler http.Handler

	router *chi.Mux
	server *http.Server

	// listen starts the listener for the prepared server. Binding errors
	// are returned synchronously; serving continues in the background and
	// reports fatal errors on serveErr. Overridable in tests.
	listen   func(srv *http.Server) error
	serveErr chan error

	shutdownOnce sync.Once
}

// New creates an application from its collaborators.
func New(deps Dependencies) (*Application, error) {
	if deps.Config == nil {
		return nil, errors.New("app: config is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("app: logger is required")
	}
	if deps.Store == nil {
		return nil, errors.New("app: store is required")
	}
	if deps.Users == nil {
		return nil, errors.New("app: user routes are required")
	}
	if deps.ErrorFilter == nil {
		return nil, errors.New("app: error filter is required")
	}

	a := &Application{
		cfg:            deps.Config,
		logger:         deps.Logger,
		store:          deps.Store,
		users:          deps.Users,
		filter:         deps.ErrorFilter,
		health:         deps.Health,
		metrics:        deps.Metrics,
		metricsHandler: deps.MetricsHandler,
		serveErr:       make(chan error, 1),
	}
	a.listen = a.defaultListen
	return a, nil
}

// Initialize performs the startup sequence: register baseline middleware,
// mount the user resource under /users, register the error filter last,
// connect the store (awaited), then start listening on the configured
// port. A store connect failure aborts startup before any listen.
//
// Calling Initialize twice on the same instance is unsupported.
func (a *Application) Initialize(ctx context.Context) error {
	a.setupRouter()

	if err := a.store.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect store: %w", err)
	}

	a.createServer()

	if err := a.listen(a.server); err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}

	a.logger.InfoContext(ctx, "server listening",
		slog.Int("port", a.cfg.Server.Port))
	return nil
}

// setupRouter builds the middleware chain and mounts all routes.
// The error filter must stay the last registered middleware.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.MaxBytes(a.cfg.Server.MaxBodyBytes))
	r.Use(custommw.RequestLogger(a.logger))
	r.Use(custommw.Recoverer(a.logger))

	if a.metrics != nil {
		r.Use(a.metrics.Handler)
	}
	if a.cfg.Security.EnableCORS {
		r.Use(custommw.CORS(custommw.CORSConfig{
			AllowedOrigins: a.cfg.Security.AllowedOrigins,
		}))
	}
	if a.cfg.Security.RateLimit.Enabled {
		r.Use(custommw.NewRateLimiter(
			a.cfg.Security.RateLimit.RPS,
			a.cfg.Security.RateLimit.Burst,
			a.logger,
		).Handler)
	}

	r.Use(a.filter.Handler)

	r.Mount("/users", a.users.Routes())

	if a.health != nil {
		r.Get("/healthz", a.health)
	}
	if a.metricsHandler != nil {
		r.Handle("/metrics", a.metricsHandler)
	}

	a.router = r
}

// createServer creates the HTTP server bound to the configured port.
func (a *Application) createServer() {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
}

// defaultListen binds the listener synchronously and serves in the
// background, reporting fatal serve errors on serveErr.
func (a *Application) defaultListen(srv *http.Server) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serveErr <- err
		}
	}()
	return nil
}

// Run starts the application and blocks until an interrupt signal or a
// fatal server error, then shuts down. Returns nil on a clean
// signal-triggered shutdown; the caller maps that to exit code 0.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Initialize(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case err := <-a.serveErr:
			return err
		case <-gctx.Done():
			return nil
		}
	})

	runErr := g.Wait()
	if runErr == nil {
		a.logger.Info("received interrupt signal, shutting down")
	}

	shutdownErr := a.Shutdown(context.Background())
	if runErr != nil {
		return runErr
	}
	return shutdownErr
}

// Shutdown disconnects the store, then closes the server without
// draining in-flight requests. Safe to call more than once; only the
// first call does the work.
func (a *Application) Shutdown(ctx context.Context) error {
	var err error
	a.shutdownOnce.Do(func() {
		if derr := a.store.Disconnect(ctx); derr != nil {
			a.logger.ErrorContext(ctx, "store disconnect failed",
				slog.String("error", derr.Error()))
			err = derr
		}

		if a.server != nil {
			if cerr := a.server.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}

		a.logger.InfoContext(ctx, "shutdown complete")
	})
	return err
}

// Router exposes the configured router, primarily for tests.
func (a *Application) Router() chi.Router {
	return a.router
}

// Addr returns the address the server is (or will be) bound to.
func (a *Application) Addr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr
}
