// Package startup brings the service up in a fixed order: database (with a
// bounded retry budget), then the broker (under a timeout), and only then the
// HTTP listener.
package startup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kpressOrg/user-service/shared/events"
	"github.com/sethvargo/go-retry"
)

var (
	ErrDatabaseUnavailable = errors.New("could not connect to the database after multiple attempts")
	ErrBrokerUnavailable   = errors.New("could not connect to the message broker")
)

// Dependencies are the long-lived handles shared by every request.
type Dependencies struct {
	DB        *sql.DB
	Publisher events.Publisher
}

// Close releases the publisher first, then the database pool.
func (d *Dependencies) Close() error {
	var errs []error
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

const (
	DefaultDBAttemptTimeout    = 10 * time.Second
	DefaultBrokerTimeout       = 5 * time.Second
	DefaultShutdownGracePeriod = 10 * time.Second
)

type Config struct {
	Addr                string
	Queue               string
	DBRetry             RetryPolicy
	DBAttemptTimeout    time.Duration // bounds one database attempt
	BrokerTimeout       time.Duration
	ShutdownGracePeriod time.Duration
}

type Orchestrator struct {
	cfg           Config
	connectDB     DBConnector
	connectBroker BrokerConnector
	logger        *slog.Logger
	listen        func(network, addr string) (net.Listener, error)

	mu         sync.Mutex
	addr       net.Addr
	ready      chan struct{}
	onShutdown []func()
}

func New(cfg Config, connectDB DBConnector, connectBroker BrokerConnector, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DBAttemptTimeout <= 0 {
		cfg.DBAttemptTimeout = DefaultDBAttemptTimeout
	}
	if cfg.BrokerTimeout <= 0 {
		cfg.BrokerTimeout = DefaultBrokerTimeout
	}
	if cfg.ShutdownGracePeriod <= 0 {
		cfg.ShutdownGracePeriod = DefaultShutdownGracePeriod
	}
	return &Orchestrator{
		cfg:           cfg,
		connectDB:     connectDB,
		connectBroker: connectBroker,
		logger:        logger,
		listen:        net.Listen,
		ready:         make(chan struct{}),
	}
}

// OnShutdown registers fn to run after the HTTP server stopped and before the
// dependencies are closed.
func (o *Orchestrator) OnShutdown(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onShutdown = append(o.onShutdown, fn)
}

// Ready is closed once the listener is bound.
func (o *Orchestrator) Ready() <-chan struct{} {
	return o.ready
}

// Addr is the bound listener address, empty before Ready.
func (o *Orchestrator) Addr() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.addr == nil {
		return ""
	}
	return o.addr.String()
}

// Start connects to the database and the broker and declares the
// notification queue. On error nothing is left open.
func (o *Orchestrator) Start(ctx context.Context) (*Dependencies, error) {
	db, err := o.connectDatabase(ctx)
	if err != nil {
		return nil, err
	}

	pub, err := o.connectPublisher(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := pub.DeclareQueue(ctx, o.cfg.Queue); err != nil {
		_ = pub.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%w: declare queue %q: %w", ErrBrokerUnavailable, o.cfg.Queue, err)
	}
	o.logger.Info("message queue ready", "queue", o.cfg.Queue)

	return &Dependencies{DB: db, Publisher: pub}, nil
}

func (o *Orchestrator) connectDatabase(ctx context.Context) (*sql.DB, error) {
	attempts := max(o.cfg.DBRetry.Attempts, 1)
	attempt := 0

	var db *sql.DB
	err := retry.Do(ctx, o.cfg.DBRetry.Backoff(), func(ctx context.Context) error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.DBAttemptTimeout)
		conn, err := o.connectDB(attemptCtx)
		cancel()
		if err != nil {
			o.logger.Warn("database connection failed",
				"attempt", attempt,
				"remaining", attempts-attempt,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		db = conn
		return nil
	})
	if err != nil {
		o.logger.Error("database unavailable", "attempts", attempt, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	o.logger.Info("connected to the database", "attempt", attempt)
	return db, nil
}

// connectPublisher gives the broker a single attempt. A dial that outlives
// the timeout is abandoned and its connection closed whenever it lands.
func (o *Orchestrator) connectPublisher(ctx context.Context) (events.Publisher, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.BrokerTimeout)
	defer cancel()

	type result struct {
		pub events.Publisher
		err error
	}
	done := make(chan result, 1)
	go func() {
		pub, err := o.connectBroker(ctx)
		done <- result{pub, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			o.logger.Error("message broker unavailable", "error", r.err)
			return nil, fmt.Errorf("%w: %w", ErrBrokerUnavailable, r.err)
		}
		o.logger.Info("connected to the message broker")
		return r.pub, nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.pub != nil {
				_ = r.pub.Close()
			}
		}()
		o.logger.Error("message broker connection timed out", "timeout", o.cfg.BrokerTimeout)
		return nil, fmt.Errorf("%w: %w", ErrBrokerUnavailable, ctx.Err())
	}
}

// Run starts the dependencies, binds the listener and serves build(deps)
// until ctx is cancelled. The handler is never built if startup fails.
func (o *Orchestrator) Run(ctx context.Context, build func(*Dependencies) http.Handler) error {
	deps, err := o.Start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			o.logger.Error("error closing dependencies", "error", err)
		}
	}()

	srv := &http.Server{
		Handler:           build(deps),
		ReadHeaderTimeout: 3 * time.Second,
	}

	ln, err := o.listen("tcp", o.cfg.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", o.cfg.Addr, err)
	}
	o.mu.Lock()
	o.addr = ln.Addr()
	o.mu.Unlock()
	close(o.ready)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		o.runShutdownHooks()
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		o.logger.Info("shutdown requested")
	}

	return o.shutdown(srv)
}

// runShutdownHooks runs the OnShutdown hooks in registration order. Every
// exit path of Run that served traffic goes through it before deps close.
func (o *Orchestrator) runShutdownHooks() {
	o.mu.Lock()
	hooks := append([]func(){}, o.onShutdown...)
	o.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func (o *Orchestrator) shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.ShutdownGracePeriod)
	defer cancel()

	var shutdownErr error
	if err := srv.Shutdown(ctx); err != nil {
		o.logger.Error("graceful server shutdown failed", "error", err)
		shutdownErr = fmt.Errorf("graceful shutdown failed: %w", err)
		if err := srv.Close(); err != nil {
			o.logger.Error("error closing server", "error", err)
		}
	}

	o.runShutdownHooks()

	o.logger.Info("server stopped")
	return shutdownErr
}
