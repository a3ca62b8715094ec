package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "SignalForge/pkg/http"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/queue"
)

// App owns the long-running parts of the process: the HTTP server, the job
// queue and the infrastructure clients closed on shutdown.
type App struct {
	log             *applogger.Logger
	httpServer      *xhttp.Server
	queue           queue.Queue
	closers         []namedCloser
	shutdownTimeout time.Duration
}

type namedCloser struct {
	name string
	c    io.Closer
}

// Option configures App.
type Option func(*App)

// WithQueue starts q before the HTTP server and stops it after.
func WithQueue(q queue.Queue) Option {
	return func(a *App) { a.queue = q }
}

// WithCloser registers a client closed on shutdown. Closers run in reverse
// registration order. A nil closer is ignored.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// WithShutdownTimeout bounds the whole shutdown sequence.
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

// New creates a new App instance with all dependencies.
func New(log *applogger.Logger, srv *xhttp.Server, opts ...Option) *App {
	if log == nil {
		log = applogger.Nop()
	}
	a := &App{log: log, httpServer: srv, shutdownTimeout: 15 * time.Second}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the queue and the HTTP server and blocks until ctx is
// done or the server fails.
func (a *App) RunContext(ctx context.Context) error {
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			a.closeAll()
			return fmt.Errorf("start queue: %w", err)
		}
		a.log.Info("job queue started")
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		_ = a.shutdown()
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-a.httpServer.Errors():
		a.log.Error("http server stopped", applogger.Error(err))
		runErr = err
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown stops the HTTP server first so no new work is accepted, then
// drains the queue and closes the infrastructure clients.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.log.Warn("queue stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.closeAll()
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("client", nc.name), applogger.Error(err))
		}
	}
	a.closers = nil
}
