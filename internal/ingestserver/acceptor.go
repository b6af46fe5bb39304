// Package ingestserver hosts the Acceptor and Connection Handler that
// together implement the receiving half of the video-ingestion pipeline:
// a bounded-worker TCP accept loop dispatching to the per-connection state
// machine in handler.go.
package ingestserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/RichterDelaCruz/mediaconsumer/internal/hashlock"
	"github.com/RichterDelaCruz/mediaconsumer/internal/observability/logging"
	"github.com/RichterDelaCruz/mediaconsumer/internal/observability/metrics"
	"github.com/RichterDelaCruz/mediaconsumer/internal/queue"
	"github.com/RichterDelaCruz/mediaconsumer/internal/videostore"
)

// AcceptorConfig controls Acceptor construction.
type AcceptorConfig struct {
	// Addr is the TCP address to listen on, e.g. ":9090".
	Addr string
	// Workers bounds the number of Connection Handlers running concurrently
	// (C in the component design). Accepted connections beyond this bound
	// wait for a worker slot; the OS backlog absorbs the burst.
	Workers int
	UploadsDir string
	Queue      *queue.Queue[videostore.VideoHandle]
	Locks      *hashlock.Table
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
}

// Acceptor binds a listening TCP socket and dispatches each accepted
// connection to a Connection Handler, bounding concurrent handlers to
// Workers with a weighted semaphore the way a fixed thread pool would.
type Acceptor struct {
	cfg AcceptorConfig
	sem *semaphore.Weighted

	mu       sync.Mutex
	listener net.Listener

	stopping atomic.Bool
	wg       sync.WaitGroup
}

// NewAcceptor constructs an Acceptor from cfg. Workers below 1 is treated as 1.
func NewAcceptor(cfg AcceptorConfig) *Acceptor {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Acceptor{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(workers)),
	}
}

// Serve binds the listener and runs the accept loop until Stop is called or
// ctx is cancelled, whichever happens first. It returns nil on a clean
// shutdown and a non-nil error if the initial bind fails.
func (a *Acceptor) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()

	logger := logging.WithComponent(a.loggerOrDefault(), "acceptor")
	logger.Info("listening", "addr", ln.Addr().String(), "workers", a.cfg.Workers)

	go func() {
		<-ctx.Done()
		a.Stop()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if a.stopping.Load() {
				logger.Info("listener closed, accept loop exiting")
				return nil
			}
			logger.Error("accept failed", "error", err)
			continue
		}

		a.wg.Add(1)
		go a.serve(ctx, conn)
	}
}

func (a *Acceptor) serve(ctx context.Context, conn net.Conn) {
	defer a.wg.Done()
	defer conn.Close()

	if err := a.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer a.sem.Release(1)

	connID := connectionID(conn)
	handlerCtx := logging.ContextWithConnectionID(ctx, connID)

	handler := NewConnectionHandler(HandlerConfig{
		UploadsDir: a.cfg.UploadsDir,
		Queue:      a.cfg.Queue,
		Locks:      a.cfg.Locks,
		Metrics:    a.cfg.Metrics,
		Logger:     a.loggerOrDefault(),
	})
	handler.Handle(handlerCtx, conn)
}

// Stop closes the listening socket, which unblocks any pending Accept with
// a benign error, and marks the Acceptor as shutting down so that error is
// treated as a clean exit rather than logged. In-flight handlers are not
// cancelled; they finish on their current connection.
func (a *Acceptor) Stop() error {
	a.stopping.Store(true)

	a.mu.Lock()
	ln := a.listener
	a.mu.Unlock()

	if ln == nil {
		return nil
	}
	err := ln.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Wait blocks until every dispatched handler has returned. Intended for use
// after Stop during a graceful shutdown sequence.
func (a *Acceptor) Wait() {
	a.wg.Wait()
}

// Addr returns the bound listener's address, or nil if Serve has not yet
// bound one.
func (a *Acceptor) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

func (a *Acceptor) loggerOrDefault() *slog.Logger {
	if a.cfg.Logger != nil {
		return a.cfg.Logger
	}
	return slog.Default()
}

func connectionID(conn net.Conn) string {
	if conn == nil {
		return ""
	}
	return conn.RemoteAddr().String()
}
