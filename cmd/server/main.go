// Command server runs the video-ingestion receiver: it binds the TCP
// Acceptor, wires the bounded hand-off queue and hash-lock table, and drains
// the queue with a stand-in consumer that logs depth the way the original
// GUI's queue monitor did, minus the GUI.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/RichterDelaCruz/mediaconsumer/internal/config"
	"github.com/RichterDelaCruz/mediaconsumer/internal/hashlock"
	"github.com/RichterDelaCruz/mediaconsumer/internal/ingestserver"
	"github.com/RichterDelaCruz/mediaconsumer/internal/observability/logging"
	"github.com/RichterDelaCruz/mediaconsumer/internal/observability/metrics"
	"github.com/RichterDelaCruz/mediaconsumer/internal/queue"
	"github.com/RichterDelaCruz/mediaconsumer/internal/videostore"
)

const (
	listenAddr = ":9090"
	uploadsDir = "./uploads"
)

func main() {
	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(os.Getenv("MEDIACONSUMER_LOG_LEVEL"), "info"),
		Format: firstNonEmpty(os.Getenv("MEDIACONSUMER_LOG_FORMAT"), string(logging.FormatJSON)),
	})

	args := os.Args[1:]
	for _, extra := range config.ExtraArgs(args) {
		logger.Warn("ignoring unexpected extra argument", "argument", extra)
	}

	cfg, err := config.Parse(args)
	if err != nil {
		printUsage()
		logger.Error("invalid startup arguments", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		logger.Error("failed to create uploads directory", "path", uploadsDir, "error", err)
		os.Exit(1)
	}
	absUploadsDir, err := filepath.Abs(uploadsDir)
	if err != nil {
		absUploadsDir = uploadsDir
	}

	recorder := metrics.Default()
	videoQueue := queue.New[videostore.VideoHandle](cfg.QueueCapacity)
	locks := hashlock.New()

	acceptor := ingestserver.NewAcceptor(ingestserver.AcceptorConfig{
		Addr:       listenAddr,
		Workers:    cfg.Workers,
		UploadsDir: absUploadsDir,
		Queue:      videoQueue,
		Locks:      locks,
		Metrics:    recorder,
		Logger:     logger,
	})

	ctx, cancelServe := context.WithCancel(context.Background())
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() {
		logger.Info("mediaconsumer listening", "addr", listenAddr, "workers", cfg.Workers, "queue_capacity", cfg.QueueCapacity)
		if err := acceptor.Serve(ctx); err != nil {
			errs <- err
		}
	}()

	go runConsumer(consumerCtx, logger, videoQueue, recorder)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errs:
		logger.Error("acceptor failed to start", "error", err)
	}

	cancelConsumer()
	cancelServe()

	if err := acceptor.Stop(); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}

	waitDone := make(chan struct{})
	go func() {
		acceptor.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(10 * time.Second):
		logger.Warn("timed out waiting for in-flight connection handlers to finish")
	}

	logger.Info("mediaconsumer stopped")
}

// runConsumer is the stand-in for the excluded GUI display: it drains the
// bounded queue and logs depth after each take, mirroring
// MainController.updateQueueStatus without rendering anything.
func runConsumer(ctx context.Context, logger *slog.Logger, q *queue.Queue[videostore.VideoHandle], recorder *metrics.Recorder) {
	consumerLogger := logging.WithComponent(logger, "consumer")
	for {
		handle, err := q.Take(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrCancelled) {
				consumerLogger.Info("consumer stopping")
				return
			}
			consumerLogger.Error("unexpected error draining queue", "error", err)
			return
		}

		size, capacity := q.Size(), q.Capacity()
		if recorder != nil {
			recorder.SetQueueDepth(size, capacity)
		}
		consumerLogger.Info("consumed video handle",
			"path", handle.Path, "hash", handle.Hash, "queue_size", size, "queue_capacity", capacity)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: mediaconsumer [workers] [queue-capacity]")
	fmt.Fprintln(os.Stderr, "  workers         positive integer, number of concurrent connection handlers (default 4)")
	fmt.Fprintln(os.Stderr, "  queue-capacity  positive integer, bounded hand-off queue size (default 10)")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
