package ingestserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/RichterDelaCruz/mediaconsumer/internal/dedup"
	"github.com/RichterDelaCruz/mediaconsumer/internal/hashlock"
	"github.com/RichterDelaCruz/mediaconsumer/internal/hashutil"
	"github.com/RichterDelaCruz/mediaconsumer/internal/ingestserver/status"
	"github.com/RichterDelaCruz/mediaconsumer/internal/observability/logging"
	"github.com/RichterDelaCruz/mediaconsumer/internal/observability/metrics"
	"github.com/RichterDelaCruz/mediaconsumer/internal/queue"
	"github.com/RichterDelaCruz/mediaconsumer/internal/transcode"
	"github.com/RichterDelaCruz/mediaconsumer/internal/videostore"
	"github.com/RichterDelaCruz/mediaconsumer/internal/wire"
)

// CompressionThreshold is T from the component design: uploads larger than
// this are routed through the Transcoder before finalization.
const CompressionThreshold = 50 * 1 << 20

// HandlerConfig wires a ConnectionHandler to the components it drives.
type HandlerConfig struct {
	UploadsDir string
	Queue      *queue.Queue[videostore.VideoHandle]
	Locks      *hashlock.Table
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
}

// ConnectionHandler drives one connection through the pipeline in §4.5:
// ReadMeta, PreQueueCheck, CreateTemp, Receive, Hash, then — under the
// per-hash lock — DupCheck, MaybeCompress, Finalize, Admit.
type ConnectionHandler struct {
	cfg HandlerConfig
}

// NewConnectionHandler constructs a handler for a single connection.
func NewConnectionHandler(cfg HandlerConfig) *ConnectionHandler {
	return &ConnectionHandler{cfg: cfg}
}

// Handle runs the full pipeline for conn and writes exactly one terminal
// status before returning. It never panics on a producer error; all
// failures are converted into a status and logged.
func (h *ConnectionHandler) Handle(ctx context.Context, conn net.Conn) {
	logger := logging.WithContext(ctx, h.cfg.Logger)
	if logger == nil {
		logger = slog.Default()
	}

	st := h.run(ctx, conn, logger)

	if h.cfg.Metrics != nil {
		h.cfg.Metrics.ObserveUpload(string(st))
	}

	if err := wire.WriteUTF(conn, string(st)); err != nil {
		logger.Warn("failed to write terminal status, producer likely disconnected",
			"status", st, "error", err)
	}
}

// run executes the pipeline and returns the single terminal status to
// write. Every exit path is responsible for its own temp/working-file
// cleanup before returning, so no backstop is needed here.
func (h *ConnectionHandler) run(ctx context.Context, conn net.Conn, logger *slog.Logger) status.Status {
	filename, declaredSize, err := readMeta(conn)
	if err != nil {
		logger.Warn("read meta failed", "error", err)
		return status.FromError(err)
	}
	sanitized := videostore.SanitizeFilename(filename)
	logger = logger.With("filename", sanitized, "declared_size", declaredSize)

	if h.cfg.Queue.IsFull() {
		logger.Info("rejecting upload, queue observed full at pre-check")
		return status.FromError(status.ErrQueueFull)
	}

	tempFile, tempPath, err := videostore.CreateTemp(h.cfg.UploadsDir)
	if err != nil {
		logger.Error("failed to create temp file", "error", err)
		return status.FromError(err)
	}

	return h.receiveAndProcess(ctx, conn, logger, tempFile, tempPath, declaredSize, sanitized)
}

func (h *ConnectionHandler) receiveAndProcess(
	ctx context.Context,
	conn net.Conn,
	logger *slog.Logger,
	tempFile *os.File,
	tempPath string,
	declaredSize int64,
	sanitized string,
) status.Status {
	if err := wire.CopyExactly(tempFile, conn, declaredSize); err != nil {
		tempFile.Close()
		removeTemp(logger, tempPath)
		logger.Warn("receive failed", "error", err)
		return status.FromError(err)
	}

	info, statErr := tempFile.Stat()
	closeErr := tempFile.Close()
	if statErr != nil || (closeErr == nil && info.Size() != declaredSize) {
		removeTemp(logger, tempPath)
		logger.Warn("received size mismatch", "declared", declaredSize)
		return status.FromError(fmt.Errorf("%w: received size does not match declared size", wire.ErrTransfer))
	}

	hash, err := hashutil.SHA256File(tempPath)
	if err != nil {
		removeTemp(logger, tempPath)
		logger.Error("hashing failed", "error", err)
		return status.FromError(err)
	}
	logger = logger.With("hash", hash)

	unlock := h.cfg.Locks.Acquire(hash)
	defer unlock()

	if dedup.Exists(logger, h.cfg.UploadsDir, hash, tempPath) {
		removeTemp(logger, tempPath)
		logger.Info("rejecting upload, duplicate content")
		return status.FromError(status.ErrDuplicate)
	}

	workingPath := tempPath
	if declaredSize > CompressionThreshold {
		if h.cfg.Metrics != nil {
			h.cfg.Metrics.ObserveTranscode("invoked")
		}
		output, err := transcode.Compress(ctx, tempPath)
		if err != nil {
			removeTemp(logger, tempPath)
			if h.cfg.Metrics != nil {
				h.cfg.Metrics.ObserveTranscode("failed")
			}
			logger.Warn("compression failed", "error", err)
			return status.FromError(err)
		}
		if h.cfg.Metrics != nil {
			h.cfg.Metrics.ObserveTranscode("succeeded")
		}
		removeTemp(logger, tempPath)
		workingPath = output
	}

	suffix := videostore.TempSuffix(tempPath)
	handle, err := videostore.Finalize(h.cfg.UploadsDir, workingPath, hash, suffix, sanitized, time.Now())
	if err != nil {
		removeWorking(logger, workingPath)
		logger.Error("finalize failed", "error", err)
		return status.FromError(err)
	}

	if !h.cfg.Queue.Offer(handle) {
		removeWorking(logger, handle.Path)
		logger.Info("rejecting upload, queue full at admit", "path", handle.Path)
		return status.FromError(status.ErrQueueFull)
	}

	if h.cfg.Metrics != nil {
		h.cfg.Metrics.SetQueueDepth(h.cfg.Queue.Size(), h.cfg.Queue.Capacity())
	}

	logger.Info("upload admitted", "path", handle.Path)
	return status.Success
}

func readMeta(conn net.Conn) (filename string, size int64, err error) {
	filename, err = wire.ReadUTF(conn)
	if err != nil {
		return "", 0, err
	}
	size, err = wire.ReadInt64(conn)
	if err != nil {
		return "", 0, err
	}
	if size < 0 {
		return "", 0, fmt.Errorf("%w: negative declared size %d", wire.ErrTransfer, size)
	}
	return filename, size, nil
}

func removeTemp(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove temp file", "path", path, "error", err)
	}
}

func removeWorking(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove working file on rejection", "path", path, "error", err)
	}
}
