// Package status defines the six terminal statuses the Connection Handler
// may return to a producer, and classifies internal errors into them.
package status

import (
	"errors"

	"github.com/RichterDelaCruz/mediaconsumer/internal/transcode"
	"github.com/RichterDelaCruz/mediaconsumer/internal/wire"
)

// Status is one of the six terminal strings written back to the producer.
type Status string

const (
	Success           Status = "SUCCESS"
	QueueFull         Status = "QUEUE_FULL"
	DuplicateFile     Status = "DUPLICATE_FILE"
	CompressionFailed Status = "COMPRESSION_FAILED"
	TransferError     Status = "TRANSFER_ERROR"
	InternalError     Status = "INTERNAL_ERROR"
)

// ErrDuplicate is returned by the pipeline when the Duplicate Index reports
// a hit for the uploaded content's hash.
var ErrDuplicate = errors.New("ingestserver: duplicate content")

// ErrQueueFull is returned by the pipeline when the bounded queue rejects an
// offer, either as a pre-check or at Admit time.
var ErrQueueFull = errors.New("ingestserver: queue full")

// FromError classifies err into one of the six producer-facing statuses by
// walking its error chain for the sentinel errors exported by each
// component. Errors it does not recognize classify as InternalError.
func FromError(err error) Status {
	if err == nil {
		return Success
	}

	switch {
	case errors.Is(err, ErrQueueFull):
		return QueueFull
	case errors.Is(err, ErrDuplicate):
		return DuplicateFile
	case errors.Is(err, transcode.ErrTimeout),
		errors.Is(err, transcode.ErrFailed),
		errors.Is(err, transcode.ErrSpawn):
		return CompressionFailed
	case errors.Is(err, wire.ErrTransfer):
		return TransferError
	default:
		return InternalError
	}
}
