package status

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/RichterDelaCruz/mediaconsumer/internal/transcode"
	"github.com/RichterDelaCruz/mediaconsumer/internal/wire"
)

func TestFromErrorNil(t *testing.T) {
	if got := FromError(nil); got != Success {
		t.Fatalf("expected Success for nil error, got %s", got)
	}
}

func TestFromErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Status
	}{
		{"queue full", ErrQueueFull, QueueFull},
		{"wrapped queue full", fmt.Errorf("admit: %w", ErrQueueFull), QueueFull},
		{"duplicate", ErrDuplicate, DuplicateFile},
		{"transcode timeout", transcode.ErrTimeout, CompressionFailed},
		{"transcode failed", transcode.ErrFailed, CompressionFailed},
		{"transcode spawn", transcode.ErrSpawn, CompressionFailed},
		{"wire transfer", wire.ErrTransfer, TransferError},
		{"unrecognized", errors.New("boom"), InternalError},
		{"context deadline", context.DeadlineExceeded, InternalError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FromError(tc.err); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}
