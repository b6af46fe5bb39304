// Package metrics aggregates in-process counters and gauges for the
// ingestion pipeline: upload outcomes by terminal status, transcoder
// invocations, and the live depth of the bounded hand-off queue.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
)

// Recorder aggregates counters and gauges for the ingestion pipeline. All
// methods are safe for concurrent use by multiple Connection Handlers.
type Recorder struct {
	mu               sync.RWMutex
	uploadsByStatus  map[string]uint64
	transcoderEvents map[string]uint64
	queueDepth       atomic.Int64
	queueCapacity    atomic.Int64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		uploadsByStatus:  make(map[string]uint64),
		transcoderEvents: make(map[string]uint64),
	}
}

// Default returns the singleton Recorder instance shared across the process
// when callers do not wire a dedicated Recorder.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveUpload records the terminal status returned to a producer for one
// connection (e.g. "SUCCESS", "DUPLICATE_FILE", "QUEUE_FULL").
func (r *Recorder) ObserveUpload(status string) {
	r.mu.Lock()
	r.uploadsByStatus[status]++
	r.mu.Unlock()
}

// ObserveTranscode records a transcoder outcome. The Connection Handler
// records "invoked", "succeeded" and "failed"; timeouts and spawn failures
// are counted as "failed".
func (r *Recorder) ObserveTranscode(outcome string) {
	r.mu.Lock()
	r.transcoderEvents[outcome]++
	r.mu.Unlock()
}

// SetQueueDepth records a point-in-time sample of the bounded queue's size
// and capacity, taken after an Offer or Take.
func (r *Recorder) SetQueueDepth(size, capacity int) {
	r.queueDepth.Store(int64(size))
	r.queueCapacity.Store(int64(capacity))
}

// QueueDepth returns the most recently recorded queue size and capacity.
func (r *Recorder) QueueDepth() (size, capacity int) {
	return int(r.queueDepth.Load()), int(r.queueCapacity.Load())
}

// UploadCounts returns a copy of the upload-outcome counters, keyed by
// terminal status string.
func (r *Recorder) UploadCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]uint64, len(r.uploadsByStatus))
	for k, v := range r.uploadsByStatus {
		out[k] = v
	}
	return out
}

// TranscodeCounts returns a copy of the transcoder outcome counters.
func (r *Recorder) TranscodeCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]uint64, len(r.transcoderEvents))
	for k, v := range r.transcoderEvents {
		out[k] = v
	}
	return out
}

// Reset clears all counters and gauges. Intended for test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploadsByStatus = make(map[string]uint64)
	r.transcoderEvents = make(map[string]uint64)
	r.queueDepth.Store(0)
	r.queueCapacity.Store(0)
}

// Write renders the Recorder's counters and gauges as plain text, sorting
// keys to provide stable output for diagnostics and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fmt.Fprintln(w, "# uploads_total by terminal status")
	for _, status := range sortedKeys(r.uploadsByStatus) {
		fmt.Fprintf(w, "uploads_total{status=%q} %d\n", status, r.uploadsByStatus[status])
	}

	fmt.Fprintln(w, "# transcoder_events_total by outcome")
	for _, outcome := range sortedKeys(r.transcoderEvents) {
		fmt.Fprintf(w, "transcoder_events_total{outcome=%q} %d\n", outcome, r.transcoderEvents[outcome])
	}

	size, capacity := r.QueueDepth()
	fmt.Fprintf(w, "queue_depth %d\n", size)
	fmt.Fprintf(w, "queue_capacity %d\n", capacity)
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
