// Package videostore owns the on-disk naming conventions for the uploads
// directory: filename sanitization, temporary-file creation, and the atomic
// rename that finalizes a received upload. It also defines the VideoHandle
// admitted to the bounded queue.
//
// Unlike the VideoFile class in the source this was ported from — whose
// media getters lazily initialized JavaFX playback state as a side effect of
// being read — VideoHandle is plain immutable data.
package videostore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VideoHandle identifies one finalized upload. Identity and equality are by
// Path. Created only after successful finalization.
type VideoHandle struct {
	Path      string
	Hash      string
	CreatedAt time.Time
}

// Equal reports whether two handles refer to the same finalized file.
func (h VideoHandle) Equal(other VideoHandle) bool {
	return h.Path == other.Path
}

var invalidRun = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename replaces every run of characters outside
// [A-Za-z0-9._-] with a single underscore. Path separators fall outside
// that set, so directory components are collapsed into the result rather
// than stripped outright: "../../etc/passwd" becomes ".._.._etc_passwd",
// never escaping the uploads directory while still reading as a filename
// derived from the original.
func SanitizeFilename(name string) string {
	if name == "" {
		return "_"
	}
	return invalidRun.ReplaceAllString(name, "_")
}

// CreateTemp creates a fresh, exclusively-owned file in dir with a name
// matching vid-<opaque>.tmp, where <opaque> is a UUID fragment unique within
// the process. It returns the open file and its path; the caller owns
// closing and, on any failure, removing it.
func CreateTemp(dir string) (*os.File, string, error) {
	opaque := strings.ReplaceAll(uuid.New().String(), "-", "")
	name := fmt.Sprintf("vid-%s.tmp", opaque)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("videostore: creating temp file: %w", err)
	}
	return f, path, nil
}

// TempSuffix extracts the opaque portion of a vid-<opaque>.tmp path for use
// as the finalize suffix, mirroring the source's parsing of the temp
// filename between its first '-' and last '.'. If the path does not match
// the expected shape, it returns a fresh 8-character fallback.
func TempSuffix(tempPath string) string {
	base := filepath.Base(tempPath)
	first := strings.Index(base, "-")
	last := strings.LastIndex(base, ".")
	if first >= 0 && last > first+1 {
		return base[first+1 : last]
	}
	return fallbackSuffix()
}

func fallbackSuffix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// FinalName computes the finalized name YYYYMMDD_HHMMSSsss_<suffix>_<sanitized>
// using local wall-clock time at millisecond precision.
func FinalName(now time.Time, suffix, sanitized string) string {
	ts := now.Format("20060102_150405") + fmt.Sprintf("%03d", now.Nanosecond()/1_000_000)
	return fmt.Sprintf("%s_%s_%s", ts, suffix, sanitized)
}

// Finalize atomically renames currentPath to the computed final name within
// dir and returns the resulting VideoHandle. Rename failure is wrapped with
// the path being finalized; it carries none of the pipeline's sentinel
// errors, so the caller classifies it as an internal error.
func Finalize(dir, currentPath, hash, suffix, sanitized string, now time.Time) (VideoHandle, error) {
	finalPath := filepath.Join(dir, FinalName(now, suffix, sanitized))

	if err := os.Rename(currentPath, finalPath); err != nil {
		return VideoHandle{}, fmt.Errorf("videostore: finalizing %s: %w", currentPath, err)
	}

	return VideoHandle{Path: finalPath, Hash: hash, CreatedAt: now}, nil
}
