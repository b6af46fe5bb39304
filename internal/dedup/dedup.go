// Package dedup implements the Duplicate Index: a directory scan that
// reports whether some already-finalized file under the uploads directory
// hashes to a target value, mirroring FileUtils.isDuplicate from the source
// this was ported from.
package dedup

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/RichterDelaCruz/mediaconsumer/internal/hashutil"
)

// IsTemp reports whether name matches the temporary-file naming convention
// vid-<opaque>.tmp.
func IsTemp(name string) bool {
	return strings.HasPrefix(name, "vid-") && strings.HasSuffix(name, ".tmp")
}

// IsHidden reports whether name has a leading dot.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Exists reports whether some regular file under dir — other than ignorePath,
// temporary files, and hidden files — hashes to targetHash. The comparison is
// case-insensitive on the hex string. A missing directory yields false.
// Errors reading any individual candidate are logged and that candidate is
// treated as a non-match; the scan continues.
func Exists(logger *slog.Logger, dir, targetHash, ignorePath string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}

	target := strings.ToLower(targetHash)
	ignoreAbs, _ := filepath.Abs(ignorePath)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if IsHidden(name) || IsTemp(name) {
			continue
		}

		candidate := filepath.Join(dir, name)
		if candidateAbs, err := filepath.Abs(candidate); err == nil && candidateAbs == ignoreAbs {
			continue
		}

		hash, err := hashutil.SHA256File(candidate)
		if err != nil {
			if logger != nil {
				logger.Warn("dedup: failed to hash candidate, treating as non-match",
					"path", candidate, "error", err)
			}
			continue
		}

		if strings.ToLower(hash) == target {
			return true
		}
	}

	return false
}
