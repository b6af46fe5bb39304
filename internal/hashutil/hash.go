// Package hashutil computes content hashes for uploaded files the way
// HashUtils.java does: a streaming SHA-256 over fixed-size chunks, rendered
// as a lowercase hex digest.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const chunkSize = 8 * 1024

// ErrRead wraps any failure to read the candidate file while hashing.
var ErrRead = fmt.Errorf("hashutil: read error")

// SHA256File streams path through SHA-256 in chunkSize-byte reads and returns
// the lowercase hex digest. Deterministic and idempotent for a given file's
// contents.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrRead, path, err)
	}
	defer f.Close()

	return SHA256Reader(f)
}

// SHA256Reader streams r through SHA-256 in chunkSize-byte reads and returns
// the lowercase hex digest.
func SHA256Reader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, chunkSize)

	// Hide any WriterTo on r (such as *os.File's) so CopyBuffer reads through buf.
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{r}, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRead, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
