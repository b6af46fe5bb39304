// Package wire implements the length-prefixed framing used on the producer
// connection: UTF-8 strings prefixed by an unsigned 16-bit big-endian length,
// and signed 64-bit big-endian integers, matching the Java DataInput/DataOutput
// wire format the producers speak.
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTransfer is returned for any short read, size mismatch, or other I/O
// failure encountered while moving bytes across the wire.
var ErrTransfer = errors.New("wire: transfer error")

const maxUTFLen = 1<<16 - 1

// ReadUTF reads a length-prefixed UTF-8 string: a 2-byte unsigned big-endian
// length followed by exactly that many bytes.
func ReadUTF(r io.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", fmt.Errorf("%w: reading string length: %v", ErrTransfer, err)
	}

	n := binary.BigEndian.Uint16(lenBuf[:])
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("%w: reading string body: %v", ErrTransfer, err)
		}
	}
	return string(buf), nil
}

// WriteUTF writes s as a length-prefixed UTF-8 string. It fails if s encodes
// to more than 65535 bytes.
func WriteUTF(w io.Writer, s string) error {
	b := []byte(s)
	if len(b) > maxUTFLen {
		return fmt.Errorf("%w: string too long (%d bytes)", ErrTransfer, len(b))
	}

	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("%w: writing string length: %v", ErrTransfer, err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("%w: writing string body: %v", ErrTransfer, err)
	}
	return nil
}

// ReadInt64 reads a signed 64-bit big-endian integer.
func ReadInt64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: reading int64: %v", ErrTransfer, err)
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

// WriteInt64 writes v as a signed 64-bit big-endian integer.
func WriteInt64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("%w: writing int64: %v", ErrTransfer, err)
	}
	return nil
}

// CopyExactly copies exactly n bytes from src to dst. An early EOF, or any
// underlying read/write error, fails with ErrTransfer.
func CopyExactly(dst io.Writer, src io.Reader, n int64) error {
	w := bufio.NewWriterSize(dst, 64*1024)
	copied, err := io.CopyN(w, src, n)
	if err != nil {
		return fmt.Errorf("%w: short transfer after %d of %d bytes: %v", ErrTransfer, copied, n, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: flushing received bytes: %v", ErrTransfer, err)
	}
	return nil
}
