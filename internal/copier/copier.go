// Package copier copies single files byte for byte.
package copier

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// ChunkSize bounds the buffer used per copy, so memory use does not depend
// on file size.
const ChunkSize = 32 * 1024

// dirPerm is used for parent directories created under a version.
const dirPerm = 0o755

// ErrCopy marks every error returned by Copy and Link.
var ErrCopy = errors.New("copy failed")

// Copy copies src to dst and returns the number of bytes written.
//
// Missing parent directories of dst are created. The destination receives
// the source's permission bits and modification time. On failure a partial
// dst may remain; the caller decides whether to retry.
func Copy(src, dst string) (int64, error) {
	buf := make([]byte, ChunkSize)
	return CopyBuffer(src, dst, buf)
}

// CopyBuffer is Copy with a caller-provided buffer, for workers that reuse one.
func CopyBuffer(src, dst string, buf []byte) (written int64, err error) {
	defer func() {
		if err != nil {
			err = errors.Mark(err, ErrCopy)
		}
	}()

	in, err := os.Open(src)
	if err != nil {
		return 0, errors.Wrap(err, "opening source")
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stat source")
	}
	if !info.Mode().IsRegular() {
		return 0, errors.Newf("source %s is not a regular file", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), dirPerm); err != nil {
		return 0, errors.Wrap(err, "creating parent directories")
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, errors.Wrap(err, "creating destination")
	}

	// the wrappers hide ReaderFrom/WriterTo so io.CopyBuffer reads through buf
	written, err = io.CopyBuffer(onlyWriter{out}, onlyReader{in}, buf)
	if err != nil {
		out.Close()
		return written, errors.Wrapf(err, "copying after %d bytes", written)
	}
	if err := out.Close(); err != nil {
		return written, errors.Wrap(err, "closing destination")
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return written, errors.Wrap(err, "setting permissions")
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return written, errors.Wrap(err, "setting modification time")
	}
	return written, nil
}

// Link hard-links existing to dst, creating dst's parents. An existing dst is
// replaced. Callers fall back to Copy when linking is not supported.
func Link(existing, dst string) (err error) {
	defer func() {
		if err != nil {
			err = errors.Mark(err, ErrCopy)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(dst), dirPerm); err != nil {
		return errors.Wrap(err, "creating parent directories")
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "replacing destination")
	}
	if err := os.Link(existing, dst); err != nil {
		return errors.Wrap(err, "linking")
	}
	return nil
}

type onlyWriter struct {
	io.Writer
}

type onlyReader struct {
	io.Reader
}
