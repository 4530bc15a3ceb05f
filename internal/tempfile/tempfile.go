// Package tempfile materializes script bodies to uniquely named files under
// the OS temp directory and guarantees their cleanup, including tolerance
// for transient Windows anti-virus lock contention.
package tempfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	apperr "github.com/kandev/ironhive/internal/common/errors"
)

const (
	maxCreateRetries  = 1024
	maxCleanupRetries = 99
)

// counter is a process-local monotonic sequence appended to every temp
// file name to avoid collisions between concurrently running scripts.
var counter uint64

// File is a scoped temp-file acquisition: the caller must call Remove on
// every exit path of the operation that created it.
type File struct {
	path string
	f    *os.File
}

// New creates a uniquely named file under the OS temp directory with the
// given extension (including the leading dot, or empty for none). It
// retries on name collision up to 1024 times before reporting an I/O error.
func New(ext string) (*File, error) {
	dir := os.TempDir()

	var lastErr error
	for i := 0; i < maxCreateRetries; i++ {
		n := atomic.AddUint64(&counter, 1)
		name := fmt.Sprintf("ironhive-tmp-file-%d%s", n, ext)
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o700)
		if err == nil {
			return &File{path: path, f: f}, nil
		}
		if !os.IsExist(err) {
			return nil, apperr.IoError(err)
		}
		lastErr = err
	}
	return nil, apperr.IoError(fmt.Errorf("tempfile: exhausted %d naming retries: %w", maxCreateRetries, lastErr))
}

// Path returns the absolute path of the temp file.
func (f *File) Path() string {
	return f.path
}

// WriteString writes body to the file.
func (f *File) WriteString(body string) error {
	_, err := f.f.WriteString(body)
	return err
}

// Close closes the underlying file handle without removing it.
func (f *File) Close() error {
	return f.f.Close()
}

// Remove deletes the temp file, retrying on Windows where a lingering
// anti-virus scan can hold a transient lock on a freshly-closed file.
func (f *File) Remove() error {
	var lastErr error
	for i := 0; i < retryCountFor(); i++ {
		err := os.Remove(f.path)
		if err == nil || os.IsNotExist(err) {
			return nil
		}
		lastErr = err
		sleepRetry()
	}
	return lastErr
}

// retryCountFor and sleepRetry are defined per-platform: Windows retries up
// to 99 times at 10ms intervals; Unix removal is a single attempt.
