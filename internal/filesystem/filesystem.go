// Package filesystem provides the file helpers shared by the on-disk stores.
package filesystem

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// ErrCancelled is returned by calls made after Cancel.
var ErrCancelled = errors.New("cancelled")

var _ io.WriteCloser = (*AtomicFile)(nil)

// AtomicFile writes to a temporary file next to the destination and renames
// it over the destination on Close. If any step fails the temporary file is
// removed and the destination is left untouched.
type AtomicFile struct {
	dst     string
	dir     string
	tmp     *os.File
	tmpPath string
	err     error

	// Op names the step that failed first: write, sync, close or rename.
	Op string
}

// CreateAtomic starts an atomic write to path.
func CreateAtomic(path string) (*AtomicFile, error) {
	dir, name := filepath.Split(path)
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return nil, err
	}

	return &AtomicFile{
		dst:     path,
		dir:     dir,
		tmp:     tmp,
		tmpPath: tmp.Name(),
	}, nil
}

func (f *AtomicFile) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if f.err == nil {
		f.err = err
		f.Op = op
	}
	_ = f.Close()
	return err
}

// Write writes to the temporary file.
func (f *AtomicFile) Write(p []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.tmp == nil {
		return 0, os.ErrClosed
	}
	n, err := f.tmp.Write(p)
	return n, f.fail("write", err)
}

// Cancel discards the temporary file. It is a no-op after Close, so it can
// be deferred right after CreateAtomic.
func (f *AtomicFile) Cancel() {
	if f == nil || f.tmp == nil {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close syncs the temporary file and renames it over the destination. It
// may be called more than once and returns the first error seen.
func (f *AtomicFile) Close() error {
	if f.tmp == nil {
		return f.err
	}
	tmp := f.tmp
	f.tmp = nil

	errSync := tmp.Sync()
	errClose := tmp.Close()

	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}

	switch {
	case errSync != nil:
		f.err, f.Op = errSync, "sync"
	case errClose != nil:
		f.err, f.Op = errClose, "close"
	default:
		if err := os.Rename(f.tmpPath, f.dst); err != nil {
			f.err, f.Op = err, "rename"
			return f.err
		}
		renamed = true
		syncDir(f.dir)
	}
	return f.err
}

// WriteAtomic replaces path with data.
func WriteAtomic(path string, data []byte) error {
	f, err := CreateAtomic(path)
	if err != nil {
		return err
	}
	defer f.Cancel()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Close()
}

// syncDir flushes the directory entry after a rename. Errors are ignored;
// not every platform supports syncing a directory.
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // G304: dir is the parent of a path we just wrote
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// EnsureDir creates the parent directory of path if needed.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o750)
}

// FileExists reports whether the given path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsEmpty reports whether path is missing or zero bytes long.
func IsEmpty(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return info.Size() == 0, nil
}
