// Package fileio provides the filesystem primitives octatools writes through:
// write-new-then-replace, timestamped backups, copies and content comparison.
package fileio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// IOError is a filesystem failure on one path
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioError(op, path string, err error) error {
	return errors.WithStack(&IOError{Op: op, Path: path, Err: err})
}

// ReadFile reads path, reporting failures as IOError
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError("read", path, err)
	}
	return data, nil
}

// WriteFile writes data to a temporary file next to path and renames it into
// place, so path holds either the old or the new content
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return replace(path, perm, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// WriteFileFunc is WriteFile for writers that seek back over what they wrote,
// such as WAV encoders patching their header on close
func WriteFileFunc(path string, perm os.FileMode, fill func(io.WriteSeeker) error) error {
	return replace(path, perm, func(f *os.File) error {
		return fill(f)
	})
}

func replace(path string, perm os.FileMode, fill func(*os.File) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return ioError("create temporary file for", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := fill(tmp); err != nil {
		tmp.Close()
		return ioError("write", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return ioError("sync", path, err)
	}
	if err := tmp.Close(); err != nil {
		return ioError("close", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return ioError("chmod", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return ioError("replace", path, err)
	}
	return nil
}

// CopyFile copies src to dst with write-new-then-replace
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return ioError("open", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return ioError("stat", src, err)
	}
	return replace(dst, info.Mode().Perm(), func(f *os.File) error {
		_, err := io.Copy(f, in)
		return err
	})
}

// BackupName returns the first name Backup tries for path at t
func BackupName(path string, t time.Time) string {
	return fmt.Sprintf("%s.bak-%d", path, t.Unix())
}

// Backup copies path to BackupName(path, t) and returns the backup path.
// An existing backup is never replaced: when the name is taken, -1, -2 and
// so on are appended until a new file can be created.
func Backup(path string, t time.Time) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(ioError("open", path, err), "failed to back up %s", path)
	}
	defer in.Close()

	base := BackupName(path, t)
	dst := base
	for n := 1; ; n++ {
		out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			dst = fmt.Sprintf("%s-%d", base, n)
			continue
		}
		if err != nil {
			return "", errors.Wrapf(ioError("create", dst, err), "failed to back up %s", path)
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			os.Remove(dst)
			return "", errors.Wrapf(ioError("write", dst, err), "failed to back up %s", path)
		}
		if err := out.Close(); err != nil {
			os.Remove(dst)
			return "", errors.Wrapf(ioError("close", dst, err), "failed to back up %s", path)
		}
		return dst, nil
	}
}

// MkdirAll creates dir and any missing parents
func MkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ioError("create directory", dir, err)
	}
	return nil
}

// Exists reports whether path exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SameContent reports whether two files hold identical bytes
func SameContent(a, b string) (bool, error) {
	ia, err := os.Stat(a)
	if err != nil {
		return false, ioError("stat", a, err)
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false, ioError("stat", b, err)
	}
	if ia.Size() != ib.Size() {
		return false, nil
	}
	da, err := ReadFile(a)
	if err != nil {
		return false, err
	}
	db, err := ReadFile(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(da, db), nil
}
