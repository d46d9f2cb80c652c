// Package filesystem provides the file system collaborator used by the organizer services.
// It wraps an afero.Fs so the services run unchanged against the OS or an in-memory tree.
package filesystem

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// AllFiles matches every file name.
const AllFiles = "*"

// FileSystem defines the file operations the organizer services rely on.
type FileSystem interface {
	Exists(path string) bool
	DirExists(path string) bool
	ListFiles(dir, pattern string, recursive bool) ([]string, error)
	ListDirectories(dir string) ([]string, error)
	CreateDirectory(path string) error
	OpenRead(path string) (afero.File, error)
	CreateFile(path string) (afero.File, error)
	CopyFile(src, dst string) error
	SameContent(a, b string) (bool, error)
	Move(src, dst string) error
	Delete(path string, recursive bool) error
	Canonical(path string) (string, error)
}

// Impl implements FileSystem on top of afero.
type Impl struct {
	fs afero.Fs
}

// New creates a file system collaborator backed by fs.
func New(fs afero.Fs) *Impl {
	return &Impl{fs: fs}
}

// NewOS creates a file system collaborator backed by the operating system.
func NewOS() *Impl {
	return New(afero.NewOsFs())
}

// Fs exposes the underlying afero file system.
func (f *Impl) Fs() afero.Fs {
	return f.fs
}

// Exists reports whether a file or directory exists at path.
func (f *Impl) Exists(path string) bool {
	_, err := f.fs.Stat(path)
	return err == nil
}

// DirExists reports whether path exists and is a directory.
func (f *Impl) DirExists(path string) bool {
	ok, err := afero.DirExists(f.fs, path)
	return err == nil && ok
}

// ListFiles returns the regular files under dir whose base name matches pattern.
// Matching is case-insensitive and uses doublestar syntax, e.g. "*.{zip,7z}".
// Results are in lexical order.
func (f *Impl) ListFiles(dir, pattern string, recursive bool) ([]string, error) {
	if pattern == "" {
		pattern = AllFiles
	}
	pattern = strings.ToLower(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.Errorf("invalid file pattern %q", pattern)
	}

	var files []string
	match := func(path string) {
		if ok, _ := doublestar.Match(pattern, strings.ToLower(filepath.Base(path))); ok {
			files = append(files, path)
		}
	}

	if !recursive {
		entries, err := afero.ReadDir(f.fs, dir)
		if err != nil {
			return nil, errors.Errorf("reading directory %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.Mode().IsRegular() {
				match(filepath.Join(dir, entry.Name()))
			}
		}
		return files, nil
	}

	err := afero.Walk(f.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			match(path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking directory %s: %w", dir, err)
	}
	return files, nil
}

// ListDirectories returns the direct subdirectories of dir in lexical order.
func (f *Impl) ListDirectories(dir string) ([]string, error) {
	entries, err := afero.ReadDir(f.fs, dir)
	if err != nil {
		return nil, errors.Errorf("reading directory %s: %w", dir, err)
	}

	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(dir, entry.Name()))
		}
	}
	return dirs, nil
}

// CreateDirectory creates path and any missing parents. Existing directories are not an error.
func (f *Impl) CreateDirectory(path string) error {
	if err := f.fs.MkdirAll(path, 0o755); err != nil {
		return errors.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

// OpenRead opens path for reading.
func (f *Impl) OpenRead(path string) (afero.File, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening %s: %w", path, err)
	}
	return file, nil
}

// CreateFile creates or truncates path for writing.
func (f *Impl) CreateFile(path string) (afero.File, error) {
	file, err := f.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Errorf("creating %s: %w", path, err)
	}
	return file, nil
}

// CopyFile copies src to dst. It fails if dst already exists.
func (f *Impl) CopyFile(src, dst string) (err error) {
	in, err := f.fs.Open(src)
	if err != nil {
		return errors.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := f.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Errorf("creating %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Errorf("closing %s: %w", dst, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return nil
}

// SameContent reports whether the regular files a and b hold identical bytes.
func (f *Impl) SameContent(a, b string) (bool, error) {
	infoA, err := f.fs.Stat(a)
	if err != nil {
		return false, errors.Errorf("stat %s: %w", a, err)
	}
	infoB, err := f.fs.Stat(b)
	if err != nil {
		return false, errors.Errorf("stat %s: %w", b, err)
	}
	if !infoA.Mode().IsRegular() || !infoB.Mode().IsRegular() || infoA.Size() != infoB.Size() {
		return false, nil
	}

	fileA, err := f.fs.Open(a)
	if err != nil {
		return false, errors.Errorf("opening %s: %w", a, err)
	}
	defer func() { _ = fileA.Close() }()
	fileB, err := f.fs.Open(b)
	if err != nil {
		return false, errors.Errorf("opening %s: %w", b, err)
	}
	defer func() { _ = fileB.Close() }()

	bufA := make([]byte, 32*1024)
	bufB := make([]byte, 32*1024)
	for {
		n, errA := io.ReadFull(fileA, bufA)
		m, errB := io.ReadFull(fileB, bufB)
		if n != m || !bytes.Equal(bufA[:n], bufB[:m]) {
			return false, nil
		}
		doneA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		doneB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if errA != nil && !doneA {
			return false, errors.Errorf("reading %s: %w", a, errA)
		}
		if errB != nil && !doneB {
			return false, errors.Errorf("reading %s: %w", b, errB)
		}
		if doneA || doneB {
			return doneA && doneB, nil
		}
	}
}

// Move renames src to dst. It fails if dst already exists.
func (f *Impl) Move(src, dst string) error {
	if f.Exists(dst) {
		return errors.Errorf("moving %s: %w", src, os.ErrExist)
	}
	if err := f.fs.Rename(src, dst); err != nil {
		return errors.Errorf("moving %s to %s: %w", src, dst, err)
	}
	return nil
}

// Delete removes path. Without recursive, a non-empty directory is an error.
func (f *Impl) Delete(path string, recursive bool) error {
	var err error
	if recursive {
		err = f.fs.RemoveAll(path)
	} else {
		err = f.fs.Remove(path)
	}
	if err != nil {
		return errors.Errorf("deleting %s: %w", path, err)
	}
	return nil
}

// Canonical returns the absolute, cleaned form of path.
func (f *Impl) Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Errorf("resolving %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}
