// Package images collects image files from a folder tree into a single Images folder.
package images

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/fgeck/stl-organizer/internal/progress"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// FolderName is the name of the folder images are copied into.
const FolderName = "Images"

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
	".svg":  true,
}

// IsImageFile reports whether path has an image extension, compared case-insensitively.
func IsImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filesystem.Extension(path))]
}

// UniqueFileName returns a name inside dir that does not exist yet, appending
// _1, _2, ... before the extension when name is taken.
func UniqueFileName(fs filesystem.FileSystem, dir, name string) string {
	if !fs.Exists(filesystem.Combine(dir, name)) {
		return name
	}
	ext := filesystem.Extension(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !fs.Exists(filesystem.Combine(dir, candidate)) {
			return candidate
		}
	}
}

// Service defines the interface for image organization.
type Service interface {
	OrganizeImages(ctx context.Context, root string, sink progress.Sink) (*models.ImageResult, error)
}

// Impl implements the images Service interface.
type Impl struct {
	fs     filesystem.FileSystem
	logger zerolog.Logger
}

// New creates a new image organizer.
func New(logger zerolog.Logger, fs filesystem.FileSystem) *Impl {
	return &Impl{
		fs:     fs,
		logger: logger,
	}
}

type walk struct {
	dest    string
	visited int
	total   int
	result  *models.ImageResult
	sink    progress.Sink
}

// OrganizeImages copies every image below root into root/Images. The Images
// folder itself is never scanned. Name clashes get a numeric suffix and
// existing files are never overwritten.
func (s *Impl) OrganizeImages(ctx context.Context, root string, sink progress.Sink) (*models.ImageResult, error) {
	dest := filesystem.Combine(root, FolderName)
	result := &models.ImageResult{ImagesFolder: dest}

	if !s.fs.DirExists(root) {
		return result, errors.Errorf("%w: %s", models.ErrDirectoryNotFound, root)
	}

	if err := s.fs.CreateDirectory(dest); err != nil {
		return result, err
	}

	canonicalDest, err := s.fs.Canonical(dest)
	if err != nil {
		return result, err
	}

	total, err := s.countDirectories(root, canonicalDest)
	if err != nil {
		return result, err
	}

	s.logger.Info().
		Str("root", root).
		Str("images_folder", dest).
		Msg("collecting images")

	w := &walk{dest: canonicalDest, total: total, result: result, sink: sink}
	if err := s.processDirectory(ctx, w, root); err != nil {
		return result, err
	}

	s.logger.Info().
		Int("copied", result.Copied).
		Int("failed", result.Failed).
		Msg("image collection completed")

	return result, nil
}

func (s *Impl) processDirectory(ctx context.Context, w *walk, dir string) error {
	files, err := s.fs.ListFiles(dir, filesystem.AllFiles, false)
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("image collection canceled before %s: %w", file, err)
		}
		if !IsImageFile(file) {
			continue
		}

		name := UniqueFileName(s.fs, w.dest, filepath.Base(file))
		if err := s.fs.CopyFile(file, filesystem.Combine(w.dest, name)); err != nil {
			w.result.Failed++
			s.logger.Error().
				Err(err).
				Str("path", file).
				Msg("failed to copy image")
			continue
		}
		w.result.Copied++
		s.logger.Debug().
			Str("path", file).
			Str("name", name).
			Msg("image copied")
	}

	w.visited++
	progress.Report(w.sink, progress.Percent(w.visited, w.total),
		fmt.Sprintf("Scanned %s", filesystem.FolderName(dir)))

	subdirs, err := s.fs.ListDirectories(dir)
	if err != nil {
		return err
	}
	for _, subdir := range subdirs {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("image collection canceled before %s: %w", subdir, err)
		}
		if s.isDestination(w, subdir) {
			continue
		}
		if err := s.processDirectory(ctx, w, subdir); err != nil {
			return err
		}
	}

	return nil
}

func (s *Impl) isDestination(w *walk, dir string) bool {
	canonical, err := s.fs.Canonical(dir)
	return err == nil && canonical == w.dest
}

// countDirectories counts root and every directory below it except dest.
func (s *Impl) countDirectories(dir, dest string) (int, error) {
	subdirs, err := s.fs.ListDirectories(dir)
	if err != nil {
		return 0, err
	}
	count := 1
	for _, subdir := range subdirs {
		if canonical, err := s.fs.Canonical(subdir); err == nil && canonical == dest {
			continue
		}
		n, err := s.countDirectories(subdir, dest)
		if err != nil {
			return 0, err
		}
		count += n
	}
	return count, nil
}
