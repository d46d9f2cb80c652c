// Package compression packs a folder into a single zip archive.
package compression

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/fgeck/stl-organizer/internal/progress"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultLevel is the flate level used when none is configured.
const DefaultLevel = flate.DefaultCompression

// Service defines the interface for folder compression.
type Service interface {
	CompressFolder(ctx context.Context, folder, output string, sink progress.Sink) (*models.CompressionResult, error)
}

// Impl implements the compression Service interface.
type Impl struct {
	fs     filesystem.FileSystem
	level  int
	logger zerolog.Logger
}

// New creates a new folder compressor writing entries at the given flate level.
func New(logger zerolog.Logger, fs filesystem.FileSystem, level int) *Impl {
	return &Impl{
		fs:     fs,
		level:  level,
		logger: logger,
	}
}

// DefaultOutput returns <parent>/<folder>.zip for folder. Relative folders
// such as "." are resolved against the working directory first.
func DefaultOutput(folder string) string {
	if abs, err := filepath.Abs(folder); err == nil {
		folder = abs
	}
	return filesystem.Combine(filesystem.ParentDirectory(folder), filesystem.FolderName(folder)+".zip")
}

type walk struct {
	zw     *zip.Writer
	skip   string
	total  int
	result *models.CompressionResult
	sink   progress.Sink
}

// CompressFolder writes every file below folder into a zip archive at output,
// or at DefaultOutput(folder) when output is empty. An existing archive at the
// output path is replaced. Files that cannot be read are logged and counted.
func (s *Impl) CompressFolder(
	ctx context.Context,
	folder, output string,
	sink progress.Sink,
) (result *models.CompressionResult, err error) {
	if output == "" {
		output = DefaultOutput(folder)
	}
	result = &models.CompressionResult{OutputPath: output}

	if !s.fs.DirExists(folder) {
		return result, errors.Errorf("%w: %s", models.ErrDirectoryNotFound, folder)
	}

	skip, err := s.fs.Canonical(output)
	if err != nil {
		return result, err
	}

	if s.fs.Exists(output) {
		s.logger.Debug().Str("output", output).Msg("replacing existing archive")
		if err := s.fs.Delete(output, false); err != nil {
			return result, err
		}
	}

	files, err := s.fs.ListFiles(folder, filesystem.AllFiles, true)
	if err != nil {
		return result, err
	}

	s.logger.Info().
		Str("folder", folder).
		Str("output", output).
		Int("files", len(files)).
		Int("level", s.level).
		Msg("compressing folder")

	out, err := s.fs.CreateFile(output)
	if err != nil {
		return result, err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Errorf("closing %s: %w", output, cerr)
		}
	}()

	zw := zip.NewWriter(out)
	level := s.level
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})
	defer func() {
		if cerr := zw.Close(); cerr != nil && err == nil {
			err = errors.Errorf("finalizing %s: %w", output, cerr)
		}
	}()

	w := &walk{zw: zw, skip: skip, total: len(files), result: result, sink: sink}
	if err := s.addDirectory(ctx, w, folder, ""); err != nil {
		return result, err
	}

	s.logger.Info().
		Str("output", output).
		Int("added", result.EntriesAdded).
		Int("failed", result.EntriesFailed).
		Msg("folder compressed")

	return result, nil
}

func (s *Impl) addDirectory(ctx context.Context, w *walk, dir, prefix string) error {
	files, err := s.fs.ListFiles(dir, filesystem.AllFiles, false)
	if err != nil {
		return err
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("compression canceled before %s: %w", file, err)
		}
		if canonical, err := s.fs.Canonical(file); err == nil && canonical == w.skip {
			continue
		}

		name := filesystem.EntryName(prefix, filepath.Base(file))
		if err := s.addFile(w.zw, file, name); err != nil {
			w.result.EntriesFailed++
			s.logger.Error().
				Err(err).
				Str("path", file).
				Msg("failed to add file to archive")
			continue
		}
		w.result.EntriesAdded++
		progress.Report(w.sink, progress.Percent(w.result.EntriesAdded, w.total),
			fmt.Sprintf("Added %s", name))
	}

	subdirs, err := s.fs.ListDirectories(dir)
	if err != nil {
		return err
	}
	for _, subdir := range subdirs {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("compression canceled before %s: %w", subdir, err)
		}
		if err := s.addDirectory(ctx, w, subdir, filesystem.EntryName(prefix, filesystem.FolderName(subdir))); err != nil {
			return err
		}
	}

	return nil
}

func (s *Impl) addFile(zw *zip.Writer, path, name string) error {
	in, err := s.fs.OpenRead(path)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return errors.Errorf("stat %s: %w", path, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.Errorf("building header for %s: %w", path, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	entry, err := zw.CreateHeader(header)
	if err != nil {
		return errors.Errorf("creating entry %s: %w", name, err)
	}
	if _, err := io.Copy(entry, in); err != nil {
		return errors.Errorf("writing entry %s: %w", name, err)
	}
	return nil
}
