package decompression

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/fgeck/stl-organizer/internal/progress"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Scanner finds archives under a folder and decompresses each of them.
type Scanner interface {
	FindAndDecompress(ctx context.Context, root string, sink progress.Sink) (*models.DecompressionResult, error)
}

// FolderScanner implements Scanner.
type FolderScanner struct {
	fs           filesystem.FileSystem
	decompressor Decompressor
	exclude      []string
	logger       zerolog.Logger
}

// NewScanner creates a new folder scanner.
func NewScanner(logger zerolog.Logger, fs filesystem.FileSystem, decompressor Decompressor, exclude []string) *FolderScanner {
	return &FolderScanner{
		fs:           fs,
		decompressor: decompressor,
		exclude:      exclude,
		logger:       logger,
	}
}

// FindAndDecompress extracts every archive below root next to the archive itself.
// A failing archive is logged and skipped. When ctx is cancelled the archives
// handled so far are returned together with the cancellation error.
func (s *FolderScanner) FindAndDecompress(
	ctx context.Context,
	root string,
	sink progress.Sink,
) (*models.DecompressionResult, error) {
	result := &models.DecompressionResult{}

	if !s.fs.DirExists(root) {
		return result, errors.Errorf("%w: %s", models.ErrDirectoryNotFound, root)
	}

	candidates, err := s.findArchives(root)
	if err != nil {
		return result, err
	}
	if len(candidates) == 0 {
		return result, errors.Errorf("%w under %s", models.ErrNoArchivesFound, root)
	}

	s.logger.Info().
		Str("root", root).
		Int("archives", len(candidates)).
		Msg("decompressing archives")

	for i, archive := range candidates {
		if err := ctx.Err(); err != nil {
			return result, errors.Errorf("decompression canceled after %d of %d archives: %w", i, len(candidates), err)
		}

		files, err := s.decompressor.Decompress(ctx, archive, OutputDirectory(archive))
		switch {
		case err == nil:
			result.ExtractedFiles = append(result.ExtractedFiles, files...)
			result.ProcessedArchives = append(result.ProcessedArchives, archive)
			s.logger.Debug().
				Str("archive", archive).
				Int("files", len(files)).
				Msg("archive extracted")
		case ctx.Err() != nil:
			return result, errors.Errorf("decompression canceled while extracting %s: %w", archive, ctx.Err())
		default:
			result.FailedArchives = append(result.FailedArchives, archive)
			s.logger.Error().
				Err(err).
				Str("archive", archive).
				Msg("failed to decompress archive")
		}

		progress.Report(sink, progress.Percent(i+1, len(candidates)),
			fmt.Sprintf("Decompressed %s (%d/%d)", filepath.Base(archive), i+1, len(candidates)))
	}

	s.logger.Info().
		Int("processed", len(result.ProcessedArchives)).
		Int("failed", len(result.FailedArchives)).
		Int("files", len(result.ExtractedFiles)).
		Msg("decompression scan completed")

	return result, nil
}

func (s *FolderScanner) findArchives(root string) ([]string, error) {
	files, err := s.fs.ListFiles(root, ArchivePattern, true)
	if err != nil {
		return nil, errors.Errorf("listing archives under %s: %w", root, err)
	}

	candidates := make([]string, 0, len(files))
	for _, file := range files {
		if !IsArchive(file) {
			continue
		}
		excluded, err := s.isExcluded(root, file)
		if err != nil {
			return nil, err
		}
		if excluded {
			s.logger.Debug().Str("archive", file).Msg("archive excluded by pattern")
			continue
		}
		candidates = append(candidates, file)
	}
	return candidates, nil
}

func (s *FolderScanner) isExcluded(root, file string) (bool, error) {
	if len(s.exclude) == 0 {
		return false, nil
	}
	rel, err := filesystem.RelativeSlash(root, file)
	if err != nil {
		return false, errors.Errorf("resolving %s against %s: %w", file, root, err)
	}
	for _, pattern := range s.exclude {
		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, errors.Errorf("matching exclude pattern %q: %w", pattern, err)
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
