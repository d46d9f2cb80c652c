package decompression

import (
	"context"

	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/fgeck/stl-organizer/internal/progress"
	"github.com/fgeck/stl-organizer/internal/services/flatten"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Service defines the interface for the decompression workflow.
type Service interface {
	Execute(ctx context.Context, root string, sink progress.Sink) (*models.DecompressionResult, error)
}

// Impl implements the decompression workflow: scan and extract, then flatten.
type Impl struct {
	fs        filesystem.FileSystem
	scanner   Scanner
	flattener flatten.Service
	logger    zerolog.Logger
}

// New creates a new decompression workflow.
func New(logger zerolog.Logger, fs filesystem.FileSystem, settings models.DecompressSettings) *Impl {
	return &Impl{
		fs:        fs,
		scanner:   NewScanner(logger, fs, NewDecompressor(logger, fs), settings.Exclude),
		flattener: flatten.New(logger, fs),
		logger:    logger,
	}
}

// NewWithServices creates a new decompression workflow with custom steps (for testing).
func NewWithServices(
	logger zerolog.Logger,
	fs filesystem.FileSystem,
	scanner Scanner,
	flattener flatten.Service,
) *Impl {
	return &Impl{
		fs:        fs,
		scanner:   scanner,
		flattener: flattener,
		logger:    logger,
	}
}

// Execute decompresses every archive below root and then collapses redundant
// nested folders. Flattening is skipped when the scan fails.
func (s *Impl) Execute(ctx context.Context, root string, sink progress.Sink) (*models.DecompressionResult, error) {
	if !s.fs.DirExists(root) {
		return nil, errors.Errorf("%w: %s", models.ErrDirectoryNotFound, root)
	}

	s.logger.Info().Str("root", root).Msg("starting decompression workflow")

	// Step 1: Decompress all archives
	result, err := s.scanner.FindAndDecompress(ctx, root, sink)
	if err != nil {
		return result, errors.Errorf("decompressing archives: %w", err)
	}

	// Step 2: Flatten nested folders
	progress.Report(sink, 100, "Flattening nested folders")
	flattened, err := s.flattener.Flatten(ctx, root)
	if err != nil {
		return result, errors.Errorf("flattening folders: %w", err)
	}

	s.logger.Info().
		Int("files", len(result.ExtractedFiles)).
		Int("archives", len(result.ProcessedArchives)).
		Int("folders_merged", flattened.FoldersMerged).
		Msg("decompression workflow completed")

	return result, nil
}
