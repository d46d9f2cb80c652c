// Package selector dispatches an operation request to the matching organizer workflow.
package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/fgeck/stl-organizer/internal/progress"
	"github.com/fgeck/stl-organizer/internal/services/compression"
	"github.com/fgeck/stl-organizer/internal/services/decompression"
	"github.com/fgeck/stl-organizer/internal/services/images"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// CanceledMessage is the outcome message of a canceled operation.
const CanceledMessage = "Operation canceled."

// Service defines the interface for the operation dispatcher.
type Service interface {
	Execute(ctx context.Context, req models.OperationRequest, sink progress.Sink) (*models.OperationResult, error)
}

// Impl implements the selector Service interface.
type Impl struct {
	decompressionSvc decompression.Service
	compressionSvc   compression.Service
	imagesSvc        images.Service
	logger           zerolog.Logger
}

// New creates a new dispatcher wired to the default workflows.
func New(logger zerolog.Logger, fs filesystem.FileSystem, cfg models.OrganizerConfig) *Impl {
	return &Impl{
		decompressionSvc: decompression.New(logger, fs, cfg.Decompress),
		compressionSvc:   compression.New(logger, fs, cfg.Compress.Level),
		imagesSvc:        images.New(logger, fs),
		logger:           logger,
	}
}

// NewWithServices creates a new dispatcher with custom workflows (for testing).
func NewWithServices(
	logger zerolog.Logger,
	decompressionSvc decompression.Service,
	compressionSvc compression.Service,
	imagesSvc images.Service,
) *Impl {
	return &Impl{
		decompressionSvc: decompressionSvc,
		compressionSvc:   compressionSvc,
		imagesSvc:        imagesSvc,
		logger:           logger,
	}
}

// Execute runs the workflow selected by req.Kind. Workflow failures and
// cancellation are reported through the returned result; only an unknown
// kind is returned as an error.
func (s *Impl) Execute(
	ctx context.Context,
	req models.OperationRequest,
	sink progress.Sink,
) (*models.OperationResult, error) {
	if !req.Kind.Valid() {
		return nil, errors.Errorf("%w: kind %d", models.ErrInvalidOperation, int(req.Kind))
	}

	startTime := time.Now()
	result := &models.OperationResult{
		Kind: req.Kind,
		Path: req.Path,
	}

	s.logger.Info().
		Str("operation", req.Kind.String()).
		Str("path", req.Path).
		Msg("starting operation")

	var err error
	switch req.Kind {
	case models.DecompressArchives:
		err = s.decompress(ctx, req, sink, result)
	case models.CompressFolder:
		err = s.compress(ctx, req, sink, result)
	case models.ExtractImages:
		err = s.extractImages(ctx, req, sink, result)
	}

	result.Duration = time.Since(startTime)
	s.finish(result, err)

	return result, nil
}

func (s *Impl) decompress(
	ctx context.Context,
	req models.OperationRequest,
	sink progress.Sink,
	result *models.OperationResult,
) error {
	res, err := s.decompressionSvc.Execute(ctx, req.Path, sink)
	if res != nil {
		result.Count = len(res.ExtractedFiles)
		result.Archives = len(res.ProcessedArchives)
	}
	if err != nil {
		return err
	}

	result.Message = fmt.Sprintf("Successfully extracted %d file(s) from %d archive(s) and flattened folders.",
		result.Count, result.Archives)
	return nil
}

func (s *Impl) compress(
	ctx context.Context,
	req models.OperationRequest,
	sink progress.Sink,
	result *models.OperationResult,
) error {
	res, err := s.compressionSvc.CompressFolder(ctx, req.Path, req.OutputPath, sink)
	if res != nil {
		result.Count = res.EntriesAdded
		result.OutputPath = res.OutputPath
	}
	if err != nil {
		return err
	}

	result.Message = fmt.Sprintf("Successfully created archive: %s", result.OutputPath)
	return nil
}

func (s *Impl) extractImages(
	ctx context.Context,
	req models.OperationRequest,
	sink progress.Sink,
	result *models.OperationResult,
) error {
	res, err := s.imagesSvc.OrganizeImages(ctx, req.Path, sink)
	if res != nil {
		result.Count = res.Copied
		result.OutputPath = res.ImagesFolder
	}
	if err != nil {
		return err
	}

	result.Message = fmt.Sprintf("Successfully copied %d image(s) to %s folder.", result.Count, images.FolderName)
	return nil
}

func (s *Impl) finish(result *models.OperationResult, err error) {
	switch {
	case err == nil:
		result.Status = models.StatusSucceeded
		s.logger.Info().
			Str("operation", result.Kind.String()).
			Int("count", result.Count).
			Dur("duration", result.Duration).
			Msg("operation completed")
	case IsCanceled(err):
		result.Status = models.StatusCanceled
		result.Message = CanceledMessage
		result.Error = err
		s.logger.Warn().
			Str("operation", result.Kind.String()).
			Int("count", result.Count).
			Msg("operation canceled")
	default:
		result.Status = models.StatusFailed
		result.Message = "Error: " + err.Error()
		result.Error = err
		s.logger.Error().
			Err(err).
			Str("operation", result.Kind.String()).
			Str("path", result.Path).
			Msg("operation failed")
	}
}

// IsCanceled reports whether err stems from a canceled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
