// Package runner orchestrates a configured organizer run.
package runner

import (
	"context"
	"os"
	"time"

	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/fgeck/stl-organizer/internal/progress"
	"github.com/fgeck/stl-organizer/internal/services/selector"
	"github.com/fgeck/stl-organizer/internal/services/telegram"
	"github.com/fgeck/stl-organizer/internal/services/wol"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Service defines the interface for the organizer runner.
type Service interface {
	Run(ctx context.Context, cfg models.OrganizerConfig, sink progress.Sink) (*models.OperationResult, error)
}

// Impl implements the runner Service interface.
type Impl struct {
	selectorSvc selector.Service
	wolSvc      wol.Service
	telegramSvc telegram.Service
	logger      zerolog.Logger
	hostname    string
}

// New creates a new runner service.
func New(logger zerolog.Logger, fs filesystem.FileSystem, cfg models.OrganizerConfig) *Impl {
	hostname, _ := os.Hostname()
	return &Impl{
		selectorSvc: selector.New(logger, fs, cfg),
		wolSvc:      wol.New(logger, fs),
		telegramSvc: telegram.New(logger),
		logger:      logger,
		hostname:    hostname,
	}
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	selectorSvc selector.Service,
	wolSvc wol.Service,
	telegramSvc telegram.Service,
	hostname string,
) *Impl {
	return &Impl{
		selectorSvc: selectorSvc,
		wolSvc:      wolSvc,
		telegramSvc: telegramSvc,
		logger:      logger,
		hostname:    hostname,
	}
}

// Run wakes the storage host if configured, dispatches the configured
// operation and reports the outcome to Telegram. The returned result is nil
// only when the run failed before the operation was dispatched.
func (s *Impl) Run(ctx context.Context, cfg models.OrganizerConfig, sink progress.Sink) (*models.OperationResult, error) {
	startTime := time.Now()
	var failedStep string
	var result *models.OperationResult
	var runErr error

	s.logger.Info().
		Str("operation", cfg.Operation.String()).
		Str("path", cfg.Path).
		Msg("starting organizer run")

	defer func() {
		if cfg.Telegram != nil {
			s.sendNotification(ctx, cfg, startTime, failedStep, result, runErr)
		}
	}()

	// Step 1: Wake-on-LAN (if configured)
	if cfg.WOL != nil {
		failedStep = "wol"
		if err := s.runWOL(ctx, cfg.WOL); err != nil {
			runErr = err
			return nil, err
		}
	}

	// Step 2: Dispatch the operation
	failedStep = "operation"
	res, err := s.selectorSvc.Execute(ctx, cfg.Request(), sink)
	if err != nil {
		runErr = err
		return nil, errors.Errorf("operation failed: %w", err)
	}
	result = res

	if !result.Succeeded() {
		runErr = result.Error
		return result, nil
	}

	failedStep = ""
	s.logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("organizer run completed successfully")

	return result, nil
}

func (s *Impl) runWOL(ctx context.Context, cfg *models.WOLConfig) error {
	s.logger.Info().
		Str("mac", cfg.MACAddress).
		Str("poll_url", cfg.PollURL).
		Str("wait_path", cfg.WaitPath).
		Msg("sending Wake-on-LAN packet")

	result, err := s.wolSvc.Wake(ctx, *cfg)
	if err != nil {
		return errors.Errorf("WOL failed: %w", err)
	}
	if result.Error != nil {
		return errors.Errorf("WOL failed: %w", result.Error)
	}
	if !result.TargetReady {
		return errors.New("target did not become ready after WOL")
	}

	s.logger.Info().
		Bool("packet_sent", result.PacketSent).
		Bool("target_ready", result.TargetReady).
		Dur("wait_duration", result.WaitDuration).
		Msg("WOL completed")

	return nil
}

func (s *Impl) sendNotification(
	ctx context.Context,
	cfg models.OrganizerConfig,
	startTime time.Time,
	failedStep string,
	result *models.OperationResult,
	runErr error,
) {
	msg := models.TelegramMessage{
		Status:    models.StatusFailed,
		Operation: cfg.Operation.String(),
		Path:      cfg.Path,
		Host:      s.hostname,
		StartTime: startTime,
		Duration:  time.Since(startTime),
	}

	switch {
	case result != nil:
		msg.Status = result.Status
		msg.Summary = result.Message
		msg.Count = result.Count
		msg.OutputPath = result.OutputPath
		if !result.Succeeded() {
			msg.FailedStep = failedStep
		}
	case runErr != nil:
		msg.Summary = runErr.Error()
		msg.FailedStep = failedStep
		if selector.IsCanceled(runErr) {
			msg.Status = models.StatusCanceled
		}
	}

	// The run context may already be canceled; the report must still go out.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	res, err := s.telegramSvc.SendNotification(notifyCtx, *cfg.Telegram, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if res.Error != nil {
		s.logger.Error().Err(res.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Info().Msg("Telegram notification sent")
}
