package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/fgeck/stl-organizer/internal/progress"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"gitlab.com/tozd/go/errors"
)

var errOperationUnsuccessful = errors.Base("operation did not succeed")

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, canceling operation")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// progressSink renders updates on a terminal progress bar, or only logs them
// in quiet and JSON modes. The returned finish func must be called once the
// operation returns.
func progressSink(w io.Writer) (progress.Sink, func()) {
	logSink := progress.ToLogger(log.Logger)
	if quiet || jsonOutput {
		return logSink, func() {}
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Starting"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer: "█", SaucerHead: "█", SaucerPadding: "░",
			BarStart: "[", BarEnd: "]",
		}),
	)

	barSink := func(p models.Progress) {
		bar.Describe(p.Message)
		_ = bar.Set(p.Percent)
	}

	return progress.Tee(barSink, logSink), func() { _ = bar.Finish() }
}

// printOutcome writes the colored outcome line and maps the status to an error.
func printOutcome(w io.Writer, result *models.OperationResult) error {
	switch result.Status {
	case models.StatusSucceeded:
		fmt.Fprintln(w, color.GreenString("✔ %s", result.Message))
		return nil
	case models.StatusCanceled:
		fmt.Fprintln(w, color.YellowString("■ %s", result.Message))
	default:
		fmt.Fprintln(w, color.RedString("✘ %s", result.Message))
	}
	return errors.Errorf("%w: %s", errOperationUnsuccessful, result.Status)
}
