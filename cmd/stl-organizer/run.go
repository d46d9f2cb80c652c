package main

import (
	"os"

	"github.com/fgeck/stl-organizer/internal/config"
	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/fgeck/stl-organizer/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the configured operation",
	Long: `Execute the operation described by the config file:
1. Wake-on-LAN (if configured), waiting for the poll URL and library path
2. Run the configured operation (decompress, compress or images)
3. Send Telegram notification (if configured)`,
	RunE: runConfigured,
}

func runConfigured(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	log.Info().
		Str("config", configFile).
		Str("operation", cfg.Operation.String()).
		Str("path", cfg.Path).
		Msg("configuration loaded")

	ctx, cancel := signalContext()
	defer cancel()

	sink, finish := progressSink(os.Stdout)
	runnerSvc := runner.New(log.Logger, filesystem.NewOS(), *cfg)
	result, err := runnerSvc.Run(ctx, *cfg, sink)
	finish()
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		return err
	}

	return printOutcome(os.Stdout, result)
}
