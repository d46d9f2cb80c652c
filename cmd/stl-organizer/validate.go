package main

import (
	"fmt"
	"os"

	"github.com/fgeck/stl-organizer/internal/config"
	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/fgeck/stl-organizer/internal/services/compression"
	"github.com/fgeck/stl-organizer/internal/services/images"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without touching the library.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return errors.Errorf("config file not found: %s", configFile)
	}

	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Operation: %s\n", cfg.Operation)
	fmt.Printf("  Path: %s\n", cfg.Path)

	switch cfg.Operation {
	case models.DecompressArchives:
		if len(cfg.Decompress.Exclude) > 0 {
			fmt.Printf("  Exclude: %v\n", cfg.Decompress.Exclude)
		}
	case models.CompressFolder:
		output := cfg.Compress.Output
		if output == "" {
			output = compression.DefaultOutput(cfg.Path) + " (default)"
		}
		fmt.Printf("  Output: %s\n", output)
		fmt.Printf("  Compression level: %d\n", cfg.Compress.Level)
	case models.ExtractImages:
		fmt.Printf("  Images folder: %s\n", filesystem.Combine(cfg.Path, images.FolderName))
	}

	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Wake-on-LAN: %v\n", cfg.WOL != nil)
	fmt.Printf("  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.WOL != nil {
		fmt.Println()
		fmt.Println("WOL Configuration:")
		fmt.Printf("  MAC Address: %s\n", cfg.WOL.MACAddress)
		fmt.Printf("  Broadcast IP: %s\n", cfg.WOL.BroadcastIP)
		if cfg.WOL.PollURL != "" {
			fmt.Printf("  Poll URL: %s\n", cfg.WOL.PollURL)
		}
		if cfg.WOL.WaitPath != "" {
			fmt.Printf("  Wait for path: %s\n", cfg.WOL.WaitPath)
		}
		fmt.Printf("  Timeout: %s\n", cfg.WOL.Timeout)
	}

	if cfg.Telegram != nil {
		fmt.Println()
		fmt.Println("Telegram Configuration:")
		fmt.Printf("  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Printf("  Bot Token: (configured)\n")
	}

	return nil
}
