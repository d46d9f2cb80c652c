package main

import (
	"os"

	"github.com/fgeck/stl-organizer/internal/config"
	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/fgeck/stl-organizer/internal/services/compression"
	"github.com/fgeck/stl-organizer/internal/services/selector"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	compressOutput string
	compressLevel  int
	excludes       []string
)

var decompressCmd = &cobra.Command{
	Use:   "decompress <dir>",
	Short: "Extract every archive below a folder and flatten nested folders",
	Long: `Extract every archive (.zip .7z .rar .tar .tar.gz .tgz .gz .zst .lz4) found below
<dir> into a sibling folder named after the archive, then merge folders that
share their parent's name (Dragon/Dragon becomes Dragon). Single-file streams
(.gz .zst .lz4) are decoded next to the archive.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(models.OperationRequest{Kind: models.DecompressArchives, Path: args[0]})
	},
}

var compressCmd = &cobra.Command{
	Use:   "compress <dir>",
	Short: "Pack a folder into a zip archive",
	Long:  `Pack every file below <dir> into <parent>/<dir>.zip, or into --output. An existing archive is replaced.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(models.OperationRequest{
			Kind:       models.CompressFolder,
			Path:       args[0],
			OutputPath: compressOutput,
		})
	},
}

var imagesCmd = &cobra.Command{
	Use:   "images <dir>",
	Short: "Copy all images below a folder into <dir>/Images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(models.OperationRequest{Kind: models.ExtractImages, Path: args[0]})
	},
}

func init() {
	decompressCmd.Flags().StringSliceVar(&excludes, "exclude", nil, "skip archives matching these patterns (relative to <dir>)")
	compressCmd.Flags().StringVarP(&compressOutput, "output", "o", "", "archive path (default <parent>/<dir>.zip)")
	compressCmd.Flags().IntVar(&compressLevel, "level", compression.DefaultLevel, "deflate level, -2 (huffman only) to 9")
}

// runOperation dispatches an ad hoc request without a config file.
func runOperation(req models.OperationRequest) error {
	cfg := models.OrganizerConfig{
		Operation:  req.Kind,
		Path:       req.Path,
		Decompress: models.DecompressSettings{Exclude: excludes},
		Compress:   models.CompressSettings{Output: req.OutputPath, Level: compressLevel},
	}
	if err := config.Validate(&cfg); err != nil {
		log.Error().Err(err).Msg("invalid arguments")
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sink, finish := progressSink(os.Stdout)
	selectorSvc := selector.New(log.Logger, filesystem.NewOS(), cfg)
	result, err := selectorSvc.Execute(ctx, req, sink)
	finish()
	if err != nil {
		log.Error().Err(err).Msg("operation failed")
		return err
	}

	return printOutcome(os.Stdout, result)
}
