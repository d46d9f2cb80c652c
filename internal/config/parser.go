// Package config provides configuration file parsing.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/klauspost/compress/flate"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("compress.level", flate.DefaultCompression)
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.OrganizerConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.OrganizerConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, errors.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.OrganizerConfig, error) {
	cfg := &models.OrganizerConfig{}

	// Parse the operation (required).
	operation := p.v.GetString("operation")
	if operation == "" {
		return nil, errors.New("operation is required")
	}
	kind, err := models.ParseOperationKind(operation)
	if err != nil {
		return nil, errors.Errorf("operation: %w", err)
	}
	cfg.Operation = kind

	cfg.Path = p.expandEnv(p.v.GetString("path"))
	if cfg.Path == "" {
		return nil, errors.New("path is required")
	}

	cfg.Decompress = models.DecompressSettings{
		Exclude: p.v.GetStringSlice("decompress.exclude"),
	}

	cfg.Compress = models.CompressSettings{
		Output: p.expandEnv(p.v.GetString("compress.output")),
		Level:  p.v.GetInt("compress.level"),
	}

	// Parse optional WOL config.
	if p.v.IsSet("wol") { //nolint:nestif // config parsing with defaults
		cfg.WOL = &models.WOLConfig{
			MACAddress:    p.v.GetString("wol.mac_address"),
			BroadcastIP:   p.v.GetString("wol.broadcast_ip"),
			PollURL:       p.expandEnv(p.v.GetString("wol.poll_url")),
			Timeout:       p.v.GetDuration("wol.timeout"),
			PollInterval:  p.v.GetDuration("wol.poll_interval"),
			StabilizeWait: p.v.GetDuration("wol.stabilize_wait"),
		}

		if cfg.WOL.MACAddress == "" {
			return nil, errors.New("wol.mac_address is required when wol is configured")
		}

		// The organizer path lives on the woken host, so wait until it is reachable.
		if p.v.GetBool("wol.wait_for_path") {
			cfg.WOL.WaitPath = cfg.Path
		}

		// Set defaults.
		if cfg.WOL.BroadcastIP == "" {
			cfg.WOL.BroadcastIP = "255.255.255.255"
		}
		if cfg.WOL.Timeout == 0 {
			cfg.WOL.Timeout = 5 * time.Minute
		}
		if cfg.WOL.PollInterval == 0 {
			cfg.WOL.PollInterval = 10 * time.Second
		}
		if cfg.WOL.StabilizeWait == 0 {
			cfg.WOL.StabilizeWait = 10 * time.Second
		}
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, errors.New("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, errors.New("telegram.chat_id is required when telegram is configured")
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.OrganizerConfig) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}

	if !cfg.Operation.Valid() {
		return errors.Errorf("operation: %w: kind %d", models.ErrInvalidOperation, int(cfg.Operation))
	}

	if cfg.Path == "" {
		return errors.New("path is required")
	}

	if cfg.Compress.Level < flate.HuffmanOnly || cfg.Compress.Level > flate.BestCompression {
		return errors.Errorf("compress.level must be between %d and %d, got %d",
			flate.HuffmanOnly, flate.BestCompression, cfg.Compress.Level)
	}

	for _, pattern := range cfg.Decompress.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("decompress.exclude: invalid pattern %q", pattern)
		}
	}

	return nil
}
