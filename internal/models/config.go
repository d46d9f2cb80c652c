// Package models contains the data structures used throughout stl-organizer.
package models

// OrganizerConfig holds the complete configuration for one organizer run.
type OrganizerConfig struct {
	Operation  OperationKind
	Path       string
	Decompress DecompressSettings
	Compress   CompressSettings
	WOL        *WOLConfig      // nil if not configured
	Telegram   *TelegramConfig // nil if not configured
}

// DecompressSettings holds decompression scan settings.
type DecompressSettings struct {
	Exclude []string // doublestar patterns relative to the scanned root
}

// CompressSettings holds folder compression settings.
type CompressSettings struct {
	Output string // optional, defaults to <parent>/<folder>.zip
	Level  int    // flate level, -1 for the library default
}

// Request builds the dispatcher request described by this configuration.
func (c OrganizerConfig) Request() OperationRequest {
	req := OperationRequest{
		Kind: c.Operation,
		Path: c.Path,
	}
	if c.Operation == CompressFolder {
		req.OutputPath = c.Compress.Output
	}
	return req
}
