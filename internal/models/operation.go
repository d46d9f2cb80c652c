package models

import (
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
)

// OperationKind identifies one of the organizer workflows.
type OperationKind int

// Supported operation kinds. The zero value is not a valid kind.
const (
	DecompressArchives OperationKind = iota + 1
	CompressFolder
	ExtractImages
)

// OperationKinds lists every valid kind in display order.
var OperationKinds = []OperationKind{DecompressArchives, CompressFolder, ExtractImages}

func (k OperationKind) String() string {
	switch k {
	case DecompressArchives:
		return "decompress"
	case CompressFolder:
		return "compress"
	case ExtractImages:
		return "images"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the declared kinds.
func (k OperationKind) Valid() bool {
	switch k {
	case DecompressArchives, CompressFolder, ExtractImages:
		return true
	default:
		return false
	}
}

// ParseOperationKind converts a config or flag value into an OperationKind.
func ParseOperationKind(s string) (OperationKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, k := range OperationKinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, errors.Errorf("%w: %q (expected decompress, compress or images)", ErrInvalidOperation, s)
}

// OperationRequest is the input of the operation dispatcher.
type OperationRequest struct {
	Kind       OperationKind
	Path       string
	OutputPath string // CompressFolder only; empty selects the default
}

// OperationStatus is the terminal state of one dispatched operation.
type OperationStatus string

// Terminal operation states.
const (
	StatusSucceeded OperationStatus = "succeeded"
	StatusCanceled  OperationStatus = "canceled"
	StatusFailed    OperationStatus = "failed"
)

// OperationResult holds the outcome of a dispatched operation.
type OperationResult struct {
	Kind       OperationKind
	Path       string
	Status     OperationStatus
	Message    string
	Count      int    // extracted files, added entries or copied images
	Archives   int    // DecompressArchives only
	OutputPath string // archive path for CompressFolder
	Duration   time.Duration
	Error      error
}

// Succeeded reports whether the operation completed without a fatal error.
func (r *OperationResult) Succeeded() bool {
	return r != nil && r.Status == StatusSucceeded
}

// Progress is a single progress update pushed to a sink.
type Progress struct {
	Percent int
	Message string
}
