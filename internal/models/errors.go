package models

import "gitlab.com/tozd/go/errors"

// Fatal errors shared by the organizer services. Callers match them with errors.Is.
var (
	ErrDirectoryNotFound = errors.Base("directory not found")
	ErrNoArchivesFound   = errors.Base("no archives found")
	ErrInvalidOperation  = errors.Base("invalid operation")
	ErrMergeConflict     = errors.Base("merge conflict")
)
