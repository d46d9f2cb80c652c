// Package flatten collapses redundant nested folders such as Foo/Foo into their parent.
package flatten

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Service defines the interface for folder flattening.
type Service interface {
	Flatten(ctx context.Context, root string) (*models.FlattenResult, error)
}

// Impl implements the flatten Service interface.
type Impl struct {
	fs     filesystem.FileSystem
	logger zerolog.Logger
}

// New creates a new folder flattener.
func New(logger zerolog.Logger, fs filesystem.FileSystem) *Impl {
	return &Impl{
		fs:     fs,
		logger: logger,
	}
}

// Flatten merges every folder into its parent when both have the same name,
// compared case-insensitively. Subfolders are processed before their parent
// so chains like A/A/A collapse in a single pass. Entries that already exist
// in the parent are merged: folders recursively, identical files by dropping
// the nested copy. Files with differing content abort with ErrMergeConflict
// before anything is moved.
func (s *Impl) Flatten(ctx context.Context, root string) (*models.FlattenResult, error) {
	result := &models.FlattenResult{}

	if !s.fs.DirExists(root) {
		return result, errors.Errorf("%w: %s", models.ErrDirectoryNotFound, root)
	}

	if err := s.processDirectory(ctx, root, result); err != nil {
		return result, err
	}

	s.logger.Info().
		Str("root", root).
		Int("folders_merged", result.FoldersMerged).
		Int("entries_moved", result.EntriesMoved).
		Int("duplicates_removed", result.DuplicatesRemoved).
		Msg("folder flattening completed")

	return result, nil
}

func (s *Impl) processDirectory(ctx context.Context, dir string, result *models.FlattenResult) error {
	subdirs, err := s.fs.ListDirectories(dir)
	if err != nil {
		return err
	}

	for _, subdir := range subdirs {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("flattening canceled at %s: %w", subdir, err)
		}
		if err := s.processDirectory(ctx, subdir, result); err != nil {
			return err
		}
		if err := s.mergeIfMatching(dir, subdir, result); err != nil {
			return err
		}
	}

	return nil
}

func (s *Impl) mergeIfMatching(parent, child string, result *models.FlattenResult) error {
	name := filesystem.FolderName(child)
	if !strings.EqualFold(filesystem.FolderName(parent), name) {
		return nil
	}

	entries, err := s.entries(child)
	if err != nil {
		return err
	}

	// Nothing is moved until the whole merge is known to be free of conflicts.
	for _, entry := range entries {
		if strings.EqualFold(filepath.Base(entry), name) {
			continue
		}
		if err := s.checkMerge(entry, filepath.Join(parent, filepath.Base(entry))); err != nil {
			return err
		}
	}

	// An entry named like the child itself would land on the child, so it is
	// parked under a temporary name until the child is gone.
	type parked struct{ tmp, dst string }
	var held []parked
	for _, entry := range entries {
		dst := filepath.Join(parent, filepath.Base(entry))
		if strings.EqualFold(filepath.Base(entry), name) {
			tmp := s.temporaryName(parent, filepath.Base(entry))
			if err := s.fs.Move(entry, tmp); err != nil {
				return errors.Errorf("merging %s into %s: %w", child, parent, err)
			}
			held = append(held, parked{tmp: tmp, dst: dst})
			continue
		}
		if err := s.mergeEntry(entry, dst, result); err != nil {
			return errors.Errorf("merging %s into %s: %w", child, parent, err)
		}
	}

	if err := s.fs.Delete(child, false); err != nil {
		return errors.Errorf("removing merged folder %s: %w", child, err)
	}
	for _, h := range held {
		if err := s.fs.Move(h.tmp, h.dst); err != nil {
			return errors.Errorf("merging %s into %s: %w", child, parent, err)
		}
		result.EntriesMoved++
	}
	result.FoldersMerged++

	s.logger.Debug().
		Str("parent", parent).
		Str("child", child).
		Int("entries", len(entries)).
		Msg("merged nested folder into parent")

	return nil
}

// checkMerge reports a merge conflict if src cannot be merged onto dst.
// Directories merge recursively and identical files collapse into one.
func (s *Impl) checkMerge(src, dst string) error {
	if !s.fs.Exists(dst) {
		return nil
	}

	srcDir, dstDir := s.fs.DirExists(src), s.fs.DirExists(dst)
	switch {
	case srcDir && dstDir:
		entries, err := s.entries(src)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := s.checkMerge(entry, filepath.Join(dst, filepath.Base(entry))); err != nil {
				return err
			}
		}
		return nil
	case !srcDir && !dstDir:
		same, err := s.fs.SameContent(src, dst)
		if err != nil {
			return err
		}
		if same {
			return nil
		}
	}

	return errors.Errorf("%w: %s already exists in %s", models.ErrMergeConflict, filepath.Base(src), filesystem.ParentDirectory(dst))
}

// mergeEntry moves src onto dst. It assumes checkMerge accepted the pair.
func (s *Impl) mergeEntry(src, dst string, result *models.FlattenResult) error {
	if !s.fs.Exists(dst) {
		if err := s.fs.Move(src, dst); err != nil {
			return err
		}
		result.EntriesMoved++
		return nil
	}

	if s.fs.DirExists(src) {
		entries, err := s.entries(src)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := s.mergeEntry(entry, filepath.Join(dst, filepath.Base(entry)), result); err != nil {
				return err
			}
		}
		return s.fs.Delete(src, false)
	}

	if err := s.fs.Delete(src, false); err != nil {
		return err
	}
	result.DuplicatesRemoved++
	return nil
}

func (s *Impl) entries(dir string) ([]string, error) {
	files, err := s.fs.ListFiles(dir, filesystem.AllFiles, false)
	if err != nil {
		return nil, err
	}
	dirs, err := s.fs.ListDirectories(dir)
	if err != nil {
		return nil, err
	}
	return append(files, dirs...), nil
}

func (s *Impl) temporaryName(dir, name string) string {
	for i := 0; ; i++ {
		tmp := filepath.Join(dir, fmt.Sprintf(".%s.merging-%d", name, i))
		if !s.fs.Exists(tmp) {
			return tmp
		}
	}
}
