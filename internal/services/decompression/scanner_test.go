package decompression

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/fgeck/stl-organizer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDecompressor struct {
	decompressFunc func(ctx context.Context, archivePath, outputDir string) ([]string, error)
	calls          []string
}

func (m *mockDecompressor) Decompress(ctx context.Context, archivePath, outputDir string) ([]string, error) {
	m.calls = append(m.calls, archivePath)
	if m.decompressFunc != nil {
		return m.decompressFunc(ctx, archivePath, outputDir)
	}
	return []string{filepath.Join(outputDir, "file.stl")}, nil
}

func TestScanner_DirectoryNotFound(t *testing.T) {
	scanner := NewScanner(testLogger(), filesystem.NewOS(), &mockDecompressor{}, nil)

	_, err := scanner.FindAndDecompress(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)

	assert.ErrorIs(t, err, models.ErrDirectoryNotFound)
}

func TestScanner_NoArchivesFound(t *testing.T) {
	root := t.TempDir()
	writePlain(t, filepath.Join(root, "model.stl"), "solid")

	decompressor := &mockDecompressor{}
	scanner := NewScanner(testLogger(), filesystem.NewOS(), decompressor, nil)

	_, err := scanner.FindAndDecompress(context.Background(), root, nil)

	assert.ErrorIs(t, err, models.ErrNoArchivesFound)
	assert.Empty(t, decompressor.calls)
}

func TestScanner_EmptyDirectory(t *testing.T) {
	scanner := NewScanner(testLogger(), filesystem.NewOS(), &mockDecompressor{}, nil)

	_, err := scanner.FindAndDecompress(context.Background(), t.TempDir(), nil)

	assert.ErrorIs(t, err, models.ErrNoArchivesFound)
}

func TestScanner_FindsArchivesRecursively(t *testing.T) {
	root := t.TempDir()
	writePlain(t, filepath.Join(root, "a.zip"), "")
	writePlain(t, filepath.Join(root, "nested", "b.TAR.GZ"), "")
	writePlain(t, filepath.Join(root, "nested", "deeper", "c.7z"), "")
	writePlain(t, filepath.Join(root, "nested", "model.stl"), "")

	decompressor := &mockDecompressor{}
	scanner := NewScanner(testLogger(), filesystem.NewOS(), decompressor, nil)

	result, err := scanner.FindAndDecompress(context.Background(), root, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.zip"),
		filepath.Join(root, "nested", "b.TAR.GZ"),
		filepath.Join(root, "nested", "deeper", "c.7z"),
	}, decompressor.calls)
	assert.Len(t, result.ProcessedArchives, 3)
	assert.Len(t, result.ExtractedFiles, 3)
}

func TestScanner_ReportsProgressPerArchive(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.zip", "b.zip", "c.zip", "d.zip"} {
		writePlain(t, filepath.Join(root, name), "")
	}

	var updates []models.Progress
	sink := func(p models.Progress) { updates = append(updates, p) }

	scanner := NewScanner(testLogger(), filesystem.NewOS(), &mockDecompressor{}, nil)
	_, err := scanner.FindAndDecompress(context.Background(), root, sink)

	require.NoError(t, err)
	require.Len(t, updates, 4)
	assert.Equal(t, 25, updates[0].Percent)
	assert.Contains(t, updates[0].Message, "a.zip")
	assert.Equal(t, 100, updates[3].Percent)
	assert.Contains(t, updates[3].Message, "d.zip")
}

func TestScanner_CorruptArchiveDoesNotAbortScan(t *testing.T) {
	root := t.TempDir()
	writePlain(t, filepath.Join(root, "bad.zip"), "definitely not a zip archive")
	writeZip(t, filepath.Join(root, "good.zip"), map[string]string{"model.stl": "solid"})

	scanner := NewScanner(testLogger(), filesystem.NewOS(), NewDecompressor(testLogger(), filesystem.NewOS()), nil)
	result, err := scanner.FindAndDecompress(context.Background(), root, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "good.zip")}, result.ProcessedArchives)
	assert.Equal(t, []string{filepath.Join(root, "bad.zip")}, result.FailedArchives)
	assert.Equal(t, []string{filepath.Join(root, "good", "model.stl")}, result.ExtractedFiles)
}

func TestScanner_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writePlain(t, filepath.Join(root, "keep.zip"), "")
	writePlain(t, filepath.Join(root, "__MACOSX", "skip.zip"), "")

	decompressor := &mockDecompressor{}
	scanner := NewScanner(testLogger(), filesystem.NewOS(), decompressor, []string{"**/__MACOSX/**", "__MACOSX/**"})

	_, err := scanner.FindAndDecompress(context.Background(), root, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "keep.zip")}, decompressor.calls)
}

func TestScanner_CanceledBeforeStart(t *testing.T) {
	root := t.TempDir()
	writePlain(t, filepath.Join(root, "a.zip"), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	decompressor := &mockDecompressor{}
	scanner := NewScanner(testLogger(), filesystem.NewOS(), decompressor, nil)
	result, err := scanner.FindAndDecompress(ctx, root, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.ProcessedArchives)
	assert.Empty(t, decompressor.calls)
}

func TestScanner_CanceledMidScan(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.zip", "b.zip", "c.zip"} {
		writePlain(t, filepath.Join(root, name), "")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	decompressor := &mockDecompressor{
		decompressFunc: func(ctx context.Context, archivePath, outputDir string) ([]string, error) {
			cancel()
			return []string{filepath.Join(outputDir, "x.stl")}, nil
		},
	}
	scanner := NewScanner(testLogger(), filesystem.NewOS(), decompressor, nil)
	result, err := scanner.FindAndDecompress(ctx, root, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, result.ProcessedArchives, 1)
	assert.LessOrEqual(t, len(result.ProcessedArchives), 3)
}

func TestScanner_CanceledInsideArchive(t *testing.T) {
	root := t.TempDir()
	writePlain(t, filepath.Join(root, "a.zip"), "")
	writePlain(t, filepath.Join(root, "b.zip"), "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	decompressor := &mockDecompressor{
		decompressFunc: func(ctx context.Context, archivePath, outputDir string) ([]string, error) {
			cancel()
			return nil, ctx.Err()
		},
	}
	scanner := NewScanner(testLogger(), filesystem.NewOS(), decompressor, nil)
	result, err := scanner.FindAndDecompress(ctx, root, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.ProcessedArchives)
	assert.Empty(t, result.FailedArchives)
	assert.Len(t, decompressor.calls, 1)
}

func TestScanner_FailureFromDecompressorIsRecorded(t *testing.T) {
	root := t.TempDir()
	writePlain(t, filepath.Join(root, "a.zip"), "")
	writePlain(t, filepath.Join(root, "b.zip"), "")

	decompressor := &mockDecompressor{
		decompressFunc: func(ctx context.Context, archivePath, outputDir string) ([]string, error) {
			if filepath.Base(archivePath) == "a.zip" {
				return nil, errors.New("disk full")
			}
			return []string{filepath.Join(outputDir, "ok.stl")}, nil
		},
	}
	scanner := NewScanner(testLogger(), filesystem.NewOS(), decompressor, nil)
	result, err := scanner.FindAndDecompress(context.Background(), root, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.zip")}, result.FailedArchives)
	assert.Equal(t, []string{filepath.Join(root, "b.zip")}, result.ProcessedArchives)
}
