// Package decompression finds archives under a folder, extracts them and flattens the result.
package decompression

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fgeck/stl-organizer/internal/filesystem"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/mholt/archives"
	"github.com/pierrec/lz4/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// archiveSuffixes lists recognised archive suffixes, longest first so that
// ".tar.gz" wins over ".gz".
var archiveSuffixes = []string{".tar.gz", ".tgz", ".tar", ".zip", ".7z", ".rar", ".gz", ".zst", ".lz4"}

// streamSuffixes are single-stream compressions that decode to exactly one file.
var streamSuffixes = map[string]bool{".gz": true, ".zst": true, ".lz4": true}

// ArchivePattern selects archive candidates when listing files.
const ArchivePattern = "*.{zip,7z,rar,tar,tgz,gz,zst,lz4}"

// MatchArchive returns the recognised archive suffix of name, compared case-insensitively.
func MatchArchive(name string) (string, bool) {
	lower := strings.ToLower(filepath.Base(name))
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
			return suffix, true
		}
	}
	return "", false
}

// IsArchive reports whether name carries a recognised archive suffix.
func IsArchive(name string) bool {
	_, ok := MatchArchive(name)
	return ok
}

// TrimArchiveSuffix returns the base name of path without its archive suffix.
func TrimArchiveSuffix(path string) string {
	base := filepath.Base(path)
	suffix, ok := MatchArchive(base)
	if !ok {
		return filesystem.FileNameWithoutExtension(base)
	}
	return base[:len(base)-len(suffix)]
}

// OutputDirectory returns the folder an archive is extracted into: a sibling
// of the archive named after it without the archive suffix. Single-stream
// archives decode next to the archive itself.
func OutputDirectory(archivePath string) string {
	parent := filesystem.ParentDirectory(archivePath)
	if suffix, ok := MatchArchive(archivePath); ok && streamSuffixes[suffix] {
		return parent
	}
	return filepath.Join(parent, TrimArchiveSuffix(archivePath))
}

// Decompressor extracts a single archive into a folder.
type Decompressor interface {
	Decompress(ctx context.Context, archivePath, outputDir string) ([]string, error)
}

// ArchiveDecompressor implements Decompressor for container and single-stream formats.
type ArchiveDecompressor struct {
	fs     filesystem.FileSystem
	logger zerolog.Logger
}

// NewDecompressor creates a new archive decompressor.
func NewDecompressor(logger zerolog.Logger, fs filesystem.FileSystem) *ArchiveDecompressor {
	return &ArchiveDecompressor{
		fs:     fs,
		logger: logger,
	}
}

// Decompress extracts archivePath into outputDir and returns the paths of the written files.
// On failure the files written so far are returned along with the error.
func (d *ArchiveDecompressor) Decompress(ctx context.Context, archivePath, outputDir string) ([]string, error) {
	suffix, ok := MatchArchive(archivePath)
	if !ok {
		return nil, errors.Errorf("unsupported archive format: %s", archivePath)
	}

	if err := d.fs.CreateDirectory(outputDir); err != nil {
		return nil, err
	}

	d.logger.Debug().
		Str("archive", archivePath).
		Str("output", outputDir).
		Msg("extracting archive")

	if streamSuffixes[suffix] {
		file, err := d.decompressStream(archivePath, outputDir, suffix)
		if err != nil {
			return nil, err
		}
		return []string{file}, nil
	}

	return d.extractArchive(ctx, archivePath, outputDir)
}

func (d *ArchiveDecompressor) extractArchive(ctx context.Context, archivePath, outputDir string) ([]string, error) {
	file, err := d.fs.OpenRead(archivePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	format, input, err := archives.Identify(ctx, filepath.Base(archivePath), file)
	if err != nil {
		return nil, errors.Errorf("identifying archive %s: %w", archivePath, err)
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return nil, errors.Errorf("format %s of %s does not support extraction", format.Extension(), archivePath)
	}

	var extracted []string
	handler := func(ctx context.Context, f archives.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		path, err := d.writeEntry(outputDir, f)
		if err != nil {
			return err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
		return nil
	}

	if err := extractor.Extract(ctx, input, handler); err != nil {
		return extracted, errors.Errorf("extracting %s: %w", archivePath, err)
	}

	return extracted, nil
}

// writeEntry writes one archive entry below outputDir. It returns an empty
// path for entries that produce no file (directories, links).
func (d *ArchiveDecompressor) writeEntry(outputDir string, f archives.FileInfo) (string, error) {
	target, err := SafeJoin(outputDir, f.NameInArchive)
	if err != nil {
		return "", err
	}

	if f.IsDir() {
		return "", d.fs.CreateDirectory(target)
	}

	if f.LinkTarget != "" || f.Mode()&os.ModeSymlink != 0 {
		d.logger.Debug().Str("entry", f.NameInArchive).Msg("skipping link entry")
		return "", nil
	}

	if err := d.fs.CreateDirectory(filepath.Dir(target)); err != nil {
		return "", err
	}

	src, err := f.Open()
	if err != nil {
		return "", errors.Errorf("opening entry %s: %w", f.NameInArchive, err)
	}
	defer func() { _ = src.Close() }()

	if err := d.writeFile(target, src); err != nil {
		return "", err
	}
	return target, nil
}

func (d *ArchiveDecompressor) decompressStream(archivePath, outputDir, suffix string) (string, error) {
	in, err := d.fs.OpenRead(archivePath)
	if err != nil {
		return "", err
	}
	defer func() { _ = in.Close() }()

	var r io.Reader
	switch suffix {
	case ".gz":
		gz, err := gzip.NewReader(in)
		if err != nil {
			return "", errors.Errorf("reading gzip header of %s: %w", archivePath, err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	case ".zst":
		zr, err := zstd.NewReader(in)
		if err != nil {
			return "", errors.Errorf("opening zstd stream %s: %w", archivePath, err)
		}
		defer zr.Close()
		r = zr
	case ".lz4":
		r = lz4.NewReader(in)
	default:
		return "", errors.Errorf("unsupported stream format %s", suffix)
	}

	target := filepath.Join(outputDir, TrimArchiveSuffix(archivePath))
	if err := d.writeFile(target, r); err != nil {
		return "", err
	}
	return target, nil
}

func (d *ArchiveDecompressor) writeFile(target string, r io.Reader) (err error) {
	out, err := d.fs.CreateFile(target)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Errorf("closing %s: %w", target, cerr)
		}
	}()

	if _, err := io.Copy(out, r); err != nil {
		return errors.Errorf("writing %s: %w", target, err)
	}
	return nil
}

// SafeJoin joins an archive entry name onto root and rejects names that
// would resolve outside of root.
func SafeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("entry %q escapes the output directory", name)
	}
	return target, nil
}
