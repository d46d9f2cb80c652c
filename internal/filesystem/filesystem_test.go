package filesystem

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memTree(t *testing.T, files map[string]string) *Impl {
	t.Helper()
	mem := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(mem, name, []byte(content), 0o644))
	}
	return New(mem)
}

func TestListFiles(t *testing.T) {
	fs := memTree(t, map[string]string{
		"/lib/a.zip":         "",
		"/lib/B.ZIP":         "",
		"/lib/model.stl":     "",
		"/lib/sub/c.tar.gz":  "",
		"/lib/sub/deep/d.7z": "",
	})

	tests := []struct {
		name      string
		pattern   string
		recursive bool
		expected  []string
	}{
		{
			name:     "all files top level",
			pattern:  AllFiles,
			expected: []string{"/lib/B.ZIP", "/lib/a.zip", "/lib/model.stl"},
		},
		{
			name:     "empty pattern means all",
			pattern:  "",
			expected: []string{"/lib/B.ZIP", "/lib/a.zip", "/lib/model.stl"},
		},
		{
			name:     "case-insensitive extension",
			pattern:  "*.zip",
			expected: []string{"/lib/B.ZIP", "/lib/a.zip"},
		},
		{
			name:      "recursive brace pattern",
			pattern:   "*.{zip,gz,7z}",
			recursive: true,
			expected:  []string{"/lib/B.ZIP", "/lib/a.zip", "/lib/sub/c.tar.gz", "/lib/sub/deep/d.7z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := fs.ListFiles("/lib", tt.pattern, tt.recursive)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, files)
		})
	}
}

func TestListFiles_InvalidPattern(t *testing.T) {
	fs := memTree(t, map[string]string{"/lib/a.zip": ""})

	_, err := fs.ListFiles("/lib", "[", false)

	assert.Error(t, err)
}

func TestListFiles_MissingDirectory(t *testing.T) {
	fs := New(afero.NewMemMapFs())

	_, err := fs.ListFiles("/missing", AllFiles, false)
	assert.Error(t, err)

	_, err = fs.ListFiles("/missing", AllFiles, true)
	assert.Error(t, err)
}

func TestListDirectories(t *testing.T) {
	fs := memTree(t, map[string]string{
		"/lib/b/x.stl": "",
		"/lib/a/y.stl": "",
		"/lib/top.stl": "",
	})

	dirs, err := fs.ListDirectories("/lib")

	require.NoError(t, err)
	assert.Equal(t, []string{"/lib/a", "/lib/b"}, dirs)
}

func TestExistsAndDirExists(t *testing.T) {
	fs := memTree(t, map[string]string{"/lib/model.stl": "solid"})

	assert.True(t, fs.Exists("/lib/model.stl"))
	assert.True(t, fs.Exists("/lib"))
	assert.False(t, fs.Exists("/lib/missing.stl"))

	assert.True(t, fs.DirExists("/lib"))
	assert.False(t, fs.DirExists("/lib/model.stl"))
	assert.False(t, fs.DirExists("/missing"))
}

func TestCreateDirectory_Idempotent(t *testing.T) {
	fs := New(afero.NewMemMapFs())

	require.NoError(t, fs.CreateDirectory("/a/b/c"))
	require.NoError(t, fs.CreateDirectory("/a/b/c"))
	assert.True(t, fs.DirExists("/a/b/c"))
}

func TestCreateFileAndOpenRead(t *testing.T) {
	fs := New(afero.NewMemMapFs())
	require.NoError(t, fs.CreateDirectory("/out"))

	w, err := fs.CreateFile("/out/file.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("first version, longer"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = fs.CreateFile("/out/file.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("second"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := fs.OpenRead("/out/file.txt")
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data), "create truncates")
}

func TestCopyFile_NeverOverwrites(t *testing.T) {
	fs := memTree(t, map[string]string{
		"/src/photo.jpg": "new",
		"/dst/photo.jpg": "old",
	})

	require.NoError(t, fs.CopyFile("/src/photo.jpg", "/dst/photo_1.jpg"))
	err := fs.CopyFile("/src/photo.jpg", "/dst/photo.jpg")
	assert.Error(t, err)

	data, err := afero.ReadFile(fs.Fs(), "/dst/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	data, err = afero.ReadFile(fs.Fs(), "/dst/photo_1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestSameContent(t *testing.T) {
	big := strings.Repeat("facet normal 0 0 1\n", 4096)
	fs := memTree(t, map[string]string{
		"/a/body.stl":  "solid body",
		"/b/body.stl":  "solid body",
		"/c/body.stl":  "solid bodY",
		"/d/body.stl":  "solid body v2",
		"/a/large.stl": big,
		"/b/large.stl": big,
		"/c/large.stl": big[:len(big)-1] + "!",
	})

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "/a/body.stl", "/b/body.stl", true},
		{"same size different bytes", "/a/body.stl", "/c/body.stl", false},
		{"different size", "/a/body.stl", "/d/body.stl", false},
		{"identical across buffers", "/a/large.stl", "/b/large.stl", true},
		{"last byte differs", "/a/large.stl", "/c/large.stl", false},
		{"directory", "/a", "/b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			same, err := fs.SameContent(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, same)
		})
	}

	_, err := fs.SameContent("/a/body.stl", "/missing.stl")
	assert.Error(t, err)
}

func TestMove(t *testing.T) {
	root := t.TempDir()
	fs := NewOS()
	src := filepath.Join(root, "a.stl")
	require.NoError(t, os.WriteFile(src, []byte("solid"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "taken.stl"), []byte("x"), 0o644))

	err := fs.Move(src, filepath.Join(root, "taken.stl"))
	assert.ErrorIs(t, err, os.ErrExist)

	require.NoError(t, fs.Move(src, filepath.Join(root, "b.stl")))
	assert.NoFileExists(t, src)
	assert.FileExists(t, filepath.Join(root, "b.stl"))
}

func TestDelete(t *testing.T) {
	root := t.TempDir()
	fs := NewOS()
	dir := filepath.Join(root, "full")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), nil, 0o644))

	assert.Error(t, fs.Delete(dir, false), "non-empty directory needs recursive")
	require.NoError(t, fs.Delete(dir, true))
	assert.NoDirExists(t, dir)
}

func TestCanonical(t *testing.T) {
	fs := NewOS()

	got, err := fs.Canonical("/data/prints/../prints/./Images/")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/data/prints/Images"), got)

	wd, err := os.Getwd()
	require.NoError(t, err)
	got, err = fs.Canonical("Images")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "Images"), got)
}

func TestPathHelpers(t *testing.T) {
	p := filepath.Join("data", "Dragon", "body.final.stl")

	assert.Equal(t, "Dragon", FolderName(filepath.Join("data", "Dragon")+string(filepath.Separator)))
	assert.Equal(t, filepath.Join("data", "Dragon"), ParentDirectory(p))
	assert.Equal(t, ".stl", Extension(p))
	assert.Equal(t, "body.final", FileNameWithoutExtension(p))
	assert.Equal(t, p, Combine("data", "Dragon", "body.final.stl"))
}

func TestEntryName(t *testing.T) {
	assert.Equal(t, "file.txt", EntryName("", "file.txt"))
	assert.Equal(t, "A/B/file.txt", EntryName("A/B", "file.txt"))
	assert.Equal(t, "A/B/file.txt", EntryName(`A\B\`, "file.txt"))
	assert.Equal(t, "A/sub/file.txt", EntryName("A", `sub\file.txt`))
}

func TestRelativeSlash(t *testing.T) {
	rel, err := RelativeSlash(filepath.Join("root"), filepath.Join("root", "a", "b.zip"))

	require.NoError(t, err)
	assert.Equal(t, "a/b.zip", rel)
}
