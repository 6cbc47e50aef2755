package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forage/internal/adapters/fs"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestStamp_Deterministic(t *testing.T) {
	files := map[string]string{
		"a.txt":        "alpha",
		"sub/b.txt":    "beta",
		"sub/de/c.txt": "gamma",
	}

	dirA := t.TempDir()
	dirB := t.TempDir()
	writeTree(t, dirA, files)
	writeTree(t, dirB, files)

	stamper := fs.NewStamper()
	stampA, err := stamper.Stamp(dirA)
	require.NoError(t, err)
	stampB, err := stamper.Stamp(dirB)
	require.NoError(t, err)

	assert.Equal(t, stampA, stampB, "identical trees at different roots stamp equal")
	assert.Len(t, stampA, 16)
}

func TestStamp_ContentSensitive(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeTree(t, dirA, map[string]string{"a.txt": "one"})
	writeTree(t, dirB, map[string]string{"a.txt": "two"})

	stamper := fs.NewStamper()
	stampA, err := stamper.Stamp(dirA)
	require.NoError(t, err)
	stampB, err := stamper.Stamp(dirB)
	require.NoError(t, err)

	assert.NotEqual(t, stampA, stampB)
}

func TestStamp_PathSensitive(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeTree(t, dirA, map[string]string{"a.txt": "same"})
	writeTree(t, dirB, map[string]string{"b.txt": "same"})

	stamper := fs.NewStamper()
	stampA, err := stamper.Stamp(dirA)
	require.NoError(t, err)
	stampB, err := stamper.Stamp(dirB)
	require.NoError(t, err)

	assert.NotEqual(t, stampA, stampB, "renaming a file changes the stamp")
}

func TestStamp_IgnoresGitDir(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeTree(t, dirA, map[string]string{"a.txt": "same"})
	writeTree(t, dirB, map[string]string{
		"a.txt":         "same",
		".git/HEAD":     "ref: refs/heads/main\n",
		".git/shallow":  "abcd\n",
		"sub/.git/HEAD": "ref: refs/heads/main\n",
	})

	stamper := fs.NewStamper()
	stampA, err := stamper.Stamp(dirA)
	require.NoError(t, err)
	stampB, err := stamper.Stamp(dirB)
	require.NoError(t, err)

	assert.Equal(t, stampA, stampB)
}

func TestStamp_Symlinks(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeTree(t, dirA, map[string]string{"bin/tool": "x"})
	writeTree(t, dirB, map[string]string{"bin/tool": "x"})
	require.NoError(t, os.Symlink("bin/tool", filepath.Join(dirA, "latest")))
	require.NoError(t, os.Symlink("bin/other", filepath.Join(dirB, "latest")))

	stamper := fs.NewStamper()
	stampA, err := stamper.Stamp(dirA)
	require.NoError(t, err)
	stampB, err := stamper.Stamp(dirB)
	require.NoError(t, err)

	assert.NotEqual(t, stampA, stampB, "symlink targets are part of the stamp")
}

func TestStamp_EmptyTree(t *testing.T) {
	stamp, err := fs.NewStamper().Stamp(t.TempDir())
	require.NoError(t, err)
	assert.Len(t, stamp, 16)
}

func TestStamp_MissingDir(t *testing.T) {
	_, err := fs.NewStamper().Stamp(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
