package osfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFS_LastModified(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0o644))

	info, err := os.Stat(path)
	require.NoError(t, err)

	fs := FS{}
	ms, err := fs.LastModified(path)
	require.NoError(t, err)
	require.Equal(t, info.ModTime().UnixMilli(), ms)
}

func TestFS_LastModified_MissingFile(t *testing.T) {
	fs := FS{}
	_, err := fs.LastModified(filepath.Join(t.TempDir(), "nope.go"))
	require.Error(t, err)
}
