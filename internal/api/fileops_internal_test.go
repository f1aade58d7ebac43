package api

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovePath_CrossDeviceFallsBackToCopy(t *testing.T) {
	renameFunc = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	t.Cleanup(func() { renameFunc = os.Rename })

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "a.txt"), []byte("a"), 0644))

	dst := filepath.Join(dir, "dst")
	require.NoError(t, movePath(src, dst))

	got, err := os.ReadFile(filepath.Join(dst, "nested", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
	assert.NoDirExists(t, src)
}

func TestMovePath_OtherErrorsAreReturned(t *testing.T) {
	dir := t.TempDir()
	err := movePath(filepath.Join(dir, "missing"), filepath.Join(dir, "dst"))
	assert.Error(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "dst"))
}
