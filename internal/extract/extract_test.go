package extract_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsandeep/filebox/internal/extract"
	"github.com/vrsandeep/filebox/internal/testutil"
)

func collect(percents *[]float64) extract.ProgressFunc {
	return func(p float64) { *percents = append(*percents, p) }
}

func TestExtract(t *testing.T) {
	t.Run("writes entries in order and reports progress", func(t *testing.T) {
		dir := t.TempDir()
		archive := testutil.CreateTestZip(t, dir, "archive.zip", []testutil.ZipEntry{
			{Name: "a.txt", Content: "alpha"},
			{Name: "b/c.txt", Content: "charlie"},
		})
		dest := filepath.Join(dir, "archive")
		require.NoError(t, os.MkdirAll(dest, 0755))

		var percents []float64
		err := extract.Extract(context.Background(), archive, dest, collect(&percents))
		require.NoError(t, err)

		assert.Equal(t, []float64{50, 100}, percents)

		got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "alpha", string(got))
		got, err = os.ReadFile(filepath.Join(dest, "b", "c.txt"))
		require.NoError(t, err)
		assert.Equal(t, "charlie", string(got))
	})

	t.Run("progress is non-decreasing and ends at exactly 100", func(t *testing.T) {
		dir := t.TempDir()
		entries := []testutil.ZipEntry{{Name: "docs/"}}
		for _, n := range []string{"1", "2", "3", "4", "5", "6"} {
			entries = append(entries, testutil.ZipEntry{Name: "docs/" + n + ".txt", Content: n})
		}
		archive := testutil.CreateTestZip(t, dir, "many.zip", entries)
		dest := filepath.Join(dir, "many")

		var percents []float64
		require.NoError(t, extract.Extract(context.Background(), archive, dest, collect(&percents)))

		require.Len(t, percents, len(entries))
		for i := 1; i < len(percents); i++ {
			assert.GreaterOrEqual(t, percents[i], percents[i-1])
			assert.Less(t, percents[i-1], 100.0)
		}
		assert.Equal(t, 100.0, percents[len(percents)-1])
		assert.DirExists(t, filepath.Join(dest, "docs"))
	})

	t.Run("empty archive reports no progress", func(t *testing.T) {
		dir := t.TempDir()
		archive := testutil.CreateTestZip(t, dir, "empty.zip", nil)

		var percents []float64
		err := extract.Extract(context.Background(), archive, filepath.Join(dir, "empty"), collect(&percents))
		require.NoError(t, err)
		assert.Empty(t, percents)
	})

	t.Run("traversal entry aborts before writing", func(t *testing.T) {
		dir := t.TempDir()
		archive := testutil.CreateTestZip(t, dir, "evil.zip", []testutil.ZipEntry{
			{Name: "ok.txt", Content: "fine"},
			{Name: "../outside.txt", Content: "pwned"},
			{Name: "after.txt", Content: "never"},
		})
		dest := filepath.Join(dir, "evil")
		require.NoError(t, os.MkdirAll(dest, 0755))

		var percents []float64
		err := extract.Extract(context.Background(), archive, dest, collect(&percents))
		require.Error(t, err)
		assert.True(t, errors.Is(err, extract.ErrPathTraversal))
		assert.Contains(t, err.Error(), "path traversal")

		var extractErr *extract.Error
		require.True(t, errors.As(err, &extractErr))
		assert.Equal(t, extract.PathTraversal, extractErr.Kind)

		assert.NoFileExists(t, filepath.Join(dir, "outside.txt"))
		assert.NoFileExists(t, filepath.Join(dest, "after.txt"))
		// Entries before the bad one are left in place.
		assert.FileExists(t, filepath.Join(dest, "ok.txt"))
		require.Len(t, percents, 1)
		assert.InDelta(t, 33.33, percents[0], 0.01)
	})

	t.Run("deep traversal and absolute names are rejected", func(t *testing.T) {
		for _, name := range []string{"../../etc/passwd", "a/../../x.txt", "/etc/passwd"} {
			dir := t.TempDir()
			archive := testutil.CreateTestZip(t, dir, "evil.zip", []testutil.ZipEntry{{Name: name, Content: "x"}})
			err := extract.Extract(context.Background(), archive, filepath.Join(dir, "dest"), nil)
			assert.ErrorIs(t, err, extract.ErrPathTraversal, "entry %q", name)
		}
	})

	t.Run("symlink in destination cannot be used to escape", func(t *testing.T) {
		dir := t.TempDir()
		dest := filepath.Join(dir, "dest")
		outside := filepath.Join(dir, "outside")
		require.NoError(t, os.MkdirAll(dest, 0755))
		require.NoError(t, os.MkdirAll(outside, 0755))
		if err := os.Symlink(outside, filepath.Join(dest, "link")); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
		archive := testutil.CreateTestZip(t, dir, "sneaky.zip", []testutil.ZipEntry{
			{Name: "link/payload.txt", Content: "x"},
		})

		err := extract.Extract(context.Background(), archive, dest, nil)
		assert.ErrorIs(t, err, extract.ErrPathTraversal)
		assert.NoFileExists(t, filepath.Join(outside, "payload.txt"))
	})

	t.Run("symlink entries are written as plain files", func(t *testing.T) {
		dir := t.TempDir()
		archive := testutil.CreateTestZip(t, dir, "links.zip", []testutil.ZipEntry{
			{Name: "passwd", Content: "/etc/passwd", Symlink: true},
		})
		dest := filepath.Join(dir, "links")

		require.NoError(t, extract.Extract(context.Background(), archive, dest, nil))

		info, err := os.Lstat(filepath.Join(dest, "passwd"))
		require.NoError(t, err)
		assert.True(t, info.Mode().IsRegular())
		got, err := os.ReadFile(filepath.Join(dest, "passwd"))
		require.NoError(t, err)
		assert.Equal(t, "/etc/passwd", string(got))
	})

	t.Run("corrupt archive is a format error", func(t *testing.T) {
		dir := t.TempDir()
		archive := filepath.Join(dir, "broken.zip")
		require.NoError(t, os.WriteFile(archive, []byte("this is not a zip file at all"), 0644))

		err := extract.Extract(context.Background(), archive, filepath.Join(dir, "broken"), nil)
		assert.ErrorIs(t, err, extract.ErrArchiveFormat)
	})

	t.Run("missing archive is an io error", func(t *testing.T) {
		dir := t.TempDir()
		err := extract.Extract(context.Background(), filepath.Join(dir, "nope.zip"), dir, nil)
		assert.ErrorIs(t, err, extract.ErrIO)
	})
}

func TestErrorKinds(t *testing.T) {
	err := &extract.Error{Kind: extract.IOError, Entry: "a.txt", Err: os.ErrPermission}
	assert.True(t, errors.Is(err, extract.ErrIO))
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.False(t, errors.Is(err, extract.ErrPathTraversal))
	assert.Contains(t, err.Error(), "a.txt")
	assert.Equal(t, "io_error", extract.IOError.String())
}
