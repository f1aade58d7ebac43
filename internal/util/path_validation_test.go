package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSafe(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		candidate string
		want      bool
	}{
		{"nested file", "/data", "/data/sub/file", true},
		{"dot-dot escape", "/data", "/data/../etc", false},
		{"root itself", "/data", "/data", true},
		{"trailing slash on root", "/data/", "/data", true},
		{"sibling with shared prefix", "/data", "/database/file", false},
		{"dot-dot that stays inside", "/data", "/data/a/../b", true},
		{"deep escape", "/data", "/data/a/b/../../../etc/passwd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSafe(tt.base, tt.candidate))
		})
	}
}

func TestIsSafe_FollowsSymlinks(t *testing.T) {
	root := t.TempDir()
	base := filepath.Join(root, "base")
	outside := filepath.Join(root, "outside")
	require.NoError(t, os.MkdirAll(base, 0755))
	require.NoError(t, os.MkdirAll(outside, 0755))

	if err := os.Symlink(outside, filepath.Join(base, "escape")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(base, "real"), 0755))
	if err := os.Symlink(filepath.Join(base, "real"), filepath.Join(base, "inner")); err != nil {
		t.Fatalf("Failed to create inner symlink: %v", err)
	}

	t.Run("link pointing outside is unsafe", func(t *testing.T) {
		assert.False(t, IsSafe(base, filepath.Join(base, "escape")))
		assert.False(t, IsSafe(base, filepath.Join(base, "escape", "not-yet-written.txt")))
	})

	t.Run("link pointing inside is safe", func(t *testing.T) {
		assert.True(t, IsSafe(base, filepath.Join(base, "inner", "file.txt")))
	})

	t.Run("symlinked base is resolved too", func(t *testing.T) {
		linkedBase := filepath.Join(root, "linked-base")
		require.NoError(t, os.Symlink(base, linkedBase))
		assert.True(t, IsSafe(linkedBase, filepath.Join(base, "real")))
		assert.True(t, IsSafe(base, filepath.Join(linkedBase, "real")))
	})
}

func TestResolveWithinRoot(t *testing.T) {
	root := t.TempDir()

	t.Run("relative path", func(t *testing.T) {
		got, err := ResolveWithinRoot(root, "photos/2024")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "photos", "2024"), got)
	})

	t.Run("empty path is the root", func(t *testing.T) {
		got, err := ResolveWithinRoot(root, "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Clean(root), got)
	})

	t.Run("leading slash stays under root", func(t *testing.T) {
		got, err := ResolveWithinRoot(root, "/docs")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "docs"), got)
	})

	t.Run("traversal rejected", func(t *testing.T) {
		_, err := ResolveWithinRoot(root, "../../etc/passwd")
		assert.True(t, errors.Is(err, ErrUnsafePath))

		_, err = ResolveWithinRoot(root, "a/../../outside")
		assert.True(t, errors.Is(err, ErrUnsafePath))
	})

	t.Run("nul byte rejected", func(t *testing.T) {
		_, err := ResolveWithinRoot(root, "a\x00b")
		assert.ErrorIs(t, err, ErrUnsafePath)
	})
}

func TestCleanRelPath(t *testing.T) {
	cases := map[string]string{
		"":           "",
		".":          "",
		"/":          "",
		"/a/b":       "a/b",
		"a//b":       "a/b",
		`a\b`:        "a/b",
		"../../etc":  "etc",
		" spaced/ ":  "spaced",
		"a/./b/../c": "a/c",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanRelPath(in), "input %q", in)
	}
}

func TestRelativeTo(t *testing.T) {
	root := filepath.FromSlash("/srv/files")
	assert.Equal(t, "", RelativeTo(root, root))
	assert.Equal(t, "a/b.txt", RelativeTo(root, filepath.Join(root, "a", "b.txt")))
}

func TestEnsureDir(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("creates missing directory", func(t *testing.T) {
		target := filepath.Join(tempDir, "uploads", "nested")
		got, err := EnsureDir(target)
		require.NoError(t, err)
		assert.Equal(t, target, got)
		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects a file", func(t *testing.T) {
		file := filepath.Join(tempDir, "plain.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
		_, err := EnsureDir(file)
		assert.Error(t, err)
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := EnsureDir("")
		assert.Error(t, err)
	})

	t.Run("leaves no write-check file behind", func(t *testing.T) {
		dir := filepath.Join(tempDir, "clean")
		_, err := EnsureDir(dir)
		require.NoError(t, err)
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"report.pdf", "report.pdf"},
		{"my file.txt", "my_file.txt"},
		{"../../etc/passwd", "etc-passwd"},
		{"a/b\\c", "a-b-c"},
		{"file:name*?.zip", "file-name-.zip"},
		{"\x00hidden\x1f", "hidden"},
		{".bashrc", "bashrc"},
		{"...", ""},
		{"CON", "_CON"},
		{"nul.txt", "_nul.txt"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFileName(tt.input))
		})
	}
}
