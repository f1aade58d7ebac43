package testutil

import (
	"archive/zip"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// ZipEntry describes one member of a test archive. Names ending in "/"
// become directory entries.
type ZipEntry struct {
	Name    string
	Content string
	Symlink bool // Content is used as the link target
}

// CreateTestZip writes a zip archive with the given entries, in order, to
// dir/name and returns its path.
func CreateTestZip(t *testing.T, dir, name string, entries []ZipEntry) string {
	t.Helper()
	filePath := filepath.Join(dir, name)
	file, err := os.Create(filePath)
	if err != nil {
		t.Fatalf("Failed to create temp zip file: %v", err)
	}
	defer file.Close()

	zipWriter := zip.NewWriter(file)
	for _, entry := range entries {
		header := &zip.FileHeader{Name: entry.Name, Method: zip.Deflate}
		switch {
		case entry.Symlink:
			header.SetMode(fs.ModeSymlink | 0777)
		case len(entry.Name) > 0 && entry.Name[len(entry.Name)-1] == '/':
			header.SetMode(fs.ModeDir | 0755)
			header.Method = zip.Store
		default:
			header.SetMode(0644)
		}
		w, err := zipWriter.CreateHeader(header)
		if err != nil {
			t.Fatalf("Failed to create entry '%s' in zip: %v", entry.Name, err)
		}
		if entry.Content != "" {
			if _, err := w.Write([]byte(entry.Content)); err != nil {
				t.Fatalf("Failed to write entry '%s': %v", entry.Name, err)
			}
		}
	}
	if err := zipWriter.Close(); err != nil {
		t.Fatalf("Failed to finalize zip: %v", err)
	}
	return filePath
}

// WriteFile creates a file (and its parents) below root for a test.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("Failed to create parent of %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return full
}
