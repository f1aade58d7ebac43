// Package extract unpacks zip archives into a directory, one entry at a
// time, refusing any entry that would land outside that directory.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/vrsandeep/filebox/internal/util"
)

// ProgressFunc receives the share of entries written so far, 0-100.
type ProgressFunc func(percent float64)

// Extract writes every entry of the zip archive at archivePath below
// destDir, in archive order, calling onEntry after each one.
//
// An archive without entries returns nil without calling onEntry. The first
// unsafe entry, I/O failure or format problem stops the extraction; entries
// written before that stay on disk. The returned error is always an *Error.
func Extract(ctx context.Context, archivePath, destDir string, onEntry ProgressFunc) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return newError(IOError, "", err)
	}
	defer f.Close()

	zipFormat, err := identifyZip(ctx, f)
	if err != nil {
		return err
	}

	total, err := countEntries(ctx, zipFormat, f)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return newError(IOError, "", err)
	}

	extracted := 0
	err = zipFormat.Extract(ctx, f, func(ctx context.Context, info archives.FileInfo) error {
		if err := writeEntry(destDir, info); err != nil {
			return err
		}
		extracted++
		if onEntry != nil {
			onEntry(float64(extracted) / float64(total) * 100)
		}
		return nil
	})
	return classify(err)
}

// identifyZip sniffs the archive and leaves f positioned at its start.
func identifyZip(ctx context.Context, f *os.File) (archives.Zip, error) {
	format, _, err := archives.Identify(ctx, filepath.Base(f.Name()), f)
	if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
		return archives.Zip{}, newError(IOError, "", seekErr)
	}
	if err != nil {
		if errors.Is(err, archives.NoMatch) {
			return archives.Zip{}, newError(ArchiveFormatError, "", fmt.Errorf("unrecognized archive format"))
		}
		return archives.Zip{}, newError(IOError, "", err)
	}

	switch z := format.(type) {
	case archives.Zip:
		return z, nil
	case *archives.Zip:
		return *z, nil
	default:
		return archives.Zip{}, newError(ArchiveFormatError, "", fmt.Errorf("not a zip archive (%s)", format.Extension()))
	}
}

func countEntries(ctx context.Context, z archives.Zip, f *os.File) (int, error) {
	total := 0
	err := z.Extract(ctx, f, func(ctx context.Context, info archives.FileInfo) error {
		total++
		return nil
	})
	if err != nil {
		return 0, classify(err)
	}
	return total, nil
}

// writeEntry materialises one archive member below destDir. Symbolic links
// are written as regular files holding the link target.
func writeEntry(destDir string, info archives.FileInfo) error {
	name := info.NameInArchive
	if path.IsAbs(name) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return newError(PathTraversal, name, nil)
	}
	memberPath := filepath.Join(destDir, filepath.FromSlash(name))
	if !util.IsSafe(destDir, memberPath) {
		return newError(PathTraversal, name, nil)
	}

	if info.IsDir() {
		if err := os.MkdirAll(memberPath, 0755); err != nil {
			return newError(IOError, name, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(memberPath), 0755); err != nil {
		return newError(IOError, name, err)
	}

	perm := info.Mode().Perm()
	if perm == 0 || info.Mode()&fs.ModeSymlink != 0 {
		perm = 0644
	}
	out, err := os.OpenFile(memberPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return newError(IOError, name, err)
	}
	defer out.Close()

	if info.Mode()&fs.ModeSymlink != 0 {
		if _, err := io.WriteString(out, info.LinkTarget); err != nil {
			return newError(IOError, name, err)
		}
		return closeEntry(out, name)
	}

	rc, err := info.Open()
	if err != nil {
		return newError(ArchiveFormatError, name, err)
	}
	defer rc.Close()

	w := &trackingWriter{w: out}
	if _, err := io.Copy(w, rc); err != nil {
		if w.err != nil {
			return newError(IOError, name, w.err)
		}
		// The write side was fine, so the entry itself could not be read.
		return newError(ArchiveFormatError, name, err)
	}
	return closeEntry(out, name)
}

func closeEntry(out *os.File, name string) error {
	if err := out.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return newError(IOError, name, err)
	}
	return nil
}

// trackingWriter remembers the error of the underlying writer so a failed
// copy can be blamed on the right side.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}

// classify turns whatever the zip reader returned into an *Error. Errors
// raised by writeEntry pass through unchanged; anything else comes from
// reading the archive itself.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var extractErr *Error
	if errors.As(err, &extractErr) {
		return extractErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(IOError, "", err)
	}
	// archive/zip style readers may reject "../" names up front when the
	// zipinsecurepath GODEBUG setting is off.
	if strings.Contains(err.Error(), "insecure file path") {
		return newError(PathTraversal, "", err)
	}
	return newError(ArchiveFormatError, "", err)
}
