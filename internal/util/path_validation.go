package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
)

// ErrUnsafePath is returned when a client supplied path resolves outside
// of the root it was joined to.
var ErrUnsafePath = errors.New("unsafe path")

var (
	controlChars     = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	invalidNameChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	repeatedDashes   = regexp.MustCompile(`-+`)
	repeatedSpaces   = regexp.MustCompile(`\s+`)
)

// IsSafe reports whether candidate, once made absolute and with every
// symbolic link followed, is baseDir itself or lives underneath it.
// Path components that do not exist yet are resolved lexically below their
// deepest existing ancestor, so a file that is about to be written is
// judged the same way as one that is already there.
func IsSafe(baseDir, candidate string) bool {
	base, err := canonicalPath(baseDir)
	if err != nil {
		return false
	}
	target, err := canonicalPath(candidate)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// canonicalPath returns the absolute, symlink-free form of p.
func canonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	var tail []string
	current := abs
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			// Nothing on the way up exists; fall back to the lexical form.
			return abs, nil
		}
		tail = append([]string{filepath.Base(current)}, tail...)
		current = parent
	}
}

// CleanRelPath takes a user path like "", ".", "/a/b", "a//b" or "a\b" and
// returns a slash separated relative path without a leading slash.
// The empty string means the root.
func CleanRelPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "." || p == "/" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// ResolveWithinRoot joins a client relative path onto root and verifies the
// result with IsSafe. Unlike CleanRelPath it does not anchor ".." segments,
// so "a/../../etc" is rejected instead of being silently rewritten.
func ResolveWithinRoot(root, rel string) (string, error) {
	if strings.ContainsRune(rel, '\x00') {
		return "", ErrUnsafePath
	}
	rel = strings.ReplaceAll(strings.TrimSpace(rel), "\\", "/")
	full := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
	if !IsSafe(root, full) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, rel)
	}
	return full, nil
}

// RelativeTo returns target as a slash separated path relative to root.
func RelativeTo(root, target string) string {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// EnsureDir creates dirPath if needed and checks that it is a writable
// directory. It returns the absolute path.
func EnsureDir(dirPath string) (string, error) {
	if dirPath == "" {
		return "", fmt.Errorf("directory path cannot be empty")
	}
	abs, err := filepath.Abs(dirPath)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("path exists but is not a directory: %s", abs)
	case os.IsNotExist(err):
		if err := os.MkdirAll(abs, 0755); err != nil {
			return "", fmt.Errorf("cannot create directory: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("cannot access path: %w", err)
	}
	if err := checkWritePermission(abs); err != nil {
		return "", fmt.Errorf("no write permission for directory: %w", err)
	}
	return abs, nil
}

// checkWritePermission checks if we have write permission to a directory
func checkWritePermission(dirPath string) error {
	f, err := os.CreateTemp(dirPath, ".filebox_check_*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// SanitizeFileName strips characters that cannot be used in a file or
// folder name on Windows, macOS or Linux and collapses whitespace into
// underscores. The result is always a single path component; it may be
// empty when nothing usable is left.
func SanitizeFileName(name string) string {
	if name == "" {
		return ""
	}

	safeName := controlChars.ReplaceAllString(name, "")
	safeName = invalidNameChars.ReplaceAllString(safeName, "-")
	safeName = strings.TrimSpace(safeName)
	safeName = repeatedSpaces.ReplaceAllString(safeName, "_")

	safeName = repeatedDashes.ReplaceAllString(safeName, "-")
	// Leading dots would make hidden files or "..".
	safeName = strings.Trim(safeName, " .-")

	// Handle reserved names on Windows (CON, PRN, AUX, NUL, COM1-9, LPT1-9)
	reservedNames := map[string]bool{
		"CON": true, "PRN": true, "AUX": true, "NUL": true,
		"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
		"COM6": true, "COM7": true, "COM8": true, "COM9": true,
		"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
		"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	}
	stem := strings.TrimSuffix(safeName, filepath.Ext(safeName))
	if reservedNames[strings.ToUpper(stem)] {
		safeName = "_" + safeName
	}

	return safeName
}
