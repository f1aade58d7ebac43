package api

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/vrsandeep/filebox/internal/models"
	"github.com/vrsandeep/filebox/internal/preview"
	"github.com/vrsandeep/filebox/internal/util"
)

type browseResponse struct {
	Path    string              `json:"path"`
	Entries []*models.FileEntry `json:"entries"`
}

// resolve maps a client path onto the upload root, writing a 400 when it
// escapes the root.
func (s *Server) resolve(w http.ResponseWriter, rel string) (string, bool) {
	full, err := util.ResolveWithinRoot(s.root, rel)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Unsafe path detected")
		return "", false
	}
	return full, true
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	full, ok := s.resolve(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	info, err := os.Stat(full)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Directory not found")
		return
	}
	if !info.IsDir() {
		RespondWithError(w, http.StatusBadRequest, "Path is not a directory")
		return
	}

	dirEntries, err := os.ReadDir(full)
	if err != nil {
		log.Printf("Failed to read directory %s: %v", full, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to read directory")
		return
	}
	locked, err := s.store.ListLockedPaths()
	if err != nil {
		log.Printf("Failed to load folder locks: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to load folder locks")
		return
	}

	rel := util.RelativeTo(s.root, full)
	entries := make([]*models.FileEntry, 0, len(dirEntries))
	for _, e := range dirEntries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		childRel := path.Join(rel, e.Name())
		entries = append(entries, &models.FileEntry{
			Name:    e.Name(),
			Path:    childRel,
			IsDir:   e.IsDir(),
			IsFile:  info.Mode().IsRegular(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Locked:  e.IsDir() && locked[childRel],
		})
	}
	slices.SortFunc(entries, func(a, b *models.FileEntry) int {
		if a.IsDir != b.IsDir {
			if a.IsDir {
				return -1
			}
			return 1
		}
		return util.CompareNames(a.Name, b.Name)
	})

	RespondWithJSON(w, http.StatusOK, browseResponse{Path: rel, Entries: entries})
}

func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	full, ok := s.resolve(w, requestPath(r))
	if !ok {
		return
	}
	info, err := os.Stat(full)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "File not found")
		return
	}
	if info.IsDir() {
		RespondWithError(w, http.StatusBadRequest, "Path is a directory")
		return
	}

	f, err := os.Open(full)
	if err != nil {
		log.Printf("Failed to open %s: %v", full, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to open file")
		return
	}
	defer f.Close()

	if r.URL.Query().Get("dl") == "1" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	full, ok := s.resolve(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		RespondWithError(w, http.StatusNotFound, "File not found")
		return
	}

	var thumb []byte
	switch {
	case preview.IsImageFile(full):
		f, err := os.Open(full)
		if err != nil {
			RespondWithError(w, http.StatusInternalServerError, "Failed to open file")
			return
		}
		defer f.Close()
		thumb, err = preview.GenerateThumbnail(f)
		if err != nil {
			RespondWithError(w, http.StatusUnprocessableEntity, "Failed to decode image")
			return
		}
	case strings.EqualFold(filepath.Ext(full), ".zip"):
		thumb, err = preview.ArchiveCover(full)
		if err != nil {
			if !errors.Is(err, preview.ErrNotPreviewable) {
				log.Printf("Failed to build archive cover for %s: %v", full, err)
			}
			RespondWithError(w, http.StatusUnsupportedMediaType, "File has no preview")
			return
		}
	default:
		RespondWithError(w, http.StatusUnsupportedMediaType, "File has no preview")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(thumb)
}

// handleSearch matches names case-insensitively over the whole tree.
// Locked folders are listed but never searched into.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	matches := []string{}
	if query == "" {
		RespondWithJSON(w, http.StatusOK, map[string]interface{}{"query": query, "matches": matches})
		return
	}
	locked, err := s.store.ListLockedPaths()
	if err != nil {
		log.Printf("Failed to load folder locks: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to load folder locks")
		return
	}

	needle := strings.ToLower(query)
	err = filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() && p != s.root {
				return fs.SkipDir
			}
			return nil
		}
		if p == s.root {
			return nil
		}
		rel := util.RelativeTo(s.root, p)
		if strings.Contains(strings.ToLower(d.Name()), needle) {
			matches = append(matches, rel)
		}
		if d.IsDir() && locked[rel] {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		log.Printf("Search walk failed: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	sort.Strings(matches)
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{"query": query, "matches": matches})
}

// handleListDirs lists every directory below the root, for picking a move
// destination.
func (s *Server) handleListDirs(w http.ResponseWriter, r *http.Request) {
	locked, err := s.store.ListLockedPaths()
	if err != nil {
		log.Printf("Failed to load folder locks: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to list directories")
		return
	}

	// A locked folder is offered as a target but its subtree stays hidden.
	dirs := []string{}
	err = filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && p != s.root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() || p == s.root {
			return nil
		}
		rel := util.RelativeTo(s.root, p)
		dirs = append(dirs, rel)
		if locked[rel] {
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		log.Printf("Directory walk failed: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to list directories")
		return
	}
	sort.Strings(dirs)
	RespondWithJSON(w, http.StatusOK, dirs)
}
