package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	cp "github.com/otiai10/copy"

	"github.com/vrsandeep/filebox/internal/store"
	"github.com/vrsandeep/filebox/internal/util"
)

type createFolderRequest struct {
	Path     string `json:"path"`
	Name     string `json:"name" validate:"required,max=255"`
	Password string `json:"password" validate:"omitempty,min=4,max=72"`
}

type renameRequest struct {
	Path    string `json:"path" validate:"required"`
	NewName string `json:"new_name" validate:"required,max=255"`
}

type moveRequest struct {
	Path        string `json:"path" validate:"required"`
	Destination string `json:"destination"`
}

type deleteRequest struct {
	Path string `json:"path" validate:"required"`
}

type pathResponse struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

// renameFunc is os.Rename; tests swap it to simulate crossing devices.
var renameFunc = os.Rename

// movePath renames src to dst, falling back to copy and remove when they
// live on different file systems.
func movePath(src, dst string) error {
	err := renameFunc(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}

	opts := cp.Options{
		OnSymlink:     func(string) cp.SymlinkAction { return cp.Shallow },
		PreserveTimes: true,
	}
	if err := cp.Copy(src, dst, opts); err != nil {
		os.RemoveAll(dst)
		return fmt.Errorf("copy across devices failed: %w", err)
	}
	return os.RemoveAll(src)
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// resolveExisting resolves a client path that must exist and must not be
// the root itself.
func (s *Server) resolveExisting(w http.ResponseWriter, rel string) (string, os.FileInfo, bool) {
	full, ok := s.resolve(w, rel)
	if !ok {
		return "", nil, false
	}
	if util.RelativeTo(s.root, full) == "" {
		RespondWithError(w, http.StatusBadRequest, "The root folder cannot be changed")
		return "", nil, false
	}
	info, err := os.Lstat(full)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Path not found")
		return "", nil, false
	}
	return full, info, true
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	parent, ok := s.resolve(w, req.Path)
	if !ok {
		return
	}
	if !isDir(parent) {
		RespondWithError(w, http.StatusNotFound, "Parent folder not found")
		return
	}
	if !s.checkFolderLock(w, r, parent) {
		return
	}

	name := util.SanitizeFileName(req.Name)
	if name == "" {
		RespondWithError(w, http.StatusBadRequest, "Invalid folder name")
		return
	}
	full := filepath.Join(parent, name)
	if !util.IsSafe(s.root, full) {
		RespondWithError(w, http.StatusBadRequest, "Unsafe path detected")
		return
	}
	var hash string
	if req.Password != "" {
		if hash, ok = hashPassword(w, req.Password); !ok {
			return
		}
	}

	if err := os.MkdirAll(full, 0755); err != nil {
		log.Printf("Failed to create folder %s: %v", full, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to create folder")
		return
	}

	rel := util.RelativeTo(s.root, full)
	folder, err := s.store.CreateFolder(rel, name, hash)
	if errors.Is(err, store.ErrFolderExists) {
		if hash != "" {
			err = s.store.SetFolderPassword(rel, hash)
		}
		if err == nil || errors.Is(err, store.ErrFolderExists) {
			folder, err = s.store.GetFolderByPath(rel)
		}
	}
	if err != nil {
		log.Printf("Failed to record folder %s: %v", rel, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to save folder")
		return
	}
	RespondWithJSON(w, http.StatusCreated, folder)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeAndValidate(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	oldPath, _, ok := s.resolveExisting(w, req.Path)
	if !ok || !s.checkFolderLock(w, r, oldPath) {
		return
	}
	name := util.SanitizeFileName(req.NewName)
	if name == "" {
		RespondWithError(w, http.StatusBadRequest, "Invalid name")
		return
	}
	newPath := filepath.Join(filepath.Dir(oldPath), name)
	if !util.IsSafe(s.root, newPath) {
		RespondWithError(w, http.StatusBadRequest, "Unsafe new path detected")
		return
	}
	if newPath == oldPath {
		RespondWithJSON(w, http.StatusOK, pathResponse{Message: "Renamed successfully", Path: util.RelativeTo(s.root, newPath)})
		return
	}
	if _, err := os.Lstat(newPath); err == nil {
		RespondWithError(w, http.StatusConflict, "A file or folder with that name already exists")
		return
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		log.Printf("Failed to rename %s: %v", oldPath, err)
		RespondWithError(w, http.StatusInternalServerError, "Error renaming file")
		return
	}
	s.followFolderRecords(oldPath, newPath)
	RespondWithJSON(w, http.StatusOK, pathResponse{Message: "Renamed successfully", Path: util.RelativeTo(s.root, newPath)})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeAndValidate(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	src, _, ok := s.resolveExisting(w, req.Path)
	if !ok {
		return
	}
	destDir, ok := s.resolve(w, req.Destination)
	if !ok {
		return
	}
	if !isDir(destDir) {
		RespondWithError(w, http.StatusBadRequest, "Destination does not exist or is not a directory")
		return
	}
	// Both ends are guarded so nothing leaves or enters a locked folder
	// without its password.
	if !s.checkFolderLock(w, r, src) || !s.checkFolderLock(w, r, destDir) {
		return
	}

	target := filepath.Join(destDir, filepath.Base(src))
	if target == src {
		RespondWithJSON(w, http.StatusOK, pathResponse{Message: "Moved successfully", Path: util.RelativeTo(s.root, target)})
		return
	}
	if destDir == src || strings.HasPrefix(destDir, src+string(filepath.Separator)) {
		RespondWithError(w, http.StatusBadRequest, "Cannot move a folder into itself")
		return
	}
	if _, err := os.Lstat(target); err == nil {
		RespondWithError(w, http.StatusConflict, "Destination already contains an item with that name")
		return
	}

	if err := movePath(src, target); err != nil {
		log.Printf("Failed to move %s to %s: %v", src, target, err)
		RespondWithError(w, http.StatusInternalServerError, "Error moving file")
		return
	}
	s.followFolderRecords(src, target)
	RespondWithJSON(w, http.StatusOK, pathResponse{Message: "Moved successfully", Path: util.RelativeTo(s.root, target)})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeAndValidate(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	full, info, ok := s.resolveExisting(w, req.Path)
	if !ok || !s.checkFolderLock(w, r, full) {
		return
	}

	var err error
	if info.IsDir() {
		err = os.RemoveAll(full)
	} else {
		err = os.Remove(full)
	}
	if err != nil {
		log.Printf("Failed to delete %s: %v", full, err)
		RespondWithError(w, http.StatusInternalServerError, "Error deleting file")
		return
	}

	if info.IsDir() {
		if err := s.store.DeleteFolderTree(util.RelativeTo(s.root, full)); err != nil {
			log.Printf("Failed to drop folder records below %s: %v", full, err)
		}
	}
	RespondWithMessage(w, http.StatusOK, "Deleted successfully")
}

// followFolderRecords keeps lock records attached to a folder that was
// renamed or moved. The file system change already happened, so failures
// are only logged.
func (s *Server) followFolderRecords(oldPath, newPath string) {
	if err := s.store.MoveFolderPaths(util.RelativeTo(s.root, oldPath), util.RelativeTo(s.root, newPath)); err != nil {
		log.Printf("Failed to update folder records for %s: %v", oldPath, err)
	}
}
