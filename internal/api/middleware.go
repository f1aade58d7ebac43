package api

// This file contains the middleware guarding password protected folders.

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/vrsandeep/filebox/internal/auth"
	"github.com/vrsandeep/filebox/internal/store"
	"github.com/vrsandeep/filebox/internal/util"
)

// FolderPasswordHeader carries the password of a locked folder.
const FolderPasswordHeader = "X-Folder-Password"

// requestPath returns the client relative path a request targets: the
// route wildcard for /files/*, otherwise the "path" query parameter.
func requestPath(r *http.Request) string {
	if p := chi.URLParam(r, "*"); p != "" {
		// chi matches on the escaped path when there is one.
		if unescaped, err := url.PathUnescape(p); err == nil {
			return unescaped
		}
		return p
	}
	return r.URL.Query().Get("path")
}

// FolderLockMiddleware rejects requests for anything inside a locked
// folder unless the folder's password is sent in X-Folder-Password.
func (s *Server) FolderLockMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		full, err := util.ResolveWithinRoot(s.root, requestPath(r))
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "Unsafe path detected")
			return
		}
		if !s.checkFolderLock(w, r, full) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkFolderLock enforces the lock on full, or on its nearest locked
// ancestor, against the X-Folder-Password header. On refusal it writes
// 423 (no password) or 403 (wrong password) and returns false.
func (s *Server) checkFolderLock(w http.ResponseWriter, r *http.Request, full string) bool {
	folder, err := s.store.FindLock(util.RelativeTo(s.root, full))
	if errors.Is(err, store.ErrFolderNotFound) {
		return true
	}
	if err != nil {
		log.Printf("Failed to look up folder lock: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to check folder lock")
		return false
	}

	password := r.Header.Get(FolderPasswordHeader)
	if password == "" {
		RespondWithError(w, http.StatusLocked, "Folder is locked")
		return false
	}
	if !auth.CheckPasswordHash(password, *folder.PasswordHash) {
		RespondWithError(w, http.StatusForbidden, "Incorrect password")
		return false
	}
	if auth.NeedsRehash(*folder.PasswordHash) {
		s.rehashFolderPassword(folder.Path, password)
	}
	return true
}

// rehashFolderPassword stores a hash made with the current work factor.
// Failure is logged only; the old hash keeps working.
func (s *Server) rehashFolderPassword(folderPath, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.store.SetFolderPassword(folderPath, hash)
	}
	if err != nil {
		log.Printf("Failed to upgrade password hash for %s: %v", folderPath, err)
	}
}
