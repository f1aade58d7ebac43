package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/vrsandeep/filebox/internal/auth"
	"github.com/vrsandeep/filebox/internal/store"
	"github.com/vrsandeep/filebox/internal/util"
)

type lockRequest struct {
	FolderPath string `json:"folder_path" validate:"required"`
	Password   string `json:"password" validate:"required,min=4,max=72"`
}

type unlockRequest struct {
	FolderPath string `json:"folder_path" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := decodeAndValidate(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	full, info, ok := s.resolveExisting(w, req.FolderPath)
	if !ok {
		return
	}
	if !info.IsDir() {
		RespondWithError(w, http.StatusBadRequest, "Only folders can be locked")
		return
	}
	rel := util.RelativeTo(s.root, full)

	if folder, err := s.store.GetFolderByPath(rel); err == nil && folder.Locked() {
		RespondWithError(w, http.StatusConflict, "Folder is already locked")
		return
	}

	hash, ok := hashPassword(w, req.Password)
	if !ok {
		return
	}
	if err := s.store.SetFolderPassword(rel, hash); err != nil {
		log.Printf("Failed to lock folder %s: %v", rel, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to lock folder")
		return
	}
	RespondWithMessage(w, http.StatusOK, "Folder locked successfully")
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := decodeAndValidate(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	full, ok := s.resolve(w, req.FolderPath)
	if !ok {
		return
	}
	rel := util.RelativeTo(s.root, full)

	folder, err := s.store.GetFolderByPath(rel)
	if errors.Is(err, store.ErrFolderNotFound) || (err == nil && !folder.Locked()) {
		RespondWithError(w, http.StatusNotFound, "Folder is not locked")
		return
	}
	if err != nil {
		log.Printf("Failed to load folder %s: %v", rel, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to load folder")
		return
	}
	if !auth.CheckPasswordHash(req.Password, *folder.PasswordHash) {
		RespondWithError(w, http.StatusForbidden, "Incorrect password")
		return
	}
	if err := s.store.SetFolderPassword(rel, ""); err != nil {
		log.Printf("Failed to unlock folder %s: %v", rel, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to unlock folder")
		return
	}
	RespondWithMessage(w, http.StatusOK, "Folder unlocked successfully")
}

func hashPassword(w http.ResponseWriter, password string) (string, bool) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	if err != nil {
		log.Printf("Failed to hash folder password: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return "", false
	}
	return hash, true
}
