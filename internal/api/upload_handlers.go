package api

import (
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vrsandeep/filebox/internal/util"
)

type uploadResponse struct {
	Message string `json:"message"`
	Path    string `json:"path"`
	JobID   string `json:"job_id,omitempty"`
}

// handleUpload stores one multipart file in the "path" folder. A zip
// archive is then extracted in the background into a folder named after
// it; extraction progress and failures go to the websocket subscriber
// named by the "sid" form field, never into this response.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	dir, ok := s.resolve(w, r.URL.Query().Get("path"))
	if !ok {
		return
	}
	if !isDir(dir) {
		RespondWithError(w, http.StatusNotFound, "Upload folder not found")
		return
	}

	if err := r.ParseMultipartForm(s.app.Config().Upload.MaxMemoryMB << 20); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	filename := util.SanitizeFileName(filepath.Base(strings.ReplaceAll(header.Filename, "\\", "/")))
	if filename == "" {
		RespondWithError(w, http.StatusBadRequest, "No selected file")
		return
	}
	filePath := filepath.Join(dir, filename)
	if !util.IsSafe(s.root, filePath) {
		RespondWithError(w, http.StatusBadRequest, "Unsafe path detected")
		return
	}

	if err := saveUpload(file, filePath); err != nil {
		log.Printf("Failed to save upload %s: %v", filePath, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}
	rel := util.RelativeTo(s.root, filePath)

	ext := filepath.Ext(filename)
	if !strings.EqualFold(ext, ".zip") {
		RespondWithJSON(w, http.StatusCreated, uploadResponse{Message: "File uploaded successfully", Path: rel})
		return
	}

	// Extract next to the archive, into a folder with the archive's name.
	extractTo := filepath.Join(dir, strings.TrimSuffix(filename, ext))
	if err := os.MkdirAll(extractTo, 0755); err != nil {
		log.Printf("Failed to create extraction folder %s: %v", extractTo, err)
		RespondWithError(w, http.StatusInternalServerError, "An error occurred while starting the extraction")
		return
	}
	job, err := s.extractions.StartExtraction(filePath, extractTo, r.FormValue("sid"))
	if err != nil {
		log.Printf("Failed to start extraction of %s: %v", filePath, err)
		RespondWithError(w, http.StatusInternalServerError, "An error occurred while starting the extraction")
		return
	}
	RespondWithJSON(w, http.StatusAccepted, uploadResponse{
		Message: "Zip file uploaded and extraction started",
		Path:    util.RelativeTo(s.root, extractTo),
		JobID:   job.ID,
	})
}

func saveUpload(src io.Reader, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.JobManager().GetStatus())
}
