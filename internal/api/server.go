// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vrsandeep/filebox/internal/core"
	"github.com/vrsandeep/filebox/internal/jobs"
	"github.com/vrsandeep/filebox/internal/store"
)

// ExtractionStarter hands an uploaded archive to the background runner.
type ExtractionStarter interface {
	StartExtraction(archivePath, destDir, subscriberID string) (*jobs.ExtractionJob, error)
}

// Server holds the dependencies for our API.
type Server struct {
	app         *core.App
	store       *store.Store
	root        string
	extractions ExtractionStarter
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// SetExtractionStarter replaces the extraction runner for testing purposes.
func (s *Server) SetExtractionStarter(starter ExtractionStarter) {
	s.extractions = starter
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app:         app,
		store:       store.New(app.DB()),
		root:        app.Config().Upload.Path,
		extractions: app.JobManager(),
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics

	r.Route("/api", func(r chi.Router) {
		// Uploads can take longer than the API timeout.
		r.With(s.FolderLockMiddleware).Post("/upload", s.handleUpload)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/health", s.handleHealth)

			// Reads guarded by folder locks
			r.Group(func(r chi.Router) {
				r.Use(s.FolderLockMiddleware)

				r.Get("/browse", s.handleBrowse)
				r.Get("/files/*", s.handleServeFile)
				r.Get("/thumb", s.handleThumbnail)
			})

			r.Get("/search", s.handleSearch)
			r.Get("/dirs", s.handleListDirs)

			r.Post("/folders", s.handleCreateFolder)
			r.Post("/rename", s.handleRename)
			r.Post("/move", s.handleMove)
			r.Post("/delete", s.handleDelete)

			r.Post("/lock", s.handleLock)
			r.Post("/unlock", s.handleUnlock)

			r.Get("/jobs", s.handleListJobs)
		})
	})

	// WebSocket route
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
