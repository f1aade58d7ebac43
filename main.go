package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vrsandeep/filebox/internal/api"
	"github.com/vrsandeep/filebox/internal/core"
	"github.com/vrsandeep/filebox/internal/jobs"
	"github.com/vrsandeep/filebox/internal/watcher"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize the core application components
	app, err := core.New()
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	cfg := app.Config()
	log.Printf("Serving files from %s", cfg.Upload.Path)

	scheduler := jobs.StartJobs(app)
	defer scheduler.Stop()

	if cfg.Watcher.Enabled {
		debounce := time.Duration(cfg.Watcher.DebounceMs) * time.Millisecond
		w := watcher.NewWatcherService(cfg.Upload.Path, debounce, app.WsHub())
		if err := w.Start(); err != nil {
			log.Printf("Warning: file watcher disabled: %v", err)
		} else {
			defer w.Stop()
		}
	}

	// Setup the API server
	server := api.NewServer(app)
	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}
	// --- Graceful Shutdown ---
	go func() {
		log.Printf("Starting web server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Running extractions are not interrupted; app.Close waits for them.
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
