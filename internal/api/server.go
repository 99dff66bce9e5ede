// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"io"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ngocvu/shopdash/internal/assets"
	"github.com/ngocvu/shopdash/internal/core"
)

// Server holds the dependencies for our API.
type Server struct {
	app *core.App
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{app: app}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics

	// The SSE relay and the push call are long-lived; everything else gets
	// the standard timeout.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/api/version", s.handleGetVersion)
		r.Get("/api/health", s.handleHealth)

		// Backend passthrough
		r.Get("/api/content", s.handleGetContent)
		r.Get("/api/price-sync/logs", s.handleGetPriceSyncLogs)

		// Workflow routes
		r.Route("/api/workflow", func(r chi.Router) {
			r.Get("/", s.handleGetWorkflowState)
			r.Post("/select", s.handleSelectFile)
			r.Post("/upload", s.handleUpload)
			r.Get("/preview", s.handleGetPreview)
			r.Post("/reset", s.handleReset)
		})

		// Webhook proxy routes
		r.Post("/api/webhook/forward", s.handleWebhookForward)
		r.Post("/api/webhook/upload", s.handleWebhookUpload)

		// Job Triggers
		r.Get("/api/jobs/status", s.handleGetJobsStatus)
		r.Post("/api/jobs/run", s.handleRunJob)
	})

	// The push can run for minutes on large files.
	r.Post("/api/workflow/push", s.handlePush)

	// Live log feeds
	r.Get("/api/logs/stream", s.handleLogStream)
	r.Get("/ws/logs", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	// Frontend Routes
	webFS, err := fs.Sub(assets.WebFS, "web")
	if err != nil {
		log.Fatalf("Failed to create web sub-filesystem: %v", err)
	}

	// This handler serves a specific HTML file from the embedded FS.
	serveHTML := func(fileName string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			file, err := webFS.Open(fileName)
			if err != nil {
				http.NotFound(w, r)
				log.Printf("Error serving embedded file %s: %v", fileName, err)
				return
			}
			http.ServeContent(w, r, fileName, time.Time{}, file.(io.ReadSeeker))
		}
	}

	r.Get("/", serveHTML("dashboard.html"))
	r.Get("/price-sync", serveHTML("price_sync.html"))

	return r
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version()})
}

// handleHealth reports this process's health plus whether the backend base
// URL is configured at all; it does not probe the backend.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"backend_configured": s.app.Config().Backend.BaseURL != "",
		"stream_status":      s.app.LogRelay().Status(),
	})
}
