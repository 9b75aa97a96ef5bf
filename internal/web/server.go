// Package web serves the collection page, a JSON API over every use case,
// and a websocket feed of game events.
package web

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/critter/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Options configure NewServer. Hub is optional; without it /ws is not served.
type Options struct {
	Presenter *ops.Presenter
	Hub       *Hub
	Version   string
	Bind      string
	Port      int
	Logger    *log.Logger
}

// NewServer creates and configures the HTTP server for the critter web UI.
func NewServer(opts Options) *http.Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatalf("failed to create template sub-FS: %v", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatalf("failed to create static sub-FS: %v", err)
	}

	h := &Handlers{
		presenter: opts.Presenter,
		renderer:  NewRenderer(templateSub, opts.Version, logger),
	}

	mux := http.NewServeMux()
	routes(mux, h)
	if opts.Hub != nil {
		mux.HandleFunc("GET /ws", opts.Hub.ServeWS)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
		Handler:           securityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func routes(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /{$}", h.HandleCollection)

	mux.HandleFunc("GET /api/report", h.HandleReport)
	mux.HandleFunc("GET /api/status", h.HandleStatus)
	mux.HandleFunc("GET /api/creatures", h.HandleListCreatures)
	mux.HandleFunc("POST /api/creatures/{id}/seen", h.HandleMarkSeen)
	mux.HandleFunc("POST /api/creatures/{id}/photos", h.HandleCapturePhoto)
	mux.HandleFunc("POST /api/evolve", h.HandleEvolve)
	mux.HandleFunc("POST /api/breed", h.HandleBreed)
	mux.HandleFunc("GET /api/cooldowns", h.HandleCooldowns)
	mux.HandleFunc("POST /api/recycle", h.HandleRecycle)
	mux.HandleFunc("GET /api/eggs", h.HandleListEggs)
	mux.HandleFunc("POST /api/eggs/{ref}/hatch", h.HandleHatch)
	mux.HandleFunc("POST /api/eggs/{ref}/warm", h.HandleWarm)
	mux.HandleFunc("POST /api/capsules/open", h.HandleOpenCapsule)
	mux.HandleFunc("POST /api/shop/capsule", h.HandleBuyCapsule)
	mux.HandleFunc("POST /api/shop/rare", h.HandleBuyRare)
	mux.HandleFunc("POST /api/export", h.HandleExport)
	mux.HandleFunc("POST /api/import", h.HandleImport)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' https:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run serves srv until ctx is canceled, then shuts it down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Printf("critter UI running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
