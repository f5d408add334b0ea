package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/teamtalk/talktome/internal/config"
	"github.com/teamtalk/talktome/internal/logger"
	"github.com/teamtalk/talktome/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the TalkToMe UI and JSON API.
func NewServer(db *sql.DB, gw ops.Gateway, cfg *config.Config, log zerolog.Logger, version string) (*http.Server, error) {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	h := &Handlers{
		db:       db,
		gw:       gw,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, version),
		version:  version,
	}

	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Router(log, staticSub),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// Router wires middleware and routes.
func (h *Handlers) Router(log zerolog.Logger, static fs.FS) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	if len(h.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "HX-Request"},
			ExposedHeaders: []string{"Content-Disposition", "X-Voice"},
			MaxAge:         300,
		}))
	}

	// Pages
	r.Get("/", h.HandleHome)
	r.Post("/folders", h.HandleCreateFolderForm)
	r.Post("/meetings", h.HandleCreateMeetingForm)
	r.Get("/meetings/{id}", h.HandleDetail)
	r.Post("/folders/{id}/rename", h.HandleRenameFolderForm)
	r.Post("/folders/{id}/delete", h.HandleDeleteFolderForm)
	r.Post("/meetings/{id}/edit", h.HandleEditMeetingForm)
	r.Post("/meetings/{id}/delete", h.HandleDeleteMeetingForm)

	r.Route("/api", func(api chi.Router) {
		api.Route("/folders", func(fr chi.Router) {
			fr.Get("/", h.ListFolders)
			fr.Post("/", h.CreateFolder)
			fr.Patch("/{id}", h.RenameFolder)
			fr.Delete("/{id}", h.DeleteFolder)
		})
		api.Route("/meetings", func(mr chi.Router) {
			mr.Get("/", h.ListMeetings)
			mr.Post("/", h.CreateMeeting)
			mr.Get("/{id}", h.GetMeeting)
			mr.Patch("/{id}", h.UpdateMeeting)
			mr.Delete("/{id}", h.DeleteMeeting)
			mr.Get("/{id}/transcript", h.TranscriptHistory)
			mr.Patch("/{id}/transcript", h.UpdateTranscript)
			mr.Post("/{id}/clear", h.ClearMeeting)
			mr.Get("/{id}/ics", h.ExportCalendar)
		})
		api.Post("/summarize", h.Summarize)
		api.Post("/translate", h.Translate)
		api.Post("/transcribe", h.Transcribe)
		api.Post("/tts", h.Speak)
	})

	r.Get("/healthz", h.Health)

	// Static file server
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	return r
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; media-src 'self' blob:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// accessLog stores a request-scoped logger in the context and writes one line per request.
func accessLog(base zerolog.Logger) func(http.Handler) http.Handler {
	base = logger.Component(base, "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base.With().Str(logger.FieldRequestID, middleware.GetReqID(r.Context())).Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), l)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM
// or when ctx is cancelled.
func Run(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Str("addr", srv.Addr).Msgf("TalkToMe running at http://%s", srv.Addr)

	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
