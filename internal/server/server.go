// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/matthewbaird/parentref/internal/handler"
	"github.com/matthewbaird/parentref/internal/mcptools"
	"github.com/matthewbaird/parentref/internal/widget"
	"github.com/matthewbaird/parentref/internal/wire"
)

// Config holds server configuration.
type Config struct {
	Port            int
	Services        *Services
	AllowedOrigins  []string      // websocket origin patterns, nil for any
	CleanupInterval time.Duration // expired form builds sweep, default 1m
}

// Router registers every route on a chi router wrapped in the logging and
// recovery middleware.
func Router(svc *Services, origins []string) http.Handler {
	r := chi.NewRouter()

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// --- Lookup ---
	ah := handler.NewAutocompleteHandler(svc.Autocomplete)
	r.Get(widget.RoutePrefix+"/{target_type}/{handler}/{token}", ah.HandleAutocomplete)
	r.Get(widget.RoutePrefix+"/{target_type}/{handler}/{token}/{parent}", ah.HandleAutocomplete)
	r.Get("/v1/lookup/ws", wire.NewHandler(svc.Autocomplete, svc.Builder, origins).ServeHTTP)

	// --- Forms ---
	fh := handler.NewFormHandler(svc.Definitions, svc.Builder, svc.Submitter)
	r.Get("/v1/forms", fh.ListForms)
	r.Post("/v1/forms/{form_id}/builds", fh.BuildForm)
	r.Post("/v1/builds/{build_id}/refresh", fh.RefreshBuild)
	r.Post("/v1/builds/{build_id}/submit", fh.SubmitBuild)

	// --- Events ---
	eh := handler.NewEventHandler(svc.Events)
	r.Get("/v1/events", eh.ListEvents)

	// --- MCP (streamable HTTP) ---
	mcp := mcptools.New(svc.Autocomplete, svc.Builder, svc.Submitter)
	r.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcp))

	return handler.Recovery(handler.Logging(r))
}

// Run starts the event bus, the form build sweeper and the HTTP server. It
// returns once ctx is cancelled and the server has shut down.
func Run(ctx context.Context, cfg Config) error {
	svc := cfg.Services
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	svc.Bus.Start(ctx)
	go sweepForms(ctx, svc, cfg.CleanupInterval)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting server on %s (%d forms configured)", addr, len(svc.Definitions.Forms))

	server := &http.Server{
		Addr:    addr,
		Handler: Router(svc, cfg.AllowedOrigins),
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	err := server.ListenAndServe()
	svc.Bus.Stop()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func sweepForms(ctx context.Context, svc *Services, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			svc.Forms.Cleanup()
		}
	}
}
