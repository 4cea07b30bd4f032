// Package server assembles all HTTP handlers and runs the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/reviewsummary/internal/config"
	"github.com/matthewbaird/reviewsummary/internal/event"
	"github.com/matthewbaird/reviewsummary/internal/handler"
	"github.com/matthewbaird/reviewsummary/internal/labelstore"
	"github.com/matthewbaird/reviewsummary/internal/preview"
)

// Deps holds what the router needs beyond configuration.
type Deps struct {
	Store  labelstore.Store
	Events event.Publisher
	// Hub receives document events from the bus; nil disables the
	// preview endpoint.
	Hub *preview.Hub
}

// NewRouter registers every route and wraps them with middleware.
func NewRouter(cfg config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(handler.Middleware()...)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	rh := handler.NewRenderHandler(cfg.Render, cfg.Server.MaxBodyBytes)
	r.Post("/v1/render", rh.HandleRender)
	r.Post("/v1/lint", rh.HandleLint)

	dh := handler.NewLabelDocumentHandler(deps.Store, deps.Events, cfg.Render, cfg.Server.MaxBodyBytes)
	r.Route("/v1/label-documents", func(r chi.Router) {
		r.Post("/", dh.HandleCreate)
		r.Get("/", dh.HandleList)
		r.Get("/{id}", dh.HandleGet)
		r.Put("/{id}", dh.HandleUpdate)
		r.Delete("/{id}", dh.HandleDelete)
		r.Post("/{id}/render", dh.HandleRender)
		r.Get("/{id}/lint", dh.HandleLint)
	})

	if cfg.Preview.Enabled && deps.Hub != nil {
		ws := preview.NewHandler(deps.Hub, deps.Store, preview.Config{
			Defaults:        cfg.Render,
			OriginPatterns:  cfg.Preview.OriginPatterns,
			MaxMessageBytes: cfg.Server.MaxBodyBytes,
		})
		r.Get("/v1/preview/ws", ws.ServeHTTP)
	}

	return r
}

// Run serves h until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, h http.Handler) error {
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("starting server on %s (max document %s, preview %t)",
			addr, humanize.IBytes(uint64(cfg.Store.MaxDocumentBytes)), cfg.Preview.Enabled)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
