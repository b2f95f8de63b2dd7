// Package interactive serves a rendered map over HTTP. The page loads layer
// geometry from the API and reports clicks back to it.
package interactive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/wbd-map/internal/assets"
	"github.com/mohammed-shakir/wbd-map/internal/backend"
	"github.com/mohammed-shakir/wbd-map/internal/core/health"
	"github.com/mohammed-shakir/wbd-map/internal/core/middleware"
	"github.com/mohammed-shakir/wbd-map/internal/core/observability"
	"github.com/mohammed-shakir/wbd-map/internal/core/server"
	"github.com/mohammed-shakir/wbd-map/internal/mapper"
	h3mapper "github.com/mohammed-shakir/wbd-map/internal/mapper/h3"
	"github.com/mohammed-shakir/wbd-map/internal/mapview"
)

func init() {
	backend.Register(backend.Interactive, New)
}

var ErrNotRendered = errors.New("interactive: no map rendered")

const minBodyCache = 16

type Server struct {
	addr    string
	logger  *slog.Logger
	assets  *assets.Installer
	metrics http.Handler
	mapper  mapper.Interface

	mu     sync.RWMutex
	layers []mapview.Layer
	doc    mapview.Document
	page   []byte
	bodies *lru.Cache[int, []byte]
}

var (
	_ backend.Server           = (*Server)(nil)
	_ health.ReadinessReporter = (*Server)(nil)
)

func New(d backend.Deps) (backend.Renderer, error) {
	if d.Assets == nil {
		return nil, errors.New("interactive: assets installer is required")
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	metrics := d.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	return &Server{
		addr:    d.Config.Addr,
		logger:  logger,
		assets:  d.Assets,
		metrics: metrics,
		mapper:  h3mapper.New(),
	}, nil
}

func (s *Server) Name() string { return backend.Interactive }

// Render snapshots m for serving. Later changes to m are not picked up.
func (s *Server) Render(ctx context.Context, m *mapview.Map) error {
	start := time.Now()
	defer func() { observability.ObserveRender(backend.Interactive, time.Since(start).Seconds()) }()

	doc := m.Document()
	page, err := backend.RenderPage(backend.Page{Doc: doc, AssetBase: "assets"})
	if err != nil {
		return fmt.Errorf("interactive: %w", err)
	}
	layers := m.Layers()
	bodies, err := lru.New[int, []byte](max(minBodyCache, len(layers)))
	if err != nil {
		return fmt.Errorf("interactive: body cache: %w", err)
	}

	s.mu.Lock()
	s.layers, s.doc, s.page, s.bodies = layers, doc, page, bodies
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "map ready to serve", "layers", len(layers), "addr", s.addr)
	return nil
}

func (s *Server) Readiness() (bool, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page != nil, len(s.layers)
}

// Serve listens on the configured address until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	return s.serve(ctx, nil)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	if ready, _ := s.Readiness(); !ready {
		return ErrNotRendered
	}
	return server.Run(ctx, server.Options{
		Addr:     s.addr,
		Handler:  s.Handler(),
		Logger:   s.logger,
		Listener: ln,
	})
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(s.logger))
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Metrics())

	r.Get("/", s.handlePage)
	r.Get("/assets/{name}", s.handleAsset)
	r.Route("/api", func(r chi.Router) {
		r.Get("/map", s.handleMap)
		r.Get("/layers/{index}", s.handleLayer)
		r.Get("/inspect", s.handleInspect)
	})
	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(s))
	r.Handle("/metrics", s.metrics)
	return r
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	page := s.page
	s.mu.RUnlock()
	if page == nil {
		respondError(w, http.StatusServiceUnavailable, ErrNotRendered.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

var assetTypes = map[string]string{
	assets.JS:  "text/javascript; charset=utf-8",
	assets.CSS: "text/css; charset=utf-8",
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ct, ok := assetTypes[name]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown asset")
		return
	}
	b, err := s.assets.Read(name)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "asset read failed", "file", name, "err", err)
		respondError(w, http.StatusInternalServerError, "asset unavailable")
		return
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(b)
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ready, doc := s.page != nil, s.doc
	s.mu.RUnlock()
	if !ready {
		respondError(w, http.StatusServiceUnavailable, ErrNotRendered.Error())
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleLayer(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid layer index")
		return
	}
	body, status, err := s.layerBody(idx)
	if err != nil {
		if status == http.StatusInternalServerError {
			s.logger.ErrorContext(r.Context(), "layer encode failed", "index", idx, "err", err)
		}
		respondError(w, status, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(body)
}

func (s *Server) layerBody(idx int) ([]byte, int, error) {
	s.mu.RLock()
	layers, bodies := s.layers, s.bodies
	s.mu.RUnlock()
	if bodies == nil {
		return nil, http.StatusServiceUnavailable, ErrNotRendered
	}
	if idx < 0 || idx >= len(layers) {
		return nil, http.StatusNotFound, fmt.Errorf("layer %d not found", idx)
	}
	if b, ok := bodies.Get(idx); ok {
		return b, http.StatusOK, nil
	}
	b, err := backend.LayerBody(layers[idx])
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	bodies.Add(idx, b)
	return b, http.StatusOK, nil
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
