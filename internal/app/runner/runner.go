// Package runner executes the map build from start to finish: install the
// mapping library, open the session, fetch and style every planned layer,
// then hand the map to the backend.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohammed-shakir/wbd-map/internal/backend"
	"github.com/mohammed-shakir/wbd-map/internal/catalog"
	"github.com/mohammed-shakir/wbd-map/internal/core/observability"
	"github.com/mohammed-shakir/wbd-map/internal/logger"
	"github.com/mohammed-shakir/wbd-map/internal/mapevents"
	"github.com/mohammed-shakir/wbd-map/internal/mapview"
	"github.com/mohammed-shakir/wbd-map/internal/plan"
	"github.com/mohammed-shakir/wbd-map/internal/style"
)

var ErrAlreadyRan = errors.New("runner: map already built")

type Installer interface {
	Ensure(ctx context.Context) error
}

type Initializer interface {
	Init(ctx context.Context) (*http.Client, error)
}

// CatalogFunc binds the feature service client to the authorised HTTP client
// handed out by the session.
type CatalogFunc func(hc *http.Client) (catalog.Fetcher, error)

type Options struct {
	Plan     plan.Plan
	Assets   Installer
	Session  Initializer
	Catalog  CatalogFunc
	Renderer backend.Renderer
	Events   mapevents.Sink
	Logger   *slog.Logger
	RunID    string
}

type Runner struct {
	o   Options
	ran bool
}

func New(o Options) (*Runner, error) {
	switch {
	case o.Assets == nil:
		return nil, errors.New("runner: assets installer is required")
	case o.Session == nil:
		return nil, errors.New("runner: session is required")
	case o.Catalog == nil:
		return nil, errors.New("runner: catalog is required")
	case o.Renderer == nil:
		return nil, errors.New("runner: renderer is required")
	}
	if err := o.Plan.Validate(); err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	if o.Events == nil {
		o.Events = mapevents.Nop{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.RunID == "" {
		o.RunID = logger.NewID()
	}
	return &Runner{o: o}, nil
}

func (r *Runner) RunID() string { return r.o.RunID }

// Run builds and renders the map. Any error aborts the run; there is no
// partial result. A Runner builds one map only.
func (r *Runner) Run(ctx context.Context) (*mapview.Map, error) {
	if r.ran {
		return nil, ErrAlreadyRan
	}
	r.ran = true

	ctx = logger.WithRunID(ctx, r.o.RunID)
	ctx = logger.WithComponent(ctx, "runner")
	log := r.o.Logger
	start := time.Now()

	if err := r.o.Assets.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("ensure mapping library: %w", err)
	}
	log.InfoContext(ctx, "backend selected", "backend", r.o.Renderer.Name())

	hc, err := r.o.Session.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise session: %w", err)
	}
	fetcher, err := r.o.Catalog(hc)
	if err != nil {
		return nil, fmt.Errorf("feature service client: %w", err)
	}

	p := r.o.Plan
	m, err := mapview.New(p.Center, p.Zoom)
	if err != nil {
		return nil, err
	}
	if err := m.AddBasemap(p.Basemap); err != nil {
		return nil, err
	}

	for i, e := range p.Layers {
		if err := AddStyledLayer(ctx, m, fetcher, e); err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, e.Label, err)
		}
		last := m.Layers()[len(m.Layers())-1]
		r.o.Events.Publish(mapevents.Event{
			Kind:     mapevents.KindLayerAdded,
			RunID:    r.o.RunID,
			Dataset:  e.Dataset.String(),
			Label:    last.Label,
			Index:    i,
			Features: len(last.Styled.Collection.Features),
			Lat:      m.Center().Lat,
			Lon:      m.Center().Lon,
			Zoom:     m.Zoom(),
		})
	}

	m.AddLayerControl()
	if err := r.o.Renderer.Render(ctx, m); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	r.o.Events.Publish(mapevents.Event{
		Kind:    mapevents.KindMapRendered,
		RunID:   r.o.RunID,
		Index:   len(m.Layers()),
		Lat:     m.Center().Lat,
		Lon:     m.Center().Lon,
		Zoom:    m.Zoom(),
		Backend: r.o.Renderer.Name(),
	})
	log.InfoContext(ctx, "map built",
		"layers", len(m.Layers()),
		"backend", r.o.Renderer.Name(),
		"took", time.Since(start))
	return m, nil
}

// AddStyledLayer fetches e.Dataset, styles it, moves the viewport to the
// entry's center and appends the result under e.Label. Fetch errors are
// returned unchanged in kind so callers can match catalog.ErrDatasetNotFound
// and catalog.ErrServiceUnavailable.
func AddStyledLayer(ctx context.Context, m *mapview.Map, f catalog.Fetcher, e plan.Entry) error {
	ctx = logger.WithDataset(ctx, e.Dataset.String())
	ctx = logger.WithLayer(ctx, e.Label)

	fc, err := f.FetchCollection(ctx, e.Dataset)
	if err != nil {
		return err
	}
	styled, err := style.Apply(fc, e.Style)
	if err != nil {
		return err
	}
	if err := m.SetCenter(e.Center.Lon, e.Center.Lat, e.Zoom); err != nil {
		return err
	}
	if err := m.AddLayer(mapview.Layer{Label: e.Label, Dataset: e.Dataset, Styled: styled}); err != nil {
		return err
	}
	observability.IncLayerAdded(e.Dataset.String())
	return nil
}
