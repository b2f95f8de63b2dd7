// Package static renders a map into a single HTML file with Leaflet and all
// layer geometry inlined. The page works offline and captures no input.
package static

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mohammed-shakir/wbd-map/internal/assets"
	"github.com/mohammed-shakir/wbd-map/internal/backend"
	"github.com/mohammed-shakir/wbd-map/internal/core/observability"
	"github.com/mohammed-shakir/wbd-map/internal/mapview"
)

func init() {
	backend.Register(backend.Static, New)
}

type Renderer struct {
	out    string
	assets *assets.Installer
	logger *slog.Logger
}

var _ backend.Renderer = (*Renderer)(nil)

func New(d backend.Deps) (backend.Renderer, error) {
	if d.Assets == nil {
		return nil, errors.New("static: assets installer is required")
	}
	out := d.Config.OutputPath
	if out == "" {
		out = "wbd_map.html"
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Renderer{out: out, assets: d.Assets, logger: logger}, nil
}

func (r *Renderer) Name() string { return backend.Static }

func (r *Renderer) Output() string { return r.out }

func (r *Renderer) Render(ctx context.Context, m *mapview.Map) error {
	start := time.Now()
	defer func() { observability.ObserveRender(backend.Static, time.Since(start).Seconds()) }()

	js, err := r.assets.Read(assets.JS)
	if err != nil {
		return fmt.Errorf("static: %w", err)
	}
	css, err := r.assets.Read(assets.CSS)
	if err != nil {
		return fmt.Errorf("static: %w", err)
	}

	layers := m.Layers()
	bodies := make([]json.RawMessage, 0, len(layers))
	for _, l := range layers {
		b, err := backend.LayerBody(l)
		if err != nil {
			return fmt.Errorf("static: %w", err)
		}
		bodies = append(bodies, b)
	}

	page, err := backend.RenderPage(backend.Page{
		Doc:        m.Document(),
		Inline:     true,
		LeafletJS:  string(js),
		LeafletCSS: string(css),
		Layers:     bodies,
	})
	if err != nil {
		return fmt.Errorf("static: %w", err)
	}
	if err := writeFile(r.out, page); err != nil {
		return fmt.Errorf("static: %w", err)
	}
	r.logger.InfoContext(ctx, "map written",
		"path", r.out,
		"layers", len(layers),
		"bytes", len(page))
	return nil
}

func writeFile(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
