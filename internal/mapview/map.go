// Package mapview holds the state of one map: viewport, basemaps and the
// ordered overlay layers.
//
// A Map is built by a single goroutine and only read once rendering starts,
// so it carries no locking.
package mapview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/wbd-map/internal/core/model"
	"github.com/mohammed-shakir/wbd-map/internal/style"
)

var ErrDuplicateLabel = errors.New("layer label already in use")

type Layer struct {
	Label   string
	Dataset model.DatasetID
	Styled  style.Styled
}

type Map struct {
	viewport model.Viewport
	basemaps []Basemap
	layers   []Layer
	labels   map[string]struct{}
	control  bool
}

func New(center model.LatLng, zoom int) (*Map, error) {
	vp := model.Viewport{Center: center, Zoom: zoom}
	if err := vp.Validate(); err != nil {
		return nil, fmt.Errorf("mapview: %w", err)
	}
	return &Map{viewport: vp, labels: map[string]struct{}{}}, nil
}

func (m *Map) AddBasemap(key string) error {
	b, err := LookupBasemap(key)
	if err != nil {
		return err
	}
	m.basemaps = append(m.basemaps, b)
	return nil
}

// SetCenter takes longitude first.
func (m *Map) SetCenter(lon, lat float64, zoom int) error {
	vp := model.Viewport{Center: model.LatLng{Lat: lat, Lon: lon}, Zoom: zoom}
	if err := vp.Validate(); err != nil {
		return fmt.Errorf("mapview: set center: %w", err)
	}
	m.viewport = vp
	return nil
}

// AddLayer appends l on top of the existing overlays.
func (m *Map) AddLayer(l Layer) error {
	label := strings.TrimSpace(l.Label)
	if label == "" {
		return errors.New("mapview: layer label is empty")
	}
	if l.Styled.Collection == nil {
		return fmt.Errorf("mapview: layer %q has no features", label)
	}
	if _, dup := m.labels[label]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
	}
	l.Label = label
	m.labels[label] = struct{}{}
	m.layers = append(m.layers, l)
	return nil
}

func (m *Map) AddLayerControl() { m.control = true }

func (m *Map) HasLayerControl() bool { return m.control }

func (m *Map) Center() model.LatLng { return m.viewport.Center }

func (m *Map) Zoom() int { return m.viewport.Zoom }

func (m *Map) Viewport() model.Viewport { return m.viewport }

func (m *Map) Basemaps() []Basemap {
	return append([]Basemap(nil), m.basemaps...)
}

// Layers returns the overlays bottom to top.
func (m *Map) Layers() []Layer {
	return append([]Layer(nil), m.layers...)
}

// Bounds is the union extent of every layer's geometry. ok is false when no
// layer has geometry.
func (m *Map) Bounds() (b orb.Bound, ok bool) {
	for _, l := range m.layers {
		for _, f := range l.Styled.Collection.Features {
			if f == nil || f.Geometry == nil {
				continue
			}
			fb := f.Geometry.Bound()
			if !ok {
				b, ok = fb, true
				continue
			}
			b = b.Union(fb)
		}
	}
	return b, ok
}
