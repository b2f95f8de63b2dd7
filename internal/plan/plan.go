// Package plan describes which watershed layers go on the map, in order,
// and how each one is styled.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/wbd-map/internal/core/model"
	"github.com/mohammed-shakir/wbd-map/internal/mapview"
	"github.com/mohammed-shakir/wbd-map/internal/style"
)

var ErrInvalidPlan = errors.New("invalid plan")

type Entry struct {
	Dataset model.DatasetID `yaml:"dataset"`
	Style   style.Style     `yaml:"style"`
	Center  model.LatLng    `yaml:"center"`
	Zoom    int             `yaml:"zoom"`
	Label   string          `yaml:"label"`
}

type Plan struct {
	Center  model.LatLng `yaml:"center"`
	Zoom    int          `yaml:"zoom"`
	Basemap string       `yaml:"basemap"`
	Layers  []Entry      `yaml:"layers"`
}

var conus = model.LatLng{Lat: 40.43, Lon: -96.8}

// Default is the USGS Watershed Boundary Dataset at every published HUC level,
// coarsest first.
func Default() Plan {
	return Plan{
		Center:  model.LatLng{Lat: 40, Lon: -100},
		Zoom:    4,
		Basemap: "ROADMAP",
		Layers: []Entry{
			{
				Dataset: "USGS/WBD/2017/HUC02",
				Style:   style.Style{FillColor: "#000070", Color: "#0000be", Width: 3.0},
				Center:  conus,
				Zoom:    4,
				Label:   "USGS/WBD/2017/HUC02",
			},
			{
				Dataset: "USGS/WBD/2017/HUC04",
				Style:   style.Style{FillColor: "#5885E3", Color: "#0000be", Width: 3.0},
				Center:  model.LatLng{Lat: 36.677, Lon: -110.904},
				Zoom:    7,
				Label:   "USGS/WBD/2017/HUC04",
			},
			{
				Dataset: "USGS/WBD/2017/HUC06",
				Style:   style.Style{FillColor: "#588593", Color: "#587193", Width: 3.0},
				Center:  conus,
				Zoom:    7,
				Label:   "USGS/WBD/2017/HUC06",
			},
			{
				Dataset: "USGS/WBD/2017/HUC08",
				Style:   style.Style{FillColor: "#2E8593", Color: "#587193", Width: 2.0},
				Center:  conus,
				Zoom:    8,
				Label:   "USGS/WBD/2017/HUC08",
			},
			{
				Dataset: "USGS/WBD/2017/HUC10",
				Style:   style.Style{FillColor: "#2E85BB", Color: "#2E5D7E", Width: 1.0},
				Center:  conus,
				Zoom:    9,
				Label:   "USGS/WBD/2017/HUC10",
			},
			{
				Dataset: "USGS/WBD/2017/HUC12",
				Style:   style.Style{FillColor: "#2E85BB", Color: "#2E5D7E", Width: 0.1},
				Center:  conus,
				Zoom:    10,
				Label:   "USGS/WBD/2017/HUC12",
			},
		},
	}
}

// Load reads a YAML plan. Map-level fields left out of the file keep their
// Default values; the layer list is never merged.
func Load(path string) (Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	p, err := Decode(bytes.NewReader(b))
	if err != nil {
		return Plan{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode reads a YAML plan over the default map settings. An entry without a
// label is labelled with its dataset id.
func Decode(r io.Reader) (Plan, error) {
	def := Default()
	p := Plan{Center: def.Center, Zoom: def.Zoom, Basemap: def.Basemap}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return Plan{}, fmt.Errorf("%w: empty document", ErrInvalidPlan)
		}
		return Plan{}, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	for i := range p.Layers {
		if strings.TrimSpace(p.Layers[i].Label) == "" {
			p.Layers[i].Label = p.Layers[i].Dataset.String()
		}
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func (p Plan) Validate() error {
	if err := (model.Viewport{Center: p.Center, Zoom: p.Zoom}).Validate(); err != nil {
		return fmt.Errorf("%w: map: %w", ErrInvalidPlan, err)
	}
	if _, err := mapview.LookupBasemap(p.Basemap); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if len(p.Layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrInvalidPlan)
	}
	seen := make(map[string]int, len(p.Layers))
	for i, e := range p.Layers {
		if err := e.Dataset.Validate(); err != nil {
			return fmt.Errorf("%w: layer %d: %w", ErrInvalidPlan, i, err)
		}
		label := strings.TrimSpace(e.Label)
		if label == "" {
			return fmt.Errorf("%w: layer %d: empty label", ErrInvalidPlan, i)
		}
		if j, dup := seen[label]; dup {
			return fmt.Errorf("%w: layers %d and %d share label %q", ErrInvalidPlan, j, i, label)
		}
		seen[label] = i
		if _, err := e.Style.Compile(); err != nil {
			return fmt.Errorf("%w: layer %q: %w", ErrInvalidPlan, label, err)
		}
		if err := (model.Viewport{Center: e.Center, Zoom: e.Zoom}).Validate(); err != nil {
			return fmt.Errorf("%w: layer %q: %w", ErrInvalidPlan, label, err)
		}
	}
	return nil
}
