package interactive

import (
	"net/http"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/mohammed-shakir/wbd-map/internal/core/model"
	"github.com/mohammed-shakir/wbd-map/internal/mapview"
)

type Hit struct {
	Layer   int    `json:"layer"`
	Label   string `json:"label"`
	Dataset string `json:"dataset"`
	ID      any    `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
}

type InspectResult struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Cell string  `json:"cell"`
	Res  int     `json:"res"`
	Hits []Hit   `json:"hits"`
}

// handleInspect answers a map click: which features lie under the point,
// topmost layer first, and the H3 cell containing it.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		respondError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}
	p := model.LatLng{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.RLock()
	layers, zoom := s.layers, s.doc.Viewport.Zoom
	s.mu.RUnlock()

	if z := q.Get("zoom"); z != "" {
		n, err := strconv.Atoi(z)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid zoom")
			return
		}
		zoom = n
	}
	res := s.mapper.ResForZoom(zoom)
	if v := q.Get("res"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid res")
			return
		}
		res = n
	}
	cell, err := s.mapper.CellForPoint(p, res)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, InspectResult{
		Lat:  lat,
		Lon:  lon,
		Cell: cell,
		Res:  res,
		Hits: hitsAt(layers, orb.Point{lon, lat}),
	})
}

func hitsAt(layers []mapview.Layer, pt orb.Point) []Hit {
	hits := []Hit{}
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		for _, f := range l.Styled.Collection.Features {
			if !contains(f, pt) {
				continue
			}
			hits = append(hits, Hit{
				Layer:   i,
				Label:   l.Label,
				Dataset: l.Dataset.String(),
				ID:      f.ID,
				Name:    f.Properties.MustString("name", ""),
			})
		}
	}
	return hits
}

func contains(f *geojson.Feature, pt orb.Point) bool {
	if f == nil || f.Geometry == nil || !f.Geometry.Bound().Contains(pt) {
		return false
	}
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	case orb.Bound:
		return true
	default:
		return false
	}
}
