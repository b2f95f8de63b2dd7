package mapview

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownBasemap = errors.New("unknown basemap")

// Basemap is a raster tile source in Leaflet's {z}/{x}/{y} template form.
type Basemap struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"maxZoom"`
}

var basemaps = map[string]Basemap{
	"ROADMAP": {
		Name:        "Google Maps",
		URL:         "https://mt1.google.com/vt/lyrs=m&x={x}&y={y}&z={z}",
		Attribution: "Google",
		MaxZoom:     22,
	},
	"SATELLITE": {
		Name:        "Google Satellite",
		URL:         "https://mt1.google.com/vt/lyrs=s&x={x}&y={y}&z={z}",
		Attribution: "Google",
		MaxZoom:     22,
	},
	"TERRAIN": {
		Name:        "Google Terrain",
		URL:         "https://mt1.google.com/vt/lyrs=p&x={x}&y={y}&z={z}",
		Attribution: "Google",
		MaxZoom:     22,
	},
	"HYBRID": {
		Name:        "Google Hybrid",
		URL:         "https://mt1.google.com/vt/lyrs=y&x={x}&y={y}&z={z}",
		Attribution: "Google",
		MaxZoom:     22,
	},
	"OpenStreetMap": {
		Name:        "OpenStreetMap",
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "&copy; OpenStreetMap contributors",
		MaxZoom:     19,
	},
	"Esri.WorldImagery": {
		Name:        "Esri.WorldImagery",
		URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Attribution: "Tiles &copy; Esri",
		MaxZoom:     19,
	},
}

func LookupBasemap(key string) (Basemap, error) {
	b, ok := basemaps[key]
	if !ok {
		return Basemap{}, fmt.Errorf("%w %q (known: %v)", ErrUnknownBasemap, key, BasemapKeys())
	}
	return b, nil
}

func BasemapKeys() []string {
	out := make([]string, 0, len(basemaps))
	for k := range basemaps {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
