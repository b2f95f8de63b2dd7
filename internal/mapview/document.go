package mapview

import (
	"github.com/mohammed-shakir/wbd-map/internal/core/model"
	"github.com/mohammed-shakir/wbd-map/internal/style"
)

// Document is the JSON description of a map handed to the page script.
// Layer geometry travels separately.
type Document struct {
	Viewport     model.Viewport  `json:"viewport"`
	Basemaps     []Basemap       `json:"basemaps"`
	Layers       []LayerDocument `json:"layers"`
	LayerControl bool            `json:"layerControl"`
	Bounds       *[4]float64     `json:"bounds,omitempty"`
}

type LayerDocument struct {
	Index    int               `json:"index"`
	Label    string            `json:"label"`
	Dataset  string            `json:"dataset"`
	Features int               `json:"features"`
	Style    style.PathOptions `json:"style"`
}

func (m *Map) Document() Document {
	doc := Document{
		Viewport:     m.viewport,
		Basemaps:     m.Basemaps(),
		LayerControl: m.control,
		Layers:       make([]LayerDocument, 0, len(m.layers)),
	}
	for i, l := range m.layers {
		doc.Layers = append(doc.Layers, LayerDocument{
			Index:    i,
			Label:    l.Label,
			Dataset:  l.Dataset.String(),
			Features: len(l.Styled.Collection.Features),
			Style:    l.Styled.Paint.PathOptions(),
		})
	}
	if b, ok := m.Bounds(); ok {
		doc.Bounds = &[4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
	}
	return doc
}
