package mapview

import (
	"errors"
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/wbd-map/internal/core/model"
	"github.com/mohammed-shakir/wbd-map/internal/style"
)

func square(minLon, minLat, size float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Polygon{{
		{minLon, minLat}, {minLon + size, minLat}, {minLon + size, minLat + size}, {minLon, minLat + size}, {minLon, minLat},
	}}))
	return fc
}

func layer(t *testing.T, label string, fc *geojson.FeatureCollection) Layer {
	t.Helper()
	s, err := style.Apply(fc, style.Style{FillColor: "000070", Color: "0000be", Width: 3})
	require.NoError(t, err)
	return Layer{Label: label, Dataset: model.DatasetID(label), Styled: s}
}

func TestNew_Defaults(t *testing.T) {
	m, err := New(model.LatLng{Lat: 40, Lon: -100}, 4)
	require.NoError(t, err)
	require.NoError(t, m.AddBasemap("ROADMAP"))

	assert.Equal(t, model.LatLng{Lat: 40, Lon: -100}, m.Center())
	assert.Equal(t, 4, m.Zoom())
	assert.Len(t, m.Basemaps(), 1)
	assert.Empty(t, m.Layers())
	assert.False(t, m.HasLayerControl())
}

func TestNew_InvalidViewport(t *testing.T) {
	_, err := New(model.LatLng{Lat: 91, Lon: 0}, 4)
	assert.Error(t, err)
	_, err = New(model.LatLng{}, 30)
	assert.Error(t, err)
}

func TestAddBasemap_Unknown(t *testing.T) {
	m, err := New(model.LatLng{}, 2)
	require.NoError(t, err)
	err = m.AddBasemap("BLUEPRINT")
	assert.True(t, errors.Is(err, ErrUnknownBasemap), "err=%v", err)
	for _, k := range BasemapKeys() {
		assert.NoError(t, m.AddBasemap(k), k)
	}
}

func TestSetCenter_LonLatOrder(t *testing.T) {
	m, err := New(model.LatLng{Lat: 40, Lon: -100}, 4)
	require.NoError(t, err)

	require.NoError(t, m.SetCenter(-110.904, 36.677, 7))
	assert.Equal(t, model.LatLng{Lat: 36.677, Lon: -110.904}, m.Center())
	assert.Equal(t, 7, m.Zoom())

	// out of range leaves the viewport alone
	require.Error(t, m.SetCenter(-96.8, 140.43, 4))
	assert.Equal(t, 7, m.Zoom())
}

func TestAddLayer_OrderPreservingAndCumulative(t *testing.T) {
	m, err := New(model.LatLng{}, 2)
	require.NoError(t, err)
	for i := range 4 {
		require.NoError(t, m.AddLayer(layer(t, fmt.Sprintf("L%d", i), square(float64(i), 0, 1))))
	}
	got := m.Layers()
	require.Len(t, got, 4)
	for i, l := range got {
		assert.Equal(t, fmt.Sprintf("L%d", i), l.Label)
	}

	// accessor hands out a copy
	got[0].Label = "mutated"
	assert.Equal(t, "L0", m.Layers()[0].Label)
}

func TestAddLayer_Rejects(t *testing.T) {
	m, err := New(model.LatLng{}, 2)
	require.NoError(t, err)
	require.NoError(t, m.AddLayer(layer(t, "HUC02", square(0, 0, 1))))

	err = m.AddLayer(layer(t, " HUC02 ", square(0, 0, 1)))
	assert.True(t, errors.Is(err, ErrDuplicateLabel), "err=%v", err)
	assert.Error(t, m.AddLayer(layer(t, "", square(0, 0, 1))))
	assert.Error(t, m.AddLayer(Layer{Label: "empty"}))
	assert.Len(t, m.Layers(), 1, "rejected layers must not be appended")
}

func TestBoundsAndDocument(t *testing.T) {
	m, err := New(model.LatLng{Lat: 40, Lon: -100}, 4)
	require.NoError(t, err)
	_, ok := m.Bounds()
	assert.False(t, ok)

	require.NoError(t, m.AddBasemap("ROADMAP"))
	require.NoError(t, m.AddLayer(layer(t, "a", square(-100, 40, 1))))
	require.NoError(t, m.AddLayer(layer(t, "b", square(-98, 42, 2))))
	m.AddLayerControl()

	b, ok := m.Bounds()
	require.True(t, ok)
	assert.Equal(t, orb.Point{-100, 40}, b.Min)
	assert.Equal(t, orb.Point{-96, 44}, b.Max)

	doc := m.Document()
	assert.True(t, doc.LayerControl)
	require.Len(t, doc.Layers, 2)
	assert.Equal(t, 1, doc.Layers[1].Index)
	assert.Equal(t, "b", doc.Layers[1].Label)
	assert.Equal(t, 1, doc.Layers[1].Features)
	assert.Equal(t, "#0000be", doc.Layers[0].Style.Color)
	require.NotNil(t, doc.Bounds)
	assert.Equal(t, [4]float64{-100, 40, -96, 44}, *doc.Bounds)
}
