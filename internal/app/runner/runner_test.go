package runner

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/wbd-map/internal/catalog"
	"github.com/mohammed-shakir/wbd-map/internal/core/model"
	"github.com/mohammed-shakir/wbd-map/internal/mapevents"
	"github.com/mohammed-shakir/wbd-map/internal/mapview"
	"github.com/mohammed-shakir/wbd-map/internal/plan"
)

type step struct {
	mu    sync.Mutex
	calls []string
}

func (s *step) record(name string) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()
}

type fakeAssets struct {
	steps *step
	err   error
}

func (f fakeAssets) Ensure(context.Context) error {
	f.steps.record("assets")
	return f.err
}

type fakeSession struct {
	steps *step
	err   error
}

func (f fakeSession) Init(context.Context) (*http.Client, error) {
	f.steps.record("session")
	if f.err != nil {
		return nil, f.err
	}
	return &http.Client{}, nil
}

type fakeFetcher struct {
	steps *step
	fail  model.DatasetID
	err   error
}

func (f fakeFetcher) FetchCollection(_ context.Context, id model.DatasetID) (*geojson.FeatureCollection, error) {
	f.steps.record("fetch " + id.String())
	if id == f.fail {
		return nil, f.err
	}
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Polygon{{{-100, 40}, {-99, 40}, {-99, 41}, {-100, 40}}}))
	return fc, nil
}

type fakeRenderer struct {
	steps *step
	got   *mapview.Map
	err   error
}

func (f *fakeRenderer) Name() string { return "fake" }

func (f *fakeRenderer) Render(_ context.Context, m *mapview.Map) error {
	f.steps.record("render")
	f.got = m
	return f.err
}

type sinkRecorder struct{ events []mapevents.Event }

func (s *sinkRecorder) Publish(ev mapevents.Event) { s.events = append(s.events, ev) }
func (s *sinkRecorder) Close() error               { return nil }

type fixture struct {
	steps    *step
	renderer *fakeRenderer
	events   *sinkRecorder
	opts     Options
}

func newFixture() *fixture {
	st := &step{}
	f := &fixture{steps: st, renderer: &fakeRenderer{steps: st}, events: &sinkRecorder{}}
	f.opts = Options{
		Plan:    plan.Default(),
		Assets:  fakeAssets{steps: st},
		Session: fakeSession{steps: st},
		Catalog: func(*http.Client) (catalog.Fetcher, error) {
			return fakeFetcher{steps: st}, nil
		},
		Renderer: f.renderer,
		Events:   f.events,
		RunID:    "run-1",
	}
	return f
}

func TestRun_BuildsDefaultMap(t *testing.T) {
	f := newFixture()
	r, err := New(f.opts)
	require.NoError(t, err)

	m, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Same(t, m, f.renderer.got)

	want := []model.DatasetID{
		"USGS/WBD/2017/HUC02", "USGS/WBD/2017/HUC04", "USGS/WBD/2017/HUC06",
		"USGS/WBD/2017/HUC08", "USGS/WBD/2017/HUC10", "USGS/WBD/2017/HUC12",
	}
	layers := m.Layers()
	require.Len(t, layers, 6)
	for i, l := range layers {
		assert.Equal(t, want[i], l.Dataset)
		assert.Equal(t, want[i].String(), l.Label)
	}
	assert.Equal(t, "#0000be", layers[0].Styled.Paint.PathOptions().Color)
	assert.Equal(t, 0.1, layers[5].Styled.Paint.PathOptions().Weight)

	// viewport ends where the last entry put it
	assert.Equal(t, model.LatLng{Lat: 40.43, Lon: -96.8}, m.Center())
	assert.Equal(t, 10, m.Zoom())
	assert.True(t, m.HasLayerControl())
	require.Len(t, m.Basemaps(), 1)
	assert.Equal(t, "Google Maps", m.Basemaps()[0].Name)

	assert.Equal(t, []string{
		"assets", "session",
		"fetch USGS/WBD/2017/HUC02", "fetch USGS/WBD/2017/HUC04", "fetch USGS/WBD/2017/HUC06",
		"fetch USGS/WBD/2017/HUC08", "fetch USGS/WBD/2017/HUC10", "fetch USGS/WBD/2017/HUC12",
		"render",
	}, f.steps.calls)

	require.Len(t, f.events.events, 7)
	assert.Equal(t, mapevents.KindLayerAdded, f.events.events[1].Kind)
	assert.Equal(t, 7, f.events.events[1].Zoom)
	assert.Equal(t, 36.677, f.events.events[1].Lat)
	assert.Equal(t, mapevents.KindMapRendered, f.events.events[6].Kind)
	assert.Equal(t, "fake", f.events.events[6].Backend)
}

func TestRun_FetchErrorAborts(t *testing.T) {
	f := newFixture()
	f.opts.Catalog = func(*http.Client) (catalog.Fetcher, error) {
		return fakeFetcher{steps: f.steps, fail: "USGS/WBD/2017/HUC08", err: catalog.ErrDatasetNotFound}, nil
	}
	r, err := New(f.opts)
	require.NoError(t, err)

	m, err := r.Run(context.Background())
	assert.Nil(t, m)
	assert.True(t, errors.Is(err, catalog.ErrDatasetNotFound), "err=%v", err)
	assert.Nil(t, f.renderer.got, "nothing is rendered after a failed layer")
	assert.NotContains(t, f.steps.calls, "fetch USGS/WBD/2017/HUC10")
}

func TestRun_AssetsFailureStopsBeforeSession(t *testing.T) {
	f := newFixture()
	f.opts.Assets = fakeAssets{steps: f.steps, err: errors.New("offline")}
	r, err := New(f.opts)
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"assets"}, f.steps.calls)
}

func TestRun_SessionFailurePropagates(t *testing.T) {
	f := newFixture()
	f.opts.Session = fakeSession{steps: f.steps, err: catalog.ErrServiceUnavailable}
	r, err := New(f.opts)
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	assert.True(t, errors.Is(err, catalog.ErrServiceUnavailable), "err=%v", err)
	assert.Equal(t, []string{"assets", "session"}, f.steps.calls)
}

func TestRun_RenderFailure(t *testing.T) {
	f := newFixture()
	f.renderer.err = errors.New("disk full")
	r, err := New(f.opts)
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, f.events.events, 6, "no map_rendered event on failure")
}

func TestRun_OnlyOnce(t *testing.T) {
	f := newFixture()
	r, err := New(f.opts)
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	assert.True(t, errors.Is(err, ErrAlreadyRan), "err=%v", err)
}

func TestNew_Validates(t *testing.T) {
	f := newFixture()
	o := f.opts
	o.Renderer = nil
	_, err := New(o)
	assert.Error(t, err)

	o = f.opts
	o.Plan.Layers = nil
	_, err = New(o)
	assert.True(t, errors.Is(err, plan.ErrInvalidPlan), "err=%v", err)
}

func TestAddStyledLayer_Independent(t *testing.T) {
	m, err := mapview.New(model.LatLng{Lat: 40, Lon: -100}, 4)
	require.NoError(t, err)
	st := &step{}
	p := plan.Default()

	require.NoError(t, AddStyledLayer(context.Background(), m, fakeFetcher{steps: st}, p.Layers[0]))
	before := m.Layers()[0].Styled.Paint

	bad := p.Layers[1]
	bad.Style.Color = "not-a-color"
	require.Error(t, AddStyledLayer(context.Background(), m, fakeFetcher{steps: st}, bad))

	require.NoError(t, AddStyledLayer(context.Background(), m, fakeFetcher{steps: st}, p.Layers[2]))
	require.Len(t, m.Layers(), 2)
	assert.Equal(t, before, m.Layers()[0].Styled.Paint, "adding a layer must not alter another")
	assert.Equal(t, 7, m.Zoom())
}
