// Package catalog resolves dataset ids against the remote WFS feature service.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/wbd-map/internal/core/model"
	"github.com/mohammed-shakir/wbd-map/internal/core/observability"
	"github.com/mohammed-shakir/wbd-map/internal/core/ogc"
)

var (
	ErrDatasetNotFound    = errors.New("dataset not found")
	ErrServiceUnavailable = errors.New("feature service unavailable")
	ErrUnauthorized       = errors.New("feature service rejected credentials")
)

const defaultMaxBody = 1 << 30

// Fetcher resolves a dataset id into its feature collection.
type Fetcher interface {
	FetchCollection(ctx context.Context, id model.DatasetID) (*geojson.FeatureCollection, error)
}

type Client struct {
	logger   *slog.Logger
	client   *http.Client
	owsURL   *url.URL
	maxBody  int64
	startNow func() time.Time // for tests
}

var _ Fetcher = (*Client)(nil)

func New(logger *slog.Logger, client *http.Client, ows string) (*Client, error) {
	u, err := url.Parse(ows)
	if err != nil {
		return nil, fmt.Errorf("parse ows url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ows url %q must be absolute", ows)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		logger:   logger,
		client:   client,
		owsURL:   u,
		maxBody:  defaultMaxBody,
		startNow: time.Now,
	}, nil
}

// WithHTTPClient returns a copy that sends requests through hc, e.g. an
// authorised client handed out by the session.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	if hc != nil {
		cp.client = hc
	}
	return &cp
}

func (c *Client) Endpoint() string { return c.owsURL.String() }

// Verify checks that hc can reach the service and is accepted by it.
func (c *Client) Verify(ctx context.Context, hc *http.Client) error {
	if hc == nil {
		hc = c.client
	}
	body, status, err := c.do(ctx, hc, "get_capabilities", ogc.BuildGetCapabilitiesParams(), "application/xml")
	if err != nil {
		return err
	}
	if err := classify(status, body, ""); err != nil {
		return err
	}
	if rep, ok := ogc.ParseExceptionReport(body); ok {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, rep)
	}
	return nil
}

func (c *Client) FetchCollection(ctx context.Context, id model.DatasetID) (*geojson.FeatureCollection, error) {
	typeName, err := ogc.TypeName(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatasetNotFound, err)
	}
	params := ogc.BuildGetFeatureParams(ogc.GetFeature{TypeName: typeName, OutputFormat: ogc.FormatGeoJSON})

	body, status, err := c.do(ctx, c.client, "get_feature", params, ogc.FormatGeoJSON)
	if err != nil {
		return nil, err
	}
	if err := classify(status, body, id); err != nil {
		return nil, err
	}
	if rep, ok := ogc.ParseExceptionReport(body); ok {
		if rep.UnknownType() {
			return nil, fmt.Errorf("%w: %s: %w", ErrDatasetNotFound, id, rep)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrServiceUnavailable, id, rep)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrServiceUnavailable, id, err)
	}

	if n := nonPolygonal(fc); n > 0 {
		c.logger.WarnContext(ctx, "collection has non-polygon features", "dataset", id.String(), "count", n)
	}
	c.logger.DebugContext(ctx, "collection fetched",
		"dataset", id.String(),
		"type_name", typeName,
		"features", len(fc.Features),
		"bytes", len(body))
	return fc, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, op string, params url.Values, accept string) ([]byte, int, error) {
	u := *c.owsURL
	u.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)

	start := c.startNow()
	resp, err := hc.Do(req)
	if err != nil {
		observability.ObserveUpstream(op, err, time.Since(start).Seconds())
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrServiceUnavailable, op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	observability.ObserveUpstream(op, err, time.Since(start).Seconds())
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %w", ErrServiceUnavailable, err)
	}
	if int64(len(b)) > c.maxBody {
		return nil, resp.StatusCode, fmt.Errorf("%w: %s response exceeds %d bytes", ErrServiceUnavailable, op, c.maxBody)
	}
	return b, resp.StatusCode, nil
}

// classify maps a response status onto the error taxonomy. Every failure is
// ErrUnauthorized, ErrDatasetNotFound or ErrServiceUnavailable. Requests
// without a dataset id never report ErrDatasetNotFound.
func classify(status int, body []byte, id model.DatasetID) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, status)
	case status == http.StatusNotFound && id != "":
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	case status == http.StatusBadRequest && id != "":
		if rep, ok := ogc.ParseExceptionReport(body); ok && rep.UnknownType() {
			return fmt.Errorf("%w: %s: %w", ErrDatasetNotFound, id, rep)
		}
		return fmt.Errorf("%w: upstream status %d: %s", ErrServiceUnavailable, status, snippet(body))
	default:
		return fmt.Errorf("%w: upstream status %d: %s", ErrServiceUnavailable, status, snippet(body))
	}
}

func snippet(b []byte) string {
	const maxLen = 512
	if len(b) > maxLen {
		return string(b[:maxLen]) + "..."
	}
	return string(b)
}

func nonPolygonal(fc *geojson.FeatureCollection) int {
	n := 0
	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			n++
		}
	}
	return n
}
