package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/wbd-map/internal/cache/collectionstore"
	"github.com/mohammed-shakir/wbd-map/internal/core/model"
	"github.com/mohammed-shakir/wbd-map/internal/core/observability"
)

// Cached is a read-through cache in front of a Fetcher. Cache errors are
// logged and never fail a fetch.
type Cached struct {
	next      Fetcher
	store     collectionstore.Store
	endpoint  string
	ttl       time.Duration
	opTimeout time.Duration
	logger    *slog.Logger
}

var _ Fetcher = (*Cached)(nil)

func NewCached(next Fetcher, store collectionstore.Store, endpoint string, ttl, opTimeout time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cached{
		next:      next,
		store:     store,
		endpoint:  endpoint,
		ttl:       ttl,
		opTimeout: opTimeout,
		logger:    logger,
	}
}

func (c *Cached) FetchCollection(ctx context.Context, id model.DatasetID) (*geojson.FeatureCollection, error) {
	gctx, cancel := c.withTimeout(ctx)
	fc, ok, err := c.store.Get(gctx, c.endpoint, id)
	cancel()
	switch {
	case err != nil:
		c.logger.WarnContext(ctx, "collection cache read failed", "dataset", id.String(), "err", err)
	case ok:
		observability.IncCacheHit()
		c.logger.DebugContext(ctx, "collection cache hit", "dataset", id.String())
		return fc, nil
	}
	observability.IncCacheMiss()

	fc, err = c.next.FetchCollection(ctx, id)
	if err != nil {
		return nil, err
	}

	pctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.store.Put(pctx, c.endpoint, id, fc, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "collection cache write failed", "dataset", id.String(), "err", err)
	}
	return fc, nil
}

func (c *Cached) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opTimeout)
}
