// Package collectionstore caches whole feature collections in Redis.
package collectionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/wbd-map/internal/cache/keys"
	"github.com/mohammed-shakir/wbd-map/internal/core/model"
)

type Store interface {
	Get(ctx context.Context, endpoint string, id model.DatasetID) (*geojson.FeatureCollection, bool, error)
	Put(ctx context.Context, endpoint string, id model.DatasetID, fc *geojson.FeatureCollection, ttl time.Duration) error
}

// KV is the subset of redisstore.Client the store needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type redisCollectionStore struct {
	kv         KV
	defaultTTL time.Duration
}

func NewRedisStore(kv KV, defaultTTL time.Duration) Store {
	return &redisCollectionStore{kv: kv, defaultTTL: defaultTTL}
}

func (s *redisCollectionStore) Get(
	ctx context.Context,
	endpoint string,
	id model.DatasetID,
) (*geojson.FeatureCollection, bool, error) {
	k := keys.Collection(endpoint, id.String())
	raw, ok, err := s.kv.Get(ctx, k)
	if err != nil {
		return nil, false, fmt.Errorf("collectionstore GET %q: %w", k, err)
	}
	if !ok {
		return nil, false, nil
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		// a corrupt entry is treated as a miss and overwritten by the next Put
		return nil, false, nil
	}
	return fc, true, nil
}

func (s *redisCollectionStore) Put(
	ctx context.Context,
	endpoint string,
	id model.DatasetID,
	fc *geojson.FeatureCollection,
	ttl time.Duration,
) error {
	if fc == nil {
		return nil
	}
	t := ttl
	if t <= 0 {
		t = s.defaultTTL
	}
	body, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("collectionstore encode %s: %w", id, err)
	}
	k := keys.Collection(endpoint, id.String())
	if err := s.kv.Set(ctx, k, body, t); err != nil {
		return fmt.Errorf("collectionstore SET %q: %w", k, err)
	}
	return nil
}
