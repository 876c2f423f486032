package manifest

import (
	lru "github.com/hashicorp/golang-lru"

	"go.linehist.dev/core/metrics"
	"go.linehist.dev/core/node"
)

// CachingStore is a read-through LRU decorator of a backing Store. Since
// blobs are immutable and content-addressed, cached entries never require
// invalidation.
type CachingStore struct {
	store Store
	cache *lru.Cache
}

// NewCachingStore returns a CachingStore of |store| holding up to |size|
// blobs (which must be > 0).
func NewCachingStore(store Store, size int) *CachingStore {
	var cache, err = lru.New(size)
	if err != nil {
		panic(err.Error()) // Only errors on size <= 0.
	}
	return &CachingStore{store: store, cache: cache}
}

// Get returns the blob of (|path|, |id|) from cache where able, and
// otherwise reads and caches it from the backing Store.
func (s *CachingStore) Get(path string, id node.ID) ([]byte, error) {
	var key = StoreKey{Path: path, ID: id}

	if v, ok := s.cache.Get(key); ok {
		metrics.StoreCacheHitsTotal.Inc()
		return v.([]byte), nil
	}
	metrics.StoreCacheMissesTotal.Inc()

	var raw, err = s.store.Get(path, id)
	if err == nil && raw != nil {
		s.cache.Add(key, raw)
	}
	return raw, err
}

// Insert writes |raw| through to the backing Store and caches it.
func (s *CachingStore) Insert(path string, id node.ID, raw []byte) error {
	if err := s.store.Insert(path, id, raw); err != nil {
		return err
	}
	s.cache.Add(StoreKey{Path: path, ID: id}, raw)
	return nil
}

// Prefetch delegates to the backing Store.
func (s *CachingStore) Prefetch(keys []StoreKey) { s.store.Prefetch(keys) }
