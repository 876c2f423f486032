package manifest

import (
	"go.linehist.dev/core/node"
)

// StoreKey addresses a content blob within a Store.
type StoreKey struct {
	// Path under which the blob was inserted.
	Path string
	// ID of the blob's content.
	ID node.ID
}

// Store is a content-addressed blob store consumed by Tree. Inserts are
// idempotent puts of immutable content. A Get of an absent key returns a nil
// blob and no error: at this layer a miss is indistinguishable from content
// which is not yet fetched, and resolving that distinction (eg, by fetching
// remotely) belongs to the Store implementation or its caller.
type Store interface {
	// Get returns the blob of |key|, or nil if not present.
	Get(path string, id node.ID) ([]byte, error)
	// Insert persists |raw| as the blob of (|path|, |id|).
	Insert(path string, id node.ID, raw []byte) error
	// Prefetch hints that |keys| will shortly be read. It's best-effort,
	// and may no-op.
	Prefetch(keys []StoreKey)
}

// MemStore is an in-memory Store, suitable as a test double or for staging
// blobs which are flushed elsewhere.
type MemStore struct {
	blobs map[StoreKey][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[StoreKey][]byte)}
}

// Get returns the blob of |key|, or nil.
func (s *MemStore) Get(path string, id node.ID) ([]byte, error) {
	return s.blobs[StoreKey{Path: path, ID: id}], nil
}

// Insert retains |raw| as the blob of (|path|, |id|).
func (s *MemStore) Insert(path string, id node.ID, raw []byte) error {
	s.blobs[StoreKey{Path: path, ID: id}] = append([]byte(nil), raw...)
	return nil
}

// Prefetch is a no-op.
func (s *MemStore) Prefetch([]StoreKey) {}

// Len returns the number of stored blobs.
func (s *MemStore) Len() int { return len(s.blobs) }
