package room

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// ModelCache holds per-room computation state tied to the room's current
// model. A template resync that changes the model must invalidate the
// room's entry before the new model is written, since cached state from
// the old model is meaningless to the new one.
type ModelCache struct {
	cache *lru.Cache[int64, any]
}

// NewModelCache creates a cache bounded to size entries.
func NewModelCache(size int) (*ModelCache, error) {
	c, err := lru.New[int64, any](size)
	if err != nil {
		return nil, err
	}
	return &ModelCache{cache: c}, nil
}

// Get returns the cached state for a room, if any.
func (m *ModelCache) Get(roomID int64) (any, bool) {
	return m.cache.Get(roomID)
}

// Put stores computation state for a room.
func (m *ModelCache) Put(roomID int64, state any) {
	m.cache.Add(roomID, state)
}

// Invalidate drops the cached state for a room.
func (m *ModelCache) Invalidate(roomID int64) {
	m.cache.Remove(roomID)
}

// Len returns the number of cached entries.
func (m *ModelCache) Len() int {
	return m.cache.Len()
}
