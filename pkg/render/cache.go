package render

import (
	"github.com/taigrr/lumen/pkg/surface"
)

// DefaultTimeToLive is how long (in seconds) cached geometry buffers stay
// valid without being touched by a batch. Instanced batches use it; merged
// temporary geometry always uses zero.
const DefaultTimeToLive = 20.0

// GeometryBuffer is a cached per-surface buffer set, standing in for the
// GPU-side vertex and index buffers a backend would allocate.
type GeometryBuffer struct {
	// DataKey is the key of the shared surface the buffers were built from.
	DataKey uint64
	// VertexCount and TriangleCount record the size the buffers were built
	// at; a size change forces a rebuild.
	VertexCount   int
	TriangleCount int

	timeToLive float64
}

// CacheStats counts cache activity since creation.
type CacheStats struct {
	Hits      int
	Misses    int
	Evictions int
}

// GeometryCache keeps geometry buffers alive across frames, keyed by
// surface identity. Each Sync refreshes the time-to-live of every surface
// referenced by the storage; Update ages entries and evicts the expired
// ones. Not safe for concurrent use.
type GeometryCache struct {
	buffers map[uint64]*GeometryBuffer
	stats   CacheStats
}

// NewGeometryCache creates an empty cache.
func NewGeometryCache() *GeometryCache {
	return &GeometryCache{
		buffers: make(map[uint64]*GeometryBuffer),
	}
}

// Sync ensures a buffer exists for every batch in the storage and resets
// each one's time-to-live from its batch. Buffers whose recorded size no
// longer matches the surface are rebuilt in place.
func (c *GeometryCache) Sync(storage *BatchStorage) {
	for i := range storage.Batches {
		batch := &storage.Batches[i]
		key := batch.Data.Key()

		data := batch.Data.Lock()
		vertexCount := data.VertexCount()
		triangleCount := data.TriangleCount()
		batch.Data.Unlock()

		buffer, ok := c.buffers[key]
		if ok && buffer.VertexCount == vertexCount && buffer.TriangleCount == triangleCount {
			c.stats.Hits++
		} else {
			c.stats.Misses++
			buffer = &GeometryBuffer{
				DataKey:       key,
				VertexCount:   vertexCount,
				TriangleCount: triangleCount,
			}
			c.buffers[key] = buffer
		}
		buffer.timeToLive = batch.TimeToLive
	}
}

// Update ages every buffer by dt seconds and evicts the ones whose
// time-to-live ran out. Buffers synced with a zero time-to-live survive
// exactly until the first Update.
func (c *GeometryCache) Update(dt float64) {
	for key, buffer := range c.buffers {
		buffer.timeToLive -= dt
		if buffer.timeToLive < 0 {
			delete(c.buffers, key)
			c.stats.Evictions++
		}
	}
}

// Get returns the cached buffer for a surface, or nil.
func (c *GeometryCache) Get(data *surface.SharedData) *GeometryBuffer {
	return c.buffers[data.Key()]
}

// Len returns the number of live buffers.
func (c *GeometryCache) Len() int {
	return len(c.buffers)
}

// Stats returns a snapshot of the cache counters.
func (c *GeometryCache) Stats() CacheStats {
	return c.stats
}
