package extract

import "github.com/philipparndt/voxmesh/pkg/geometry"

type cacheEntry struct {
	key      int64
	z        int // lattice z of the edge's lower endpoint
	position geometry.Vector3
}

// edgeCache hands out one vertex per crossed lattice edge. Each slab of an
// extraction call owns a private cache; nothing outlives the call.
type edgeCache struct {
	index   map[int64]int
	entries []cacheEntry
}

func newEdgeCache() *edgeCache {
	return &edgeCache{index: make(map[int64]int)}
}

// vertex returns the local index for key, computing the crossing point on
// first use.
func (c *edgeCache) vertex(key int64, z int, position func() geometry.Vector3) int {
	if i, ok := c.index[key]; ok {
		return i
	}
	i := len(c.entries)
	c.entries = append(c.entries, cacheEntry{key: key, z: z, position: position()})
	c.index[key] = i
	return i
}

func (c *edgeCache) size() int {
	return len(c.entries)
}
