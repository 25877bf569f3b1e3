package level

import "math"

// ChunkPosition names a chunk column by its (x, z) coordinate.
type ChunkPosition struct {
	ChunkX, ChunkZ int32
}

// distance is the planar Euclidean distance between two chunk
// columns, in chunk units.
func (p ChunkPosition) distance(other ChunkPosition) float64 {
	dx := float64(other.ChunkX - p.ChunkX)
	dz := float64(other.ChunkZ - p.ChunkZ)
	return math.Sqrt(dx*dx + dz*dz)
}

// extraRadius widens the tracked ring slightly past the requested view
// radius so a viewer's load set doesn't immediately need to refill the
// moment they take one step, matching the reference loader's margin.
const extraRadius = 4

// ChunkLoader computes the ring of chunks a single viewer should have
// loaded around a moving center, producing a load queue and an unload
// queue as the center moves (spec.md §8 scenario d).
type ChunkLoader struct {
	center   *ChunkPosition
	Radius   int32
	toLoad   map[ChunkPosition]struct{}
	loaded   map[ChunkPosition]struct{}
	toUnload []ChunkPosition
}

// NewChunkLoader builds a loader tracking the given view radius (in
// chunks), with no center set yet.
func NewChunkLoader(radius int32) *ChunkLoader {
	return &ChunkLoader{
		Radius:   radius,
		toLoad:   make(map[ChunkPosition]struct{}),
		loaded:   make(map[ChunkPosition]struct{}),
		toUnload: nil,
	}
}

func (c *ChunkLoader) effectiveRadius() float64 {
	return float64(c.Radius + extraRadius)
}

func (c *ChunkLoader) iterRadius(yield func(ChunkPosition)) {
	center := *c.center
	radius := c.Radius + extraRadius
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			p := ChunkPosition{ChunkX: center.ChunkX + dx, ChunkZ: center.ChunkZ + dz}
			if center.distance(p) < float64(radius) {
				yield(p)
			}
		}
	}
}

// UpdateCenter moves the loader's center. A nil center (the viewer has
// no position yet, or has disconnected) unloads everything. Returns
// whether the center actually changed.
func (c *ChunkLoader) UpdateCenter(center *ChunkPosition) bool {
	if samePosition(c.center, center) {
		return false
	}
	c.center = center

	if center == nil {
		c.toLoad = make(map[ChunkPosition]struct{})
		for p := range c.loaded {
			c.toUnload = append(c.toUnload, p)
		}
		c.loaded = make(map[ChunkPosition]struct{})
		return true
	}

	limit := c.effectiveRadius()
	for p := range c.toLoad {
		if center.distance(p) >= limit {
			delete(c.toLoad, p)
		}
	}
	for p := range c.loaded {
		if center.distance(p) >= limit {
			delete(c.loaded, p)
			c.toUnload = append(c.toUnload, p)
		}
	}

	c.iterRadius(func(p ChunkPosition) {
		if _, ok := c.toLoad[p]; ok {
			return
		}
		if _, ok := c.loaded[p]; ok {
			return
		}
		c.toLoad[p] = struct{}{}
	})

	return true
}

// NextToLoad pops the queued chunk closest to the current center,
// moving it from toLoad into loaded. Returns ok=false once toLoad is
// empty.
func (c *ChunkLoader) NextToLoad() (ChunkPosition, bool) {
	if len(c.toLoad) == 0 {
		return ChunkPosition{}, false
	}

	var closest ChunkPosition
	found := false
	if c.center != nil {
		bestDist := math.Inf(1)
		for p := range c.toLoad {
			d := p.distance(*c.center)
			if !found || d < bestDist {
				closest, bestDist, found = p, d, true
			}
		}
	}
	if !found {
		for p := range c.toLoad {
			closest = p
			found = true
			break
		}
	}

	delete(c.toLoad, closest)
	c.loaded[closest] = struct{}{}
	return closest, true
}

// NextToUnload pops one queued-for-unload chunk position, LIFO, like
// the reference loader's Vec-backed stack.
func (c *ChunkLoader) NextToUnload() (ChunkPosition, bool) {
	if len(c.toUnload) == 0 {
		return ChunkPosition{}, false
	}
	last := c.toUnload[len(c.toUnload)-1]
	c.toUnload = c.toUnload[:len(c.toUnload)-1]
	return last, true
}

// LoadedCount reports how many chunks are currently tracked as loaded.
func (c *ChunkLoader) LoadedCount() int { return len(c.loaded) }

// HasLoaded reports whether p is currently in this loader's loaded
// set, the test Level.SetBlock uses to decide which viewers get a
// block-change broadcast.
func (c *ChunkLoader) HasLoaded(p ChunkPosition) bool {
	_, ok := c.loaded[p]
	return ok
}

func samePosition(a, b *ChunkPosition) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
