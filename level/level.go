// Package level implements the chunk store and per-viewer chunk
// streaming at the center of spec.md §4.8/§4.9: a lazily-populated,
// negative-result-caching chunk cache backed by package region, a
// block get/set surface guarded by a single lock (spec.md §5), and a
// ChunkLoader-per-viewer ring algorithm that paces chunk sends.
package level

import (
	"sync"

	"github.com/chunkymonkey/pkserver/chunk"
	"github.com/chunkymonkey/pkserver/region"
	"github.com/chunkymonkey/pkserver/registry"
	"github.com/chunkymonkey/pkserver/weakset"
)

// BlockPos is an absolute block coordinate; Y is unclamped here, since
// out-of-range is a Level.GetBlock/SetBlock concern, not a type
// invariant.
type BlockPos struct {
	X, Y, Z int32
}

// Block is the minimal payload this package moves around: a raw
// registry state id. Anything richer (block entity data) travels
// alongside via chunk.BlockEntity instead.
type Block struct {
	StateID int32
}

type chunkSlot struct {
	chunk    *chunk.Chunk
	prepared bool
}

// Level is one dimension's world state: chunk cache, registered
// viewers, and the single exclusive lock spec.md §5 requires both the
// tick thread and gameplay handlers to take before touching either.
type Level struct {
	mu      sync.Mutex
	store   *region.Store
	table   registry.IDTable
	chunks  map[ChunkPosition]*chunkSlot
	viewers weakset.Set[Viewer]
}

// NewLevel builds a Level reading chunk data from store, using table
// for the air-like block set a set_block non-air recount needs.
func NewLevel(store *region.Store, table registry.IDTable) *Level {
	return &Level{
		store:  store,
		table:  table,
		chunks: make(map[ChunkPosition]*chunkSlot),
	}
}

// AddViewer registers a new viewer at zero radius (spec.md §4.8:
// "ChunkLoader(0)"); callers grow the radius once the connection
// reports its client-requested view distance. The returned *Viewer is
// the only strong reference: once the caller drops it, the next sweep
// silently forgets it.
func (l *Level) AddViewer(sink ViewerSink) *Viewer {
	v := newViewer(sink, 0)
	l.viewers.Add(v)
	return v
}

// PrepareChunk must be called before GetChunk/GetBlock observes a
// chunk for the first time. It is idempotent, and a negative result
// (missing region, empty slot, or corrupt NBT) is cached just as
// eagerly as a positive one, per spec.md §4.7.
func (l *Level) PrepareChunk(pos ChunkPosition) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prepareLocked(pos)
}

func (l *Level) prepareLocked(pos ChunkPosition) error {
	if slot, ok := l.chunks[pos]; ok && slot.prepared {
		return nil
	}

	raw, err := l.store.ReadChunk(pos.ChunkX, pos.ChunkZ)
	if err != nil {
		return err
	}
	if raw == nil {
		l.chunks[pos] = &chunkSlot{prepared: true}
		return nil
	}

	c, err := DecodeChunk(raw)
	if err != nil {
		// Unparseable: cache the negative result rather than retrying
		// every call, matching the absent-chunk behavior.
		l.chunks[pos] = &chunkSlot{prepared: true}
		return nil
	}

	l.chunks[pos] = &chunkSlot{chunk: c, prepared: true}
	return nil
}

// GetChunk returns the cached chunk at pos. PrepareChunk must have
// been called first; ok is false both when the chunk was never
// prepared and when preparation found nothing there.
func (l *Level) GetChunk(pos ChunkPosition) (*chunk.Chunk, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.chunks[pos]
	if !ok || !slot.prepared || slot.chunk == nil {
		return nil, false
	}
	return slot.chunk, true
}

func blockToChunk(x int32) int32 { return floorDiv32(x, 16) }

func floorDiv32(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod32(a, b int32) int32 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func sectionIndex(x, y, z int32) int {
	return int(y*256 + z*16 + x)
}

// GetBlock loads the containing chunk if necessary and returns the
// block at pos, or ok=false if the chunk doesn't exist or pos falls
// outside any loaded section's vertical range.
func (l *Level) GetBlock(pos BlockPos) (Block, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cp := ChunkPosition{ChunkX: blockToChunk(pos.X), ChunkZ: blockToChunk(pos.Z)}
	if err := l.prepareLocked(cp); err != nil {
		return Block{}, false
	}
	slot := l.chunks[cp]
	if slot == nil || slot.chunk == nil {
		return Block{}, false
	}

	sy := floorDiv32(pos.Y, 16)
	if sy < -128 || sy > 127 {
		return Block{}, false
	}
	sectionY := int8(sy)
	for i := range slot.chunk.Sections {
		sec := &slot.chunk.Sections[i]
		if sec.Y != sectionY {
			continue
		}
		idx := sectionIndex(floorMod32(pos.X, 16), floorMod32(pos.Y, 16), floorMod32(pos.Z, 16))
		if idx < 0 || idx >= len(sec.Blocks) {
			return Block{}, false
		}
		return Block{StateID: sec.Blocks[idx]}, true
	}
	return Block{}, false
}

// SetBlock updates the section grid in place and queues a
// block-change broadcast to every viewer whose loader currently has
// the containing chunk in its loaded set.
func (l *Level) SetBlock(pos BlockPos, b Block) bool {
	l.mu.Lock()

	cp := ChunkPosition{ChunkX: blockToChunk(pos.X), ChunkZ: blockToChunk(pos.Z)}
	if err := l.prepareLocked(cp); err != nil {
		l.mu.Unlock()
		return false
	}
	slot := l.chunks[cp]
	if slot == nil || slot.chunk == nil {
		l.mu.Unlock()
		return false
	}

	sectionY := int8(floorDiv32(pos.Y, 16))
	applied := false
	for i := range slot.chunk.Sections {
		sec := &slot.chunk.Sections[i]
		if sec.Y != sectionY {
			continue
		}
		idx := sectionIndex(floorMod32(pos.X, 16), floorMod32(pos.Y, 16), floorMod32(pos.Z, 16))
		if idx < 0 || idx >= len(sec.Blocks) {
			break
		}
		sec.Blocks[idx] = b.StateID
		if l.table != nil {
			sec.CountNonAir(l.table.IsAirLike)
		}
		applied = true
		break
	}
	l.mu.Unlock()

	if !applied {
		return false
	}

	l.viewers.Each(func(v *Viewer) {
		if v.Loader.HasLoaded(cp) {
			v.queueBlockChange(pos, b)
		}
	})
	return true
}

// UpdateViewers paces every registered viewer's chunk traffic: it
// drains the full unload queue (cheap, a ForgetLevelChunk carries no
// payload), then pops up to loadBudget positions off the load queue
// and resolves each through the chunk cache, and finally flushes any
// block-change events queued since the last call. Everything is
// delivered through the viewer's ViewerSink.
func (l *Level) UpdateViewers(loadBudget int) {
	l.viewers.Each(func(v *Viewer) {
		for {
			pos, ok := v.Loader.NextToUnload()
			if !ok {
				break
			}
			v.sink.ForgetChunk(pos)
		}

		for i := 0; i < loadBudget; i++ {
			pos, ok := v.Loader.NextToLoad()
			if !ok {
				break
			}
			l.mu.Lock()
			_ = l.prepareLocked(pos)
			slot := l.chunks[pos]
			l.mu.Unlock()
			if slot != nil && slot.chunk != nil {
				v.sink.SendChunk(pos, slot.chunk)
			}
		}

		for _, ev := range v.drainBlockChanges() {
			v.sink.SendBlockChange(ev.Pos, ev.Block)
		}
	})
}

// ViewerCount reports how many viewers are still alive.
func (l *Level) ViewerCount() int { return l.viewers.Len() }
