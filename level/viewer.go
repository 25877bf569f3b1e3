package level

import (
	"sync"

	"github.com/chunkymonkey/pkserver/chunk"
)

// ViewerSink receives the packets a Level decides a viewer should get;
// the level package only decides what and when, never how a chunk or
// block change gets serialized onto a connection (that belongs to
// package connection/protocolstate).
type ViewerSink interface {
	SendChunk(pos ChunkPosition, c *chunk.Chunk)
	ForgetChunk(pos ChunkPosition)
	SendBlockChange(pos BlockPos, b Block)
}

// BlockChangeEvent is one queued set_block broadcast, following
// spec.md §4.8's "queues a block-change broadcast to all viewers who
// currently have the chunk in loaded".
type BlockChangeEvent struct {
	Pos   BlockPos
	Block Block
}

// Viewer is the handle Level.AddViewer returns: the level only ever
// keeps a weak reference to it (spec.md §9's recurring weak-viewer
// pattern, via package weakset), so a viewer disappears from
// broadcasts the moment its owning connection drops it.
type Viewer struct {
	Loader *ChunkLoader

	sink ViewerSink

	mu      sync.Mutex
	pending []BlockChangeEvent
}

func newViewer(sink ViewerSink, radius int32) *Viewer {
	return &Viewer{Loader: NewChunkLoader(radius), sink: sink}
}

// UpdateCenter moves the viewer's chunk-loading center, e.g. in
// response to a movement packet.
func (v *Viewer) UpdateCenter(center *ChunkPosition) bool {
	return v.Loader.UpdateCenter(center)
}

func (v *Viewer) queueBlockChange(pos BlockPos, b Block) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = append(v.pending, BlockChangeEvent{Pos: pos, Block: b})
}

func (v *Viewer) drainBlockChanges() []BlockChangeEvent {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.pending) == 0 {
		return nil
	}
	out := v.pending
	v.pending = nil
	return out
}
