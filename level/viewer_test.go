package level

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkymonkey/pkserver/chunk"
	"github.com/chunkymonkey/pkserver/region"
)

type recordingSink struct {
	sent     []ChunkPosition
	forgot   []ChunkPosition
	changes  []BlockChangeEvent
}

func (s *recordingSink) SendChunk(pos ChunkPosition, c *chunk.Chunk) { s.sent = append(s.sent, pos) }
func (s *recordingSink) ForgetChunk(pos ChunkPosition)               { s.forgot = append(s.forgot, pos) }
func (s *recordingSink) SendBlockChange(pos BlockPos, b Block) {
	s.changes = append(s.changes, BlockChangeEvent{Pos: pos, Block: b})
}

func newLevelWithChunk(t *testing.T, cx, cz int32) *Level {
	t.Helper()
	dir := t.TempDir()
	regionDir := filepath.Join(dir, "region")
	require.NoError(t, os.MkdirAll(regionDir, 0o755))

	sec := chunk.Section{Y: 4, Blocks: make([]int32, chunk.SectionBlockEntries), Biomes: make([]int32, chunk.SectionBiomeEntries)}
	c := &chunk.Chunk{ChunkX: cx, ChunkZ: cz, Status: chunk.StatusFull, Sections: []chunk.Section{sec}}
	encoded, err := EncodeChunk(c)
	require.NoError(t, err)

	name := filepath.Join(regionDir, regionFileName(cx, cz))
	writeRegionFixture(t, name, encoded)

	store, err := region.NewStore(dir, region.DimensionOverworld)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewLevel(store, nil)
}

func regionFileName(cx, cz int32) string {
	rx := floorDiv32(cx, region.RegionSize)
	rz := floorDiv32(cz, region.RegionSize)
	return "r." + itoa(rx) + "." + itoa(rz) + ".mca"
}

func itoa(v int32) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

func TestSetBlockBroadcastsOnlyToViewersWithChunkLoaded(t *testing.T) {
	lvl := newLevelWithChunk(t, 0, 0)

	sinkA := &recordingSink{}
	sinkB := &recordingSink{}
	viewerA := lvl.AddViewer(sinkA)
	viewerB := lvl.AddViewer(sinkB)

	origin := ChunkPosition{ChunkX: 0, ChunkZ: 0}
	viewerA.UpdateCenter(&origin)
	for {
		if _, ok := viewerA.Loader.NextToLoad(); !ok {
			break
		}
	}
	require.True(t, viewerA.Loader.HasLoaded(origin))
	require.False(t, viewerB.Loader.HasLoaded(origin))

	ok := lvl.SetBlock(BlockPos{X: 1, Y: 70, Z: 1}, Block{StateID: 7})
	require.True(t, ok)

	lvl.UpdateViewers(10)
	require.Len(t, sinkA.changes, 1)
	assert.Equal(t, int32(7), sinkA.changes[0].Block.StateID)
	assert.Empty(t, sinkB.changes)
}

func TestUpdateViewersSendsChunksUpToBudget(t *testing.T) {
	lvl := newLevelWithChunk(t, 0, 0)
	sink := &recordingSink{}
	viewer := lvl.AddViewer(sink)

	origin := ChunkPosition{ChunkX: 0, ChunkZ: 0}
	viewer.UpdateCenter(&origin)

	lvl.UpdateViewers(1)
	assert.Len(t, sink.sent, 1)
}

func TestUpdateViewersForgetsUnloadedChunks(t *testing.T) {
	lvl := newLevelWithChunk(t, 0, 0)
	sink := &recordingSink{}
	viewer := lvl.AddViewer(sink)

	origin := ChunkPosition{ChunkX: 0, ChunkZ: 0}
	viewer.UpdateCenter(&origin)
	for {
		if _, ok := viewer.Loader.NextToLoad(); !ok {
			break
		}
	}

	far := ChunkPosition{ChunkX: 1000, ChunkZ: 1000}
	viewer.UpdateCenter(&far)

	lvl.UpdateViewers(0)
	assert.NotEmpty(t, sink.forgot)
}
