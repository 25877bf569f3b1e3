package level

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkymonkey/pkserver/chunk"
	"github.com/chunkymonkey/pkserver/region"
)

// writeRegionFixture writes a single-chunk region file at local
// coordinate (0,0) containing the zlib-compressed NBT bytes data.
func writeRegionFixture(t *testing.T, path string, data []byte) {
	t.Helper()

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	body := compressed.Bytes()
	length := uint32(len(body) + 1)

	var record bytes.Buffer
	record.WriteByte(byte(length >> 24))
	record.WriteByte(byte(length >> 16))
	record.WriteByte(byte(length >> 8))
	record.WriteByte(byte(length))
	record.WriteByte(byte(region.CompressionZlib))
	record.Write(body)

	sectorCount := (record.Len() + region.SectorSize - 1) / region.SectorSize
	padded := make([]byte, sectorCount*region.SectorSize)
	copy(padded, record.Bytes())

	var header [region.HeaderSize]byte
	header[2] = 2
	header[3] = byte(sectorCount)

	var out bytes.Buffer
	out.Write(header[:])
	out.Write(padded)
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
}

// TestDebugWorldIntegrity lays out block states on a grid such that
// the block at (1 + (k/gridWidth)*2, 70, 1 + (k%gridWidth)*2) has
// canonical id k for every k in [0, maxBlockID], then checks that
// GetBlock recovers each one after PrepareChunk.
func TestDebugWorldIntegrity(t *testing.T) {
	const gridWidth = 4
	const maxBlockID = 15 // 16 distinct ids, fits one 16x16 chunk

	sec := chunk.Section{
		Y:      4, // y=70 -> section 70/16 = 4
		Blocks: make([]int32, chunk.SectionBlockEntries),
		Biomes: make([]int32, chunk.SectionBiomeEntries),
	}
	for k := int32(0); k <= maxBlockID; k++ {
		x := 1 + (k/gridWidth)*2
		z := 1 + (k%gridWidth)*2
		idx := sectionIndex(x, floorMod32(70, 16), z)
		sec.Blocks[idx] = k
	}
	sec.CountNonAir(func(id int32) bool { return id == 0 })

	c := &chunk.Chunk{
		ChunkX:   0,
		ChunkZ:   0,
		Status:   chunk.StatusFull,
		Sections: []chunk.Section{sec},
	}

	encoded, err := EncodeChunk(c)
	require.NoError(t, err)

	dir := t.TempDir()
	regionDir := filepath.Join(dir, "region")
	require.NoError(t, os.MkdirAll(regionDir, 0o755))
	writeRegionFixture(t, filepath.Join(regionDir, "r.0.0.mca"), encoded)

	store, err := region.NewStore(dir, region.DimensionOverworld)
	require.NoError(t, err)
	defer store.Close()

	lvl := NewLevel(store, nil)
	require.NoError(t, lvl.PrepareChunk(ChunkPosition{ChunkX: 0, ChunkZ: 0}))

	for k := int32(0); k <= maxBlockID; k++ {
		x := 1 + (k/gridWidth)*2
		z := 1 + (k%gridWidth)*2
		block, ok := lvl.GetBlock(BlockPos{X: x, Y: 70, Z: z})
		require.True(t, ok, "position for k=%d should resolve", k)
		assert.Equal(t, k, block.StateID, "canonical id mismatch at k=%d", k)
	}
}

func TestGetBlockOutOfVerticalRangeReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	regionDir := filepath.Join(dir, "region")
	require.NoError(t, os.MkdirAll(regionDir, 0o755))

	sec := chunk.Section{Y: 0, Blocks: make([]int32, chunk.SectionBlockEntries)}
	c := &chunk.Chunk{ChunkX: 0, ChunkZ: 0, Status: chunk.StatusFull, Sections: []chunk.Section{sec}}
	encoded, err := EncodeChunk(c)
	require.NoError(t, err)
	writeRegionFixture(t, filepath.Join(regionDir, "r.0.0.mca"), encoded)

	store, err := region.NewStore(dir, region.DimensionOverworld)
	require.NoError(t, err)
	defer store.Close()

	lvl := NewLevel(store, nil)
	require.NoError(t, lvl.PrepareChunk(ChunkPosition{ChunkX: 0, ChunkZ: 0}))

	_, ok := lvl.GetBlock(BlockPos{X: 1, Y: 900, Z: 1})
	assert.False(t, ok)
}

func TestGetBlockMissingChunkReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	store, err := region.NewStore(dir, region.DimensionOverworld)
	require.NoError(t, err)
	defer store.Close()

	lvl := NewLevel(store, nil)
	_, ok := lvl.GetBlock(BlockPos{X: 1, Y: 70, Z: 1})
	assert.False(t, ok)
}
