package level

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkymonkey/pkserver/chunk"
)

func TestEncodeDecodeChunkRoundTrip(t *testing.T) {
	original := &chunk.Chunk{
		ChunkX: -3,
		ChunkZ: 7,
		Status: chunk.StatusFull,
		Sections: []chunk.Section{
			{
				Y:           4,
				Blocks:      rangeInt32(chunk.SectionBlockEntries),
				Biomes:      rangeInt32(chunk.SectionBiomeEntries),
				BlockLight:  []byte{1, 2, 3},
				SkyLight:    []byte{4, 5, 6},
				NonAirCount: 42,
			},
			{
				Y:      5,
				Blocks: make([]int32, chunk.SectionBlockEntries),
				Biomes: make([]int32, chunk.SectionBiomeEntries),
			},
		},
		BlockEntities: []chunk.BlockEntity{
			{LocalX: 2, LocalZ: 9, Y: 64, TypeID: 5, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		},
		HeightMaps: []byte{9, 9, 9},
	}

	encoded, err := EncodeChunk(original)
	require.NoError(t, err)

	decoded, err := DecodeChunk(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.ChunkX, decoded.ChunkX)
	assert.Equal(t, original.ChunkZ, decoded.ChunkZ)
	assert.Equal(t, original.Status, decoded.Status)
	assert.Equal(t, original.HeightMaps, decoded.HeightMaps)
	require.Len(t, decoded.Sections, 2)
	assert.Equal(t, original.Sections[0].Blocks, decoded.Sections[0].Blocks)
	assert.Equal(t, original.Sections[0].Biomes, decoded.Sections[0].Biomes)
	assert.Equal(t, original.Sections[0].BlockLight, decoded.Sections[0].BlockLight)
	assert.Equal(t, original.Sections[0].SkyLight, decoded.Sections[0].SkyLight)
	assert.Equal(t, original.Sections[0].NonAirCount, decoded.Sections[0].NonAirCount)
	require.Len(t, decoded.BlockEntities, 1)
	assert.Equal(t, original.BlockEntities[0], decoded.BlockEntities[0])
}

func TestEncodeDecodeEmptyChunk(t *testing.T) {
	original := &chunk.Chunk{ChunkX: 0, ChunkZ: 0, Status: chunk.StatusEmpty}
	encoded, err := EncodeChunk(original)
	require.NoError(t, err)

	decoded, err := DecodeChunk(encoded)
	require.NoError(t, err)
	assert.Equal(t, chunk.StatusEmpty, decoded.Status)
	assert.Empty(t, decoded.Sections)
	assert.Empty(t, decoded.BlockEntities)
}

func rangeInt32(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(i % 17)
	}
	return out
}
