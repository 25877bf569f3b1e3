package level

import (
	"bytes"
	"fmt"

	"github.com/chunkymonkey/pkserver/chunk"
	"github.com/chunkymonkey/pkserver/nbt"
)

// The region-file payload is just "some NBT bytes" as far as the
// region package is concerned; this file defines the compound schema
// this server actually writes into that payload.
//
// Unlike the network paletted container (chunk.WritePaletted), which
// spec.md fixes byte-for-byte, nothing in the spec pins down a
// specific at-rest chunk schema — only the generic NBT format and the
// region file's header layout are bit-exact requirements. This package
// is therefore free to pick a persisted shape convenient for this
// server rather than reproducing a vanilla chunk NBT schema, and picks
// the simplest one: raw per-entry arrays rather than a re-derived
// palette, repacked into chunk.WritePaletted form only when a section
// is actually sent to a viewer.
const (
	keyChunkX        = "xPos"
	keyChunkZ        = "zPos"
	keyStatus        = "Status"
	keySections      = "sections"
	keySectionY      = "Y"
	keyBlocks        = "blocks"
	keyBiomes        = "biomes"
	keyBlockLight    = "block_light"
	keySkyLight      = "sky_light"
	keyNonAirCount   = "non_air_count"
	keyBlockEntities = "block_entities"
	keyBEX           = "x"
	keyBEZ           = "z"
	keyBEY           = "y"
	keyBEType        = "id"
	keyBEData        = "data"
	keyHeightMaps    = "HeightMaps"
)

// EncodeChunk serializes c into the file-rooted NBT bytes this server
// stores in a region file's chunk slot.
func EncodeChunk(c *chunk.Chunk) ([]byte, error) {
	sections := nbt.NewList(nbt.TagCompound)
	for _, sec := range c.Sections {
		entry := nbt.Compound(map[string]nbt.Value{
			keySectionY:    nbt.Byte(sec.Y),
			keyBlocks:      nbt.IntArray(append([]int32(nil), sec.Blocks...)),
			keyBiomes:      nbt.IntArray(append([]int32(nil), sec.Biomes...)),
			keyBlockLight:  nbt.ByteArray(bytesToInt8(sec.BlockLight)),
			keySkyLight:    nbt.ByteArray(bytesToInt8(sec.SkyLight)),
			keyNonAirCount: nbt.Short(sec.NonAirCount),
		})
		if err := sections.Push(entry); err != nil {
			return nil, fmt.Errorf("level: encode section y=%d: %w", sec.Y, err)
		}
	}

	blockEntities := nbt.NewList(nbt.TagCompound)
	for _, be := range c.BlockEntities {
		entry := nbt.Compound(map[string]nbt.Value{
			keyBEX:    nbt.Byte(be.LocalX),
			keyBEZ:    nbt.Byte(be.LocalZ),
			keyBEY:    nbt.Int(be.Y),
			keyBEType: nbt.Int(be.TypeID),
			keyBEData: nbt.ByteArray(bytesToInt8(be.Data)),
		})
		if err := blockEntities.Push(entry); err != nil {
			return nil, fmt.Errorf("level: encode block entity: %w", err)
		}
	}

	root := nbt.Compound(map[string]nbt.Value{
		keyChunkX:        nbt.Int(c.ChunkX),
		keyChunkZ:        nbt.Int(c.ChunkZ),
		keyStatus:        nbt.String(string(c.Status)),
		keySections:      sections,
		keyBlockEntities: blockEntities,
		keyHeightMaps:    nbt.ByteArray(bytesToInt8(c.HeightMaps)),
	})

	var buf bytes.Buffer
	if err := nbt.WriteNamedRoot(&buf, "", root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeChunk parses the bytes EncodeChunk produces back into a
// chunk.Chunk.
func DecodeChunk(data []byte) (*chunk.Chunk, error) {
	_, root, err := nbt.ReadNamedRoot(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	c := &chunk.Chunk{}

	if v, ok := root.Get(keyChunkX); ok {
		c.ChunkX, _ = v.AsInt()
	}
	if v, ok := root.Get(keyChunkZ); ok {
		c.ChunkZ, _ = v.AsInt()
	}
	if v, ok := root.Get(keyStatus); ok {
		s, _ := v.AsString()
		c.Status = chunk.Status(s)
	}
	if v, ok := root.Get(keyHeightMaps); ok {
		b, _ := v.AsByteArray()
		c.HeightMaps = int8ToBytes(b)
	}

	if v, ok := root.Get(keySections); ok {
		_, elems, _ := v.AsList()
		c.Sections = make([]chunk.Section, 0, len(elems))
		for _, elem := range elems {
			var sec chunk.Section
			if y, ok := elem.Get(keySectionY); ok {
				sec.Y, _ = y.AsByte()
			}
			if b, ok := elem.Get(keyBlocks); ok {
				arr, _ := b.AsIntArray()
				sec.Blocks = append([]int32(nil), arr...)
			}
			if b, ok := elem.Get(keyBiomes); ok {
				arr, _ := b.AsIntArray()
				sec.Biomes = append([]int32(nil), arr...)
			}
			if b, ok := elem.Get(keyBlockLight); ok {
				arr, _ := b.AsByteArray()
				sec.BlockLight = int8ToBytes(arr)
			}
			if b, ok := elem.Get(keySkyLight); ok {
				arr, _ := b.AsByteArray()
				sec.SkyLight = int8ToBytes(arr)
			}
			if n, ok := elem.Get(keyNonAirCount); ok {
				sec.NonAirCount, _ = n.AsShort()
			}
			c.Sections = append(c.Sections, sec)
		}
	}

	if v, ok := root.Get(keyBlockEntities); ok {
		_, elems, _ := v.AsList()
		c.BlockEntities = make([]chunk.BlockEntity, 0, len(elems))
		for _, elem := range elems {
			var be chunk.BlockEntity
			if x, ok := elem.Get(keyBEX); ok {
				be.LocalX, _ = x.AsByte()
			}
			if z, ok := elem.Get(keyBEZ); ok {
				be.LocalZ, _ = z.AsByte()
			}
			if y, ok := elem.Get(keyBEY); ok {
				be.Y, _ = y.AsInt()
			}
			if id, ok := elem.Get(keyBEType); ok {
				be.TypeID, _ = id.AsInt()
			}
			if d, ok := elem.Get(keyBEData); ok {
				arr, _ := d.AsByteArray()
				be.Data = int8ToBytes(arr)
			}
			c.BlockEntities = append(c.BlockEntities, be)
		}
	}

	return c, nil
}

func bytesToInt8(b []byte) []int8 {
	if b == nil {
		return nil
	}
	out := make([]int8, len(b))
	for i, x := range b {
		out[i] = int8(x)
	}
	return out
}

func int8ToBytes(b []int8) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	for i, x := range b {
		out[i] = byte(x)
	}
	return out
}
