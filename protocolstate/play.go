package protocolstate

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/chunkymonkey/pkserver/chunk"
	"github.com/chunkymonkey/pkserver/registry"
	"github.com/chunkymonkey/pkserver/varint"
)

// The Play state carries the bulk of the vanilla protocol's packet
// catalog; building the whole thing is explicitly out of scope
// (spec.md's "gameplay logic" non-goal). This file encodes just the
// handful of Play packets the level/entity/tablist broadcast paths
// need to prove their wiring end to end: chunk streaming, block
// updates, entity spawn/update/remove, and tab list diffs. Where the
// real wire format carries a field this repo has no use for yet
// (entity metadata's per-type value encoding, chat-formatted display
// names, block/sky light arrays), a minimal but well-formed
// placeholder is sent instead and the simplification is called out
// below rather than silently guessed at.

func toChunkPaletteRange(r registry.PaletteRange) chunk.PaletteRange {
	return chunk.PaletteRange{IndirectMin: r.IndirectMin, IndirectMax: r.IndirectMax, DirectBPE: r.DirectBPE}
}

func writeI32(w *bytes.Buffer, v int32) error {
	return binary.Write(w, binary.BigEndian, v)
}

// EncodeLevelChunk serializes a full chunk column: position, the
// pre-encoded heightmaps compound, one paletted block+biome container
// pair per section (spec.md §4.3's bit-exact format), block entities,
// and empty light masks/arrays. Full sky/block light propagation is
// not part of this repo's scope; the light section is present and
// well-formed (zero bits set, zero arrays) so a real client accepts
// the packet, it just renders the chunk fullbright.
func EncodeLevelChunk(c *chunk.Chunk, table registry.IDTable) ([]byte, error) {
	var w bytes.Buffer

	if err := writeI32(&w, c.ChunkX); err != nil {
		return nil, err
	}
	if err := writeI32(&w, c.ChunkZ); err != nil {
		return nil, err
	}
	w.Write(c.HeightMaps)

	var data bytes.Buffer
	blockRange := toChunkPaletteRange(table.BlockPaletteRange())
	biomeRange := toChunkPaletteRange(table.BiomePaletteRange())
	for _, sec := range c.Sections {
		if err := binary.Write(&data, binary.BigEndian, sec.NonAirCount); err != nil {
			return nil, err
		}
		if err := chunk.WritePaletted(&data, sec.Blocks, blockRange); err != nil {
			return nil, err
		}
		if err := chunk.WritePaletted(&data, sec.Biomes, biomeRange); err != nil {
			return nil, err
		}
	}
	if err := varint.WriteVarInt(&w, int32(data.Len())); err != nil {
		return nil, err
	}
	w.Write(data.Bytes())

	if err := varint.WriteVarInt(&w, int32(len(c.BlockEntities))); err != nil {
		return nil, err
	}
	for _, be := range c.BlockEntities {
		packedXZ := byte(be.LocalX&0x0F)<<4 | byte(be.LocalZ&0x0F)
		w.WriteByte(packedXZ)
		if err := binary.Write(&w, binary.BigEndian, int16(be.Y)); err != nil {
			return nil, err
		}
		if err := varint.WriteVarInt(&w, be.TypeID); err != nil {
			return nil, err
		}
		w.Write(be.Data)
	}

	// Light section: empty sky/block masks (no sections carry custom
	// light), empty "all zero" masks, zero arrays of either kind.
	empty := varint.BitSet{}
	for i := 0; i < 4; i++ {
		if err := varint.WriteBitSet(&w, empty); err != nil {
			return nil, err
		}
	}
	if err := varint.WriteVarInt(&w, 0); err != nil {
		return nil, err
	}
	if err := varint.WriteVarInt(&w, 0); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// EncodeForgetLevelChunk serializes the chunk position a
// ForgetLevelChunk tells the client to unload.
func EncodeForgetLevelChunk(chunkX, chunkZ int32) []byte {
	var w bytes.Buffer
	writeI32(&w, chunkX)
	writeI32(&w, chunkZ)
	return w.Bytes()
}

// EncodeBlockUpdate serializes a single-block change: packed position
// followed by the new block state id.
func EncodeBlockUpdate(pos varint.Position, stateID int32) ([]byte, error) {
	var w bytes.Buffer
	if err := varint.WritePosition(&w, pos); err != nil {
		return nil, err
	}
	if err := varint.WriteVarInt(&w, stateID); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// packAngle converts a degrees value to the protocol's byte-angle
// encoding (256 steps per full turn).
func packAngle(degrees float32) byte {
	return byte(int32(degrees*256/360) & 0xFF)
}

// EncodeAddEntity serializes the first-sight spawn packet: id, uuid,
// type, position, orientation, and a velocity of zero (this repo does
// not model entity velocity as a distinct quantity from position
// diffing).
func EncodeAddEntity(id int32, entityUUID uuid.UUID, typeID int32, x, y, z float64, pitch, yaw, headYaw float32) ([]byte, error) {
	var w bytes.Buffer
	if err := varint.WriteVarInt(&w, id); err != nil {
		return nil, err
	}
	if err := varint.WriteUUID(&w, entityUUID); err != nil {
		return nil, err
	}
	if err := varint.WriteVarInt(&w, typeID); err != nil {
		return nil, err
	}
	for _, v := range []float64{x, y, z} {
		if err := binary.Write(&w, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}
	w.WriteByte(packAngle(pitch))
	w.WriteByte(packAngle(yaw))
	w.WriteByte(packAngle(headYaw))
	if err := varint.WriteVarInt(&w, 0); err != nil { // data
		return nil, err
	}
	for i := 0; i < 3; i++ { // velocity x/y/z, always zero
		if err := binary.Write(&w, binary.BigEndian, int16(0)); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// EncodeEntityTeleport serializes a full-precision position/rotation
// sync. The real protocol also offers a compact relative-move variant
// for small deltas; this repo always sends the absolute form, trading
// a few extra bytes per update for one code path instead of two
// (gameplay-tier bandwidth optimization is out of scope).
func EncodeEntityTeleport(id int32, x, y, z float64, pitch, yaw float32, onGround bool) ([]byte, error) {
	var w bytes.Buffer
	if err := varint.WriteVarInt(&w, id); err != nil {
		return nil, err
	}
	for _, v := range []float64{x, y, z} {
		if err := binary.Write(&w, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}
	for _, v := range []float64{0, 0, 0} { // velocity, unused
		if err := binary.Write(&w, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}
	w.WriteByte(packAngle(yaw))
	w.WriteByte(packAngle(pitch))
	if err := varint.WriteBool(&w, onGround); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// EncodeEntityMetadataKeys serializes which metadata keys changed
// without their typed values. A faithful encoding of vanilla entity
// metadata requires a closed per-index type enum maintained alongside
// the rest of the game-data table (gameplay logic, out of scope); this
// records the key names changed so the diffing mechanism
// (entity.Manager.Tick) is observable on the wire without building
// that catalog.
func EncodeEntityMetadataKeys(id int32, keys []string) ([]byte, error) {
	var w bytes.Buffer
	if err := varint.WriteVarInt(&w, id); err != nil {
		return nil, err
	}
	if err := varint.WriteVarInt(&w, int32(len(keys))); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := varint.WriteString(&w, k); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// EncodeRemoveEntities serializes a destroy-entities batch.
func EncodeRemoveEntities(ids []int32) ([]byte, error) {
	var w bytes.Buffer
	if err := varint.WriteVarInt(&w, int32(len(ids))); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := varint.WriteVarInt(&w, id); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// PlayerInfoEntry mirrors tablist.Snapshot without importing package
// tablist, keeping protocolstate free of a dependency on the
// broadcast-source packages it serializes for.
type PlayerInfoEntry struct {
	UUID            uuid.UUID
	Name            string
	Gamemode        int32
	Listed          bool
	Latency         int32
	DisplayName     *string
	ListPriority    int32
	Hat             bool
	InitializedChat bool
}

// playerInfoActionsMask enables all eight actions spec.md §4.11 lists
// (AddPlayer .. UpdateHat, bits 0-7): every broadcast carries the full
// current snapshot rather than a minimal action subset, matching
// spec.md's "send PlayerInfoUpdate with the current snapshot".
const playerInfoActionsMask = 0xFF

// EncodePlayerInfoUpdate serializes the current tab-list snapshot.
// DisplayName is sent as a plain optional string rather than a
// text-component compound (text formatting/NBT-component encoding is
// out of this repo's scope); AddPlayer's player-properties list is
// always empty (skin/cape properties are gameplay-tier data this repo
// never models).
func EncodePlayerInfoUpdate(entries []PlayerInfoEntry) ([]byte, error) {
	var w bytes.Buffer
	if err := varint.WriteVarInt(&w, playerInfoActionsMask); err != nil {
		return nil, err
	}
	if err := varint.WriteVarInt(&w, int32(len(entries))); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := varint.WriteUUID(&w, e.UUID); err != nil {
			return nil, err
		}
		// AddPlayer
		if err := varint.WriteString(&w, e.Name); err != nil {
			return nil, err
		}
		if err := varint.WriteVarInt(&w, 0); err != nil {
			return nil, err
		}
		// InitializeChat: no chat session modeled.
		if err := varint.WriteBool(&w, false); err != nil {
			return nil, err
		}
		// UpdateGamemode
		if err := varint.WriteVarInt(&w, e.Gamemode); err != nil {
			return nil, err
		}
		// UpdateListed
		if err := varint.WriteBool(&w, e.Listed); err != nil {
			return nil, err
		}
		// UpdateLatency
		if err := varint.WriteVarInt(&w, e.Latency); err != nil {
			return nil, err
		}
		// UpdateDisplayName
		present := e.DisplayName != nil
		if err := varint.WriteBool(&w, present); err != nil {
			return nil, err
		}
		if present {
			if err := varint.WriteString(&w, *e.DisplayName); err != nil {
				return nil, err
			}
		}
		// UpdateListPriority
		if err := varint.WriteVarInt(&w, e.ListPriority); err != nil {
			return nil, err
		}
		// UpdateHat
		if err := varint.WriteBool(&w, e.Hat); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// EncodePlayerInfoRemove serializes a tab-list removal batch.
func EncodePlayerInfoRemove(uuids []uuid.UUID) ([]byte, error) {
	var w bytes.Buffer
	if err := varint.WriteVarInt(&w, int32(len(uuids))); err != nil {
		return nil, err
	}
	for _, id := range uuids {
		if err := varint.WriteUUID(&w, id); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}
