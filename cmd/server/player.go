package main

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chunkymonkey/pkserver/chunk"
	"github.com/chunkymonkey/pkserver/connection"
	"github.com/chunkymonkey/pkserver/entity"
	"github.com/chunkymonkey/pkserver/frame"
	"github.com/chunkymonkey/pkserver/level"
	"github.com/chunkymonkey/pkserver/protocolstate"
	"github.com/chunkymonkey/pkserver/registry"
	"github.com/chunkymonkey/pkserver/tablist"
	"github.com/chunkymonkey/pkserver/varint"
)

// playerSink is the one ViewerSink implementation this server has: it
// satisfies level.ViewerSink, entity.ViewerSink and tablist.ViewerSink
// by translating each package's broadcast decision into a wire packet
// through protocolstate and handing it to the connection's Sender.
// Level/entity/tablist never see a connection.Sender directly; this
// type is the only thing that bridges "what to send" to "how to send
// it", per the boundary those packages' own doc comments describe.
type playerSink struct {
	sender connection.Sender
	table  registry.IDTable
	log    *logrus.Entry
}

func (p *playerSink) send(name string, data []byte) {
	id, ok := p.table.PacketID(registry.StatePlay, registry.Clientbound, name)
	if !ok {
		p.log.WithField("packet", name).Warn("no registry id for outbound packet")
		return
	}
	if err := p.sender.Send(frame.RawPacket{ID: id, Data: data}); err != nil {
		p.log.WithError(err).Debug("send failed, connection likely closing")
	}
}

// SendChunk implements level.ViewerSink.
func (p *playerSink) SendChunk(pos level.ChunkPosition, c *chunk.Chunk) {
	data, err := protocolstate.EncodeLevelChunk(c, p.table)
	if err != nil {
		p.log.WithError(err).Warn("encode chunk_data failed")
		return
	}
	p.send("chunk_data", data)
}

// ForgetChunk implements level.ViewerSink.
func (p *playerSink) ForgetChunk(pos level.ChunkPosition) {
	p.send("forget_level_chunk", protocolstate.EncodeForgetLevelChunk(pos.ChunkX, pos.ChunkZ))
}

// SendBlockChange implements level.ViewerSink.
func (p *playerSink) SendBlockChange(pos level.BlockPos, b level.Block) {
	wire := varint.Position{X: pos.X, Y: pos.Y, Z: pos.Z}
	data, err := protocolstate.EncodeBlockUpdate(wire, b.StateID)
	if err != nil {
		p.log.WithError(err).Warn("encode block_update failed")
		return
	}
	p.send("block_update", data)
}

// SpawnEntity implements entity.ViewerSink.
func (p *playerSink) SpawnEntity(e entity.Entity) {
	data, err := protocolstate.EncodeAddEntity(int32(e.ID), e.UUID, e.TypeID,
		e.Position.X, e.Position.Y, e.Position.Z, e.Rotation.Pitch, e.Rotation.Yaw, e.Rotation.Yaw)
	if err != nil {
		p.log.WithError(err).Warn("encode spawn_entity failed")
		return
	}
	p.send("spawn_entity", data)
}

// UpdateEntity implements entity.ViewerSink. Position/rotation changes
// become one absolute teleport packet; metadata changes become a
// second, independent packet naming only which keys moved (see
// protocolstate.EncodeEntityMetadataKeys's doc comment for why no
// typed value is carried).
func (p *playerSink) UpdateEntity(e entity.Entity, posChanged, rotChanged bool, changedMeta []string) {
	if posChanged || rotChanged {
		data, err := protocolstate.EncodeEntityTeleport(int32(e.ID),
			e.Position.X, e.Position.Y, e.Position.Z, e.Rotation.Pitch, e.Rotation.Yaw, true)
		if err != nil {
			p.log.WithError(err).Warn("encode entity_position_sync failed")
		} else {
			p.send("entity_position_sync", data)
		}
	}
	if len(changedMeta) > 0 {
		data, err := protocolstate.EncodeEntityMetadataKeys(int32(e.ID), changedMeta)
		if err != nil {
			p.log.WithError(err).Warn("encode set_entity_metadata failed")
			return
		}
		p.send("set_entity_metadata", data)
	}
}

// DestroyEntity implements entity.ViewerSink.
func (p *playerSink) DestroyEntity(id entity.ID) {
	data, err := protocolstate.EncodeRemoveEntities([]int32{int32(id)})
	if err != nil {
		p.log.WithError(err).Warn("encode remove_entities failed")
		return
	}
	p.send("remove_entities", data)
}

// PlayerInfoUpdate implements tablist.ViewerSink.
func (p *playerSink) PlayerInfoUpdate(entries []tablist.Snapshot) {
	mirrored := make([]protocolstate.PlayerInfoEntry, len(entries))
	for i, e := range entries {
		mirrored[i] = protocolstate.PlayerInfoEntry{
			UUID:            e.UUID,
			Name:            e.Name,
			Gamemode:        e.Gamemode,
			Listed:          e.Listed,
			Latency:         e.Latency,
			DisplayName:     e.DisplayName,
			ListPriority:    e.ListPriority,
			Hat:             e.Hat,
			InitializedChat: e.InitializedChat,
		}
	}
	data, err := protocolstate.EncodePlayerInfoUpdate(mirrored)
	if err != nil {
		p.log.WithError(err).Warn("encode player_info_update failed")
		return
	}
	p.send("player_info_update", data)
}

// PlayerInfoRemove implements tablist.ViewerSink.
func (p *playerSink) PlayerInfoRemove(uuids []uuid.UUID) {
	data, err := protocolstate.EncodePlayerInfoRemove(uuids)
	if err != nil {
		p.log.WithError(err).Warn("encode player_info_remove failed")
		return
	}
	p.send("player_info_remove", data)
}
