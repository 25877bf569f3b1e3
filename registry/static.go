package registry

type packetKey struct {
	state State
	dir   Direction
	name  string
}

type idKey struct {
	state State
	dir   Direction
	id    int32
}

// Static is a fixed in-memory IDTable, standing in for the
// code-generation collaborator's output (spec.md explicitly keeps the
// generator itself out of scope). The table below carries one
// representative numeric ID per packet name this repo's connection
// and streaming layers actually exchange; a real deployment would
// regenerate this table per game-protocol version instead of editing
// it by hand.
type Static struct {
	byName map[packetKey]int32
	byID   map[idKey]string
	blocks PaletteRange
	biomes PaletteRange
	air    map[int32]bool
}

// NewStatic builds the default table described above.
func NewStatic() *Static {
	s := &Static{
		byName: make(map[packetKey]int32),
		byID:   make(map[idKey]string),
		blocks: PaletteRange{IndirectMin: 4, IndirectMax: 8, DirectBPE: 15},
		biomes: PaletteRange{IndirectMin: 1, IndirectMax: 3, DirectBPE: 6},
		air:    map[int32]bool{0: true},
	}

	add := func(state State, dir Direction, name string, id int32) {
		s.byName[packetKey{state, dir, name}] = id
		s.byID[idKey{state, dir, id}] = name
	}

	add(StateHandshake, Serverbound, "handshake", 0x00)

	add(StateStatus, Serverbound, "status_request", 0x00)
	add(StateStatus, Serverbound, "ping_request", 0x01)
	add(StateStatus, Clientbound, "status_response", 0x00)
	add(StateStatus, Clientbound, "pong_response", 0x01)

	add(StateLogin, Serverbound, "login_start", 0x00)
	add(StateLogin, Serverbound, "encryption_response", 0x01)
	add(StateLogin, Serverbound, "login_acknowledged", 0x03)
	add(StateLogin, Clientbound, "disconnect", 0x00)
	add(StateLogin, Clientbound, "encryption_request", 0x01)
	add(StateLogin, Clientbound, "login_success", 0x02)
	add(StateLogin, Clientbound, "set_compression", 0x03)

	add(StateConfiguration, Serverbound, "client_information", 0x00)
	add(StateConfiguration, Serverbound, "finish_configuration", 0x03)
	add(StateConfiguration, Serverbound, "keep_alive", 0x04)
	add(StateConfiguration, Clientbound, "disconnect", 0x02)
	add(StateConfiguration, Clientbound, "finish_configuration", 0x03)
	add(StateConfiguration, Clientbound, "keep_alive", 0x04)
	add(StateConfiguration, Clientbound, "registry_data", 0x07)

	add(StatePlay, Serverbound, "keep_alive", 0x1A)
	add(StatePlay, Serverbound, "chat_message", 0x06)
	add(StatePlay, Serverbound, "player_position", 0x1D)

	add(StatePlay, Clientbound, "keep_alive", 0x27)
	add(StatePlay, Clientbound, "chunk_data", 0x28)
	add(StatePlay, Clientbound, "forget_level_chunk", 0x21)
	add(StatePlay, Clientbound, "block_update", 0x09)
	add(StatePlay, Clientbound, "disconnect", 0x1E)
	add(StatePlay, Clientbound, "player_info_update", 0x3F)
	add(StatePlay, Clientbound, "player_info_remove", 0x3E)
	add(StatePlay, Clientbound, "spawn_entity", 0x01)
	add(StatePlay, Clientbound, "remove_entities", 0x47)
	add(StatePlay, Clientbound, "entity_position_sync", 0x2E)
	add(StatePlay, Clientbound, "set_entity_metadata", 0x58)

	return s
}

func (s *Static) PacketID(state State, dir Direction, name string) (int32, bool) {
	id, ok := s.byName[packetKey{state, dir, name}]
	return id, ok
}

func (s *Static) PacketName(state State, dir Direction, id int32) (string, bool) {
	name, ok := s.byID[idKey{state, dir, id}]
	return name, ok
}

func (s *Static) BlockPaletteRange() PaletteRange { return s.blocks }
func (s *Static) BiomePaletteRange() PaletteRange { return s.biomes }

func (s *Static) IsAirLike(blockStateID int32) bool { return s.air[blockStateID] }
