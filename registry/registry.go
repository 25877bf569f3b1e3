// Package registry models the version-dependent data the protocol
// core treats as opaque: numeric packet IDs, paletted-container bit
// ranges, and the air-like block set. None of it is derived
// algorithmically here — it is supplied by an IDTable implementation,
// standing in for a code-generation step this repo does not build
// (spec.md names this out of scope; the core only consumes its
// output through the interfaces below).
package registry

// State names one leg of the connection state machine. The same
// numeric packet ID can mean different things in different states, so
// every lookup is always state-gated.
type State int

const (
	StateHandshake State = iota
	StateStatus
	StateLogin
	StateConfiguration
	StatePlay
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateStatus:
		return "status"
	case StateLogin:
		return "login"
	case StateConfiguration:
		return "configuration"
	case StatePlay:
		return "play"
	default:
		return "unknown"
	}
}

// Direction distinguishes client-to-server from server-to-client
// packets, since the two directions use independent ID spaces within
// a state.
type Direction int

const (
	Serverbound Direction = iota
	Clientbound
)

// PaletteRange mirrors chunk.PaletteRange without importing the chunk
// package, keeping registry free of a dependency on the wire-codec
// packages it configures.
type PaletteRange struct {
	IndirectMin uint8
	IndirectMax uint8
	DirectBPE   uint8
}

// IDTable is the injected source of truth for every version-coupled
// constant the protocol core needs. Packet IDs are looked up by
// symbolic name so call sites never pattern-match on a bare integer.
type IDTable interface {
	// PacketID returns the numeric ID for a named packet in the given
	// state and direction, or ok=false if unknown.
	PacketID(state State, dir Direction, name string) (id int32, ok bool)

	// PacketName is the inverse lookup, used by the decoder dispatch
	// table to name an incoming numeric ID for logging/errors.
	PacketName(state State, dir Direction, id int32) (name string, ok bool)

	// BlockPaletteRange and BiomePaletteRange supply the bpe ranges a
	// chunk section's paletted containers are written with.
	BlockPaletteRange() PaletteRange
	BiomePaletteRange() PaletteRange

	// IsAirLike reports whether a raw block state ID should be
	// excluded from a section's non-air count and skylight
	// propagation seeding.
	IsAirLike(blockStateID int32) bool
}
