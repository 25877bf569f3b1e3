// Package protocolstate implements the connection state machine
// (spec.md §4.6): legal transitions between handshake, status, login,
// configuration and play, and the state-gated packet decode tables
// that keep the same numeric ID from meaning two things at once.
package protocolstate

import (
	"errors"
	"fmt"

	"github.com/chunkymonkey/pkserver/registry"
)

// ErrInvalidNextState is returned when a Handshake packet's next_state
// field names anything other than Status (1), Login (2) or Transfer (3).
var ErrInvalidNextState = errors.New("protocolstate: invalid next_state in handshake")

// ErrUnexpectedPacket is returned when a decoded packet's symbolic
// name has no entry in the current state's table — either an unknown
// ID, or one that is valid in another state only.
type ErrUnexpectedPacket struct {
	State     registry.State
	Direction registry.Direction
	ID        int32
}

func (e ErrUnexpectedPacket) Error() string {
	return fmt.Sprintf("protocolstate: packet id 0x%02x not valid in state %s", e.ID, e.State)
}

// NextState resolves a Handshake packet's next_state field (1=Status,
// 2=Login; 3=Transfer is accepted and treated as Login since this
// repo never implements a Transfer-specific flow) to the following
// protocol state, per spec.md §4.6's handshake rule.
func NextState(nextState int32) (registry.State, error) {
	switch nextState {
	case 1:
		return registry.StateStatus, nil
	case 2, 3:
		return registry.StateLogin, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidNextState, nextState)
	}
}

// Decoder turns a packet payload into a decoded value. Decoders never
// see the packet ID; dispatch has already resolved the symbolic name
// from the (state, direction, id) triple via the registry.
type Decoder func(payload []byte) (any, error)

// Table maps a packet's symbolic name (within one state and
// direction) to its decoder.
type Table map[string]Decoder

// Dispatcher resolves an incoming raw packet ID to a symbolic name
// using an injected registry.IDTable, then looks up the decoder for
// the connection's current state, enforcing state-gating: an ID that
// means something in a different state is rejected rather than
// silently matched.
type Dispatcher struct {
	table    registry.IDTable
	decoders map[registry.State]Table
}

// NewDispatcher builds a Dispatcher from a per-state decoder table map.
func NewDispatcher(idTable registry.IDTable, decoders map[registry.State]Table) *Dispatcher {
	return &Dispatcher{table: idTable, decoders: decoders}
}

// Decode resolves and decodes a serverbound packet for the given
// state, returning ErrUnexpectedPacket if the ID/state combination is
// not registered.
func (d *Dispatcher) Decode(state registry.State, id int32, payload []byte) (name string, value any, err error) {
	name, ok := d.table.PacketName(state, registry.Serverbound, id)
	if !ok {
		return "", nil, ErrUnexpectedPacket{State: state, Direction: registry.Serverbound, ID: id}
	}

	table, ok := d.decoders[state]
	if !ok {
		return name, nil, ErrUnexpectedPacket{State: state, Direction: registry.Serverbound, ID: id}
	}
	decode, ok := table[name]
	if !ok {
		return name, nil, ErrUnexpectedPacket{State: state, Direction: registry.Serverbound, ID: id}
	}

	value, err = decode(payload)
	return name, value, err
}
