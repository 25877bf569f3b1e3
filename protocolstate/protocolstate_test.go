package protocolstate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkymonkey/pkserver/registry"
	"github.com/chunkymonkey/pkserver/varint"
)

func encodeHandshakeForTest(h Handshake) ([]byte, error) {
	var buf bytes.Buffer
	if err := varint.WriteVarInt(&buf, h.ProtocolVersion); err != nil {
		return nil, err
	}
	if err := varint.WriteString(&buf, h.ServerAddress); err != nil {
		return nil, err
	}
	portBytes := []byte{byte(h.ServerPort >> 8), byte(h.ServerPort)}
	buf.Write(portBytes)
	if err := varint.WriteVarInt(&buf, h.NextState); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func TestNextStateMapping(t *testing.T) {
	s, err := NextState(1)
	require.NoError(t, err)
	assert.Equal(t, registry.StateStatus, s)

	s, err = NextState(2)
	require.NoError(t, err)
	assert.Equal(t, registry.StateLogin, s)

	_, err = NextState(99)
	assert.ErrorIs(t, err, ErrInvalidNextState)
}

func TestDispatcherStateGating(t *testing.T) {
	table := registry.NewStatic()
	decoders := map[registry.State]Table{
		registry.StateStatus: {
			"status_request": DecodeStatusRequest,
			"ping_request":    DecodePingRequest,
		},
		registry.StateLogin: {
			"login_start": DecodeLoginStart,
		},
	}
	d := NewDispatcher(table, decoders)

	name, val, err := d.Decode(registry.StateStatus, 0x00, nil)
	require.NoError(t, err)
	assert.Equal(t, "status_request", name)
	assert.Equal(t, StatusRequest{}, val)

	// id 0x00 names no serverbound packet in the play state; the
	// dispatcher must not satisfy this lookup against the status
	// table.
	_, _, err = d.Decode(registry.StatePlay, 0x00, nil)
	var unexpected ErrUnexpectedPacket
	assert.ErrorAs(t, err, &unexpected)
}

func TestHandshakeRoundTrip(t *testing.T) {
	r := func() []byte {
		enc, err := encodeHandshakeForTest(Handshake{
			ProtocolVersion: 767,
			ServerAddress:   "localhost",
			ServerPort:      25565,
			NextState:       1,
		})
		require.NoError(t, err)
		return enc
	}()

	got, err := DecodeHandshake(r)
	require.NoError(t, err)
	hs, ok := got.(Handshake)
	require.True(t, ok)
	assert.Equal(t, int32(767), hs.ProtocolVersion)
	assert.Equal(t, "localhost", hs.ServerAddress)
	assert.Equal(t, uint16(25565), hs.ServerPort)
	assert.Equal(t, int32(1), hs.NextState)
}

func TestPingPongEchoesPayload(t *testing.T) {
	payload := int64(0x0123456789ABCDEF)
	var buf [8]byte
	u := uint64(payload)
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> uint(56-8*i))
	}
	got, err := DecodePingRequest(buf[:])
	require.NoError(t, err)
	ping := got.(PingRequest)
	assert.Equal(t, payload, ping.Payload)

	pong := EncodePongResponse(PongResponse{Payload: ping.Payload})
	assert.Equal(t, buf[:], pong)
}
