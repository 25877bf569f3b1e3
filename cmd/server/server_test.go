package main

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkymonkey/pkserver/config"
	"github.com/chunkymonkey/pkserver/frame"
	"github.com/chunkymonkey/pkserver/protocolstate"
	"github.com/chunkymonkey/pkserver/registry"
	"github.com/chunkymonkey/pkserver/varint"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(nopWriter{})
	return l
}

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.WorldRoot = t.TempDir()
	cfg.CompressionThreshold = 0

	srv, err := NewServer(cfg, testLogger())
	require.NoError(t, err)
	return srv
}

func encodeHandshake(t *testing.T, table registry.IDTable, nextState int32) frame.RawPacket {
	t.Helper()
	id, ok := table.PacketID(registry.StateHandshake, registry.Serverbound, "handshake")
	require.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, varint.WriteVarInt(&buf, 767))
	require.NoError(t, varint.WriteString(&buf, "localhost"))
	buf.Write([]byte{0x63, 0xDD}) // port, irrelevant to the server
	require.NoError(t, varint.WriteVarInt(&buf, nextState))
	return frame.RawPacket{ID: id, Data: buf.Bytes()}
}

func encodeLoginStart(t *testing.T, table registry.IDTable, username string, id uuid.UUID) frame.RawPacket {
	t.Helper()
	pktID, ok := table.PacketID(registry.StateLogin, registry.Serverbound, "login_start")
	require.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, varint.WriteString(&buf, username))
	require.NoError(t, varint.WriteUUID(&buf, id))
	return frame.RawPacket{ID: pktID, Data: buf.Bytes()}
}

func encodeLoginAcknowledged(t *testing.T, table registry.IDTable) frame.RawPacket {
	t.Helper()
	id, ok := table.PacketID(registry.StateLogin, registry.Serverbound, "login_acknowledged")
	require.True(t, ok)
	return frame.RawPacket{ID: id}
}

func encodeClientInformation(t *testing.T, table registry.IDTable) frame.RawPacket {
	t.Helper()
	id, ok := table.PacketID(registry.StateConfiguration, registry.Serverbound, "client_information")
	require.True(t, ok)

	var buf bytes.Buffer
	require.NoError(t, varint.WriteString(&buf, "en_us"))
	buf.WriteByte(10)
	return frame.RawPacket{ID: id, Data: buf.Bytes()}
}

func encodeFinishConfiguration(t *testing.T, table registry.IDTable) frame.RawPacket {
	t.Helper()
	id, ok := table.PacketID(registry.StateConfiguration, registry.Serverbound, "finish_configuration")
	require.True(t, ok)
	return frame.RawPacket{ID: id}
}

// TestHandshakeStatusRoundTrip drives a Handshake into Status and
// expects a status response followed by a pong, exactly as the
// vanilla server-list ping flow does (spec.md §8 scenario a).
func TestHandshakeStatusRoundTrip(t *testing.T) {
	srv := testServer(t)
	table := srv.table

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	go srv.handleConnection(serverConn)

	require.NoError(t, frame.Uncompressed{}.WritePacket(clientConn, encodeHandshake(t, table, 1)))

	reqID, ok := table.PacketID(registry.StateStatus, registry.Serverbound, "status_request")
	require.True(t, ok)
	require.NoError(t, frame.Uncompressed{}.WritePacket(clientConn, frame.RawPacket{ID: reqID}))

	resp, err := frame.Uncompressed{}.ReadPacket(clientConn)
	require.NoError(t, err)
	respID, ok := table.PacketID(registry.StateStatus, registry.Clientbound, "status_response")
	require.True(t, ok)
	assert.Equal(t, respID, resp.ID)
	assert.NotEmpty(t, resp.Data)

	pingID, ok := table.PacketID(registry.StateStatus, registry.Serverbound, "ping_request")
	require.True(t, ok)
	require.NoError(t, frame.Uncompressed{}.WritePacket(clientConn, frame.RawPacket{
		ID:   pingID,
		Data: protocolstate.EncodeKeepAlive(protocolstate.KeepAlive{ID: 42}),
	}))

	pong, err := frame.Uncompressed{}.ReadPacket(clientConn)
	require.NoError(t, err)
	pongID, ok := table.PacketID(registry.StateStatus, registry.Clientbound, "pong_response")
	require.True(t, ok)
	assert.Equal(t, pongID, pong.ID)
}

// TestLoginThroughConfigurationReachesPlay drives a full
// Login -> Configuration handshake and confirms the connection is
// registered as a session once Play begins, then that closing the
// client socket eventually unregisters it (spec.md §4.14's session
// lifecycle).
func TestLoginThroughConfigurationReachesPlay(t *testing.T) {
	srv := testServer(t)
	table := srv.table

	serverConn, clientConn := net.Pipe()
	go srv.handleConnection(serverConn)

	require.NoError(t, frame.Uncompressed{}.WritePacket(clientConn, encodeHandshake(t, table, 2)))

	playerID := uuid.New()
	require.NoError(t, frame.Uncompressed{}.WritePacket(clientConn, encodeLoginStart(t, table, "Notch", playerID)))

	success, err := frame.Uncompressed{}.ReadPacket(clientConn)
	require.NoError(t, err)
	successID, ok := table.PacketID(registry.StateLogin, registry.Clientbound, "login_success")
	require.True(t, ok)
	assert.Equal(t, successID, success.ID)

	require.NoError(t, frame.Uncompressed{}.WritePacket(clientConn, encodeLoginAcknowledged(t, table)))
	require.NoError(t, frame.Uncompressed{}.WritePacket(clientConn, encodeClientInformation(t, table)))

	finish, err := frame.Uncompressed{}.ReadPacket(clientConn)
	require.NoError(t, err)
	finishID, ok := table.PacketID(registry.StateConfiguration, registry.Clientbound, "finish_configuration")
	require.True(t, ok)
	assert.Equal(t, finishID, finish.ID)

	require.NoError(t, frame.Uncompressed{}.WritePacket(clientConn, encodeFinishConfiguration(t, table)))

	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		_, ok := srv.sessions[playerID]
		return ok
	}, time.Second, 5*time.Millisecond, "player never registered as a session")

	clientConn.Close()

	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		_, ok := srv.sessions[playerID]
		return !ok
	}, time.Second, 5*time.Millisecond, "session never cleaned up after disconnect")
}

// TestInvalidUsernameIsDisconnected checks that a malformed username
// is rejected before any session or world state is touched.
func TestInvalidUsernameIsDisconnected(t *testing.T) {
	srv := testServer(t)
	table := srv.table

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	go srv.handleConnection(serverConn)

	require.NoError(t, frame.Uncompressed{}.WritePacket(clientConn, encodeHandshake(t, table, 2)))
	require.NoError(t, frame.Uncompressed{}.WritePacket(clientConn, encodeLoginStart(t, table, "a", uuid.New())))

	disconnect, err := frame.Uncompressed{}.ReadPacket(clientConn)
	require.NoError(t, err)
	disconnectID, ok := table.PacketID(registry.StateLogin, registry.Clientbound, "disconnect")
	require.True(t, ok)
	assert.Equal(t, disconnectID, disconnect.ID)
}

// TestSetCompressionPacketArrivesUncompressed exercises the exact
// race the enqueue-time handler snapshot in connection.Sender guards
// against (spec.md §8 scenario b): the Set Compression packet itself
// must be readable with the plain Uncompressed handler, and every
// packet after it must use the compressed one.
func TestSetCompressionPacketArrivesUncompressed(t *testing.T) {
	cfg := config.Default()
	cfg.WorldRoot = t.TempDir()
	cfg.CompressionThreshold = 64
	cfg.CompressionLevel = 6

	srv, err := NewServer(cfg, testLogger())
	require.NoError(t, err)
	table := srv.table

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	go srv.handleConnection(serverConn)

	require.NoError(t, frame.Uncompressed{}.WritePacket(clientConn, encodeHandshake(t, table, 2)))
	require.NoError(t, frame.Uncompressed{}.WritePacket(clientConn, encodeLoginStart(t, table, "Notch", uuid.New())))

	setCompression, err := frame.Uncompressed{}.ReadPacket(clientConn)
	require.NoError(t, err)
	setCompressionID, ok := table.PacketID(registry.StateLogin, registry.Clientbound, "set_compression")
	require.True(t, ok)
	assert.Equal(t, setCompressionID, setCompression.ID)

	success, err := frame.NewZlib(cfg.CompressionThreshold, cfg.CompressionLevel).ReadPacket(clientConn)
	require.NoError(t, err)
	successID, ok := table.PacketID(registry.StateLogin, registry.Clientbound, "login_success")
	require.True(t, ok)
	assert.Equal(t, successID, success.ID)
}
