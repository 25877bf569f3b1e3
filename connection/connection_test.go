package connection

import (
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkymonkey/pkserver/config"
	"github.com/chunkymonkey/pkserver/frame"
	"github.com/chunkymonkey/pkserver/protocolstate"
	"github.com/chunkymonkey/pkserver/registry"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(nopWriter{})
	return l
}

func TestSendAndReadPacketRoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	c := New(serverConn, registry.NewStatic(), testLogger())
	defer c.Close()

	pkt := frame.RawPacket{ID: 7, Data: []byte("payload")}
	go func() {
		require.NoError(t, c.Send(pkt))
	}()

	got, err := frame.Uncompressed{}.ReadPacket(clientConn)
	require.NoError(t, err)
	assert.Equal(t, pkt.ID, got.ID)
	assert.Equal(t, pkt.Data, got.Data)
}

func TestSetCompressionSwapsHandler(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	c := New(serverConn, registry.NewStatic(), testLogger())
	defer c.Close()
	c.SetCompression(16, 6)

	pkt := frame.RawPacket{ID: 2, Data: []byte("0123456789abcdefghijklmnopqrstuvwxyz")}
	go func() {
		require.NoError(t, c.Send(pkt))
	}()

	got, err := frame.NewZlib(16, 6).ReadPacket(clientConn)
	require.NoError(t, err)
	assert.Equal(t, pkt.ID, got.ID)
	assert.Equal(t, pkt.Data, got.Data)
}

func TestCloseStopsWriterAndRejectsSend(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	c := New(serverConn, registry.NewStatic(), testLogger())
	require.NoError(t, c.Close())

	err := c.Send(frame.RawPacket{ID: 1})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestKeepAliveLifecycle(t *testing.T) {
	table := registry.NewStatic()
	ka := NewKeepAlive(table, 30*time.Second, 10*time.Second)

	now := time.Now()
	assert.False(t, ka.Dead(now))

	pkt, due := ka.DueChallenge(now.Add(11 * time.Second))
	require.True(t, due)
	assert.NotZero(t, pkt.ID)

	decoded, err := protocolstate.DecodeKeepAlive(pkt.Data)
	require.NoError(t, err)
	ka.NoteChallengeAnswer(decoded.(protocolstate.KeepAlive).ID)

	assert.False(t, ka.Dead(now.Add(15 * time.Second)))
}

func TestKeepAliveDeadAfterTimeout(t *testing.T) {
	ka := NewKeepAlive(registry.NewStatic(), 30*time.Second, 10*time.Second)
	now := time.Now()
	assert.True(t, ka.Dead(now.Add(31*time.Second)))
}

func TestStatusResponderPong(t *testing.T) {
	table := registry.NewStatic()
	responder := NewStatusResponder(table, config.Default(), 767, "1.21.1", func() int { return 3 })

	pkt, err := responder.HandlePingRequest(protocolstate.PingRequest{Payload: 0x0123456789ABCDEF})
	require.NoError(t, err)

	decoded, err := protocolstate.DecodePingRequest(pkt.Data)
	require.NoError(t, err)
	assert.Equal(t, int64(0x0123456789ABCDEF), decoded.(protocolstate.PingRequest).Payload)
}

func TestStatusResponderStatusResponse(t *testing.T) {
	table := registry.NewStatic()
	responder := NewStatusResponder(table, config.Default(), 767, "1.21.1", func() int { return 5 })

	pkt, err := responder.HandleStatusRequest()
	require.NoError(t, err)
	assert.NotEmpty(t, pkt.Data)
}
