package connection

import (
	"github.com/chunkymonkey/pkserver/config"
	"github.com/chunkymonkey/pkserver/frame"
	"github.com/chunkymonkey/pkserver/protocolstate"
	"github.com/chunkymonkey/pkserver/registry"
)

// StatusResponder answers the Status-state request/ping pair (spec.md
// §8 scenario a) using the server's configured MOTD text/icon and a
// live player-count callback, without touching any Play-state
// machinery.
type StatusResponder struct {
	table           registry.IDTable
	cfg             config.Config
	protocolVersion int32
	versionName     string
	onlineCount     func() int
}

// NewStatusResponder builds a responder bound to one config snapshot.
// onlineCount is called fresh for every Status Request so the reported
// player count is always current.
func NewStatusResponder(table registry.IDTable, cfg config.Config, protocolVersion int32, versionName string, onlineCount func() int) *StatusResponder {
	return &StatusResponder{
		table:           table,
		cfg:             cfg,
		protocolVersion: protocolVersion,
		versionName:     versionName,
		onlineCount:     onlineCount,
	}
}

// HandleStatusRequest builds the Status Response RawPacket.
func (s *StatusResponder) HandleStatusRequest() (frame.RawPacket, error) {
	id, ok := s.table.PacketID(registry.StateStatus, registry.Clientbound, "status_response")
	if !ok {
		return frame.RawPacket{}, ErrMissingPacketID
	}

	online := 0
	if s.onlineCount != nil {
		online = s.onlineCount()
	}

	data, err := protocolstate.EncodeStatusResponse(protocolstate.StatusResponse{
		VersionName:     s.versionName,
		ProtocolVersion: s.protocolVersion,
		MaxPlayers:      s.cfg.MaxPlayers,
		OnlinePlayers:   online,
		Description:     s.cfg.MOTDText,
		FaviconDataURI:  s.cfg.MOTDIconBase64,
	})
	if err != nil {
		return frame.RawPacket{}, err
	}
	return frame.RawPacket{ID: id, Data: data}, nil
}

// HandlePingRequest echoes the ping payload verbatim as a Pong
// Response, per spec.md §8 scenario a.
func (s *StatusResponder) HandlePingRequest(ping protocolstate.PingRequest) (frame.RawPacket, error) {
	id, ok := s.table.PacketID(registry.StateStatus, registry.Clientbound, "pong_response")
	if !ok {
		return frame.RawPacket{}, ErrMissingPacketID
	}
	data := protocolstate.EncodePongResponse(protocolstate.PongResponse{Payload: ping.Payload})
	return frame.RawPacket{ID: id, Data: data}, nil
}
