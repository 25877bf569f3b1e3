package protocolstate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/chunkymonkey/pkserver/varint"
)

// Handshake is the single packet that starts every connection
// (spec.md §4.6): it carries the intended next state and is never
// valid anywhere but the Waiting/Handshake state.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       int32
}

func DecodeHandshake(payload []byte) (any, error) {
	r := bytes.NewReader(payload)
	pv, _, err := varint.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	addr, err := varint.ReadString(r)
	if err != nil {
		return nil, err
	}
	var port uint16
	if err := readBE16(r, &port); err != nil {
		return nil, err
	}
	next, _, err := varint.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	return Handshake{ProtocolVersion: pv, ServerAddress: addr, ServerPort: port, NextState: next}, nil
}

// StatusRequest carries no fields; the client is simply asking for the
// server-list JSON document.
type StatusRequest struct{}

func DecodeStatusRequest([]byte) (any, error) { return StatusRequest{}, nil }

// PingRequest/PongResponse carry an opaque payload the client expects
// echoed back verbatim (spec.md §8 scenario a).
type PingRequest struct{ Payload int64 }

func DecodePingRequest(payload []byte) (any, error) {
	r := bytes.NewReader(payload)
	var v int64
	if err := readBE64(r, &v); err != nil {
		return nil, err
	}
	return PingRequest{Payload: v}, nil
}

type PongResponse struct{ Payload int64 }

func EncodePongResponse(p PongResponse) []byte {
	var buf bytes.Buffer
	writeBE64(&buf, p.Payload)
	return buf.Bytes()
}

// StatusResponse carries a single JSON status document.
type StatusResponse struct {
	VersionName     string `json:"-"`
	ProtocolVersion int32  `json:"-"`
	MaxPlayers      int    `json:"-"`
	OnlinePlayers   int    `json:"-"`
	Description     string `json:"-"`
	FaviconDataURI  string `json:"-"`
}

type statusResponseJSON struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int32  `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
	Favicon string `json:"favicon,omitempty"`
}

func EncodeStatusResponse(s StatusResponse) ([]byte, error) {
	doc := statusResponseJSON{}
	doc.Version.Name = s.VersionName
	doc.Version.Protocol = s.ProtocolVersion
	doc.Players.Max = s.MaxPlayers
	doc.Players.Online = s.OnlinePlayers
	doc.Description.Text = s.Description
	doc.Favicon = s.FaviconDataURI

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("protocolstate: marshal status response: %w", err)
	}
	var buf bytes.Buffer
	if err := varint.WriteString(&buf, string(body)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoginStart begins authentication with the client's chosen username
// and (client-supplied, offline-mode) UUID.
type LoginStart struct {
	Username string
	UUID     uuid.UUID
}

func DecodeLoginStart(payload []byte) (any, error) {
	r := bytes.NewReader(payload)
	name, err := varint.ReadString(r)
	if err != nil {
		return nil, err
	}
	id, err := varint.ReadUUID(r)
	if err != nil {
		return nil, err
	}
	return LoginStart{Username: name, UUID: id}, nil
}

// LoginAcknowledged finishes the login state and moves the connection
// into configuration.
type LoginAcknowledged struct{}

func DecodeLoginAcknowledged([]byte) (any, error) { return LoginAcknowledged{}, nil }

// EncryptionResponse carries the client's RSA-encrypted shared secret
// and verify token. Decrypting these with the server's private key is
// the out-of-scope key-exchange collaborator's job (spec.md
// Non-goals); this type only models the wire shape.
type EncryptionResponse struct {
	SharedSecretEncrypted []byte
	VerifyTokenEncrypted  []byte
}

func DecodeEncryptionResponse(payload []byte) (any, error) {
	r := bytes.NewReader(payload)
	secret, err := readVarintPrefixedBytes(r)
	if err != nil {
		return nil, err
	}
	token, err := readVarintPrefixedBytes(r)
	if err != nil {
		return nil, err
	}
	return EncryptionResponse{SharedSecretEncrypted: secret, VerifyTokenEncrypted: token}, nil
}

// LoginSuccess finalizes authentication.
type LoginSuccess struct {
	UUID     uuid.UUID
	Username string
}

func EncodeLoginSuccess(p LoginSuccess) ([]byte, error) {
	var buf bytes.Buffer
	if err := varint.WriteUUID(&buf, p.UUID); err != nil {
		return nil, err
	}
	if err := varint.WriteString(&buf, p.Username); err != nil {
		return nil, err
	}
	if err := varint.WriteVarInt(&buf, 0); err != nil { // zero property entries
		return nil, err
	}
	return buf.Bytes(), nil
}

// SetCompression tells the client every subsequent frame uses the
// zlib-threshold scheme (spec.md §8 scenario b).
type SetCompression struct{ Threshold int32 }

func EncodeSetCompression(p SetCompression) []byte {
	var buf bytes.Buffer
	varint.WriteVarInt(&buf, p.Threshold)
	return buf.Bytes()
}

// Disconnect carries a free-text reason (spec.md §7); the wire format
// is a JSON chat-text component regardless of state.
type Disconnect struct{ Reason string }

func EncodeDisconnect(p Disconnect) ([]byte, error) {
	body, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: p.Reason})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := varint.WriteString(&buf, string(body)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ClientInformation is the configuration-state packet carrying
// locale/view-distance/chat preferences; only the fields the chunk
// streaming and chat layers actually consult are modeled.
type ClientInformation struct {
	Locale       string
	ViewDistance int8
}

func DecodeClientInformation(payload []byte) (any, error) {
	r := bytes.NewReader(payload)
	locale, err := varint.ReadString(r)
	if err != nil {
		return nil, err
	}
	var vd [1]byte
	if _, err := io.ReadFull(r, vd[:]); err != nil {
		return nil, err
	}
	return ClientInformation{Locale: locale, ViewDistance: int8(vd[0])}, nil
}

// FinishConfiguration has no body in either direction; it is the
// signal to move into Play.
type FinishConfiguration struct{}

func DecodeFinishConfiguration([]byte) (any, error) { return FinishConfiguration{}, nil }
func EncodeFinishConfiguration() []byte              { return nil }

// KeepAlive carries an opaque challenge ID in both directions (spec.md
// §5's timeout policy correlates outbound challenges with the
// matching inbound echo).
type KeepAlive struct{ ID int64 }

func DecodeKeepAlive(payload []byte) (any, error) {
	r := bytes.NewReader(payload)
	var v int64
	if err := readBE64(r, &v); err != nil {
		return nil, err
	}
	return KeepAlive{ID: v}, nil
}

func EncodeKeepAlive(p KeepAlive) []byte {
	var buf bytes.Buffer
	writeBE64(&buf, p.ID)
	return buf.Bytes()
}

func readVarintPrefixedBytes(r io.Reader) ([]byte, error) {
	br, ok := r.(interface {
		io.Reader
		ReadByte() (byte, error)
	})
	if !ok {
		return nil, fmt.Errorf("protocolstate: reader does not support ReadByte")
	}
	n, _, err := varint.ReadVarInt(br)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	_, err = io.ReadFull(r, out)
	return out, err
}

func readBE16(r io.Reader, v *uint16) error {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	*v = uint16(b[0])<<8 | uint16(b[1])
	return nil
}

func readBE64(r io.Reader, v *int64) error {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	var u uint64
	for _, c := range b {
		u = u<<8 | uint64(c)
	}
	*v = int64(u)
	return nil
}

func writeBE64(w io.Writer, v int64) {
	var b [8]byte
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> uint(56-8*i))
	}
	w.Write(b[:])
}
