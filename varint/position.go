package varint

import (
	"encoding/binary"
	"io"

	"github.com/google/uuid"
)

// Position is a packed block coordinate: one i64 laid out as
// x:26 | z:26 | y:12, matching the vanilla protocol's block-position
// encoding.
type Position struct {
	X, Z int32
	Y    int32
}

// Pack reinterprets a Position as the wire's single i64 value.
func (p Position) Pack() int64 {
	x := uint64(uint32(p.X)) & 0x3ffffff
	z := uint64(uint32(p.Z)) & 0x3ffffff
	y := uint64(uint32(p.Y)) & 0xfff
	return int64((x << 38) | (z << 12) | y)
}

// UnpackPosition inverts Pack using sign-extending arithmetic shifts,
// per spec: x = v>>38, y = (v<<52)>>52, z = (v<<26)>>38.
func UnpackPosition(v int64) Position {
	x := int32(v >> 38)
	y := int32((v << 52) >> 52)
	z := int32((v << 26) >> 38)
	return Position{X: x, Y: y, Z: z}
}

// ReadPosition reads the packed i64 and unpacks it.
func ReadPosition(r io.Reader) (Position, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Position{}, err
	}
	return UnpackPosition(int64(binary.BigEndian.Uint64(buf[:]))), nil
}

// WritePosition packs and writes a Position.
func WritePosition(w io.Writer, p Position) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(p.Pack()))
	_, err := w.Write(buf[:])
	return err
}

// ReadUUID reads the 16 raw bytes of a UUID.
func ReadUUID(r io.Reader) (uuid.UUID, error) {
	var u uuid.UUID
	_, err := io.ReadFull(r, u[:])
	return u, err
}

// WriteUUID writes the 16 raw bytes of a UUID.
func WriteUUID(w io.Writer, u uuid.UUID) error {
	_, err := w.Write(u[:])
	return err
}
