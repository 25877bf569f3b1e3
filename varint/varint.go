// Package varint implements the wire-level codec primitives used
// throughout the protocol: varint/varlong, length-prefixed strings,
// strict booleans, options, packed block positions, UUIDs and bitsets.
//
// Every encoder/decoder pair is symmetric and operates directly on a
// byte sink/source, following the read/write pairing style of a
// reflection-free packet serializer: one exported ReadX next to one
// exported WriteX, both taking an io.Reader/io.Writer plus any fixed
// arguments, so callers never have to know field order to get a field
// wrong.
package varint

import (
	"errors"
	"io"
	"unicode/utf8"
)

// Sentinel errors. Named the way teacher's proto/serialize.go names
// its packetization errors: one var per failure mode, no wrapping
// needed at this layer since callers add context themselves.
var (
	ErrVarIntTooLong  = errors.New("varint: too many bytes (value did not terminate within 5 bytes)")
	ErrVarLongTooLong = errors.New("varint: too many bytes (value did not terminate within 10 bytes)")
	ErrNegativeLength = errors.New("varint: negative length prefix")
	ErrStringTooLong  = errors.New("varint: string exceeds declared maximum length")
	ErrInvalidUTF8    = errors.New("varint: string is not valid utf-8")
	ErrInvalidBool    = errors.New("varint: boolean byte was neither 0 nor 1")
)

// MaxStringLength bounds string decoding to guard against a hostile
// length prefix forcing an enormous allocation.
const MaxStringLength = 1 << 18

// ReadVarInt decodes an unsigned LEB128-encoded i32 from r, returning
// the decoded value and the number of bytes consumed. The framer's
// peek path needs the byte count, so it is always returned rather
// than buried in an io.ByteReader wrapper.
func ReadVarInt(r io.ByteReader) (int32, int, error) {
	var result uint32
	var n int
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, err
		}
		n++
		result |= uint32(b&0x7f) << (7 * uint(n-1))
		if b&0x80 == 0 {
			break
		}
		if n >= 5 {
			return 0, n, ErrVarIntTooLong
		}
	}
	// The wire carries the two's-complement bit pattern of the i32
	// directly; reinterpret rather than sign-extend.
	return int32(result), n, nil
}

// WriteVarInt encodes v's two's-complement bit pattern as an unsigned
// LEB128 varint.
func WriteVarInt(w io.Writer, v int32) error {
	u := uint32(v)
	var buf [5]byte
	n := 0
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		buf[n] = b
		n++
		if u == 0 {
			break
		}
	}
	_, err := w.Write(buf[:n])
	return err
}

// SizeVarInt returns the number of bytes WriteVarInt would emit for v,
// without allocating.
func SizeVarInt(v int32) int {
	u := uint32(v)
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}

// ReadVarLong / WriteVarLong are the i64 analogues, up to 10 bytes.
func ReadVarLong(r io.ByteReader) (int64, int, error) {
	var result uint64
	var n int
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, err
		}
		n++
		result |= uint64(b&0x7f) << (7 * uint(n-1))
		if b&0x80 == 0 {
			break
		}
		if n >= 10 {
			return 0, n, ErrVarLongTooLong
		}
	}
	return int64(result), n, nil
}

func WriteVarLong(w io.Writer, v int64) error {
	u := uint64(v)
	var buf [10]byte
	n := 0
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		buf[n] = b
		n++
		if u == 0 {
			break
		}
	}
	_, err := w.Write(buf[:n])
	return err
}

// ReadString reads a varint(len_bytes) ‖ utf8_bytes string.
func ReadString(r io.Reader) (string, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = newByteReader(r)
	}
	length, _, err := ReadVarInt(br)
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", ErrNegativeLength
	}
	if int(length) > MaxStringLength {
		return "", ErrStringTooLong
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}
	return string(buf), nil
}

// WriteString writes varint(len_bytes) ‖ utf8_bytes.
func WriteString(w io.Writer, s string) error {
	if err := WriteVarInt(w, int32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// ReadBool reads a single byte, strictly 0 or 1.
func ReadBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidBool
	}
}

// WriteBool writes a strict 0/1 byte.
func WriteBool(w io.Writer, v bool) error {
	var b [1]byte
	if v {
		b[0] = 1
	}
	_, err := w.Write(b[:])
	return err
}

// ReadOption decodes `bool ‖ (T if true)`, invoking readValue only
// when the presence flag is set.
func ReadOption(r io.Reader, readValue func(io.Reader) error) (bool, error) {
	present, err := ReadBool(r)
	if err != nil || !present {
		return present, err
	}
	return true, readValue(r)
}

// WriteOption writes `bool ‖ (T if true)`.
func WriteOption(w io.Writer, present bool, writeValue func(io.Writer) error) error {
	if err := WriteBool(w, present); err != nil {
		return err
	}
	if !present {
		return nil
	}
	return writeValue(w)
}

// byteReader adapts an io.Reader without ByteReader into one, reading
// one byte at a time. Used for the length varints of strings and
// bitsets when the caller didn't hand us a buffered reader.
type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func newByteReader(r io.Reader) io.ByteReader { return &byteReader{r: r} }

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.buf[:]); err != nil {
		return 0, err
	}
	return b.buf[0], nil
}
