// Package frame implements the length-prefixed packet framing used on
// the wire, with an optional zlib compression stage once a connection
// has crossed its negotiated size threshold (spec.md §4.4).
package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/chunkymonkey/pkserver/varint"
)

// Possible error values returned while framing or unframing packets.
var ErrFrameTooLarge = errors.New("frame: length exceeds maximum frame size")

// MaxFrameLength is the largest total frame length (post-decompression
// data included) this package will read before giving up, guarding
// against a peer claiming an unbounded length.
const MaxFrameLength = 2 * 1024 * 1024

// RawPacket is an undecoded packet: its numeric ID and its body, with
// the frame and compression envelope already stripped off (or, on the
// write side, yet to be applied).
type RawPacket struct {
	ID   int32
	Data []byte
}

// Handler reads and writes whole packets to/from a stream, hiding
// whichever framing/compression scheme is currently in effect for the
// connection.
type Handler interface {
	ReadPacket(r io.Reader) (RawPacket, error)
	WritePacket(w io.Writer, pkt RawPacket) error
}

// Uncompressed is the framing scheme in effect before compression is
// negotiated (or when the server disables it): varint(length) ‖
// varint(packetID) ‖ data, where length covers the ID and data.
type Uncompressed struct{}

func (Uncompressed) ReadPacket(r io.Reader) (RawPacket, error) {
	br := asByteReader(r)
	length, _, err := varint.ReadVarInt(br)
	if err != nil {
		return RawPacket{}, err
	}
	if length < 0 || length > MaxFrameLength {
		return RawPacket{}, ErrFrameTooLarge
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(br, body); err != nil {
		return RawPacket{}, err
	}

	bodyReader := &byteSliceReader{data: body}
	id, idBytes, err := varint.ReadVarInt(bodyReader)
	if err != nil {
		return RawPacket{}, err
	}
	return RawPacket{ID: id, Data: body[idBytes:]}, nil
}

func (Uncompressed) WritePacket(w io.Writer, pkt RawPacket) error {
	var body bytes.Buffer
	if err := varint.WriteVarInt(&body, pkt.ID); err != nil {
		return err
	}
	body.Write(pkt.Data)

	if err := varint.WriteVarInt(w, int32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// Zlib is the framing scheme once compression has been negotiated
// (a non-negative threshold in the Set Compression packet). Frames at
// or above Threshold bytes of (id+data) are zlib-deflated; frames
// below it are sent with an uncompressed-length marker of zero,
// matching the reference compression handler's behavior of never
// compressing tiny packets even after the threshold is active.
type Zlib struct {
	Threshold int
	Level     int
}

// NewZlib returns a Zlib handler with the given threshold and deflate
// level (0-9; a level above 9 is clamped to 9, a negative level selects
// zlib's default compression).
func NewZlib(threshold, level int) Zlib {
	if level < 0 {
		level = zlib.DefaultCompression
	}
	if level > 9 {
		level = 9
	}
	return Zlib{Threshold: threshold, Level: level}
}

func (z Zlib) WritePacket(w io.Writer, pkt RawPacket) error {
	uncompressedSize := varint.SizeVarInt(pkt.ID) + len(pkt.Data)

	var frame bytes.Buffer
	if uncompressedSize < z.Threshold {
		if err := varint.WriteVarInt(&frame, 0); err != nil {
			return err
		}
		if err := varint.WriteVarInt(&frame, pkt.ID); err != nil {
			return err
		}
		frame.Write(pkt.Data)
	} else {
		var plain bytes.Buffer
		if err := varint.WriteVarInt(&plain, pkt.ID); err != nil {
			return err
		}
		plain.Write(pkt.Data)

		var compressed bytes.Buffer
		zw, err := zlib.NewWriterLevel(&compressed, z.Level)
		if err != nil {
			return err
		}
		if _, err := zw.Write(plain.Bytes()); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}

		if err := varint.WriteVarInt(&frame, int32(uncompressedSize)); err != nil {
			return err
		}
		frame.Write(compressed.Bytes())
	}

	if err := varint.WriteVarInt(w, int32(frame.Len())); err != nil {
		return err
	}
	_, err := w.Write(frame.Bytes())
	return err
}

func (z Zlib) ReadPacket(r io.Reader) (RawPacket, error) {
	br := asByteReader(r)
	length, _, err := varint.ReadVarInt(br)
	if err != nil {
		return RawPacket{}, err
	}
	if length < 0 || length > MaxFrameLength {
		return RawPacket{}, ErrFrameTooLarge
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(br, body); err != nil {
		return RawPacket{}, err
	}
	bodyReader := &byteSliceReader{data: body}

	uncompressedSize, uncompressedBytes, err := varint.ReadVarInt(bodyReader)
	if err != nil {
		return RawPacket{}, err
	}

	var payload []byte
	if uncompressedSize == 0 {
		payload = body[uncompressedBytes:]
	} else {
		if uncompressedSize < 0 || uncompressedSize > MaxFrameLength {
			return RawPacket{}, ErrFrameTooLarge
		}
		zr, err := zlib.NewReader(bytes.NewReader(body[uncompressedBytes:]))
		if err != nil {
			return RawPacket{}, fmt.Errorf("frame: zlib reader: %w", err)
		}
		defer zr.Close()
		payload = make([]byte, uncompressedSize)
		if _, err := io.ReadFull(zr, payload); err != nil {
			return RawPacket{}, fmt.Errorf("frame: zlib inflate: %w", err)
		}
	}

	payloadReader := &byteSliceReader{data: payload}
	id, idBytes, err := varint.ReadVarInt(payloadReader)
	if err != nil {
		return RawPacket{}, err
	}
	return RawPacket{ID: id, Data: payload[idBytes:]}, nil
}

// asByteReader adapts an io.Reader to io.ByteReader without assuming
// it already implements one (a bufio.Reader typically does, a raw
// net.Conn does not).
func asByteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return &byteSliceReader{r: r}
}

// byteSliceReader is a minimal io.Reader+io.ByteReader either over an
// in-memory slice (data != nil) or wrapping an underlying reader one
// byte at a time (r != nil). Used to give varint decoding a ByteReader
// without pulling in bufio for every single frame field.
type byteSliceReader struct {
	data []byte
	pos  int
	r    io.Reader
}

func (b *byteSliceReader) Read(p []byte) (int, error) {
	if b.data != nil {
		n := copy(p, b.data[b.pos:])
		b.pos += n
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
	return b.r.Read(p)
}

func (b *byteSliceReader) ReadByte() (byte, error) {
	if b.data != nil {
		if b.pos >= len(b.data) {
			return 0, io.EOF
		}
		c := b.data[b.pos]
		b.pos++
		return c, nil
	}
	var buf [1]byte
	_, err := io.ReadFull(b.r, buf[:])
	return buf[0], err
}
