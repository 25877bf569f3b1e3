package varint

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarIntRoundTripBoundaries(t *testing.T) {
	cases := []struct {
		value int32
		bytes []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{255, []byte{0xff, 0x01}},
		{25565, []byte{0xdd, 0xc7, 0x01}},
		{2097151, []byte{0xff, 0xff, 0x7f}},
		{2147483647, []byte{0xff, 0xff, 0xff, 0xff, 0x07}},
		{-1, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
		{-2147483648, []byte{0x80, 0x80, 0x80, 0x80, 0x08}},
	}

	for _, c := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteVarInt(&buf, c.value))
		assert.Equal(t, c.bytes, buf.Bytes(), "encoding of %d", c.value)

		got, n, err := ReadVarInt(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, c.value, got)
		assert.Equal(t, len(c.bytes), n)
	}
}

func TestVarIntRoundTripRandom(t *testing.T) {
	values := []int32{0, 1, -1, 42, -42, 1 << 20, -(1 << 20), 1<<31 - 1, -(1 << 31)}
	for _, v := range values {
		var buf bytes.Buffer
		require.NoError(t, WriteVarInt(&buf, v))
		got, _, err := ReadVarInt(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestVarIntTooLong(t *testing.T) {
	// Five bytes all with the continuation bit set is invalid.
	_, _, err := ReadVarInt(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01}))
	assert.ErrorIs(t, err, ErrVarIntTooLong)
}

func TestVarLongRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 1 << 40, -(1 << 40), 1<<63 - 1, -(1 << 63)}
	for _, v := range values {
		var buf bytes.Buffer
		require.NoError(t, WriteVarLong(&buf, v))
		got, _, err := ReadVarLong(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestStringRoundTrip(t *testing.T) {
	values := []string{"", "hello", "日本語", "a long string with spaces and §symbols"}
	for _, v := range values {
		var buf bytes.Buffer
		require.NoError(t, WriteString(&buf, v))
		got, err := ReadString(&buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestStringInvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVarInt(&buf, 3))
	buf.Write([]byte{0xff, 0xfe, 0xfd})
	_, err := ReadString(&buf)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestBoolStrict(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBool(&buf, true))
	got, err := ReadBool(&buf)
	require.NoError(t, err)
	assert.True(t, got)

	_, err = ReadBool(bytes.NewReader([]byte{0x02}))
	assert.ErrorIs(t, err, ErrInvalidBool)
}

func TestOptionRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOption(&buf, true, func(w io.Writer) error {
		return WriteVarInt(w, 7)
	}))

	var got int32
	present, err := ReadOption(&buf, func(r io.Reader) error {
		br, ok := r.(io.ByteReader)
		if !ok {
			br = newByteReader(r)
		}
		v, _, err := ReadVarInt(br)
		got = v
		return err
	})
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, int32(7), got)

	buf.Reset()
	require.NoError(t, WriteOption(&buf, false, func(w io.Writer) error { return nil }))
	present, err = ReadOption(&buf, func(r io.Reader) error { return nil })
	require.NoError(t, err)
	assert.False(t, present)
}
