package varint

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		p := Position{
			X: int32(rng.Intn(1<<26) - 1<<25),
			Y: int32(rng.Intn(1<<12) - 1<<11),
			Z: int32(rng.Intn(1<<26) - 1<<25),
		}
		var buf bytes.Buffer
		require.NoError(t, WritePosition(&buf, p))
		got, err := ReadPosition(&buf)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestPositionBoundaries(t *testing.T) {
	for _, p := range []Position{
		{X: 0, Y: 0, Z: 0},
		{X: 1<<25 - 1, Y: 1<<11 - 1, Z: 1<<25 - 1},
		{X: -(1 << 25), Y: -(1 << 11), Z: -(1 << 25)},
	} {
		var buf bytes.Buffer
		require.NoError(t, WritePosition(&buf, p))
		got, err := ReadPosition(&buf)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	u := uuid.New()
	var buf bytes.Buffer
	require.NoError(t, WriteUUID(&buf, u))
	got, err := ReadUUID(&buf)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestBitSetRoundTrip(t *testing.T) {
	var b BitSet
	b.Set(0)
	b.Set(63)
	b.Set(64)
	b.Set(130)

	var buf bytes.Buffer
	require.NoError(t, WriteBitSet(&buf, b))
	got, err := ReadBitSet(&buf)
	require.NoError(t, err)

	for _, i := range []int{0, 63, 64, 130} {
		assert.True(t, got.Test(i), "bit %d", i)
	}
	assert.False(t, got.Test(1))
}

func TestFixedBitSetRoundTrip(t *testing.T) {
	f := NewFixedBitSet(20)
	f.Set(0)
	f.Set(7)
	f.Set(19)

	var buf bytes.Buffer
	require.NoError(t, WriteFixedBitSet(&buf, f))
	got, err := ReadFixedBitSet(&buf, 20)
	require.NoError(t, err)

	assert.True(t, got.Test(0))
	assert.True(t, got.Test(7))
	assert.True(t, got.Test(19))
	assert.False(t, got.Test(1))
}
