package varint

import (
	"encoding/binary"
	"io"
)

// BitSet is a variable-length bitset: varint(long_count) followed by
// long_count big-endian u64 words. Length is implicit (words*64); the
// upper bits of the final word may be unused padding.
type BitSet struct {
	Words []uint64
}

// Test reports whether bit i is set.
func (b BitSet) Test(i int) bool {
	word := i / 64
	if word < 0 || word >= len(b.Words) {
		return false
	}
	return b.Words[word]&(1<<uint(i%64)) != 0
}

// Set sets bit i, growing the backing slice if necessary.
func (b *BitSet) Set(i int) {
	word := i / 64
	for word >= len(b.Words) {
		b.Words = append(b.Words, 0)
	}
	b.Words[word] |= 1 << uint(i%64)
}

// ReadBitSet reads a variable-length BitSet.
func ReadBitSet(r io.Reader) (BitSet, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = newByteReader(r)
	}
	count, _, err := ReadVarInt(br)
	if err != nil {
		return BitSet{}, err
	}
	if count < 0 {
		return BitSet{}, ErrNegativeLength
	}
	words := make([]uint64, count)
	var buf [8]byte
	for i := range words {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return BitSet{}, err
		}
		words[i] = binary.BigEndian.Uint64(buf[:])
	}
	return BitSet{Words: words}, nil
}

// WriteBitSet writes a variable-length BitSet.
func WriteBitSet(w io.Writer, b BitSet) error {
	if err := WriteVarInt(w, int32(len(b.Words))); err != nil {
		return err
	}
	var buf [8]byte
	for _, word := range b.Words {
		binary.BigEndian.PutUint64(buf[:], word)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// FixedBitSet is a fixed-size bitset of N bits, encoded as ceil(N/8)
// raw bytes, little-endian within each byte.
type FixedBitSet struct {
	N    int
	Bits []byte
}

// NewFixedBitSet allocates a FixedBitSet for n bits.
func NewFixedBitSet(n int) FixedBitSet {
	return FixedBitSet{N: n, Bits: make([]byte, (n+7)/8)}
}

func (f FixedBitSet) Test(i int) bool {
	if i < 0 || i >= f.N {
		return false
	}
	return f.Bits[i/8]&(1<<uint(i%8)) != 0
}

func (f *FixedBitSet) Set(i int) {
	f.Bits[i/8] |= 1 << uint(i%8)
}

// ReadFixedBitSet reads ceil(n/8) raw bytes.
func ReadFixedBitSet(r io.Reader, n int) (FixedBitSet, error) {
	f := NewFixedBitSet(n)
	if _, err := io.ReadFull(r, f.Bits); err != nil {
		return FixedBitSet{}, err
	}
	return f, nil
}

// WriteFixedBitSet writes the raw bytes verbatim.
func WriteFixedBitSet(w io.Writer, f FixedBitSet) error {
	_, err := w.Write(f.Bits)
	return err
}
