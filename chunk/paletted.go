// Package chunk implements the wire-level paletted container encoding
// for block and biome sections (spec.md §4.3) and the ChunkSection /
// Chunk data model sections are assembled into (spec.md §3).
package chunk

import (
	"io"

	"github.com/chunkymonkey/pkserver/packedarray"
	"github.com/chunkymonkey/pkserver/varint"
)

// PaletteRange describes the indirect bits-per-entry range and the
// direct bits-per-entry for one kind of paletted container (blocks or
// biomes). These are version-coupled constants spec.md §9 explicitly
// forbids hard-coding in the algorithm; the registry package supplies
// them as data.
type PaletteRange struct {
	IndirectMin uint8
	IndirectMax uint8
	DirectBPE   uint8
}

// BlockPaletteRange and BiomePaletteRange are the values named in
// spec.md §4.3 for the current game-data generation; kept here as
// defaults, not as literals baked into WritePaletted.
var (
	BlockPaletteRange = PaletteRange{IndirectMin: 4, IndirectMax: 8, DirectBPE: 15}
	BiomePaletteRange = PaletteRange{IndirectMin: 1, IndirectMax: 3, DirectBPE: 6}
)

// WritePaletted encodes values (raw registry IDs) as a paletted
// container per spec.md §4.3's algorithm:
//
//  1. scan distinct count k
//  2. k==1 -> Single
//  3. bpe = ceil(log2(k)) clamped up to rng.IndirectMin
//  4. bpe <= rng.IndirectMax -> Indirect
//  5. else -> Direct, using rng.DirectBPE
func WritePaletted(w io.Writer, values []int32, rng PaletteRange) error {
	palette := make(map[int32]int, len(values))
	order := make([]int32, 0, len(values))
	for _, v := range values {
		if _, ok := palette[v]; !ok {
			palette[v] = len(order)
			order = append(order, v)
		}
	}

	k := len(order)
	if k == 0 {
		// An empty section (no entries at all) degenerates to the
		// single-value encoding with a placeholder value; callers
		// should not normally hand WritePaletted an empty slice.
		return writeSingle(w, 0)
	}
	if k == 1 {
		return writeSingle(w, order[0])
	}

	bpe := packedarray.BitsPerEntry(uint64(k - 1))
	if bpe < rng.IndirectMin {
		bpe = rng.IndirectMin
	}

	if bpe <= rng.IndirectMax {
		return writeIndirect(w, values, order, palette, bpe)
	}
	return writeDirect(w, values, rng.DirectBPE)
}

func writeSingle(w io.Writer, value int32) error {
	if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	if err := varint.WriteVarInt(w, value); err != nil {
		return err
	}
	return varint.WriteVarInt(w, 0)
}

func writeIndirect(w io.Writer, values, order []int32, palette map[int32]int, bpe uint8) error {
	if _, err := w.Write([]byte{bpe}); err != nil {
		return err
	}
	if err := varint.WriteVarInt(w, int32(len(order))); err != nil {
		return err
	}
	for _, v := range order {
		if err := varint.WriteVarInt(w, v); err != nil {
			return err
		}
	}

	packed := packedarray.New(bpe, len(values))
	for i, v := range values {
		packed.Set(i, uint64(palette[v]))
	}
	return writePackedWords(w, packed)
}

func writeDirect(w io.Writer, values []int32, bpe uint8) error {
	if _, err := w.Write([]byte{bpe}); err != nil {
		return err
	}
	packed := packedarray.New(bpe, len(values))
	for i, v := range values {
		packed.Set(i, uint64(uint32(v)))
	}
	return writePackedWords(w, packed)
}

func writePackedWords(w io.Writer, packed *packedarray.PackedArray) error {
	words := packed.Words()
	if err := varint.WriteVarInt(w, int32(len(words))); err != nil {
		return err
	}
	var buf [8]byte
	for _, word := range words {
		be := buf[:]
		for i := 0; i < 8; i++ {
			be[i] = byte(word >> uint(56-8*i))
		}
		if _, err := w.Write(be); err != nil {
			return err
		}
	}
	return nil
}

// ReadPaletted decodes the inverse of WritePaletted, given the
// expected entry count (16*16*16 for blocks, 4*4*4 for biomes) and
// the same PaletteRange the writer used, returning the expanded raw
// value for every logical index.
func ReadPaletted(r io.Reader, numEntries int, rng PaletteRange) ([]int32, error) {
	var bpeBuf [1]byte
	if _, err := io.ReadFull(r, bpeBuf[:]); err != nil {
		return nil, err
	}
	bpe := bpeBuf[0]

	br, ok := r.(byteReader)
	if !ok {
		br = &simpleByteReader{r: r}
	}

	switch {
	case bpe == 0:
		value, _, err := varint.ReadVarInt(br)
		if err != nil {
			return nil, err
		}
		if _, _, err := varint.ReadVarInt(br); err != nil { // trailing 0 long-count
			return nil, err
		}
		out := make([]int32, numEntries)
		for i := range out {
			out[i] = value
		}
		return out, nil

	case bpe <= rng.IndirectMax:
		count, _, err := varint.ReadVarInt(br)
		if err != nil {
			return nil, err
		}
		palette := make([]int32, count)
		for i := range palette {
			v, _, err := varint.ReadVarInt(br)
			if err != nil {
				return nil, err
			}
			palette[i] = v
		}
		words, err := readPackedWords(br)
		if err != nil {
			return nil, err
		}
		packed := packedarray.FromWords(words, bpe, numEntries)
		out := make([]int32, numEntries)
		for i := range out {
			idx, _ := packed.Get(i)
			if int(idx) >= len(palette) {
				return nil, errBadPaletteIndex
			}
			out[i] = palette[idx]
		}
		return out, nil

	default:
		words, err := readPackedWords(br)
		if err != nil {
			return nil, err
		}
		packed := packedarray.FromWords(words, bpe, numEntries)
		out := make([]int32, numEntries)
		for i := range out {
			v, _ := packed.Get(i)
			out[i] = int32(uint32(v))
		}
		return out, nil
	}
}

func readPackedWords(br byteReader) ([]uint64, error) {
	n, _, err := varint.ReadVarInt(br)
	if err != nil {
		return nil, err
	}
	words := make([]uint64, n)
	for i := range words {
		var word uint64
		for b := 0; b < 8; b++ {
			c, err := br.ReadByte()
			if err != nil {
				return nil, err
			}
			word = (word << 8) | uint64(c)
		}
		words[i] = word
	}
	return words, nil
}

type byteReader interface {
	io.Reader
	ReadByte() (byte, error)
}

type simpleByteReader struct{ r io.Reader }

func (s *simpleByteReader) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *simpleByteReader) ReadByte() (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(s.r, b[:])
	return b[0], err
}
