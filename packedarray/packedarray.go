// Package packedarray implements the fixed-width bit-packing scheme
// used by paletted containers: n values of bits_per_entry bits each,
// packed into ceil(n / floor(64/bpe)) 64-bit words, little-endian within each
// word, with no entry straddling a word boundary (unused high bits per
// word are zero padding).
package packedarray

// BitsPerEntry returns the minimum bit width needed to represent
// values in [0, maxValue], i.e. ceil(log2(maxValue+1)), with the
// degenerate case maxValue==0 returning 0 (a single-value palette
// needs no packed storage at all).
func BitsPerEntry(maxValue uint64) uint8 {
	switch maxValue {
	case 0:
		return 0
	case 1:
		return 1
	default:
		n := uint8(0)
		for v := maxValue; v != 0; v >>= 1 {
			n++
		}
		return n
	}
}

// PackedSize returns the number of 64-bit words needed to store
// numEntries values of bitsPerEntry bits each.
func PackedSize(bitsPerEntry uint8, numEntries int) int {
	if bitsPerEntry == 0 {
		return 0
	}
	entriesPerLong := 64 / int(bitsPerEntry)
	return (numEntries + entriesPerLong - 1) / entriesPerLong
}

// PackedArray is a logical array of numEntries values, each occupying
// bitsPerEntry bits, stored in a slice of 64-bit words per the packing
// rule above.
type PackedArray struct {
	bitsPerEntry   uint8
	numEntries     int
	entriesPerLong int
	entryMask      uint64
	words          []uint64
}

// New allocates a zeroed PackedArray for numEntries values of
// bitsPerEntry bits.
func New(bitsPerEntry uint8, numEntries int) *PackedArray {
	return FromWords(make([]uint64, PackedSize(bitsPerEntry, numEntries)), bitsPerEntry, numEntries)
}

// FromWords wraps an existing (e.g. just-decoded) word slice as a
// PackedArray. The caller is responsible for the slice being at least
// PackedSize(bitsPerEntry, numEntries) long.
func FromWords(words []uint64, bitsPerEntry uint8, numEntries int) *PackedArray {
	epl := 0
	var mask uint64
	if bitsPerEntry > 0 {
		epl = 64 / int(bitsPerEntry)
		mask = (uint64(1) << bitsPerEntry) - 1
	}
	return &PackedArray{
		bitsPerEntry:   bitsPerEntry,
		numEntries:     numEntries,
		entriesPerLong: epl,
		entryMask:      mask,
		words:          words,
	}
}

// Len reports the number of logical entries.
func (p *PackedArray) Len() int { return p.numEntries }

// BitsPerEntry reports the configured entry width.
func (p *PackedArray) BitsPerEntry() uint8 { return p.bitsPerEntry }

// Words returns the backing word slice (for writing to the wire).
func (p *PackedArray) Words() []uint64 { return p.words }

func (p *PackedArray) wordAndOffset(index int) (int, uint64) {
	return index / p.entriesPerLong, uint64(index%p.entriesPerLong) * uint64(p.bitsPerEntry)
}

// Get returns the value at index, or (0, false) if index is out of
// range or bitsPerEntry is 0 (a single-value container has no packed
// storage; callers should special-case bpe==0 themselves).
func (p *PackedArray) Get(index int) (uint64, bool) {
	if index < 0 || index >= p.numEntries || p.bitsPerEntry == 0 {
		return 0, false
	}
	word, offset := p.wordAndOffset(index)
	return (p.words[word] >> offset) & p.entryMask, true
}

// Set stores value at index. It is a no-op if index is out of range
// or value doesn't fit in bitsPerEntry bits (mirrors the reference
// implementation's permissive bounds behavior rather than panicking,
// since packed arrays sit on a hot path).
func (p *PackedArray) Set(index int, value uint64) {
	if index < 0 || index >= p.numEntries || value > p.entryMask || p.bitsPerEntry == 0 {
		return
	}
	word, offset := p.wordAndOffset(index)
	p.words[word] &^= p.entryMask << offset
	p.words[word] |= value << offset
}
