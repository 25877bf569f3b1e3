// Package region implements the sector-indexed region-file format
// (spec.md §6): an 8 KiB header (location table + timestamp table)
// followed by 4096-byte sectors, each holding one chunk's compressed
// NBT payload behind a `u32-be length ‖ u8 compression ‖ bytes` header.
package region

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// RegionSize is the number of chunks along one edge of a region file;
// ChunksPerRegion is the total chunk slots a region file indexes.
const (
	RegionSize      = 32
	ChunksPerRegion = RegionSize * RegionSize
	SectorSize      = 4096
	HeaderSize      = 2 * SectorSize
)

// CompressionType is the single byte preceding a chunk's payload.
type CompressionType byte

const (
	CompressionGZip         CompressionType = 1
	CompressionZlib         CompressionType = 2
	CompressionUncompressed CompressionType = 3
	compressionCustom       CompressionType = 127
)

// Errors surfaced while reading a region file.
var (
	ErrUnsupportedCompression = errors.New("region: unsupported compression type")
	ErrUnknownCompression     = errors.New("region: unknown compression type")
	ErrNoSuchChunk            = errors.New("region: no such chunk")
)

type location struct {
	sectorOffset uint32
	sectorCount  uint8
}

// File is one opened `.mca`-style region file: its location table,
// parsed once at open time, and the backing os.File for lazy reads.
type File struct {
	f         *os.File
	locations [ChunksPerRegion]location
}

// Open reads a region file's 8 KiB header and returns a File ready for
// ReadChunk calls. The timestamp table is read but not retained; this
// package has no feature that consults last-modified times.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("region: read header: %w", err)
	}

	rf := &File{f: f}
	for i := 0; i < ChunksPerRegion; i++ {
		entry := header[i*4 : i*4+4]
		offset := uint32(entry[0])<<16 | uint32(entry[1])<<8 | uint32(entry[2])
		count := entry[3]
		rf.locations[i] = location{sectorOffset: offset, sectorCount: count}
	}
	return rf, nil
}

// Close releases the underlying file descriptor.
func (f *File) Close() error { return f.f.Close() }

func index(localX, localZ int) int { return localX + localZ*RegionSize }

// ReadChunk returns the decompressed NBT bytes for the chunk at local
// coordinates (0..31, 0..31) within this region, or (nil, nil) if the
// slot is empty (never generated).
func (f *File) ReadChunk(localX, localZ int) ([]byte, error) {
	if localX < 0 || localX >= RegionSize || localZ < 0 || localZ >= RegionSize {
		return nil, fmt.Errorf("region: local coordinate (%d,%d) out of range", localX, localZ)
	}

	loc := f.locations[index(localX, localZ)]
	if loc.sectorOffset == 0 || loc.sectorCount == 0 {
		return nil, nil
	}

	if _, err := f.f.Seek(int64(loc.sectorOffset)*SectorSize, io.SeekStart); err != nil {
		return nil, err
	}

	var lengthBuf [4]byte
	if _, err := io.ReadFull(f.f, lengthBuf[:]); err != nil {
		return nil, fmt.Errorf("region: read chunk length: %w", err)
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length <= 1 {
		return nil, nil
	}

	var compressionByte [1]byte
	if _, err := io.ReadFull(f.f, compressionByte[:]); err != nil {
		return nil, err
	}
	compression := CompressionType(compressionByte[0])

	payload := make([]byte, length-1)
	if _, err := io.ReadFull(f.f, payload); err != nil {
		return nil, fmt.Errorf("region: read chunk payload: %w", err)
	}

	return decompress(compression, payload)
}

func decompress(compression CompressionType, payload []byte) ([]byte, error) {
	switch compression {
	case CompressionGZip:
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("region: gzip reader: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case CompressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("region: zlib reader: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case CompressionUncompressed:
		return payload, nil
	case compressionCustom:
		return nil, fmt.Errorf("%w: custom", ErrUnsupportedCompression)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, compression)
	}
}
