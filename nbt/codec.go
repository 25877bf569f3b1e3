package nbt

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadRoot reads the network variant of a root value: tag byte, then
// (unlike file-rooted NBT) no name at all for Compound roots used on
// the wire — callers that need the name-prefixed file variant should
// use ReadNamedRoot instead.
func ReadRoot(r io.Reader) (Value, error) {
	tag, err := readTag(r)
	if err != nil {
		return Value{}, err
	}
	return readValue(r, tag)
}

// WriteRoot writes a value as a root with no name prefix (the network
// variant used directly in packets).
func WriteRoot(w io.Writer, v Value) error {
	if err := writeTagByte(w, v.tag); err != nil {
		return err
	}
	return writeValue(w, v)
}

// ReadNamedRoot reads `tag:u8, name_len:u16-be, name, value` — the
// file-rooted variant used by region-file chunk data.
func ReadNamedRoot(r io.Reader) (name string, value Value, err error) {
	tag, err := readTag(r)
	if err != nil {
		return "", Value{}, err
	}
	if tag == TagEnd {
		return "", Value{tag: TagEnd}, nil
	}
	name, err = readJavaUTF(r)
	if err != nil {
		return "", Value{}, err
	}
	value, err = readValue(r, tag)
	return name, value, err
}

// WriteNamedRoot writes the file-rooted variant.
func WriteNamedRoot(w io.Writer, name string, v Value) error {
	if err := writeTagByte(w, v.tag); err != nil {
		return err
	}
	if err := writeJavaUTF(w, name); err != nil {
		return err
	}
	return writeValue(w, v)
}

func readTag(r io.Reader) (Tag, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	t := Tag(b[0])
	if !t.Valid() {
		return 0, fmt.Errorf("nbt: invalid tag byte 0x%02x", b[0])
	}
	return t, nil
}

func writeTagByte(w io.Writer, t Tag) error {
	_, err := w.Write([]byte{byte(t)})
	return err
}

func readValue(r io.Reader, tag Tag) (Value, error) {
	switch tag {
	case TagEnd:
		return Value{tag: TagEnd}, nil
	case TagByte:
		v, err := readI8(r)
		return Byte(v), err
	case TagShort:
		v, err := readI16(r)
		return Short(v), err
	case TagInt:
		v, err := readI32(r)
		return Int(v), err
	case TagLong:
		v, err := readI64(r)
		return Long(v), err
	case TagFloat:
		v, err := readI32(r)
		return Float(mathFloat32(v)), err
	case TagDouble:
		v, err := readI64(r)
		return Double(mathFloat64(v)), err
	case TagString:
		v, err := readJavaUTF(r)
		return String(v), err
	case TagByteArray:
		n, err := readI32(r)
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{}, fmt.Errorf("nbt: negative ByteArray length %d", n)
		}
		out := make([]int8, n)
		for i := range out {
			b, err := readI8(r)
			if err != nil {
				return Value{}, err
			}
			out[i] = b
		}
		return ByteArray(out), nil
	case TagIntArray:
		n, err := readI32(r)
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{}, fmt.Errorf("nbt: negative IntArray length %d", n)
		}
		out := make([]int32, n)
		for i := range out {
			v, err := readI32(r)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return IntArray(out), nil
	case TagLongArray:
		n, err := readI32(r)
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{}, fmt.Errorf("nbt: negative LongArray length %d", n)
		}
		out := make([]int64, n)
		for i := range out {
			v, err := readI64(r)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return LongArray(out), nil
	case TagList:
		elemTag, err := readTag(r)
		if err != nil {
			return Value{}, err
		}
		n, err := readI32(r)
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			n = 0
		}
		list := NewList(elemTag)
		for i := int32(0); i < n; i++ {
			elem, err := readValue(r, elemTag)
			if err != nil {
				return Value{}, err
			}
			list.list = append(list.list, elem)
		}
		return list, nil
	case TagCompound:
		m := map[string]Value{}
		for {
			childTag, err := readTag(r)
			if err != nil {
				return Value{}, err
			}
			if childTag == TagEnd {
				break
			}
			name, err := readJavaUTF(r)
			if err != nil {
				return Value{}, err
			}
			val, err := readValue(r, childTag)
			if err != nil {
				return Value{}, err
			}
			m[name] = val
		}
		return Compound(m), nil
	default:
		return Value{}, fmt.Errorf("nbt: unreadable tag %s", tag)
	}
}

func writeValue(w io.Writer, v Value) error {
	switch v.tag {
	case TagEnd:
		return nil
	case TagByte:
		return writeI8(w, v.i8)
	case TagShort:
		return writeI16(w, v.i16)
	case TagInt:
		return writeI32(w, v.i32)
	case TagLong:
		return writeI64(w, v.i64)
	case TagFloat:
		return writeI32(w, floatBits32(v.f32))
	case TagDouble:
		return writeI64(w, floatBits64(v.f64))
	case TagString:
		return writeJavaUTF(w, v.str)
	case TagByteArray:
		if err := writeI32(w, int32(len(v.byteArray))); err != nil {
			return err
		}
		for _, b := range v.byteArray {
			if err := writeI8(w, b); err != nil {
				return err
			}
		}
		return nil
	case TagIntArray:
		if err := writeI32(w, int32(len(v.intArray))); err != nil {
			return err
		}
		for _, x := range v.intArray {
			if err := writeI32(w, x); err != nil {
				return err
			}
		}
		return nil
	case TagLongArray:
		if err := writeI32(w, int32(len(v.longArray))); err != nil {
			return err
		}
		for _, x := range v.longArray {
			if err := writeI64(w, x); err != nil {
				return err
			}
		}
		return nil
	case TagList:
		elemTag := v.listTag
		if elemTag == 0 && len(v.list) == 0 {
			elemTag = TagEnd
		}
		if err := writeTagByte(w, elemTag); err != nil {
			return err
		}
		if err := writeI32(w, int32(len(v.list))); err != nil {
			return err
		}
		for _, elem := range v.list {
			if err := writeValue(w, elem); err != nil {
				return err
			}
		}
		return nil
	case TagCompound:
		for name, child := range v.compound {
			if err := writeTagByte(w, child.tag); err != nil {
				return err
			}
			if err := writeJavaUTF(w, name); err != nil {
				return err
			}
			if err := writeValue(w, child); err != nil {
				return err
			}
		}
		return writeTagByte(w, TagEnd)
	default:
		return fmt.Errorf("nbt: unwritable tag %s", v.tag)
	}
}

func readI8(r io.Reader) (int8, error) {
	var b [1]byte
	_, err := io.ReadFull(r, b[:])
	return int8(b[0]), err
}
func writeI8(w io.Writer, v int8) error {
	_, err := w.Write([]byte{byte(v)})
	return err
}

func readI16(r io.Reader) (int16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b[:])), nil
}
func writeI16(w io.Writer, v int16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	_, err := w.Write(b[:])
	return err
}

func readI32(r io.Reader) (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}
func writeI32(w io.Writer, v int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	_, err := w.Write(b[:])
	return err
}

func readI64(r io.Reader) (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}
func writeI64(w io.Writer, v int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	_, err := w.Write(b[:])
	return err
}

// readJavaUTF reads `len:u16-be ‖ utf8_bytes` (the name/string
// encoding NBT uses; it is not length-limited the way packet strings
// are).
func readJavaUTF(r io.Reader) (string, error) {
	var lb [2]byte
	if _, err := io.ReadFull(r, lb[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lb[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeJavaUTF(w io.Writer, s string) error {
	var lb [2]byte
	binary.BigEndian.PutUint16(lb[:], uint16(len(s)))
	if _, err := w.Write(lb[:]); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}
