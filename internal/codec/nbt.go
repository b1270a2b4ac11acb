// Package codec decodes the compressed binary-tagged item payloads embedded
// in auction listings and derives canonical item keys from the decoded tree.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/arvida42/skyflip/internal/domain"
)

// NBT tag type ids, in wire order.
const (
	tagEnd byte = iota
	tagByte
	tagShort
	tagInt
	tagLong
	tagFloat
	tagDouble
	tagByteArray
	tagString
	tagList
	tagCompound
	tagIntArray
	tagLongArray
)

// maxNesting bounds tree depth so a corrupt length field cannot recurse
// unboundedly.
const maxNesting = 64

// decodeNBT decompresses and parses a gzipped NBT document, returning the
// payload of the root compound. All parse failures are wrapped in
// domain.ErrDecode.
func decodeNBT(raw []byte) (domain.Value, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return domain.Value{}, fmt.Errorf("%w: gzip: %v", domain.ErrDecode, err)
	}
	defer zr.Close()

	r := &nbtReader{r: zr}

	typ, err := r.readByte()
	if err != nil {
		return domain.Value{}, fmt.Errorf("%w: root tag: %v", domain.ErrDecode, err)
	}
	if typ != tagCompound {
		return domain.Value{}, fmt.Errorf("%w: root tag type %d, want compound", domain.ErrDecode, typ)
	}
	if _, err := r.readString(); err != nil { // root name, usually empty
		return domain.Value{}, fmt.Errorf("%w: root name: %v", domain.ErrDecode, err)
	}

	root, err := r.readPayload(tagCompound, 0)
	if err != nil {
		return domain.Value{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return root, nil
}

// nbtReader reads big-endian NBT payloads from an io.Reader.
type nbtReader struct {
	r io.Reader
}

func (n *nbtReader) readByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(n.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (n *nbtReader) readInt16() (int16, error) {
	var b [2]byte
	if _, err := io.ReadFull(n.r, b[:]); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b[:])), nil
}

func (n *nbtReader) readInt32() (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(n.r, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

func (n *nbtReader) readInt64() (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(n.r, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}

func (n *nbtReader) readString() (string, error) {
	length, err := n.readInt16()
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", fmt.Errorf("negative string length %d", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(n.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// readPayload reads the payload of a tag of the given type. Scalars collapse
// into the closed variant kinds: all integer widths become KindInt, both
// float widths become KindFloat, and the array tags become lists of ints.
func (n *nbtReader) readPayload(typ byte, depth int) (domain.Value, error) {
	if depth > maxNesting {
		return domain.Value{}, fmt.Errorf("nesting deeper than %d", maxNesting)
	}

	switch typ {
	case tagByte:
		b, err := n.readByte()
		if err != nil {
			return domain.Value{}, err
		}
		return domain.IntVal(int64(int8(b))), nil

	case tagShort:
		v, err := n.readInt16()
		if err != nil {
			return domain.Value{}, err
		}
		return domain.IntVal(int64(v)), nil

	case tagInt:
		v, err := n.readInt32()
		if err != nil {
			return domain.Value{}, err
		}
		return domain.IntVal(int64(v)), nil

	case tagLong:
		v, err := n.readInt64()
		if err != nil {
			return domain.Value{}, err
		}
		return domain.IntVal(v), nil

	case tagFloat:
		v, err := n.readInt32()
		if err != nil {
			return domain.Value{}, err
		}
		return domain.FloatVal(float64(math.Float32frombits(uint32(v)))), nil

	case tagDouble:
		v, err := n.readInt64()
		if err != nil {
			return domain.Value{}, err
		}
		return domain.FloatVal(math.Float64frombits(uint64(v))), nil

	case tagString:
		s, err := n.readString()
		if err != nil {
			return domain.Value{}, err
		}
		return domain.StrVal(s), nil

	case tagByteArray, tagIntArray, tagLongArray:
		return n.readIntArray(typ)

	case tagList:
		return n.readList(depth)

	case tagCompound:
		return n.readCompound(depth)

	default:
		return domain.Value{}, fmt.Errorf("unknown tag type %d", typ)
	}
}

func (n *nbtReader) readIntArray(typ byte) (domain.Value, error) {
	length, err := n.readInt32()
	if err != nil {
		return domain.Value{}, err
	}
	if length < 0 {
		return domain.Value{}, fmt.Errorf("negative array length %d", length)
	}
	list := make([]domain.Value, 0, length)
	for i := int32(0); i < length; i++ {
		var v int64
		switch typ {
		case tagByteArray:
			b, err := n.readByte()
			if err != nil {
				return domain.Value{}, err
			}
			v = int64(int8(b))
		case tagIntArray:
			x, err := n.readInt32()
			if err != nil {
				return domain.Value{}, err
			}
			v = int64(x)
		case tagLongArray:
			x, err := n.readInt64()
			if err != nil {
				return domain.Value{}, err
			}
			v = x
		}
		list = append(list, domain.IntVal(v))
	}
	return domain.ListVal(list), nil
}

func (n *nbtReader) readList(depth int) (domain.Value, error) {
	elemType, err := n.readByte()
	if err != nil {
		return domain.Value{}, err
	}
	length, err := n.readInt32()
	if err != nil {
		return domain.Value{}, err
	}
	if length < 0 {
		return domain.Value{}, fmt.Errorf("negative list length %d", length)
	}
	if elemType == tagEnd && length > 0 {
		return domain.Value{}, fmt.Errorf("non-empty list of end tags")
	}
	list := make([]domain.Value, 0, length)
	for i := int32(0); i < length; i++ {
		elem, err := n.readPayload(elemType, depth+1)
		if err != nil {
			return domain.Value{}, err
		}
		list = append(list, elem)
	}
	return domain.ListVal(list), nil
}

func (n *nbtReader) readCompound(depth int) (domain.Value, error) {
	m := make(map[string]domain.Value)
	for {
		typ, err := n.readByte()
		if err != nil {
			return domain.Value{}, err
		}
		if typ == tagEnd {
			return domain.MapVal(m), nil
		}
		name, err := n.readString()
		if err != nil {
			return domain.Value{}, err
		}
		val, err := n.readPayload(typ, depth+1)
		if err != nil {
			return domain.Value{}, err
		}
		m[name] = val
	}
}
