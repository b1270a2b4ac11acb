package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"math"
	"sort"
	"testing"

	"github.com/arvida42/skyflip/internal/domain"
)

// comp is a test-side NBT compound. The encoder below produces the same wire
// format the decoder consumes, so tests can build payloads declaratively.
type comp map[string]any

// encodeNBT gzips a root compound into the wire form Decode expects.
func encodeNBT(t *testing.T, root comp) []byte {
	t.Helper()

	var body bytes.Buffer
	body.WriteByte(10) // compound
	writeString(&body, "")
	writeCompound(t, &body, root)

	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	if _, err := zw.Write(body.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return out.Bytes()
}

func writeString(buf *bytes.Buffer, s string) {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(s)))
	buf.Write(l[:])
	buf.WriteString(s)
}

func tagType(t *testing.T, v any) byte {
	t.Helper()
	switch v.(type) {
	case int8:
		return 1
	case int16:
		return 2
	case int32:
		return 3
	case int64:
		return 4
	case float32:
		return 5
	case float64:
		return 6
	case string:
		return 8
	case []any:
		return 9
	case comp:
		return 10
	default:
		t.Fatalf("unsupported test tag type %T", v)
		return 0
	}
}

func writePayload(t *testing.T, buf *bytes.Buffer, v any) {
	t.Helper()
	switch x := v.(type) {
	case int8:
		buf.WriteByte(byte(x))
	case int16:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(x))
		buf.Write(b[:])
	case int32:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(x))
		buf.Write(b[:])
	case int64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(x))
		buf.Write(b[:])
	case float32:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(x))
		buf.Write(b[:])
	case float64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(x))
		buf.Write(b[:])
	case string:
		writeString(buf, x)
	case []any:
		elemType := byte(0)
		if len(x) > 0 {
			elemType = tagType(t, x[0])
		}
		buf.WriteByte(elemType)
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(x)))
		buf.Write(l[:])
		for _, e := range x {
			writePayload(t, buf, e)
		}
	case comp:
		writeCompound(t, buf, x)
	default:
		t.Fatalf("unsupported test tag type %T", v)
	}
}

func writeCompound(t *testing.T, buf *bytes.Buffer, c comp) {
	t.Helper()
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteByte(tagType(t, c[k]))
		writeString(buf, k)
		writePayload(t, buf, c[k])
	}
	buf.WriteByte(0) // end
}

func TestDecodeNBTScalarsAndNesting(t *testing.T) {
	raw := encodeNBT(t, comp{
		"byte":   int8(-3),
		"short":  int16(260),
		"int":    int32(70000),
		"long":   int64(1 << 40),
		"float":  float32(1.5),
		"double": float64(2.25),
		"str":    "hello",
		"list":   []any{"a", "b"},
		"nested": comp{"inner": int32(7)},
	})

	root, err := decodeNBT(raw)
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]int64{
		"byte":  -3,
		"short": 260,
		"int":   70000,
		"long":  1 << 40,
	}
	for key, want := range cases {
		v, ok := root.Lookup(key)
		if !ok || v.AsInt() != want {
			t.Fatalf("%s: got %+v, want %d", key, v, want)
		}
	}

	if v, _ := root.Lookup("float"); v.Float != 1.5 {
		t.Fatalf("float: got %v", v.Float)
	}
	if v, _ := root.Lookup("double"); v.Float != 2.25 {
		t.Fatalf("double: got %v", v.Float)
	}
	if v, _ := root.Lookup("str"); v.AsString() != "hello" {
		t.Fatalf("str: got %q", v.AsString())
	}
	if v, _ := root.Lookup("list"); v.Kind != domain.KindList || len(v.List) != 2 || v.List[1].AsString() != "b" {
		t.Fatalf("list: got %+v", v)
	}
	if v, ok := root.Lookup("nested", "inner"); !ok || v.AsInt() != 7 {
		t.Fatalf("nested lookup: got %+v ok=%v", v, ok)
	}
}

func TestDecodeNBTRejectsGarbage(t *testing.T) {
	if _, err := decodeNBT([]byte("not gzip at all")); err == nil {
		t.Fatal("expected error for non-gzip input")
	}

	// Valid gzip wrapping a non-compound root.
	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	zw.Write([]byte{8, 0, 0}) // string tag as root
	zw.Close()
	if _, err := decodeNBT(out.Bytes()); err == nil {
		t.Fatal("expected error for non-compound root")
	}
}

func TestDecodeNBTTruncated(t *testing.T) {
	raw := encodeNBT(t, comp{"str": "hello"})
	// Recompress a truncated body.
	zr, _ := gzip.NewReader(bytes.NewReader(raw))
	var body bytes.Buffer
	body.ReadFrom(zr)
	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	zw.Write(body.Bytes()[:body.Len()-3])
	zw.Close()

	if _, err := decodeNBT(out.Bytes()); err == nil {
		t.Fatal("expected error for truncated document")
	}
}
