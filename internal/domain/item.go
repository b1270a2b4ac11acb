package domain

// ValueKind discriminates the closed set of attribute value types that can
// appear in a decoded item tree.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindFloat
	KindString
	KindList
	KindMap
)

// Value is one node of an item's attribute tree: a tagged variant of
// Int | Float | String | List | Map. Exactly one payload field is meaningful,
// selected by Kind. Lookups are explicit; there is no reflection anywhere in
// the decode path.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Str   string
	List  []Value
	Map   map[string]Value
}

// IntVal wraps an integer as a Value.
func IntVal(v int64) Value { return Value{Kind: KindInt, Int: v} }

// FloatVal wraps a float as a Value.
func FloatVal(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// StrVal wraps a string as a Value.
func StrVal(v string) Value { return Value{Kind: KindString, Str: v} }

// ListVal wraps a list as a Value.
func ListVal(v []Value) Value { return Value{Kind: KindList, List: v} }

// MapVal wraps a compound as a Value.
func MapVal(v map[string]Value) Value { return Value{Kind: KindMap, Map: v} }

// Lookup walks a path of map keys and returns the value at the end of the
// path. The second return is false if any segment is missing or not a map.
func (v Value) Lookup(path ...string) (Value, bool) {
	cur := v
	for _, key := range path {
		if cur.Kind != KindMap {
			return Value{}, false
		}
		next, ok := cur.Map[key]
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// AsInt returns the node's integer value, or 0 for non-integer nodes.
func (v Value) AsInt() int64 {
	if v.Kind == KindInt {
		return v.Int
	}
	return 0
}

// AsString returns the node's string value, or "" for non-string nodes.
func (v Value) AsString() string {
	if v.Kind == KindString {
		return v.Str
	}
	return ""
}

// DecodedItem is the structured form of a listing's binary item payload: the
// raw type identifier, the stack count, and the item's extra-attribute
// compound (enchantments, reforge markers, embedded pet metadata, ...). Tag
// retains the full decoded tag tree for lookups outside ExtraAttributes,
// such as display lore.
type DecodedItem struct {
	TypeID string
	Count  int
	Extra  map[string]Value
	Tag    Value
}

// Attr looks up a path under the item's extra-attribute compound.
func (d DecodedItem) Attr(path ...string) (Value, bool) {
	return MapVal(d.Extra).Lookup(path...)
}

// LoreLines returns the item's display lore, one string per line. Items
// without lore return nil.
func (d DecodedItem) LoreLines() []string {
	lore, ok := d.Tag.Lookup("display", "Lore")
	if !ok || lore.Kind != KindList {
		return nil
	}
	lines := make([]string, 0, len(lore.List))
	for _, l := range lore.List {
		lines = append(lines, l.AsString())
	}
	return lines
}
