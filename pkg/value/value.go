// Package value defines the tagged data value carried through shared state,
// node inputs and node outputs.
//
// A Value is one of Null, Bool, Number, Text, List or Map. Values are
// immutable once built: accessors hand out copies, and "changing" a map means
// building a new one with With.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a closed, recursively structured datum. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	list []Value
	m    map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int wraps an integer as a Number.
func Int(n int) Value { return Number(float64(n)) }

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// List builds a list value. The items are copied.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Map builds a map value. The entries are copied.
func Map(entries map[string]Value) Value {
	cp := make(map[string]Value, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean and whether v is a Bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number and whether v is a Number.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsInt returns the number as an int and whether v is a whole Number within
// the range of int.
func (v Value) AsInt() (int, bool) {
	if v.kind != KindNumber || v.n != math.Trunc(v.n) {
		return 0, false
	}
	// -MinInt is a power of two, so both bounds are exact floats.
	if v.n < float64(math.MinInt) || v.n >= -float64(math.MinInt) {
		return 0, false
	}
	return int(v.n), true
}

// AsText returns the string and whether v is Text.
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// AsList returns a copy of the items and whether v is a List.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// AsMap returns a copy of the entries and whether v is a Map.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	cp := make(map[string]Value, len(v.m))
	for k, e := range v.m {
		cp[k] = e
	}
	return cp, true
}

// Len is the number of items of a List or entries of a Map, zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	default:
		return 0
	}
}

// Index returns the i-th list item.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}, false
	}
	return v.list[i], true
}

// Field returns a map entry.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	e, ok := v.m[key]
	return e, ok
}

// Keys returns the sorted keys of a Map.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With returns a new Map with key set to e. On a non-map it starts from an
// empty map.
func (v Value) With(key string, e Value) Value {
	cp := make(map[string]Value, len(v.m)+1)
	if v.kind == KindMap {
		for k, x := range v.m {
			cp[k] = x
		}
	}
	cp[key] = e
	return Value{kind: KindMap, m: cp}
}

// Append returns a new List with items added at the end.
func (v Value) Append(items ...Value) Value {
	var base []Value
	if v.kind == KindList {
		base = v.list
	}
	cp := make([]Value, 0, len(base)+len(items))
	cp = append(cp, base...)
	cp = append(cp, items...)
	return Value{kind: KindList, list: cp}
}

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindText:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, e := range v.m {
			oe, ok := o.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders a compact, deterministic form used in logs and prompts.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		sb.WriteString(strconv.FormatFloat(v.n, 'g', -1, 64))
	case KindText:
		sb.WriteString(strconv.Quote(v.s))
	case KindList:
		sb.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.write(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			v.m[k].write(sb)
		}
		sb.WriteByte('}')
	}
}
