package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/therealbnut/rune/internal/hash"
)

// Kind is the type of a value at runtime.
type Kind uint8

const (
	KindUnit Kind = iota
	KindBool
	KindByte
	KindChar
	KindInteger
	KindFloat
	KindString
	KindBytes
	KindVec
	KindTuple
	KindObject
	KindTypedTuple
	KindTypedObject
	KindVariantTuple
	KindVariantObject
	KindOption
	KindResult
	KindFunction
	KindType
	KindFuture
	KindExternal
)

var kindNames = [...]string{
	KindUnit:          "unit",
	KindBool:          "bool",
	KindByte:          "byte",
	KindChar:          "char",
	KindInteger:       "integer",
	KindFloat:         "float",
	KindString:        "string",
	KindBytes:         "bytes",
	KindVec:           "vec",
	KindTuple:         "tuple",
	KindObject:        "object",
	KindTypedTuple:    "typed tuple",
	KindTypedObject:   "typed object",
	KindVariantTuple:  "variant tuple",
	KindVariantObject: "variant object",
	KindOption:        "option",
	KindResult:        "result",
	KindFunction:      "function",
	KindType:          "type",
	KindFuture:        "future",
	KindExternal:      "external",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Seq holds the elements of vecs, tuples, tuple-shaped types and the
// payload of options and results. It is shared between copies of a value.
type Seq struct {
	Values []Value
}

// Object holds the fields of objects and struct-shaped types.
type Object struct {
	Fields map[string]Value
}

// Keys returns the field names in sorted order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.Fields))
	for k := range o.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Function is a callable: a compiled or host function addressed by hash,
// optionally closed over an environment tuple.
type Function struct {
	Hash hash.Hash
	Env  *Seq // closures only
}

// External is a host value with its own type, such as an iterator or a
// VecDeque.
type External interface {
	TypeHash() hash.Hash
}

// Value is a universal value for the VM and host functions.
type Value struct {
	Kind  Kind
	Int   int64 // Bool, Byte, Char, Integer
	Float float64
	Str   string
	Bytes []byte

	Seq *Seq
	Obj *Object

	// Type is the struct or enum hash of typed and variant values, and the
	// referenced type of KindType.
	Type    hash.Hash
	Variant hash.Hash

	// Index is 0 for Some and Ok, 1 for None and Err.
	Index int

	Fn       *Function
	Future   *Future
	External External
}

func Unit() Value { return Value{Kind: KindUnit} }

func Bool(b bool) Value {
	v := Value{Kind: KindBool}
	if b {
		v.Int = 1
	}
	return v
}

func Byte(b byte) Value { return Value{Kind: KindByte, Int: int64(b)} }
func Char(r rune) Value { return Value{Kind: KindChar, Int: int64(r)} }
func Integer(i int64) Value { return Value{Kind: KindInteger, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Bytes(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }
func Type(h hash.Hash) Value { return Value{Kind: KindType, Type: h} }
func FromExternal(e External) Value { return Value{Kind: KindExternal, External: e} }

func Vec(vals ...Value) Value { return Value{Kind: KindVec, Seq: &Seq{Values: vals}} }
func Tuple(vals ...Value) Value { return Value{Kind: KindTuple, Seq: &Seq{Values: vals}} }

func NewObject(fields map[string]Value) Value {
	return Value{Kind: KindObject, Obj: &Object{Fields: fields}}
}

func TypedTuple(typ hash.Hash, vals ...Value) Value {
	return Value{Kind: KindTypedTuple, Type: typ, Seq: &Seq{Values: vals}}
}

func TypedObject(typ hash.Hash, fields map[string]Value) Value {
	return Value{Kind: KindTypedObject, Type: typ, Obj: &Object{Fields: fields}}
}

func VariantTuple(enum, variant hash.Hash, vals ...Value) Value {
	return Value{Kind: KindVariantTuple, Type: enum, Variant: variant, Seq: &Seq{Values: vals}}
}

func VariantObject(enum, variant hash.Hash, fields map[string]Value) Value {
	return Value{Kind: KindVariantObject, Type: enum, Variant: variant, Obj: &Object{Fields: fields}}
}

func Some(v Value) Value { return Value{Kind: KindOption, Seq: &Seq{Values: []Value{v}}} }
func None() Value { return Value{Kind: KindOption, Index: 1, Seq: &Seq{}} }
func Ok(v Value) Value { return Value{Kind: KindResult, Seq: &Seq{Values: []Value{v}}} }
func Err(v Value) Value { return Value{Kind: KindResult, Index: 1, Seq: &Seq{Values: []Value{v}}} }

func Fn(h hash.Hash) Value { return Value{Kind: KindFunction, Fn: &Function{Hash: h}} }

func Closure(h hash.Hash, env []Value) Value {
	return Value{Kind: KindFunction, Fn: &Function{Hash: h, Env: &Seq{Values: env}}}
}

func FromFuture(f *Future) Value { return Value{Kind: KindFuture, Future: f} }

// Truthy reports the value of a bool.
func (v Value) Truthy() bool {
	return v.Kind == KindBool && v.Int != 0
}

// IsValue is false for None and Err and true for everything else.
func (v Value) IsValue() bool {
	switch v.Kind {
	case KindOption, KindResult:
		return v.Index == 0
	}
	return true
}

// Elements returns the elements of tuple-like values.
func (v Value) Elements() ([]Value, bool) {
	switch v.Kind {
	case KindVec, KindTuple, KindTypedTuple, KindVariantTuple, KindOption, KindResult:
		return v.Seq.Values, true
	case KindUnit:
		return nil, true
	}
	return nil, false
}

// Fields returns the fields of object-like values.
func (v Value) Fields() (map[string]Value, bool) {
	switch v.Kind {
	case KindObject, KindTypedObject, KindVariantObject:
		return v.Obj.Fields, true
	}
	return nil, false
}

func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb, false)
	return sb.String()
}

// Debug renders the value with strings and chars quoted.
func (v Value) Debug() string {
	var sb strings.Builder
	v.write(&sb, true)
	return sb.String()
}

func (v Value) write(sb *strings.Builder, debug bool) {
	switch v.Kind {
	case KindUnit:
		sb.WriteString("()")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.Int != 0))
	case KindByte:
		fmt.Fprintf(sb, "b'\\x%02x'", byte(v.Int))
	case KindChar:
		if debug {
			sb.WriteString(strconv.QuoteRune(rune(v.Int)))
		} else {
			sb.WriteRune(rune(v.Int))
		}
	case KindInteger:
		sb.WriteString(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case KindString:
		if debug {
			sb.WriteString(strconv.Quote(v.Str))
		} else {
			sb.WriteString(v.Str)
		}
	case KindBytes:
		fmt.Fprintf(sb, "b%q", v.Bytes)
	case KindVec:
		writeSeq(sb, "[", "]", v.Seq.Values)
	case KindTuple:
		writeSeq(sb, "(", ")", v.Seq.Values)
	case KindTypedTuple:
		sb.WriteString(v.Type.String())
		writeSeq(sb, "(", ")", v.Seq.Values)
	case KindVariantTuple:
		sb.WriteString(v.Variant.String())
		writeSeq(sb, "(", ")", v.Seq.Values)
	case KindObject:
		writeObject(sb, "#", v.Obj)
	case KindTypedObject:
		writeObject(sb, v.Type.String()+" ", v.Obj)
	case KindVariantObject:
		writeObject(sb, v.Variant.String()+" ", v.Obj)
	case KindOption:
		if v.Index != 0 {
			sb.WriteString("None")
			return
		}
		sb.WriteString("Some")
		writeSeq(sb, "(", ")", v.Seq.Values)
	case KindResult:
		if v.Index != 0 {
			sb.WriteString("Err")
		} else {
			sb.WriteString("Ok")
		}
		writeSeq(sb, "(", ")", v.Seq.Values)
	case KindFunction:
		if v.Fn.Env != nil {
			fmt.Fprintf(sb, "<closure %v>", v.Fn.Hash)
		} else {
			fmt.Fprintf(sb, "<fn %v>", v.Fn.Hash)
		}
	case KindType:
		fmt.Fprintf(sb, "<type %v>", v.Type)
	case KindFuture:
		sb.WriteString("<future>")
	case KindExternal:
		if s, ok := v.External.(fmt.Stringer); ok {
			sb.WriteString(s.String())
		} else {
			fmt.Fprintf(sb, "<%T>", v.External)
		}
	default:
		sb.WriteString("<invalid>")
	}
}

func writeSeq(sb *strings.Builder, open, close string, vals []Value) {
	sb.WriteString(open)
	for i, el := range vals {
		if i > 0 {
			sb.WriteString(", ")
		}
		el.write(sb, true)
	}
	sb.WriteString(close)
}

func writeObject(sb *strings.Builder, prefix string, o *Object) {
	sb.WriteString(prefix)
	sb.WriteByte('{')
	for i, k := range o.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		o.Fields[k].write(sb, true)
	}
	sb.WriteByte('}')
}

// Equal compares values structurally.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case KindUnit:
		return true
	case KindBool, KindByte, KindChar, KindInteger:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindString:
		return a.Str == b.Str
	case KindBytes:
		return string(a.Bytes) == string(b.Bytes)
	case KindVec, KindTuple, KindTypedTuple, KindVariantTuple, KindOption, KindResult:
		if a.Type != b.Type || a.Variant != b.Variant || a.Index != b.Index {
			return false
		}
		return equalSeq(a.Seq.Values, b.Seq.Values)
	case KindObject, KindTypedObject, KindVariantObject:
		if a.Type != b.Type || a.Variant != b.Variant || len(a.Obj.Fields) != len(b.Obj.Fields) {
			return false
		}
		for k, av := range a.Obj.Fields {
			bv, ok := b.Obj.Fields[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindFunction:
		return a.Fn == b.Fn
	case KindType:
		return a.Type == b.Type
	case KindFuture:
		return a.Future == b.Future
	case KindExternal:
		return a.External == b.External
	}

	return false
}

func equalSeq(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
