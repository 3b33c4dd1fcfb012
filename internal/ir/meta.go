package ir

import (
	"fmt"
	"sort"

	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/item"
)

// MetaKind is what a resolved path denotes.
type MetaKind uint8

const (
	MetaFunction MetaKind = iota
	MetaTuple
	MetaVariantTuple
	MetaStruct
	MetaVariantStruct
	MetaClosure
	MetaEnum
)

var metaKindNames = [...]string{
	MetaFunction:      "function",
	MetaTuple:         "tuple",
	MetaVariantTuple:  "variant tuple",
	MetaStruct:        "struct",
	MetaVariantStruct: "variant struct",
	MetaClosure:       "closure",
	MetaEnum:          "enum",
}

func (k MetaKind) String() string {
	if int(k) < len(metaKindNames) {
		return metaKindNames[k]
	}
	return fmt.Sprintf("meta(%d)", k)
}

// Meta describes the item a path resolves to.
type Meta struct {
	Kind MetaKind
	Item item.Item
	Hash hash.Hash

	// Enum is the enclosing enum of a variant.
	Enum     item.Item
	EnumHash hash.Hash

	// Args is the arity of functions and tuple constructors.
	Args int

	// Fields is the known field set of structs, nil when the shape of the
	// type is unknown.
	Fields map[string]struct{}

	// Captures are the names a closure copies out of its environment, in
	// capture order.
	Captures []string
}

// FieldSet builds a Fields value.
func FieldSet(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, name := range names {
		out[name] = struct{}{}
	}
	return out
}

// SortedFields returns the known fields in a stable order.
func (m *Meta) SortedFields() []string {
	out := make([]string, 0, len(m.Fields))
	for f := range m.Fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ValueType returns the hash of the type that values of this meta have.
// Functions and closures have no value type of their own.
func (m *Meta) ValueType() (hash.Hash, bool) {
	switch m.Kind {
	case MetaTuple, MetaStruct, MetaEnum:
		return m.Hash, true
	case MetaVariantTuple, MetaVariantStruct:
		return m.EnumHash, true
	}
	return 0, false
}

func (m *Meta) String() string {
	switch m.Kind {
	case MetaFunction, MetaTuple, MetaVariantTuple:
		return fmt.Sprintf("%s %s/%d", m.Kind, m.Item, m.Args)
	case MetaClosure:
		return fmt.Sprintf("%s %s %v", m.Kind, m.Item, m.Captures)
	}
	return fmt.Sprintf("%s %s", m.Kind, m.Item)
}
