package ir

import (
	"sort"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/oklog/ulid/v2"

	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/token"
)

var (
	ErrFunctionConflict = errors.New("conflicting function")
	ErrImportConflict   = errors.New("conflicting import")
	ErrTypeConflict     = errors.New("conflicting type")
)

// CallKind is the calling convention of a function.
type CallKind uint8

const (
	CallImmediate CallKind = iota
	CallAsync
)

func (c CallKind) String() string {
	if c == CallAsync {
		return "async"
	}
	return "immediate"
}

// UnitFn is a compiled function: a range of the unit's instruction stream.
type UnitFn struct {
	Item   item.Item
	Hash   hash.Hash
	Offset int
	Len    int
	Args   int
	Call   CallKind

	// Closure functions take their captured environment as a tuple after
	// the arguments.
	Closure bool

	// Instance is the receiver type of instance functions.
	Instance     bool
	InstanceType hash.Hash
	Name         string
}

// UnitType is a script declared type that values can be constructed of.
type UnitType struct {
	Kind     MetaKind
	Item     item.Item
	Hash     hash.Hash
	EnumHash hash.Hash
	Args     int
	Fields   []string
}

// ImportEntry is the target of an import alias.
type ImportEntry struct {
	Item item.Item
	Span *token.Span // nil for prelude entries
}

type importKey struct {
	base string
	name string
}

// Unit is the output of a compilation: the instruction stream, the
// functions addressing into it, static pools and imports.
type Unit struct {
	BuildID ulid.ULID

	Instructions []Instruction
	Spans        []token.Span

	Functions map[hash.Hash]*UnitFn
	Types     map[hash.Hash]*UnitType

	Strings    []string
	Bytes      [][]byte
	ObjectKeys [][]string

	stringSlots map[string]int
	bytesSlots  map[string]int
	keysSlots   map[string]int

	imports map[importKey]ImportEntry
	names   *Names

	fnOrder []hash.Hash
}

func NewUnit() *Unit {
	return &Unit{
		BuildID:     ulid.Make(),
		Functions:   make(map[hash.Hash]*UnitFn),
		Types:       make(map[hash.Hash]*UnitType),
		stringSlots: make(map[string]int),
		bytesSlots:  make(map[string]int),
		keysSlots:   make(map[string]int),
		imports:     make(map[importKey]ImportEntry),
		names:       NewNames(),
	}
}

// Prelude maps the names every script can use unqualified.
var Prelude = map[string]string{
	"Option": "std::option::Option",
	"Some":   "std::option::Option::Some",
	"None":   "std::option::Option::None",
	"Result": "std::result::Result",
	"Ok":     "std::result::Result::Ok",
	"Err":    "std::result::Result::Err",
	"Vec":    "std::vec::Vec",
	"Object": "std::object::Object",
	"String": "std::string::String",
	"drop":   "std::drop",
	"panic":  "std::panic",
}

// NewUnitWithPrelude creates a unit with the default prelude imported at
// the root.
func NewUnitWithPrelude() *Unit {
	u := NewUnit()

	names := make([]string, 0, len(Prelude))
	for name := range Prelude {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		u.imports[importKey{name: name}] = ImportEntry{Item: item.Parse(Prelude[name])}
	}

	return u
}

// ---------- Static pools ----------

// NewStaticString adds a string to the pool and returns its slot. Equal
// strings share a slot.
func (u *Unit) NewStaticString(s string) int {
	if slot, ok := u.stringSlots[s]; ok {
		return slot
	}
	slot := len(u.Strings)
	u.Strings = append(u.Strings, s)
	u.stringSlots[s] = slot
	return slot
}

// NewStaticBytes adds a byte string to the pool and returns its slot.
func (u *Unit) NewStaticBytes(b []byte) int {
	key := string(b)
	if slot, ok := u.bytesSlots[key]; ok {
		return slot
	}
	slot := len(u.Bytes)
	u.Bytes = append(u.Bytes, append([]byte(nil), b...))
	u.bytesSlots[key] = slot
	return slot
}

// NewStaticObjectKeys adds an ordered key set and returns its slot.
func (u *Unit) NewStaticObjectKeys(keys []string) int {
	key := strings.Join(keys, "\x00")
	if slot, ok := u.keysSlots[key]; ok {
		return slot
	}
	slot := len(u.ObjectKeys)
	u.ObjectKeys = append(u.ObjectKeys, append([]string(nil), keys...))
	u.keysSlots[key] = slot
	return slot
}

// ---------- Functions and types ----------

func (u *Unit) addFunction(fn *UnitFn, asm *Assembly, hashes ...hash.Hash) error {
	for _, h := range hashes {
		if old, ok := u.Functions[h]; ok {
			return errors.Wrap(ErrFunctionConflict, "%v (%v) conflicts with %v", fn.Item, h, old.Item)
		}
	}

	code, err := asm.resolve(len(u.Instructions))
	if err != nil {
		return errors.Wrap(err, "function %v", fn.Item)
	}

	fn.Offset = len(u.Instructions)
	fn.Len = len(code)

	u.Instructions = append(u.Instructions, code...)
	u.Spans = append(u.Spans, asm.Spans...)

	for _, h := range hashes {
		u.Functions[h] = fn
		u.fnOrder = append(u.fnOrder, h)
	}

	return nil
}

// NewFunction adds a free function under the type hash of its item.
func (u *Unit) NewFunction(path item.Item, args int, asm *Assembly, call CallKind) error {
	h := hash.TypeHash(path)
	fn := &UnitFn{Item: path.Clone(), Hash: h, Args: args, Call: call}
	return u.addFunction(fn, asm, h)
}

// NewClosure adds the body of a closure expression.
func (u *Unit) NewClosure(path item.Item, args int, asm *Assembly, call CallKind) error {
	h := hash.TypeHash(path)
	fn := &UnitFn{Item: path.Clone(), Hash: h, Args: args, Call: call, Closure: true}
	return u.addFunction(fn, asm, h)
}

// NewInstanceFunction adds a function callable both as `value.name(..)` on
// values of typ and by its full path.
func (u *Unit) NewInstanceFunction(path item.Item, typ hash.Hash, name string, args int, asm *Assembly, call CallKind) error {
	h := hash.InstanceFunction(typ, hash.Of(name))
	fn := &UnitFn{
		Item:         path.Clone(),
		Hash:         h,
		Args:         args,
		Call:         call,
		Instance:     true,
		InstanceType: typ,
		Name:         name,
	}
	return u.addFunction(fn, asm, h, hash.TypeHash(path))
}

// NewType registers a script declared struct, tuple or variant.
func (u *Unit) NewType(meta *Meta) error {
	if _, ok := u.Types[meta.Hash]; ok {
		return errors.Wrap(ErrTypeConflict, "%v", meta.Item)
	}

	t := &UnitType{
		Kind:     meta.Kind,
		Item:     meta.Item.Clone(),
		Hash:     meta.Hash,
		EnumHash: meta.EnumHash,
		Args:     meta.Args,
	}
	if meta.Fields != nil {
		t.Fields = meta.SortedFields()
	}

	u.Types[meta.Hash] = t
	return nil
}

// FunctionHashes returns the registered hashes in registration order.
func (u *Unit) FunctionHashes() []hash.Hash {
	return u.fnOrder
}

// ---------- Imports and names ----------

// NewImport makes name visible inside base as an alias for target.
func (u *Unit) NewImport(base item.Item, name string, target item.Item, span *token.Span) error {
	key := importKey{base: base.Key(), name: name}
	if old, ok := u.imports[key]; ok && !old.Item.Equal(target) {
		return errors.Wrap(ErrImportConflict, "%v in %v: %v and %v", name, base, old.Item, target)
	}
	u.imports[key] = ImportEntry{Item: target.Clone(), Span: span}
	return nil
}

// LookupImport finds an import of name declared directly in base.
func (u *Unit) LookupImport(base item.Item, name string) (ImportEntry, bool) {
	e, ok := u.imports[importKey{base: base.Key(), name: name}]
	return e, ok
}

// Imports returns every import entry in a stable order.
func (u *Unit) Imports() []ImportEntry {
	keys := make([]importKey, 0, len(u.imports))
	for k := range u.imports {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].base != keys[j].base {
			return keys[i].base < keys[j].base
		}
		return keys[i].name < keys[j].name
	})

	out := make([]ImportEntry, len(keys))
	for i, k := range keys {
		out[i] = u.imports[k]
	}
	return out
}

// InsertName records a declared item and all of its prefixes.
func (u *Unit) InsertName(it item.Item) {
	u.names.Insert(it)
}

func (u *Unit) ContainsPrefix(prefix item.Item) bool {
	return u.names.ContainsPrefix(prefix)
}

func (u *Unit) ContainsName(it item.Item) bool {
	return u.names.ContainsName(it)
}

func (u *Unit) IterComponents(prefix item.Item) []item.Component {
	return u.names.IterComponents(prefix)
}

// Names is a set of declared items, queryable by prefix.
type Names struct {
	root *trie
}

func NewNames() *Names {
	return &Names{root: newTrie()}
}

// Insert records a declared item and all of its prefixes.
func (n *Names) Insert(it item.Item) {
	n.root.insert(it)
}

// ContainsPrefix reports whether any declared item lives under prefix.
func (n *Names) ContainsPrefix(prefix item.Item) bool {
	return n.root.find(prefix) != nil
}

// ContainsName reports whether it was declared.
func (n *Names) ContainsName(it item.Item) bool {
	t := n.root.find(it)
	return t != nil && t.term
}

// IterComponents lists the components declared directly under prefix.
func (n *Names) IterComponents(prefix item.Item) []item.Component {
	t := n.root.find(prefix)
	if t == nil {
		return nil
	}
	return t.components()
}

type trie struct {
	comp     item.Component
	children map[item.Component]*trie
	term     bool
}

func newTrie() *trie {
	return &trie{children: make(map[item.Component]*trie)}
}

func (t *trie) insert(it item.Item) {
	n := t
	for _, c := range it {
		next, ok := n.children[c]
		if !ok {
			next = newTrie()
			next.comp = c
			n.children[c] = next
		}
		n = next
	}
	n.term = true
}

func (t *trie) find(it item.Item) *trie {
	n := t
	for _, c := range it {
		next, ok := n.children[c]
		if !ok {
			return nil
		}
		n = next
	}
	return n
}

func (t *trie) components() []item.Component {
	out := make([]item.Component, 0, len(t.children))
	for c := range t.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
