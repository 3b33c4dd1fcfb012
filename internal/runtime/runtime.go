// Package runtime is the host side of the VM: the native modules visible to
// the compiler and the services natives use while running.
package runtime

import (
	"slices"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/runtime/builtins"

	// std modules register themselves on init
	_ "github.com/therealbnut/rune/internal/runtime/builtins/collections"
	_ "github.com/therealbnut/rune/internal/runtime/builtins/core"
	_ "github.com/therealbnut/rune/internal/runtime/builtins/future"
	_ "github.com/therealbnut/rune/internal/runtime/builtins/io"
	_ "github.com/therealbnut/rune/internal/runtime/builtins/iter"
	_ "github.com/therealbnut/rune/internal/runtime/builtins/macros"
	_ "github.com/therealbnut/rune/internal/runtime/builtins/object"
	_ "github.com/therealbnut/rune/internal/runtime/builtins/option"
	_ "github.com/therealbnut/rune/internal/runtime/builtins/result"
	_ "github.com/therealbnut/rune/internal/runtime/builtins/strings"
	_ "github.com/therealbnut/rune/internal/runtime/builtins/vec"
)

var ErrConflict = errors.New("conflicting native")

// Native is an installed host function.
type Native struct {
	Item item.Item
	Hash hash.Hash
	Args int
	Call builtins.Handler
}

// Context holds the installed native modules. It is what the compiler
// resolves host paths against and what the VM calls natives through.
type Context struct {
	metas  map[string]*ir.Meta
	checks map[string]ir.TypeCheck
	names  *ir.Names

	functions map[hash.Hash]*Native
	macros    map[string]builtins.MacroHandler
	modules   []item.Item
}

// NewContext returns a context without any modules.
func NewContext() *Context {
	return &Context{
		metas:     make(map[string]*ir.Meta),
		checks:    make(map[string]ir.TypeCheck),
		names:     ir.NewNames(),
		functions: make(map[hash.Hash]*Native),
		macros:    make(map[string]builtins.MacroHandler),
	}
}

// DefaultContext returns a context with every std module installed.
func DefaultContext() (*Context, error) {
	c := NewContext()
	for _, m := range builtins.All() {
		if err := c.Install(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Install adds the natives and types of m.
func (c *Context) Install(m *builtins.Module) error {
	for _, t := range m.Types {
		typ := m.Item.Extended(item.Str(t.Name))
		th := hash.TypeHash(typ)

		kind := ir.MetaStruct
		if len(t.Variants) != 0 {
			kind = ir.MetaEnum
		}
		if err := c.addMeta(&ir.Meta{Kind: kind, Item: typ, Hash: th}); err != nil {
			return err
		}

		for _, v := range t.Variants {
			vi := typ.Extended(item.Str(v.Name))
			meta := &ir.Meta{
				Kind:     ir.MetaVariantTuple,
				Item:     vi,
				Hash:     hash.TypeHash(vi),
				Enum:     typ,
				EnumHash: th,
				Args:     v.Args,
			}
			if err := c.addMeta(meta); err != nil {
				return err
			}
			c.checks[vi.Key()] = v.Check

			if err := c.addNative(&Native{Item: vi, Hash: meta.Hash, Args: v.Args, Call: v.Call}); err != nil {
				return err
			}
		}
	}

	for _, f := range m.Functions {
		it := m.Item.Join(item.Parse(f.Name))
		if err := c.addFunction(it, hash.TypeHash(it), f.Args, f.Call); err != nil {
			return err
		}
	}

	for _, f := range m.Instance {
		typ := m.Item.Extended(item.Str(f.Type))
		it := typ.Extended(item.Str(f.Name))

		// callable as `value.name(..)` and by path
		h := hash.InstanceFunction(hash.TypeHash(typ), hash.Of(f.Name))
		if err := c.addNative(&Native{Item: it, Hash: h, Args: f.Args, Call: f.Call}); err != nil {
			return err
		}
		if err := c.addFunction(it, hash.TypeHash(it), f.Args, f.Call); err != nil {
			return err
		}
	}

	for _, mac := range m.Macros {
		it := m.Item.Extended(item.Str(mac.Name))
		if _, ok := c.macros[it.Key()]; ok {
			return errors.Wrap(ErrConflict, "macro %v", it)
		}
		c.macros[it.Key()] = mac.Expand
		c.names.Insert(it)
	}

	c.modules = append(c.modules, m.Item)

	tlog.V("runtime").Printw("install", "module", m.Item, "functions", len(m.Functions), "instance", len(m.Instance), "types", len(m.Types), "macros", len(m.Macros))

	return nil
}

func (c *Context) addFunction(it item.Item, h hash.Hash, args int, call builtins.Handler) error {
	if err := c.addMeta(&ir.Meta{Kind: ir.MetaFunction, Item: it, Hash: h, Args: args}); err != nil {
		return err
	}
	return c.addNative(&Native{Item: it, Hash: h, Args: args, Call: call})
}

func (c *Context) addMeta(meta *ir.Meta) error {
	key := meta.Item.Key()
	if old, ok := c.metas[key]; ok {
		return errors.Wrap(ErrConflict, "%v conflicts with %v", meta, old)
	}
	c.metas[key] = meta
	c.names.Insert(meta.Item)
	return nil
}

func (c *Context) addNative(n *Native) error {
	if old, ok := c.functions[n.Hash]; ok {
		return errors.Wrap(ErrConflict, "%v (%v) conflicts with %v", n.Item, n.Hash, old.Item)
	}
	c.functions[n.Hash] = n
	return nil
}

// Modules returns the paths of the installed modules in install order.
func (c *Context) Modules() []item.Item {
	return c.modules
}

// LookupMeta resolves a host item for the compiler.
func (c *Context) LookupMeta(it item.Item) (*ir.Meta, bool) {
	meta, ok := c.metas[it.Key()]
	return meta, ok
}

// TypeCheckFor returns the pattern check of a native variant.
func (c *Context) TypeCheckFor(it item.Item) (ir.TypeCheck, bool) {
	tc, ok := c.checks[it.Key()]
	return tc, ok
}

func (c *Context) ContainsPrefix(it item.Item) bool {
	return c.names.ContainsPrefix(it)
}

func (c *Context) ContainsName(it item.Item) bool {
	return c.names.ContainsName(it)
}

func (c *Context) IterComponents(it item.Item) []item.Component {
	return c.names.IterComponents(it)
}

// ExpandMacro runs the macro it on input.
func (c *Context) ExpandMacro(it item.Item, input string) (string, bool, error) {
	expand, ok := c.macros[it.Key()]
	if !ok {
		return "", false, nil
	}

	out, err := expand(input)
	if err != nil {
		return "", true, err
	}

	return out, true, nil
}

// LookupFunction finds a native by the hash it is called with.
func (c *Context) LookupFunction(h hash.Hash) (*Native, bool) {
	n, ok := c.functions[h]
	return n, ok
}

// LookupInstanceFunction finds the native name of values of type typ.
func (c *Context) LookupInstanceFunction(typ hash.Hash, name string) (*Native, bool) {
	return c.LookupFunction(hash.InstanceFunction(typ, hash.Of(name)))
}

// Fingerprint identifies the installed natives and their arities. Units
// compiled against contexts with equal fingerprints are interchangeable.
func (c *Context) Fingerprint() hash.Hash {
	hs := make([]hash.Hash, 0, len(c.functions))
	for h := range c.functions {
		hs = append(hs, h)
	}
	slices.Sort(hs)

	params := make([]hash.Hash, 0, 2*len(hs)+len(c.macros))
	for _, h := range hs {
		params = append(params, h, hash.Hash(uint64(c.functions[h].Args)))
	}

	// installed macros, by path
	ms := make([]string, 0, len(c.macros))
	for k := range c.macros {
		ms = append(ms, k)
	}
	slices.Sort(ms)

	for _, k := range ms {
		params = append(params, hash.Of(k))
	}

	return hash.Params(hash.Of("runtime"), params...)
}
