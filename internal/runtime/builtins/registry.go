package builtins

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/value"
)

// ErrPanic is returned when a script panics.
var ErrPanic = errors.New("panic")

// Env provides host services to native functions.
// It is implemented by the VM so that natives can call back into scripts.
type Env interface {
	Context() context.Context
	Stdout() io.Writer

	// Call calls a function value, which may be a script function, a
	// closure or another native.
	Call(fn value.Value, args ...value.Value) (value.Value, error)
}

// Handler is the implementation of a native function. For instance
// functions args[0] is the receiver.
type Handler func(env Env, args []value.Value) (value.Value, error)

// Function is a native function. Args is -1 for variadic functions.
type Function struct {
	Name string
	Args int
	Call Handler
}

// InstanceFunction is a native callable as `value.name(..)` on values of
// the type named Type in the same module. Args counts the receiver.
type InstanceFunction struct {
	Type string
	Name string
	Args int
	Call Handler
}

// Variant is a tuple-shaped variant of an enum type.
type Variant struct {
	Name  string
	Args  int
	Check ir.TypeCheck
	Call  Handler
}

// Type is a type declared by a module. Types with variants are enums.
type Type struct {
	Name     string
	Variants []Variant
}

// MacroHandler expands a macro call at compile time. It gets the source
// between the parentheses and returns the source of an expression.
type MacroHandler func(input string) (string, error)

// Macro is a compile time macro called as `name!(..)`.
type Macro struct {
	Name   string
	Expand MacroHandler
}

// Module is a set of natives installed under a common path.
type Module struct {
	Item      item.Item
	Functions []Function
	Instance  []InstanceFunction
	Types     []Type
	Macros    []Macro
}

func NewModule(path string) *Module {
	return &Module{Item: item.Parse(path)}
}

func (m *Module) Function(name string, args int, call Handler) *Module {
	m.Functions = append(m.Functions, Function{Name: name, Args: args, Call: call})
	return m
}

func (m *Module) InstanceFunction(typ, name string, args int, call Handler) *Module {
	m.Instance = append(m.Instance, InstanceFunction{Type: typ, Name: name, Args: args, Call: call})
	return m
}

func (m *Module) Macro(name string, expand MacroHandler) *Module {
	m.Macros = append(m.Macros, Macro{Name: name, Expand: expand})
	return m
}

func (m *Module) Type(name string, variants ...Variant) *Module {
	m.Types = append(m.Types, Type{Name: name, Variants: variants})
	return m
}

// registry holds all registered modules.
type registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

var globalRegistry = &registry{
	modules: make(map[string]*Module),
}

// Register registers a module. This is called by the init function of
// each std package.
// Panics if a module with the same path is already registered.
func Register(m *Module) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	key := m.Item.String()
	if _, exists := globalRegistry.modules[key]; exists {
		panic(fmt.Sprintf("module %s is already registered", key))
	}

	for _, f := range m.Instance {
		if !m.declares(f.Type) {
			panic(fmt.Sprintf("module %s: instance function %s on undeclared type %s", key, f.Name, f.Type))
		}
	}

	globalRegistry.modules[key] = m
}

func (m *Module) declares(name string) bool {
	for _, t := range m.Types {
		if t.Name == name {
			return true
		}
	}
	return false
}

// All returns the registered modules ordered by path.
func All() []*Module {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make([]*Module, 0, len(globalRegistry.modules))
	for _, m := range globalRegistry.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.String() < out[j].Item.String() })
	return out
}

// Lookup returns the function name of the module at path.
func Lookup(path, name string) *Function {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	m := globalRegistry.modules[path]
	if m == nil {
		return nil
	}
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i]
		}
	}
	return nil
}

// LookupInstance returns the instance function typ.name of the module at
// path.
func LookupInstance(path, typ, name string) *InstanceFunction {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	m := globalRegistry.modules[path]
	if m == nil {
		return nil
	}
	for i := range m.Instance {
		if m.Instance[i].Type == typ && m.Instance[i].Name == name {
			return &m.Instance[i]
		}
	}
	return nil
}

// ---------- Argument helpers ----------

// Arg returns args[i] if it has the wanted kind.
func Arg(name string, args []value.Value, i int, kind value.Kind) (value.Value, error) {
	if i >= len(args) {
		return value.Value{}, errors.New("%s: missing argument %d", name, i)
	}
	if args[i].Kind != kind {
		return value.Value{}, errors.New("%s: argument %d: expected %v, got %v", name, i, kind, args[i].Kind)
	}
	return args[i], nil
}

// Index returns args[i] as a non-negative integer.
func Index(name string, args []value.Value, i int) (int, error) {
	v, err := Arg(name, args, i, value.KindInteger)
	if err != nil {
		return 0, err
	}
	if v.Int < 0 {
		return 0, errors.New("%s: argument %d: negative index %d", name, i, v.Int)
	}
	return int(v.Int), nil
}

// External returns args[i] as a host value of type T.
func External[T value.External](name string, args []value.Value, i int) (T, error) {
	var zero T

	v, err := Arg(name, args, i, value.KindExternal)
	if err != nil {
		return zero, err
	}
	t, ok := v.External.(T)
	if !ok {
		return zero, errors.New("%s: argument %d: expected %T, got %T", name, i, zero, v.External)
	}
	return t, nil
}
