package runtime

import (
	"bytes"
	"context"
	"testing"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/value"
)

func defaultContext(t *testing.T) *Context {
	t.Helper()

	c, err := DefaultContext()
	if err != nil {
		t.Fatalf("DefaultContext: %v", err)
	}
	return c
}

func TestDefaultContextMetas(t *testing.T) {
	c := defaultContext(t)

	meta, ok := c.LookupMeta(item.Parse("std::io::println"))
	if !ok || meta.Kind != ir.MetaFunction || meta.Args != 1 {
		t.Fatalf("unexpected println meta: %v", meta)
	}

	meta, ok = c.LookupMeta(item.Parse("std::io::dbg"))
	if !ok || meta.Args != -1 {
		t.Fatalf("dbg should be variadic: %v", meta)
	}

	some, ok := c.LookupMeta(item.Parse("std::option::Option::Some"))
	if !ok || some.Kind != ir.MetaVariantTuple || some.Args != 1 || some.EnumHash != value.OptionType {
		t.Fatalf("unexpected Some meta: %+v", some)
	}

	option, ok := c.LookupMeta(item.Parse("std::option::Option"))
	if !ok || option.Kind != ir.MetaEnum {
		t.Fatalf("unexpected Option meta: %+v", option)
	}

	tc, ok := c.TypeCheckFor(item.Parse("std::result::Result::Err"))
	if !ok || tc.Kind != ir.CheckResult || tc.Index != 1 {
		t.Fatalf("unexpected Err check: %v", tc)
	}
	if _, ok := c.TypeCheckFor(item.Parse("std::io::println")); ok {
		t.Fatalf("functions have no type check")
	}
}

func TestNames(t *testing.T) {
	c := defaultContext(t)

	if !c.ContainsPrefix(item.Parse("std::io")) {
		t.Fatalf("std::io should be a prefix")
	}
	if c.ContainsName(item.Parse("std::io")) {
		t.Fatalf("std::io is a module, not a declared name")
	}
	if !c.ContainsName(item.Parse("std::vec::Vec::new")) {
		t.Fatalf("Vec::new should be declared")
	}

	var names []string
	for _, comp := range c.IterComponents(item.Parse("std::io")) {
		names = append(names, comp.String())
	}
	if len(names) != 3 || names[0] != "dbg" || names[1] != "print" || names[2] != "println" {
		t.Fatalf("unexpected components: %v", names)
	}
}

func TestInstanceFunctions(t *testing.T) {
	c := defaultContext(t)

	byName, ok := c.LookupInstanceFunction(value.VecType, "len")
	if !ok {
		t.Fatalf("Vec.len not installed")
	}
	byPath, ok := c.LookupFunction(hash.TypeHash(item.Parse("std::vec::Vec::len")))
	if !ok || byPath.Args != byName.Args {
		t.Fatalf("Vec.len not callable by path")
	}

	out, err := byName.Call(nil, []value.Value{value.Vec(value.Unit(), value.Unit())})
	if err != nil || out.Int != 2 {
		t.Fatalf("len: %v %v", out, err)
	}
}

func TestInstallConflict(t *testing.T) {
	c := NewContext()
	m := builtins.NewModule("test").Function("f", 0, nil)

	if err := c.Install(m); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := c.Install(m); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestEnv(t *testing.T) {
	var buf bytes.Buffer
	env := NewEnv(&buf)

	if env.Stdout() != &buf {
		t.Fatalf("stdout not wired")
	}

	v, err := env.Yield(context.Background(), value.Integer(1))
	if err != nil || v.Kind != value.KindUnit {
		t.Fatalf("default yield: %v %v", v, err)
	}

	env.SetYield(func(ctx context.Context, v value.Value) (value.Value, error) {
		return value.Integer(v.Int + 1), nil
	})
	v, err = env.Yield(context.Background(), value.Integer(1))
	if err != nil || v.Int != 2 {
		t.Fatalf("custom yield: %v %v", v, err)
	}
}

func TestFingerprint(t *testing.T) {
	a, b := defaultContext(t), defaultContext(t)
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("equal contexts have different fingerprints")
	}

	c := NewContext()
	if err := c.Install(builtins.NewModule("test").Function("f", 1, nil)); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if c.Fingerprint() == a.Fingerprint() || c.Fingerprint() == NewContext().Fingerprint() {
		t.Fatalf("fingerprint does not depend on the installed natives")
	}
}

func TestMacros(t *testing.T) {
	c := defaultContext(t)

	out, ok, err := c.ExpandMacro(item.Parse("std::macros::stringify"), " a + b ")
	if err != nil || !ok || out != `"a + b"` {
		t.Fatalf("stringify: %q %v %v", out, ok, err)
	}
	if !c.ContainsName(item.Parse("std::macros::assert")) {
		t.Fatalf("macros are not importable")
	}

	if _, ok, _ := c.ExpandMacro(item.Parse("std::macros::nope"), ""); ok {
		t.Fatalf("expanded a missing macro")
	}

	d := NewContext()
	m := builtins.NewModule("test").Macro("m", func(string) (string, error) { return "1", nil })
	if err := d.Install(m); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if d.Fingerprint() == NewContext().Fingerprint() {
		t.Fatalf("fingerprint does not depend on the installed macros")
	}
	if err := d.Install(builtins.NewModule("test2").Macro("m", nil)); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := d.Install(builtins.NewModule("test").Macro("m", nil)); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
