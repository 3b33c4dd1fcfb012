package compiler_test

import (
	"sort"
	"testing"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/compiler"
	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/parser"
	"github.com/therealbnut/rune/internal/token"
)

// hostContext is a minimal host with a handful of std items.
type hostContext struct {
	metas  map[string]*ir.Meta
	names  []item.Item
	macros map[string]func(string) (string, error)
}

func newHostContext() *hostContext {
	ctx := &hostContext{
		metas:  make(map[string]*ir.Meta),
		macros: make(map[string]func(string) (string, error)),
	}

	ctx.addMacro("test::echo", func(in string) (string, error) { return in, nil })
	ctx.addMacro("test::twice", func(in string) (string, error) { return "(" + in + ") + (" + in + ")", nil })
	ctx.addMacro("test::again", func(in string) (string, error) { return "test::again!()", nil })
	ctx.addMacro("test::fail", func(in string) (string, error) { return "", errors.New("no") })

	ctx.add(&ir.Meta{Kind: ir.MetaFunction, Item: item.Parse("std::io::print"), Args: 1})
	ctx.add(&ir.Meta{Kind: ir.MetaFunction, Item: item.Parse("std::io::println"), Args: 1})

	option := item.Parse("std::option::Option")
	ctx.add(&ir.Meta{Kind: ir.MetaEnum, Item: option})
	ctx.add(&ir.Meta{Kind: ir.MetaVariantTuple, Item: option.Extended(item.Str("Some")), Enum: option, EnumHash: hash.TypeHash(option), Args: 1})
	ctx.add(&ir.Meta{Kind: ir.MetaVariantTuple, Item: option.Extended(item.Str("None")), Enum: option, EnumHash: hash.TypeHash(option)})

	return ctx
}

func (c *hostContext) add(meta *ir.Meta) {
	meta.Hash = hash.TypeHash(meta.Item)
	c.metas[meta.Item.Key()] = meta
	c.names = append(c.names, meta.Item)
}

func (c *hostContext) addMacro(path string, expand func(string) (string, error)) {
	it := item.Parse(path)
	c.macros[it.Key()] = expand
	c.names = append(c.names, it)
}

func (c *hostContext) ExpandMacro(it item.Item, input string) (string, bool, error) {
	expand, ok := c.macros[it.Key()]
	if !ok {
		return "", false, nil
	}
	out, err := expand(input)
	return out, true, err
}

func (c *hostContext) LookupMeta(it item.Item) (*ir.Meta, bool) {
	meta, ok := c.metas[it.Key()]
	return meta, ok
}

func (c *hostContext) TypeCheckFor(it item.Item) (ir.TypeCheck, bool) {
	switch it.String() {
	case "std::option::Option::Some":
		return ir.TypeCheck{Kind: ir.CheckOption, Index: 0}, true
	case "std::option::Option::None":
		return ir.TypeCheck{Kind: ir.CheckOption, Index: 1}, true
	}
	return ir.TypeCheck{}, false
}

func (c *hostContext) ContainsPrefix(it item.Item) bool {
	for _, name := range c.names {
		if name.HasPrefix(it) {
			return true
		}
	}
	return false
}

func (c *hostContext) ContainsName(it item.Item) bool {
	for _, name := range c.names {
		if name.HasPrefix(it) {
			return true
		}
	}
	return false
}

func (c *hostContext) IterComponents(it item.Item) []item.Component {
	seen := make(map[item.Component]bool)
	var out []item.Component
	for _, name := range c.names {
		if len(name) > len(it) && name.HasPrefix(it) && !seen[name[len(it)]] {
			seen[name[len(it)]] = true
			out = append(out, name[len(it)])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func compile(t *testing.T, src string) (*ir.Unit, *compiler.Warnings, error) {
	t.Helper()

	file, errs := parser.ParseFile(src)
	if len(errs) != 0 {
		t.Fatalf("parse %q: %v", src, errs)
	}

	opts := compiler.DefaultOptions()
	opts.Prelude = false

	return compiler.CompileWithOptions(newHostContext(), file, opts)
}

func mustCompile(t *testing.T, src string) (*ir.Unit, *compiler.Warnings) {
	t.Helper()

	u, w, err := compile(t, src)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	if err := u.Verify(); err != nil {
		t.Fatalf("verify %q: %v", src, err)
	}
	return u, w
}

func expectKind(t *testing.T, src string, want compiler.ErrorKind) {
	t.Helper()

	_, _, err := compile(t, src)
	if err == nil {
		t.Fatalf("compile %q: expected %v, got no error", src, want)
	}
	if got, ok := compiler.KindOf(err); !ok || got != want {
		t.Fatalf("compile %q: expected %v, got %v", src, want, err)
	}
}

func hasWarning(w *compiler.Warnings, kind compiler.WarningKind) bool {
	for _, warning := range w.All() {
		if warning.Kind == kind {
			return true
		}
	}
	return false
}

func code(t *testing.T, u *ir.Unit, path ...string) []ir.Instruction {
	t.Helper()

	fn := u.Functions[hash.TypeHash(item.Of(path...))]
	if fn == nil {
		t.Fatalf("function %v not compiled", path)
	}
	return u.Instructions[fn.Offset : fn.Offset+fn.Len]
}

func TestStackBalance(t *testing.T) {
	for _, src := range []string{
		`fn main() { let (a, b) = (1, 2); a + b }`,
		`fn main() { match (1, 2) { (a, 2) => a, _ => 0 } }`,
		`fn main(x) { if x { 1 } else if x == 2 { 2 } else if x == 3 { 3 } else { 4 } }`,
		`fn main(x) { if x { 1 } }`,
		`fn main(x) { if let (a, b) = x { a } else { 0 } }`,
		`fn main(x) { let y = if let std::option::Option::Some(v) = x { v } else { 0 }; y }`,
		`fn main(v) { let n = 0; for i in v { n += i; } n }`,
		`fn main() { let i = 0; while i < 10 { i += 1; } i }`,
		`fn main(x) { while let std::option::Option::Some(v) = x { break; } }`,
		`fn main() { let x = loop { break 5; }; x }`,
		`fn main(v) { let x = for i in v { if i { break; } }; x }`,
		`fn main() { let a = 1; let f = |b| a + b; f(2) }`,
		`fn main(o) { o.x = 1; o.0 = 2; o[3] = 4; let t = o.0; o.y }`,
		"fn main(x) { let s = `a {x} b`; s }",
		`fn main(r) { let v = r?; v }`,
		`fn main(a, b) { select { x = a => x, _ = b => 0 } }`,
		`fn main(a) { select { x = a => x, default => 1 } }`,
		`async fn main(x) { x.await }`,
		`fn main(o) { match o { #{a, b: (c, ..)} => a + c, [x, y] => x, "s" => 1, 'c' => 2, () => 3, _ => 0 } }`,
		`fn main() { 'outer: loop { loop { break 'outer; } } }`,
		`fn main(x) { match x { std::option::Option::Some(v) if v > 1 => v, None => 0, _ => 1 } }`,
		`fn main() { let x = { let y = 1; y }; let z = { 2; }; x }`,
		`fn main(x) { return x; }`,
		`fn main(x) { let _ = x; let [a, ..] = x; yield a; yield; }`,
		`fn main(x) { x.len() + x.get(1) }`,
		`fn main(x) { x is std::option::Option && !(x is not std::option::Option) }`,
		`fn main() { let f = || { let y = 1; y }; f() }`,
		`fn main() { fn inner(a) { a } inner(1) }`,
		`struct P { x, y } enum E { A(a), B } fn main(v) { let p = P { x: 1, y: 2 }; match v { E::A(n) => n + p.x, E::B => 0, _ => -1 } }`,
		`struct Counter { n } impl Counter { fn get(self) { self.n } fn new() { Counter { n: 0 } } } fn main() { let c = Counter::new(); c.get() }`,
	} {
		mustCompile(t, src)
	}
}

func TestEntryFunctionsAreCompiled(t *testing.T) {
	u, _ := mustCompile(t, `fn main() { 1 } fn other() { 2 } fn unused_helper() { 3 }`)

	for _, name := range []string{"main", "other", "unused_helper"} {
		if u.Functions[hash.TypeHash(item.Of(name))] == nil {
			t.Errorf("%s not compiled", name)
		}
	}
}

func TestUnreferencedNestedItemsAreNotCompiled(t *testing.T) {
	u, _ := mustCompile(t, `fn main() { fn used() { 1 } fn unused() { 2 } used() }`)

	used := item.Of("main").Extended(item.Block(0), item.Str("used"))
	unused := item.Of("main").Extended(item.Block(0), item.Str("unused"))

	if u.Functions[hash.TypeHash(used)] == nil {
		t.Errorf("%v not compiled", used)
	}
	if u.Functions[hash.TypeHash(unused)] != nil {
		t.Errorf("%v compiled", unused)
	}
}

func TestDeadLiteralElision(t *testing.T) {
	for _, tc := range []struct {
		src  string
		code []ir.OpCode
	}{
		{`fn main() { 1; }`, []ir.OpCode{ir.OpReturnUnit}},
		{`fn main() { "text"; }`, []ir.OpCode{ir.OpReturnUnit}},
		{`fn main() { true; }`, []ir.OpCode{ir.OpReturnUnit}},
		{`fn main() { (1, 2); }`, []ir.OpCode{ir.OpReturnUnit}},
		{`fn main(x) { x; }`, []ir.OpCode{ir.OpPop, ir.OpReturnUnit}},
		{`fn main() { std::io::print; }`, []ir.OpCode{ir.OpReturnUnit}},
	} {
		u, w := mustCompile(t, tc.src)

		got := code(t, u, "main")
		if len(got) != len(tc.code) {
			t.Errorf("%s: expected %v, got %v", tc.src, tc.code, got)
			continue
		}
		for i := range got {
			if got[i].Op != tc.code[i] {
				t.Errorf("%s: instruction %d: expected %v, got %v", tc.src, i, tc.code[i], got[i])
			}
		}

		if w.Len() != 1 || w.All()[0].Kind != compiler.WarnNotUsed {
			t.Errorf("%s: expected one not used warning, got %v", tc.src, w.All())
		}
	}
}

func TestUnusedTupleWithEffectsIsPopped(t *testing.T) {
	u, w := mustCompile(t, `fn main(x) { (x.len(), 1); }`)

	got := code(t, u, "main")
	if got[len(got)-3].Op != ir.OpPop || got[len(got)-4].Op != ir.OpTuple {
		t.Errorf("expected the tuple to be popped, got %v", got)
	}
	if w.Len() != 1 {
		t.Errorf("expected one warning, got %v", w.All())
	}
}

func TestShadowing(t *testing.T) {
	span := token.Span{Start: 0, End: 1}

	s := compiler.NewScopes()
	if _, err := s.NewVar("a", span); err != nil {
		t.Fatalf("NewVar: %v", err)
	}
	if _, err := s.NewVar("a", span); err == nil {
		t.Fatalf("expected a conflict")
	} else if kind, _ := compiler.KindOf(err); kind != compiler.KindVariableConflict {
		t.Fatalf("expected variable conflict, got %v", err)
	}

	child, err := s.Child(span)
	if err != nil {
		t.Fatalf("Child: %v", err)
	}
	g := s.Push(child)

	off, err := s.NewVar("a", span)
	if err != nil {
		t.Fatalf("NewVar in child: %v", err)
	}
	if v, ok := s.TryGetVar("a"); !ok || v.Offset != off || off != 1 {
		t.Fatalf("expected inner a at 1, got %+v", v)
	}

	if _, err := s.Pop(g, span); err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if v, ok := s.TryGetVar("a"); !ok || v.Offset != 0 {
		t.Fatalf("expected outer a at 0, got %+v", v)
	}

	if _, err := s.Pop(g, span); err == nil {
		t.Fatalf("expected guard mismatch")
	}

	expectKind(t, `fn f(a, a) { }`, compiler.KindVariableConflict)
	mustCompile(t, `fn main() { let a = 1; let a = 2; let b = { let a = 3; a }; a + b }`)
}

func TestTupleVariantArity(t *testing.T) {
	expectKind(t, `enum E { A(a, b) } fn main(v) { match v { E::A(x) => x, _ => 0 } }`, compiler.KindUnsupportedArgumentCount)
	expectKind(t, `enum E { A(a, b) } fn main(v) { match v { E::A(x, y, z) => x, _ => 0 } }`, compiler.KindUnsupportedArgumentCount)
	mustCompile(t, `enum E { A(a, b) } fn main(v) { match v { E::A(x, ..) => x, _ => 0 } }`)
	mustCompile(t, `enum E { A(a, b) } fn main(v) { match v { E::A(x, y) => x + y, _ => 0 } }`)
	expectKind(t, `enum E { A(a, b) } fn main() { E::A(1) }`, compiler.KindUnsupportedArgumentCount)
}

func TestBreakTargeting(t *testing.T) {
	u, _ := mustCompile(t, `fn main(v, w) {
		'a: for i in v {
			let x = 1;
			for j in w {
				let y = 2;
				break 'a;
			}
		};
	}`)

	got := code(t, u, "main")

	// args at 0 and 1, the outer iterator at 2, i and next at 3 and 4,
	// x at 5, the inner iterator at 6, j and next at 7 and 8, y at 9
	found := false
	for k := 2; k+1 < len(got); k++ {
		if got[k].Op == ir.OpPopN && got[k].A == 7 &&
			got[k-1].Op == ir.OpDrop && got[k-1].A == 2 &&
			got[k-2].Op == ir.OpDrop && got[k-2].A == 6 &&
			got[k+1].Op == ir.OpJump {
			found = true
		}
	}
	if !found {
		t.Errorf("expected drop 6, drop 2, pop-n 7, jump in %v", got)
	}

	// as the trailing expression the loop produces unit when broken out of
	u, _ = mustCompile(t, `fn main(v, w) {
		'a: for i in v {
			for j in w {
				break 'a;
			}
		}
	}`)

	got = code(t, u, "main")

	found = false
	for k := 0; k+2 < len(got); k++ {
		if got[k].Op == ir.OpPopN && got[k].A == 5 &&
			got[k+1].Op == ir.OpUnit &&
			got[k+2].Op == ir.OpJump {
			found = true
		}
	}
	if !found {
		t.Errorf("expected pop-n 5, unit, jump in %v", got)
	}
}

func TestBreakErrors(t *testing.T) {
	expectKind(t, `fn main() { break; }`, compiler.KindBreakOutsideOfLoop)
	expectKind(t, `fn main() { loop { break 'nope; } }`, compiler.KindMissingLabel)
}

func TestBreakWarnings(t *testing.T) {
	_, w := mustCompile(t, `fn main() { 'a: loop { break; } }`)
	if !hasWarning(w, compiler.WarnUnusedLoopLabel) {
		t.Errorf("expected unused label warning, got %v", w.All())
	}

	_, w = mustCompile(t, `fn main() { loop { let x = break; } }`)
	if !hasWarning(w, compiler.WarnBreakDoesNotProduceValue) {
		t.Errorf("expected break value warning, got %v", w.All())
	}

	_, w = mustCompile(t, `fn main() { 'a: loop { break 'a; } }`)
	if hasWarning(w, compiler.WarnUnusedLoopLabel) {
		t.Errorf("unexpected unused label warning")
	}
}

func TestForwardReference(t *testing.T) {
	u, _ := mustCompile(t, `fn f() { g(1, 2) } fn g(a, b) { a + b }`)

	g := u.Functions[hash.TypeHash(item.Of("g"))]
	if g == nil || g.Args != 2 {
		t.Fatalf("unexpected g: %+v", g)
	}

	expectKind(t, `fn f() { g(1) } fn g(a, b) { a + b }`, compiler.KindUnsupportedArgumentCount)
}

func TestMissingPaths(t *testing.T) {
	expectKind(t, `fn main() { x }`, compiler.KindMissingLocal)
	expectKind(t, `fn main() { print(1) }`, compiler.KindMissingLocal)
	expectKind(t, `fn main() { std::io::missing(1) }`, compiler.KindMissingType)
	expectKind(t, `fn main() { foo::bar }`, compiler.KindMissingType)
	expectKind(t, `fn main(x) { x is Nope }`, compiler.KindMissingType)
	expectKind(t, `fn main(x) { x = y; }`, compiler.KindMissingLocal)

	u, _ := mustCompile(t, `fn main() { std::io::print(1) }`)
	want := hash.TypeHash(item.Parse("std::io::print"))

	found := false
	for _, in := range code(t, u, "main") {
		if in.Op == ir.OpCall && in.Hash == want && in.A == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("no call to std::io::print in %v", code(t, u, "main"))
	}
}

func TestImports(t *testing.T) {
	mustCompile(t, `use std::io::print; fn main() { print(1) }`)
	mustCompile(t, `use std::io::*; fn main() { println(1) }`)
	mustCompile(t, `use std::option::Option::Some; fn main() { Some(1) }`)

	expectKind(t, `use foo::bar; fn main() { }`, compiler.KindMissingModule)
	expectKind(t, `use foo::*; fn main() { }`, compiler.KindMissingModule)
	expectKind(t, `use std::*::print; fn main() { }`, compiler.KindUnsupportedWildcard)
}

func TestImportConflict(t *testing.T) {
	expectKind(t, `use std::io::print; use other::print; fn main() { }`, compiler.KindImportConflict)
	mustCompile(t, `use std::io::print; use std::io::print; fn main() { print(1) }`)
}

func TestPreludeNeedsHostModules(t *testing.T) {
	file, errs := parser.ParseFile(`fn main() { }`)
	if len(errs) != 0 {
		t.Fatalf("parse: %v", errs)
	}

	_, _, err := compiler.Compile(newHostContext(), file)
	if kind, _ := compiler.KindOf(err); kind != compiler.KindMissingPreludeModule {
		t.Fatalf("expected missing prelude module, got %v", err)
	}
}

func TestClosureCaptures(t *testing.T) {
	u, _ := mustCompile(t, `fn main() { let a = 1; let b = 2; let f = |x| b + x + a; f(1) }`)

	closure := u.Functions[hash.TypeHash(item.Of("main").Extended(item.Block(0), item.Closure(0)))]
	if closure == nil || !closure.Closure || closure.Args != 1 {
		t.Fatalf("unexpected closure: %+v", closure)
	}

	got := code(t, u, "main")
	for i, in := range got {
		if in.Op != ir.OpClosure {
			continue
		}
		if in.A != 2 || in.Hash != closure.Hash {
			t.Fatalf("unexpected closure instruction %v", in)
		}
		// captured in order of first use: b, then a
		if got[i-2].Op != ir.OpCopy || got[i-2].A != 1 || got[i-1].Op != ir.OpCopy || got[i-1].A != 0 {
			t.Fatalf("unexpected captures %v %v", got[i-2], got[i-1])
		}
		return
	}
	t.Fatalf("no closure in %v", got)
}

func TestNestedClosureCaptures(t *testing.T) {
	mustCompile(t, `fn main() { let a = 1; let f = || { let g = || a; g() }; f() }`)
	expectKind(t, `fn main() { let a = 1; let f = || { a = 2; }; f() }`, compiler.KindUnsupportedAssignExpr)
}

func TestUnsupported(t *testing.T) {
	for _, tc := range []struct {
		src  string
		kind compiler.ErrorKind
	}{
		{`fn main(x) { &x }`, compiler.KindUnsupportedRef},
		{`fn main(x) { -x }`, compiler.KindUnsupportedUnaryOp},
		{`fn main(x) { match x { 1.5 => 0, _ => 1 } }`, compiler.KindMatchFloatInPattern},
		{`fn main() { #{a: 1, a: 2} }`, compiler.KindDuplicateObjectKey},
		{`fn main(x) { match x { #{a, a} => 1, _ => 0 } }`, compiler.KindDuplicateObjectKey},
		{`fn f(self) { }`, compiler.KindUnsupportedSelf},
		{`struct P { x } impl P { fn f(a, self) { } } fn main() { P::f(1, 2) }`, compiler.KindUnsupportedArgument},
		{`struct P { x } fn main() { P { y: 1 } }`, compiler.KindLitObjectNotField},
		{`struct P { x, y } fn main() { P { x: 1 } }`, compiler.KindLitObjectMissingField},
		{`struct P(a); fn main() { P { a: 1 } }`, compiler.KindUnsupportedLitObject},
		{`struct P { x } fn main(v) { match v { P { y } => y, _ => 0 } }`, compiler.KindLitObjectNotField},
		{`struct P(a); fn main(v) { match v { P { a } => a, _ => 0 } }`, compiler.KindUnsupportedMetaPattern},
		{`fn main() { 1 = 2; }`, compiler.KindUnsupportedAssignExpr},
		{`fn main(x) { x.a += 1; }`, compiler.KindUnsupportedAssignBinOp},
		{`fn main(x) { match x { std::io::print => 1, _ => 0 } }`, compiler.KindUnsupportedBinding},
		{`fn main(a) { select { (x, y) = a => x } }`, compiler.KindUnsupportedSelectPattern},
		{`fn main() { std::option::Option() }`, compiler.KindNotFunction},
		{`fn main() { std::option::Option }`, compiler.KindUnsupportedValue},
		{`fn main(x) { x is std::io::print }`, compiler.KindUnsupportedType},
		{`fn helper() { } impl helper { fn f(self) { } }`, compiler.KindUnsupportedInstanceFunction},
		{`fn a() { } fn a() { }`, compiler.KindItemConflict},
	} {
		expectKind(t, tc.src, tc.kind)
	}
}

func TestWarnings(t *testing.T) {
	for _, tc := range []struct {
		src  string
		kind compiler.WarningKind
	}{
		{"fn main() { `plain` }", compiler.WarnTemplateWithoutExpansions},
		{`fn main() { let (a, b) = (1, 2); }`, compiler.WarnLetPatternMightPanic},
		{`fn main() { std::option::Option::None() }`, compiler.WarnRemoveTupleCallParens},
		{`fn main() { || 1; }`, compiler.WarnNotUsed},
	} {
		_, w := mustCompile(t, tc.src)
		if !hasWarning(w, tc.kind) {
			t.Errorf("%s: expected %v, got %v", tc.src, tc.kind, w.All())
		}
	}
}

func TestMemoizedNext(t *testing.T) {
	count := func(opts compiler.Options) (load, instance int) {
		file, errs := parser.ParseFile(`fn main(v) { for i in v { } }`)
		if len(errs) != 0 {
			t.Fatalf("parse: %v", errs)
		}

		opts.Prelude = false
		u, _, err := compiler.CompileWithOptions(newHostContext(), file, opts)
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		if err := u.Verify(); err != nil {
			t.Fatalf("verify: %v", err)
		}

		for _, in := range code(t, u, "main") {
			switch {
			case in.Op == ir.OpLoadInstanceFn:
				load++
			case in.Op == ir.OpCallInstance && in.Hash == hash.Next:
				instance++
			}
		}
		return
	}

	if load, instance := count(compiler.Options{MemoizeInstanceFn: true}); load != 1 || instance != 0 {
		t.Errorf("memoized: %d loads, %d instance calls", load, instance)
	}
	if load, instance := count(compiler.Options{}); load != 0 || instance != 1 {
		t.Errorf("not memoized: %d loads, %d instance calls", load, instance)
	}
}

func TestParseErrors(t *testing.T) {
	_, _, err := compiler.CompileSource(newHostContext(), `fn main( {`, compiler.Options{})
	if kind, _ := compiler.KindOf(err); kind != compiler.KindParse {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestMacros(t *testing.T) {
	mustCompile(t, `fn main(x) { test::twice!(x + 1) }`)
	mustCompile(t, `use test::twice; fn main(x) { twice!(x) }`)
	mustCompile(t, `fn main(x) { twice!(x) } use test::*;`)
	mustCompile(t, `fn main(x) { test::twice!(test::twice!(x)) }`)
	mustCompile(t, `fn main() { test::echo!() }`)

	expectKind(t, `fn main() { test::nope!(1) }`, compiler.KindMissingMacro)
	expectKind(t, `fn main() { test::fail!(1) }`, compiler.KindMacroExpansion)
	expectKind(t, `fn main() { test::echo!(1 +) }`, compiler.KindMacroExpansion)
	expectKind(t, `fn main() { test::again!() }`, compiler.KindMacroExpansion)
	expectKind(t, `fn main() { test::echo!(y) }`, compiler.KindMissingLocal)
}

func TestMacroExpandsInPlace(t *testing.T) {
	u, _ := mustCompile(t, `fn main(x) { test::twice!(x) }`)

	adds := 0
	for _, in := range code(t, u, "main") {
		if in.Op == ir.OpAdd {
			adds++
		}
	}
	if adds != 1 {
		t.Errorf("expected one add from the expansion, got %d in %v", adds, code(t, u, "main"))
	}

	// closures in an expansion capture like any other
	u, _ = mustCompile(t, `fn main() { let a = 1; let f = test::echo!(|b| a + b); f(2) }`)

	found := false
	for _, in := range code(t, u, "main") {
		if in.Op == ir.OpClosure && in.A == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a closure capturing one value in %v", code(t, u, "main"))
	}
}
