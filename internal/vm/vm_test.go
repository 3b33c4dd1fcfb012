package vm

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/compiler"
	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/runtime"
	"github.com/therealbnut/rune/internal/token"
	"github.com/therealbnut/rune/internal/value"
)

func build(t *testing.T, src string) (*ir.Unit, *runtime.Context) {
	t.Helper()

	rt, err := runtime.DefaultContext()
	if err != nil {
		t.Fatalf("DefaultContext: %v", err)
	}

	u, _, err := compiler.CompileSource(rt, src, compiler.DefaultOptions())
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return u, rt
}

func run(t *testing.T, src string) value.Value {
	t.Helper()

	u, rt := build(t, src)
	out, err := New(u, rt, runtime.NewEnv(&bytes.Buffer{})).Call(context.Background(), item.Of("main"))
	if err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	return out
}

func runErr(t *testing.T, src string) error {
	t.Helper()

	u, rt := build(t, src)
	_, err := New(u, rt, runtime.NewEnv(&bytes.Buffer{})).Call(context.Background(), item.Of("main"))
	if err == nil {
		t.Fatalf("run %q: expected an error", src)
	}
	return err
}

func expectInt(t *testing.T, src string, want int64) {
	t.Helper()

	out := run(t, src)
	if out.Kind != value.KindInteger || out.Int != want {
		t.Fatalf("run %q: expected %d, got %v", src, want, out.Debug())
	}
}

// 1 + 2 = 3 on hand assembled bytecode.
func TestSimpleAdd(t *testing.T) {
	span := token.Span{}

	asm := ir.NewAssembly(span)
	asm.Push(ir.Instruction{Op: ir.OpInteger, Int: 1}, span)
	asm.Push(ir.Instruction{Op: ir.OpInteger, Int: 2}, span)
	asm.Emit(ir.OpAdd, 0, 0, span)
	asm.Emit(ir.OpReturn, 0, 0, span)

	u := ir.NewUnit()
	if err := u.NewFunction(item.Of("main"), 0, asm, ir.CallImmediate); err != nil {
		t.Fatalf("NewFunction: %v", err)
	}

	v, err := New(u, nil, nil).Call(context.Background(), item.Of("main"))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v.Kind != value.KindInteger || v.Int != 3 {
		t.Fatalf("expected 3, got %v", v.Debug())
	}
}

func TestPrograms(t *testing.T) {
	for _, tc := range []struct {
		src  string
		want int64
	}{
		{`fn main() { let (a, b) = (1, 2); a + b }`, 3},
		{`fn main() { match (1, 2) { (a, 2) => a, _ => 0 } }`, 1},
		{`fn main() { let a = 1; let f = |b| a + b; f(2) }`, 3},
		{`fn main() { let n = 0; for i in [1, 2, 3] { n += i; } n }`, 6},
		{`fn main() { let i = 0; while i < 10 { i += 1; } i }`, 10},
		{`fn main() { let x = loop { break 5; }; x }`, 5},
		{`fn main() { match Some(3) { Some(v) if v > 1 => v, _ => 0 } }`, 3},
		{`fn main() { let x = None; match x { Some(v) => v, None => 7 } }`, 7},
		{`fn main() { fn inner(a) { a * 2 } inner(4) }`, 8},
		{`fn fib(n) { if n < 2 { n } else { fib(n - 1) + fib(n - 2) } } fn main() { fib(10) }`, 55},
		{`struct P { x, y } fn main() { let p = P { x: 1, y: 2 }; p.x + p.y }`, 3},
		{`enum E { A(a), B } fn main() { let v = E::A(4); match v { E::A(n) => n, E::B => 0, _ => -1 } }`, 4},
		{`struct Counter { n } impl Counter { fn get(self) { self.n } fn new() { Counter { n: 0 } } } fn main() { let c = Counter::new(); c.get() }`, 0},
		{`fn main() { let v = [1, 2, 3]; v.map(|x| x * 2).reduce(0, |a, b| a + b) }`, 12},
		{`fn main() { let v = [1, 2]; v.push(3); v.len() }`, 3},
		{`fn main() { let o = #{a: 1}; o.a = 5; o.a }`, 5},
		{`fn main() { let d = std::collections::VecDeque::from([1, 2, 3]); d.rotate_right(1); d[0] }`, 2},
		{`fn main() { let n = 0; for i in std::iter::range(0, 4) { n += i; } n }`, 6},
		{`fn main() { let d = std::collections::VecDeque::new(); d.push_back(1); d.push_front(2); match d.get(1) { Some(v) => v, None => 0 } }`, 1},
	} {
		expectInt(t, tc.src, tc.want)
	}
}

func TestTemplateAndPrint(t *testing.T) {
	u, rt := build(t, "fn main() { let x = 3; std::io::println(`hello {x}`); }")

	var buf bytes.Buffer
	if _, err := New(u, rt, runtime.NewEnv(&buf)).Call(context.Background(), item.Of("main")); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if buf.String() != "hello 3\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestMissingHostFunction(t *testing.T) {
	u, _ := build(t, `fn main() { std::io::print("x") }`)

	_, err := New(u, nil, nil).Call(context.Background(), item.Of("main"))
	if !errors.Is(err, ErrMissingFunction) {
		t.Fatalf("expected ErrMissingFunction, got %v", err)
	}

	var verr *Error
	if !errors.As(err, &verr) || !verr.Fn.Equal(item.Of("main")) {
		t.Fatalf("expected a vm error in main, got %v", err)
	}
}

func TestPanics(t *testing.T) {
	for _, src := range []string{
		`fn main() { panic("boom") }`,
		`fn main() { let x = None; x.unwrap() }`,
		`fn main() { let (a, b) = [1]; a }`,
	} {
		if err := runErr(t, src); !errors.Is(err, ErrPanic) {
			t.Errorf("run %q: expected ErrPanic, got %v", src, err)
		}
	}
}

func TestMacros(t *testing.T) {
	expectInt(t, `use std::macros::stringify; fn main() { stringify!(a + b).len() }`, 5)
	expectInt(t, `fn main() { let x = 2; std::macros::assert_eq!(x * 2, 4); std::macros::assert!(x > 1); x }`, 2)

	err := runErr(t, `fn main() { let x = 1; std::macros::assert!(x > 1); x }`)
	if !errors.Is(err, ErrPanic) || !strings.Contains(err.Error(), "assertion failed: x > 1") {
		t.Fatalf("expected an assertion panic, got %v", err)
	}
}

func TestDivideByZero(t *testing.T) {
	if err := runErr(t, `fn main() { let a = 0; 1 / a }`); !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("expected ErrDivideByZero, got %v", err)
	}
}

func TestMaxDepth(t *testing.T) {
	u, rt := build(t, `fn f(n) { f(n + 1) } fn main() { f(0) }`)

	m := New(u, rt, nil)
	m.MaxDepth = 50

	_, err := m.Call(context.Background(), item.Of("main"))
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("expected ErrStackOverflow, got %v", err)
	}
}

func TestAsync(t *testing.T) {
	u, rt := build(t, `async fn double(x) { x * 2 } async fn main() { double(21).await }`)

	out, err := New(u, rt, nil).Call(context.Background(), item.Of("main"))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out.Kind != value.KindFuture {
		t.Fatalf("async fn returned %v", out.Kind)
	}

	v, err := out.Future.Await(context.Background())
	if err != nil || v.Int != 42 {
		t.Fatalf("await: %v %v", v.Debug(), err)
	}
}

func TestSelect(t *testing.T) {
	u, rt := build(t, `
		async fn ready() { 1 }
		async fn never() { loop { } }
		fn main() { select { x = ready() => x + 10, y = never() => y } }
	`)

	out, err := New(u, rt, nil).Call(context.Background(), item.Of("main"))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out.Int != 11 {
		t.Fatalf("expected 11, got %v", out.Debug())
	}
}

func TestYieldHook(t *testing.T) {
	u, rt := build(t, `fn main() { yield 5; 0 }`)

	var got []value.Value
	env := runtime.NewEnv(&bytes.Buffer{})
	env.SetYield(func(ctx context.Context, v value.Value) (value.Value, error) {
		got = append(got, v)
		return value.Unit(), nil
	})

	if _, err := New(u, rt, env).Call(context.Background(), item.Of("main")); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(got) != 1 || got[0].Int != 5 {
		t.Fatalf("unexpected yields: %v", got)
	}
}

func TestCancel(t *testing.T) {
	u, rt := build(t, `fn main() { loop { } }`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(u, rt, nil).Call(ctx, item.Of("main"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCallHashWithArgs(t *testing.T) {
	u, rt := build(t, `fn sub(a, b) { a - b }`)

	out, err := New(u, rt, nil).CallHash(context.Background(), hash.TypeHash(item.Of("sub")), value.Integer(5), value.Integer(2))
	if err != nil || out.Int != 3 {
		t.Fatalf("sub(5, 2): %v %v", out.Debug(), err)
	}

	_, err = New(u, rt, nil).Call(context.Background(), item.Of("sub"), value.Integer(1))
	if !errors.Is(err, ErrArgumentCount) {
		t.Fatalf("expected ErrArgumentCount, got %v", err)
	}
}
