package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/compiler"
	"github.com/therealbnut/rune/internal/runtime"
	"github.com/therealbnut/rune/internal/sources"
)

func testPipeline(t *testing.T) (*pipeline, *bytes.Buffer) {
	t.Helper()

	rt, err := runtime.DefaultContext()
	if err != nil {
		t.Fatalf("DefaultContext: %v", err)
	}

	var buf bytes.Buffer
	return &pipeline{rt: rt, opts: compiler.DefaultOptions(), stderr: &buf}, &buf
}

func TestOpenDelimiters(t *testing.T) {
	for _, tc := range []struct {
		src  string
		want int
	}{
		{`1 + 2`, 0},
		{`fn f() {`, 1},
		{`[1, (2`, 2},
		{"fn f() {\n}", 0},
		{`"{"`, 0},
	} {
		if got := openDelimiters(tc.src); got != tc.want {
			t.Errorf("openDelimiters(%q) = %d, want %d", tc.src, got, tc.want)
		}
	}
}

func TestIsItems(t *testing.T) {
	if !isItems(`fn f() { 1 }`) || !isItems(`struct P { x }`) {
		t.Errorf("declarations are items")
	}
	if isItems(`1 + 2`) || isItems(`f(1)`) {
		t.Errorf("expressions are not items")
	}
}

func TestCompileReportsErrors(t *testing.T) {
	p, stderr := testPipeline(t)

	src := sources.NewSource("main.rn", "fn main() {\n  missing\n}\n")

	_, _, err := p.compile(context.Background(), src)
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("expected ErrCompile, got %v", err)
	}

	out := stderr.String()
	if !strings.HasPrefix(out, "main.rn:2:3: error: missing local") || !strings.Contains(out, "  ^^^^^^^\n") {
		t.Fatalf("unexpected diagnostics:\n%s", out)
	}
}

func TestCompileAndExecute(t *testing.T) {
	p, _ := testPipeline(t)

	src := sources.NewSource("main.rn", `async fn main() { 40 + 2 }`)

	u, _, err := p.compile(context.Background(), src)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	out, err := execute(context.Background(), u, p.rt, runtime.NewEnv(&bytes.Buffer{}), "main")
	if err != nil || out.Int != 42 {
		t.Fatalf("execute: %v %v", out.Debug(), err)
	}
}
