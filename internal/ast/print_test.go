package ast_test

import (
	"strings"
	"testing"

	"github.com/therealbnut/rune/internal/ast"
	"github.com/therealbnut/rune/internal/parser"
)

func TestDump(t *testing.T) {
	file, errs := parser.ParseFile(`
use std::io::println;

fn main() {
	'outer: loop { break 'outer; }
	std::macros::stringify!(a, b);
	match (1, 2) { (a, ..) => a, _ => 0 }
}
`)
	if len(errs) != 0 {
		t.Fatalf("parse: %v", errs)
	}

	out := ast.Dump(file)

	for _, want := range []string{
		"File\n",
		"  UseDecl path=std::io::println\n",
		"  FnDecl name=main args=()\n",
		"Loop 'outer\n",
		"Break 'outer\n",
		`Macro std::macros::stringify! "a, b"` + "\n",
		"Match\n",
		"PatTuple ..\n",
		"PatIgnore\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump is missing %q:\n%s", want, out)
		}
	}
}
