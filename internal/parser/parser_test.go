package parser_test

import (
	"testing"

	"github.com/therealbnut/rune/internal/ast"
	"github.com/therealbnut/rune/internal/lexer"
	"github.com/therealbnut/rune/internal/parser"
)

func parse(t *testing.T, input string) *ast.File {
	t.Helper()

	l := lexer.New(input)
	p := parser.New(l)

	file := p.ParseFile()
	errs := append(l.Errors(), p.Errors()...)
	if len(errs) > 0 {
		for _, e := range errs {
			t.Logf("parser error: %s", e)
		}
		t.Fatalf("expected no parser errors, got %d", len(errs))
	}
	return file
}

func mainBody(t *testing.T, file *ast.File) *ast.Block {
	t.Helper()
	for _, item := range file.Items {
		if fn, ok := item.(*ast.FnDecl); ok && fn.Name == "main" {
			return fn.Body
		}
	}
	t.Fatalf("no main function")
	return nil
}

func TestParseSimpleProgram(t *testing.T) {
	input := `
use std::io::println;

fn main() {
    let result = add(1, 2);
    println(result);
    result
}

fn add(a, b) {
    a + b
}
`
	file := parse(t, input)

	if len(file.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(file.Items))
	}

	use, ok := file.Items[0].(*ast.UseDecl)
	if !ok || len(use.Components) != 3 || use.Components[2].Name != "println" {
		t.Fatalf("unexpected use declaration: %#v", file.Items[0])
	}

	body := mainBody(t, file)
	if len(body.Exprs) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(body.Exprs))
	}
	if _, ok := body.Exprs[0].(*ast.ExprLet); !ok {
		t.Errorf("expected let, got %T", body.Exprs[0])
	}
	if _, ok := body.Trailing.(*ast.Path); !ok {
		t.Errorf("expected trailing path, got %T", body.Trailing)
	}

	add := file.Items[2].(*ast.FnDecl)
	if len(add.Args) != 2 || add.Args[1].Name != "b" {
		t.Fatalf("unexpected args: %#v", add.Args)
	}
	bin, ok := add.Body.Trailing.(*ast.ExprBinary)
	if !ok || bin.Op != ast.BinAdd {
		t.Fatalf("expected a + b, got %#v", add.Body.Trailing)
	}
}

func TestParsePrecedence(t *testing.T) {
	file := parse(t, `fn main() { a = 1 + 2 * 3 == 7 && !b }`)

	assign, ok := mainBody(t, file).Trailing.(*ast.ExprBinary)
	if !ok || assign.Op != ast.BinAssign {
		t.Fatalf("expected assignment, got %#v", mainBody(t, file).Trailing)
	}

	and, ok := assign.Rhs.(*ast.ExprBinary)
	if !ok || and.Op != ast.BinAnd {
		t.Fatalf("expected &&, got %#v", assign.Rhs)
	}
	if _, ok := and.Rhs.(*ast.ExprUnary); !ok {
		t.Fatalf("expected unary rhs, got %T", and.Rhs)
	}

	eq := and.Lhs.(*ast.ExprBinary)
	if eq.Op != ast.BinEq {
		t.Fatalf("expected ==, got %s", eq.Op)
	}
	add := eq.Lhs.(*ast.ExprBinary)
	if add.Op != ast.BinAdd {
		t.Fatalf("expected +, got %s", add.Op)
	}
	if mul := add.Rhs.(*ast.ExprBinary); mul.Op != ast.BinMul {
		t.Fatalf("expected *, got %s", mul.Op)
	}
}

func TestParseIsNot(t *testing.T) {
	file := parse(t, `fn main() { x is not Foo }`)

	bin, ok := mainBody(t, file).Trailing.(*ast.ExprBinary)
	if !ok || bin.Op != ast.BinIsNot {
		t.Fatalf("expected `is not`, got %#v", mainBody(t, file).Trailing)
	}
}

func TestParseNegativeLiteral(t *testing.T) {
	file := parse(t, `fn main() { 1 - -2 }`)

	bin := mainBody(t, file).Trailing.(*ast.ExprBinary)
	lit, ok := bin.Rhs.(*ast.LitNumber)
	if !ok || lit.Int != -2 {
		t.Fatalf("expected literal -2, got %#v", bin.Rhs)
	}
}

func TestParseTupleFieldAccess(t *testing.T) {
	file := parse(t, `fn main() { t.0.1 }`)

	outer, ok := mainBody(t, file).Trailing.(*ast.ExprFieldAccess)
	if !ok || !outer.IsIndex || outer.Index != 1 {
		t.Fatalf("expected .1 access, got %#v", mainBody(t, file).Trailing)
	}
	inner, ok := outer.Expr.(*ast.ExprFieldAccess)
	if !ok || !inner.IsIndex || inner.Index != 0 {
		t.Fatalf("expected .0 access, got %#v", outer.Expr)
	}
}

func TestParsePostfix(t *testing.T) {
	file := parse(t, `async fn main() { v.push(1); v[0] = 2; f()?.await }`)

	body := mainBody(t, file)
	call, ok := body.Exprs[0].(*ast.ExprCall)
	if !ok {
		t.Fatalf("expected call, got %T", body.Exprs[0])
	}
	if field, ok := call.Expr.(*ast.ExprFieldAccess); !ok || field.Field != "push" {
		t.Fatalf("expected method callee, got %#v", call.Expr)
	}
	if _, ok := body.Exprs[1].(*ast.ExprIndexSet); !ok {
		t.Fatalf("expected index set, got %T", body.Exprs[1])
	}
	await, ok := body.Trailing.(*ast.ExprAwait)
	if !ok {
		t.Fatalf("expected await, got %T", body.Trailing)
	}
	if _, ok := await.Expr.(*ast.ExprTry); !ok {
		t.Fatalf("expected try inside await, got %T", await.Expr)
	}
}

func TestParseLiterals(t *testing.T) {
	file := parse(t, `fn main() { ((), (1,), (1), [1, 2], #{a: 1, "b": 2}, Point { x, y: 2 }) }`)

	tuple, ok := mainBody(t, file).Trailing.(*ast.LitTuple)
	if !ok || len(tuple.Items) != 6 {
		t.Fatalf("expected 6-tuple, got %#v", mainBody(t, file).Trailing)
	}
	if _, ok := tuple.Items[0].(*ast.LitUnit); !ok {
		t.Errorf("expected unit, got %T", tuple.Items[0])
	}
	if one, ok := tuple.Items[1].(*ast.LitTuple); !ok || len(one.Items) != 1 {
		t.Errorf("expected 1-tuple, got %#v", tuple.Items[1])
	}
	if _, ok := tuple.Items[2].(*ast.ExprGroup); !ok {
		t.Errorf("expected group, got %T", tuple.Items[2])
	}
	if vec, ok := tuple.Items[3].(*ast.LitVec); !ok || len(vec.Items) != 2 {
		t.Errorf("expected vec, got %#v", tuple.Items[3])
	}

	anon, ok := tuple.Items[4].(*ast.LitObject)
	if !ok || anon.Ident != nil || len(anon.Assignments) != 2 {
		t.Fatalf("expected anonymous object, got %#v", tuple.Items[4])
	}
	if anon.Assignments[1].KeyIdent || anon.Assignments[1].Key != "b" {
		t.Errorf("expected string key, got %#v", anon.Assignments[1])
	}

	named, ok := tuple.Items[5].(*ast.LitObject)
	if !ok || named.Ident == nil || named.Ident.Names[0] != "Point" {
		t.Fatalf("expected named object, got %#v", tuple.Items[5])
	}
	if named.Assignments[0].Value != nil {
		t.Errorf("expected shorthand field, got %#v", named.Assignments[0])
	}
}

func TestParseConditionDisablesObjects(t *testing.T) {
	file := parse(t, `fn main() { if Ready { 1 } else if let Some(x) = y { x } else { 2 } }`)

	expr, ok := mainBody(t, file).Trailing.(*ast.ExprIf)
	if !ok {
		t.Fatalf("expected if, got %T", mainBody(t, file).Trailing)
	}
	if _, ok := expr.Condition.(*ast.Path); !ok {
		t.Fatalf("expected path condition, got %T", expr.Condition)
	}
	if len(expr.ElseIfs) != 1 {
		t.Fatalf("expected 1 else-if, got %d", len(expr.ElseIfs))
	}
	if _, ok := expr.ElseIfs[0].Condition.(*ast.ExprLet); !ok {
		t.Fatalf("expected let condition, got %T", expr.ElseIfs[0].Condition)
	}
	if expr.Else == nil {
		t.Fatalf("expected else block")
	}
}

func TestParseLoops(t *testing.T) {
	input := `fn main() {
    'outer: for i in range(0, 10) {
        while i < 5 { break 'outer; }
        loop { break i; }
    }
}`
	file := parse(t, input)

	loop, ok := mainBody(t, file).Trailing.(*ast.ExprFor)
	if !ok {
		t.Fatalf("expected for, got %T", mainBody(t, file).Trailing)
	}
	if loop.Label != "outer" || loop.Var != "i" {
		t.Fatalf("unexpected for loop: %#v", loop)
	}
	if len(loop.Body.Exprs) != 1 {
		t.Fatalf("expected 1 statement in body, got %d", len(loop.Body.Exprs))
	}

	while := loop.Body.Exprs[0].(*ast.ExprWhile)
	brk := while.Body.Exprs[0].(*ast.ExprBreak)
	if brk.Label != "outer" || brk.Value != nil {
		t.Fatalf("unexpected break: %#v", brk)
	}

	inner := loop.Body.Trailing.(*ast.ExprLoop)
	brk = inner.Body.Exprs[0].(*ast.ExprBreak)
	if brk.Value == nil {
		t.Fatalf("expected break value")
	}
}

func TestParseMatchPatterns(t *testing.T) {
	input := `fn main() {
    match v {
        Some(x) if x > 1 => x,
        [a, ..] => a,
        #{a, b: 2} => 0,
        (1, "s", 'c', b'x', -3) => 1,
        Point { x, .. } => x,
        () => { 2 }
        _ => 3,
    }
}`
	file := parse(t, input)

	expr, ok := mainBody(t, file).Trailing.(*ast.ExprMatch)
	if !ok {
		t.Fatalf("expected match, got %T", mainBody(t, file).Trailing)
	}
	if len(expr.Branches) != 7 {
		t.Fatalf("expected 7 branches, got %d", len(expr.Branches))
	}

	some := expr.Branches[0].Pat.(*ast.PatTuple)
	if some.Path == nil || some.Path.Names[0] != "Some" || len(some.Items) != 1 {
		t.Fatalf("unexpected tuple pattern: %#v", some)
	}
	if expr.Branches[0].Guard == nil {
		t.Fatalf("expected guard on first branch")
	}

	vec := expr.Branches[1].Pat.(*ast.PatVec)
	if !vec.Open || len(vec.Items) != 1 {
		t.Fatalf("unexpected vec pattern: %#v", vec)
	}

	obj := expr.Branches[2].Pat.(*ast.PatObject)
	if obj.Ident != nil || len(obj.Fields) != 2 || obj.Fields[0].Binding != nil {
		t.Fatalf("unexpected object pattern: %#v", obj)
	}

	tuple := expr.Branches[3].Pat.(*ast.PatTuple)
	if len(tuple.Items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(tuple.Items))
	}
	if n := tuple.Items[4].(*ast.PatNumber); n.Number.Int != -3 {
		t.Fatalf("expected -3, got %d", n.Number.Int)
	}

	named := expr.Branches[4].Pat.(*ast.PatObject)
	if named.Ident == nil || !named.Open {
		t.Fatalf("unexpected named object pattern: %#v", named)
	}

	if _, ok := expr.Branches[5].Pat.(*ast.PatUnit); !ok {
		t.Fatalf("expected unit pattern, got %T", expr.Branches[5].Pat)
	}
	if _, ok := expr.Branches[6].Pat.(*ast.PatIgnore); !ok {
		t.Fatalf("expected ignore pattern, got %T", expr.Branches[6].Pat)
	}
}

func TestParseSelect(t *testing.T) {
	file := parse(t, `async fn main() { select { a = f() => a, _ = g() => 0, default => 1 } }`)

	expr, ok := mainBody(t, file).Trailing.(*ast.ExprSelect)
	if !ok {
		t.Fatalf("expected select, got %T", mainBody(t, file).Trailing)
	}
	if len(expr.Branches) != 2 || expr.Default == nil {
		t.Fatalf("unexpected select: %#v", expr)
	}
}

func TestParseClosures(t *testing.T) {
	file := parse(t, `fn main() { let f = |a, _| a + n; let g = || 1; f }`)

	body := mainBody(t, file)
	f := body.Exprs[0].(*ast.ExprLet).Expr.(*ast.ExprClosure)
	if len(f.Args) != 2 || f.Args[1].Kind != ast.ArgIgnore {
		t.Fatalf("unexpected closure args: %#v", f.Args)
	}
	g := body.Exprs[1].(*ast.ExprLet).Expr.(*ast.ExprClosure)
	if len(g.Args) != 0 {
		t.Fatalf("expected no args, got %d", len(g.Args))
	}
}

func TestParseTemplate(t *testing.T) {
	file := parse(t, "fn main() { `a {b + 1} c\\n` }")

	lit, ok := mainBody(t, file).Trailing.(*ast.LitTemplate)
	if !ok {
		t.Fatalf("expected template, got %T", mainBody(t, file).Trailing)
	}
	if !lit.HasExpansions || len(lit.Components) != 3 {
		t.Fatalf("unexpected template: %#v", lit)
	}
	if lit.Components[0].String != "a " || lit.Components[2].String != " c\n" {
		t.Fatalf("unexpected string components: %#v", lit.Components)
	}
	if _, ok := lit.Components[1].Expr.(*ast.ExprBinary); !ok {
		t.Fatalf("expected expansion expression, got %T", lit.Components[1].Expr)
	}
	if lit.SizeHint != 5 {
		t.Fatalf("expected size hint 5, got %d", lit.SizeHint)
	}
}

func TestParseDeclarations(t *testing.T) {
	input := `
struct Empty;
struct Pair(a, b);
struct Point { x, y }
enum Shape { Circle(r), Rect { w, h }, Nothing }
impl Point {
    fn len(self) { self.x }
    fn new() { Point { x: 0, y: 0 } }
}
fn main() { fn inner() { 1 } inner() }
`
	file := parse(t, input)

	if len(file.Items) != 6 {
		t.Fatalf("expected 6 items, got %d", len(file.Items))
	}
	if s := file.Items[1].(*ast.StructDecl); s.Body.Kind != ast.StructTuple || len(s.Body.Fields) != 2 {
		t.Fatalf("unexpected tuple struct: %#v", s)
	}
	enum := file.Items[3].(*ast.EnumDecl)
	if len(enum.Variants) != 3 || enum.Variants[1].Body.Kind != ast.StructNamed {
		t.Fatalf("unexpected enum: %#v", enum)
	}
	impl := file.Items[4].(*ast.ImplDecl)
	if len(impl.Fns) != 2 || !impl.Fns[0].IsInstance() || impl.Fns[1].IsInstance() {
		t.Fatalf("unexpected impl: %#v", impl)
	}

	body := mainBody(t, file)
	if _, ok := body.Exprs[0].(*ast.DeclExpr); !ok {
		t.Fatalf("expected nested declaration, got %T", body.Exprs[0])
	}
}

func TestParseMacroCall(t *testing.T) {
	src := "fn main() { a::b!(1, (2, 3)).len() }"
	file := parse(t, src)

	call, ok := mainBody(t, file).Trailing.(*ast.ExprCall)
	if !ok {
		t.Fatalf("expected call, got %T", mainBody(t, file).Trailing)
	}
	field := call.Expr.(*ast.ExprFieldAccess)
	mac, ok := field.Expr.(*ast.ExprMacroCall)
	if !ok {
		t.Fatalf("expected macro call, got %T", field.Expr)
	}
	if len(mac.Path.Names) != 2 || mac.Path.Names[1] != "b" {
		t.Fatalf("unexpected macro path: %v", mac.Path.Names)
	}
	if mac.Input != "1, (2, 3)" || src[mac.InputLoc.Start:mac.InputLoc.End] != mac.Input {
		t.Fatalf("unexpected macro input %q at %v", mac.Input, mac.InputLoc)
	}

	// `!=` is not a macro call
	bin := mainBody(t, parse(t, "fn main() { a != (b) }")).Trailing
	if _, ok := bin.(*ast.ExprBinary); !ok {
		t.Fatalf("expected binary expression, got %T", bin)
	}

	l := lexer.New("fn main() { m!(1, (2 }")
	p := parser.New(l)
	p.ParseFile()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected an error for an unterminated macro call")
	}
}

func TestParseExpr(t *testing.T) {
	expr, errs := parser.ParseExpr("a + 1", 100)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if sp := expr.Span(); sp.Start != 100 || sp.End != 105 {
		t.Fatalf("expected span 100..105, got %v", sp)
	}

	if _, errs := parser.ParseExpr("a b", 0); len(errs) == 0 {
		t.Fatalf("expected an error for trailing tokens")
	}
}

func TestParseErrors(t *testing.T) {
	l := lexer.New(`fn main( { let = ; }`)
	p := parser.New(l)
	p.ParseFile()
	if len(p.Errors()) == 0 {
		t.Fatalf("expected parser errors")
	}
}
