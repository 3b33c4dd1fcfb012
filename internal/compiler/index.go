package compiler

import (
	"unicode"
	"unicode/utf8"

	"github.com/therealbnut/rune/internal/ast"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/item"
)

// useDecl is an import found while indexing, together with the item it
// was declared in.
type useDecl struct {
	base item.Item
	decl *ast.UseDecl
}

// indexer is the first pass over a file. It names every declaration,
// block and closure, registers declarations with the query engine and
// works out which locals each closure captures.
type indexer struct {
	ctx   Context
	query *Query
	unit  *ir.Unit
	items *Items

	imports []useDecl

	// uses are the file level imports, known before any body is indexed
	// so that macros can be named through them.
	uses []*ast.UseDecl
	// expanding counts nested macro expansions.
	expanding int

	// scopes tracks local names of the function being indexed, innermost
	// last. Nested function declarations start with a fresh stack.
	scopes   []map[string]bool
	closures []*closureCaptures
}

type closureCaptures struct {
	// depth is the index of the closure's own argument scope.
	depth    int
	captures []string
	seen     map[string]bool
}

func newIndexer(ctx Context, q *Query, unit *ir.Unit) *indexer {
	return &indexer{
		ctx:   ctx,
		query: q,
		unit:  unit,
		items: NewItems(nil),
	}
}

func (ix *indexer) indexFile(file *ast.File) error {
	var roots []item.Item

	for _, it := range file.Items {
		if u, ok := it.(*ast.UseDecl); ok {
			ix.uses = append(ix.uses, u)
		}
	}

	for _, it := range file.Items {
		if err := ix.indexItem(it); err != nil {
			return err
		}

		if fn, ok := it.(*ast.FnDecl); ok {
			roots = append(roots, item.Of(fn.Name))
		}
	}

	// Root functions are the entry points, everything else is compiled
	// when it is first referenced.
	for _, root := range roots {
		if _, err := ix.query.QueryMeta(root, file.Span()); err != nil {
			return err
		}
	}

	return nil
}

func (ix *indexer) indexItem(it ast.Item) error {
	switch it := it.(type) {
	case *ast.UseDecl:
		ix.imports = append(ix.imports, useDecl{base: ix.items.Item(), decl: it})
		return nil
	case *ast.FnDecl:
		g := ix.items.PushName(it.Name)
		defer g.Pop()

		path := ix.items.Item()
		if err := ix.query.Index(&indexed{kind: indexedFunction, item: path, span: it.Span(), fn: it, call: callKind(it.Async)}); err != nil {
			return err
		}
		ix.unit.InsertName(path)

		return ix.indexFn(it)
	case *ast.StructDecl:
		g := ix.items.PushName(it.Name)
		defer g.Pop()

		path := ix.items.Item()
		ix.unit.InsertName(path)

		return ix.query.Index(&indexed{kind: indexedStruct, item: path, span: it.Span(), body: it.Body})
	case *ast.EnumDecl:
		return ix.indexEnum(it)
	case *ast.ImplDecl:
		return ix.indexImpl(it)
	}

	return internalf(it.Span(), "unknown item %T", it)
}

func (ix *indexer) indexEnum(decl *ast.EnumDecl) error {
	g := ix.items.PushName(decl.Name)
	defer g.Pop()

	enum := ix.items.Item()
	ix.unit.InsertName(enum)

	if err := ix.query.Index(&indexed{kind: indexedEnum, item: enum, span: decl.Span()}); err != nil {
		return err
	}

	for _, v := range decl.Variants {
		path := enum.Extended(item.Str(v.Name))
		ix.unit.InsertName(path)

		err := ix.query.Index(&indexed{kind: indexedVariant, item: path, span: v.Span(), body: v.Body, enum: enum})
		if err != nil {
			return err
		}
	}

	return nil
}

func (ix *indexer) indexImpl(decl *ast.ImplDecl) error {
	var guards []ItemsGuard
	for _, name := range decl.Path.Names {
		guards = append(guards, ix.items.PushName(name))
	}
	defer func() {
		for i := len(guards) - 1; i >= 0; i-- {
			guards[i].Pop()
		}
	}()

	impl := ix.items.Item()

	for _, fn := range decl.Fns {
		if !fn.IsInstance() {
			if err := ix.indexItem(fn); err != nil {
				return err
			}
			continue
		}

		err := func() error {
			g := ix.items.PushName(fn.Name)
			defer g.Pop()

			path := ix.items.Item()
			ix.unit.InsertName(path)

			err := ix.query.Index(&indexed{kind: indexedInstanceFunction, item: path, span: fn.Span(), fn: fn, call: callKind(fn.Async)})
			if err != nil {
				return err
			}

			ix.query.Queue(&build{
				kind:     buildInstanceFunction,
				item:     path,
				fn:       fn,
				call:     callKind(fn.Async),
				impl:     impl,
				implSpan: decl.Path.Span(),
			})

			return ix.indexFn(fn)
		}()
		if err != nil {
			return err
		}
	}

	return nil
}

func (ix *indexer) indexFn(fn *ast.FnDecl) error {
	savedScopes, savedClosures := ix.scopes, ix.closures
	ix.scopes, ix.closures = nil, nil
	defer func() {
		ix.scopes, ix.closures = savedScopes, savedClosures
	}()

	ix.pushScope()
	defer ix.popScope()

	for _, arg := range fn.Args {
		switch arg.Kind {
		case ast.ArgSelf:
			ix.declare("self")
		case ast.ArgIdent:
			ix.declare(arg.Name)
		}
	}

	g := ix.items.PushBlock()
	defer g.Pop()

	ix.query.setItem(fn.Body, ix.items.Item())

	return ix.indexBlockExprs(fn.Body)
}

func (ix *indexer) indexBlock(b *ast.Block) error {
	g := ix.items.PushBlock()
	defer g.Pop()

	ix.query.setItem(b, ix.items.Item())

	ix.pushScope()
	defer ix.popScope()

	return ix.indexBlockExprs(b)
}

func (ix *indexer) indexBlockExprs(b *ast.Block) error {
	for _, e := range b.Exprs {
		if err := ix.indexExpr(e); err != nil {
			return err
		}
	}
	return ix.indexExpr(b.Trailing)
}

func (ix *indexer) indexClosure(e *ast.ExprClosure) error {
	g := ix.items.PushClosure()
	defer g.Pop()

	path := ix.items.Item()
	ix.query.setItem(e, path)

	c := &closureCaptures{depth: len(ix.scopes), seen: make(map[string]bool)}
	ix.closures = append(ix.closures, c)

	ix.pushScope()
	for _, arg := range e.Args {
		if arg.Kind == ast.ArgIdent {
			ix.declare(arg.Name)
		}
	}

	err := ix.indexExpr(e.Body)

	ix.popScope()
	ix.closures = ix.closures[:len(ix.closures)-1]

	if err != nil {
		return err
	}

	return ix.query.Index(&indexed{
		kind:     indexedClosure,
		item:     path,
		span:     e.Span(),
		closure:  e,
		captures: c.captures,
		call:     callKind(e.Async),
	})
}

func (ix *indexer) indexExprs(es []ast.Expr) error {
	for _, e := range es {
		if err := ix.indexExpr(e); err != nil {
			return err
		}
	}
	return nil
}

func (ix *indexer) indexExpr(e ast.Expr) error {
	switch e := e.(type) {
	case nil:
		return nil
	case *ast.Block:
		return ix.indexBlock(e)
	case *ast.DeclExpr:
		return ix.indexItem(e.Item)
	case *ast.ExprClosure:
		return ix.indexClosure(e)
	case *ast.Path:
		if name, ok := e.AsIdent(); ok {
			ix.use(name)
		}
	case *ast.SelfExpr:
		ix.use("self")
	case *ast.ExprLet:
		if err := ix.indexExpr(e.Expr); err != nil {
			return err
		}
		ix.indexPat(e.Pat)
	case *ast.ExprIf:
		if err := ix.indexConditional(e.Condition, e.Block); err != nil {
			return err
		}
		for _, b := range e.ElseIfs {
			if err := ix.indexConditional(b.Condition, b.Block); err != nil {
				return err
			}
		}
		if e.Else != nil {
			return ix.indexBlock(e.Else)
		}
	case *ast.ExprWhile:
		return ix.indexConditional(e.Condition, e.Body)
	case *ast.ExprLoop:
		return ix.indexBlock(e.Body)
	case *ast.ExprFor:
		if err := ix.indexExpr(e.Iter); err != nil {
			return err
		}
		ix.pushScope()
		defer ix.popScope()
		ix.declare(e.Var)
		return ix.indexBlock(e.Body)
	case *ast.ExprMatch:
		if err := ix.indexExpr(e.Expr); err != nil {
			return err
		}
		for _, b := range e.Branches {
			ix.pushScope()
			ix.indexPat(b.Pat)
			err := ix.indexExprs([]ast.Expr{b.Guard, b.Body})
			ix.popScope()
			if err != nil {
				return err
			}
		}
	case *ast.ExprSelect:
		for _, b := range e.Branches {
			if err := ix.indexExpr(b.Expr); err != nil {
				return err
			}
		}
		for _, b := range e.Branches {
			ix.pushScope()
			ix.indexPat(b.Pat)
			err := ix.indexExpr(b.Body)
			ix.popScope()
			if err != nil {
				return err
			}
		}
		if e.Default != nil {
			return ix.indexExpr(e.Default.Body)
		}
	case *ast.ExprCall:
		if err := ix.indexExprs(e.Args); err != nil {
			return err
		}
		return ix.indexExpr(e.Expr)
	case *ast.ExprFieldAccess:
		return ix.indexExpr(e.Expr)
	case *ast.ExprIndexGet:
		return ix.indexExprs([]ast.Expr{e.Index, e.Target})
	case *ast.ExprIndexSet:
		return ix.indexExprs([]ast.Expr{e.Value, e.Index, e.Target})
	case *ast.ExprUnary:
		return ix.indexExpr(e.Expr)
	case *ast.ExprBinary:
		return ix.indexExprs([]ast.Expr{e.Lhs, e.Rhs})
	case *ast.ExprGroup:
		return ix.indexExpr(e.Expr)
	case *ast.ExprAwait:
		return ix.indexExpr(e.Expr)
	case *ast.ExprTry:
		return ix.indexExpr(e.Expr)
	case *ast.ExprMacroCall:
		return ix.indexMacro(e)
	case *ast.ExprReturn:
		return ix.indexExpr(e.Value)
	case *ast.ExprBreak:
		return ix.indexExpr(e.Value)
	case *ast.ExprYield:
		return ix.indexExpr(e.Value)
	case *ast.LitTuple:
		return ix.indexExprs(e.Items)
	case *ast.LitVec:
		return ix.indexExprs(e.Items)
	case *ast.LitObject:
		for _, a := range e.Assignments {
			if a.Value == nil {
				ix.use(a.Key)
				continue
			}
			if err := ix.indexExpr(a.Value); err != nil {
				return err
			}
		}
	case *ast.LitTemplate:
		for _, c := range e.Components {
			if err := ix.indexExpr(c.Expr); err != nil {
				return err
			}
		}
	}

	return nil
}

// indexConditional indexes `if cond { .. }` and `while cond { .. }`, where
// the bindings of an `if let` condition are only visible in the block.
func (ix *indexer) indexConditional(cond ast.Expr, block *ast.Block) error {
	ix.pushScope()
	defer ix.popScope()

	if err := ix.indexExpr(cond); err != nil {
		return err
	}

	return ix.indexBlock(block)
}

func (ix *indexer) indexPat(p ast.Pat) {
	switch p := p.(type) {
	case *ast.PatPath:
		if name, ok := p.Path.AsIdent(); ok && isBindingName(name) {
			ix.declare(name)
		}
	case *ast.PatTuple:
		for _, item := range p.Items {
			ix.indexPat(item)
		}
	case *ast.PatVec:
		for _, item := range p.Items {
			ix.indexPat(item)
		}
	case *ast.PatObject:
		for _, f := range p.Fields {
			if f.Binding != nil {
				ix.indexPat(f.Binding)
				continue
			}
			ix.declare(f.Key)
		}
	}
}

// isBindingName reports whether a bare name in a pattern introduces a
// variable. Capitalized names refer to unit structs and variants.
func isBindingName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return !unicode.IsUpper(r)
}

func (ix *indexer) pushScope() {
	ix.scopes = append(ix.scopes, make(map[string]bool))
}

func (ix *indexer) popScope() {
	ix.scopes = ix.scopes[:len(ix.scopes)-1]
}

func (ix *indexer) declare(name string) {
	if len(ix.scopes) == 0 {
		return
	}
	ix.scopes[len(ix.scopes)-1][name] = true
}

// use records a reference to name. If it resolves to a local declared
// outside of some enclosing closures, each of them captures it.
func (ix *indexer) use(name string) {
	for i := len(ix.scopes) - 1; i >= 0; i-- {
		if !ix.scopes[i][name] {
			continue
		}

		for _, c := range ix.closures {
			if i < c.depth && !c.seen[name] {
				c.seen[name] = true
				c.captures = append(c.captures, name)
			}
		}

		return
	}
}

func callKind(async bool) ir.CallKind {
	if async {
		return ir.CallAsync
	}
	return ir.CallImmediate
}
