// Package compiler lowers a parsed file into a unit of stack VM bytecode.
//
// Compilation runs in two passes. The indexer walks the file once, naming
// every declaration, block and closure and working out closure captures.
// Then function bodies are compiled one at a time from a worklist: root
// functions are queued up front and everything else is queued the first
// time a path resolves to it.
package compiler

import (
	"strings"

	"github.com/nikandfor/tlog"

	"github.com/therealbnut/rune/internal/ast"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/parser"
	"github.com/therealbnut/rune/internal/token"
)

// Context is what the compiler needs to know about the host: native
// functions and types, and which module paths exist.
type Context interface {
	// LookupMeta resolves a host item.
	LookupMeta(it item.Item) (*ir.Meta, bool)
	// TypeCheckFor returns the check matching a built-in type such as
	// Option::Some, overriding the generic type check of a pattern.
	TypeCheckFor(it item.Item) (ir.TypeCheck, bool)
	ContainsPrefix(it item.Item) bool
	ContainsName(it item.Item) bool
	IterComponents(it item.Item) []item.Component
}

// MacroExpander is implemented by contexts that provide macros. A macro
// gets the source between the parentheses of `name!(..)` and returns the
// source of the expression that replaces the call. ok is false if it names
// no macro.
type MacroExpander interface {
	ExpandMacro(it item.Item, input string) (out string, ok bool, err error)
}

// Compile compiles file with the default options.
func Compile(ctx Context, file *ast.File) (*ir.Unit, *Warnings, error) {
	return CompileWithOptions(ctx, file, DefaultOptions())
}

// CompileSource parses and compiles src.
func CompileSource(ctx Context, src string, opts Options) (*ir.Unit, *Warnings, error) {
	file, errs := parser.ParseFile(src)
	if len(errs) != 0 {
		return nil, NewWarnings(), errorf(KindParse, file.Span(), "%s", strings.Join(errs, "\n"))
	}
	return CompileWithOptions(ctx, file, opts)
}

// CompileWithOptions compiles file into a new unit. The first error aborts
// the whole compilation and no unit is returned.
func CompileWithOptions(ctx Context, file *ast.File, opts Options) (*ir.Unit, *Warnings, error) {
	unit := opts.NewUnit()
	query := NewQuery(unit)
	warnings := NewWarnings()

	ix := newIndexer(ctx, query, unit)
	if err := ix.indexFile(file); err != nil {
		return nil, warnings, err
	}

	if err := processImports(ctx, unit, ix.imports); err != nil {
		return nil, warnings, err
	}

	for {
		b, ok := query.Next()
		if !ok {
			break
		}

		tlog.V("compile").Printw("build", "item", b.item, "kind", b.kind, "pending", query.Pending())

		if err := compileBuild(ctx, query, unit, warnings, opts, b); err != nil {
			return nil, warnings, err
		}
	}

	return unit, warnings, nil
}

func compileBuild(ctx Context, query *Query, unit *ir.Unit, warnings *Warnings, opts Options, b *build) error {
	span := b.span()

	c := &compiler{
		ctx:      ctx,
		query:    query,
		unit:     unit,
		asm:      ir.NewAssembly(span),
		items:    NewItems(b.item),
		scopes:   NewScopes(),
		loops:    &Loops{},
		options:  opts,
		warnings: warnings,
	}

	switch b.kind {
	case buildFunction:
		if err := c.compileDeclFn(b.fn, false); err != nil {
			return err
		}
		if err := unit.NewFunction(b.item, len(b.fn.Args), c.asm, b.call); err != nil {
			return internalf(span, "%v", err)
		}
	case buildInstanceFunction:
		meta, err := c.lookupMeta(b.impl, b.implSpan)
		if err != nil {
			return err
		}
		if meta == nil {
			return errorf(KindMissingType, b.implSpan, "missing item `%v`", b.impl)
		}

		typ, ok := meta.ValueType()
		if !ok {
			return errorf(KindUnsupportedInstanceFunction, span, "cannot declare instance functions on %v", meta)
		}

		if err := c.compileDeclFn(b.fn, true); err != nil {
			return err
		}
		if err := unit.NewInstanceFunction(b.item, typ, b.fn.Name, len(b.fn.Args), c.asm, b.call); err != nil {
			return internalf(span, "%v", err)
		}
	case buildClosure:
		if err := c.compileClosureFn(b.closure, b.captures); err != nil {
			return err
		}
		if err := unit.NewClosure(b.item, len(b.closure.Args), c.asm, b.call); err != nil {
			return internalf(span, "%v", err)
		}
	default:
		return internalf(span, "unknown build kind %v", b.kind)
	}

	return nil
}

// compiler holds the state for compiling one function body.
type compiler struct {
	ctx   Context
	query *Query
	unit  *ir.Unit
	asm   *ir.Assembly

	items  *Items
	scopes *Scopes
	loops  *Loops

	// contexts are the spans of the enclosing blocks, for warnings.
	contexts []token.Span

	options  Options
	warnings *Warnings
}

func (c *compiler) context() *token.Span {
	if len(c.contexts) == 0 {
		return nil
	}
	s := c.contexts[len(c.contexts)-1]
	return &s
}

func (c *compiler) pushContext(span token.Span) {
	c.contexts = append(c.contexts, span)
}

func (c *compiler) popContext() {
	c.contexts = c.contexts[:len(c.contexts)-1]
}

func (c *compiler) label(l ir.Label, span token.Span) error {
	if err := c.asm.Label(l); err != nil {
		return internalf(span, "%v", err)
	}
	return nil
}

// declArgs declares function arguments. They are pushed by the caller in
// reverse, so the last argument is at offset zero.
func (c *compiler) declArgs(args []*ast.FnArg, instance bool) error {
	for i := len(args) - 1; i >= 0; i-- {
		arg := args[i]
		span := arg.Span()

		switch arg.Kind {
		case ast.ArgSelf:
			if i != 0 {
				return errorf(KindUnsupportedArgument, span, "`self` has to be the first argument")
			}
			if !instance {
				return errorf(KindUnsupportedSelf, span, "`self` is only supported in instance functions")
			}
			if _, err := c.scopes.NewVar("self", span); err != nil {
				return err
			}
		case ast.ArgIdent:
			if _, err := c.scopes.NewVar(arg.Name, span); err != nil {
				return err
			}
		default:
			if _, err := c.scopes.DeclAnon(span); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c *compiler) compileDeclFn(fn *ast.FnDecl, instance bool) error {
	span := fn.Span()

	tlog.V("compile").Printw("fn", "name", fn.Name, "args", len(fn.Args), "instance", instance)

	c.pushContext(span)
	defer c.popContext()

	if err := c.declArgs(fn.Args, instance); err != nil {
		return err
	}

	body := fn.Body

	it, ok := c.query.ItemOf(body)
	if !ok {
		return internalf(body.Span(), "no item for the body of %v", fn.Name)
	}
	g := c.items.Enter(it)
	defer g.Pop()

	if body.IsEmpty() {
		c.asm.Emit(ir.OpReturnUnit, 0, 0, span)
		return nil
	}

	for _, e := range body.Exprs {
		if err := c.compileExpr(e, NeedsNone); err != nil {
			return err
		}
	}

	scope, err := c.scopes.Last(span)
	if err != nil {
		return err
	}
	total := scope.TotalVarCount

	if body.Trailing != nil {
		if err := c.compileExpr(body.Trailing, NeedsValue); err != nil {
			return err
		}
		c.localsClean(total, span)
		c.asm.Emit(ir.OpReturn, 0, 0, span)
		return nil
	}

	c.localsPop(total, span)
	c.asm.Emit(ir.OpReturnUnit, 0, 0, span)
	return nil
}

// compileClosureFn compiles a closure body. The frame holds the arguments
// followed by the environment tuple of captured values.
func (c *compiler) compileClosureFn(e *ast.ExprClosure, captures []string) error {
	span := e.Span()

	c.pushContext(span)
	defer c.popContext()

	if err := c.declArgs(e.Args, false); err != nil {
		return err
	}

	env, err := c.scopes.DeclAnon(span)
	if err != nil {
		return err
	}

	for i, name := range captures {
		if err := c.scopes.NewEnvVar(name, env, i, span); err != nil {
			return err
		}
	}

	if err := c.compileExpr(e.Body, NeedsValue); err != nil {
		return err
	}

	scope, err := c.scopes.Last(span)
	if err != nil {
		return err
	}

	c.localsClean(scope.TotalVarCount, span)
	c.asm.Emit(ir.OpReturn, 0, 0, span)
	return nil
}

// localsPop pops total locals off the stack.
func (c *compiler) localsPop(total int, span token.Span) {
	switch total {
	case 0:
	case 1:
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpPop}, span, "pop local")
	default:
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpPopN, A: total}, span, "pop locals")
	}
}

// localsClean pops total locals from under the value on top of the stack.
func (c *compiler) localsClean(total int, span token.Span) {
	if total == 0 {
		return
	}
	c.asm.PushWithComment(ir.Instruction{Op: ir.OpClean, A: total}, span, "clean locals")
}

// cleanLastScope pops the scope pushed with guard and the locals it
// declared, keeping the value on top if needs asks for one.
func (c *compiler) cleanLastScope(guard ScopeGuard, span token.Span, needs Needs) error {
	scope, err := c.scopes.Pop(guard, span)
	if err != nil {
		return err
	}

	if needs.Value() {
		c.localsClean(scope.LocalVarCount, span)
	} else {
		c.localsPop(scope.LocalVarCount, span)
	}

	return nil
}

// lookupMeta resolves it against the host first, then against script
// items declared in the current item or any of its parents.
func (c *compiler) lookupMeta(it item.Item, span token.Span) (*ir.Meta, error) {
	if meta, ok := c.ctx.LookupMeta(it); ok {
		return meta, nil
	}

	base := c.items.Item()

	for {
		meta, err := c.query.QueryMeta(base.Join(it), span)
		if err != nil {
			return nil, err
		}
		if meta != nil {
			return meta, nil
		}

		if _, ok := base.Pop(); !ok {
			return nil, nil
		}
	}
}

// convertPathToItem expands the first segment of path through any import
// visible from the current item.
func (c *compiler) convertPathToItem(path *ast.Path) item.Item {
	first := path.Names[0]

	var out item.Item
	if target, ok := c.lookupImportByName(first); ok {
		out = target.Clone()
	} else {
		out = item.Of(first)
	}

	for _, name := range path.Names[1:] {
		out = append(out, item.Str(name))
	}

	return out
}

func (c *compiler) lookupImportByName(name string) (item.Item, bool) {
	base := c.items.Item()

	for {
		if e, ok := c.unit.LookupImport(base, name); ok {
			return e.Item, true
		}

		if _, ok := base.Pop(); !ok {
			return nil, false
		}
	}
}

// missingPath is the error for a path that resolves to nothing. A bare
// identifier reads as an undeclared variable.
func missingPath(path *ast.Path, it item.Item, needs Needs) error {
	if name, ok := path.AsIdent(); ok && needs == NeedsValue {
		if _, local := it.AsLocal(); local {
			return errorf(KindMissingLocal, path.Span(), "no local variable `%s`", name)
		}
	}
	return errorf(KindMissingType, path.Span(), "missing item `%v`", it)
}
