package compiler

import (
	"strings"

	"github.com/nikandfor/tlog"

	"github.com/therealbnut/rune/internal/ast"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/parser"
)

// maxMacroDepth bounds macros expanding into further macro calls.
const maxMacroDepth = 64

// indexMacro expands a macro call and indexes the expansion in its place,
// so that closures and nested macros in it are seen like any others.
func (ix *indexer) indexMacro(e *ast.ExprMacroCall) error {
	if err := ix.expandMacro(e); err != nil {
		return err
	}

	ix.expanding++
	defer func() { ix.expanding-- }()

	return ix.indexExpr(e.Expanded)
}

func (ix *indexer) expandMacro(e *ast.ExprMacroCall) error {
	if e.Expanded != nil {
		return nil
	}

	span := e.Span()
	it := ix.macroItem(e.Path)

	if ix.expanding >= maxMacroDepth {
		return errorf(KindMacroExpansion, span, "macro `%v` is nested more than %d times", it, maxMacroDepth)
	}

	expander, ok := ix.ctx.(MacroExpander)
	if !ok {
		return errorf(KindMissingMacro, e.Path.Span(), "missing macro `%v`", it)
	}

	out, ok, err := expander.ExpandMacro(it, e.Input)
	if err != nil {
		return errorf(KindMacroExpansion, span, "macro `%v`: %v", it, err)
	}
	if !ok {
		return errorf(KindMissingMacro, e.Path.Span(), "missing macro `%v`", it)
	}

	tlog.V("compile").Printw("macro", "item", it, "input", e.Input, "output", out)

	if strings.TrimSpace(out) == "" {
		e.Expanded = &ast.LitUnit{Loc: span}
		return nil
	}

	expr, errs := parser.ParseExpr(out, span.Start)
	if len(errs) != 0 || expr == nil {
		return errorf(KindMacroExpansion, span, "macro `%v` expanded to invalid code: %s", it, strings.Join(errs, "; "))
	}

	e.Expanded = expr

	return nil
}

// macroItem resolves the path of a macro call. Its first segment may name
// an import from the prelude or from a `use` of the file.
func (ix *indexer) macroItem(path *ast.Path) item.Item {
	first := path.Names[0]

	out := item.Of(first)
	if target, ok := ix.lookupImport(first); ok {
		out = target.Clone()
	}

	for _, name := range path.Names[1:] {
		out = append(out, item.Str(name))
	}

	return out
}

func (ix *indexer) lookupImport(name string) (item.Item, bool) {
	current := ix.items.Item()

	for i := len(ix.imports) - 1; i >= 0; i-- {
		d := ix.imports[i]
		if !current.HasPrefix(d.base) {
			continue
		}
		if target, ok := ix.useTarget(d.decl, name); ok {
			return target, true
		}
	}

	for _, u := range ix.uses {
		if target, ok := ix.useTarget(u, name); ok {
			return target, true
		}
	}

	base := current
	for {
		if e, ok := ix.unit.LookupImport(base, name); ok {
			return e.Item, true
		}
		if _, ok := base.Pop(); !ok {
			return nil, false
		}
	}
}

// useTarget returns what name refers to through decl, if anything.
func (ix *indexer) useTarget(decl *ast.UseDecl, name string) (item.Item, bool) {
	var path item.Item

	for _, c := range decl.Components {
		if c.Wildcard {
			target := path.Extended(item.Str(name))
			return target, ix.ctx.ContainsName(target)
		}
		path = append(path, item.Str(c.Name))
	}

	if last, ok := path.Last(); ok && last.Name == name {
		return path, true
	}

	return nil, false
}
