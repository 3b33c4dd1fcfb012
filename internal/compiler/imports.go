package compiler

import (
	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/token"
)

// processImports registers every `use` declaration with the unit and then
// checks that each import, the prelude included, names something that
// exists in the host or in the unit.
func processImports(ctx Context, unit *ir.Unit, decls []useDecl) error {
	for _, d := range decls {
		if err := processImport(ctx, unit, d); err != nil {
			return err
		}
	}

	for _, e := range unit.Imports() {
		if ctx.ContainsName(e.Item) || unit.ContainsName(e.Item) {
			continue
		}

		if e.Span == nil {
			return errorf(KindMissingPreludeModule, token.Span{}, "missing prelude module `%v`", e.Item)
		}
		return errorf(KindMissingModule, *e.Span, "missing module `%v`", e.Item)
	}

	return nil
}

func processImport(ctx Context, unit *ir.Unit, d useDecl) error {
	comps := d.decl.Components
	span := d.decl.Span()

	var path item.Item

	for i, c := range comps {
		if !c.Wildcard {
			path = append(path, item.Str(c.Name))
			continue
		}

		if i != len(comps)-1 {
			return errorf(KindUnsupportedWildcard, c.Loc, "a wildcard is only supported at the end of an import")
		}

		if !ctx.ContainsPrefix(path) && !unit.ContainsPrefix(path) {
			return errorf(KindMissingModule, span, "missing module `%v`", path)
		}

		tlog.V("query").Printw("import wildcard", "base", d.base, "module", path)

		seen := make(map[string]bool)
		for _, found := range [][]item.Component{ctx.IterComponents(path), unit.IterComponents(path)} {
			for _, comp := range found {
				if comp.Kind != item.KindString || seen[comp.Name] {
					continue
				}
				seen[comp.Name] = true

				if err := newImport(unit, d.base, comp.Name, path.Extended(comp), span); err != nil {
					return err
				}
			}
		}

		return nil
	}

	last, ok := path.Last()
	if !ok {
		return errorf(KindMissingModule, span, "empty import")
	}

	tlog.V("query").Printw("import", "base", d.base, "name", last.Name, "target", path)

	return newImport(unit, d.base, last.Name, path, span)
}

func newImport(unit *ir.Unit, base item.Item, name string, target item.Item, span token.Span) error {
	s := span
	if err := unit.NewImport(base, name, target, &s); err != nil {
		if errors.Is(err, ir.ErrImportConflict) {
			return errorf(KindImportConflict, span, "%v", err)
		}
		return internalf(span, "%v", err)
	}
	return nil
}
