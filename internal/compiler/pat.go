package compiler

import (
	"github.com/therealbnut/rune/internal/ast"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/token"
)

// compilePat tests the value pushed by load against p and binds the names
// the pattern declares. A nil load means the value is already on top of
// the stack. On mismatch every local of the current scope is popped and
// execution continues at falseLabel.
//
// It reports whether the pattern can fail, that is whether falseLabel is
// jumped to.
func (c *compiler) compilePat(p ast.Pat, falseLabel ir.Label, load func()) (bool, error) {
	span := p.Span()

	loadValue := func() {
		if load != nil {
			load()
		}
	}

	switch p := p.(type) {
	case *ast.PatPath:
		return c.compilePatPath(p, falseLabel, loadValue)
	case *ast.PatIgnore:
		if load == nil {
			c.asm.PushWithComment(ir.Instruction{Op: ir.OpPop}, span, "ignored")
		}
		return false, nil
	case *ast.PatUnit:
		loadValue()
		c.asm.Emit(ir.OpIsUnit, 0, 0, span)
	case *ast.PatByte:
		loadValue()
		c.asm.Emit(ir.OpEqByte, int(p.Value), 0, span)
	case *ast.PatChar:
		loadValue()
		c.asm.Emit(ir.OpEqCharacter, int(p.Value), 0, span)
	case *ast.PatNumber:
		if p.Number.IsFloat {
			return false, errorf(KindMatchFloatInPattern, span, "floats cannot be matched against")
		}
		loadValue()
		c.asm.Push(ir.Instruction{Op: ir.OpEqInteger, Int: p.Number.Int}, span)
	case *ast.PatString:
		loadValue()
		c.asm.Emit(ir.OpEqStaticString, c.unit.NewStaticString(p.Value), 0, span)
	case *ast.PatTuple:
		return c.compilePatSequence(span, p.Path, p.Items, p.Open, false, falseLabel, loadValue)
	case *ast.PatVec:
		return c.compilePatSequence(span, nil, p.Items, p.Open, true, falseLabel, loadValue)
	case *ast.PatObject:
		return c.compilePatObject(p, falseLabel, loadValue)
	default:
		return false, errorf(KindUnsupportedPattern, span, "unsupported pattern")
	}

	return true, c.jumpIfNot(falseLabel, span)
}

// jumpIfNot consumes the result of a test, leaving the scope on mismatch.
func (c *compiler) jumpIfNot(falseLabel ir.Label, span token.Span) error {
	scope, err := c.scopes.Last(span)
	if err != nil {
		return err
	}
	c.asm.PopAndJumpIfNot(scope.LocalVarCount, falseLabel, span)
	return nil
}

// compilePatPath matches a unit struct or variant by path, and binds a
// variable otherwise.
func (c *compiler) compilePatPath(p *ast.PatPath, falseLabel ir.Label, load func()) (bool, error) {
	span := p.Span()
	it := c.convertPathToItem(p.Path)

	meta, err := c.lookupMeta(it, span)
	if err != nil {
		return false, err
	}

	if meta != nil && (meta.Kind == ir.MetaTuple || meta.Kind == ir.MetaVariantTuple) && meta.Args == 0 {
		check := ir.TypeCheck{Kind: ir.CheckType, Hash: meta.Hash}
		if meta.Kind == ir.MetaVariantTuple {
			check.Kind = ir.CheckVariant
		}
		if tc, ok := c.ctx.TypeCheckFor(meta.Item); ok {
			check = tc
		}

		load()
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpMatchSequence, Check: check, Exact: true}, span, meta.Item.String())

		return true, c.jumpIfNot(falseLabel, span)
	}

	name, ok := p.Path.AsIdent()
	if !ok {
		return false, errorf(KindUnsupportedBinding, span, "`%v` cannot be bound", it)
	}

	load()
	if _, err := c.scopes.DeclVar(name, span); err != nil {
		return false, err
	}

	return false, nil
}

// patTypeCheck returns the check for a pattern naming a type, such as
// `Foo(a, b)` or `Foo { a }`.
func (c *compiler) patTypeCheck(path *ast.Path, tuple bool) (*ir.Meta, ir.TypeCheck, error) {
	it := c.convertPathToItem(path)

	meta, err := c.lookupMeta(it, path.Span())
	if err != nil {
		return nil, ir.TypeCheck{}, err
	}
	if meta == nil {
		return nil, ir.TypeCheck{}, errorf(KindMissingType, path.Span(), "missing item `%v`", it)
	}

	var check ir.TypeCheck

	switch {
	case tuple && meta.Kind == ir.MetaTuple, !tuple && meta.Kind == ir.MetaStruct:
		check = ir.TypeCheck{Kind: ir.CheckType, Hash: meta.Hash}
	case tuple && meta.Kind == ir.MetaVariantTuple, !tuple && meta.Kind == ir.MetaVariantStruct:
		check = ir.TypeCheck{Kind: ir.CheckVariant, Hash: meta.Hash}
	default:
		return nil, ir.TypeCheck{}, errorf(KindUnsupportedMetaPattern, path.Span(), "%v cannot be used in this pattern", meta)
	}

	if tc, ok := c.ctx.TypeCheckFor(meta.Item); ok {
		check = tc
	}

	return meta, check, nil
}

func (c *compiler) compilePatSequence(span token.Span, path *ast.Path, items []ast.Pat, open, vec bool, falseLabel ir.Label, load func()) (bool, error) {
	load()

	offset, err := c.scopes.DeclAnon(span)
	if err != nil {
		return false, err
	}

	check := ir.TypeCheck{Kind: ir.CheckTuple}
	if vec {
		check.Kind = ir.CheckVec
	}

	if path != nil {
		meta, tc, err := c.patTypeCheck(path, true)
		if err != nil {
			return false, err
		}

		count := len(items)
		if !(meta.Args == count || count < meta.Args && open) {
			return false, errorf(KindUnsupportedArgumentCount, span, "%v takes %d arguments, the pattern has %d", meta.Item, meta.Args, count)
		}

		check = tc
	}

	c.asm.Emit(ir.OpCopy, offset, 0, span)
	c.asm.Push(ir.Instruction{Op: ir.OpMatchSequence, Check: check, A: len(items), Exact: !open}, span)

	if err := c.jumpIfNot(falseLabel, span); err != nil {
		return false, err
	}

	for i, sub := range items {
		load := func() {
			c.asm.Emit(ir.OpTupleIndexGetAt, offset, i, sub.Span())
		}

		if _, err := c.compilePat(sub, falseLabel, load); err != nil {
			return false, err
		}
	}

	return true, nil
}

func (c *compiler) compilePatObject(p *ast.PatObject, falseLabel ir.Label, load func()) (bool, error) {
	span := p.Span()

	load()

	offset, err := c.scopes.DeclAnon(span)
	if err != nil {
		return false, err
	}

	keys := make([]string, 0, len(p.Fields))
	seen := make(map[string]token.Span, len(p.Fields))

	for _, f := range p.Fields {
		if prev, ok := seen[f.Key]; ok {
			return false, errorf(KindDuplicateObjectKey, f.KeyLoc, "duplicate key `%s`, first used at %v", f.Key, prev)
		}
		seen[f.Key] = f.KeyLoc
		keys = append(keys, f.Key)
	}

	slot := c.unit.NewStaticObjectKeys(keys)
	check := ir.TypeCheck{Kind: ir.CheckObject}

	if p.Ident != nil {
		meta, tc, err := c.patTypeCheck(p.Ident, false)
		if err != nil {
			return false, err
		}

		if meta.Fields == nil {
			return false, errorf(KindUnsupportedMetaPattern, p.Ident.Span(), "the fields of %v are not known", meta.Item)
		}

		for _, f := range p.Fields {
			if _, ok := meta.Fields[f.Key]; !ok {
				return false, errorf(KindLitObjectNotField, f.KeyLoc, "`%s` is not a field of %v", f.Key, meta.Item)
			}
		}

		check = tc
	}

	c.asm.Emit(ir.OpCopy, offset, 0, span)
	c.asm.Push(ir.Instruction{Op: ir.OpMatchObject, Check: check, A: slot, Exact: !p.Open}, span)

	if err := c.jumpIfNot(falseLabel, span); err != nil {
		return false, err
	}

	for _, f := range p.Fields {
		key := c.unit.NewStaticString(f.Key)
		load := func() {
			c.asm.Emit(ir.OpObjectSlotIndexGetAt, offset, key, f.KeyLoc)
		}

		if f.Binding != nil {
			if _, err := c.compilePat(f.Binding, falseLabel, load); err != nil {
				return false, err
			}
			continue
		}

		if !f.KeyIdent {
			return false, errorf(KindUnsupportedBinding, f.KeyLoc, "`%s` has to be bound to a name", f.Key)
		}

		load()
		if _, err := c.scopes.DeclVar(f.Key, f.KeyLoc); err != nil {
			return false, err
		}
	}

	return true, nil
}
