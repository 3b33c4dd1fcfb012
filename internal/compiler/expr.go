package compiler

import (
	"fmt"
	"sort"

	"github.com/nikandfor/tlog"

	"github.com/therealbnut/rune/internal/ast"
	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/token"
)

// compileExpr lowers e. With needs.Value() the expression leaves exactly
// one value on the stack, otherwise it leaves the stack as it found it.
func (c *compiler) compileExpr(e ast.Expr, needs Needs) error {
	if tlog.If("compile") {
		tlog.V("compile").Printw("expr", "type", fmt.Sprintf("%T", e), "needs", needs, "span", e.Span())
	}

	switch e := e.(type) {
	case *ast.Block:
		return c.compileBlock(e, needs)
	case *ast.DeclExpr:
		// indexed up front
		if needs.Value() {
			c.asm.Emit(ir.OpUnit, 0, 0, e.Span())
		}
		return nil
	case *ast.LitUnit, *ast.LitBool, *ast.LitNumber, *ast.LitChar, *ast.LitByte, *ast.LitStr, *ast.LitByteStr:
		return c.compileLit(e, needs)
	case *ast.LitTemplate:
		return c.compileTemplate(e, needs)
	case *ast.LitTuple:
		return c.compileSequence(e, e.Items, ir.OpTuple, needs)
	case *ast.LitVec:
		return c.compileSequence(e, e.Items, ir.OpVec, needs)
	case *ast.LitObject:
		return c.compileObject(e, needs)
	case *ast.Path:
		return c.compilePath(e, needs)
	case *ast.SelfExpr:
		return c.compileSelf(e, needs)
	case *ast.ExprGroup:
		return c.compileExpr(e.Expr, needs)
	case *ast.ExprUnary:
		return c.compileUnary(e, needs)
	case *ast.ExprBinary:
		if e.Op.IsAssign() {
			return c.compileAssign(e, needs)
		}
		return c.compileBinary(e, needs)
	case *ast.ExprLet:
		return c.compileLet(e, needs)
	case *ast.ExprIf:
		return c.compileIf(e, needs)
	case *ast.ExprWhile:
		return c.compileWhile(e, needs)
	case *ast.ExprLoop:
		return c.compileLoop(e, needs)
	case *ast.ExprFor:
		return c.compileFor(e, needs)
	case *ast.ExprBreak:
		return c.compileBreak(e, needs)
	case *ast.ExprReturn:
		return c.compileReturn(e, needs)
	case *ast.ExprYield:
		return c.compileYield(e, needs)
	case *ast.ExprMatch:
		return c.compileMatch(e, needs)
	case *ast.ExprSelect:
		return c.compileSelect(e, needs)
	case *ast.ExprCall:
		return c.compileCall(e, needs)
	case *ast.ExprFieldAccess:
		return c.compileFieldAccess(e, needs)
	case *ast.ExprIndexGet:
		return c.compileIndexGet(e, needs)
	case *ast.ExprIndexSet:
		return c.compileIndexSet(e, needs)
	case *ast.ExprClosure:
		return c.compileClosure(e, needs)
	case *ast.ExprAwait:
		return c.compileAwait(e, needs)
	case *ast.ExprTry:
		return c.compileTry(e, needs)
	case *ast.ExprMacroCall:
		if e.Expanded == nil {
			return internalf(e.Span(), "macro call was not expanded")
		}
		return c.compileExpr(e.Expanded, needs)
	}

	return internalf(e.Span(), "unknown expression %T", e)
}

func (c *compiler) totalVarCount(span token.Span) (int, error) {
	scope, err := c.scopes.Last(span)
	if err != nil {
		return 0, err
	}
	return scope.TotalVarCount, nil
}

// popUnused discards the value of an expression compiled for its effects.
func (c *compiler) popUnused(needs Needs, span token.Span) {
	if !needs.Value() {
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpPop}, span, "unused")
	}
}

// ---------- Blocks ----------

func (c *compiler) compileBlock(b *ast.Block, needs Needs) error {
	span := b.Span()

	it, ok := c.query.ItemOf(b)
	if !ok {
		return internalf(span, "no item for block")
	}
	g := c.items.Enter(it)
	defer g.Pop()

	c.pushContext(span)
	defer c.popContext()

	scope, err := c.scopes.Child(span)
	if err != nil {
		return err
	}
	guard := c.scopes.Push(scope)

	for _, e := range b.Exprs {
		if err := c.compileExpr(e, NeedsNone); err != nil {
			return err
		}
	}

	if b.Trailing != nil {
		if err := c.compileExpr(b.Trailing, needs); err != nil {
			return err
		}
	}

	scope, err = c.scopes.Pop(guard, span)
	if err != nil {
		return err
	}

	switch {
	case needs.Value() && b.Trailing == nil:
		c.localsPop(scope.LocalVarCount, span)
		c.asm.Emit(ir.OpUnit, 0, 0, span)
	case needs.Value():
		c.localsClean(scope.LocalVarCount, span)
	default:
		c.localsPop(scope.LocalVarCount, span)
	}

	return nil
}

// ---------- Literals ----------

func (c *compiler) compileLit(e ast.Expr, needs Needs) error {
	span := e.Span()

	if !needs.Value() {
		c.warnings.NotUsed(span, c.context())
		return nil
	}

	switch e := e.(type) {
	case *ast.LitUnit:
		c.asm.Emit(ir.OpUnit, 0, 0, span)
	case *ast.LitBool:
		v := 0
		if e.Value {
			v = 1
		}
		c.asm.Emit(ir.OpBool, v, 0, span)
	case *ast.LitNumber:
		if e.IsFloat {
			c.asm.Push(ir.Instruction{Op: ir.OpFloat, Float: e.Float}, span)
		} else {
			c.asm.Push(ir.Instruction{Op: ir.OpInteger, Int: e.Int}, span)
		}
	case *ast.LitChar:
		c.asm.Emit(ir.OpChar, int(e.Value), 0, span)
	case *ast.LitByte:
		c.asm.Emit(ir.OpByte, int(e.Value), 0, span)
	case *ast.LitStr:
		c.asm.Emit(ir.OpString, c.unit.NewStaticString(e.Value), 0, span)
	case *ast.LitByteStr:
		c.asm.Emit(ir.OpBytes, c.unit.NewStaticBytes(e.Value), 0, span)
	default:
		return internalf(span, "unknown literal %T", e)
	}

	return nil
}

// compileSequence compiles tuple and vec literals. Items are pushed in
// reverse so that the first one ends up on top.
func (c *compiler) compileSequence(e ast.Expr, items []ast.Expr, op ir.OpCode, needs Needs) error {
	span := e.Span()

	if !needs.Value() && ast.IsConst(e) {
		c.warnings.NotUsed(span, c.context())
		return nil
	}

	scope, err := c.scopes.Child(span)
	if err != nil {
		return err
	}
	guard := c.scopes.Push(scope)

	for i := len(items) - 1; i >= 0; i-- {
		if err := c.compileExpr(items[i], NeedsValue); err != nil {
			return err
		}
		if _, err := c.scopes.DeclAnon(items[i].Span()); err != nil {
			return err
		}
	}

	c.asm.Emit(op, len(items), 0, span)

	if _, err := c.scopes.Pop(guard, span); err != nil {
		return err
	}

	if !needs.Value() {
		c.warnings.NotUsed(span, c.context())
		c.popUnused(needs, span)
	}

	return nil
}

func (c *compiler) compileObject(e *ast.LitObject, needs Needs) error {
	span := e.Span()

	if !needs.Value() && ast.IsConst(e) {
		c.warnings.NotUsed(span, c.context())
		return nil
	}

	keys := make([]string, 0, len(e.Assignments))
	seen := make(map[string]token.Span, len(e.Assignments))

	for _, a := range e.Assignments {
		if prev, ok := seen[a.Key]; ok {
			return errorf(KindDuplicateObjectKey, a.KeyLoc, "duplicate key `%s`, first used at %v", a.Key, prev)
		}
		seen[a.Key] = a.KeyLoc
		keys = append(keys, a.Key)
	}

	slot := c.unit.NewStaticObjectKeys(keys)

	scope, err := c.scopes.Child(span)
	if err != nil {
		return err
	}
	guard := c.scopes.Push(scope)

	for i := len(e.Assignments) - 1; i >= 0; i-- {
		a := e.Assignments[i]

		if a.Value != nil {
			if err := c.compileExpr(a.Value, NeedsValue); err != nil {
				return err
			}
		} else {
			v, err := c.scopes.GetVar(a.Key, a.KeyLoc)
			if err != nil {
				return err
			}
			v.Copy(c.asm, a.KeyLoc, a.Key)
		}

		if _, err := c.scopes.DeclAnon(a.Loc); err != nil {
			return err
		}
	}

	if _, err := c.scopes.Pop(guard, span); err != nil {
		return err
	}

	if e.Ident == nil {
		c.asm.Emit(ir.OpObject, slot, 0, span)
	} else {
		it := c.convertPathToItem(e.Ident)

		meta, err := c.lookupMeta(it, e.Ident.Span())
		if err != nil {
			return err
		}
		if meta == nil {
			return errorf(KindMissingType, e.Ident.Span(), "missing item `%v`", it)
		}

		switch meta.Kind {
		case ir.MetaStruct, ir.MetaVariantStruct:
		default:
			return errorf(KindUnsupportedLitObject, span, "%v cannot be constructed with an object literal", meta)
		}

		if err := checkObjectFields(meta, e, seen); err != nil {
			return err
		}

		if meta.Kind == ir.MetaStruct {
			c.asm.Push(ir.Instruction{Op: ir.OpTypedObject, Hash: meta.Hash, A: slot}, span)
		} else {
			c.asm.Push(ir.Instruction{Op: ir.OpVariantObject, Enum: meta.EnumHash, Hash: meta.Hash, A: slot}, span)
		}
	}

	if !needs.Value() {
		c.warnings.NotUsed(span, c.context())
		c.popUnused(needs, span)
	}

	return nil
}

func checkObjectFields(meta *ir.Meta, e *ast.LitObject, seen map[string]token.Span) error {
	if meta.Fields == nil {
		return errorf(KindMissingType, e.Ident.Span(), "the fields of %v are not known", meta.Item)
	}

	for _, a := range e.Assignments {
		if _, ok := meta.Fields[a.Key]; !ok {
			return errorf(KindLitObjectNotField, a.KeyLoc, "`%s` is not a field of %v", a.Key, meta.Item)
		}
	}

	missing := make([]string, 0)
	for f := range meta.Fields {
		if _, ok := seen[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) != 0 {
		sort.Strings(missing)
		return errorf(KindLitObjectMissingField, e.Span(), "missing field `%s` of %v", missing[0], meta.Item)
	}

	return nil
}

func (c *compiler) compileTemplate(e *ast.LitTemplate, needs Needs) error {
	span := e.Span()

	if !e.HasExpansions {
		c.warnings.TemplateWithoutExpansions(span, c.context())

		if !needs.Value() {
			c.warnings.NotUsed(span, c.context())
			return nil
		}
	}

	scope, err := c.scopes.Child(span)
	if err != nil {
		return err
	}
	guard := c.scopes.Push(scope)

	for i := len(e.Components) - 1; i >= 0; i-- {
		comp := e.Components[i]

		if comp.Expr == nil {
			c.asm.Emit(ir.OpString, c.unit.NewStaticString(comp.String), 0, span)
		} else if err := c.compileExpr(comp.Expr, NeedsValue); err != nil {
			return err
		}

		if _, err := c.scopes.DeclAnon(span); err != nil {
			return err
		}
	}

	if _, err := c.scopes.Pop(guard, span); err != nil {
		return err
	}

	c.asm.Emit(ir.OpStringConcat, len(e.Components), e.SizeHint, span)
	c.popUnused(needs, span)

	return nil
}

// ---------- Paths ----------

func (c *compiler) compilePath(path *ast.Path, needs Needs) error {
	span := path.Span()

	if !needs.Value() {
		c.warnings.NotUsed(span, c.context())
		return nil
	}

	if name, ok := path.AsIdent(); ok && needs == NeedsValue {
		if v, ok := c.scopes.TryGetVar(name); ok {
			v.Copy(c.asm, span, name)
			return nil
		}
	}

	it := c.convertPathToItem(path)

	meta, err := c.lookupMeta(it, span)
	if err != nil {
		return err
	}
	if meta == nil {
		return missingPath(path, it, needs)
	}

	return c.compileMeta(meta, span, needs)
}

// compileMeta pushes the value or the type denoted by a resolved item.
func (c *compiler) compileMeta(meta *ir.Meta, span token.Span, needs Needs) error {
	if needs == NeedsType {
		typ, ok := meta.ValueType()
		if !ok {
			return errorf(KindUnsupportedType, span, "%v is not a type", meta)
		}
		c.asm.Push(ir.Instruction{Op: ir.OpType, Hash: typ}, span)
		return nil
	}

	switch meta.Kind {
	case ir.MetaTuple, ir.MetaVariantTuple:
		if meta.Args == 0 {
			c.asm.PushWithComment(ir.Instruction{Op: ir.OpCall, Hash: meta.Hash}, span, meta.Item.String())
			return nil
		}
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpFn, Hash: meta.Hash}, span, meta.Item.String())
	case ir.MetaFunction:
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpFn, Hash: meta.Hash}, span, meta.Item.String())
	default:
		return errorf(KindUnsupportedValue, span, "%v cannot be used as a value", meta)
	}

	return nil
}

func (c *compiler) compileSelf(e *ast.SelfExpr, needs Needs) error {
	span := e.Span()

	if !needs.Value() {
		c.warnings.NotUsed(span, c.context())
		return nil
	}

	v, err := c.scopes.GetVar("self", span)
	if err != nil {
		return err
	}
	v.Copy(c.asm, span, "self")

	return nil
}

// identVar returns the variable a plain identifier or `self` refers to.
func (c *compiler) identVar(e ast.Expr) (Var, bool) {
	switch e := e.(type) {
	case *ast.Path:
		if name, ok := e.AsIdent(); ok {
			return c.scopes.TryGetVar(name)
		}
	case *ast.SelfExpr:
		return c.scopes.TryGetVar("self")
	}
	return Var{}, false
}

// ---------- Operators ----------

func (c *compiler) compileUnary(e *ast.ExprUnary, needs Needs) error {
	span := e.Span()

	switch e.Op {
	case ast.UnaryBorrowRef:
		return errorf(KindUnsupportedRef, span, "taking references is not supported")
	case ast.UnaryNeg:
		lit, ok := e.Expr.(*ast.LitNumber)
		if !ok {
			return errorf(KindUnsupportedUnaryOp, span, "unsupported unary operator `%v`", e.Op)
		}
		neg := &ast.LitNumber{Loc: span, IsFloat: lit.IsFloat, Int: -lit.Int, Float: -lit.Float}
		return c.compileLit(neg, needs)
	case ast.UnaryNot:
		if err := c.compileExpr(e.Expr, NeedsValue); err != nil {
			return err
		}
		c.asm.Emit(ir.OpNot, 0, 0, span)
		c.popUnused(needs, span)
		return nil
	}

	return errorf(KindUnsupportedUnaryOp, span, "unsupported unary operator `%v`", e.Op)
}

var binaryOps = map[ast.BinOp]ir.OpCode{
	ast.BinAdd:   ir.OpAdd,
	ast.BinSub:   ir.OpSub,
	ast.BinMul:   ir.OpMul,
	ast.BinDiv:   ir.OpDiv,
	ast.BinRem:   ir.OpRem,
	ast.BinEq:    ir.OpEq,
	ast.BinNeq:   ir.OpNeq,
	ast.BinLt:    ir.OpLt,
	ast.BinGt:    ir.OpGt,
	ast.BinLte:   ir.OpLte,
	ast.BinGte:   ir.OpGte,
	ast.BinIs:    ir.OpIs,
	ast.BinIsNot: ir.OpIsNot,
	ast.BinAnd:   ir.OpAnd,
	ast.BinOr:    ir.OpOr,
}

// compileBinary evaluates both operands, left first. `&&` and `||` do not
// short-circuit.
func (c *compiler) compileBinary(e *ast.ExprBinary, needs Needs) error {
	span := e.Span()

	op, ok := binaryOps[e.Op]
	if !ok {
		return errorf(KindUnsupportedBinaryOp, span, "unsupported binary operator `%v`", e.Op)
	}

	if err := c.compileExpr(e.Lhs, NeedsValue); err != nil {
		return err
	}
	if _, err := c.scopes.DeclAnon(e.Lhs.Span()); err != nil {
		return err
	}

	rhsNeeds := NeedsValue
	if e.Op == ast.BinIs || e.Op == ast.BinIsNot {
		rhsNeeds = NeedsType
	}

	if err := c.compileExpr(e.Rhs, rhsNeeds); err != nil {
		return err
	}
	if _, err := c.scopes.DeclAnon(e.Rhs.Span()); err != nil {
		return err
	}

	c.asm.Emit(op, 0, 0, span)

	if err := c.scopes.UndeclAnon(2, span); err != nil {
		return err
	}

	c.popUnused(needs, span)
	return nil
}

var assignOps = map[ast.BinOp]ir.OpCode{
	ast.BinAssign:    ir.OpReplace,
	ast.BinAddAssign: ir.OpAddAssign,
	ast.BinSubAssign: ir.OpSubAssign,
	ast.BinMulAssign: ir.OpMulAssign,
	ast.BinDivAssign: ir.OpDivAssign,
}

func (c *compiler) compileAssign(e *ast.ExprBinary, needs Needs) error {
	span := e.Span()

	switch lhs := e.Lhs.(type) {
	case *ast.ExprFieldAccess:
		if e.Op != ast.BinAssign {
			return errorf(KindUnsupportedAssignBinOp, span, "unsupported operator `%v` on a field", e.Op)
		}

		v, ok := c.identVar(lhs.Expr)
		if !ok {
			return errorf(KindUnsupportedAssignExpr, lhs.Expr.Span(), "only fields of variables can be assigned")
		}

		if err := c.compileExpr(e.Rhs, NeedsValue); err != nil {
			return err
		}

		if lhs.IsIndex {
			v.Copy(c.asm, span, v.Name)
			c.asm.Emit(ir.OpTupleIndexSet, lhs.Index, 0, span)
			break
		}

		c.asm.Emit(ir.OpString, c.unit.NewStaticString(lhs.Field), 0, lhs.FieldLoc)
		v.Copy(c.asm, span, v.Name)
		c.asm.Emit(ir.OpIndexSet, 0, 0, span)
	case *ast.Path, *ast.SelfExpr:
		v, ok := c.identVar(lhs)
		if !ok {
			path, isPath := lhs.(*ast.Path)
			if isPath && len(path.Names) > 1 {
				return errorf(KindUnsupportedAssignExpr, lhs.Span(), "cannot assign to a path")
			}
			return errorf(KindMissingLocal, lhs.Span(), "no local variable to assign to")
		}
		if v.Kind == VarEnviron {
			return errorf(KindUnsupportedAssignExpr, lhs.Span(), "cannot assign to captured variable `%s`", v.Name)
		}

		op, ok := assignOps[e.Op]
		if !ok {
			return errorf(KindUnsupportedAssignBinOp, span, "unsupported assignment operator `%v`", e.Op)
		}

		if err := c.compileExpr(e.Rhs, NeedsValue); err != nil {
			return err
		}

		c.asm.PushWithComment(ir.Instruction{Op: op, A: v.Offset}, span, v.Name)
	default:
		return errorf(KindUnsupportedAssignExpr, lhs.Span(), "unsupported assignment target")
	}

	if needs.Value() {
		c.asm.Emit(ir.OpUnit, 0, 0, span)
	}

	return nil
}

// ---------- Access ----------

func (c *compiler) compileFieldAccess(e *ast.ExprFieldAccess, needs Needs) error {
	span := e.Span()

	if err := c.compileFieldValue(e); err != nil {
		return err
	}

	if !needs.Value() {
		c.warnings.NotUsed(span, c.context())
		c.popUnused(needs, span)
	}

	return nil
}

func (c *compiler) compileFieldValue(e *ast.ExprFieldAccess) error {
	span := e.Span()

	if e.IsIndex {
		if v, ok := c.identVar(e.Expr); ok {
			switch v.Kind {
			case VarLocal:
				c.asm.PushWithComment(ir.Instruction{Op: ir.OpTupleIndexGetAt, A: v.Offset, B: e.Index}, span, v.Name)
			default:
				v.Copy(c.asm, span, v.Name)
				c.asm.Emit(ir.OpTupleIndexGet, e.Index, 0, span)
			}
			return nil
		}
	}

	if err := c.compileExpr(e.Expr, NeedsValue); err != nil {
		return err
	}

	if e.IsIndex {
		c.asm.Emit(ir.OpTupleIndexGet, e.Index, 0, span)
		return nil
	}

	if e.Field == "" {
		return errorf(KindUnsupportedFieldAccess, span, "unsupported field access")
	}

	c.asm.Emit(ir.OpObjectSlotIndexGet, c.unit.NewStaticString(e.Field), 0, span)
	return nil
}

// compileOperands compiles each expression with a reserved slot, leaving
// them on the stack in order. The caller releases the slots.
func (c *compiler) compileOperands(es ...ast.Expr) error {
	for _, e := range es {
		if err := c.compileExpr(e, NeedsValue); err != nil {
			return err
		}
		if _, err := c.scopes.DeclAnon(e.Span()); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) compileIndexGet(e *ast.ExprIndexGet, needs Needs) error {
	span := e.Span()

	if err := c.compileOperands(e.Index, e.Target); err != nil {
		return err
	}

	c.asm.Emit(ir.OpIndexGet, 0, 0, span)

	if err := c.scopes.UndeclAnon(2, span); err != nil {
		return err
	}

	c.popUnused(needs, span)
	return nil
}

func (c *compiler) compileIndexSet(e *ast.ExprIndexSet, needs Needs) error {
	span := e.Span()

	if err := c.compileOperands(e.Value, e.Index, e.Target); err != nil {
		return err
	}

	c.asm.Emit(ir.OpIndexSet, 0, 0, span)

	if err := c.scopes.UndeclAnon(3, span); err != nil {
		return err
	}

	if needs.Value() {
		c.asm.Emit(ir.OpUnit, 0, 0, span)
	}

	return nil
}

// ---------- Calls ----------

func (c *compiler) compileCall(e *ast.ExprCall, needs Needs) error {
	span := e.Span()
	n := len(e.Args)

	scope, err := c.scopes.Child(span)
	if err != nil {
		return err
	}
	guard := c.scopes.Push(scope)

	for i := n - 1; i >= 0; i-- {
		if err := c.compileExpr(e.Args[i], NeedsValue); err != nil {
			return err
		}
		if _, err := c.scopes.DeclAnon(e.Args[i].Span()); err != nil {
			return err
		}
	}

	switch callee := e.Expr.(type) {
	case *ast.ExprFieldAccess:
		if callee.IsIndex {
			if err := c.compileCallFn(e.Expr, n, span); err != nil {
				return err
			}
			break
		}

		if err := c.compileExpr(callee.Expr, NeedsValue); err != nil {
			return err
		}
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpCallInstance, Hash: hash.Of(callee.Field), A: n}, span, callee.Field)
	case *ast.Path:
		if err := c.compileCallPath(callee, n, span); err != nil {
			return err
		}
	default:
		if err := c.compileCallFn(e.Expr, n, span); err != nil {
			return err
		}
	}

	// the call consumes the arguments
	if _, err := c.scopes.Pop(guard, span); err != nil {
		return err
	}

	c.popUnused(needs, span)
	return nil
}

func (c *compiler) compileCallFn(callee ast.Expr, n int, span token.Span) error {
	if err := c.compileExpr(callee, NeedsValue); err != nil {
		return err
	}
	c.asm.Emit(ir.OpCallFn, n, 0, span)
	return nil
}

func (c *compiler) compileCallPath(path *ast.Path, n int, span token.Span) error {
	// a local holding a function shadows items of the same name
	if name, ok := path.AsIdent(); ok {
		if v, ok := c.scopes.TryGetVar(name); ok {
			v.Copy(c.asm, path.Span(), name)
			c.asm.Emit(ir.OpCallFn, n, 0, span)
			return nil
		}
	}

	it := c.convertPathToItem(path)

	meta, err := c.lookupMeta(it, path.Span())
	if err != nil {
		return err
	}
	if meta == nil {
		return missingPath(path, it, NeedsValue)
	}

	switch meta.Kind {
	case ir.MetaTuple, ir.MetaVariantTuple:
		if meta.Args != n {
			return errorf(KindUnsupportedArgumentCount, span, "%v takes %d arguments, got %d", meta.Item, meta.Args, n)
		}
		if n == 0 {
			parens := token.Span{Start: path.Span().End, End: span.End}
			c.warnings.RemoveTupleCallParens(span, parens, c.context())
		}
	case ir.MetaFunction:
		if meta.Args >= 0 && meta.Args != n {
			return errorf(KindUnsupportedArgumentCount, span, "%v takes %d arguments, got %d", meta.Item, meta.Args, n)
		}
	default:
		return errorf(KindNotFunction, path.Span(), "%v is not a function", meta)
	}

	c.asm.PushWithComment(ir.Instruction{Op: ir.OpCall, Hash: meta.Hash, A: n}, span, meta.Item.String())
	return nil
}

func (c *compiler) compileClosure(e *ast.ExprClosure, needs Needs) error {
	span := e.Span()

	if !needs.Value() {
		c.warnings.NotUsed(span, c.context())
		return nil
	}

	it, ok := c.query.ItemOf(e)
	if !ok {
		return internalf(span, "no item for closure")
	}

	meta, err := c.query.QueryMeta(it, span)
	if err != nil {
		return err
	}
	if meta == nil || meta.Kind != ir.MetaClosure {
		return errorf(KindUnsupportedMetaClosure, span, "%v is not a closure", it)
	}

	for _, name := range meta.Captures {
		v, err := c.scopes.GetVar(name, span)
		if err != nil {
			return err
		}
		v.Copy(c.asm, span, "capture "+name)
	}

	c.asm.PushWithComment(ir.Instruction{Op: ir.OpClosure, Hash: meta.Hash, A: len(meta.Captures)}, span, it.String())
	return nil
}

// ---------- Control flow ----------

// dropLoopTemps releases the temporaries of every enclosing loop.
func (c *compiler) dropLoopTemps(span token.Span) {
	for _, loop := range c.loops.Iter() {
		if loop.Drop >= 0 {
			c.asm.PushWithComment(ir.Instruction{Op: ir.OpDrop, A: loop.Drop}, span, "loop temporary")
		}
	}
}

func (c *compiler) compileReturn(e *ast.ExprReturn, needs Needs) error {
	span := e.Span()

	c.dropLoopTemps(span)

	total, err := c.totalVarCount(span)
	if err != nil {
		return err
	}

	if e.Value == nil {
		c.localsPop(total, span)
		c.asm.Emit(ir.OpReturnUnit, 0, 0, span)
		return nil
	}

	if err := c.compileExpr(e.Value, NeedsValue); err != nil {
		return err
	}
	c.localsClean(total, span)
	c.asm.Emit(ir.OpReturn, 0, 0, span)

	return nil
}

func (c *compiler) compileYield(e *ast.ExprYield, needs Needs) error {
	span := e.Span()

	if e.Value != nil {
		if err := c.compileExpr(e.Value, NeedsValue); err != nil {
			return err
		}
		c.asm.Emit(ir.OpYield, 0, 0, span)
	} else {
		c.asm.Emit(ir.OpYieldUnit, 0, 0, span)
	}

	c.popUnused(needs, span)
	return nil
}

func (c *compiler) compileAwait(e *ast.ExprAwait, needs Needs) error {
	span := e.Span()

	if err := c.compileExpr(e.Expr, NeedsValue); err != nil {
		return err
	}
	c.asm.Emit(ir.OpAwait, 0, 0, span)

	c.popUnused(needs, span)
	return nil
}

// compileTry returns early with the value itself when it is None or Err,
// and unwraps it otherwise.
func (c *compiler) compileTry(e *ast.ExprTry, needs Needs) error {
	span := e.Span()

	if err := c.compileExpr(e.Expr, NeedsValue); err != nil {
		return err
	}

	ok := c.asm.NewLabel("try_ok")

	c.asm.Emit(ir.OpDup, 0, 0, span)
	c.asm.Emit(ir.OpIsValue, 0, 0, span)
	c.asm.JumpIf(ok, span)

	c.dropLoopTemps(span)

	total, err := c.totalVarCount(span)
	if err != nil {
		return err
	}
	c.localsClean(total, span)
	c.asm.Emit(ir.OpReturn, 0, 0, span)

	if err := c.label(ok, span); err != nil {
		return err
	}

	c.asm.Emit(ir.OpUnwrap, 0, 0, span)
	c.popUnused(needs, span)

	return nil
}

func (c *compiler) compileLet(e *ast.ExprLet, needs Needs) error {
	span := e.Span()

	if err := c.compileExpr(e.Expr, NeedsValue); err != nil {
		return err
	}

	panicLabel := c.asm.NewLabel("let_panic")
	ok := c.asm.NewLabel("let_ok")

	used, err := c.compilePat(e.Pat, panicLabel, nil)
	if err != nil {
		return err
	}

	if used {
		c.warnings.LetPatternMightPanic(span, c.context())

		c.asm.Jump(ok, span)
		if err := c.label(panicLabel, span); err != nil {
			return err
		}
		c.asm.Emit(ir.OpPanic, int(ir.PanicUnmatchedPattern), 0, span)
		if err := c.label(ok, span); err != nil {
			return err
		}
	}

	if needs.Value() {
		c.asm.Emit(ir.OpUnit, 0, 0, span)
	}

	return nil
}

// compileCondition compiles the condition of an if or while, jumping to
// then when it holds. The returned scope holds the bindings of an `if let`
// and has to be pushed around the code at then.
func (c *compiler) compileCondition(cond ast.Expr, then ir.Label) (*Scope, error) {
	span := cond.Span()

	scope, err := c.scopes.Child(span)
	if err != nil {
		return nil, err
	}

	let, ok := cond.(*ast.ExprLet)
	if !ok {
		if err := c.compileExpr(cond, NeedsValue); err != nil {
			return nil, err
		}
		c.asm.JumpIf(then, span)
		return scope, nil
	}

	guard := c.scopes.Push(scope)

	if err := c.compileExpr(let.Expr, NeedsValue); err != nil {
		return nil, err
	}

	falseLabel := c.asm.NewLabel("if_false")

	used, err := c.compilePat(let.Pat, falseLabel, nil)
	if err != nil {
		return nil, err
	}

	c.asm.Jump(then, span)

	if used {
		if err := c.label(falseLabel, span); err != nil {
			return nil, err
		}
	}

	return c.scopes.Pop(guard, span)
}

func (c *compiler) compileIf(e *ast.ExprIf, needs Needs) error {
	span := e.Span()

	type branch struct {
		label ir.Label
		scope *Scope
		block *ast.Block
	}

	end := c.asm.NewLabel("if_end")

	var branches []branch

	then := c.asm.NewLabel("if_then")
	scope, err := c.compileCondition(e.Condition, then)
	if err != nil {
		return err
	}
	branches = append(branches, branch{then, scope, e.Block})

	for _, elseIf := range e.ElseIfs {
		l := c.asm.NewLabel("if_else_if")
		scope, err := c.compileCondition(elseIf.Condition, l)
		if err != nil {
			return err
		}
		branches = append(branches, branch{l, scope, elseIf.Block})
	}

	if e.Else != nil {
		if err := c.compileBlock(e.Else, needs); err != nil {
			return err
		}
	} else if needs.Value() {
		c.asm.Emit(ir.OpUnit, 0, 0, span)
	}

	for _, b := range branches {
		c.asm.Jump(end, span)

		if err := c.label(b.label, span); err != nil {
			return err
		}

		guard := c.scopes.Push(b.scope)
		if err := c.compileBlock(b.block, needs); err != nil {
			return err
		}
		if err := c.cleanLastScope(guard, span, needs); err != nil {
			return err
		}
	}

	return c.label(end, span)
}

func (c *compiler) newLoop(label string, needs Needs, drop int, span token.Span) (*Loop, error) {
	total, err := c.totalVarCount(span)
	if err != nil {
		return nil, err
	}

	return &Loop{
		Label:         label,
		LabelSpan:     span,
		BreakLabel:    c.asm.NewLabel("loop_break"),
		TotalVarCount: total,
		Needs:         needs,
		Drop:          drop,
	}, nil
}

func (c *compiler) finishLoop(loop *Loop, needs Needs, span token.Span) error {
	if needs.Value() {
		c.asm.Emit(ir.OpUnit, 0, 0, span)
	}

	if err := c.label(loop.BreakLabel, span); err != nil {
		return err
	}

	if loop.Label != "" && !loop.used {
		c.warnings.UnusedLoopLabel(loop.LabelSpan, c.context())
	}

	return nil
}

func (c *compiler) compileWhile(e *ast.ExprWhile, needs Needs) error {
	span := e.Span()

	loop, err := c.newLoop(e.Label, needs, -1, span)
	if err != nil {
		return err
	}
	c.loops.Push(loop)
	defer c.loops.Pop()

	start := c.asm.NewLabel("while_start")
	then := c.asm.NewLabel("while_then")
	end := c.asm.NewLabel("while_end")

	if err := c.label(start, span); err != nil {
		return err
	}

	scope, err := c.compileCondition(e.Condition, then)
	if err != nil {
		return err
	}
	c.asm.Jump(end, span)

	if err := c.label(then, span); err != nil {
		return err
	}

	guard := c.scopes.Push(scope)
	if err := c.compileBlock(e.Body, NeedsNone); err != nil {
		return err
	}
	if err := c.cleanLastScope(guard, span, NeedsNone); err != nil {
		return err
	}

	c.asm.Jump(start, span)

	if err := c.label(end, span); err != nil {
		return err
	}

	return c.finishLoop(loop, needs, span)
}

func (c *compiler) compileLoop(e *ast.ExprLoop, needs Needs) error {
	span := e.Span()

	loop, err := c.newLoop(e.Label, needs, -1, span)
	if err != nil {
		return err
	}
	c.loops.Push(loop)
	defer c.loops.Pop()

	start := c.asm.NewLabel("loop_start")

	if err := c.label(start, span); err != nil {
		return err
	}

	if err := c.compileBlock(e.Body, NeedsNone); err != nil {
		return err
	}

	c.asm.Jump(start, span)

	return c.finishLoop(loop, needs, span)
}

// compileFor lowers `for x in iter { .. }`. The iterator is a temporary
// owned by the loop, released on every way out of it.
func (c *compiler) compileFor(e *ast.ExprFor, needs Needs) error {
	span := e.Span()

	if err := c.compileExpr(e.Iter, NeedsValue); err != nil {
		return err
	}
	c.asm.PushWithComment(ir.Instruction{Op: ir.OpCallInstance, Hash: hash.IntoIter}, span, "into_iter")

	iter, err := c.scopes.DeclAnon(span)
	if err != nil {
		return err
	}

	loop, err := c.newLoop(e.Label, needs, iter, span)
	if err != nil {
		return err
	}

	scope, err := c.scopes.Child(span)
	if err != nil {
		return err
	}
	guard := c.scopes.Push(scope)

	c.asm.Emit(ir.OpUnit, 0, 0, e.VarLoc)
	binding, err := c.scopes.DeclVar(e.Var, e.VarLoc)
	if err != nil {
		return err
	}

	next := -1
	if c.options.MemoizeInstanceFn {
		c.asm.Emit(ir.OpCopy, iter, 0, span)
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpLoadInstanceFn, Hash: hash.Next}, span, "next")

		if next, err = c.scopes.DeclAnon(span); err != nil {
			return err
		}
	}

	c.loops.Push(loop)
	defer c.loops.Pop()

	start := c.asm.NewLabel("for_start")
	end := c.asm.NewLabel("for_end")

	if err := c.label(start, span); err != nil {
		return err
	}

	c.asm.Emit(ir.OpCopy, iter, 0, span)
	if next >= 0 {
		c.asm.Emit(ir.OpCopy, next, 0, span)
		c.asm.Emit(ir.OpCallFn, 1, 0, span)
	} else {
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpCallInstance, Hash: hash.Next}, span, "next")
	}

	c.asm.Emit(ir.OpReplace, binding, 0, span)
	c.asm.Emit(ir.OpCopy, binding, 0, span)
	c.asm.Emit(ir.OpIsValue, 0, 0, span)
	c.asm.JumpIfNot(end, span)

	c.asm.Emit(ir.OpCopy, binding, 0, span)
	c.asm.Emit(ir.OpUnwrap, 0, 0, span)
	c.asm.Emit(ir.OpReplace, binding, 0, span)

	if err := c.compileBlock(e.Body, NeedsNone); err != nil {
		return err
	}

	c.asm.Jump(start, span)

	if err := c.label(end, span); err != nil {
		return err
	}

	c.asm.PushWithComment(ir.Instruction{Op: ir.OpDrop, A: iter}, span, "iterator")

	if err := c.cleanLastScope(guard, span, NeedsNone); err != nil {
		return err
	}

	if err := c.finishLoop(loop, needs, span); err != nil {
		return err
	}

	// the iterator itself
	if needs.Value() {
		c.localsClean(1, span)
	} else {
		c.localsPop(1, span)
	}

	return c.scopes.UndeclAnon(1, span)
}

func (c *compiler) compileBreak(e *ast.ExprBreak, needs Needs) error {
	span := e.Span()

	if needs.Value() {
		c.warnings.BreakDoesNotProduceValue(span, c.context())
	}

	last, ok := c.loops.Last()
	if !ok {
		return errorf(KindBreakOutsideOfLoop, span, "break outside of loop")
	}

	loop := last
	var drop []int

	if e.Label != "" {
		var err error
		loop, drop, err = c.loops.WalkUntilLabel(e.Label, span)
		if err != nil {
			return err
		}
	} else if last.Drop >= 0 {
		drop = []int{last.Drop}
	}

	if e.Value != nil {
		if err := c.compileExpr(e.Value, loop.Needs); err != nil {
			return err
		}
	}

	for _, offset := range drop {
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpDrop, A: offset}, span, "loop temporary")
	}

	total, err := c.totalVarCount(span)
	if err != nil {
		return err
	}
	vars := total - loop.TotalVarCount

	switch {
	case loop.Needs.Value() && e.Value != nil:
		c.localsClean(vars, span)
	case loop.Needs.Value():
		c.localsPop(vars, span)
		c.asm.Emit(ir.OpUnit, 0, 0, span)
	default:
		c.localsPop(vars, span)
	}

	c.asm.Jump(loop.BreakLabel, span)
	return nil
}

func (c *compiler) compileMatch(e *ast.ExprMatch, needs Needs) error {
	span := e.Span()

	scope, err := c.scopes.Child(span)
	if err != nil {
		return err
	}
	guard := c.scopes.Push(scope)

	if err := c.compileExpr(e.Expr, NeedsValue); err != nil {
		return err
	}

	offset, err := c.scopes.DeclAnon(e.Expr.Span())
	if err != nil {
		return err
	}

	end := c.asm.NewLabel("match_end")

	type branch struct {
		label ir.Label
		scope *Scope
		body  ast.Expr
	}

	branches := make([]branch, 0, len(e.Branches))

	for _, b := range e.Branches {
		label := c.asm.NewLabel("match_branch")
		falseLabel := c.asm.NewLabel("match_false")

		branchScope, err := c.scopes.Child(b.Loc)
		if err != nil {
			return err
		}
		branchGuard := c.scopes.Push(branchScope)

		load := func() {
			c.asm.PushWithComment(ir.Instruction{Op: ir.OpCopy, A: offset}, b.Loc, "match value")
		}

		if _, err := c.compilePat(b.Pat, falseLabel, load); err != nil {
			return err
		}

		if b.Guard != nil {
			guardScope, err := c.scopes.Child(b.Guard.Span())
			if err != nil {
				return err
			}
			g := c.scopes.Push(guardScope)

			if err := c.compileExpr(b.Guard, NeedsValue); err != nil {
				return err
			}
			if err := c.cleanLastScope(g, b.Guard.Span(), NeedsValue); err != nil {
				return err
			}

			c.asm.PopAndJumpIfNot(branchScope.LocalVarCount, falseLabel, b.Guard.Span())
		}

		branchScope, err = c.scopes.Pop(branchGuard, b.Loc)
		if err != nil {
			return err
		}

		c.asm.Jump(label, b.Loc)
		if err := c.label(falseLabel, b.Loc); err != nil {
			return err
		}

		branches = append(branches, branch{label, branchScope, b.Body})
	}

	// nothing matched
	if needs.Value() {
		c.asm.Emit(ir.OpUnit, 0, 0, span)
	}
	c.asm.Jump(end, span)

	for _, b := range branches {
		if err := c.label(b.label, b.body.Span()); err != nil {
			return err
		}

		g := c.scopes.Push(b.scope.Clone())
		if err := c.compileExpr(b.body, needs); err != nil {
			return err
		}
		if err := c.cleanLastScope(g, b.body.Span(), needs); err != nil {
			return err
		}

		c.asm.Jump(end, span)
	}

	if err := c.label(end, span); err != nil {
		return err
	}

	return c.cleanLastScope(guard, span, needs)
}

// compileSelect waits on every branch future at once. Select pushes the
// output of the first to complete and then its branch index.
func (c *compiler) compileSelect(e *ast.ExprSelect, needs Needs) error {
	span := e.Span()

	c.pushContext(span)
	defer c.popContext()

	n := len(e.Branches)

	for i := n - 1; i >= 0; i-- {
		if err := c.compileExpr(e.Branches[i].Expr, NeedsValue); err != nil {
			return err
		}
		if _, err := c.scopes.DeclAnon(e.Branches[i].Loc); err != nil {
			return err
		}
	}

	c.asm.Emit(ir.OpSelect, n, 0, span)

	if err := c.scopes.UndeclAnon(n, span); err != nil {
		return err
	}

	end := c.asm.NewLabel("select_end")
	labels := make([]ir.Label, n)

	for i := range e.Branches {
		labels[i] = c.asm.NewLabel("select_branch")
		c.asm.JumpIfBranch(i, labels[i], span)
	}

	var defaultLabel ir.Label
	if e.Default != nil {
		defaultLabel = c.asm.NewLabel("select_default")
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpPop}, span, "branch index")
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpPop}, span, "value")
		c.asm.Jump(defaultLabel, span)
	} else {
		c.asm.PushWithComment(ir.Instruction{Op: ir.OpPop}, span, "branch index")
		c.popUnused(needs, span)
		c.asm.Jump(end, span)
	}

	for i, b := range e.Branches {
		if err := c.label(labels[i], b.Loc); err != nil {
			return err
		}

		scope, err := c.scopes.Child(b.Loc)
		if err != nil {
			return err
		}
		guard := c.scopes.Push(scope)

		switch p := b.Pat.(type) {
		case *ast.PatPath:
			name, ok := p.Path.AsIdent()
			if !ok {
				return errorf(KindUnsupportedSelectPattern, p.Span(), "select branches only bind plain names")
			}
			if _, err := c.scopes.DeclVar(name, p.Span()); err != nil {
				return err
			}
		case *ast.PatIgnore:
			c.asm.PushWithComment(ir.Instruction{Op: ir.OpPop}, p.Span(), "ignored")
		default:
			return errorf(KindUnsupportedSelectPattern, b.Pat.Span(), "select branches only bind plain names")
		}

		if err := c.compileExpr(b.Body, needs); err != nil {
			return err
		}
		if err := c.cleanLastScope(guard, b.Loc, needs); err != nil {
			return err
		}

		c.asm.Jump(end, b.Loc)
	}

	if e.Default != nil {
		if err := c.label(defaultLabel, e.Default.Loc); err != nil {
			return err
		}
		if err := c.compileExpr(e.Default.Body, needs); err != nil {
			return err
		}
	}

	return c.label(end, span)
}
