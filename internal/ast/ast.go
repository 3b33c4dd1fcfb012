package ast

import "github.com/therealbnut/rune/internal/token"

// Basic interfaces
//
// Each syntax category is a closed set: only the types in this file
// implement the marker methods, so a type switch over them is exhaustive.

type Node interface {
	Span() token.Span
}

// Item is a declaration that the indexer registers under a path.
type Item interface {
	Node
	itemNode()
}

type Expr interface {
	Node
	exprNode()
}

type Pat interface {
	Node
	patNode()
}

// ---------- File ----------

type File struct {
	Loc   token.Span
	Items []Item
}

func (f *File) Span() token.Span { return f.Loc }

// ---------- Paths ----------

// Path is a `::` separated name such as `std::io::print`.
type Path struct {
	Loc   token.Span
	Names []string
}

func (p *Path) Span() token.Span { return p.Loc }
func (*Path) exprNode()          {}

// AsIdent returns the single identifier of a one-segment path.
func (p *Path) AsIdent() (string, bool) {
	if len(p.Names) == 1 {
		return p.Names[0], true
	}
	return "", false
}

// ---------- Items ----------

type UseComponent struct {
	Loc      token.Span
	Name     string
	Wildcard bool
}

// UseDecl is `use a::b::c;` or `use a::b::*;`.
type UseDecl struct {
	Loc        token.Span
	Components []UseComponent
}

func (d *UseDecl) Span() token.Span { return d.Loc }
func (*UseDecl) itemNode()          {}

type ArgKind int

const (
	ArgIdent ArgKind = iota
	ArgSelf
	ArgIgnore
)

type FnArg struct {
	Loc  token.Span
	Kind ArgKind
	Name string // ArgIdent only
}

func (a *FnArg) Span() token.Span { return a.Loc }

type FnDecl struct {
	Loc     token.Span
	Name    string
	NameLoc token.Span
	Async   bool
	Args    []*FnArg
	Body    *Block
}

func (f *FnDecl) Span() token.Span { return f.Loc }
func (*FnDecl) itemNode()          {}

// IsInstance reports whether the first argument is `self`.
func (f *FnDecl) IsInstance() bool {
	return len(f.Args) > 0 && f.Args[0].Kind == ArgSelf
}

// StructKind is the body shape shared by structs and enum variants.
type StructKind int

const (
	StructEmpty StructKind = iota // struct Foo;
	StructTuple                   // struct Foo(a, b);
	StructNamed                   // struct Foo { a, b }
)

type StructBody struct {
	Kind   StructKind
	Fields []string
}

type StructDecl struct {
	Loc  token.Span
	Name string
	Body StructBody
}

func (s *StructDecl) Span() token.Span { return s.Loc }
func (*StructDecl) itemNode()          {}

type Variant struct {
	Loc  token.Span
	Name string
	Body StructBody
}

func (v *Variant) Span() token.Span { return v.Loc }

type EnumDecl struct {
	Loc      token.Span
	Name     string
	Variants []*Variant
}

func (e *EnumDecl) Span() token.Span { return e.Loc }
func (*EnumDecl) itemNode()          {}

// ImplDecl attaches instance functions to a type: `impl Foo { fn m(self) {} }`.
type ImplDecl struct {
	Loc  token.Span
	Path *Path
	Fns  []*FnDecl
}

func (d *ImplDecl) Span() token.Span { return d.Loc }
func (*ImplDecl) itemNode()          {}

// ---------- Blocks ----------

// Block is `{ exprs; trailing }`. Trailing is nil when the block ends in a
// terminated expression.
type Block struct {
	Loc      token.Span
	Exprs    []Expr
	Trailing Expr
}

func (b *Block) Span() token.Span { return b.Loc }
func (*Block) exprNode()          {}

// IsEmpty reports whether the block has no expressions at all.
func (b *Block) IsEmpty() bool {
	return len(b.Exprs) == 0 && b.Trailing == nil
}

// DeclExpr is an item declared inside a block.
type DeclExpr struct {
	Loc  token.Span
	Item Item
}

func (d *DeclExpr) Span() token.Span { return d.Loc }
func (*DeclExpr) exprNode()          {}

// ---------- Literals ----------

type LitUnit struct{ Loc token.Span }

func (l *LitUnit) Span() token.Span { return l.Loc }
func (*LitUnit) exprNode()          {}

type LitBool struct {
	Loc   token.Span
	Value bool
}

func (l *LitBool) Span() token.Span { return l.Loc }
func (*LitBool) exprNode()          {}

type LitNumber struct {
	Loc     token.Span
	IsFloat bool
	Int     int64
	Float   float64
}

func (l *LitNumber) Span() token.Span { return l.Loc }
func (*LitNumber) exprNode()          {}

type LitChar struct {
	Loc   token.Span
	Value rune
}

func (l *LitChar) Span() token.Span { return l.Loc }
func (*LitChar) exprNode()          {}

type LitByte struct {
	Loc   token.Span
	Value byte
}

func (l *LitByte) Span() token.Span { return l.Loc }
func (*LitByte) exprNode()          {}

type LitStr struct {
	Loc   token.Span
	Value string
}

func (l *LitStr) Span() token.Span { return l.Loc }
func (*LitStr) exprNode()          {}

type LitByteStr struct {
	Loc   token.Span
	Value []byte
}

func (l *LitByteStr) Span() token.Span { return l.Loc }
func (*LitByteStr) exprNode()          {}

// TemplateComponent is either a literal string (Expr == nil) or an expansion.
type TemplateComponent struct {
	String string
	Expr   Expr
}

type LitTemplate struct {
	Loc           token.Span
	Components    []TemplateComponent
	HasExpansions bool
	SizeHint      int
}

func (l *LitTemplate) Span() token.Span { return l.Loc }
func (*LitTemplate) exprNode()          {}

type LitTuple struct {
	Loc   token.Span
	Items []Expr
}

func (l *LitTuple) Span() token.Span { return l.Loc }
func (*LitTuple) exprNode()          {}

type LitVec struct {
	Loc   token.Span
	Items []Expr
}

func (l *LitVec) Span() token.Span { return l.Loc }
func (*LitVec) exprNode()          {}

// ObjectAssign is `key: value`, or the shorthand `key` when Value is nil.
type ObjectAssign struct {
	Loc      token.Span
	Key      string
	KeyLoc   token.Span
	KeyIdent bool
	Value    Expr
}

// LitObject is `#{a: 1}` when Ident is nil, or `Foo { a: 1 }`.
type LitObject struct {
	Loc         token.Span
	Ident       *Path
	Assignments []*ObjectAssign
}

func (l *LitObject) Span() token.Span { return l.Loc }
func (*LitObject) exprNode()          {}

// IsConst reports whether evaluating the expression can have no side
// effects, so that it may be dropped entirely when its value is unused.
func IsConst(e Expr) bool {
	switch e := e.(type) {
	case *LitUnit, *LitBool, *LitNumber, *LitChar, *LitByte, *LitStr, *LitByteStr:
		return true
	case *LitTuple:
		return allConst(e.Items)
	case *LitVec:
		return allConst(e.Items)
	case *LitObject:
		for _, a := range e.Assignments {
			if a.Value == nil || !IsConst(a.Value) {
				return false
			}
		}
		return true
	case *ExprGroup:
		return IsConst(e.Expr)
	default:
		return false
	}
}

func allConst(items []Expr) bool {
	for _, item := range items {
		if !IsConst(item) {
			return false
		}
	}
	return true
}

// ---------- Expressions ----------

type SelfExpr struct{ Loc token.Span }

func (s *SelfExpr) Span() token.Span { return s.Loc }
func (*SelfExpr) exprNode()          {}

type ExprGroup struct {
	Loc  token.Span
	Expr Expr
}

func (e *ExprGroup) Span() token.Span { return e.Loc }
func (*ExprGroup) exprNode()          {}

type UnaryOp int

const (
	UnaryNot UnaryOp = iota
	UnaryNeg
	UnaryBorrowRef
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryNot:
		return "!"
	case UnaryNeg:
		return "-"
	default:
		return "&"
	}
}

type ExprUnary struct {
	Loc  token.Span
	Op   UnaryOp
	Expr Expr
}

func (e *ExprUnary) Span() token.Span { return e.Loc }
func (*ExprUnary) exprNode()          {}

type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinRem
	BinEq
	BinNeq
	BinLt
	BinGt
	BinLte
	BinGte
	BinIs
	BinIsNot
	BinAnd
	BinOr
	BinAssign
	BinAddAssign
	BinSubAssign
	BinMulAssign
	BinDivAssign
)

var binOpNames = [...]string{
	BinAdd:       "+",
	BinSub:       "-",
	BinMul:       "*",
	BinDiv:       "/",
	BinRem:       "%",
	BinEq:        "==",
	BinNeq:       "!=",
	BinLt:        "<",
	BinGt:        ">",
	BinLte:       "<=",
	BinGte:       ">=",
	BinIs:        "is",
	BinIsNot:     "is not",
	BinAnd:       "&&",
	BinOr:        "||",
	BinAssign:    "=",
	BinAddAssign: "+=",
	BinSubAssign: "-=",
	BinMulAssign: "*=",
	BinDivAssign: "/=",
}

func (op BinOp) String() string { return binOpNames[op] }

// IsAssign reports whether the operator stores into its left-hand side.
func (op BinOp) IsAssign() bool {
	return op >= BinAssign
}

type ExprBinary struct {
	Loc token.Span
	Op  BinOp
	Lhs Expr
	Rhs Expr
}

func (e *ExprBinary) Span() token.Span { return e.Loc }
func (*ExprBinary) exprNode()          {}

// ExprLet is `let pat = expr`. It also serves as the condition of
// `if let` and `while let`.
type ExprLet struct {
	Loc  token.Span
	Pat  Pat
	Expr Expr
}

func (e *ExprLet) Span() token.Span { return e.Loc }
func (*ExprLet) exprNode()          {}

type ElseIf struct {
	Loc       token.Span
	Condition Expr // *ExprLet for `else if let`
	Block     *Block
}

type ExprIf struct {
	Loc       token.Span
	Condition Expr // *ExprLet for `if let`
	Block     *Block
	ElseIfs   []*ElseIf
	Else      *Block
}

func (e *ExprIf) Span() token.Span { return e.Loc }
func (*ExprIf) exprNode()          {}

type ExprWhile struct {
	Loc       token.Span
	Label     string
	Condition Expr // *ExprLet for `while let`
	Body      *Block
}

func (e *ExprWhile) Span() token.Span { return e.Loc }
func (*ExprWhile) exprNode()          {}

type ExprLoop struct {
	Loc   token.Span
	Label string
	Body  *Block
}

func (e *ExprLoop) Span() token.Span { return e.Loc }
func (*ExprLoop) exprNode()          {}

type ExprFor struct {
	Loc    token.Span
	Label  string
	Var    string
	VarLoc token.Span
	Iter   Expr
	Body   *Block
}

func (e *ExprFor) Span() token.Span { return e.Loc }
func (*ExprFor) exprNode()          {}

// ExprBreak is `break`, `break 'label` or `break value`.
type ExprBreak struct {
	Loc   token.Span
	Label string
	Value Expr
}

func (e *ExprBreak) Span() token.Span { return e.Loc }
func (*ExprBreak) exprNode()          {}

type ExprReturn struct {
	Loc   token.Span
	Value Expr
}

func (e *ExprReturn) Span() token.Span { return e.Loc }
func (*ExprReturn) exprNode()          {}

type ExprYield struct {
	Loc   token.Span
	Value Expr
}

func (e *ExprYield) Span() token.Span { return e.Loc }
func (*ExprYield) exprNode()          {}

type MatchBranch struct {
	Loc   token.Span
	Pat   Pat
	Guard Expr
	Body  Expr
}

type ExprMatch struct {
	Loc      token.Span
	Expr     Expr
	Branches []*MatchBranch
}

func (e *ExprMatch) Span() token.Span { return e.Loc }
func (*ExprMatch) exprNode()          {}

type SelectBranch struct {
	Loc  token.Span
	Pat  Pat
	Expr Expr
	Body Expr
}

type SelectDefault struct {
	Loc  token.Span
	Body Expr
}

type ExprSelect struct {
	Loc      token.Span
	Branches []*SelectBranch
	Default  *SelectDefault
}

func (e *ExprSelect) Span() token.Span { return e.Loc }
func (*ExprSelect) exprNode()          {}

type ExprCall struct {
	Loc  token.Span
	Expr Expr
	Args []Expr
}

func (e *ExprCall) Span() token.Span { return e.Loc }
func (*ExprCall) exprNode()          {}

// ExprFieldAccess is `expr.name` or `expr.0`.
type ExprFieldAccess struct {
	Loc      token.Span
	Expr     Expr
	FieldLoc token.Span
	Field    string // named field, empty for tuple indices
	Index    int
	IsIndex  bool
}

func (e *ExprFieldAccess) Span() token.Span { return e.Loc }
func (*ExprFieldAccess) exprNode()          {}

type ExprIndexGet struct {
	Loc    token.Span
	Target Expr
	Index  Expr
}

func (e *ExprIndexGet) Span() token.Span { return e.Loc }
func (*ExprIndexGet) exprNode()          {}

type ExprIndexSet struct {
	Loc    token.Span
	Target Expr
	Index  Expr
	Value  Expr
}

func (e *ExprIndexSet) Span() token.Span { return e.Loc }
func (*ExprIndexSet) exprNode()          {}

type ExprClosure struct {
	Loc   token.Span
	Async bool
	Args  []*FnArg
	Body  Expr
}

func (e *ExprClosure) Span() token.Span { return e.Loc }
func (*ExprClosure) exprNode()          {}

type ExprAwait struct {
	Loc  token.Span
	Expr Expr
}

func (e *ExprAwait) Span() token.Span { return e.Loc }
func (*ExprAwait) exprNode()          {}

type ExprTry struct {
	Loc  token.Span
	Expr Expr
}

func (e *ExprTry) Span() token.Span { return e.Loc }
func (*ExprTry) exprNode()          {}

// ExprMacroCall is `path!(input)`. Input is the raw source between the
// parentheses. Expanded is filled in by the compiler with the parsed
// expansion.
type ExprMacroCall struct {
	Loc      token.Span
	Path     *Path
	Input    string
	InputLoc token.Span
	Expanded Expr
}

func (e *ExprMacroCall) Span() token.Span { return e.Loc }
func (*ExprMacroCall) exprNode()          {}

// ---------- Patterns ----------

type PatPath struct {
	Loc  token.Span
	Path *Path
}

func (p *PatPath) Span() token.Span { return p.Loc }
func (*PatPath) patNode()           {}

type PatIgnore struct{ Loc token.Span }

func (p *PatIgnore) Span() token.Span { return p.Loc }
func (*PatIgnore) patNode()           {}

type PatUnit struct{ Loc token.Span }

func (p *PatUnit) Span() token.Span { return p.Loc }
func (*PatUnit) patNode()           {}

type PatByte struct {
	Loc   token.Span
	Value byte
}

func (p *PatByte) Span() token.Span { return p.Loc }
func (*PatByte) patNode()           {}

type PatChar struct {
	Loc   token.Span
	Value rune
}

func (p *PatChar) Span() token.Span { return p.Loc }
func (*PatChar) patNode()           {}

type PatNumber struct {
	Loc    token.Span
	Number *LitNumber
}

func (p *PatNumber) Span() token.Span { return p.Loc }
func (*PatNumber) patNode()           {}

type PatString struct {
	Loc   token.Span
	Value string
}

func (p *PatString) Span() token.Span { return p.Loc }
func (*PatString) patNode()           {}

// PatVec is `[a, b, ..]`.
type PatVec struct {
	Loc   token.Span
	Items []Pat
	Open  bool
}

func (p *PatVec) Span() token.Span { return p.Loc }
func (*PatVec) patNode()           {}

// PatTuple is `(a, b, ..)`, or `Foo(a, b)` when Path is set.
type PatTuple struct {
	Loc   token.Span
	Path  *Path
	Items []Pat
	Open  bool
}

func (p *PatTuple) Span() token.Span { return p.Loc }
func (*PatTuple) patNode()           {}

// PatObjectField is `key` (binds a local of the same name) or `key: pat`.
type PatObjectField struct {
	Loc      token.Span
	Key      string
	KeyLoc   token.Span
	KeyIdent bool
	Binding  Pat
}

// PatObject is `#{a, b: pat, ..}`, or `Foo { a, .. }` when Ident is set.
type PatObject struct {
	Loc    token.Span
	Ident  *Path
	Fields []*PatObjectField
	Open   bool
}

func (p *PatObject) Span() token.Span { return p.Loc }
func (*PatObject) patNode()           {}
