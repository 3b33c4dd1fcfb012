package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/therealbnut/rune/internal/ast"
	"github.com/therealbnut/rune/internal/lexer"
	"github.com/therealbnut/rune/internal/token"
)

type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	prev token.Token
	peek token.Token

	// noStruct disables `Path { .. }` object literals, which would otherwise
	// swallow the body of `if`, `while`, `for` and `match`.
	noStruct bool

	// trailingComma records whether the last pattern list ended in `,`.
	trailingComma bool

	errors []string
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// init cur/peek
	p.nextToken()
	p.nextToken()
	return p
}

// ParseFile lexes and parses a whole source file, returning every lexer and
// parser error.
func ParseFile(src string) (*ast.File, []string) {
	l := lexer.New(src)
	p := New(l)
	file := p.ParseFile()
	errs := append([]string{}, l.Errors()...)
	return file, append(errs, p.Errors()...)
}

// ParseExpr parses src as a single expression. Spans are offset by base,
// the position in the enclosing source that src stands in for.
func ParseExpr(src string, base int) (ast.Expr, []string) {
	l := lexer.NewAt(src, base)
	p := New(l)

	expr := p.parseExpr()
	if expr != nil && p.cur.Kind != token.EOF {
		p.errorf(p.cur.Pos, "unexpected %s after expression", p.cur.Kind)
	}

	errs := append([]string{}, l.Errors()...)
	return expr, append(errs, p.Errors()...)
}

func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) nextToken() {
	p.prev = p.cur
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) errorf(pos token.Position, format string, args ...interface{}) {
	msg := fmt.Sprintf("%d:%d: ", pos.Line, pos.Column) + fmt.Sprintf(format, args...)
	p.errors = append(p.errors, msg)
}

func (p *Parser) expect(kind token.Kind) token.Token {
	if p.cur.Kind != kind {
		p.errorf(p.cur.Pos, "expected %s, got %s (%q)", kind, p.cur.Kind, p.cur.Lexeme)
	}
	tok := p.cur
	p.nextToken()
	return tok
}

func (p *Parser) accept(kind token.Kind) bool {
	if p.cur.Kind == kind {
		p.nextToken()
		return true
	}
	return false
}

// spanFrom covers everything from start up to the last consumed token.
func (p *Parser) spanFrom(start token.Span) token.Span {
	return token.Span{Start: start.Start, End: p.prev.Span.End}
}

// ---------- Top-level ----------

func (p *Parser) ParseFile() *ast.File {
	file := &ast.File{Loc: p.cur.Span}

	for p.cur.Kind != token.EOF {
		before := p.cur
		if item := p.parseItem(); item != nil {
			file.Items = append(file.Items, item)
		} else {
			p.errorf(p.cur.Pos, "unexpected token at top level: %s", p.cur.Kind)
		}
		if p.cur == before {
			p.nextToken()
		}
	}

	file.Loc = p.spanFrom(file.Loc)
	return file
}

func (p *Parser) atItem() bool {
	switch p.cur.Kind {
	case token.Fn, token.Struct, token.Enum, token.Impl, token.Use:
		return true
	case token.Async:
		return p.peek.Kind == token.Fn
	}
	return false
}

// parseItem returns nil if the current token does not start an item.
func (p *Parser) parseItem() ast.Item {
	switch p.cur.Kind {
	case token.Fn, token.Async:
		if p.cur.Kind == token.Async && p.peek.Kind != token.Fn {
			return nil
		}
		return p.parseFnDecl()
	case token.Struct:
		return p.parseStructDecl()
	case token.Enum:
		return p.parseEnumDecl()
	case token.Impl:
		return p.parseImplDecl()
	case token.Use:
		return p.parseUseDecl()
	}
	return nil
}

func (p *Parser) parseUseDecl() *ast.UseDecl {
	start := p.expect(token.Use).Span
	decl := &ast.UseDecl{}

	for {
		switch p.cur.Kind {
		case token.Ident:
			decl.Components = append(decl.Components, ast.UseComponent{Loc: p.cur.Span, Name: p.cur.Lexeme})
		case token.Star:
			decl.Components = append(decl.Components, ast.UseComponent{Loc: p.cur.Span, Wildcard: true})
		default:
			p.errorf(p.cur.Pos, "expected identifier or `*` in use path, got %s", p.cur.Kind)
		}
		p.nextToken()
		if !p.accept(token.ColonColon) {
			break
		}
	}

	p.expect(token.Semicolon)
	decl.Loc = p.spanFrom(start)
	return decl
}

func (p *Parser) parseFnDecl() *ast.FnDecl {
	start := p.cur.Span
	fn := &ast.FnDecl{}
	if p.accept(token.Async) {
		fn.Async = true
	}
	p.expect(token.Fn)

	name := p.expect(token.Ident)
	fn.Name = name.Lexeme
	fn.NameLoc = name.Span

	p.expect(token.LParen)
	fn.Args = p.parseFnArgs(token.RParen)
	p.expect(token.RParen)

	fn.Body = p.parseBlock()
	fn.Loc = p.spanFrom(start)
	return fn
}

func (p *Parser) parseFnArgs(end token.Kind) []*ast.FnArg {
	var args []*ast.FnArg
	for p.cur.Kind != end && p.cur.Kind != token.EOF {
		arg := &ast.FnArg{Loc: p.cur.Span}
		switch {
		case p.cur.Kind == token.Self:
			arg.Kind = ast.ArgSelf
		case p.cur.Kind == token.Ident && p.cur.Lexeme == "_":
			arg.Kind = ast.ArgIgnore
		case p.cur.Kind == token.Ident:
			arg.Kind = ast.ArgIdent
			arg.Name = p.cur.Lexeme
		default:
			p.errorf(p.cur.Pos, "expected argument name, got %s", p.cur.Kind)
		}
		p.nextToken()
		args = append(args, arg)
		if !p.accept(token.Comma) {
			break
		}
	}
	return args
}

func (p *Parser) parseStructBody() ast.StructBody {
	var body ast.StructBody
	switch p.cur.Kind {
	case token.LParen:
		body.Kind = ast.StructTuple
		p.nextToken()
		body.Fields = p.parseIdentList(token.RParen)
		p.expect(token.RParen)
	case token.LBrace:
		body.Kind = ast.StructNamed
		p.nextToken()
		body.Fields = p.parseIdentList(token.RBrace)
		p.expect(token.RBrace)
	default:
		body.Kind = ast.StructEmpty
	}
	return body
}

func (p *Parser) parseIdentList(end token.Kind) []string {
	var names []string
	for p.cur.Kind != end && p.cur.Kind != token.EOF {
		names = append(names, p.expect(token.Ident).Lexeme)
		if !p.accept(token.Comma) {
			break
		}
	}
	return names
}

func (p *Parser) parseStructDecl() *ast.StructDecl {
	start := p.expect(token.Struct).Span
	decl := &ast.StructDecl{Name: p.expect(token.Ident).Lexeme}
	decl.Body = p.parseStructBody()
	if decl.Body.Kind != ast.StructNamed {
		p.expect(token.Semicolon)
	} else {
		p.accept(token.Semicolon)
	}
	decl.Loc = p.spanFrom(start)
	return decl
}

func (p *Parser) parseEnumDecl() *ast.EnumDecl {
	start := p.expect(token.Enum).Span
	decl := &ast.EnumDecl{Name: p.expect(token.Ident).Lexeme}
	p.expect(token.LBrace)
	for p.cur.Kind != token.RBrace && p.cur.Kind != token.EOF {
		vstart := p.cur.Span
		v := &ast.Variant{Name: p.expect(token.Ident).Lexeme}
		v.Body = p.parseStructBody()
		v.Loc = p.spanFrom(vstart)
		decl.Variants = append(decl.Variants, v)
		if !p.accept(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace)
	decl.Loc = p.spanFrom(start)
	return decl
}

func (p *Parser) parseImplDecl() *ast.ImplDecl {
	start := p.expect(token.Impl).Span
	decl := &ast.ImplDecl{Path: p.parsePath()}
	p.expect(token.LBrace)
	for p.cur.Kind == token.Fn || p.cur.Kind == token.Async {
		decl.Fns = append(decl.Fns, p.parseFnDecl())
	}
	p.expect(token.RBrace)
	decl.Loc = p.spanFrom(start)
	return decl
}

func (p *Parser) parsePath() *ast.Path {
	start := p.cur.Span
	path := &ast.Path{}
	for {
		path.Names = append(path.Names, p.expect(token.Ident).Lexeme)
		if p.cur.Kind != token.ColonColon || p.peek.Kind != token.Ident {
			break
		}
		p.nextToken()
	}
	path.Loc = p.spanFrom(start)
	return path
}

// ---------- Blocks ----------

func (p *Parser) parseBlock() *ast.Block {
	start := p.expect(token.LBrace).Span
	block := &ast.Block{}

	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()

	for p.cur.Kind != token.RBrace && p.cur.Kind != token.EOF {
		before := p.cur

		if p.atItem() {
			istart := p.cur.Span
			item := p.parseItem()
			block.Exprs = append(block.Exprs, &ast.DeclExpr{Loc: p.spanFrom(istart), Item: item})
			continue
		}

		if p.accept(token.Semicolon) {
			continue
		}

		expr := p.parseExpr()
		if expr == nil {
			if p.cur == before {
				p.nextToken()
			}
			continue
		}

		switch {
		case p.accept(token.Semicolon):
			block.Exprs = append(block.Exprs, expr)
		case p.cur.Kind == token.RBrace:
			block.Trailing = expr
		case isBlockLike(expr):
			block.Exprs = append(block.Exprs, expr)
		default:
			p.errorf(p.cur.Pos, "expected `;` or `}`, got %s", p.cur.Kind)
			if p.cur == before {
				p.nextToken()
			}
		}
	}

	p.expect(token.RBrace)
	block.Loc = p.spanFrom(start)
	return block
}

// isBlockLike reports whether an expression statement may omit its `;`.
func isBlockLike(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Block, *ast.ExprIf, *ast.ExprWhile, *ast.ExprLoop, *ast.ExprFor, *ast.ExprMatch, *ast.ExprSelect:
		return true
	}
	return false
}

// ---------- Expressions ----------

func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssign()
}

// parseExprNoStruct parses an expression in a position followed by a block.
func (p *Parser) parseExprNoStruct() ast.Expr {
	saved := p.noStruct
	p.noStruct = true
	defer func() { p.noStruct = saved }()
	return p.parseExpr()
}

var assignOps = map[token.Kind]ast.BinOp{
	token.Assign:      ast.BinAssign,
	token.PlusAssign:  ast.BinAddAssign,
	token.MinusAssign: ast.BinSubAssign,
	token.StarAssign:  ast.BinMulAssign,
	token.SlashAssign: ast.BinDivAssign,
}

func (p *Parser) parseAssign() ast.Expr {
	lhs := p.parseOr()
	if lhs == nil {
		return nil
	}

	op, ok := assignOps[p.cur.Kind]
	if !ok {
		return lhs
	}
	p.nextToken()

	rhs := p.parseAssign()
	if rhs == nil {
		return lhs
	}
	span := lhs.Span().Join(rhs.Span())

	if get, ok := lhs.(*ast.ExprIndexGet); ok && op == ast.BinAssign {
		return &ast.ExprIndexSet{Loc: span, Target: get.Target, Index: get.Index, Value: rhs}
	}

	return &ast.ExprBinary{Loc: span, Op: op, Lhs: lhs, Rhs: rhs}
}

func (p *Parser) binary(next func() ast.Expr, ops map[token.Kind]ast.BinOp) ast.Expr {
	lhs := next()
	for lhs != nil {
		op, ok := ops[p.cur.Kind]
		if !ok {
			return lhs
		}
		p.nextToken()
		rhs := next()
		if rhs == nil {
			return lhs
		}
		lhs = &ast.ExprBinary{Loc: lhs.Span().Join(rhs.Span()), Op: op, Lhs: lhs, Rhs: rhs}
	}
	return lhs
}

func (p *Parser) parseOr() ast.Expr {
	return p.binary(p.parseAnd, map[token.Kind]ast.BinOp{token.OrOr: ast.BinOr})
}

func (p *Parser) parseAnd() ast.Expr {
	return p.binary(p.parseComparison, map[token.Kind]ast.BinOp{token.AndAnd: ast.BinAnd})
}

var comparisonOps = map[token.Kind]ast.BinOp{
	token.Eq:    ast.BinEq,
	token.NotEq: ast.BinNeq,
	token.Lt:    ast.BinLt,
	token.LtEq:  ast.BinLte,
	token.Gt:    ast.BinGt,
	token.GtEq:  ast.BinGte,
}

func (p *Parser) parseComparison() ast.Expr {
	lhs := p.parseAdditive()
	for lhs != nil {
		var op ast.BinOp
		switch {
		case p.cur.Kind == token.Is && p.peek.Kind == token.Not:
			p.nextToken()
			op = ast.BinIsNot
		case p.cur.Kind == token.Is:
			op = ast.BinIs
		default:
			found, ok := comparisonOps[p.cur.Kind]
			if !ok {
				return lhs
			}
			op = found
		}
		p.nextToken()
		rhs := p.parseAdditive()
		if rhs == nil {
			return lhs
		}
		lhs = &ast.ExprBinary{Loc: lhs.Span().Join(rhs.Span()), Op: op, Lhs: lhs, Rhs: rhs}
	}
	return lhs
}

func (p *Parser) parseAdditive() ast.Expr {
	return p.binary(p.parseMultiplicative, map[token.Kind]ast.BinOp{
		token.Plus:  ast.BinAdd,
		token.Minus: ast.BinSub,
	})
}

func (p *Parser) parseMultiplicative() ast.Expr {
	return p.binary(p.parseUnary, map[token.Kind]ast.BinOp{
		token.Star:    ast.BinMul,
		token.Slash:   ast.BinDiv,
		token.Percent: ast.BinRem,
	})
}

func (p *Parser) parseUnary() ast.Expr {
	start := p.cur.Span

	var op ast.UnaryOp
	switch p.cur.Kind {
	case token.Bang:
		op = ast.UnaryNot
	case token.Amp:
		op = ast.UnaryBorrowRef
	case token.Minus:
		// Negative literals are folded here rather than lowered as negation.
		if p.peek.Kind == token.Int || p.peek.Kind == token.Float {
			p.nextToken()
			lit := p.parseNumber(true)
			lit.Loc = p.spanFrom(start)
			return p.parsePostfix(lit)
		}
		op = ast.UnaryNeg
	default:
		return p.parsePostfix(p.parsePrimary())
	}

	p.nextToken()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &ast.ExprUnary{Loc: p.spanFrom(start), Op: op, Expr: operand}
}

func (p *Parser) parsePostfix(expr ast.Expr) ast.Expr {
	for expr != nil {
		start := expr.Span()

		switch p.cur.Kind {
		case token.LParen:
			p.nextToken()
			args := p.parseExprList(token.RParen)
			p.expect(token.RParen)
			expr = &ast.ExprCall{Loc: p.spanFrom(start), Expr: expr, Args: args}
		case token.LBracket:
			p.nextToken()
			index := p.parseExpr()
			p.expect(token.RBracket)
			expr = &ast.ExprIndexGet{Loc: p.spanFrom(start), Target: expr, Index: index}
		case token.Question:
			p.nextToken()
			expr = &ast.ExprTry{Loc: p.spanFrom(start), Expr: expr}
		case token.Dot:
			p.nextToken()
			switch p.cur.Kind {
			case token.Await:
				p.nextToken()
				expr = &ast.ExprAwait{Loc: p.spanFrom(start), Expr: expr}
			case token.Ident:
				field := p.cur
				p.nextToken()
				expr = &ast.ExprFieldAccess{Loc: p.spanFrom(start), Expr: expr, FieldLoc: field.Span, Field: field.Lexeme}
			case token.Int:
				field := p.cur
				p.nextToken()
				expr = &ast.ExprFieldAccess{Loc: p.spanFrom(start), Expr: expr, FieldLoc: field.Span, Index: p.tupleIndex(field, field.Lexeme), IsIndex: true}
			case token.Float:
				// `t.0.1` lexes its tail as the float `0.1`.
				field := p.cur
				p.nextToken()
				first, second, _ := strings.Cut(field.Lexeme, ".")
				expr = &ast.ExprFieldAccess{Loc: p.spanFrom(start), Expr: expr, FieldLoc: field.Span, Index: p.tupleIndex(field, first), IsIndex: true}
				expr = &ast.ExprFieldAccess{Loc: p.spanFrom(start), Expr: expr, FieldLoc: field.Span, Index: p.tupleIndex(field, second), IsIndex: true}
			default:
				p.errorf(p.cur.Pos, "expected field name after `.`, got %s", p.cur.Kind)
				return expr
			}
		default:
			return expr
		}
	}
	return expr
}

func (p *Parser) tupleIndex(tok token.Token, lit string) int {
	n, err := strconv.Atoi(lit)
	if err != nil || n < 0 {
		p.errorf(tok.Pos, "invalid tuple index %q", lit)
		return 0
	}
	return n
}

func (p *Parser) parseExprList(end token.Kind) []ast.Expr {
	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()

	var exprs []ast.Expr
	for p.cur.Kind != end && p.cur.Kind != token.EOF {
		expr := p.parseExpr()
		if expr == nil {
			break
		}
		exprs = append(exprs, expr)
		if !p.accept(token.Comma) {
			break
		}
	}
	return exprs
}

func (p *Parser) parsePrimary() ast.Expr {
	start := p.cur.Span

	switch p.cur.Kind {
	case token.Int, token.Float:
		return p.parseNumber(false)
	case token.True, token.False:
		v := p.cur.Kind == token.True
		p.nextToken()
		return &ast.LitBool{Loc: start, Value: v}
	case token.Char:
		r, _ := utf8.DecodeRuneInString(p.cur.Lexeme)
		p.nextToken()
		return &ast.LitChar{Loc: start, Value: r}
	case token.Byte:
		r, _ := utf8.DecodeRuneInString(p.cur.Lexeme)
		p.nextToken()
		return &ast.LitByte{Loc: start, Value: byte(r)}
	case token.String:
		s := p.cur.Lexeme
		p.nextToken()
		return &ast.LitStr{Loc: start, Value: s}
	case token.ByteStr:
		p.nextToken()
		return &ast.LitByteStr{Loc: start, Value: latin1(p.prev.Lexeme)}
	case token.Template:
		tok := p.cur
		p.nextToken()
		return p.parseTemplate(tok)
	case token.LParen:
		return p.parseParen()
	case token.LBracket:
		p.nextToken()
		items := p.parseExprList(token.RBracket)
		p.expect(token.RBracket)
		return &ast.LitVec{Loc: p.spanFrom(start), Items: items}
	case token.Hash:
		p.nextToken()
		return p.parseObjectLiteral(start, nil)
	case token.LBrace:
		return p.parseBlock()
	case token.Self:
		p.nextToken()
		return &ast.SelfExpr{Loc: start}
	case token.Ident:
		path := p.parsePath()
		if p.cur.Kind == token.Bang && p.peek.Kind == token.LParen {
			return p.parseMacroCall(start, path)
		}
		if p.cur.Kind == token.LBrace && !p.noStruct && isTypeName(path) {
			return p.parseObjectLiteral(start, path)
		}
		return path
	case token.Pipe, token.OrOr:
		return p.parseClosure(false)
	case token.Async:
		p.nextToken()
		return p.parseClosure(true)
	case token.Let:
		return p.parseLet()
	case token.If:
		return p.parseIf()
	case token.Label:
		label := p.cur.Lexeme
		p.nextToken()
		p.expect(token.Colon)
		switch p.cur.Kind {
		case token.While:
			return p.parseWhile(start, label)
		case token.Loop:
			return p.parseLoop(start, label)
		case token.For:
			return p.parseFor(start, label)
		}
		p.errorf(p.cur.Pos, "expected loop after label '%s, got %s", label, p.cur.Kind)
		return nil
	case token.While:
		return p.parseWhile(start, "")
	case token.Loop:
		return p.parseLoop(start, "")
	case token.For:
		return p.parseFor(start, "")
	case token.Match:
		return p.parseMatch()
	case token.Select:
		return p.parseSelect()
	case token.Break:
		p.nextToken()
		brk := &ast.ExprBreak{}
		if p.cur.Kind == token.Label {
			brk.Label = p.cur.Lexeme
			p.nextToken()
		} else if p.startsValue() {
			brk.Value = p.parseExpr()
		}
		brk.Loc = p.spanFrom(start)
		return brk
	case token.Return:
		p.nextToken()
		ret := &ast.ExprReturn{}
		if p.startsValue() {
			ret.Value = p.parseExpr()
		}
		ret.Loc = p.spanFrom(start)
		return ret
	case token.Yield:
		p.nextToken()
		y := &ast.ExprYield{}
		if p.startsValue() {
			y.Value = p.parseExpr()
		}
		y.Loc = p.spanFrom(start)
		return y
	}

	p.errorf(p.cur.Pos, "unexpected token in expression: %s (%q)", p.cur.Kind, p.cur.Lexeme)
	return nil
}

// parseMacroCall reads `!(..)` after the path of a macro. The input is
// kept as source text and only has to balance its delimiters.
func (p *Parser) parseMacroCall(start token.Span, path *ast.Path) ast.Expr {
	p.nextToken() // !
	open := p.expect(token.LParen)

	for depth := 1; ; p.nextToken() {
		switch p.cur.Kind {
		case token.EOF:
			p.errorf(open.Pos, "unterminated macro call")
			return nil
		case token.LParen, token.LBrace, token.LBracket:
			depth++
		case token.RParen, token.RBrace, token.RBracket:
			depth--
		}
		if depth == 0 {
			break
		}
	}

	input := token.Span{Start: open.Span.End, End: p.cur.Span.Start}
	p.nextToken() // )

	return &ast.ExprMacroCall{
		Loc:      p.spanFrom(start),
		Path:     path,
		Input:    p.l.Slice(input.Start, input.End),
		InputLoc: input,
	}
}

// startsValue reports whether an optional operand follows, as in `return x`.
func (p *Parser) startsValue() bool {
	switch p.cur.Kind {
	case token.Semicolon, token.RBrace, token.RParen, token.RBracket, token.Comma, token.FatArrow, token.EOF:
		return false
	}
	return true
}

func isTypeName(path *ast.Path) bool {
	last := path.Names[len(path.Names)-1]
	r, _ := utf8.DecodeRuneInString(last)
	return unicode.IsUpper(r)
}

func latin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out
}

func (p *Parser) parseNumber(negative bool) *ast.LitNumber {
	tok := p.cur
	p.nextToken()

	lit := &ast.LitNumber{Loc: tok.Span}
	text := tok.Lexeme
	if negative {
		text = "-" + text
	}

	if tok.Kind == token.Float {
		f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
		if err != nil {
			p.errorf(tok.Pos, "invalid float literal %q", tok.Lexeme)
		}
		lit.IsFloat = true
		lit.Float = f
		return lit
	}

	n, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		p.errorf(tok.Pos, "invalid integer literal %q", tok.Lexeme)
	}
	lit.Int = n
	return lit
}

// parseParen handles `()`, `(expr)` and tuples `(a,)`, `(a, b)`.
func (p *Parser) parseParen() ast.Expr {
	start := p.expect(token.LParen).Span

	if p.accept(token.RParen) {
		return &ast.LitUnit{Loc: p.spanFrom(start)}
	}

	saved := p.noStruct
	p.noStruct = false
	first := p.parseExpr()
	p.noStruct = saved

	if p.accept(token.RParen) {
		return &ast.ExprGroup{Loc: p.spanFrom(start), Expr: first}
	}

	p.expect(token.Comma)
	items := append([]ast.Expr{first}, p.parseExprList(token.RParen)...)
	p.expect(token.RParen)
	return &ast.LitTuple{Loc: p.spanFrom(start), Items: items}
}

// parseObjectLiteral parses the braces of `#{..}` or `Path {..}`.
func (p *Parser) parseObjectLiteral(start token.Span, ident *ast.Path) ast.Expr {
	p.expect(token.LBrace)

	saved := p.noStruct
	p.noStruct = false
	defer func() { p.noStruct = saved }()

	obj := &ast.LitObject{Ident: ident}
	for p.cur.Kind != token.RBrace && p.cur.Kind != token.EOF {
		assign := &ast.ObjectAssign{Loc: p.cur.Span, KeyLoc: p.cur.Span}
		switch p.cur.Kind {
		case token.Ident:
			assign.Key = p.cur.Lexeme
			assign.KeyIdent = true
		case token.String:
			assign.Key = p.cur.Lexeme
		default:
			p.errorf(p.cur.Pos, "expected object key, got %s", p.cur.Kind)
		}
		p.nextToken()

		if p.accept(token.Colon) {
			assign.Value = p.parseExpr()
		} else if !assign.KeyIdent {
			p.errorf(p.cur.Pos, "string keys require a value")
		}

		assign.Loc = p.spanFrom(assign.Loc)
		obj.Assignments = append(obj.Assignments, assign)
		if !p.accept(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace)

	obj.Loc = p.spanFrom(start)
	return obj
}

func (p *Parser) parseClosure(async bool) ast.Expr {
	start := p.cur.Span
	if async {
		start = p.prev.Span
	}
	closure := &ast.ExprClosure{Async: async}

	if !p.accept(token.OrOr) {
		p.expect(token.Pipe)
		closure.Args = p.parseFnArgs(token.Pipe)
		p.expect(token.Pipe)
	}

	closure.Body = p.parseExpr()
	closure.Loc = p.spanFrom(start)
	return closure
}

func (p *Parser) parseLet() *ast.ExprLet {
	start := p.expect(token.Let).Span
	let := &ast.ExprLet{Pat: p.parsePat()}
	p.expect(token.Assign)
	let.Expr = p.parseExpr()
	let.Loc = p.spanFrom(start)
	return let
}

// parseCondition parses the condition of `if` and `while`, which is either
// an expression or a `let` binding.
func (p *Parser) parseCondition() ast.Expr {
	saved := p.noStruct
	p.noStruct = true
	defer func() { p.noStruct = saved }()

	if p.cur.Kind == token.Let {
		return p.parseLet()
	}
	return p.parseExpr()
}

func (p *Parser) parseIf() ast.Expr {
	start := p.expect(token.If).Span
	expr := &ast.ExprIf{Condition: p.parseCondition()}
	expr.Block = p.parseBlock()

	for p.cur.Kind == token.Else {
		elseStart := p.cur.Span
		p.nextToken()
		if p.accept(token.If) {
			branch := &ast.ElseIf{Condition: p.parseCondition()}
			branch.Block = p.parseBlock()
			branch.Loc = p.spanFrom(elseStart)
			expr.ElseIfs = append(expr.ElseIfs, branch)
			continue
		}
		expr.Else = p.parseBlock()
		break
	}

	expr.Loc = p.spanFrom(start)
	return expr
}

func (p *Parser) parseWhile(start token.Span, label string) ast.Expr {
	p.expect(token.While)
	expr := &ast.ExprWhile{Label: label, Condition: p.parseCondition()}
	expr.Body = p.parseBlock()
	expr.Loc = p.spanFrom(start)
	return expr
}

func (p *Parser) parseLoop(start token.Span, label string) ast.Expr {
	p.expect(token.Loop)
	expr := &ast.ExprLoop{Label: label, Body: p.parseBlock()}
	expr.Loc = p.spanFrom(start)
	return expr
}

func (p *Parser) parseFor(start token.Span, label string) ast.Expr {
	p.expect(token.For)
	v := p.expect(token.Ident)
	p.expect(token.In)
	expr := &ast.ExprFor{Label: label, Var: v.Lexeme, VarLoc: v.Span, Iter: p.parseExprNoStruct()}
	expr.Body = p.parseBlock()
	expr.Loc = p.spanFrom(start)
	return expr
}

func (p *Parser) parseMatch() ast.Expr {
	start := p.expect(token.Match).Span
	expr := &ast.ExprMatch{Expr: p.parseExprNoStruct()}
	p.expect(token.LBrace)

	for p.cur.Kind != token.RBrace && p.cur.Kind != token.EOF {
		bstart := p.cur.Span
		branch := &ast.MatchBranch{Pat: p.parsePat()}
		if p.accept(token.If) {
			branch.Guard = p.parseExpr()
		}
		p.expect(token.FatArrow)
		branch.Body = p.parseExpr()
		branch.Loc = p.spanFrom(bstart)
		expr.Branches = append(expr.Branches, branch)

		if !p.accept(token.Comma) && !isBlockLike(branch.Body) {
			break
		}
	}

	p.expect(token.RBrace)
	expr.Loc = p.spanFrom(start)
	return expr
}

func (p *Parser) parseSelect() ast.Expr {
	start := p.expect(token.Select).Span
	expr := &ast.ExprSelect{}
	p.expect(token.LBrace)

	for p.cur.Kind != token.RBrace && p.cur.Kind != token.EOF {
		bstart := p.cur.Span
		if p.accept(token.Default) {
			p.expect(token.FatArrow)
			expr.Default = &ast.SelectDefault{Body: p.parseExpr()}
			expr.Default.Loc = p.spanFrom(bstart)
		} else {
			branch := &ast.SelectBranch{Pat: p.parsePat()}
			p.expect(token.Assign)
			branch.Expr = p.parseExpr()
			p.expect(token.FatArrow)
			branch.Body = p.parseExpr()
			branch.Loc = p.spanFrom(bstart)
			expr.Branches = append(expr.Branches, branch)
		}
		if !p.accept(token.Comma) {
			break
		}
	}

	p.expect(token.RBrace)
	expr.Loc = p.spanFrom(start)
	return expr
}

// parseTemplate splits the raw text of a template literal into string and
// expression components. Expansions are parsed with a nested lexer whose
// spans are offset into the enclosing source.
func (p *Parser) parseTemplate(tok token.Token) ast.Expr {
	lit := &ast.LitTemplate{Loc: tok.Span}
	raw := tok.Lexeme
	base := tok.Span.Start + 1 // skip the opening backtick

	flush := func(s string) {
		if s == "" {
			return
		}
		text, err := lexer.Unescape(s)
		if err != nil {
			p.errorf(tok.Pos, "template: %v", err)
			return
		}
		lit.SizeHint += len(text)
		lit.Components = append(lit.Components, ast.TemplateComponent{String: text})
	}

	last := 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '\\':
			i++
		case '{':
			flush(raw[last:i])

			depth, j := 1, i+1
			for ; j < len(raw) && depth > 0; j++ {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
			}
			if depth != 0 {
				p.errorf(tok.Pos, "unterminated template expansion")
				return lit
			}

			inner := raw[i+1 : j-1]
			sub := New(lexer.NewAt(inner, base+i+1))
			expr := sub.parseExpr()
			for _, err := range sub.Errors() {
				p.errors = append(p.errors, "template: "+err)
			}
			if sub.cur.Kind != token.EOF {
				p.errorf(tok.Pos, "template: unexpected %s in expansion", sub.cur.Kind)
			}
			if expr != nil {
				lit.Components = append(lit.Components, ast.TemplateComponent{Expr: expr})
				lit.HasExpansions = true
			}

			last = j
			i = j - 1
		}
	}
	flush(raw[last:])

	return lit
}

// ---------- Patterns ----------

func (p *Parser) parsePat() ast.Pat {
	start := p.cur.Span

	switch p.cur.Kind {
	case token.Ident:
		if p.cur.Lexeme == "_" {
			p.nextToken()
			return &ast.PatIgnore{Loc: start}
		}
		path := p.parsePath()
		switch p.cur.Kind {
		case token.LParen:
			p.nextToken()
			items, open := p.parsePatList(token.RParen)
			p.expect(token.RParen)
			return &ast.PatTuple{Loc: p.spanFrom(start), Path: path, Items: items, Open: open}
		case token.LBrace:
			return p.parsePatObject(start, path)
		}
		return &ast.PatPath{Loc: path.Loc, Path: path}
	case token.LParen:
		p.nextToken()
		if p.accept(token.RParen) {
			return &ast.PatUnit{Loc: p.spanFrom(start)}
		}
		items, open := p.parsePatList(token.RParen)
		p.expect(token.RParen)
		if len(items) == 1 && !open && !p.trailingComma {
			return items[0]
		}
		return &ast.PatTuple{Loc: p.spanFrom(start), Items: items, Open: open}
	case token.LBracket:
		p.nextToken()
		items, open := p.parsePatList(token.RBracket)
		p.expect(token.RBracket)
		return &ast.PatVec{Loc: p.spanFrom(start), Items: items, Open: open}
	case token.Hash:
		p.nextToken()
		return p.parsePatObject(start, nil)
	case token.Int, token.Float:
		return &ast.PatNumber{Loc: start, Number: p.parseNumber(false)}
	case token.Minus:
		p.nextToken()
		if p.cur.Kind != token.Int && p.cur.Kind != token.Float {
			p.errorf(p.cur.Pos, "expected number after `-` in pattern")
			return &ast.PatIgnore{Loc: start}
		}
		num := p.parseNumber(true)
		num.Loc = p.spanFrom(start)
		return &ast.PatNumber{Loc: num.Loc, Number: num}
	case token.Char:
		r, _ := utf8.DecodeRuneInString(p.cur.Lexeme)
		p.nextToken()
		return &ast.PatChar{Loc: start, Value: r}
	case token.Byte:
		r, _ := utf8.DecodeRuneInString(p.cur.Lexeme)
		p.nextToken()
		return &ast.PatByte{Loc: start, Value: byte(r)}
	case token.String:
		s := p.cur.Lexeme
		p.nextToken()
		return &ast.PatString{Loc: start, Value: s}
	}

	p.errorf(p.cur.Pos, "unsupported pattern starting with %s (%q)", p.cur.Kind, p.cur.Lexeme)
	p.nextToken()
	return &ast.PatIgnore{Loc: start}
}

func (p *Parser) parsePatList(end token.Kind) ([]ast.Pat, bool) {
	var items []ast.Pat
	open, comma := false, false
	for p.cur.Kind != end && p.cur.Kind != token.EOF {
		if p.accept(token.DotDot) {
			open = true
			p.accept(token.Comma)
			break
		}
		items = append(items, p.parsePat())
		comma = p.accept(token.Comma)
		if !comma {
			break
		}
	}
	p.trailingComma = comma
	return items, open
}

func (p *Parser) parsePatObject(start token.Span, ident *ast.Path) ast.Pat {
	p.expect(token.LBrace)
	obj := &ast.PatObject{Ident: ident}

	for p.cur.Kind != token.RBrace && p.cur.Kind != token.EOF {
		if p.accept(token.DotDot) {
			obj.Open = true
			p.accept(token.Comma)
			break
		}

		field := &ast.PatObjectField{Loc: p.cur.Span, KeyLoc: p.cur.Span}
		switch p.cur.Kind {
		case token.Ident:
			field.Key = p.cur.Lexeme
			field.KeyIdent = true
		case token.String:
			field.Key = p.cur.Lexeme
		default:
			p.errorf(p.cur.Pos, "expected object key in pattern, got %s", p.cur.Kind)
		}
		p.nextToken()

		if p.accept(token.Colon) {
			field.Binding = p.parsePat()
		}
		field.Loc = p.spanFrom(field.Loc)
		obj.Fields = append(obj.Fields, field)

		if !p.accept(token.Comma) {
			break
		}
	}

	p.expect(token.RBrace)
	obj.Loc = p.spanFrom(start)
	return obj
}
