package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/therealbnut/rune/internal/token"
)

type Lexer struct {
	input string
	base  int // offset added to every span, for re-lexed fragments

	pos   int // byte offset of the next rune
	start int // byte offset of ch

	ch   rune
	line int
	col  int

	errors []string
}

func New(input string) *Lexer {
	return NewAt(input, 0)
}

// NewAt lexes a fragment whose first byte sits at offset base of some
// larger source, so that spans stay comparable with the enclosing file.
func NewAt(input string, base int) *Lexer {
	l := &Lexer{
		input: input,
		base:  base,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := token.Position{
		Line:   l.line,
		Column: l.col,
	}
	start := l.start
	ch := l.ch

	tok := func(kind token.Kind, lexeme string) token.Token {
		return token.Token{
			Kind:   kind,
			Lexeme: lexeme,
			Pos:    pos,
			Span:   token.Span{Start: l.base + start, End: l.base + l.start},
		}
	}

	if ch == 0 {
		return tok(token.EOF, "")
	}

	if isDigit(ch) {
		lit, kind := l.readNumber()
		return tok(kind, lit)
	}

	// Byte and byte string literals: b'x', b"..."
	if ch == 'b' && (l.peekChar() == '\'' || l.peekChar() == '"') {
		l.readChar() // consume 'b'
		if l.ch == '"' {
			l.readChar()
			lit, ok := l.readSimpleString('"')
			if !ok {
				return tok(token.Illegal, "")
			}
			return tok(token.ByteStr, lit)
		}
		l.readChar()
		r, ok := l.readCharBody(pos)
		if !ok {
			return tok(token.Illegal, "")
		}
		if r > 0xff {
			l.errorf(pos, "byte literal out of range")
			return tok(token.Illegal, "")
		}
		return tok(token.Byte, string(r))
	}

	if isLetter(ch) {
		lit := l.readIdentifier()
		return tok(token.LookupIdent(lit), lit)
	}

	switch ch {
	case '"':
		l.readChar()
		lit, ok := l.readSimpleString('"')
		if !ok {
			return tok(token.Illegal, "")
		}
		return tok(token.String, lit)
	case '`':
		l.readChar()
		lit, ok := l.readTemplate()
		if !ok {
			return tok(token.Illegal, "")
		}
		return tok(token.Template, lit)
	case '\'':
		// Either a character literal or a loop label.
		if isLetter(l.peekChar()) && l.peekCharAt(1) != '\'' {
			l.readChar()
			lit := l.readIdentifier()
			return tok(token.Label, lit)
		}
		l.readChar()
		r, ok := l.readCharBody(pos)
		if !ok {
			return tok(token.Illegal, "")
		}
		return tok(token.Char, string(r))
	}

	var kind token.Kind

	two := func(next rune, yes, no token.Kind) token.Kind {
		if l.peekChar() == next {
			l.readChar()
			return yes
		}
		return no
	}

	switch ch {
	case ';':
		kind = token.Semicolon
	case ',':
		kind = token.Comma
	case '.':
		kind = two('.', token.DotDot, token.Dot)
	case ':':
		kind = two(':', token.ColonColon, token.Colon)
	case '#':
		kind = token.Hash
	case '|':
		kind = two('|', token.OrOr, token.Pipe)
	case '&':
		kind = two('&', token.AndAnd, token.Amp)
	case '(':
		kind = token.LParen
	case ')':
		kind = token.RParen
	case '{':
		kind = token.LBrace
	case '}':
		kind = token.RBrace
	case '[':
		kind = token.LBracket
	case ']':
		kind = token.RBracket
	case '?':
		kind = token.Question
	case '+':
		kind = two('=', token.PlusAssign, token.Plus)
	case '-':
		kind = two('=', token.MinusAssign, token.Minus)
	case '*':
		kind = two('=', token.StarAssign, token.Star)
	case '/':
		kind = two('=', token.SlashAssign, token.Slash)
	case '%':
		kind = token.Percent
	case '!':
		kind = two('=', token.NotEq, token.Bang)
	case '=':
		switch l.peekChar() {
		case '=':
			l.readChar()
			kind = token.Eq
		case '>':
			l.readChar()
			kind = token.FatArrow
		default:
			kind = token.Assign
		}
	case '<':
		kind = two('=', token.LtEq, token.Lt)
	case '>':
		kind = two('=', token.GtEq, token.Gt)
	default:
		l.errorf(pos, fmt.Sprintf("unexpected character %q", ch))
		l.readChar()
		return tok(token.Illegal, string(ch))
	}

	l.readChar()
	return tok(kind, l.input[start:l.start])
}

// Helpers

func (l *Lexer) readChar() {
	l.start = l.pos
	if l.pos >= len(l.input) {
		l.ch = 0
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.ch = r
	l.pos += size

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

func (l *Lexer) peekChar() rune {
	return l.peekCharAt(0)
}

// peekCharAt returns the rune n positions after the one following ch.
func (l *Lexer) peekCharAt(n int) rune {
	p := l.pos
	for {
		if p >= len(l.input) {
			return 0
		}
		r, size := utf8.DecodeRuneInString(l.input[p:])
		if n == 0 {
			return r
		}
		p += size
		n--
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for unicode.IsSpace(l.ch) {
			l.readChar()
		}

		if l.ch == '/' {
			switch l.peekChar() {
			case '/':
				for l.ch != '\n' && l.ch != 0 {
					l.readChar()
				}
				continue
			case '*':
				l.readChar() // '/'
				l.readChar() // '*'
				for {
					if l.ch == 0 {
						return
					}
					if l.ch == '*' && l.peekChar() == '/' {
						l.readChar() // '*'
						l.readChar() // '/'
						break
					}
					l.readChar()
				}
				continue
			}
		}

		break
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.start
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.start]
}

func (l *Lexer) readNumber() (string, token.Kind) {
	start := l.start

	if l.ch == '0' {
		switch l.peekChar() {
		case 'x', 'o', 'b':
			l.readChar()
			l.readChar()
			for isHexDigit(l.ch) || l.ch == '_' {
				l.readChar()
			}
			return l.input[start:l.start], token.Int
		}
	}

	kind := token.Int
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		kind = token.Float
		l.readChar() // consume '.'
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		kind = token.Float
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.start], kind
}

// readCharBody reads the body of a character literal after the opening
// quote, consuming the closing quote.
func (l *Lexer) readCharBody(pos token.Position) (rune, bool) {
	var r rune
	switch l.ch {
	case 0, '\n', '\'':
		l.errorf(pos, "empty or unterminated character literal")
		return 0, false
	case '\\':
		escPos := token.Position{Line: l.line, Column: l.col}
		l.readChar()
		esc, ok := l.readEscape(escPos)
		if !ok {
			return 0, false
		}
		r = esc
	default:
		r = l.ch
	}
	l.readChar()
	if l.ch != '\'' {
		l.errorf(pos, "unterminated character literal")
		return 0, false
	}
	l.readChar()
	return r, true
}

func (l *Lexer) readSimpleString(delimiter rune) (string, bool) {
	startPos := token.Position{Line: l.line, Column: l.col}
	var sb []rune
	for {
		if l.ch == 0 {
			l.errorf(startPos, "unterminated string literal")
			return "", false
		}
		if l.ch == delimiter {
			l.readChar()
			return string(sb), true
		}
		if l.ch == '\\' {
			escPos := token.Position{Line: l.line, Column: l.col}
			l.readChar()
			r, ok := l.readEscape(escPos)
			if !ok {
				return "", false
			}
			sb = append(sb, r)
			l.readChar()
			continue
		}
		sb = append(sb, l.ch)
		l.readChar()
	}
}

// readTemplate returns the raw text between backticks. Escapes and
// `{expr}` expansions are left for the parser.
func (l *Lexer) readTemplate() (string, bool) {
	startPos := token.Position{Line: l.line, Column: l.col}
	start := l.start
	for {
		switch l.ch {
		case 0:
			l.errorf(startPos, "unterminated template literal")
			return "", false
		case '\\':
			l.readChar()
		case '`':
			lit := l.input[start:l.start]
			l.readChar()
			return lit, true
		}
		l.readChar()
	}
}

func (l *Lexer) readEscape(pos token.Position) (rune, bool) {
	switch l.ch {
	case '\\':
		return '\\', true
	case '"':
		return '"', true
	case '\'':
		return '\'', true
	case '`':
		return '`', true
	case '{':
		return '{', true
	case '}':
		return '}', true
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case 'u':
		return l.readHexEscape(pos, 4)
	case 'x':
		return l.readHexEscape(pos, 2)
	default:
		l.errorf(pos, "invalid escape sequence")
		return 0, false
	}
}

func (l *Lexer) readHexEscape(pos token.Position, count int) (rune, bool) {
	var val rune
	for i := 0; i < count; i++ {
		l.readChar()
		ch := l.ch
		if ch == 0 {
			l.errorf(pos, "unterminated escape sequence")
			return 0, false
		}
		v, ok := hexValue(ch)
		if !ok {
			l.errorf(pos, "invalid hex escape")
			return 0, false
		}
		val = val*16 + v
	}
	return val, true
}

func hexValue(ch rune) (rune, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		return ch - '0', true
	case ch >= 'a' && ch <= 'f':
		return ch - 'a' + 10, true
	case ch >= 'A' && ch <= 'F':
		return ch - 'A' + 10, true
	default:
		return 0, false
	}
}

func (l *Lexer) errorf(pos token.Position, msg string) {
	l.errors = append(l.errors, formatError(pos, msg))
}

func formatError(pos token.Position, msg string) string {
	return fmt.Sprintf("%d:%d: %s", pos.Line, pos.Column, msg)
}

func (l *Lexer) Errors() []string {
	return l.errors
}

// Slice returns the input between two offsets of the enclosing source, as
// found in token spans.
func (l *Lexer) Slice(start, end int) string {
	start -= l.base
	end -= l.base
	if start < 0 || end > len(l.input) || start > end {
		return ""
	}
	return l.input[start:end]
}

// Quote returns s as a string literal that lexes back to s.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Unescape decodes the escape sequences of a template fragment.
func Unescape(s string) (string, error) {
	l := New(s)
	var out []rune
	for l.ch != 0 {
		if l.ch == '\\' {
			pos := token.Position{Line: l.line, Column: l.col}
			l.readChar()
			r, ok := l.readEscape(pos)
			if !ok {
				return "", fmt.Errorf("%s", l.errors[len(l.errors)-1])
			}
			out = append(out, r)
			l.readChar()
			continue
		}
		out = append(out, l.ch)
		l.readChar()
	}
	return string(out), nil
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	if ch > utf8.RuneSelf {
		return false
	}
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch rune) bool {
	_, ok := hexValue(ch)
	return ok
}
