package lexer_test

import (
	"testing"

	"github.com/therealbnut/rune/internal/lexer"
	"github.com/therealbnut/rune/internal/token"
)

type expectedToken struct {
	kind token.Kind
	lit  string
}

func lexAll(t *testing.T, input string, tests []expectedToken) {
	t.Helper()

	l := lexer.New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Kind != tt.kind {
			t.Fatalf("tests[%d] - wrong kind. expected=%s, got=%s (%q)", i, tt.kind, tok.Kind, tok.Lexeme)
		}
		if tok.Lexeme != tt.lit {
			t.Fatalf("tests[%d] - wrong literal. expected=%q, got=%q", i, tt.lit, tok.Lexeme)
		}
	}
	if errs := l.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected lexer errors: %v", errs)
	}
}

func TestNextToken_BasicProgram(t *testing.T) {
	input := `fn main() {
    let x = 'a';
    'outer: loop { break 'outer; }
    x += 1 // trailing comment
}
`

	lexAll(t, input, []expectedToken{
		{token.Fn, "fn"},
		{token.Ident, "main"},
		{token.LParen, "("},
		{token.RParen, ")"},
		{token.LBrace, "{"},

		{token.Let, "let"},
		{token.Ident, "x"},
		{token.Assign, "="},
		{token.Char, "a"},
		{token.Semicolon, ";"},

		{token.Label, "outer"},
		{token.Colon, ":"},
		{token.Loop, "loop"},
		{token.LBrace, "{"},
		{token.Break, "break"},
		{token.Label, "outer"},
		{token.Semicolon, ";"},
		{token.RBrace, "}"},

		{token.Ident, "x"},
		{token.PlusAssign, "+="},
		{token.Int, "1"},
		{token.RBrace, "}"},
		{token.EOF, ""},
	})
}

func TestNumbers(t *testing.T) {
	lexAll(t, "0x1f 0b101 1_000 2.5e3 t.0.1", []expectedToken{
		{token.Int, "0x1f"},
		{token.Int, "0b101"},
		{token.Int, "1_000"},
		{token.Float, "2.5e3"},
		{token.Ident, "t"},
		{token.Dot, "."},
		{token.Float, "0.1"},
		{token.EOF, ""},
	})
}

func TestOperators(t *testing.T) {
	lexAll(t, "== != <= >= => :: .. && || ! & ? # |", []expectedToken{
		{token.Eq, "=="},
		{token.NotEq, "!="},
		{token.LtEq, "<="},
		{token.GtEq, ">="},
		{token.FatArrow, "=>"},
		{token.ColonColon, "::"},
		{token.DotDot, ".."},
		{token.AndAnd, "&&"},
		{token.OrOr, "||"},
		{token.Bang, "!"},
		{token.Amp, "&"},
		{token.Question, "?"},
		{token.Hash, "#"},
		{token.Pipe, "|"},
		{token.EOF, ""},
	})
}

func TestStringsAndBytes(t *testing.T) {
	lexAll(t, `"a\tb" b'x' b"hi" '\n' "A"`, []expectedToken{
		{token.String, "a\tb"},
		{token.Byte, "x"},
		{token.ByteStr, "hi"},
		{token.Char, "\n"},
		{token.String, "A"},
		{token.EOF, ""},
	})
}

func TestTemplateIsRaw(t *testing.T) {
	lexAll(t, "`hello {name}\\n`", []expectedToken{
		{token.Template, "hello {name}\\n"},
		{token.EOF, ""},
	})
}

func TestSpans(t *testing.T) {
	l := lexer.NewAt("let abc", 10)

	tok := l.NextToken()
	if tok.Span != (token.Span{Start: 10, End: 13}) {
		t.Fatalf("unexpected span for %q: %s", tok.Lexeme, tok.Span)
	}
	tok = l.NextToken()
	if tok.Span != (token.Span{Start: 14, End: 17}) {
		t.Fatalf("unexpected span for %q: %s", tok.Lexeme, tok.Span)
	}
	if tok.Pos.Line != 1 || tok.Pos.Column != 5 {
		t.Fatalf("unexpected position: %+v", tok.Pos)
	}
}

func TestInvalidEscape(t *testing.T) {
	l := lexer.New(`"\q"`)
	tok := l.NextToken()
	if tok.Kind != token.Illegal {
		t.Fatalf("expected Illegal token, got %s", tok.Kind)
	}
	if len(l.Errors()) == 0 {
		t.Fatalf("expected lexer error for invalid escape")
	}
}

func TestUnterminatedString(t *testing.T) {
	l := lexer.New(`"abc`)
	l.NextToken()
	if len(l.Errors()) == 0 {
		t.Fatalf("expected lexer error for unterminated string")
	}
}

func TestUnescape(t *testing.T) {
	got, err := lexer.Unescape(`a\nb\{c\}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a\nb{c}" {
		t.Fatalf("unexpected result: %q", got)
	}

	if _, err := lexer.Unescape(`\q`); err == nil {
		t.Fatalf("expected error for invalid escape")
	}
}

func TestQuote(t *testing.T) {
	for _, s := range []string{"", "a b", `say "hi"`, "tab\tnew\nline", `back\slash`, "ünï"} {
		l := lexer.New(lexer.Quote(s))
		tok := l.NextToken()
		if tok.Kind != token.String || tok.Lexeme != s || len(l.Errors()) != 0 {
			t.Errorf("Quote(%q) lexed to %v %q %v", s, tok.Kind, tok.Lexeme, l.Errors())
		}
	}
}

func TestSlice(t *testing.T) {
	l := lexer.NewAt("foo(bar)", 10)
	if got := l.Slice(14, 17); got != "bar" {
		t.Fatalf("Slice(14, 17) = %q", got)
	}
	if got := l.Slice(5, 12); got != "" {
		t.Fatalf("Slice out of range = %q", got)
	}
}
