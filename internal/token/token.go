package token

import "fmt"

type Kind int

const (
	Illegal Kind = iota
	EOF

	Ident    // Identifier
	Label    // 'label
	Int      // Integer
	Float    // Floating-point number
	Char     // 'c'
	Byte     // b'c'
	String   // "..."
	ByteStr  // b"..."
	Template // `...`, raw contents; expansions are parsed later

	// Keywords
	Fn
	Async
	Let
	If
	Else
	While
	Loop
	For
	In
	Break
	Return
	Yield
	Match
	Select
	Default
	Await
	Struct
	Enum
	Impl
	Use
	Self
	True
	False
	Is
	Not

	// Operators
	Assign      // =
	PlusAssign  // +=
	MinusAssign // -=
	StarAssign  // *=
	SlashAssign // /=

	Plus    // +
	Minus   // -
	Star    // *
	Slash   // /
	Percent // %

	Bang   // !
	Amp    // &
	AndAnd // &&
	OrOr   // ||

	Eq    // ==
	NotEq // !=
	Lt    // <
	LtEq  // <=
	Gt    // >
	GtEq  // >=

	// Symbols
	Pipe       // |
	Comma      // ,
	Semicolon  // ;
	Dot        // .
	DotDot     // ..
	Colon      // :
	ColonColon // ::
	FatArrow   // =>
	Hash       // #

	LParen   // (
	RParen   // )
	LBrace   // {
	RBrace   // }
	LBracket // [
	RBracket // ]
	Question // ?
)

// Position is a human readable location, 1-based.
type Position struct {
	Line   int
	Column int
}

// Span is a half-open byte range into a source.
type Span struct {
	Start int
	End   int
}

// Join returns the smallest span covering both.
func (s Span) Join(o Span) Span {
	out := s
	if o.Start < out.Start {
		out.Start = o.Start
	}
	if o.End > out.End {
		out.End = o.End
	}
	return out
}

// Len returns the number of bytes covered.
func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

type Token struct {
	Kind   Kind
	Lexeme string
	Pos    Position
	Span   Span
}

var kindNames = [...]string{
	Illegal:     "Illegal",
	EOF:         "EOF",
	Ident:       "Ident",
	Label:       "Label",
	Int:         "Int",
	Float:       "Float",
	Char:        "Char",
	Byte:        "Byte",
	String:      "String",
	ByteStr:     "ByteStr",
	Template:    "Template",
	Fn:          "fn",
	Async:       "async",
	Let:         "let",
	If:          "if",
	Else:        "else",
	While:       "while",
	Loop:        "loop",
	For:         "for",
	In:          "in",
	Break:       "break",
	Return:      "return",
	Yield:       "yield",
	Match:       "match",
	Select:      "select",
	Default:     "default",
	Await:       "await",
	Struct:      "struct",
	Enum:        "enum",
	Impl:        "impl",
	Use:         "use",
	Self:        "self",
	True:        "true",
	False:       "false",
	Is:          "is",
	Not:         "not",
	Assign:      "=",
	PlusAssign:  "+=",
	MinusAssign: "-=",
	StarAssign:  "*=",
	SlashAssign: "/=",
	Plus:        "+",
	Minus:       "-",
	Star:        "*",
	Slash:       "/",
	Percent:     "%",
	Bang:        "!",
	Amp:         "&",
	AndAnd:      "&&",
	OrOr:        "||",
	Eq:          "==",
	NotEq:       "!=",
	Lt:          "<",
	LtEq:        "<=",
	Gt:          ">",
	GtEq:        ">=",
	Pipe:        "|",
	Comma:       ",",
	Semicolon:   ";",
	Dot:         ".",
	DotDot:      "..",
	Colon:       ":",
	ColonColon:  "::",
	FatArrow:    "=>",
	Hash:        "#",
	LParen:      "(",
	RParen:      ")",
	LBrace:      "{",
	RBrace:      "}",
	LBracket:    "[",
	RBracket:    "]",
	Question:    "?",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var keywords = map[string]Kind{
	"fn":      Fn,
	"async":   Async,
	"let":     Let,
	"if":      If,
	"else":    Else,
	"while":   While,
	"loop":    Loop,
	"for":     For,
	"in":      In,
	"break":   Break,
	"return":  Return,
	"yield":   Yield,
	"match":   Match,
	"select":  Select,
	"default": Default,
	"await":   Await,
	"struct":  Struct,
	"enum":    Enum,
	"impl":    Impl,
	"use":     Use,
	"self":    Self,
	"true":    True,
	"false":   False,
	"is":      Is,
	"not":     Not,
}

func LookupIdent(lit string) Kind {
	if kind, ok := keywords[lit]; ok {
		return kind
	}
	return Ident
}
