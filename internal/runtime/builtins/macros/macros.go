// Package macros installs `std::macros`, the macros expanded by the
// compiler.
package macros

import (
	"strings"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/lexer"
	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/token"
)

func init() {
	builtins.Register(builtins.NewModule("std::macros").
		Macro("stringify", stringify).
		Macro("assert", assert).
		Macro("assert_eq", assertEq))
}

func stringify(input string) (string, error) {
	return lexer.Quote(strings.TrimSpace(input)), nil
}

// assert!(cond) and assert!(cond, message)
func assert(input string) (string, error) {
	args, err := SplitArgs(input)
	if err != nil {
		return "", errors.Wrap(err, "assert")
	}

	var msg string
	switch len(args) {
	case 1:
		msg = lexer.Quote("assertion failed: " + args[0])
	case 2:
		msg = args[1]
	default:
		return "", errors.New("assert: expected 1 or 2 arguments, got %d", len(args))
	}

	return "if !(" + args[0] + ") { std::panic(" + msg + ") }", nil
}

func assertEq(input string) (string, error) {
	args, err := SplitArgs(input)
	if err != nil {
		return "", errors.Wrap(err, "assert_eq")
	}
	if len(args) != 2 {
		return "", errors.New("assert_eq: expected 2 arguments, got %d", len(args))
	}

	msg := lexer.Quote("assertion failed: " + args[0] + " == " + args[1])

	return "if (" + args[0] + ") != (" + args[1] + ") { std::panic(" + msg + ") }", nil
}

// SplitArgs splits macro input on the commas outside of any delimiters.
// A trailing comma is allowed.
func SplitArgs(input string) ([]string, error) {
	l := lexer.New(input)

	var args []string
	start, depth := 0, 0

	for {
		tok := l.NextToken()

		switch tok.Kind {
		case token.LParen, token.LBrace, token.LBracket:
			depth++
		case token.RParen, token.RBrace, token.RBracket:
			depth--
		}

		if tok.Kind == token.Illegal || depth < 0 {
			return nil, errors.New("unexpected %q at offset %d", tok.Lexeme, tok.Span.Start)
		}

		if tok.Kind != token.EOF && (tok.Kind != token.Comma || depth != 0) {
			continue
		}

		if arg := strings.TrimSpace(input[start:tok.Span.Start]); arg != "" {
			args = append(args, arg)
		} else if tok.Kind == token.Comma {
			return nil, errors.New("empty argument at offset %d", tok.Span.Start)
		}

		if tok.Kind == token.EOF {
			break
		}

		start = tok.Span.End
	}

	if depth != 0 {
		return nil, errors.New("unbalanced delimiters")
	}
	if errs := l.Errors(); len(errs) != 0 {
		return nil, errors.New("%s", errs[0])
	}

	return args, nil
}
