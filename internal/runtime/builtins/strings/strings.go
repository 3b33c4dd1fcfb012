// Package strings installs `std::string`.
package strings

import (
	"strings"
	"unicode/utf8"

	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/runtime/builtins/iter"
	"github.com/therealbnut/rune/internal/value"
)

func init() {
	builtins.Register(builtins.NewModule("std::string").
		Type("String").
		Function("String::new", 0, newString).
		Function("String::from", 1, from).
		InstanceFunction("String", "len", 1, length).
		InstanceFunction("String", "is_empty", 1, isEmpty).
		InstanceFunction("String", "to_upper", 1, unary("to_upper", strings.ToUpper)).
		InstanceFunction("String", "to_lower", 1, unary("to_lower", strings.ToLower)).
		InstanceFunction("String", "trim", 1, unary("trim", strings.TrimSpace)).
		InstanceFunction("String", "trim_start", 1, unary("trim_start", trimStart)).
		InstanceFunction("String", "trim_end", 1, unary("trim_end", trimEnd)).
		InstanceFunction("String", "contains", 2, predicate("contains", strings.Contains)).
		InstanceFunction("String", "starts_with", 2, predicate("starts_with", strings.HasPrefix)).
		InstanceFunction("String", "ends_with", 2, predicate("ends_with", strings.HasSuffix)).
		InstanceFunction("String", "replace", 3, replace).
		InstanceFunction("String", "split", 2, split).
		InstanceFunction("String", "find", 2, index("find", strings.Index)).
		InstanceFunction("String", "rfind", 2, index("rfind", strings.LastIndex)).
		InstanceFunction("String", "parse_int", 1, parseInt).
		InstanceFunction("String", "chars", 1, chars).
		InstanceFunction("String", "into_iter", 1, chars))
}

func trimStart(s string) string {
	return strings.TrimLeftFunc(s, isSpace)
}

func trimEnd(s string) string {
	return strings.TrimRightFunc(s, isSpace)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func str(name string, args []value.Value, i int) (string, error) {
	v, err := builtins.Arg("String."+name, args, i, value.KindString)
	if err != nil {
		return "", err
	}
	return v.Str, nil
}

func newString(env builtins.Env, args []value.Value) (value.Value, error) {
	return value.String(""), nil
}

// from converts any value to its display form.
func from(env builtins.Env, args []value.Value) (value.Value, error) {
	return value.String(args[0].String()), nil
}

// length is in bytes.
func length(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := str("len", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.Integer(int64(len(s))), nil
}

func isEmpty(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := str("is_empty", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(s == ""), nil
}

func unary(name string, f func(string) string) builtins.Handler {
	return func(env builtins.Env, args []value.Value) (value.Value, error) {
		s, err := str(name, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.String(f(s)), nil
	}
}

func predicate(name string, f func(s, x string) bool) builtins.Handler {
	return func(env builtins.Env, args []value.Value) (value.Value, error) {
		s, err := str(name, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		x, err := str(name, args, 1)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(f(s, x)), nil
	}
}

func index(name string, f func(s, x string) int) builtins.Handler {
	return func(env builtins.Env, args []value.Value) (value.Value, error) {
		s, err := str(name, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		x, err := str(name, args, 1)
		if err != nil {
			return value.Value{}, err
		}
		i := f(s, x)
		if i < 0 {
			return value.None(), nil
		}
		return value.Some(value.Integer(int64(i))), nil
	}
}

func replace(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := str("replace", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	from, err := str("replace", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	to, err := str("replace", args, 2)
	if err != nil {
		return value.Value{}, err
	}
	return value.String(strings.ReplaceAll(s, from, to)), nil
}

func split(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := str("split", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	sep, err := str("split", args, 1)
	if err != nil {
		return value.Value{}, err
	}

	parts := strings.Split(s, sep)
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.String(p)
	}
	return value.Vec(out...), nil
}

func chars(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := str("chars", args, 0)
	if err != nil {
		return value.Value{}, err
	}

	rest := s
	return iter.New("chars", func() (value.Value, bool) {
		if rest == "" {
			return value.Value{}, false
		}
		r, size := utf8.DecodeRuneInString(rest)
		rest = rest[size:]
		return value.Char(r), true
	}), nil
}
