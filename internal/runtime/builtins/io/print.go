package io

import (
	"fmt"
	"strings"

	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/value"
)

func init() {
	builtins.Register(builtins.NewModule("std::io").
		Function("print", 1, print).
		Function("println", 1, println).
		Function("dbg", -1, dbg))
}

func print(env builtins.Env, args []value.Value) (value.Value, error) {
	if _, err := fmt.Fprint(env.Stdout(), args[0].String()); err != nil {
		return value.Value{}, err
	}
	return value.Unit(), nil
}

func println(env builtins.Env, args []value.Value) (value.Value, error) {
	if _, err := fmt.Fprintln(env.Stdout(), args[0].String()); err != nil {
		return value.Value{}, err
	}
	return value.Unit(), nil
}

// dbg prints the debug form of each argument on one line.
func dbg(env builtins.Env, args []value.Value) (value.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Debug()
	}
	if _, err := fmt.Fprintln(env.Stdout(), strings.Join(parts, " ")); err != nil {
		return value.Value{}, err
	}
	return value.Unit(), nil
}
