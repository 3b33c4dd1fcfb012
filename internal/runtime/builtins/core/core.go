// Package core installs the root `std` module: the primitive types and the
// functions every script can reach through the prelude.
package core

import (
	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/runtime/builtins/iter"
	"github.com/therealbnut/rune/internal/value"
)

func init() {
	builtins.Register(builtins.NewModule("std").
		Type("unit").
		Type("bool").
		Type("byte").
		Type("char").
		Type("int").
		Type("float").
		Function("drop", 1, drop).
		Function("panic", 1, panicFn).
		InstanceFunction("int", "to_string", 1, toString).
		InstanceFunction("int", "to_float", 1, intToFloat).
		InstanceFunction("int", "abs", 1, intAbs).
		InstanceFunction("int", "max", 2, intMax).
		InstanceFunction("int", "min", 2, intMin).
		InstanceFunction("float", "to_string", 1, toString).
		InstanceFunction("float", "to_int", 1, floatToInt).
		InstanceFunction("bool", "to_string", 1, toString).
		InstanceFunction("char", "to_string", 1, toString).
		InstanceFunction("char", "to_int", 1, charToInt))

	builtins.Register(builtins.NewModule("std::tuple").
		Type("Tuple").
		InstanceFunction("Tuple", "len", 1, seqLen).
		InstanceFunction("Tuple", "into_iter", 1, tupleIter))

	builtins.Register(builtins.NewModule("std::bytes").
		Type("Bytes").
		InstanceFunction("Bytes", "len", 1, bytesLen))

	builtins.Register(builtins.NewModule("std::ops").Type("Function"))
	builtins.Register(builtins.NewModule("std::any").Type("Type"))
}

func drop(env builtins.Env, args []value.Value) (value.Value, error) {
	return value.Unit(), nil
}

func panicFn(env builtins.Env, args []value.Value) (value.Value, error) {
	return value.Value{}, errors.Wrap(builtins.ErrPanic, "%v", args[0])
}

func toString(env builtins.Env, args []value.Value) (value.Value, error) {
	return value.String(args[0].String()), nil
}

func intToFloat(env builtins.Env, args []value.Value) (value.Value, error) {
	v, err := builtins.Arg("int.to_float", args, 0, value.KindInteger)
	if err != nil {
		return value.Value{}, err
	}
	return value.Float(float64(v.Int)), nil
}

func intAbs(env builtins.Env, args []value.Value) (value.Value, error) {
	v, err := builtins.Arg("int.abs", args, 0, value.KindInteger)
	if err != nil {
		return value.Value{}, err
	}
	if v.Int < 0 {
		return value.Integer(-v.Int), nil
	}
	return v, nil
}

func intMax(env builtins.Env, args []value.Value) (value.Value, error) {
	a, b, err := intPair("int.max", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Integer(max(a, b)), nil
}

func intMin(env builtins.Env, args []value.Value) (value.Value, error) {
	a, b, err := intPair("int.min", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Integer(min(a, b)), nil
}

func intPair(name string, args []value.Value) (int64, int64, error) {
	a, err := builtins.Arg(name, args, 0, value.KindInteger)
	if err != nil {
		return 0, 0, err
	}
	b, err := builtins.Arg(name, args, 1, value.KindInteger)
	if err != nil {
		return 0, 0, err
	}
	return a.Int, b.Int, nil
}

func floatToInt(env builtins.Env, args []value.Value) (value.Value, error) {
	v, err := builtins.Arg("float.to_int", args, 0, value.KindFloat)
	if err != nil {
		return value.Value{}, err
	}
	return value.Integer(int64(v.Float)), nil
}

func charToInt(env builtins.Env, args []value.Value) (value.Value, error) {
	v, err := builtins.Arg("char.to_int", args, 0, value.KindChar)
	if err != nil {
		return value.Value{}, err
	}
	return value.Integer(v.Int), nil
}

func seqLen(env builtins.Env, args []value.Value) (value.Value, error) {
	vals, ok := args[0].Elements()
	if !ok {
		return value.Value{}, errors.New("tuple.len: expected a tuple, got %v", args[0].Kind)
	}
	return value.Integer(int64(len(vals))), nil
}

func bytesLen(env builtins.Env, args []value.Value) (value.Value, error) {
	v, err := builtins.Arg("bytes.len", args, 0, value.KindBytes)
	if err != nil {
		return value.Value{}, err
	}
	return value.Integer(int64(len(v.Bytes))), nil
}

func tupleIter(env builtins.Env, args []value.Value) (value.Value, error) {
	return iter.IntoIter("Tuple.into_iter", args[0])
}
