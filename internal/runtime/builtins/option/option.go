// Package option installs `std::option`.
package option

import (
	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/value"
)

func init() {
	builtins.Register(builtins.NewModule("std::option").
		Type("Option",
			builtins.Variant{Name: "Some", Args: 1, Check: ir.TypeCheck{Kind: ir.CheckOption, Index: 0}, Call: some},
			builtins.Variant{Name: "None", Args: 0, Check: ir.TypeCheck{Kind: ir.CheckOption, Index: 1}, Call: none},
		).
		InstanceFunction("Option", "is_some", 1, isSome).
		InstanceFunction("Option", "is_none", 1, isNone).
		InstanceFunction("Option", "unwrap", 1, unwrap).
		InstanceFunction("Option", "expect", 2, expect).
		InstanceFunction("Option", "unwrap_or", 2, unwrapOr).
		InstanceFunction("Option", "map", 2, mapFn).
		InstanceFunction("Option", "and_then", 2, andThen).
		InstanceFunction("Option", "ok_or", 2, okOr))
}

func some(env builtins.Env, args []value.Value) (value.Value, error) {
	return value.Some(args[0]), nil
}

func none(env builtins.Env, args []value.Value) (value.Value, error) {
	return value.None(), nil
}

func receiver(name string, args []value.Value) (value.Value, error) {
	return builtins.Arg(name, args, 0, value.KindOption)
}

func isSome(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Option.is_some", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(o.Index == 0), nil
}

func isNone(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Option.is_none", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(o.Index != 0), nil
}

func unwrap(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Option.unwrap", args)
	if err != nil {
		return value.Value{}, err
	}
	if o.Index != 0 {
		return value.Value{}, errors.Wrap(builtins.ErrPanic, "called unwrap on None")
	}
	return o.Seq.Values[0], nil
}

func expect(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Option.expect", args)
	if err != nil {
		return value.Value{}, err
	}
	if o.Index != 0 {
		return value.Value{}, errors.Wrap(builtins.ErrPanic, "%v", args[1])
	}
	return o.Seq.Values[0], nil
}

func unwrapOr(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Option.unwrap_or", args)
	if err != nil {
		return value.Value{}, err
	}
	if o.Index != 0 {
		return args[1], nil
	}
	return o.Seq.Values[0], nil
}

func mapFn(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Option.map", args)
	if err != nil {
		return value.Value{}, err
	}
	if o.Index != 0 {
		return o, nil
	}
	v, err := env.Call(args[1], o.Seq.Values[0])
	if err != nil {
		return value.Value{}, errors.Wrap(err, "Option.map")
	}
	return value.Some(v), nil
}

func andThen(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Option.and_then", args)
	if err != nil {
		return value.Value{}, err
	}
	if o.Index != 0 {
		return o, nil
	}
	return env.Call(args[1], o.Seq.Values[0])
}

func okOr(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Option.ok_or", args)
	if err != nil {
		return value.Value{}, err
	}
	if o.Index != 0 {
		return value.Err(args[1]), nil
	}
	return value.Ok(o.Seq.Values[0]), nil
}
