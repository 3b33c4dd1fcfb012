// Package result installs `std::result`.
package result

import (
	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/value"
)

func init() {
	builtins.Register(builtins.NewModule("std::result").
		Type("Result",
			builtins.Variant{Name: "Ok", Args: 1, Check: ir.TypeCheck{Kind: ir.CheckResult, Index: 0}, Call: ok},
			builtins.Variant{Name: "Err", Args: 1, Check: ir.TypeCheck{Kind: ir.CheckResult, Index: 1}, Call: errFn},
		).
		InstanceFunction("Result", "is_ok", 1, isOk).
		InstanceFunction("Result", "is_err", 1, isErr).
		InstanceFunction("Result", "unwrap", 1, unwrap).
		InstanceFunction("Result", "expect", 2, expect).
		InstanceFunction("Result", "unwrap_or", 2, unwrapOr).
		InstanceFunction("Result", "ok", 1, okFn).
		InstanceFunction("Result", "map", 2, mapFn))
}

func ok(env builtins.Env, args []value.Value) (value.Value, error) {
	return value.Ok(args[0]), nil
}

func errFn(env builtins.Env, args []value.Value) (value.Value, error) {
	return value.Err(args[0]), nil
}

func receiver(name string, args []value.Value) (value.Value, error) {
	return builtins.Arg(name, args, 0, value.KindResult)
}

func isOk(env builtins.Env, args []value.Value) (value.Value, error) {
	r, err := receiver("Result.is_ok", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(r.Index == 0), nil
}

func isErr(env builtins.Env, args []value.Value) (value.Value, error) {
	r, err := receiver("Result.is_err", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(r.Index != 0), nil
}

func unwrap(env builtins.Env, args []value.Value) (value.Value, error) {
	r, err := receiver("Result.unwrap", args)
	if err != nil {
		return value.Value{}, err
	}
	if r.Index != 0 {
		return value.Value{}, errors.Wrap(builtins.ErrPanic, "called unwrap on Err(%v)", r.Seq.Values[0].Debug())
	}
	return r.Seq.Values[0], nil
}

func expect(env builtins.Env, args []value.Value) (value.Value, error) {
	r, err := receiver("Result.expect", args)
	if err != nil {
		return value.Value{}, err
	}
	if r.Index != 0 {
		return value.Value{}, errors.Wrap(builtins.ErrPanic, "%v: %v", args[1], r.Seq.Values[0].Debug())
	}
	return r.Seq.Values[0], nil
}

func unwrapOr(env builtins.Env, args []value.Value) (value.Value, error) {
	r, err := receiver("Result.unwrap_or", args)
	if err != nil {
		return value.Value{}, err
	}
	if r.Index != 0 {
		return args[1], nil
	}
	return r.Seq.Values[0], nil
}

func okFn(env builtins.Env, args []value.Value) (value.Value, error) {
	r, err := receiver("Result.ok", args)
	if err != nil {
		return value.Value{}, err
	}
	if r.Index != 0 {
		return value.None(), nil
	}
	return value.Some(r.Seq.Values[0]), nil
}

func mapFn(env builtins.Env, args []value.Value) (value.Value, error) {
	r, err := receiver("Result.map", args)
	if err != nil {
		return value.Value{}, err
	}
	if r.Index != 0 {
		return r, nil
	}
	v, err := env.Call(args[1], r.Seq.Values[0])
	if err != nil {
		return value.Value{}, errors.Wrap(err, "Result.map")
	}
	return value.Ok(v), nil
}
