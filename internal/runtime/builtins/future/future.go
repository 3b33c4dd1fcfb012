// Package future installs `std::future`.
package future

import (
	"context"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/value"
)

func init() {
	builtins.Register(builtins.NewModule("std::future").
		Type("Future").
		Function("join", 1, join))
}

// join takes a tuple or vec of futures and returns a future of a tuple or
// vec of their outputs.
func join(env builtins.Env, args []value.Value) (value.Value, error) {
	arg := args[0]
	if arg.Kind != value.KindTuple && arg.Kind != value.KindVec {
		return value.Value{}, errors.New("join: expected a tuple or vec of futures, got %v", arg.Kind)
	}

	fs := make([]*value.Future, len(arg.Seq.Values))
	for i, v := range arg.Seq.Values {
		if v.Kind != value.KindFuture {
			return value.Value{}, errors.New("join: element %d is %v, not a future", i, v.Kind)
		}
		fs[i] = v.Future
	}

	kind := arg.Kind
	return value.FromFuture(value.NewFuture(func(ctx context.Context) (value.Value, error) {
		outs, err := value.Join(ctx, fs)
		if err != nil {
			return value.Value{}, err
		}
		if kind == value.KindVec {
			return value.Vec(outs...), nil
		}
		return value.Tuple(outs...), nil
	})), nil
}
