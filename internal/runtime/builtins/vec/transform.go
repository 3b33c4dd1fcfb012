package vec

import (
	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/value"
)

// mapFn returns a new vec with f applied to each element.
func mapFn(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.map", args)
	if err != nil {
		return value.Value{}, err
	}

	out := make([]value.Value, 0, len(s.Values))
	for i, v := range s.Values {
		r, err := env.Call(args[1], v)
		if err != nil {
			return value.Value{}, errors.Wrap(err, "Vec.map: element %d", i)
		}
		out = append(out, r)
	}
	return value.Vec(out...), nil
}

// filter returns a new vec with the elements f returns true for.
func filter(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.filter", args)
	if err != nil {
		return value.Value{}, err
	}

	var out []value.Value
	for i, v := range s.Values {
		keep, err := env.Call(args[1], v)
		if err != nil {
			return value.Value{}, errors.Wrap(err, "Vec.filter: element %d", i)
		}
		if keep.Kind != value.KindBool {
			return value.Value{}, errors.New("Vec.filter: predicate returned %v, expected bool", keep.Kind)
		}
		if keep.Truthy() {
			out = append(out, v)
		}
	}
	return value.Vec(out...), nil
}

// reduce folds the vec from the left: acc = f(acc, element).
func reduce(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.reduce", args)
	if err != nil {
		return value.Value{}, err
	}

	acc := args[1]
	for i, v := range s.Values {
		acc, err = env.Call(args[2], acc, v)
		if err != nil {
			return value.Value{}, errors.Wrap(err, "Vec.reduce: element %d", i)
		}
	}
	return acc, nil
}
