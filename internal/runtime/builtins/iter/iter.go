// Package iter installs `std::iter`: the iterator type that for loops drive
// through the `into_iter` and `next` protocols.
package iter

import (
	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/value"
)

var (
	Item = item.Parse("std::iter::Iterator")
	Type = hash.TypeHash(Item)
)

// Iterator is a host iterator over values.
type Iterator struct {
	name string
	next func() (value.Value, bool)
}

// New returns an iterator value. name is shown when the iterator is
// printed.
func New(name string, next func() (value.Value, bool)) value.Value {
	return value.FromExternal(&Iterator{name: name, next: next})
}

// Slice iterates over a snapshot of vals.
func Slice(name string, vals []value.Value) value.Value {
	snapshot := append([]value.Value(nil), vals...)
	i := 0
	return New(name, func() (value.Value, bool) {
		if i >= len(snapshot) {
			return value.Value{}, false
		}
		i++
		return snapshot[i-1], true
	})
}

func (it *Iterator) TypeHash() hash.Hash { return Type }

func (it *Iterator) String() string { return "<iterator " + it.name + ">" }

// Next advances the iterator.
func (it *Iterator) Next() (value.Value, bool) {
	return it.next()
}

func init() {
	builtins.Register(builtins.NewModule("std::iter").
		Type("Iterator").
		Function("range", 2, rangeFn).
		Function("once", 1, once).
		InstanceFunction("Iterator", "next", 1, next).
		InstanceFunction("Iterator", "into_iter", 1, intoIter).
		InstanceFunction("Iterator", "collect_vec", 1, collectVec).
		InstanceFunction("Iterator", "count", 1, count))
}

// rangeFn iterates over the integers in [start, end).
func rangeFn(env builtins.Env, args []value.Value) (value.Value, error) {
	start, err := builtins.Arg("range", args, 0, value.KindInteger)
	if err != nil {
		return value.Value{}, err
	}
	end, err := builtins.Arg("range", args, 1, value.KindInteger)
	if err != nil {
		return value.Value{}, err
	}

	i := start.Int
	return New("range", func() (value.Value, bool) {
		if i >= end.Int {
			return value.Value{}, false
		}
		i++
		return value.Integer(i - 1), true
	}), nil
}

func once(env builtins.Env, args []value.Value) (value.Value, error) {
	return Slice("once", args[:1]), nil
}

func next(env builtins.Env, args []value.Value) (value.Value, error) {
	it, err := builtins.External[*Iterator]("next", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	if v, ok := it.Next(); ok {
		return value.Some(v), nil
	}
	return value.None(), nil
}

func intoIter(env builtins.Env, args []value.Value) (value.Value, error) {
	if _, err := builtins.External[*Iterator]("into_iter", args, 0); err != nil {
		return value.Value{}, err
	}
	return args[0], nil
}

func collectVec(env builtins.Env, args []value.Value) (value.Value, error) {
	it, err := builtins.External[*Iterator]("collect_vec", args, 0)
	if err != nil {
		return value.Value{}, err
	}

	var out []value.Value
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return value.Vec(out...), nil
}

func count(env builtins.Env, args []value.Value) (value.Value, error) {
	it, err := builtins.External[*Iterator]("count", args, 0)
	if err != nil {
		return value.Value{}, err
	}

	var n int64
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	return value.Integer(n), nil
}

// IntoIter converts the values the for loop protocol accepts natively.
func IntoIter(name string, v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.KindVec, value.KindTuple:
		return Slice(name, v.Seq.Values), nil
	case value.KindExternal:
		if _, ok := v.External.(*Iterator); ok {
			return v, nil
		}
	}
	return value.Value{}, errors.New("%s: %v is not iterable", name, v.Kind)
}
