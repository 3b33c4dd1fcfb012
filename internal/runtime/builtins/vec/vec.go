// Package vec installs `std::vec`. Vecs are shared by reference, so the
// mutating functions change the vec in place.
package vec

import (
	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/runtime/builtins/iter"
	"github.com/therealbnut/rune/internal/value"
)

func init() {
	builtins.Register(builtins.NewModule("std::vec").
		Type("Vec").
		Function("Vec::new", 0, newVec).
		Function("Vec::with_capacity", 1, withCapacity).
		InstanceFunction("Vec", "len", 1, length).
		InstanceFunction("Vec", "is_empty", 1, isEmpty).
		InstanceFunction("Vec", "push", 2, push).
		InstanceFunction("Vec", "pop", 1, pop).
		InstanceFunction("Vec", "get", 2, get).
		InstanceFunction("Vec", "insert", 3, insert).
		InstanceFunction("Vec", "remove", 2, remove).
		InstanceFunction("Vec", "clear", 1, clear).
		InstanceFunction("Vec", "contains", 2, contains).
		InstanceFunction("Vec", "index_of", 2, indexOf).
		InstanceFunction("Vec", "reverse", 1, reverse).
		InstanceFunction("Vec", "extend", 2, extend).
		InstanceFunction("Vec", "map", 2, mapFn).
		InstanceFunction("Vec", "filter", 2, filter).
		InstanceFunction("Vec", "reduce", 3, reduce).
		InstanceFunction("Vec", "iter", 1, intoIter).
		InstanceFunction("Vec", "into_iter", 1, intoIter))
}

func receiver(name string, args []value.Value) (*value.Seq, error) {
	v, err := builtins.Arg(name, args, 0, value.KindVec)
	if err != nil {
		return nil, err
	}
	return v.Seq, nil
}

func newVec(env builtins.Env, args []value.Value) (value.Value, error) {
	return value.Vec(), nil
}

func withCapacity(env builtins.Env, args []value.Value) (value.Value, error) {
	n, err := builtins.Index("Vec::with_capacity", args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.Vec(make([]value.Value, 0, n)...), nil
}

func length(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.len", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Integer(int64(len(s.Values))), nil
}

func isEmpty(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.is_empty", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(len(s.Values) == 0), nil
}

func push(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.push", args)
	if err != nil {
		return value.Value{}, err
	}
	s.Values = append(s.Values, args[1])
	return value.Unit(), nil
}

func pop(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.pop", args)
	if err != nil {
		return value.Value{}, err
	}
	if len(s.Values) == 0 {
		return value.None(), nil
	}
	last := s.Values[len(s.Values)-1]
	s.Values = s.Values[:len(s.Values)-1]
	return value.Some(last), nil
}

func get(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.get", args)
	if err != nil {
		return value.Value{}, err
	}
	i, err := builtins.Arg("Vec.get", args, 1, value.KindInteger)
	if err != nil {
		return value.Value{}, err
	}
	if i.Int < 0 || i.Int >= int64(len(s.Values)) {
		return value.None(), nil
	}
	return value.Some(s.Values[i.Int]), nil
}

func insert(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.insert", args)
	if err != nil {
		return value.Value{}, err
	}
	i, err := builtins.Index("Vec.insert", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	if i > len(s.Values) {
		return value.Value{}, errors.New("Vec.insert: index %d out of range [0:%d]", i, len(s.Values))
	}

	s.Values = append(s.Values, value.Value{})
	copy(s.Values[i+1:], s.Values[i:])
	s.Values[i] = args[2]
	return value.Unit(), nil
}

func remove(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.remove", args)
	if err != nil {
		return value.Value{}, err
	}
	i, err := builtins.Index("Vec.remove", args, 1)
	if err != nil {
		return value.Value{}, err
	}
	if i >= len(s.Values) {
		return value.Value{}, errors.New("Vec.remove: index %d out of range [0:%d)", i, len(s.Values))
	}

	v := s.Values[i]
	s.Values = append(s.Values[:i], s.Values[i+1:]...)
	return v, nil
}

func clear(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.clear", args)
	if err != nil {
		return value.Value{}, err
	}
	s.Values = s.Values[:0]
	return value.Unit(), nil
}

func contains(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.contains", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(find(s.Values, args[1]) >= 0), nil
}

func indexOf(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.index_of", args)
	if err != nil {
		return value.Value{}, err
	}
	i := find(s.Values, args[1])
	if i < 0 {
		return value.None(), nil
	}
	return value.Some(value.Integer(int64(i))), nil
}

func find(vals []value.Value, x value.Value) int {
	for i, v := range vals {
		if value.Equal(v, x) {
			return i
		}
	}
	return -1
}

func reverse(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.reverse", args)
	if err != nil {
		return value.Value{}, err
	}
	for i, j := 0, len(s.Values)-1; i < j; i, j = i+1, j-1 {
		s.Values[i], s.Values[j] = s.Values[j], s.Values[i]
	}
	return value.Unit(), nil
}

func extend(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.extend", args)
	if err != nil {
		return value.Value{}, err
	}
	it, err := iter.IntoIter("Vec.extend", args[1])
	if err != nil {
		return value.Value{}, err
	}

	src := it.External.(*iter.Iterator)
	for {
		v, ok := src.Next()
		if !ok {
			break
		}
		s.Values = append(s.Values, v)
	}
	return value.Unit(), nil
}

func intoIter(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := receiver("Vec.iter", args)
	if err != nil {
		return value.Value{}, err
	}
	return iter.Slice("vec", s.Values), nil
}
