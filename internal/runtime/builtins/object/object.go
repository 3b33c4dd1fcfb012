// Package object installs `std::object`.
package object

import (
	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/runtime/builtins/iter"
	"github.com/therealbnut/rune/internal/value"
)

func init() {
	builtins.Register(builtins.NewModule("std::object").
		Type("Object").
		Function("Object::new", 0, newObject).
		InstanceFunction("Object", "len", 1, length).
		InstanceFunction("Object", "is_empty", 1, isEmpty).
		InstanceFunction("Object", "get", 2, get).
		InstanceFunction("Object", "insert", 3, insert).
		InstanceFunction("Object", "remove", 2, remove).
		InstanceFunction("Object", "contains_key", 2, containsKey).
		InstanceFunction("Object", "keys", 1, keys).
		InstanceFunction("Object", "values", 1, values).
		InstanceFunction("Object", "iter", 1, intoIter).
		InstanceFunction("Object", "into_iter", 1, intoIter))
}

func receiver(name string, args []value.Value) (*value.Object, error) {
	v, err := builtins.Arg(name, args, 0, value.KindObject)
	if err != nil {
		return nil, err
	}
	return v.Obj, nil
}

func key(name string, args []value.Value) (string, error) {
	k, err := builtins.Arg(name, args, 1, value.KindString)
	if err != nil {
		return "", err
	}
	return k.Str, nil
}

func newObject(env builtins.Env, args []value.Value) (value.Value, error) {
	return value.NewObject(make(map[string]value.Value)), nil
}

func length(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Object.len", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Integer(int64(len(o.Fields))), nil
}

func isEmpty(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Object.is_empty", args)
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(len(o.Fields) == 0), nil
}

func get(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Object.get", args)
	if err != nil {
		return value.Value{}, err
	}
	k, err := key("Object.get", args)
	if err != nil {
		return value.Value{}, err
	}
	if v, ok := o.Fields[k]; ok {
		return value.Some(v), nil
	}
	return value.None(), nil
}

// insert sets the key and returns the previous value, if any.
func insert(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Object.insert", args)
	if err != nil {
		return value.Value{}, err
	}
	k, err := key("Object.insert", args)
	if err != nil {
		return value.Value{}, err
	}

	old, had := o.Fields[k]
	if o.Fields == nil {
		o.Fields = make(map[string]value.Value)
	}
	o.Fields[k] = args[2]

	if had {
		return value.Some(old), nil
	}
	return value.None(), nil
}

func remove(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Object.remove", args)
	if err != nil {
		return value.Value{}, err
	}
	k, err := key("Object.remove", args)
	if err != nil {
		return value.Value{}, err
	}

	old, had := o.Fields[k]
	if !had {
		return value.None(), nil
	}
	delete(o.Fields, k)
	return value.Some(old), nil
}

func containsKey(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Object.contains_key", args)
	if err != nil {
		return value.Value{}, err
	}
	k, err := key("Object.contains_key", args)
	if err != nil {
		return value.Value{}, err
	}
	_, ok := o.Fields[k]
	return value.Bool(ok), nil
}

func keys(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Object.keys", args)
	if err != nil {
		return value.Value{}, err
	}
	ks := o.Keys()
	out := make([]value.Value, len(ks))
	for i, k := range ks {
		out[i] = value.String(k)
	}
	return value.Vec(out...), nil
}

func values(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Object.values", args)
	if err != nil {
		return value.Value{}, err
	}
	ks := o.Keys()
	out := make([]value.Value, len(ks))
	for i, k := range ks {
		out[i] = o.Fields[k]
	}
	return value.Vec(out...), nil
}

// intoIter iterates over (key, value) tuples in key order.
func intoIter(env builtins.Env, args []value.Value) (value.Value, error) {
	o, err := receiver("Object.iter", args)
	if err != nil {
		return value.Value{}, err
	}
	ks := o.Keys()
	pairs := make([]value.Value, len(ks))
	for i, k := range ks {
		pairs[i] = value.Tuple(value.String(k), o.Fields[k])
	}
	return iter.Slice("object", pairs), nil
}
