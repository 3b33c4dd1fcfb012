package vm

import (
	"context"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/value"
)

// callHash calls the function, constructor or native registered under h
// with the top n values of the stack as arguments.
func (vm *VM) callHash(h hash.Hash, n int) (value.Value, error) {
	if fn, ok := vm.unit.Functions[h]; ok {
		return vm.callFn(fn, n, nil)
	}
	if t, ok := vm.unit.Types[h]; ok {
		return vm.construct(t, n)
	}
	if vm.rt != nil {
		if nat, ok := vm.rt.LookupFunction(h); ok {
			args, err := vm.popN(n)
			if err != nil {
				return value.Value{}, err
			}
			if nat.Args >= 0 && nat.Args != n {
				return value.Value{}, errors.Wrap(ErrArgumentCount, "%v takes %d, got %d", nat.Item, nat.Args, n)
			}
			out, err := nat.Call(nativeEnv{vm}, args)
			if err != nil {
				return value.Value{}, errors.Wrap(err, "%v", nat.Item)
			}
			return out, nil
		}
	}

	return value.Value{}, errors.Wrap(ErrMissingFunction, "%v", h)
}

// exists reports whether h can be called.
func (vm *VM) exists(h hash.Hash) bool {
	if _, ok := vm.unit.Functions[h]; ok {
		return true
	}
	if vm.rt != nil {
		if _, ok := vm.rt.LookupFunction(h); ok {
			return true
		}
	}
	return false
}

// callValue calls a function value with the top n values as arguments.
func (vm *VM) callValue(fv value.Value, n int) (value.Value, error) {
	if fv.Kind != value.KindFunction {
		return value.Value{}, errors.Wrap(ErrBadOperand, "%v is not callable", fv.Kind)
	}

	if fv.Fn.Env != nil {
		fn, ok := vm.unit.Functions[fv.Fn.Hash]
		if !ok || !fn.Closure {
			return value.Value{}, errors.Wrap(ErrMissingFunction, "closure %v", fv.Fn.Hash)
		}
		return vm.callFn(fn, n, fv.Fn.Env)
	}

	return vm.callHash(fv.Fn.Hash, n)
}

// callFn calls a compiled function. Closures get env as a tuple after the
// arguments. Async functions return a future which runs the body on a
// fork of the VM when awaited.
func (vm *VM) callFn(fn *ir.UnitFn, n int, env *value.Seq) (value.Value, error) {
	if n != fn.Args {
		return value.Value{}, errors.Wrap(ErrArgumentCount, "%v takes %d, got %d", fn.Item, fn.Args, n)
	}
	if fn.Closure && env == nil {
		env = &value.Seq{}
	}

	base := len(vm.stack) - n
	if base < 0 {
		return value.Value{}, ErrStackUnderflow
	}
	if fn.Closure {
		vm.push(value.Value{Kind: value.KindTuple, Seq: env})
	}

	if fn.Call == ir.CallAsync {
		frame := append([]value.Value(nil), vm.stack[base:]...)
		vm.truncate(base)

		child := vm.fork()
		f := value.NewFuture(func(ctx context.Context) (value.Value, error) {
			child.ctx = ctx
			child.stack = append(child.stack, frame...)
			return child.run(fn, 0)
		})
		return value.FromFuture(f), nil
	}

	return vm.run(fn, base)
}

// construct builds a value of a script declared tuple type or variant.
func (vm *VM) construct(t *ir.UnitType, n int) (value.Value, error) {
	if n != t.Args {
		return value.Value{}, errors.Wrap(ErrArgumentCount, "%v takes %d, got %d", t.Item, t.Args, n)
	}
	args, err := vm.popN(n)
	if err != nil {
		return value.Value{}, err
	}

	switch t.Kind {
	case ir.MetaTuple:
		return value.TypedTuple(t.Hash, args...), nil
	case ir.MetaVariantTuple:
		return value.VariantTuple(t.EnumHash, t.Hash, args...), nil
	}

	return value.Value{}, errors.Wrap(ErrBadOperand, "%v cannot be called", t.Item)
}

// run executes fn with its frame starting at base and returns with the
// stack truncated to base.
func (vm *VM) run(fn *ir.UnitFn, base int) (value.Value, error) {
	if vm.depth >= vm.MaxDepth {
		return value.Value{}, errors.Wrap(ErrStackOverflow, "%v", fn.Item)
	}
	vm.depth++
	defer func() { vm.depth-- }()

	out, err := vm.execute(fn, base)
	vm.truncate(base)
	return out, err
}
