// Package vm executes compiled units.
package vm

import (
	"context"
	"fmt"
	"io"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/runtime"
	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/value"
)

var (
	ErrPanic           = builtins.ErrPanic
	ErrMissingFunction = errors.New("missing function")
	ErrArgumentCount   = errors.New("wrong number of arguments")
	ErrStackOverflow   = errors.New("call depth exceeded")
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrBadOperand      = errors.New("bad operand")
)

// DefaultMaxDepth bounds the depth of nested calls.
const DefaultMaxDepth = 1024

// Error is a runtime error with the instruction it happened at.
type Error struct {
	Fn  item.Item
	IP  int
	Op  ir.Instruction
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v at %d (%v): %v", e.Fn, e.IP, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// VM is a stack-based virtual machine for compiled units. A VM runs one
// call at a time; async functions run on forks sharing the unit.
type VM struct {
	unit *ir.Unit
	rt   *runtime.Context
	env  *runtime.Env

	MaxDepth int

	ctx   context.Context
	stack []value.Value
	depth int
}

// New creates a VM. rt may be nil for units that do not use natives, env
// defaults to runtime.DefaultEnv.
func New(unit *ir.Unit, rt *runtime.Context, env *runtime.Env) *VM {
	if env == nil {
		env = runtime.DefaultEnv()
	}

	return &VM{
		unit:     unit,
		rt:       rt,
		env:      env,
		MaxDepth: DefaultMaxDepth,
		ctx:      context.Background(),
		stack:    make([]value.Value, 0, 256),
	}
}

// fork returns a VM with its own stack sharing everything else.
func (vm *VM) fork() *VM {
	return &VM{
		unit:     vm.unit,
		rt:       vm.rt,
		env:      vm.env,
		MaxDepth: vm.MaxDepth,
		ctx:      vm.ctx,
		stack:    make([]value.Value, 0, 64),
	}
}

// Call calls the function at path with args.
func (vm *VM) Call(ctx context.Context, path item.Item, args ...value.Value) (value.Value, error) {
	return vm.CallHash(ctx, hash.TypeHash(path), args...)
}

// CallHash calls the function registered under h.
func (vm *VM) CallHash(ctx context.Context, h hash.Hash, args ...value.Value) (value.Value, error) {
	prev := vm.ctx
	vm.ctx = ctx
	defer func() { vm.ctx = prev }()

	tlog.V("vm").Printw("call", "hash", h, "args", len(args))

	vm.pushArgs(args)
	return vm.callHash(h, len(args))
}

// pushArgs pushes args in calling order: the last argument first.
func (vm *VM) pushArgs(args []value.Value) {
	for i := len(args) - 1; i >= 0; i-- {
		vm.push(args[i])
	}
}

// push/pop

func (vm *VM) push(v value.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() (value.Value, error) {
	if len(vm.stack) == 0 {
		return value.Value{}, ErrStackUnderflow
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) peek() (value.Value, error) {
	if len(vm.stack) == 0 {
		return value.Value{}, ErrStackUnderflow
	}
	return vm.stack[len(vm.stack)-1], nil
}

// popN pops n values. The first value popped is out[0].
func (vm *VM) popN(n int) ([]value.Value, error) {
	if n < 0 || n > len(vm.stack) {
		return nil, ErrStackUnderflow
	}
	out := make([]value.Value, n)
	for i := range out {
		out[i] = vm.stack[len(vm.stack)-1-i]
	}
	vm.truncate(len(vm.stack) - n)
	return out, nil
}

func (vm *VM) truncate(n int) {
	if n >= len(vm.stack) {
		return
	}
	for i := n; i < len(vm.stack); i++ {
		vm.stack[i] = value.Value{}
	}
	vm.stack = vm.stack[:n]
}

func (vm *VM) slot(base, offset int) (int, error) {
	i := base + offset
	if offset < 0 || i >= len(vm.stack) {
		return 0, errors.Wrap(ErrBadOperand, "offset %d outside of frame", offset)
	}
	return i, nil
}

// builtins.Env

func (vm *VM) Context() context.Context { return vm.ctx }

func (vm *VM) Stdout() io.Writer { return vm.env.Stdout() }

// callFromNative calls a function value on behalf of a native.
func (vm *VM) callFromNative(fn value.Value, args ...value.Value) (value.Value, error) {
	vm.pushArgs(args)
	return vm.callValue(fn, len(args))
}

// nativeEnv adapts the VM to builtins.Env.
type nativeEnv struct{ *VM }

func (e nativeEnv) Call(fn value.Value, args ...value.Value) (value.Value, error) {
	return e.callFromNative(fn, args...)
}
