package vm

import (
	"strings"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/runtime/builtins/iter"
	"github.com/therealbnut/rune/internal/value"
)

// execute is the interpreter loop for one call of fn.
func (vm *VM) execute(fn *ir.UnitFn, base int) (value.Value, error) {
	end := fn.Offset + fn.Len

	for ip := fn.Offset; ip < end; {
		if err := vm.ctx.Err(); err != nil {
			return value.Value{}, err
		}

		in := vm.unit.Instructions[ip]
		next := ip + 1

		ret, done, jump, err := vm.step(in, base)
		if err != nil {
			var verr *Error
			if errors.As(err, &verr) {
				return value.Value{}, err
			}
			return value.Value{}, &Error{Fn: fn.Item, IP: ip, Op: in, Err: err}
		}
		if done {
			return ret, nil
		}
		if jump >= 0 {
			next = jump
		}

		ip = next
	}

	return value.Value{}, &Error{Fn: fn.Item, IP: end, Err: errors.Wrap(ErrBadOperand, "fell off the end of the function")}
}

// step executes one instruction. It returns done with the return value
// for returns and a non-negative jump for taken jumps.
func (vm *VM) step(in ir.Instruction, base int) (ret value.Value, done bool, jump int, err error) {
	jump = -1

	switch in.Op {
	// stack
	case ir.OpPop:
		_, err = vm.pop()
	case ir.OpPopN:
		_, err = vm.popN(in.A)
	case ir.OpClean:
		var top value.Value
		if top, err = vm.pop(); err != nil {
			break
		}
		if _, err = vm.popN(in.A); err != nil {
			break
		}
		vm.push(top)
	case ir.OpUnit:
		vm.push(value.Unit())
	case ir.OpDup:
		var top value.Value
		if top, err = vm.peek(); err == nil {
			vm.push(top)
		}
	case ir.OpDrop:
		var i int
		if i, err = vm.slot(base, in.A); err == nil {
			vm.stack[i] = value.Unit()
		}
	case ir.OpCopy:
		var i int
		if i, err = vm.slot(base, in.A); err == nil {
			vm.push(vm.stack[i])
		}
	case ir.OpReplace:
		var v value.Value
		if v, err = vm.pop(); err != nil {
			break
		}
		var i int
		if i, err = vm.slot(base, in.A); err == nil {
			vm.stack[i] = v
		}
	case ir.OpReturn:
		ret, err = vm.pop()
		done = err == nil
	case ir.OpReturnUnit:
		return value.Unit(), true, -1, nil

	// literals
	case ir.OpInteger:
		vm.push(value.Integer(in.Int))
	case ir.OpFloat:
		vm.push(value.Float(in.Float))
	case ir.OpBool:
		vm.push(value.Bool(in.A != 0))
	case ir.OpChar:
		vm.push(value.Char(rune(in.A)))
	case ir.OpByte:
		vm.push(value.Byte(byte(in.A)))
	case ir.OpString:
		var s string
		if s, err = vm.staticString(in.A); err == nil {
			vm.push(value.String(s))
		}
	case ir.OpBytes:
		if in.A < 0 || in.A >= len(vm.unit.Bytes) {
			err = errors.Wrap(ErrBadOperand, "bytes slot %d", in.A)
			break
		}
		vm.push(value.Bytes(append([]byte(nil), vm.unit.Bytes[in.A]...)))
	case ir.OpStringConcat:
		err = vm.stringConcat(in.A, in.B)
	case ir.OpTuple, ir.OpVec:
		var vals []value.Value
		if vals, err = vm.popN(in.A); err != nil {
			break
		}
		if in.Op == ir.OpTuple {
			vm.push(value.Tuple(vals...))
		} else {
			vm.push(value.Vec(vals...))
		}
	case ir.OpObject, ir.OpTypedObject, ir.OpVariantObject:
		var fields map[string]value.Value
		if fields, err = vm.objectFields(in.A); err != nil {
			break
		}
		switch in.Op {
		case ir.OpObject:
			vm.push(value.NewObject(fields))
		case ir.OpTypedObject:
			vm.push(value.TypedObject(in.Hash, fields))
		default:
			vm.push(value.VariantObject(in.Enum, in.Hash, fields))
		}

	// calls
	case ir.OpCall:
		err = vm.pushResult(vm.callHash(in.Hash, in.A))
	case ir.OpCallInstance:
		var recv value.Value
		if recv, err = vm.peek(); err != nil {
			break
		}
		err = vm.pushResult(vm.callInstance(recv, in.Hash, in.A+1))
	case ir.OpCallFn:
		var callee value.Value
		if callee, err = vm.pop(); err != nil {
			break
		}
		err = vm.pushResult(vm.callValue(callee, in.A))
	case ir.OpLoadInstanceFn:
		var recv value.Value
		if recv, err = vm.pop(); err != nil {
			break
		}
		h := hash.InstanceFunction(value.TypeOf(recv), in.Hash)
		if !vm.exists(h) {
			err = errors.Wrap(ErrMissingFunction, "instance function %v of %v", in.Hash, recv.Kind)
			break
		}
		vm.push(value.Fn(h))
	case ir.OpFn:
		vm.push(value.Fn(in.Hash))
	case ir.OpType:
		vm.push(value.Type(in.Hash))
	case ir.OpClosure:
		if in.A > len(vm.stack) {
			err = ErrStackUnderflow
			break
		}
		env := append([]value.Value(nil), vm.stack[len(vm.stack)-in.A:]...)
		vm.truncate(len(vm.stack) - in.A)
		vm.push(value.Closure(in.Hash, env))

	// access
	case ir.OpTupleIndexGet:
		var v value.Value
		if v, err = vm.pop(); err == nil {
			err = vm.pushResult(tupleIndex(v, in.A))
		}
	case ir.OpTupleIndexGetAt:
		var i int
		if i, err = vm.slot(base, in.A); err == nil {
			err = vm.pushResult(tupleIndex(vm.stack[i], in.B))
		}
	case ir.OpTupleIndexSet:
		err = vm.tupleIndexSet(in.A)
	case ir.OpObjectSlotIndexGet:
		var v value.Value
		if v, err = vm.pop(); err == nil {
			err = vm.pushResult(vm.objectField(v, in.A))
		}
	case ir.OpObjectSlotIndexGetAt:
		var i int
		if i, err = vm.slot(base, in.A); err == nil {
			err = vm.pushResult(vm.objectField(vm.stack[i], in.B))
		}
	case ir.OpIndexGet:
		err = vm.indexGet()
	case ir.OpIndexSet:
		err = vm.indexSet()

	// operators
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpRem,
		ir.OpEq, ir.OpNeq, ir.OpLt, ir.OpGt, ir.OpLte, ir.OpGte,
		ir.OpIs, ir.OpIsNot, ir.OpAnd, ir.OpOr:
		var ops []value.Value
		if ops, err = vm.popN(2); err != nil {
			break
		}
		// ops[0] is the right hand side
		err = vm.pushResult(binary(in.Op, ops[1], ops[0]))
	case ir.OpNot:
		var v value.Value
		if v, err = vm.pop(); err != nil {
			break
		}
		if v.Kind != value.KindBool {
			err = errors.Wrap(ErrBadOperand, "not of %v", v.Kind)
			break
		}
		vm.push(value.Bool(!v.Truthy()))
	case ir.OpAddAssign, ir.OpSubAssign, ir.OpMulAssign, ir.OpDivAssign:
		err = vm.assignOp(in, base)

	// option and result
	case ir.OpIsValue:
		var v value.Value
		if v, err = vm.pop(); err == nil {
			vm.push(value.Bool(v.IsValue()))
		}
	case ir.OpUnwrap:
		var v value.Value
		if v, err = vm.pop(); err == nil {
			err = vm.pushResult(unwrap(v))
		}

	// async
	case ir.OpAwait:
		var v value.Value
		if v, err = vm.pop(); err != nil {
			break
		}
		if v.Kind != value.KindFuture {
			err = errors.Wrap(ErrBadOperand, "await of %v", v.Kind)
			break
		}
		err = vm.pushResult(v.Future.Await(vm.ctx))
	case ir.OpSelect:
		err = vm.selectFutures(in.A)
	case ir.OpYield:
		var v value.Value
		if v, err = vm.pop(); err == nil {
			err = vm.pushResult(vm.env.Yield(vm.ctx, v))
		}
	case ir.OpYieldUnit:
		err = vm.pushResult(vm.env.Yield(vm.ctx, value.Unit()))

	case ir.OpPanic:
		err = errors.Wrap(ErrPanic, "%v", ir.PanicReason(in.A))

	// pattern matching
	case ir.OpMatchSequence:
		var v value.Value
		if v, err = vm.pop(); err == nil {
			vm.push(value.Bool(matchSequence(v, in.Check, in.A, in.Exact)))
		}
	case ir.OpMatchObject:
		var v value.Value
		if v, err = vm.pop(); err != nil {
			break
		}
		if in.A < 0 || in.A >= len(vm.unit.ObjectKeys) {
			err = errors.Wrap(ErrBadOperand, "object keys slot %d", in.A)
			break
		}
		vm.push(value.Bool(matchObject(v, in.Check, vm.unit.ObjectKeys[in.A], in.Exact)))
	case ir.OpIsUnit:
		var v value.Value
		if v, err = vm.pop(); err == nil {
			vm.push(value.Bool(v.Kind == value.KindUnit))
		}
	case ir.OpEqByte:
		var v value.Value
		if v, err = vm.pop(); err == nil {
			vm.push(value.Bool(v.Kind == value.KindByte && v.Int == int64(in.A)))
		}
	case ir.OpEqCharacter:
		var v value.Value
		if v, err = vm.pop(); err == nil {
			vm.push(value.Bool(v.Kind == value.KindChar && v.Int == int64(in.A)))
		}
	case ir.OpEqInteger:
		var v value.Value
		if v, err = vm.pop(); err == nil {
			vm.push(value.Bool(v.Kind == value.KindInteger && v.Int == in.Int))
		}
	case ir.OpEqStaticString:
		var v value.Value
		if v, err = vm.pop(); err != nil {
			break
		}
		var s string
		if s, err = vm.staticString(in.A); err == nil {
			vm.push(value.Bool(v.Kind == value.KindString && v.Str == s))
		}

	// jumps
	case ir.OpJump:
		jump = in.A
	case ir.OpJumpIf, ir.OpJumpIfNot:
		var c value.Value
		if c, err = vm.pop(); err != nil {
			break
		}
		if c.Kind != value.KindBool {
			err = errors.Wrap(ErrBadOperand, "condition is %v", c.Kind)
			break
		}
		if c.Truthy() == (in.Op == ir.OpJumpIf) {
			jump = in.A
		}
	case ir.OpJumpIfBranch:
		var top value.Value
		if top, err = vm.peek(); err != nil {
			break
		}
		if top.Kind == value.KindInteger && top.Int == int64(in.B) {
			_, _ = vm.pop()
			jump = in.A
		}
	case ir.OpPopAndJumpIfNot:
		var c value.Value
		if c, err = vm.pop(); err != nil {
			break
		}
		if c.Kind != value.KindBool {
			err = errors.Wrap(ErrBadOperand, "condition is %v", c.Kind)
			break
		}
		if !c.Truthy() {
			if _, err = vm.popN(in.B); err == nil {
				jump = in.A
			}
		}

	default:
		err = errors.Wrap(ErrBadOperand, "unknown instruction %v", in.Op)
	}

	return ret, done, jump, err
}

func (vm *VM) pushResult(v value.Value, err error) error {
	if err != nil {
		return err
	}
	vm.push(v)
	return nil
}

func (vm *VM) staticString(slot int) (string, error) {
	if slot < 0 || slot >= len(vm.unit.Strings) {
		return "", errors.Wrap(ErrBadOperand, "string slot %d", slot)
	}
	return vm.unit.Strings[slot], nil
}

func (vm *VM) stringConcat(n, hint int) error {
	parts, err := vm.popN(n)
	if err != nil {
		return err
	}

	var sb strings.Builder
	if hint > 0 {
		sb.Grow(hint)
	}
	for _, p := range parts {
		sb.WriteString(p.String())
	}
	vm.push(value.String(sb.String()))
	return nil
}

func (vm *VM) objectFields(slot int) (map[string]value.Value, error) {
	if slot < 0 || slot >= len(vm.unit.ObjectKeys) {
		return nil, errors.Wrap(ErrBadOperand, "object keys slot %d", slot)
	}
	keys := vm.unit.ObjectKeys[slot]

	vals, err := vm.popN(len(keys))
	if err != nil {
		return nil, err
	}

	fields := make(map[string]value.Value, len(keys))
	for i, k := range keys {
		fields[k] = vals[i]
	}
	return fields, nil
}

// callInstance calls name on the receiver on top of the stack. n counts
// the receiver. Iteration over vecs and tuples works without natives.
func (vm *VM) callInstance(recv value.Value, name hash.Hash, n int) (value.Value, error) {
	h := hash.InstanceFunction(value.TypeOf(recv), name)
	if vm.exists(h) {
		return vm.callHash(h, n)
	}

	if name == hash.IntoIter && n == 1 {
		if _, err := vm.pop(); err != nil {
			return value.Value{}, err
		}
		return iter.IntoIter("into_iter", recv)
	}
	if name == hash.Next && n == 1 && recv.Kind == value.KindExternal {
		if it, ok := recv.External.(*iter.Iterator); ok {
			if _, err := vm.pop(); err != nil {
				return value.Value{}, err
			}
			if v, ok := it.Next(); ok {
				return value.Some(v), nil
			}
			return value.None(), nil
		}
	}

	return value.Value{}, errors.Wrap(ErrMissingFunction, "instance function %v of %v", name, recv.Kind)
}

// selectFutures pushes the output of the first future to complete and its
// index. Without futures it pushes () and -1.
func (vm *VM) selectFutures(n int) error {
	if n == 0 {
		vm.push(value.Unit())
		vm.push(value.Integer(-1))
		return nil
	}

	vals, err := vm.popN(n)
	if err != nil {
		return err
	}

	fs := make([]*value.Future, n)
	for i, v := range vals {
		if v.Kind != value.KindFuture {
			return errors.Wrap(ErrBadOperand, "select branch %d is %v, not a future", i, v.Kind)
		}
		fs[i] = v.Future
	}

	out, idx, err := value.Select(vm.ctx, fs)
	if err != nil {
		return err
	}

	vm.push(out)
	vm.push(value.Integer(int64(idx)))
	return nil
}

func unwrap(v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.KindOption, value.KindResult:
		if v.Index == 0 {
			return v.Seq.Values[0], nil
		}
		return value.Value{}, errors.Wrap(ErrPanic, "unwrap of %v", v.Debug())
	}
	return value.Value{}, errors.Wrap(ErrBadOperand, "unwrap of %v", v.Kind)
}
