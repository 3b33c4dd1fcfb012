package vm

import (
	"math"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/value"
)

var ErrDivideByZero = errors.New("division by zero")

// binary applies a binary operator to a and b.
func binary(op ir.OpCode, a, b value.Value) (value.Value, error) {
	switch op {
	case ir.OpEq:
		return value.Bool(value.Equal(a, b)), nil
	case ir.OpNeq:
		return value.Bool(!value.Equal(a, b)), nil
	case ir.OpIs, ir.OpIsNot:
		if b.Kind != value.KindType {
			return value.Value{}, errors.Wrap(ErrBadOperand, "%v is not a type", b.Kind)
		}
		is := value.TypeOf(a) == b.Type
		return value.Bool(is == (op == ir.OpIs)), nil
	case ir.OpAnd, ir.OpOr:
		if a.Kind != value.KindBool || b.Kind != value.KindBool {
			return value.Value{}, errors.Wrap(ErrBadOperand, "%v of (%v, %v)", op, a.Kind, b.Kind)
		}
		if op == ir.OpAnd {
			return value.Bool(a.Truthy() && b.Truthy()), nil
		}
		return value.Bool(a.Truthy() || b.Truthy()), nil
	case ir.OpLt, ir.OpGt, ir.OpLte, ir.OpGte:
		c, err := compare(a, b)
		if err != nil {
			return value.Value{}, err
		}
		switch op {
		case ir.OpLt:
			return value.Bool(c < 0), nil
		case ir.OpGt:
			return value.Bool(c > 0), nil
		case ir.OpLte:
			return value.Bool(c <= 0), nil
		}
		return value.Bool(c >= 0), nil
	}

	return arith(op, a, b)
}

// arith handles the numeric operators and string concatenation.
func arith(op ir.OpCode, a, b value.Value) (value.Value, error) {
	switch {
	case a.Kind == value.KindInteger && b.Kind == value.KindInteger:
		return intOp(op, a.Int, b.Int)
	case a.Kind == value.KindFloat && b.Kind == value.KindFloat:
		return floatOp(op, a.Float, b.Float)
	case a.Kind == value.KindString && b.Kind == value.KindString && (op == ir.OpAdd || op == ir.OpAddAssign):
		return value.String(a.Str + b.Str), nil
	}

	return value.Value{}, errors.Wrap(ErrBadOperand, "%v of (%v, %v)", op, a.Kind, b.Kind)
}

func intOp(op ir.OpCode, a, b int64) (value.Value, error) {
	switch op {
	case ir.OpAdd, ir.OpAddAssign:
		return value.Integer(a + b), nil
	case ir.OpSub, ir.OpSubAssign:
		return value.Integer(a - b), nil
	case ir.OpMul, ir.OpMulAssign:
		return value.Integer(a * b), nil
	case ir.OpDiv, ir.OpDivAssign, ir.OpRem:
		if b == 0 {
			return value.Value{}, ErrDivideByZero
		}
		if op == ir.OpRem {
			return value.Integer(a % b), nil
		}
		return value.Integer(a / b), nil
	}
	return value.Value{}, errors.Wrap(ErrBadOperand, "%v of integers", op)
}

func floatOp(op ir.OpCode, a, b float64) (value.Value, error) {
	switch op {
	case ir.OpAdd, ir.OpAddAssign:
		return value.Float(a + b), nil
	case ir.OpSub, ir.OpSubAssign:
		return value.Float(a - b), nil
	case ir.OpMul, ir.OpMulAssign:
		return value.Float(a * b), nil
	case ir.OpDiv, ir.OpDivAssign:
		return value.Float(a / b), nil
	case ir.OpRem:
		return value.Float(math.Mod(a, b)), nil
	}
	return value.Value{}, errors.Wrap(ErrBadOperand, "%v of floats", op)
}

// compare orders two values of the same primitive kind.
func compare(a, b value.Value) (int, error) {
	if a.Kind != b.Kind {
		return 0, errors.Wrap(ErrBadOperand, "cannot compare %v and %v", a.Kind, b.Kind)
	}

	switch a.Kind {
	case value.KindInteger, value.KindByte, value.KindChar:
		return cmp(a.Int < b.Int, a.Int > b.Int), nil
	case value.KindFloat:
		return cmp(a.Float < b.Float, a.Float > b.Float), nil
	case value.KindString:
		return cmp(a.Str < b.Str, a.Str > b.Str), nil
	}

	return 0, errors.Wrap(ErrBadOperand, "cannot compare %v", a.Kind)
}

func cmp(lt, gt bool) int {
	switch {
	case lt:
		return -1
	case gt:
		return 1
	}
	return 0
}

// assignOp implements `local op= value`.
func (vm *VM) assignOp(in ir.Instruction, base int) error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	i, err := vm.slot(base, in.A)
	if err != nil {
		return err
	}

	out, err := arith(in.Op, vm.stack[i], v)
	if err != nil {
		return err
	}
	vm.stack[i] = out
	return nil
}

func tupleIndex(v value.Value, i int) (value.Value, error) {
	vals, ok := v.Elements()
	if !ok {
		return value.Value{}, errors.Wrap(ErrBadOperand, "%v has no index %d", v.Kind, i)
	}
	if i < 0 || i >= len(vals) {
		return value.Value{}, errors.Wrap(ErrBadOperand, "index %d out of range [0:%d)", i, len(vals))
	}
	return vals[i], nil
}

// tupleIndexSet pops the target and the value.
func (vm *VM) tupleIndexSet(i int) error {
	ops, err := vm.popN(2)
	if err != nil {
		return err
	}
	target, v := ops[0], ops[1]

	vals, ok := target.Elements()
	if !ok || target.Kind == value.KindUnit {
		return errors.Wrap(ErrBadOperand, "%v has no index %d", target.Kind, i)
	}
	if i < 0 || i >= len(vals) {
		return errors.Wrap(ErrBadOperand, "index %d out of range [0:%d)", i, len(vals))
	}
	vals[i] = v
	return nil
}

func (vm *VM) objectField(v value.Value, slot int) (value.Value, error) {
	key, err := vm.staticString(slot)
	if err != nil {
		return value.Value{}, err
	}
	fields, ok := v.Fields()
	if !ok {
		return value.Value{}, errors.Wrap(ErrBadOperand, "%v has no field %q", v.Kind, key)
	}
	f, ok := fields[key]
	if !ok {
		return value.Value{}, errors.Wrap(ErrBadOperand, "missing field %q", key)
	}
	return f, nil
}

var (
	indexGetFn = hash.Of("index_get")
	indexSetFn = hash.Of("index_set")
)

// indexGet pops the target and the index. Externals implement indexing
// with index_get.
func (vm *VM) indexGet() error {
	ops, err := vm.popN(2)
	if err != nil {
		return err
	}
	target, index := ops[0], ops[1]

	switch target.Kind {
	case value.KindVec, value.KindTuple:
		if index.Kind != value.KindInteger {
			return errors.Wrap(ErrBadOperand, "%v index is %v", target.Kind, index.Kind)
		}
		return vm.pushResult(tupleIndex(target, int(index.Int)))
	case value.KindObject, value.KindTypedObject, value.KindVariantObject:
		if index.Kind != value.KindString {
			return errors.Wrap(ErrBadOperand, "object index is %v", index.Kind)
		}
		f, ok := target.Obj.Fields[index.Str]
		if !ok {
			return errors.Wrap(ErrBadOperand, "missing field %q", index.Str)
		}
		vm.push(f)
		return nil
	}

	vm.push(index)
	vm.push(target)
	return vm.pushResult(vm.callInstance(target, indexGetFn, 2))
}

// indexSet pops the target, the index and the value.
func (vm *VM) indexSet() error {
	ops, err := vm.popN(3)
	if err != nil {
		return err
	}
	target, index, v := ops[0], ops[1], ops[2]

	switch target.Kind {
	case value.KindVec, value.KindTuple:
		if index.Kind != value.KindInteger {
			return errors.Wrap(ErrBadOperand, "%v index is %v", target.Kind, index.Kind)
		}
		vals := target.Seq.Values
		if index.Int < 0 || index.Int >= int64(len(vals)) {
			return errors.Wrap(ErrBadOperand, "index %d out of range [0:%d)", index.Int, len(vals))
		}
		vals[index.Int] = v
		return nil
	case value.KindObject, value.KindTypedObject, value.KindVariantObject:
		if index.Kind != value.KindString {
			return errors.Wrap(ErrBadOperand, "object index is %v", index.Kind)
		}
		if target.Obj.Fields == nil {
			target.Obj.Fields = make(map[string]value.Value)
		}
		target.Obj.Fields[index.Str] = v
		return nil
	}

	vm.push(v)
	vm.push(index)
	vm.push(target)
	_, err = vm.callInstance(target, indexSetFn, 3)
	return err
}
