package ir

import (
	"github.com/nikandfor/errors"
)

var ErrStackImbalance = errors.New("stack imbalance")

// StackEffect returns how many values an instruction pops and pushes when
// execution falls through to the next instruction.
func (u *Unit) StackEffect(in Instruction) (pops, pushes int) {
	switch in.Op {
	case OpPop, OpReplace, OpAddAssign, OpSubAssign, OpMulAssign, OpDivAssign,
		OpJumpIf, OpJumpIfNot, OpPopAndJumpIfNot:
		return 1, 0
	case OpPopN:
		return in.A, 0
	case OpClean:
		return in.A + 1, 1
	case OpUnit, OpCopy, OpInteger, OpFloat, OpBool, OpChar, OpByte, OpString, OpBytes,
		OpFn, OpType, OpTupleIndexGetAt, OpObjectSlotIndexGetAt, OpYieldUnit:
		return 0, 1
	case OpDup:
		return 1, 2
	case OpDrop, OpJump, OpJumpIfBranch, OpReturnUnit, OpPanic:
		return 0, 0
	case OpReturn:
		return 1, 0
	case OpStringConcat, OpTuple, OpVec, OpCall, OpClosure:
		return in.A, 1
	case OpObject, OpTypedObject, OpVariantObject:
		if in.A >= 0 && in.A < len(u.ObjectKeys) {
			return len(u.ObjectKeys[in.A]), 1
		}
		return 0, 1
	case OpCallInstance, OpCallFn:
		return in.A + 1, 1
	case OpTupleIndexSet:
		return 2, 0
	case OpIndexGet:
		return 2, 1
	case OpIndexSet:
		return 3, 0
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpEq, OpNeq, OpLt, OpGt, OpLte, OpGte,
		OpIs, OpIsNot, OpAnd, OpOr:
		return 2, 1
	case OpSelect:
		return in.A, 2
	}

	// Unary: Not, IsValue, Unwrap, Await, Yield, LoadInstanceFn, the
	// matchers and the field getters.
	return 1, 1
}

// Verify walks every path through each function and checks that stack
// depths agree where paths join, that nothing pops below the start of the
// frame and that every path ends in a return or panic.
func (u *Unit) Verify() error {
	seen := make(map[*UnitFn]bool)
	for _, h := range u.fnOrder {
		fn := u.Functions[h]
		if seen[fn] {
			continue
		}
		seen[fn] = true

		if err := u.verifyFn(fn); err != nil {
			return errors.Wrap(err, "%v", fn.Item)
		}
	}
	return nil
}

func (u *Unit) verifyFn(fn *UnitFn) error {
	entry := fn.Args
	if fn.Closure {
		entry++
	}
	_, err := u.Depths(fn.Offset, fn.Len, entry)
	return err
}

// Depths returns the stack depth before each instruction of the range
// [offset, offset+n) given the depth at entry. Unreachable instructions
// have depth -1.
func (u *Unit) Depths(offset, n, entry int) ([]int, error) {
	depth := make([]int, n)
	for i := range depth {
		depth[i] = -1
	}

	type state struct{ ip, d int }
	work := []state{{0, entry}}

	visit := func(ip, d int) error {
		if ip < 0 || ip >= n {
			return errors.Wrap(ErrStackImbalance, "jump out of function to %d", offset+ip)
		}
		if d < 0 {
			return errors.Wrap(ErrStackImbalance, "negative depth at %d", offset+ip)
		}
		switch depth[ip] {
		case -1:
			depth[ip] = d
			work = append(work, state{ip, d})
		case d:
		default:
			return errors.Wrap(ErrStackImbalance, "depth %d and %d meet at %d", depth[ip], d, offset+ip)
		}
		return nil
	}

	depth[0] = entry
	for len(work) > 0 {
		s := work[len(work)-1]
		work = work[:len(work)-1]

		in := u.Instructions[offset+s.ip]
		pops, pushes := u.StackEffect(in)
		if s.d < pops {
			return nil, errors.Wrap(ErrStackImbalance, "%v pops %d of %d at %d", in, pops, s.d, offset+s.ip)
		}
		next := s.d - pops + pushes

		switch in.Op {
		case OpReturn:
			if s.d < 1 {
				return nil, errors.Wrap(ErrStackImbalance, "return without value at %d", offset+s.ip)
			}
			continue
		case OpReturnUnit, OpPanic:
			continue
		case OpJump:
			if err := visit(in.A-offset, next); err != nil {
				return nil, err
			}
			continue
		case OpJumpIf, OpJumpIfNot:
			if err := visit(in.A-offset, next); err != nil {
				return nil, err
			}
		case OpJumpIfBranch:
			if err := visit(in.A-offset, next-1); err != nil {
				return nil, err
			}
		case OpPopAndJumpIfNot:
			if err := visit(in.A-offset, next-in.B); err != nil {
				return nil, err
			}
		}

		if err := visit(s.ip+1, next); err != nil {
			return nil, err
		}
	}

	return depth, nil
}
