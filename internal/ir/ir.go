package ir

import (
	"fmt"
	"strings"

	"github.com/therealbnut/rune/internal/hash"
)

// OpCode is an opcode for Rune VM bytecode
type OpCode byte

const (
	// Stack
	OpPop        OpCode = iota // pop one value
	OpPopN                     // A = count; pop A values
	OpClean                    // A = count; pop the top, pop A values, push the top back
	OpUnit                     // push ()
	OpDup                      // duplicate the top of the stack
	OpDrop                     // A = offset; release the value at offset
	OpCopy                     // A = offset; push a copy of the value at offset
	OpReplace                  // A = offset; pop top and store it at offset
	OpReturn                   // pop top and return it
	OpReturnUnit               // return ()

	// Literals
	OpInteger       // Int = value
	OpFloat         // Float = value
	OpBool          // A = 0 or 1
	OpChar          // A = rune
	OpByte          // A = byte
	OpString        // A = static string slot
	OpBytes         // A = static bytes slot
	OpStringConcat  // A = number of values, B = size hint
	OpTuple         // A = count; pop A values, first popped is element 0
	OpVec           // A = count; pop A values, first popped is element 0
	OpObject        // A = static object keys slot; pop one value per key
	OpTypedObject   // Hash = struct type, A = keys slot
	OpVariantObject // Enum = enum type, Hash = variant, A = keys slot

	// Calls
	OpCall           // Hash = function, A = number of arguments
	OpCallInstance   // Hash = function name, A = number of arguments; receiver on top
	OpCallFn         // A = number of arguments; callee on top
	OpLoadInstanceFn // Hash = function name; pop receiver, push the resolved function
	OpFn             // Hash = function; push a function pointer
	OpType           // Hash = type; push a type value
	OpClosure        // Hash = closure function, A = number of captured values

	// Access
	OpTupleIndexGet        // A = index; pop tuple, push element
	OpTupleIndexGetAt      // A = offset, B = index; push element of the tuple at offset
	OpTupleIndexSet        // A = index; pop target, pop value
	OpObjectSlotIndexGet   // A = static string slot; pop object, push field
	OpObjectSlotIndexGetAt // A = offset, B = static string slot
	OpIndexGet             // pop target, pop index, push element
	OpIndexSet             // pop target, pop index, pop value

	// Operators
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLte
	OpGte
	OpIs
	OpIsNot
	OpAnd
	OpOr
	OpNot
	OpAddAssign // A = offset
	OpSubAssign // A = offset
	OpMulAssign // A = offset
	OpDivAssign // A = offset

	// Option and Result
	OpIsValue // pop value, push false for None and Err, true otherwise
	OpUnwrap  // pop Some(v) or Ok(v), push v

	// Async
	OpAwait     // pop future, push its output
	OpSelect    // A = number of futures; push the winning output, then its branch index
	OpYield     // pop value and yield it
	OpYieldUnit // yield ()

	OpPanic // A = PanicReason

	// Pattern matching
	OpMatchSequence  // Check, A = length, Exact; pop value, push bool
	OpMatchObject    // Check, A = keys slot, Exact; pop value, push bool
	OpIsUnit         // pop value, push bool
	OpEqByte         // A = byte; pop value, push bool
	OpEqCharacter    // A = rune; pop value, push bool
	OpEqInteger      // Int = value; pop value, push bool
	OpEqStaticString // A = static string slot; pop value, push bool

	// Jumps. A is a label id while assembling and an absolute ip once the
	// function has been added to a unit.
	OpJump
	OpJumpIf          // pop condition
	OpJumpIfNot       // pop condition
	OpJumpIfBranch    // B = branch; if top equals B, pop it and jump
	OpPopAndJumpIfNot // B = count; pop condition, if false pop B values and jump
)

var opNames = [...]string{
	OpPop:                  "pop",
	OpPopN:                 "pop-n",
	OpClean:                "clean",
	OpUnit:                 "unit",
	OpDup:                  "dup",
	OpDrop:                 "drop",
	OpCopy:                 "copy",
	OpReplace:              "replace",
	OpReturn:               "return",
	OpReturnUnit:           "return-unit",
	OpInteger:              "integer",
	OpFloat:                "float",
	OpBool:                 "bool",
	OpChar:                 "char",
	OpByte:                 "byte",
	OpString:               "string",
	OpBytes:                "bytes",
	OpStringConcat:         "string-concat",
	OpTuple:                "tuple",
	OpVec:                  "vec",
	OpObject:               "object",
	OpTypedObject:          "typed-object",
	OpVariantObject:        "variant-object",
	OpCall:                 "call",
	OpCallInstance:         "call-instance",
	OpCallFn:               "call-fn",
	OpLoadInstanceFn:       "load-instance-fn",
	OpFn:                   "fn",
	OpType:                 "type",
	OpClosure:              "closure",
	OpTupleIndexGet:        "tuple-index-get",
	OpTupleIndexGetAt:      "tuple-index-get-at",
	OpTupleIndexSet:        "tuple-index-set",
	OpObjectSlotIndexGet:   "object-slot-index-get",
	OpObjectSlotIndexGetAt: "object-slot-index-get-at",
	OpIndexGet:             "index-get",
	OpIndexSet:             "index-set",
	OpAdd:                  "add",
	OpSub:                  "sub",
	OpMul:                  "mul",
	OpDiv:                  "div",
	OpRem:                  "rem",
	OpEq:                   "eq",
	OpNeq:                  "neq",
	OpLt:                   "lt",
	OpGt:                   "gt",
	OpLte:                  "lte",
	OpGte:                  "gte",
	OpIs:                   "is",
	OpIsNot:                "is-not",
	OpAnd:                  "and",
	OpOr:                   "or",
	OpNot:                  "not",
	OpAddAssign:            "add-assign",
	OpSubAssign:            "sub-assign",
	OpMulAssign:            "mul-assign",
	OpDivAssign:            "div-assign",
	OpIsValue:              "is-value",
	OpUnwrap:               "unwrap",
	OpAwait:                "await",
	OpSelect:               "select",
	OpYield:                "yield",
	OpYieldUnit:            "yield-unit",
	OpPanic:                "panic",
	OpMatchSequence:        "match-sequence",
	OpMatchObject:          "match-object",
	OpIsUnit:               "is-unit",
	OpEqByte:               "eq-byte",
	OpEqCharacter:          "eq-character",
	OpEqInteger:            "eq-integer",
	OpEqStaticString:       "eq-static-string",
	OpJump:                 "jump",
	OpJumpIf:               "jump-if",
	OpJumpIfNot:            "jump-if-not",
	OpJumpIfBranch:         "jump-if-branch",
	OpPopAndJumpIfNot:      "pop-and-jump-if-not",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", byte(op))
}

// IsJump reports whether A holds a jump target.
func (op OpCode) IsJump() bool {
	return op >= OpJump && op <= OpPopAndJumpIfNot
}

// TypeCheckKind selects what a match instruction tests a value against.
type TypeCheckKind uint8

const (
	CheckTuple TypeCheckKind = iota
	CheckVec
	CheckObject
	CheckType    // Hash = type
	CheckVariant // Hash = variant
	CheckOption  // Index: 0 = Some, 1 = None
	CheckResult  // Index: 0 = Ok, 1 = Err
)

// TypeCheck is the discriminant tested by MatchSequence and MatchObject.
type TypeCheck struct {
	Kind  TypeCheckKind
	Hash  hash.Hash
	Index int
}

func (tc TypeCheck) String() string {
	switch tc.Kind {
	case CheckTuple:
		return "tuple"
	case CheckVec:
		return "vec"
	case CheckObject:
		return "object"
	case CheckType:
		return "type(" + tc.Hash.String() + ")"
	case CheckVariant:
		return "variant(" + tc.Hash.String() + ")"
	case CheckOption:
		return fmt.Sprintf("option(%d)", tc.Index)
	case CheckResult:
		return fmt.Sprintf("result(%d)", tc.Index)
	}
	return fmt.Sprintf("check(%d)", tc.Kind)
}

// PanicReason is the operand of OpPanic.
type PanicReason int

const (
	PanicUnmatchedPattern PanicReason = iota
	PanicNotImplemented
)

func (r PanicReason) String() string {
	switch r {
	case PanicUnmatchedPattern:
		return "pattern did not match"
	case PanicNotImplemented:
		return "not implemented"
	}
	return fmt.Sprintf("panic(%d)", int(r))
}

// Instruction is one bytecode instruction.
// A and B are operands (semantics depend on Op); the remaining fields are
// only used by the instructions that need them.
type Instruction struct {
	Op    OpCode
	A     int
	B     int
	Int   int64
	Float float64
	Hash  hash.Hash
	Enum  hash.Hash
	Check TypeCheck
	Exact bool
}

func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())

	switch in.Op {
	case OpPopN, OpClean, OpDrop, OpCopy, OpReplace, OpBool, OpByte, OpString, OpBytes,
		OpTuple, OpVec, OpObject, OpCallFn, OpTupleIndexGet, OpTupleIndexSet, OpObjectSlotIndexGet,
		OpAddAssign, OpSubAssign, OpMulAssign, OpDivAssign, OpSelect, OpEqByte, OpEqStaticString,
		OpJump, OpJumpIf, OpJumpIfNot:
		fmt.Fprintf(&sb, " %d", in.A)
	case OpChar, OpEqCharacter:
		fmt.Fprintf(&sb, " %q", rune(in.A))
	case OpStringConcat, OpTupleIndexGetAt, OpObjectSlotIndexGetAt, OpJumpIfBranch, OpPopAndJumpIfNot:
		fmt.Fprintf(&sb, " %d, %d", in.A, in.B)
	case OpInteger, OpEqInteger:
		fmt.Fprintf(&sb, " %d", in.Int)
	case OpFloat:
		fmt.Fprintf(&sb, " %g", in.Float)
	case OpTypedObject, OpCall, OpCallInstance, OpClosure:
		fmt.Fprintf(&sb, " %s, %d", in.Hash, in.A)
	case OpVariantObject:
		fmt.Fprintf(&sb, " %s, %s, %d", in.Enum, in.Hash, in.A)
	case OpLoadInstanceFn, OpFn, OpType:
		fmt.Fprintf(&sb, " %s", in.Hash)
	case OpPanic:
		fmt.Fprintf(&sb, " %s", PanicReason(in.A))
	case OpMatchSequence, OpMatchObject:
		fmt.Fprintf(&sb, " %s, %d, exact=%t", in.Check, in.A, in.Exact)
	}

	return sb.String()
}
