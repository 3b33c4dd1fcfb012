package compiler

// Needs tells an expression what is required of its result.
type Needs uint8

const (
	// NeedsNone compiles for side effects only.
	NeedsNone Needs = iota
	// NeedsType asks for the type of a path rather than its value, as on
	// the right-hand side of `is`.
	NeedsType
	NeedsValue
)

// Value reports whether the expression has to leave a result on the stack.
func (n Needs) Value() bool {
	return n != NeedsNone
}

func (n Needs) String() string {
	switch n {
	case NeedsNone:
		return "none"
	case NeedsType:
		return "type"
	default:
		return "value"
	}
}
