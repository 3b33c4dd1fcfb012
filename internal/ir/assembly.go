package ir

import (
	"fmt"

	"github.com/nikandfor/errors"

	"github.com/therealbnut/rune/internal/token"
)

var (
	ErrLabelPinned  = errors.New("label pinned twice")
	ErrMissingLabel = errors.New("label never pinned")
	ErrUnknownLabel = errors.New("label from another assembly")
)

// Label is a jump target inside one Assembly. It may be jumped to before
// it is pinned to a position.
type Label struct {
	Name string
	ID   int
}

func (l Label) String() string {
	return fmt.Sprintf("%s_%d", l.Name, l.ID)
}

// Assembly is the instruction buffer for one function. Jumps refer to
// labels and are only turned into addresses when the assembly is added to
// a Unit.
type Assembly struct {
	Span     token.Span
	Code     []Instruction
	Spans    []token.Span
	Comments map[int]string

	labels []int // position by label id, -1 while unpinned
	names  []string
}

func NewAssembly(span token.Span) *Assembly {
	return &Assembly{
		Span:     span,
		Comments: make(map[int]string),
	}
}

// Len returns the number of instructions emitted so far.
func (a *Assembly) Len() int {
	return len(a.Code)
}

// NewLabel creates an unpinned label.
func (a *Assembly) NewLabel(name string) Label {
	l := Label{Name: name, ID: len(a.labels)}
	a.labels = append(a.labels, -1)
	a.names = append(a.names, name)
	return l
}

// Label pins l to the position of the next instruction.
func (a *Assembly) Label(l Label) error {
	if l.ID < 0 || l.ID >= len(a.labels) {
		return errors.Wrap(ErrUnknownLabel, "%v", l)
	}
	if a.labels[l.ID] >= 0 {
		return errors.Wrap(ErrLabelPinned, "%v", l)
	}
	a.labels[l.ID] = len(a.Code)
	return nil
}

// Push appends an instruction attributed to span.
func (a *Assembly) Push(in Instruction, span token.Span) {
	a.Code = append(a.Code, in)
	a.Spans = append(a.Spans, span)
}

// PushWithComment appends an instruction and annotates it for dumps.
func (a *Assembly) PushWithComment(in Instruction, span token.Span, comment string) {
	a.Comments[len(a.Code)] = comment
	a.Push(in, span)
}

// Emit appends an instruction that only needs the A and B operands.
func (a *Assembly) Emit(op OpCode, x, y int, span token.Span) {
	a.Push(Instruction{Op: op, A: x, B: y}, span)
}

func (a *Assembly) Jump(l Label, span token.Span) {
	a.Emit(OpJump, l.ID, 0, span)
}

func (a *Assembly) JumpIf(l Label, span token.Span) {
	a.Emit(OpJumpIf, l.ID, 0, span)
}

func (a *Assembly) JumpIfNot(l Label, span token.Span) {
	a.Emit(OpJumpIfNot, l.ID, 0, span)
}

// JumpIfBranch jumps to l if the branch index on top of the stack equals
// branch.
func (a *Assembly) JumpIfBranch(branch int, l Label, span token.Span) {
	a.Emit(OpJumpIfBranch, l.ID, branch, span)
}

// PopAndJumpIfNot pops count values before jumping when the condition is
// false. With a zero count it is a plain JumpIfNot.
func (a *Assembly) PopAndJumpIfNot(count int, l Label, span token.Span) {
	if count == 0 {
		a.JumpIfNot(l, span)
		return
	}
	a.Emit(OpPopAndJumpIfNot, l.ID, count, span)
}

// resolve returns a copy of the code with every label replaced by the
// absolute address it is pinned to, given the address of the first
// instruction.
func (a *Assembly) resolve(base int) ([]Instruction, error) {
	out := make([]Instruction, len(a.Code))
	copy(out, a.Code)

	for i, in := range out {
		if !in.Op.IsJump() {
			continue
		}
		if in.A < 0 || in.A >= len(a.labels) {
			return nil, errors.Wrap(ErrUnknownLabel, "instruction %d: %v", i, in)
		}
		pos := a.labels[in.A]
		if pos < 0 {
			return nil, errors.Wrap(ErrMissingLabel, "%v", Label{Name: a.names[in.A], ID: in.A})
		}
		out[i].A = base + pos
	}

	return out, nil
}

// LabelAt returns the labels pinned at instruction i, for dumps.
func (a *Assembly) LabelAt(i int) []Label {
	var out []Label
	for id, pos := range a.labels {
		if pos == i {
			out = append(out, Label{Name: a.names[id], ID: id})
		}
	}
	return out
}
