package compiler

import (
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/token"
)

// Loop is an enclosing loop that break can target.
type Loop struct {
	Label      string
	LabelSpan  token.Span
	BreakLabel ir.Label

	// TotalVarCount is the number of slots in use when the loop was
	// entered. Breaking out pops everything above it.
	TotalVarCount int
	Needs         Needs

	// Drop is the offset of a temporary the loop owns, or -1.
	Drop int

	used bool
}

type Loops struct {
	loops []*Loop
}

func (l *Loops) Push(loop *Loop) {
	l.loops = append(l.loops, loop)
}

func (l *Loops) Pop() *Loop {
	n := len(l.loops)
	if n == 0 {
		return nil
	}
	last := l.loops[n-1]
	l.loops = l.loops[:n-1]
	return last
}

// Last returns the innermost loop.
func (l *Loops) Last() (*Loop, bool) {
	if len(l.loops) == 0 {
		return nil, false
	}
	return l.loops[len(l.loops)-1], true
}

// Iter returns the loops from the innermost outwards.
func (l *Loops) Iter() []*Loop {
	out := make([]*Loop, len(l.loops))
	for i, loop := range l.loops {
		out[len(l.loops)-1-i] = loop
	}
	return out
}

// WalkUntilLabel finds the loop labelled label, collecting the temporaries
// of every loop on the way, the target included.
func (l *Loops) WalkUntilLabel(label string, span token.Span) (*Loop, []int, error) {
	var drop []int

	for _, loop := range l.Iter() {
		if loop.Drop >= 0 {
			drop = append(drop, loop.Drop)
		}
		if loop.Label == label {
			loop.used = true
			return loop, drop, nil
		}
	}

	return nil, nil, errorf(KindMissingLabel, span, "missing loop label `'%s`", label)
}
