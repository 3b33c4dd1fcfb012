package compiler

import (
	"fmt"

	"github.com/therealbnut/rune/internal/token"
)

type WarningKind int

const (
	WarnNotUsed WarningKind = iota
	WarnRemoveTupleCallParens
	WarnLetPatternMightPanic
	WarnBreakDoesNotProduceValue
	WarnTemplateWithoutExpansions
	WarnUnusedLoopLabel
)

var warningNames = [...]string{
	WarnNotUsed:                   "value not used",
	WarnRemoveTupleCallParens:     "unnecessary parentheses on call of unit constructor",
	WarnLetPatternMightPanic:      "let binding might panic",
	WarnBreakDoesNotProduceValue:  "break does not produce a value",
	WarnTemplateWithoutExpansions: "template string without expansions",
	WarnUnusedLoopLabel:           "unused loop label",
}

func (k WarningKind) String() string {
	if int(k) < len(warningNames) {
		return warningNames[k]
	}
	return fmt.Sprintf("warning(%d)", int(k))
}

// Warning is a non-fatal diagnostic.
type Warning struct {
	Kind WarningKind
	Span token.Span

	// Context is the enclosing block or function, if any.
	Context *token.Span

	// Extra is the span of the redundant parentheses for
	// WarnRemoveTupleCallParens, or the label for WarnUnusedLoopLabel.
	Extra token.Span
}

func (w Warning) String() string {
	return w.Kind.String()
}

// Warnings collects diagnostics from a compilation.
type Warnings struct {
	list []Warning
}

func NewWarnings() *Warnings {
	return &Warnings{}
}

func (w *Warnings) push(kind WarningKind, span token.Span, ctx *token.Span) *Warning {
	w.list = append(w.list, Warning{Kind: kind, Span: span, Context: ctx})
	return &w.list[len(w.list)-1]
}

func (w *Warnings) NotUsed(span token.Span, ctx *token.Span) {
	w.push(WarnNotUsed, span, ctx)
}

func (w *Warnings) RemoveTupleCallParens(span, tuple token.Span, ctx *token.Span) {
	w.push(WarnRemoveTupleCallParens, span, ctx).Extra = tuple
}

func (w *Warnings) LetPatternMightPanic(span token.Span, ctx *token.Span) {
	w.push(WarnLetPatternMightPanic, span, ctx)
}

func (w *Warnings) BreakDoesNotProduceValue(span token.Span, ctx *token.Span) {
	w.push(WarnBreakDoesNotProduceValue, span, ctx)
}

func (w *Warnings) TemplateWithoutExpansions(span token.Span, ctx *token.Span) {
	w.push(WarnTemplateWithoutExpansions, span, ctx)
}

func (w *Warnings) UnusedLoopLabel(span token.Span, ctx *token.Span) {
	w.push(WarnUnusedLoopLabel, span, ctx)
}

func (w *Warnings) Len() int {
	return len(w.list)
}

func (w *Warnings) All() []Warning {
	return w.list
}
