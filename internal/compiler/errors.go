package compiler

import (
	"fmt"

	"github.com/nikandfor/loc"

	"github.com/therealbnut/rune/internal/token"
)

// ErrorKind classifies compile errors.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindParse
	KindMissingLocal
	KindMissingType
	KindMissingModule
	KindMissingPreludeModule
	KindMissingLabel
	KindVariableConflict
	KindItemConflict
	KindImportConflict
	KindUnsupportedWildcard
	KindUnsupportedSelf
	KindUnsupportedArgument
	KindUnsupportedArgumentCount
	KindUnsupportedLitObject
	KindLitObjectNotField
	KindLitObjectMissingField
	KindDuplicateObjectKey
	KindUnsupportedAssignExpr
	KindUnsupportedAssignBinOp
	KindUnsupportedFieldAccess
	KindUnsupportedRef
	KindUnsupportedUnaryOp
	KindUnsupportedBinaryOp
	KindBreakOutsideOfLoop
	KindMatchFloatInPattern
	KindUnsupportedPattern
	KindUnsupportedMetaPattern
	KindUnsupportedBinding
	KindUnsupportedSelectPattern
	KindUnsupportedValue
	KindUnsupportedType
	KindUnsupportedMetaClosure
	KindNotFunction
	KindUnsupportedInstanceFunction
	KindMissingMacro
	KindMacroExpansion
)

var kindNames = [...]string{
	KindInternal:                    "internal compiler error",
	KindParse:                       "parse error",
	KindMissingLocal:                "missing local",
	KindMissingType:                 "missing item",
	KindMissingModule:               "missing module",
	KindMissingPreludeModule:        "missing prelude module",
	KindMissingLabel:                "missing loop label",
	KindVariableConflict:            "variable conflict",
	KindItemConflict:                "conflicting item",
	KindImportConflict:              "conflicting import",
	KindUnsupportedWildcard:         "unsupported wildcard",
	KindUnsupportedSelf:             "unsupported self",
	KindUnsupportedArgument:         "unsupported argument",
	KindUnsupportedArgumentCount:    "wrong number of arguments",
	KindUnsupportedLitObject:        "unsupported object literal",
	KindLitObjectNotField:           "not a field",
	KindLitObjectMissingField:       "missing field",
	KindDuplicateObjectKey:          "duplicate object key",
	KindUnsupportedAssignExpr:       "unsupported assignment",
	KindUnsupportedAssignBinOp:      "unsupported assignment operator",
	KindUnsupportedFieldAccess:      "unsupported field access",
	KindUnsupportedRef:              "unsupported reference",
	KindUnsupportedUnaryOp:          "unsupported unary operator",
	KindUnsupportedBinaryOp:         "unsupported binary operator",
	KindBreakOutsideOfLoop:          "break outside of loop",
	KindMatchFloatInPattern:         "float in pattern",
	KindUnsupportedPattern:          "unsupported pattern",
	KindUnsupportedMetaPattern:      "unsupported item in pattern",
	KindUnsupportedBinding:          "unsupported binding",
	KindUnsupportedSelectPattern:    "unsupported select pattern",
	KindUnsupportedValue:            "item cannot be used as a value",
	KindUnsupportedType:             "item cannot be used as a type",
	KindUnsupportedMetaClosure:      "not a closure",
	KindNotFunction:                 "not a function",
	KindUnsupportedInstanceFunction: "unsupported instance function",
	KindMissingMacro:                "missing macro",
	KindMacroExpansion:              "macro expansion failed",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("error(%d)", int(k))
}

// CompileError is a user facing compile error attributed to a span of the
// source. KindInternal errors are compiler bugs and carry the call site
// that raised them.
type CompileError struct {
	Kind    ErrorKind
	Span    token.Span
	Message string

	From loc.PC
}

func (e *CompileError) Error() string {
	if e.Kind == KindInternal {
		return fmt.Sprintf("%v: %v (at %v)", e.Kind, e.Message, e.From)
	}
	return e.Message
}

// Is matches another *CompileError of the same kind, so that callers can
// test with errors.Is(err, &CompileError{Kind: KindMissingLocal}).
func (e *CompileError) Is(target error) bool {
	t, ok := target.(*CompileError)
	return ok && t.Kind == e.Kind
}

func errorf(kind ErrorKind, span token.Span, format string, args ...interface{}) *CompileError {
	return &CompileError{
		Kind:    kind,
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	}
}

func internalf(span token.Span, format string, args ...interface{}) *CompileError {
	return &CompileError{
		Kind:    KindInternal,
		Span:    span,
		Message: fmt.Sprintf(format, args...),
		From:    loc.Caller(1),
	}
}

// KindOf returns the kind of a compile error anywhere in the chain of err.
func KindOf(err error) (ErrorKind, bool) {
	for err != nil {
		if ce, ok := err.(*CompileError); ok {
			return ce.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return 0, false
}
