package compiler

import (
	"fmt"

	"github.com/nikandfor/tlog"

	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/token"
)

type VarKind uint8

const (
	// VarLocal lives in a stack slot of the current frame.
	VarLocal VarKind = iota
	// VarEnviron is captured by a closure and read out of the environment
	// tuple at Offset.
	VarEnviron
)

type Var struct {
	Kind   VarKind
	Name   string
	Offset int
	Index  int
	Span   token.Span
}

// Copy emits the instruction that pushes a copy of the variable.
func (v Var) Copy(asm *ir.Assembly, span token.Span, comment string) {
	switch v.Kind {
	case VarEnviron:
		asm.PushWithComment(ir.Instruction{Op: ir.OpTupleIndexGetAt, A: v.Offset, B: v.Index}, span, comment)
	default:
		asm.PushWithComment(ir.Instruction{Op: ir.OpCopy, A: v.Offset}, span, comment)
	}
}

// Scope is one lexical scope. TotalVarCount includes every slot of the
// enclosing scopes, LocalVarCount only the ones declared here.
type Scope struct {
	locals map[string]Var

	TotalVarCount int
	LocalVarCount int
}

func newScope() *Scope {
	return &Scope{locals: make(map[string]Var)}
}

// Child returns an empty scope stacked on top of s.
func (s *Scope) Child() *Scope {
	return &Scope{
		locals:        make(map[string]Var),
		TotalVarCount: s.TotalVarCount,
	}
}

func (s *Scope) Clone() *Scope {
	c := &Scope{
		locals:        make(map[string]Var, len(s.locals)),
		TotalVarCount: s.TotalVarCount,
		LocalVarCount: s.LocalVarCount,
	}
	for k, v := range s.locals {
		c.locals[k] = v
	}
	return c
}

// NewVar declares name in a new slot and fails if the scope already has a
// variable of that name.
func (s *Scope) NewVar(name string, span token.Span) (int, error) {
	if old, ok := s.locals[name]; ok {
		return 0, errorf(KindVariableConflict, span, "variable `%s` conflicts with the one declared at %v", name, old.Span)
	}
	return s.DeclVar(name, span), nil
}

// DeclVar declares name in a new slot, shadowing any earlier variable of
// the same name.
func (s *Scope) DeclVar(name string, span token.Span) int {
	offset := s.TotalVarCount

	s.locals[name] = Var{Kind: VarLocal, Name: name, Offset: offset, Span: span}
	s.TotalVarCount++
	s.LocalVarCount++

	tlog.V("scope").Printw("decl var", "name", name, "offset", offset)
	return offset
}

// NewEnvVar declares a variable read from the environment tuple stored at
// offset. It occupies no slot of its own.
func (s *Scope) NewEnvVar(name string, offset, index int, span token.Span) error {
	if old, ok := s.locals[name]; ok {
		return errorf(KindVariableConflict, span, "variable `%s` conflicts with the one declared at %v", name, old.Span)
	}
	s.locals[name] = Var{Kind: VarEnviron, Name: name, Offset: offset, Index: index, Span: span}
	return nil
}

// DeclAnon reserves a slot without a name.
func (s *Scope) DeclAnon(span token.Span) int {
	offset := s.TotalVarCount
	s.TotalVarCount++
	s.LocalVarCount++
	return offset
}

// UndeclAnon releases n anonymous slots.
func (s *Scope) UndeclAnon(n int, span token.Span) error {
	if s.LocalVarCount < n || s.TotalVarCount < n {
		return internalf(span, "undeclaring %d of %d local slots", n, s.LocalVarCount)
	}
	s.TotalVarCount -= n
	s.LocalVarCount -= n
	return nil
}

func (s *Scope) get(name string) (Var, bool) {
	v, ok := s.locals[name]
	return v, ok
}

func (s *Scope) String() string {
	return fmt.Sprintf("scope{total: %d, local: %d}", s.TotalVarCount, s.LocalVarCount)
}

// ScopeGuard is the depth of the scope stack right after a push. Popping
// with a guard from another push is an internal error.
type ScopeGuard int

// Scopes is the stack of lexical scopes of the function being compiled.
type Scopes struct {
	scopes []*Scope
}

func NewScopes() *Scopes {
	return &Scopes{scopes: []*Scope{newScope()}}
}

// Child returns a new scope on top of the innermost one. It still has to
// be pushed.
func (s *Scopes) Child(span token.Span) (*Scope, error) {
	last, err := s.Last(span)
	if err != nil {
		return nil, err
	}
	return last.Child(), nil
}

func (s *Scopes) Push(scope *Scope) ScopeGuard {
	s.scopes = append(s.scopes, scope)
	tlog.V("scope").Printw("push scope", "depth", len(s.scopes), "total", scope.TotalVarCount)
	return ScopeGuard(len(s.scopes))
}

// Pop removes the innermost scope, checking that it is the one guard was
// returned for.
func (s *Scopes) Pop(guard ScopeGuard, span token.Span) (*Scope, error) {
	if int(guard) != len(s.scopes) {
		return nil, internalf(span, "scope guard mismatch: expected depth %d, got %d", guard, len(s.scopes))
	}
	return s.PopUnchecked(span)
}

// PopUnchecked removes the innermost scope.
func (s *Scopes) PopUnchecked(span token.Span) (*Scope, error) {
	n := len(s.scopes)
	if n == 0 {
		return nil, internalf(span, "missing scope")
	}
	scope := s.scopes[n-1]
	s.scopes = s.scopes[:n-1]
	tlog.V("scope").Printw("pop scope", "depth", n, "local", scope.LocalVarCount)
	return scope, nil
}

func (s *Scopes) Last(span token.Span) (*Scope, error) {
	if len(s.scopes) == 0 {
		return nil, internalf(span, "missing scope")
	}
	return s.scopes[len(s.scopes)-1], nil
}

func (s *Scopes) NewVar(name string, span token.Span) (int, error) {
	last, err := s.Last(span)
	if err != nil {
		return 0, err
	}
	return last.NewVar(name, span)
}

func (s *Scopes) DeclVar(name string, span token.Span) (int, error) {
	last, err := s.Last(span)
	if err != nil {
		return 0, err
	}
	return last.DeclVar(name, span), nil
}

func (s *Scopes) NewEnvVar(name string, offset, index int, span token.Span) error {
	last, err := s.Last(span)
	if err != nil {
		return err
	}
	return last.NewEnvVar(name, offset, index, span)
}

func (s *Scopes) DeclAnon(span token.Span) (int, error) {
	last, err := s.Last(span)
	if err != nil {
		return 0, err
	}
	return last.DeclAnon(span), nil
}

func (s *Scopes) UndeclAnon(n int, span token.Span) error {
	last, err := s.Last(span)
	if err != nil {
		return err
	}
	return last.UndeclAnon(n, span)
}

// TryGetVar looks name up from the innermost scope outwards.
func (s *Scopes) TryGetVar(name string) (Var, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i].get(name); ok {
			return v, true
		}
	}
	return Var{}, false
}

func (s *Scopes) GetVar(name string, span token.Span) (Var, error) {
	if v, ok := s.TryGetVar(name); ok {
		return v, nil
	}
	return Var{}, errorf(KindMissingLocal, span, "no local variable `%s`", name)
}
