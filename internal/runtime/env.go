package runtime

import (
	"context"
	"io"
	"os"

	"github.com/nikandfor/tlog"

	"github.com/therealbnut/rune/internal/value"
)

// YieldFunc receives a value a script yields and returns the value the
// yield expression evaluates to.
type YieldFunc func(ctx context.Context, v value.Value) (value.Value, error)

// Env aggregates the host services used while running a script.
type Env struct {
	stdout io.Writer
	yield  YieldFunc
}

// DefaultEnv prints to stdout and logs yielded values.
func DefaultEnv() *Env {
	return NewEnv(os.Stdout)
}

// NewEnv creates an Env printing to w. Tests use it to capture output.
func NewEnv(w io.Writer) *Env {
	return &Env{stdout: w, yield: logYield}
}

func (e *Env) Stdout() io.Writer {
	return e.stdout
}

// SetYield replaces the yield hook.
func (e *Env) SetYield(f YieldFunc) {
	e.yield = f
}

// Yield hands v to the yield hook.
func (e *Env) Yield(ctx context.Context, v value.Value) (value.Value, error) {
	if e.yield == nil {
		return logYield(ctx, v)
	}
	return e.yield(ctx, v)
}

func logYield(ctx context.Context, v value.Value) (value.Value, error) {
	tlog.V("yield").Printw("yield", "value", v.Debug())
	return value.Unit(), nil
}
