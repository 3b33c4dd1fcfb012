package compiler

import (
	"github.com/xyproto/env/v2"

	"github.com/therealbnut/rune/internal/ir"
)

// Options tune compilation.
type Options struct {
	// MemoizeInstanceFn resolves the `next` function of a for loop's
	// iterator once before the loop instead of on every iteration.
	MemoizeInstanceFn bool

	// Prelude imports the default prelude into new units.
	Prelude bool
}

func DefaultOptions() Options {
	return Options{
		MemoizeInstanceFn: true,
		Prelude:           true,
	}
}

// OptionsFromEnv returns the default options with overrides from the
// environment.
func OptionsFromEnv() Options {
	o := DefaultOptions()
	if env.Has("RUNE_MEMOIZE") {
		o.MemoizeInstanceFn = env.Bool("RUNE_MEMOIZE")
	}
	if env.Has("RUNE_PRELUDE") {
		o.Prelude = env.Bool("RUNE_PRELUDE")
	}
	return o
}

// NewUnit creates an empty unit for o.
func (o Options) NewUnit() *ir.Unit {
	if o.Prelude {
		return ir.NewUnitWithPrelude()
	}
	return ir.NewUnit()
}
