package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/therealbnut/rune/internal/compiler"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/runtime"
	"github.com/therealbnut/rune/internal/sources"
	"github.com/therealbnut/rune/internal/token"
	"github.com/therealbnut/rune/internal/unitcache"
	"github.com/therealbnut/rune/internal/value"
	"github.com/therealbnut/rune/internal/vm"
)

// ErrCompile is returned once the diagnostics of a failed compilation have
// been printed.
var ErrCompile = errors.New("compilation failed")

const (
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorReset  = "\x1b[0m"
)

type pipeline struct {
	rt    *runtime.Context
	opts  compiler.Options
	cache *unitcache.Cache

	stderr io.Writer
	color  bool
}

func newPipeline() (*pipeline, error) {
	rt, err := runtime.DefaultContext()
	if err != nil {
		return nil, errors.Wrap(err, "runtime")
	}

	return &pipeline{
		rt:     rt,
		opts:   compiler.OptionsFromEnv(),
		stderr: os.Stderr,
		color:  colorOutput(),
	}, nil
}

func (p *pipeline) Close() error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Close()
}

// loadSource reads a source file. Arguments that name no file but look
// like a module path are resolved relative to the working directory.
func loadSource(arg string) (*sources.Source, error) {
	loader := sources.NewFileSourceLoader()

	if _, err := os.Stat(arg); err != nil && strings.Contains(arg, "::") {
		return sources.LoadModule(loader, ".", item.Parse(arg), token.Span{})
	}

	return loader.Load(token.Span{}, arg)
}

func (p *pipeline) cacheKey(src *sources.Source) string {
	opts := fmt.Sprintf("memoize=%v prelude=%v", p.opts.MemoizeInstanceFn, p.opts.Prelude)
	return unitcache.Key([]byte(src.Text), []byte(p.rt.Fingerprint().String()), []byte(opts))
}

// compile compiles src, printing warnings and errors. A cached unit is
// returned if there is one.
func (p *pipeline) compile(ctx context.Context, src *sources.Source) (*ir.Unit, *compiler.Warnings, error) {
	var key string

	if p.cache != nil {
		key = p.cacheKey(src)

		u, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			tlog.Printw("unit cache", "err", err)
		}
		if ok {
			return u, compiler.NewWarnings(), nil
		}
	}

	u, warnings, err := compiler.CompileSource(p.rt, src.Text, p.opts)
	p.reportWarnings(src, warnings)
	if err != nil {
		p.reportError(src, err)
		return nil, warnings, ErrCompile
	}

	if p.cache != nil {
		if err := p.cache.Put(ctx, key, u); err != nil {
			tlog.Printw("unit cache", "err", err)
		}
	}

	return u, warnings, nil
}

func (p *pipeline) paint(color, s string) string {
	if !p.color {
		return s
	}
	return color + s + colorReset
}

func (p *pipeline) reportWarnings(src *sources.Source, warnings *compiler.Warnings) {
	if warnings == nil {
		return
	}
	for _, w := range warnings.All() {
		fmt.Fprintln(p.stderr, src.Format(w.Span, p.paint(colorYellow, "warning")+": "+w.String()))
		p.excerpt(src, w.Span)
	}
}

func (p *pipeline) reportError(src *sources.Source, err error) {
	var cerr *compiler.CompileError
	if !errors.As(err, &cerr) {
		fmt.Fprintln(p.stderr, p.paint(colorRed, "error")+": "+err.Error())
		return
	}

	if cerr.Kind == compiler.KindParse {
		// parse errors carry their own positions
		for _, line := range strings.Split(cerr.Message, "\n") {
			fmt.Fprintf(p.stderr, "%s:%s\n", src.Name, line)
		}
		return
	}

	fmt.Fprintln(p.stderr, src.Format(cerr.Span, p.paint(colorRed, "error")+": "+cerr.Kind.String()+": "+cerr.Error()))
	p.excerpt(src, cerr.Span)
}

// reportRuntimeError attributes a vm error to the span of the failing
// instruction.
func (p *pipeline) reportRuntimeError(src *sources.Source, u *ir.Unit, err error) {
	var verr *vm.Error
	if src == nil || !errors.As(err, &verr) || verr.IP < 0 || verr.IP >= len(u.Spans) {
		return
	}

	span := u.Spans[verr.IP]
	fmt.Fprintln(p.stderr, src.Format(span, p.paint(colorRed, "runtime error")+" in "+verr.Fn.String()))
	p.excerpt(src, span)
}

// excerpt prints the first line of span with the span underlined.
func (p *pipeline) excerpt(src *sources.Source, span token.Span) {
	start := src.Position(span.Start)
	line := src.Line(start.Line)
	if line == "" {
		return
	}

	n := span.Len()
	if rest := len(line) - start.Column + 1; n > rest {
		n = rest
	}
	if n < 1 {
		n = 1
	}

	fmt.Fprintf(p.stderr, "  %s\n  %s%s\n", line, strings.Repeat(" ", start.Column-1), strings.Repeat("^", n))
}

// execute calls entry and awaits it if it is async.
func execute(ctx context.Context, u *ir.Unit, rt *runtime.Context, env *runtime.Env, entry string) (value.Value, error) {
	m := vm.New(u, rt, env)

	out, err := m.Call(ctx, item.Parse(entry))
	if err != nil {
		return value.Value{}, err
	}

	if out.Kind == value.KindFuture {
		return out.Future.Await(ctx)
	}

	return out, nil
}
