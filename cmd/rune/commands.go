package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nikandfor/errors"
	"github.com/xyproto/env/v2"

	"github.com/therealbnut/rune/internal/ast"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/parser"
	"github.com/therealbnut/rune/internal/runtime"
	"github.com/therealbnut/rune/internal/sources"
	"github.com/therealbnut/rune/internal/unitcache"
	"github.com/therealbnut/rune/internal/value"
)

// -------------- RUN --------------

func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	entry := fs.String("entry", "main", "function to call")
	useCache := fs.Bool("cache", env.Bool("RUNE_CACHE"), "use the unit cache")
	printResult := fs.Bool("print", false, "print the value returned by the entry function")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("run: missing input file")
	}
	input := fs.Arg(0)

	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	var (
		u   *ir.Unit
		src *sources.Source
	)

	if filepath.Ext(input) == ".rnc" {
		u, err = ir.ReadUnitFromFile(input)
		if err != nil {
			return errors.Wrap(err, "read unit")
		}
	} else {
		src, err = loadSource(input)
		if err != nil {
			return err
		}

		if *useCache {
			p.cache, err = unitcache.OpenFromEnv(ctx)
			if err != nil {
				return errors.Wrap(err, "open cache")
			}
		}

		u, _, err = p.compile(ctx, src)
		if err != nil {
			return err
		}
	}

	out, err := execute(ctx, u, p.rt, runtime.DefaultEnv(), *entry)
	if err != nil {
		p.reportRuntimeError(src, u, err)
		return err
	}

	if *printResult && out.Kind != value.KindUnit {
		fmt.Println(out.Debug())
	}

	return nil
}

// -------------- BUILD --------------

func cmdBuild(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var out string
	fs.StringVar(&out, "o", "", "output file (default: <input>.rnc)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("build: missing input file")
	}
	input := fs.Arg(0)

	if filepath.Ext(input) != sources.Ext {
		return errors.New("build: input must be a %v source file", sources.Ext)
	}

	if out == "" {
		out = input[:len(input)-len(filepath.Ext(input))] + ".rnc"
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	src, err := loadSource(input)
	if err != nil {
		return err
	}

	u, _, err := p.compile(ctx, src)
	if err != nil {
		return err
	}

	if err := ir.WriteUnitToFile(out, u); err != nil {
		return errors.Wrap(err, "write unit")
	}

	info, err := os.Stat(out)
	if err != nil {
		return errors.Wrap(err, "stat %v", out)
	}

	fmt.Printf("%s: %s functions, %s instructions, %s (build %v)\n", out,
		humanize.Comma(int64(len(u.Functions))), humanize.Comma(int64(len(u.Instructions))),
		humanize.Bytes(uint64(info.Size())), u.BuildID)

	return nil
}

// -------------- CHECK --------------

func cmdCheck(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	dumpAST := fs.Bool("ast", false, "print the syntax tree")
	werror := fs.Bool("Werror", false, "treat warnings as errors")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("check: missing input file")
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	src, err := loadSource(fs.Arg(0))
	if err != nil {
		return err
	}

	if *dumpAST {
		file, errs := parser.ParseFile(src.Text)
		if len(errs) == 0 {
			fmt.Print(ast.Dump(file))
		}
	}

	_, warnings, err := p.compile(ctx, src)
	if err != nil {
		return err
	}

	if n := warnings.Len(); n != 0 {
		fmt.Fprintf(os.Stderr, "%s: %d warning(s)\n", src.Name, n)
		if *werror {
			return errors.New("%d warning(s)", n)
		}
	}

	return nil
}

// -------------- CACHE --------------

func cmdCache(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("cache: missing subcommand (stats, prune)")
	}

	c, err := unitcache.OpenFromEnv(ctx)
	if err != nil {
		return errors.Wrap(err, "open cache")
	}
	defer c.Close()

	switch args[0] {
	case "stats":
		s, err := c.Stats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("units:  %s\n", humanize.Comma(s.Entries))
		fmt.Printf("size:   %s\n", humanize.Bytes(uint64(s.Bytes)))
		fmt.Printf("hits:   %s\n", humanize.Comma(s.Hits))
		if s.Entries != 0 {
			fmt.Printf("oldest: %s\n", humanize.Time(s.Oldest))
			fmt.Printf("newest: %s\n", humanize.Time(s.Newest))
		}

		return nil
	case "prune":
		fs := flag.NewFlagSet("cache prune", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)

		age := fs.Duration("age", 30*24*time.Hour, "remove units older than this")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		n, err := c.Prune(ctx, time.Now().Add(-*age))
		if err != nil {
			return err
		}

		fmt.Printf("removed %s unit(s)\n", humanize.Comma(n))

		return nil
	default:
		return errors.New("cache: unknown subcommand %q", args[0])
	}
}
