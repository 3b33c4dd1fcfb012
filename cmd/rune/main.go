package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/nikandfor/tlog"
	"github.com/xyproto/env/v2"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error

	switch cmd {
	case "run":
		err = cmdRun(ctx, args)
	case "build":
		err = cmdBuild(ctx, args)
	case "check":
		err = cmdCheck(ctx, args)
	case "repl":
		err = cmdRepl(ctx, args)
	case "cache":
		err = cmdCache(ctx, args)
	case "help", "-h", "--help":
		usage()
	case "version", "--version":
		fmt.Println("rune", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Rune language CLI

Usage:
  rune run [-entry main] [-cache] <file.rn|file.rnc|module::path>
  rune build [-o out.rnc] <file.rn>
  rune check [-ast] [-Werror] <file.rn>
  rune repl
  rune cache stats|prune [-age 720h]

Commands:
  run      Compile and run a source file, or run a compiled unit
  build    Compile a source file into a .rnc unit
  check    Compile without running and report warnings
  repl     Interactive session
  cache    Inspect or prune the unit cache
  version  Print the version

Environment:
  RUNE_LOG           trace topics to log, such as "compile,vm"
  RUNE_MEMOIZE       memoize iterator next functions in for loops (default true)
  RUNE_PRELUDE       import the default prelude (default true)
  RUNE_CACHE         use the unit cache for run (default false)
  RUNE_CACHE_DRIVER  sqlite (default) or postgres
  RUNE_CACHE_DSN     cache database, default is in the user cache directory`)
}

func setupLogging() {
	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags))

	if v := env.Str("RUNE_LOG"); v != "" {
		tlog.SetVerbosity(v)
	}
}

// colorOutput reports whether diagnostics on stderr may be colored.
func colorOutput() bool {
	if env.Has("NO_COLOR") {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
