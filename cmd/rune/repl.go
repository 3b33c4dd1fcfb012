package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/peterh/liner"

	"github.com/therealbnut/rune/internal/lexer"
	"github.com/therealbnut/rune/internal/parser"
	"github.com/therealbnut/rune/internal/runtime"
	"github.com/therealbnut/rune/internal/sources"
	"github.com/therealbnut/rune/internal/token"
	"github.com/therealbnut/rune/internal/value"
)

const (
	historyFile = ".rune_history"
	promptMain  = "rune> "
	promptCont  = "....> "
)

// session keeps the items declared so far. Every expression is compiled
// together with them as the body of a fresh entry function.
type session struct {
	p     *pipeline
	env   *runtime.Env
	items []string
}

func cmdRepl(ctx context.Context, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Printf("rune %s, :help for help\n", version)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	s := &session{p: p, env: runtime.DefaultEnv()}

	for {
		code, ok := readInput(ln)
		if !ok {
			fmt.Println()
			break
		}

		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(code, ":") {
			if s.command(code) {
				break
			}
			continue
		}

		s.eval(ctx, code)
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}

	return nil
}

// readInput reads lines until every opened delimiter is closed.
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() != 0 {
			prompt = promptCont
		}

		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// ctrl-c drops the current input
			return "", true
		}

		if b.Len() != 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if openDelimiters(b.String()) <= 0 {
			return b.String(), true
		}
	}
}

func openDelimiters(src string) int {
	l := lexer.New(src)
	depth := 0

	for {
		tok := l.NextToken()
		switch tok.Kind {
		case token.EOF:
			return depth
		case token.LParen, token.LBrace, token.LBracket:
			depth++
		case token.RParen, token.RBrace, token.RBracket:
			depth--
		}
	}
}

func (s *session) command(line string) (exit bool) {
	fields := strings.Fields(line)

	switch fields[0] {
	case ":q", ":quit", ":exit":
		return true
	case ":reset":
		s.items = nil
		fmt.Println("cleared")
	case ":items":
		for _, it := range s.items {
			fmt.Println(it)
		}
	case ":help":
		fmt.Println(`Enter an expression to evaluate it, or an item (fn, struct, enum,
impl, use) to declare it for the rest of the session.

  :items   list declared items
  :reset   forget declared items
  :quit    leave`)
	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}

	return false
}

func (s *session) eval(ctx context.Context, code string) {
	items := strings.Join(s.items, "\n")

	if isItems(code) {
		src := sources.NewSource("<repl>", items+"\n"+code)
		if _, _, err := s.p.compile(ctx, src); err == nil {
			s.items = append(s.items, code)
		}
		return
	}

	src := sources.NewSource("<repl>", items+"\nfn __repl() {\n"+code+"\n}\n")

	u, _, err := s.p.compile(ctx, src)
	if err != nil {
		return
	}

	out, err := execute(ctx, u, s.p.rt, s.env, "__repl")
	if err != nil {
		s.p.reportRuntimeError(src, u, err)
		fmt.Fprintln(os.Stderr, "error:", err)
		return
	}

	if out.Kind != value.KindUnit {
		fmt.Println(out.Debug())
	}
}

// isItems reports whether code parses as a file of item declarations.
func isItems(code string) bool {
	file, errs := parser.ParseFile(code)
	return len(errs) == 0 && len(file.Items) != 0
}
