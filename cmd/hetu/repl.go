package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"github.com/polotto/hetu-script/hetu"
	"github.com/polotto/hetu-script/lexer"
	"github.com/polotto/hetu-script/token"
)

// replCmd starts an interactive session, adapting the teacher's
// cRepl buffered-input loop (accumulate lines until braces balance)
// onto readline for history and line editing and hetu.Engine for
// evaluation, so a single Engine's globals persist across the whole
// session the way a script file's top level would.
type replCmd struct {
	include includePaths
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive hetu session" }
func (*replCmd) Usage() string {
	return `repl [-I dir]...:
  Start an interactive hetu session.
`
}

func (r *replCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&r.include, "I", "additional directory to search for bare import keys (repeatable)")
}

func (r *replCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	historyFile := filepath.Join(os.TempDir(), ".hetu_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "hetu repl: failed to start line editor: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	fmt.Println("hetu interactive session - ctrl-D to exit")
	engine := hetu.New(hetu.WithIncludePaths(r.include...))

	var buffer strings.Builder
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if buffer.Len() == 0 {
				continue
			}
			buffer.Reset()
			rl.SetPrompt(">>> ")
			continue
		}
		if err == io.EOF {
			return subcommands.ExitSuccess
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "hetu repl: %v\n", err)
			return subcommands.ExitFailure
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		if !inputReady(source) {
			rl.SetPrompt("... ")
			continue
		}
		rl.SetPrompt(">>> ")

		result, err := engine.Eval(source, hetu.EvalOptions{})
		if err != nil {
			printEvalError(err)
			buffer.Reset()
			continue
		}
		if result != nil {
			fmt.Println(result)
		}
		buffer.Reset()
	}
}

// inputReady reports whether source has balanced braces, the same
// heuristic the teacher's cRepl used to decide whether the user is
// still typing a multi-line block or is ready for the statement to
// run.
func inputReady(source string) bool {
	tokens, err := lexer.New(source).Scan()
	if err != nil {
		// A lex error could also mean an unclosed string spanning
		// lines; let the buffer keep growing rather than show a
		// confusing error mid-block.
		return !strings.Contains(err.Error(), "unclosed")
	}

	balance := 0
	for _, tok := range tokens {
		switch tok.TokenType {
		case token.LCUR:
			balance++
		case token.RCUR:
			balance--
		}
	}
	return balance <= 0
}
