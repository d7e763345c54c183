package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/polotto/hetu-script/hetu"
	"github.com/polotto/hetu-script/hetuerrors"
)

// runCmd executes a source file's top level, mirroring the teacher's
// runCmd but going through hetu.Engine.Eval instead of a bare
// lexer/parser/interpreter chain.
type runCmd struct {
	include includePaths
	invoke  string
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute a hetu source file" }
func (*runCmd) Usage() string {
	return `run [-I dir]... [-invoke name] <file>:
  Execute hetu code from a source file.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&r.include, "I", "additional directory to search for bare import keys (repeatable)")
	f.StringVar(&r.invoke, "invoke", "", "name of a top-level function to invoke after running the file")
}

func (r *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "hetu run: file not provided")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hetu run: failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	engine := hetu.New(hetu.WithIncludePaths(r.include...))
	result, err := engine.Eval(string(data), hetu.EvalOptions{InvokeFunc: r.invoke})
	if err != nil {
		printEvalError(err)
		return subcommands.ExitFailure
	}
	if r.invoke != "" {
		fmt.Println(result)
	}
	return subcommands.ExitSuccess
}

// printEvalError prints err using hetuerrors' colored multi-line
// format when it carries one, falling back to its plain message
// otherwise (a bundle-aggregation error, an os error, and so on).
func printEvalError(err error) {
	if hErr, ok := err.(*hetuerrors.Error); ok {
		fmt.Fprintln(os.Stderr, hErr.Format(true))
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
}
