package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"github.com/polotto/hetu-script/compiler"
	"github.com/polotto/hetu-script/hetu"
	"github.com/polotto/hetu-script/lexer"
	"github.com/polotto/hetu-script/parser"
)

// emitCmd compiles a source file and writes out its bytecode image
// and/or a human-readable disassembly, the successor to the teacher's
// emitBytecodeCmd/DumpBytecode/DiassembleBytecode trio - now backed by
// compiler.DisassembleModule for the text form and hetu.Engine.Compile
// for the persistable bytecode form.
type emitCmd struct {
	disassemble bool
	bytecode    bool
}

func (*emitCmd) Name() string     { return "emit" }
func (*emitCmd) Synopsis() string { return "Compile a source file and emit its bytecode" }
func (*emitCmd) Usage() string {
	return `emit [-disassemble] [-bytecode] <file>:
  Compile hetu code and write a .htc bytecode image and/or a .dis
  disassembly text file next to the source.
`
}

func (cmd *emitCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disassemble", true, "write a human-readable .dis disassembly")
	f.BoolVar(&cmd.bytecode, "bytecode", true, "write a .htc bytecode image")
}

func (cmd *emitCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "hetu emit: file not provided")
		return subcommands.ExitUsageError
	}
	sourcePath := args[0]
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hetu emit: failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}
	source := string(data)
	stem := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath))

	tokens, err := lexer.New(source).Scan()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hetu emit: lexing error: %v\n", err)
		return subcommands.ExitFailure
	}
	stmts, errs := parser.Make(tokens, sourcePath).Parse()
	if len(errs) > 0 {
		fmt.Fprintln(os.Stderr, "hetu emit: parse errors:")
		for _, perr := range errs {
			fmt.Fprintf(os.Stderr, "  %v\n", perr)
		}
		return subcommands.ExitFailure
	}
	mod, err := compiler.New(sourcePath).CompileModule(stmts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hetu emit: compile error: %v\n", err)
		return subcommands.ExitFailure
	}

	if cmd.disassemble {
		text := compiler.DisassembleModule(mod.Key, mod.Instructions)
		if err := os.WriteFile(stem+".dis", []byte(text), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "hetu emit: failed to write disassembly: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	if cmd.bytecode {
		image, err := hetu.New().Compile(source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hetu emit: failed to encode bytecode: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := os.WriteFile(stem+".htc", image, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "hetu emit: failed to write bytecode image: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	return subcommands.ExitSuccess
}
