// Command hetu is the reference CLI front end for the embedding
// package: a subcommand dispatcher in the same shape the teacher's
// root-level run/repl/emit commands used, rebuilt on top of the hetu
// package instead of talking to the lexer/parser/VM directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"github.com/polotto/hetu-script/internal/logging"
)

func main() {
	// A missing .env is not an error - godotenv.Load only matters for
	// hosts that drop one in the working directory for HETU_* configuration.
	_ = godotenv.Load()

	if level := os.Getenv("HETU_LOG_LEVEL"); level != "" {
		if err := logging.SetLevel(level); err != nil {
			fmt.Fprintf(os.Stderr, "hetu: invalid HETU_LOG_LEVEL %q: %v\n", level, err)
		}
	}

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&replCmd{}, "")
	subcommands.Register(&emitCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// includePaths collects repeated -I flags into an ordered slice,
// shared by runCmd and replCmd for hetu.WithIncludePaths.
type includePaths []string

func (p *includePaths) String() string { return fmt.Sprint([]string(*p)) }

func (p *includePaths) Set(v string) error {
	*p = append(*p, v)
	return nil
}
