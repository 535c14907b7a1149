package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/settlekit/lotmatch"
)

type checkCmd struct {
	input string
}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "validate a transactions file without matching" }
func (*checkCmd) Usage() string {
	return `flm check [-i <transactions.jsonl>]

  Parses and validates every transaction of the file, reporting each
  invalid line or record. Nothing is matched; the exit status reflects
  whether the file is clean.
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "i", "transactions.jsonl", "Input transactions file (JSONL), '-' for stdin")
}

func (c *checkCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	in, closeIn, err := openInput(c.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening transactions file %q: %v\n", c.input, err)
		return subcommands.ExitFailure
	}
	defer closeIn()

	txs, err := lotmatch.DecodeTransactions(in)
	clean := true
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		clean = false
	}

	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "transaction #%d: %v\n", i, err)
			clean = false
		}
	}

	if !clean {
		return subcommands.ExitFailure
	}
	fmt.Printf("%d transactions OK\n", len(txs))
	return subcommands.ExitSuccess
}
