package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/settlekit/lotmatch"
)

type matchCmd struct {
	input   string
	output  string
	config  string
	from    string
	to      string
	verbose bool
}

func (*matchCmd) Name() string     { return "match" }
func (*matchCmd) Synopsis() string { return "run FIFO lot matching over a transactions file" }
func (*matchCmd) Usage() string {
	return `flm match -i <transactions.jsonl> [-o <matches.jsonl>] [-c <run.toml>] [-from <date> -to <date>] [-v]

  Reads normalized transactions (JSONL, one per line), matches every sale
  against the earliest open lots of its security key, and writes the
  matched lots as JSONL. Per-key failures and the run totals are printed
  to stderr. With -from/-to only transactions inside the date range are
  eligible.
`
}

func (c *matchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "i", "transactions.jsonl", "Input transactions file (JSONL), '-' for stdin")
	f.StringVar(&c.output, "o", "-", "Output matched lots file (JSONL), '-' for stdout")
	f.StringVar(&c.config, "c", "", "Run options file (TOML)")
	f.StringVar(&c.from, "from", "", "First eligible trade date (inclusive)")
	f.StringVar(&c.to, "to", "", "Last eligible trade date (inclusive)")
	f.BoolVar(&c.verbose, "v", false, "Verbose logging")
}

func (c *matchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig(c.config, c.verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitUsageError
	}

	if c.from != "" || c.to != "" {
		if c.from == "" || c.to == "" {
			fmt.Fprintln(os.Stderr, "Error: -from and -to must be given together")
			return subcommands.ExitUsageError
		}
		from, err := lotmatch.ParseDate(c.from)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitUsageError
		}
		to, err := lotmatch.ParseDate(c.to)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitUsageError
		}
		cfg.Hooks.Eligibility = lotmatch.DateRangeFilter(from, to)
	}

	in, closeIn, err := openInput(c.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening transactions file %q: %v\n", c.input, err)
		return subcommands.ExitFailure
	}
	defer closeIn()

	txs, err := lotmatch.DecodeTransactions(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading transactions file %q: %v\n", c.input, err)
		return subcommands.ExitFailure
	}

	report, err := lotmatch.Run(ctx, txs, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return subcommands.ExitFailure
	}

	out, closeOut, err := openOutput(c.output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output file %q: %v\n", c.output, err)
		return subcommands.ExitFailure
	}
	defer closeOut()

	if err := lotmatch.EncodeMatchedLots(out, report.Matches); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing matched lots: %v\n", err)
		return subcommands.ExitFailure
	}

	for _, rejected := range report.Rejected {
		fmt.Fprintln(os.Stderr, "rejected:", rejected)
	}
	for _, warning := range report.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}
	for _, failure := range report.Failures {
		fmt.Fprintln(os.Stderr, "failed:", failure)
	}
	fmt.Fprintf(os.Stderr, "run %s %s: %d matches, %s shares, recognized loss %s\n",
		report.RunID, report.Status, report.MatchCount(), report.TotalShares, report.TotalRecognizedLoss)

	if report.Status == lotmatch.StatusPartial {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
