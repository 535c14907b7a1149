package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/settlekit/lotmatch"
)

type summaryCmd struct {
	input string
	by    string
	json  bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "aggregate a matched-lots file into summary tables" }
func (*summaryCmd) Usage() string {
	return `flm summary [-i <matches.jsonl>] [-by entity|fund|security|all] [-json]

  Reads matched lots (JSONL, as written by 'flm match') and prints the
  recognized-loss rollups grouped by entity, fund, or security. With
  -json the summaries are written as JSONL instead of tables.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "i", "matches.jsonl", "Input matched lots file (JSONL), '-' for stdin")
	f.StringVar(&c.by, "by", "all", "Grouping: entity, fund, security, or all")
	f.BoolVar(&c.json, "json", false, "Write summaries as JSONL instead of tables")
}

func (c *summaryCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	in, closeIn, err := openInput(c.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening matched lots file %q: %v\n", c.input, err)
		return subcommands.ExitFailure
	}
	defer closeIn()

	matches, err := lotmatch.DecodeMatchedLots(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading matched lots file %q: %v\n", c.input, err)
		return subcommands.ExitFailure
	}

	// The rollups are single-currency; refuse a mixed file.
	currency := ""
	for _, m := range matches {
		cur := m.RecognizedLoss.Currency()
		if currency == "" {
			currency = cur
			continue
		}
		if cur != "" && cur != currency {
			fmt.Fprintf(os.Stderr, "Error: matched lots mix currencies %s and %s\n", currency, cur)
			return subcommands.ExitFailure
		}
	}

	report := lotmatch.Aggregate(matches)

	type table struct {
		header    string
		summaries []lotmatch.Summary
	}
	var tables []table
	switch c.by {
	case "entity":
		tables = []table{{"ENTITY", report.ByEntity}}
	case "fund":
		tables = []table{{"FUND", report.ByFund}}
	case "security":
		tables = []table{{"SECURITY", report.BySecurity}}
	case "all":
		tables = []table{
			{"ENTITY", report.ByEntity},
			{"FUND", report.ByFund},
			{"SECURITY", report.BySecurity},
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown grouping %q\n", c.by)
		return subcommands.ExitUsageError
	}

	if c.json {
		for _, tb := range tables {
			if err := lotmatch.EncodeSummaries(os.Stdout, tb.summaries); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing summaries: %v\n", err)
				return subcommands.ExitFailure
			}
		}
		return subcommands.ExitSuccess
	}

	for _, tb := range tables {
		printSummaries(tb.header, tb.summaries)
	}
	fmt.Printf("total: %d matches, %s shares, recognized loss %s\n",
		report.MatchCount, report.TotalShares, report.TotalRecognizedLoss)
	return subcommands.ExitSuccess
}

func printSummaries(header string, summaries []lotmatch.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tLOSS\tSHARES\tMATCHES\tAVG/SHARE\n", header)
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			s.Group, s.RecognizedLoss, s.Shares, s.Matches, s.AvgLossPerShare())
	}
	w.Flush()
	fmt.Println()
}
