// Package cmd implements the CLI application around the lotmatch engine.
package cmd

import (
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/settlekit/lotmatch"
)

// Register the subcommands.
// A main package calls Register() to declare subcommands, and Execute() on
// the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&matchCmd{}, "matching")
	c.Register(&checkCmd{}, "matching")
	c.Register(&summaryCmd{}, "reporting")
}

// runOptions is the TOML form of the recognized run options.
type runOptions struct {
	BaseCurrency        string `toml:"base_currency"`
	LossCapPolicy       string `toml:"loss_cap_policy"`
	ShortPositionPolicy string `toml:"short_position_policy"`
	TieBreak            string `toml:"tie_break"`
	Workers             int    `toml:"workers"`
}

// loadConfig reads the run options file (TOML) and converts it into the
// engine configuration. An empty path yields the defaults.
func loadConfig(path string, verbose bool) (lotmatch.Config, error) {
	var opts runOptions
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return lotmatch.Config{}, fmt.Errorf("could not read run options %q: %w", path, err)
		}
		if err := toml.Unmarshal(data, &opts); err != nil {
			return lotmatch.Config{}, fmt.Errorf("could not parse run options %q: %w", path, err)
		}
	}

	var cfg lotmatch.Config
	var err error
	if cfg.LossCap, err = lotmatch.ParseLossCapPolicy(opts.LossCapPolicy); err != nil {
		return cfg, err
	}
	if cfg.ShortPosition, err = lotmatch.ParseShortPositionPolicy(opts.ShortPositionPolicy); err != nil {
		return cfg, err
	}
	if cfg.TieBreak, err = lotmatch.ParseTieBreak(opts.TieBreak); err != nil {
		return cfg, err
	}
	cfg.BaseCurrency = opts.BaseCurrency
	cfg.Workers = opts.Workers

	log := newLogger(verbose)
	cfg.Log = &log
	return cfg, nil
}

// newLogger builds the CLI logger writing human-readable lines to stderr.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// openInput opens the input file, or stdin for "-".
func openInput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// openOutput creates the output file, or stdout for "-".
func openOutput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
