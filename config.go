package lotmatch

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
)

// LossCapPolicy defines how recognized loss is derived from a matched lot.
type LossCapPolicy int

const (
	// CappedAtZero recognizes max(0, buy - sell) * shares per match.
	CappedAtZero LossCapPolicy = iota
	// NoLossCap recognizes (buy - sell) * shares, letting gains offset.
	NoLossCap
)

func (p LossCapPolicy) String() string {
	switch p {
	case CappedAtZero:
		return "capped_at_zero"
	case NoLossCap:
		return "none"
	default:
		return "unknown"
	}
}

// ParseLossCapPolicy parses a string into a LossCapPolicy.
func ParseLossCapPolicy(s string) (LossCapPolicy, error) {
	switch s {
	case "capped_at_zero", "":
		return CappedAtZero, nil
	case "none":
		return NoLossCap, nil
	default:
		return 0, fmt.Errorf("unknown loss cap policy: %q", s)
	}
}

// policy returns the LossPolicy implementing p.
func (p LossCapPolicy) policy() LossPolicy {
	if p == NoLossCap {
		return UncappedLoss
	}
	return CappedLoss
}

// ShortPositionPolicy defines how a sale exceeding the available inventory
// of its key is handled.
type ShortPositionPolicy int

const (
	// FailSale rejects the oversized sale and records a key failure; the
	// rest of the key's transactions still replay.
	FailSale ShortPositionPolicy = iota
	// ClampAndWarn consumes whatever inventory exists and records a
	// short-position warning for the key.
	ClampAndWarn
)

func (p ShortPositionPolicy) String() string {
	switch p {
	case FailSale:
		return "fail"
	case ClampAndWarn:
		return "clamp_and_warn"
	default:
		return "unknown"
	}
}

// ParseShortPositionPolicy parses a string into a ShortPositionPolicy.
func ParseShortPositionPolicy(s string) (ShortPositionPolicy, error) {
	switch s {
	case "fail", "":
		return FailSale, nil
	case "clamp_and_warn":
		return ClampAndWarn, nil
	default:
		return 0, fmt.Errorf("unknown short position policy: %q", s)
	}
}

// TieBreak defines the order of two transactions sharing a trade date.
type TieBreak int

// InputOrder is the only defined tie-break: same-day transactions keep
// their original input order.
const InputOrder TieBreak = iota

func (t TieBreak) String() string {
	if t == InputOrder {
		return "input_order"
	}
	return "unknown"
}

// ParseTieBreak parses a string into a TieBreak.
func ParseTieBreak(s string) (TieBreak, error) {
	switch s {
	case "input_order", "":
		return InputOrder, nil
	default:
		return 0, fmt.Errorf("unknown tie break: %q", s)
	}
}

// Config carries the recognized options of a run. The zero value is valid
// and selects the defaults: capped-at-zero losses, failing oversized
// sales, input-order tie-break, USD base currency, one worker per CPU.
type Config struct {
	LossCap       LossCapPolicy
	ShortPosition ShortPositionPolicy
	TieBreak      TieBreak
	BaseCurrency  string // applied to transactions with no currency of their own
	Workers       int    // per-key worker goroutines; <= 0 means NumCPU
	Hooks         Hooks  // policy overrides; zero fields fall back to LossCap / accept-all
	Log           *zerolog.Logger
}

// validate checks the enumerated options and returns the effective
// configuration with defaults resolved.
func (c Config) validate() (Config, error) {
	switch c.LossCap {
	case CappedAtZero, NoLossCap:
	default:
		return c, fmt.Errorf("unknown loss cap policy: %d", c.LossCap)
	}
	switch c.ShortPosition {
	case FailSale, ClampAndWarn:
	default:
		return c, fmt.Errorf("unknown short position policy: %d", c.ShortPosition)
	}
	if c.TieBreak != InputOrder {
		return c, fmt.Errorf("unknown tie break: %d", c.TieBreak)
	}
	if c.BaseCurrency == "" {
		c.BaseCurrency = "USD"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Hooks.Eligibility == nil {
		c.Hooks.Eligibility = AcceptAll
	}
	if c.Hooks.Loss == nil {
		c.Hooks.Loss = c.LossCap.policy()
	}
	if c.Log == nil {
		nop := zerolog.Nop()
		c.Log = &nop
	}
	return c, nil
}
