package lotmatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Matcher is the realized-loss engine. It takes the full transaction set of
// a run, possibly spanning many security keys, and produces the complete
// MatchedLot sequence plus per-key failures. A Matcher is stateless between
// runs; each run is a pure function of its input and configuration.
type Matcher struct {
	cfg Config
}

// NewMatcher validates the configuration and returns a ready Matcher.
func NewMatcher(cfg Config) (*Matcher, error) {
	resolved, err := cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Matcher{cfg: resolved}, nil
}

// Run is a convenience for one-shot matching: it builds a Matcher from cfg
// and runs it over the transactions.
func Run(ctx context.Context, txs []Transaction, cfg Config) (*RunReport, error) {
	m, err := NewMatcher(cfg)
	if err != nil {
		return nil, err
	}
	return m.Run(ctx, txs)
}

// sequenced pairs a transaction with its zero-based position in the input
// sequence. The position is the declared tie-break for same-day
// transactions and the back-reference carried on matched lots.
type sequenced struct {
	seq int
	tx  Transaction
}

// Run matches the given transactions and returns the result bundle. The
// input may arrive in any order; the matcher establishes the final FIFO
// order itself. The context is honored between security-key units: on
// cancellation Run returns the context error and no report.
func (m *Matcher) Run(ctx context.Context, txs []Transaction) (*RunReport, error) {
	report := &RunReport{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
	log := m.cfg.Log.With().Str("run", report.RunID).Logger()

	// Validation excludes individual transactions, never the run.
	accepted := make([]sequenced, 0, len(txs))
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			report.Rejected = append(report.Rejected, TransactionError{Seq: i, Err: err})
			log.Warn().Int("seq", i).Err(err).Msg("transaction rejected")
			continue
		}
		if !m.cfg.Hooks.Eligibility(tx) {
			continue
		}
		accepted = append(accepted, sequenced{seq: i, tx: m.withBaseCurrency(tx)})
	}

	// Partition by security key: independent sub-problems. Keys are sorted
	// so dispatch, and therefore output, is reproducible bit-for-bit.
	partitions := make(map[SecurityKey][]sequenced)
	for _, s := range accepted {
		key := s.tx.Key()
		partitions[key] = append(partitions[key], s)
	}
	jobs := make([]keyJob, 0, len(partitions))
	for key, keyTxs := range partitions {
		jobs = append(jobs, keyJob{key: key, txs: keyTxs})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].key.compare(jobs[j].key) < 0 })
	for i := range jobs {
		jobs[i].index = i
	}

	pool := newWorkerPool(m.cfg.Workers)
	results := pool.run(ctx, jobs, func(job keyJob) keyResult {
		return m.replayKey(job, log)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, r := range results {
		report.Matches = append(report.Matches, r.matches...)
		report.Failures = append(report.Failures, r.failures...)
		report.Warnings = append(report.Warnings, r.warnings...)
		report.Open = append(report.Open, r.open...)
	}
	report.totals(m.cfg.BaseCurrency)
	report.Finished = time.Now()

	switch {
	case len(accepted) == 0:
		report.Status = StatusEmpty
	case len(report.Failures) > 0:
		report.Status = StatusPartial
	default:
		report.Status = StatusComplete
	}

	log.Info().
		Int("transactions", len(accepted)).
		Int("matches", len(report.Matches)).
		Int("failed_keys", len(report.Failures)).
		Str("status", string(report.Status)).
		Msg("run finished")
	return report, nil
}

// withBaseCurrency returns the transaction with the configured base
// currency applied when its price carries none. Currency conversion is out
// of scope; this only fills the default.
func (m *Matcher) withBaseCurrency(tx Transaction) Transaction {
	if tx.UnitPrice().Currency() != "" {
		return tx
	}
	price := NewMoney(tx.UnitPrice().Decimal(), m.cfg.BaseCurrency)
	switch t := tx.(type) {
	case BeginningHolding:
		t.Price = price
		return t
	case Purchase:
		t.Price = price
		return t
	case Sale:
		t.Price = price
		return t
	default:
		return tx
	}
}

// replayKey processes one security key: sort by (trade date, input
// sequence), then replay openings into the ledger and sales against it.
func (m *Matcher) replayKey(job keyJob, log zerolog.Logger) keyResult {
	result := keyResult{index: job.index}

	// Stable sort on the trade date preserves input order within a day,
	// which is exactly the declared tie-break.
	ordered := make([]sequenced, len(job.txs))
	copy(ordered, job.txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].tx.When().Before(ordered[j].tx.When())
	})
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if prev.tx.When() == cur.tx.When() && prev.seq >= cur.seq {
			result.failures = append(result.failures, KeyFailure{
				Key: job.key,
				Err: fmt.Errorf("%w: transactions #%d and #%d share %s with no defined order",
					ErrOrderingAmbiguity, prev.seq, cur.seq, cur.tx.When()),
			})
			return result
		}
	}

	// A key trades in a single currency; there is no conversion, so a
	// mixed key cannot produce a meaningful match.
	keyCurrency := ""
	for _, s := range ordered {
		c := s.tx.UnitPrice().Currency()
		if keyCurrency == "" {
			keyCurrency = c
			continue
		}
		if c != "" && c != keyCurrency {
			result.failures = append(result.failures, KeyFailure{
				Key: job.key,
				Err: fmt.Errorf("%w: transactions in %s and %s on the same key", ErrCurrencyMismatch, keyCurrency, c),
			})
			return result
		}
	}

	ledger := NewLotLedger()
	for _, s := range ordered {
		if opensLot(s.tx) {
			if err := ledger.Open(s.tx, s.seq); err != nil {
				result.failures = append(result.failures, KeyFailure{Key: job.key, Err: err})
			}
			continue
		}

		sale := s.tx
		want := sale.Shares()
		if available := ledger.Remaining(job.key); want.GreaterThan(available) {
			failure := KeyFailure{
				Key: job.key,
				Err: fmt.Errorf("%w: sale of %s on %s exceeds %s available",
					ErrInsufficientInventory, want, sale.When(), available),
			}
			if m.cfg.ShortPosition == FailSale {
				result.failures = append(result.failures, failure)
				log.Warn().Stringer("key", job.key).Err(failure.Err).Msg("sale failed")
				continue
			}
			// ClampAndWarn: consume what exists, flag the short position.
			result.warnings = append(result.warnings, failure)
			log.Warn().Stringer("key", job.key).Err(failure.Err).Msg("sale clamped")
			want = available
			if want.IsZero() {
				continue
			}
		}

		fills, err := ledger.Consume(job.key, want)
		if err != nil {
			result.failures = append(result.failures, KeyFailure{Key: job.key, Err: err})
			continue
		}
		for _, fill := range fills {
			sellPrice := sale.UnitPrice()
			result.matches = append(result.matches, MatchedLot{
				Key:            job.key,
				BuyDate:        fill.LotDate,
				SellDate:       sale.When(),
				Shares:         fill.Quantity,
				BuyPrice:       fill.UnitCost,
				SellPrice:      sellPrice,
				RealizedPNL:    sellPrice.Sub(fill.UnitCost).Mul(fill.Quantity),
				RecognizedLoss: m.cfg.Hooks.Loss(fill.UnitCost, sellPrice, fill.Quantity),
				BuySeq:         fill.LotSeq,
				SellSeq:        s.seq,
			})
		}
	}

	result.open = ledger.OpenPositions()
	return result
}
