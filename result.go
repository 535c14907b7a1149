package lotmatch

import (
	"fmt"
	"time"
)

// MatchedLot pairs a portion of a sale with the open lot it consumed. It is
// immutable once produced; ownership passes to the aggregation layer. The
// buy and sell sequence numbers are informational back-references to the
// originating transactions, not ownership relations.
type MatchedLot struct {
	Key            SecurityKey
	BuyDate        Date
	SellDate       Date
	Shares         Quantity // shares matched by this pairing
	BuyPrice       Money    // per-share cost of the consumed lot
	SellPrice      Money    // per-share price of the sale
	RealizedPNL    Money    // shares * (sell - buy)
	RecognizedLoss Money    // loss reported after the loss policy hook
	BuySeq         int      // input sequence of the transaction that opened the lot
	SellSeq        int      // input sequence of the originating sale
}

// MarshalJSON implements the json.Marshaler interface for MatchedLot.
func (m MatchedLot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(m.Key)
	w.Append("buy_date", m.BuyDate)
	w.Append("sell_date", m.SellDate)
	w.Append("shares", m.Shares)
	w.Append("buy_price", m.BuyPrice.Decimal())
	w.Append("sell_price", m.SellPrice.Decimal())
	w.Optional("currency", m.SellPrice.Currency())
	w.Append("realized_pnl", m.RealizedPNL.Decimal())
	w.Append("recognized_loss", m.RecognizedLoss.Decimal())
	w.Append("buy_seq", m.BuySeq)
	w.Append("sell_seq", m.SellSeq)
	return w.MarshalJSON()
}

// RunStatus is the overall outcome of a run.
type RunStatus string

const (
	// StatusComplete means every security key replayed without failure.
	StatusComplete RunStatus = "complete"
	// StatusPartial means at least one key failed while others completed.
	StatusPartial RunStatus = "partial"
	// StatusEmpty means no transaction survived validation and filtering.
	StatusEmpty RunStatus = "empty"
)

// RunReport is the result bundle of one run: the complete matched-lot
// sequence, the per-key failures and warnings, the transactions rejected
// during validation, and the inventory still open at the end. A run always
// returns a report; nothing originating in the engine is fatal.
type RunReport struct {
	RunID    string    // unique identifier of the run
	Started  time.Time // wall-clock start, informational
	Finished time.Time // wall-clock end, informational
	Status   RunStatus

	Matches  []MatchedLot
	Failures []KeyFailure       // keys that raised terminal errors
	Warnings []KeyFailure       // tolerated conditions, e.g. clamped short sales
	Rejected []TransactionError // transactions excluded by validation
	Open     []OpenPosition     // remaining inventory snapshots per key

	TotalRecognizedLoss Money
	TotalShares         Quantity
}

// MatchCount returns the number of matched lots produced by the run.
func (r *RunReport) MatchCount() int { return len(r.Matches) }

// totals recomputes the report totals from its matched-lot sequence.
// Totals are meaningful in one currency only: when matches span several
// currencies, matches outside the base currency are left out of the
// totals and each excluded key is flagged with a warning.
func (r *RunReport) totals(baseCurrency string) {
	distinct := make(map[string]struct{})
	for _, m := range r.Matches {
		if c := m.RecognizedLoss.Currency(); c != "" {
			distinct[c] = struct{}{}
		}
	}
	mixed := len(distinct) > 1
	if mixed {
		flagged := make(map[SecurityKey]struct{})
		for _, m := range r.Matches {
			c := m.RecognizedLoss.Currency()
			if c == baseCurrency {
				continue
			}
			if _, ok := flagged[m.Key]; ok {
				continue
			}
			flagged[m.Key] = struct{}{}
			r.Warnings = append(r.Warnings, KeyFailure{
				Key: m.Key,
				Err: fmt.Errorf("%w: %s matches are left out of the %s run totals", ErrCurrencyMismatch, c, baseCurrency),
			})
		}
	}

	var loss Money
	var shares Quantity
	for _, m := range r.Matches {
		if mixed && m.RecognizedLoss.Currency() != baseCurrency {
			continue
		}
		loss = loss.Add(m.RecognizedLoss)
		shares = shares.Add(m.Shares)
	}
	if loss.Currency() == "" {
		loss = NewMoney(loss.Decimal(), baseCurrency)
	}
	r.TotalRecognizedLoss = loss
	r.TotalShares = shares
}
