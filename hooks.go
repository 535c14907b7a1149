package lotmatch

import "github.com/shopspring/decimal"

// Rule hooks are the policy extension points consulted during a run. The
// surrounding product supplies settlement-specific logic (plans of
// allocation, price adjustment tables) through them; the engine itself
// ships only the neutral defaults.

// EligibilityFilter decides whether a transaction reaches the ledger at
// all. Returning false silently excludes the transaction; it neither opens
// nor consumes lots. The canonical use is excluding out-of-period dates.
type EligibilityFilter func(Transaction) bool

// LossPolicy transforms a raw (buy price, sell price, shares) triple into
// the recognized loss actually reported on the matched lot.
type LossPolicy func(buyPrice, sellPrice Money, shares Quantity) Money

// Hooks bundles the policy points a caller may override. Zero-value fields
// fall back to the configured defaults.
type Hooks struct {
	Eligibility EligibilityFilter
	Loss        LossPolicy
}

// AcceptAll is the default eligibility filter: no transaction is excluded.
func AcceptAll(Transaction) bool { return true }

// DateRangeFilter returns an eligibility filter accepting only
// transactions whose trade date falls within [from, to] inclusive.
func DateRangeFilter(from, to Date) EligibilityFilter {
	return func(tx Transaction) bool {
		on := tx.When()
		return !on.Before(from) && !on.After(to)
	}
}

// CappedLoss is the default loss policy: recognized loss is
// max(0, buy - sell) * shares. A sale above cost recognizes nothing.
func CappedLoss(buyPrice, sellPrice Money, shares Quantity) Money {
	loss := buyPrice.Sub(sellPrice).Mul(shares)
	if loss.IsNegative() {
		return NewMoney(decimal.Zero, loss.Currency())
	}
	return loss
}

// UncappedLoss recognizes (buy - sell) * shares without a floor, so gains
// offset losses as negative recognized amounts.
func UncappedLoss(buyPrice, sellPrice Money, shares Quantity) Money {
	return buyPrice.Sub(sellPrice).Mul(shares)
}
