package lotmatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runMatcher runs the transactions with the given config and fails the test
// on any engine-level error.
func runMatcher(t *testing.T, cfg Config, txs ...Transaction) *RunReport {
	t.Helper()
	report, err := Run(context.Background(), txs, cfg)
	require.NoError(t, err)
	return report
}

func TestMatcher_SettlementScenario(t *testing.T) {
	// BeginningHolding(100 @ $0), Purchase(50 @ $10), Sale(120 @ $4):
	// the sale consumes the holding fully and splits the purchase lot.
	key := testKey()
	report := runMatcher(t, Config{},
		NewBeginningHolding(MustParseDate("2023-01-01"), key, Q(100), M(0, "USD")),
		NewPurchase(MustParseDate("2023-02-01"), key, Q(50), M(10, "USD")),
		NewSale(MustParseDate("2023-03-01"), key, Q(120), M(4, "USD")),
	)

	require.Equal(t, StatusComplete, report.Status)
	require.Len(t, report.Matches, 2)

	first, second := report.Matches[0], report.Matches[1]
	assert.True(t, first.Shares.Equal(Q(100)))
	assert.True(t, first.BuyPrice.Equal(M(0, "USD")))
	assert.True(t, first.SellPrice.Equal(M(4, "USD")))
	// Sold above cost: capped-at-zero recognizes nothing, P&L is +$400.
	assert.True(t, first.RecognizedLoss.IsZero())
	assert.True(t, first.RealizedPNL.Equal(M(400, "USD")))

	assert.True(t, second.Shares.Equal(Q(20)))
	assert.True(t, second.BuyPrice.Equal(M(10, "USD")))
	assert.True(t, second.RecognizedLoss.Equal(M(120, "USD")))
	assert.True(t, second.RealizedPNL.Equal(M(-120, "USD")))

	// Ledger afterward holds 30 shares remaining at $10.
	require.Len(t, report.Open, 1)
	assert.True(t, report.Open[0].Remaining.Equal(Q(30)))
	require.Len(t, report.Open[0].Lots, 1)
	assert.True(t, report.Open[0].Lots[0].UnitCost.Equal(M(10, "USD")))

	assert.True(t, report.TotalRecognizedLoss.Equal(M(120, "USD")))
	assert.True(t, report.TotalShares.Equal(Q(120)))
}

func TestMatcher_EstablishesOrderItself(t *testing.T) {
	// The input arrives unordered; the matcher sorts by trade date.
	key := testKey()
	report := runMatcher(t, Config{},
		NewSale(MustParseDate("2023-03-01"), key, Q(10), M(4, "USD")),
		NewPurchase(MustParseDate("2023-01-01"), key, Q(10), M(6, "USD")),
	)

	require.Equal(t, StatusComplete, report.Status)
	require.Len(t, report.Matches, 1)
	assert.True(t, report.Matches[0].RecognizedLoss.Equal(M(20, "USD")))
}

func TestMatcher_SameDayTieBreakIsInputOrder(t *testing.T) {
	key := testKey()
	cheap := NewPurchase(MustParseDate("2023-01-01"), key, Q(10), M(1, "USD"))
	dear := NewPurchase(MustParseDate("2023-01-01"), key, Q(10), M(9, "USD"))
	sale := NewSale(MustParseDate("2023-02-01"), key, Q(10), M(1, "USD"))

	// Same relative order, repeated runs: identical results.
	a := runMatcher(t, Config{}, cheap, dear, sale)
	b := runMatcher(t, Config{}, cheap, dear, sale)
	require.Len(t, a.Matches, 1)
	require.Len(t, b.Matches, 1)
	assert.True(t, a.Matches[0].BuyPrice.Equal(b.Matches[0].BuyPrice))
	assert.True(t, a.Matches[0].RecognizedLoss.Equal(b.Matches[0].RecognizedLoss))

	// Swapping the input order of the two same-day purchases changes the
	// match assignment: the sale now consumes the dear lot first.
	swapped := runMatcher(t, Config{}, dear, cheap, sale)
	require.Len(t, swapped.Matches, 1)
	assert.True(t, a.Matches[0].BuyPrice.Equal(M(1, "USD")))
	assert.True(t, swapped.Matches[0].BuyPrice.Equal(M(9, "USD")))
	assert.True(t, swapped.Matches[0].RecognizedLoss.Equal(M(80, "USD")))
}

func TestMatcher_ShareConservation(t *testing.T) {
	// Shares matched never exceed shares opened, whatever the sales ask.
	key := testKey()
	report := runMatcher(t, Config{ShortPosition: ClampAndWarn},
		NewBeginningHolding(MustParseDate("2023-01-01"), key, Q(25), M(0, "USD")),
		NewPurchase(MustParseDate("2023-01-10"), key, Q(40), M(3, "USD")),
		NewSale(MustParseDate("2023-02-01"), key, Q(30), M(2, "USD")),
		NewPurchase(MustParseDate("2023-02-15"), key, Q(10), M(4, "USD")),
		NewSale(MustParseDate("2023-03-01"), key, Q(100), M(1, "USD")),
	)

	var matched Quantity
	for _, m := range report.Matches {
		matched = matched.Add(m.Shares)
	}
	opened := Q(25).Add(Q(40)).Add(Q(10))
	assert.False(t, matched.GreaterThan(opened))
	assert.True(t, matched.Equal(opened), "clamped run consumes exactly the inventory")
	assert.Empty(t, report.Open)
}

func TestMatcher_InsufficientInventoryFailsOnlyItsKey(t *testing.T) {
	// A lone sale with no prior inventory fails its key; the other key in
	// the same run still completes.
	bad := NewSecurityKey("US0000000009", "F-200", "Beta Fund")
	good := testKey()
	report := runMatcher(t, Config{},
		NewSale(MustParseDate("2023-03-01"), bad, Q(100), M(4, "USD")),
		NewPurchase(MustParseDate("2023-01-01"), good, Q(10), M(6, "USD")),
		NewSale(MustParseDate("2023-02-01"), good, Q(10), M(5, "USD")),
	)

	require.Equal(t, StatusPartial, report.Status)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, bad, report.Failures[0].Key)
	assert.ErrorIs(t, report.Failures[0].Err, ErrInsufficientInventory)
	assert.Equal(t, "insufficient-inventory", report.Failures[0].Kind())

	require.Len(t, report.Matches, 1)
	assert.Equal(t, good, report.Matches[0].Key)
}

func TestMatcher_FailedSaleDoesNotConsume(t *testing.T) {
	// Default policy fails the oversized sale but keeps replaying the key:
	// the later, covered sale still matches.
	key := testKey()
	report := runMatcher(t, Config{},
		NewPurchase(MustParseDate("2023-01-01"), key, Q(10), M(6, "USD")),
		NewSale(MustParseDate("2023-02-01"), key, Q(50), M(5, "USD")),
		NewSale(MustParseDate("2023-03-01"), key, Q(10), M(5, "USD")),
	)

	require.Equal(t, StatusPartial, report.Status)
	require.Len(t, report.Failures, 1)
	require.Len(t, report.Matches, 1)
	assert.True(t, report.Matches[0].Shares.Equal(Q(10)))
	assert.Empty(t, report.Open)
}

func TestMatcher_ClampAndWarn(t *testing.T) {
	key := testKey()
	report := runMatcher(t, Config{ShortPosition: ClampAndWarn},
		NewPurchase(MustParseDate("2023-01-01"), key, Q(10), M(6, "USD")),
		NewSale(MustParseDate("2023-02-01"), key, Q(50), M(5, "USD")),
	)

	// A clamped sale is a warning, not a failure: the run completes.
	require.Equal(t, StatusComplete, report.Status)
	assert.Empty(t, report.Failures)
	require.Len(t, report.Warnings, 1)
	assert.ErrorIs(t, report.Warnings[0].Err, ErrInsufficientInventory)

	require.Len(t, report.Matches, 1)
	assert.True(t, report.Matches[0].Shares.Equal(Q(10)))
}

func TestMatcher_RejectsInvalidTransactions(t *testing.T) {
	key := testKey()
	report := runMatcher(t, Config{},
		NewPurchase(MustParseDate("2023-01-01"), key, Q(0), M(6, "USD")),   // zero quantity
		NewPurchase(MustParseDate("2023-01-01"), key, Q(10), M(-1, "USD")), // negative price
		NewPurchase(MustParseDate("2023-01-02"), key, Q(10), M(6, "USD")),
	)

	require.Len(t, report.Rejected, 2)
	assert.ErrorIs(t, report.Rejected[0].Err, ErrInvalidTransaction)
	assert.Equal(t, 0, report.Rejected[0].Seq)
	assert.Equal(t, 1, report.Rejected[1].Seq)
	// The valid purchase still opened a lot.
	require.Len(t, report.Open, 1)
	assert.True(t, report.Open[0].Remaining.Equal(Q(10)))
	assert.Equal(t, StatusComplete, report.Status)
}

func TestMatcher_EligibilityFilter(t *testing.T) {
	key := testKey()
	cfg := Config{Hooks: Hooks{
		Eligibility: DateRangeFilter(MustParseDate("2023-01-01"), MustParseDate("2023-06-30")),
	}}
	report := runMatcher(t, cfg,
		NewPurchase(MustParseDate("2022-12-31"), key, Q(10), M(1, "USD")), // before the period
		NewPurchase(MustParseDate("2023-01-02"), key, Q(10), M(6, "USD")),
		NewSale(MustParseDate("2023-03-01"), key, Q(10), M(5, "USD")),
	)

	require.Len(t, report.Matches, 1)
	// Only the in-period lot was eligible.
	assert.True(t, report.Matches[0].BuyPrice.Equal(M(6, "USD")))
}

func TestMatcher_EmptyRun(t *testing.T) {
	report := runMatcher(t, Config{})
	assert.Equal(t, StatusEmpty, report.Status)
	assert.Empty(t, report.Matches)
	assert.NotEmpty(t, report.RunID)
}

func TestMatcher_ExplicitCurrency(t *testing.T) {
	// Transactions carrying their own currency run unchanged under the
	// default base currency; the totals follow the matches.
	key := testKey()
	report := runMatcher(t, Config{},
		NewPurchase(MustParseDate("2023-01-01"), key, Q(10), M(6, "EUR")),
		NewSale(MustParseDate("2023-02-01"), key, Q(10), M(5, "EUR")),
	)

	require.Equal(t, StatusComplete, report.Status)
	require.Len(t, report.Matches, 1)
	assert.True(t, report.Matches[0].RecognizedLoss.Equal(M(10, "EUR")))
	assert.True(t, report.TotalRecognizedLoss.Equal(M(10, "EUR")))
	assert.Empty(t, report.Warnings)
}

func TestMatcher_MixedCurrencyKeyFails(t *testing.T) {
	key := testKey()
	report := runMatcher(t, Config{},
		NewPurchase(MustParseDate("2023-01-01"), key, Q(10), M(6, "EUR")),
		NewSale(MustParseDate("2023-02-01"), key, Q(10), M(5, "USD")),
	)

	require.Equal(t, StatusPartial, report.Status)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, ErrCurrencyMismatch)
	assert.Equal(t, "currency-mismatch", report.Failures[0].Kind())
	assert.Empty(t, report.Matches)
}

func TestMatcher_MixedCurrencyRunTotals(t *testing.T) {
	// Keys in different currencies both complete; the totals stay in the
	// base currency and the off-base key is flagged.
	usd := testKey()
	eur := NewSecurityKey("DE0000000001", "F-300", "Gamma Holdings")
	report := runMatcher(t, Config{},
		NewPurchase(MustParseDate("2023-01-01"), usd, Q(10), M(6, "USD")),
		NewSale(MustParseDate("2023-02-01"), usd, Q(10), M(5, "USD")),
		NewPurchase(MustParseDate("2023-01-01"), eur, Q(10), M(6, "EUR")),
		NewSale(MustParseDate("2023-02-01"), eur, Q(10), M(4, "EUR")),
	)

	require.Equal(t, StatusComplete, report.Status)
	require.Len(t, report.Matches, 2)
	assert.True(t, report.TotalRecognizedLoss.Equal(M(10, "USD")))
	assert.True(t, report.TotalShares.Equal(Q(10)))
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, eur, report.Warnings[0].Key)
	assert.ErrorIs(t, report.Warnings[0].Err, ErrCurrencyMismatch)
}

func TestMatcher_UncappedLossPolicy(t *testing.T) {
	// With loss_cap_policy none a profitable match offsets as a negative
	// recognized amount, end to end.
	key := testKey()
	report := runMatcher(t, Config{LossCap: NoLossCap},
		NewPurchase(MustParseDate("2023-01-01"), key, Q(10), M(4, "USD")),
		NewSale(MustParseDate("2023-02-01"), key, Q(10), M(10, "USD")),
	)

	require.Len(t, report.Matches, 1)
	assert.True(t, report.Matches[0].RecognizedLoss.Equal(M(-60, "USD")))
	assert.True(t, report.TotalRecognizedLoss.Equal(M(-60, "USD")))
}

func TestMatcher_BaseCurrencyApplied(t *testing.T) {
	key := testKey()
	report := runMatcher(t, Config{BaseCurrency: "EUR"},
		NewPurchase(MustParseDate("2023-01-01"), key, Q(10), M(6, "")),
		NewSale(MustParseDate("2023-02-01"), key, Q(10), M(5, "")),
	)
	require.Len(t, report.Matches, 1)
	assert.Equal(t, "EUR", report.Matches[0].SellPrice.Currency())
	assert.Equal(t, "EUR", report.TotalRecognizedLoss.Currency())
}

func TestMatcher_BaseCurrencyKeepsMemo(t *testing.T) {
	m, err := NewMatcher(Config{BaseCurrency: "EUR"})
	require.NoError(t, err)

	tx := NewPurchase(MustParseDate("2023-01-01"), testKey(), Q(10), M(6, ""))
	tx.Memo = "row 12 of the May upload"

	got := m.withBaseCurrency(tx)
	assert.Equal(t, "EUR", got.UnitPrice().Currency())
	purchase, ok := got.(Purchase)
	require.True(t, ok)
	assert.Equal(t, tx.Memo, purchase.Memo)
}

func TestMatcher_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	key := testKey()
	_, err := Run(ctx, []Transaction{
		NewPurchase(MustParseDate("2023-01-01"), key, Q(10), M(6, "USD")),
	}, Config{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatcher_DeterministicAcrossWorkerCounts(t *testing.T) {
	// Many keys, different worker counts: the merged output is identical.
	var txs []Transaction
	for i := 0; i < 8; i++ {
		key := NewSecurityKey("US000000000"+string(rune('0'+i)), "F-1", "Entity")
		txs = append(txs,
			NewPurchase(MustParseDate("2023-01-01"), key, Q(10), M(int64(i+1), "USD")),
			NewSale(MustParseDate("2023-02-01"), key, Q(10), M(1, "USD")),
		)
	}

	serial := runMatcher(t, Config{Workers: 1}, txs...)
	parallel := runMatcher(t, Config{Workers: 8}, txs...)

	require.Equal(t, len(serial.Matches), len(parallel.Matches))
	for i := range serial.Matches {
		assert.Equal(t, serial.Matches[i].Key, parallel.Matches[i].Key)
		assert.True(t, serial.Matches[i].RecognizedLoss.Equal(parallel.Matches[i].RecognizedLoss))
	}
	assert.True(t, serial.TotalRecognizedLoss.Equal(parallel.TotalRecognizedLoss))
}

func TestNewMatcher_RejectsUnknownPolicies(t *testing.T) {
	_, err := NewMatcher(Config{LossCap: LossCapPolicy(42)})
	assert.Error(t, err)
	_, err = NewMatcher(Config{ShortPosition: ShortPositionPolicy(42)})
	assert.Error(t, err)
	_, err = NewMatcher(Config{TieBreak: TieBreak(42)})
	assert.Error(t, err)
}
