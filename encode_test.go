package lotmatch

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTransactionsJSONL = `
{"command":"beginning-holding","date":"2023-01-01","security":"US0000000001","fund":"F-100","entity":"Alpha Capital","quantity":100,"price":0,"currency":"USD"}
{"command":"purchase","date":"2023-02-01","security":"US0000000001","fund":"F-100","entity":"Alpha Capital","quantity":50,"price":10,"currency":"USD"}

{"command":"sale","date":"2023-03-01","security":"US0000000001","fund":"F-100","entity":"Alpha Capital","quantity":120,"price":4,"currency":"USD"}
`

func TestDecodeTransactions(t *testing.T) {
	txs, err := DecodeTransactions(strings.NewReader(sampleTransactionsJSONL))
	require.NoError(t, err)
	require.Len(t, txs, 3, "blank lines are skipped")

	assert.Equal(t, CmdBeginningHolding, txs[0].What())
	assert.Equal(t, CmdPurchase, txs[1].What())
	assert.Equal(t, CmdSale, txs[2].What())
	assert.Equal(t, "US0000000001", txs[1].Key().Security)
	assert.True(t, txs[2].Shares().Equal(Q(120)))
	assert.True(t, txs[1].UnitPrice().Equal(M(10, "USD")))
}

func TestDecodeTransactions_ReportsEveryBadLine(t *testing.T) {
	input := `{"command":"purchase","date":"2023-01-01","security":"A","quantity":1,"price":1}
not json at all
{"command":"transfer","date":"2023-01-01","security":"A","quantity":1,"price":1}
{"command":"sale","date":"2023-01-02","security":"A","quantity":1,"price":1}`

	txs, err := DecodeTransactions(strings.NewReader(input))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransaction, "unknown command is rejected at the boundary")
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "line 3")
	// Good lines still decode.
	require.Len(t, txs, 2)
}

func TestEncodeTransactionRoundTrip(t *testing.T) {
	tx := NewPurchase(MustParseDate("2023-02-01"), testKey(), Q(50), M(10, "USD"))

	var buf bytes.Buffer
	require.NoError(t, EncodeTransaction(&buf, tx))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))

	decoded, err := DecodeTransactions(&buf)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, tx.Key(), decoded[0].Key())
	assert.Equal(t, tx.When(), decoded[0].When())
	assert.True(t, tx.Shares().Equal(decoded[0].Shares()))
	assert.True(t, tx.UnitPrice().Equal(decoded[0].UnitPrice()))
}

func TestEncodeTransactionKeepsMemo(t *testing.T) {
	tx := NewSale(MustParseDate("2023-03-01"), testKey(), Q(20), M(4, "USD"))
	tx.Memo = "row 12 of the May upload"

	var buf bytes.Buffer
	require.NoError(t, EncodeTransaction(&buf, tx))

	decoded, err := DecodeTransactions(&buf)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	sale, ok := decoded[0].(Sale)
	require.True(t, ok)
	assert.Equal(t, tx.Memo, sale.Memo)
}

func TestMatchedLotsRoundTripThroughJSONL(t *testing.T) {
	// Full pipeline: decode transactions, match, encode matched lots,
	// decode them back, and aggregate to the same totals.
	txs, err := DecodeTransactions(strings.NewReader(sampleTransactionsJSONL))
	require.NoError(t, err)

	report, err := Run(context.Background(), txs, Config{})
	require.NoError(t, err)
	require.Len(t, report.Matches, 2)

	var buf bytes.Buffer
	require.NoError(t, EncodeMatchedLots(&buf, report.Matches))

	decoded, err := DecodeMatchedLots(&buf)
	require.NoError(t, err)
	require.Len(t, decoded, 2)

	a, b := Aggregate(report.Matches), Aggregate(decoded)
	assert.True(t, a.TotalRecognizedLoss.Equal(b.TotalRecognizedLoss))
	assert.True(t, a.TotalShares.Equal(b.TotalShares))
	assert.Equal(t, decoded[0].BuySeq, report.Matches[0].BuySeq)
	assert.Equal(t, decoded[1].SellDate, report.Matches[1].SellDate)
}

func TestEncodeSummaries(t *testing.T) {
	summaries := []Summary{
		{Group: "Alpha Capital", RecognizedLoss: M(120, "USD"), Shares: Q(40), Matches: 2, Members: []string{"F-100"}},
		{Group: "Beta Fund", RecognizedLoss: M(80, "USD"), Shares: Q(10), Matches: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeSummaries(&buf, summaries))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"group":"Alpha Capital"`)
	assert.Contains(t, lines[0], `"members":["F-100"]`)
	assert.Contains(t, lines[1], `"avg_loss_per_share":"8"`)
}
