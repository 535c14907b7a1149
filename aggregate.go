package lotmatch

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// The aggregator is a pure, stateless reduction of a MatchedLot sequence.
// Every reduction is commutative and associative, so summing the same
// multiset of matched lots in any order yields identical totals.

// Summary is the rollup of matched lots sharing one grouping value.
type Summary struct {
	Group          string   // the entity, fund, or security the lots share
	RecognizedLoss Money    // total recognized loss of the group
	Shares         Quantity // total shares matched
	Matches        int      // number of matched lots
	Members        []string // related members, sorted: funds of an entity, entities of a fund
}

// AvgLossPerShare returns recognized loss divided by shares matched,
// defined as zero when no share was matched.
func (s Summary) AvgLossPerShare() Money {
	if s.Shares.IsZero() {
		return NewMoney(decimal.Zero, s.RecognizedLoss.Currency())
	}
	return s.RecognizedLoss.Div(s.Shares)
}

// MarshalJSON implements the json.Marshaler interface for Summary.
func (s Summary) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("group", s.Group)
	w.Append("recognized_loss", s.RecognizedLoss.Decimal())
	w.Append("shares", s.Shares)
	w.Append("matches", s.Matches)
	w.Append("avg_loss_per_share", s.AvgLossPerShare().Decimal())
	w.Optional("members", s.Members)
	return w.MarshalJSON()
}

// LossReport groups the three summary tables of one matched-lot sequence.
type LossReport struct {
	ByEntity   []Summary
	ByFund     []Summary
	BySecurity []Summary

	TotalRecognizedLoss Money
	TotalShares         Quantity
	MatchCount          int
}

// Aggregate reduces matched lots into per-entity, per-fund, and
// per-security summaries plus overall totals. The matches must share a
// single currency; there is no conversion.
func Aggregate(matches []MatchedLot) *LossReport {
	report := &LossReport{
		ByEntity:   SummarizeBy(matches, GroupByEntity),
		ByFund:     SummarizeBy(matches, GroupByFund),
		BySecurity: SummarizeBy(matches, GroupBySecurity),
		MatchCount: len(matches),
	}
	var loss Money
	var shares Quantity
	for _, m := range matches {
		loss = loss.Add(m.RecognizedLoss)
		shares = shares.Add(m.Shares)
	}
	report.TotalRecognizedLoss = loss
	report.TotalShares = shares
	return report
}

// Grouping extracts from a matched lot the value to group by and the
// related member recorded on the group's summary.
type Grouping func(MatchedLot) (group, member string)

// GroupByEntity groups by holding entity, collecting the funds seen.
func GroupByEntity(m MatchedLot) (string, string) { return m.Key.Entity, m.Key.Fund }

// GroupByFund groups by fund, collecting the entities seen.
func GroupByFund(m MatchedLot) (string, string) { return m.Key.Fund, m.Key.Entity }

// GroupBySecurity groups by security identifier, collecting the entities seen.
func GroupBySecurity(m MatchedLot) (string, string) { return m.Key.Security, m.Key.Entity }

// SummarizeBy reduces matched lots into summaries under the given
// grouping, sorted by group for a deterministic table.
func SummarizeBy(matches []MatchedLot, group Grouping) []Summary {
	type bucket struct {
		loss    Money
		shares  Quantity
		matches int
		members map[string]struct{}
	}
	buckets := make(map[string]*bucket)
	for _, m := range matches {
		g, member := group(m)
		b, ok := buckets[g]
		if !ok {
			b = &bucket{members: make(map[string]struct{})}
			buckets[g] = b
		}
		b.loss = b.loss.Add(m.RecognizedLoss)
		b.shares = b.shares.Add(m.Shares)
		b.matches++
		if member != "" {
			b.members[member] = struct{}{}
		}
	}

	summaries := make([]Summary, 0, len(buckets))
	for g, b := range buckets {
		members := make([]string, 0, len(b.members))
		for member := range b.members {
			members = append(members, member)
		}
		slices.Sort(members)
		summaries = append(summaries, Summary{
			Group:          g,
			RecognizedLoss: b.loss,
			Shares:         b.shares,
			Matches:        b.matches,
			Members:        members,
		})
	}
	slices.SortFunc(summaries, func(a, b Summary) int {
		return strings.Compare(a.Group, b.Group)
	})
	return summaries
}
