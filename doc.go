// Package lotmatch implements deterministic FIFO lot matching for
// securities transactions. Given a stream of beginning holdings, purchases,
// and sales, it matches every sale against the earliest unconsumed
// inventory lots of the same security key, splitting lots when a sale only
// partially consumes one, and computes a realized gain or loss per match.
//
// The core pieces are:
//   - Lot Ledger: the per-key ordered queue of open lots, with FIFO
//     peek/consume operations.
//   - Matcher: replays a normalized transaction stream against the ledger
//     and emits one MatchedLot per (lot, sale) pairing, isolating failures
//     per security key.
//   - Aggregator: pure, order-independent reductions of the MatchedLot
//     sequence into per-entity, per-fund, and per-security summaries.
//   - Rule Hooks: pluggable eligibility and loss-policy seams so the
//     surrounding product can apply settlement-specific rules without the
//     engine depending on any settlement's specifics.
//
// All quantities and money values use exact decimal arithmetic; a run is a
// pure function of its transaction input and configuration. Transactions
// are persisted in a human-readable JSONL form, which is also the input
// format of the `flm` command-line tool built on this package.
package lotmatch
