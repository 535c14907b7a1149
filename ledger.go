package lotmatch

import (
	"fmt"
	"slices"
)

// LotLedger maintains, per security key, the ordered queue of open lots and
// provides FIFO-order consume operations. Queues are ordered by
// (trade date, input sequence) ascending; that ordering is established by
// the matcher, which replays transactions in sorted order, and is the FIFO
// contract of the engine.
//
// A ledger is confined to a single worker during a run and needs no
// locking: keys are sharded to workers and queues of different keys never
// interact.
type LotLedger struct {
	queues map[SecurityKey]lots
}

// NewLotLedger creates an empty ledger.
func NewLotLedger() *LotLedger {
	return &LotLedger{queues: make(map[SecurityKey]lots)}
}

// Open appends a new lot for a beginning-holding or purchase transaction,
// with the transaction's quantity as remaining quantity and its price as
// unit cost. The transaction must have passed validation; seq is its input
// sequence, used for the stable tie-break and for back-references.
func (l *LotLedger) Open(tx Transaction, seq int) error {
	if !opensLot(tx) {
		return fmt.Errorf("transaction %q does not open a lot", tx.What())
	}
	key := tx.Key()
	l.queues[key] = append(l.queues[key], lot{
		seq:       seq,
		date:      tx.When(),
		unitCost:  tx.UnitPrice(),
		remaining: tx.Shares(),
	})
	return nil
}

// Remaining returns the cumulative remaining quantity across all open lots
// for the given key.
func (l *LotLedger) Remaining(key SecurityKey) Quantity {
	return l.queues[key].total()
}

// Consume takes the requested quantity from the front lots of the key's
// queue and returns the ordered fills. It returns ErrInsufficientInventory,
// consuming nothing, when the request exceeds the cumulative remaining
// quantity; tolerating short positions by clamping the request is the
// caller's policy choice, made before calling Consume.
func (l *LotLedger) Consume(key SecurityKey, quantity Quantity) ([]Fill, error) {
	queue := l.queues[key]
	if available := queue.total(); quantity.GreaterThan(available) {
		return nil, fmt.Errorf("%w: requested %s, %s available", ErrInsufficientInventory, quantity, available)
	}
	fills, rest := queue.take(quantity)
	if len(rest) == 0 {
		delete(l.queues, key)
	} else {
		l.queues[key] = rest
	}
	return fills, nil
}

// OpenLot is a value snapshot of a lot still open at the end of a run.
type OpenLot struct {
	Date      Date     `json:"date"`
	UnitCost  Money    `json:"unit_cost"`
	Remaining Quantity `json:"remaining"`
}

// OpenPosition is the remaining inventory of one security key after all its
// transactions have been replayed.
type OpenPosition struct {
	Key       SecurityKey
	Lots      []OpenLot
	Remaining Quantity
}

// MarshalJSON implements the json.Marshaler interface for OpenPosition.
func (p OpenPosition) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(p.Key)
	w.Append("remaining", p.Remaining)
	w.Append("lots", p.Lots)
	return w.MarshalJSON()
}

// OpenPositions returns value snapshots of every non-empty queue, ordered
// by key. Lots themselves never escape the ledger.
func (l *LotLedger) OpenPositions() []OpenPosition {
	keys := make([]SecurityKey, 0, len(l.queues))
	for key := range l.queues {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, SecurityKey.compare)

	positions := make([]OpenPosition, 0, len(keys))
	for _, key := range keys {
		queue := l.queues[key]
		open := make([]OpenLot, 0, len(queue))
		for _, currentLot := range queue {
			open = append(open, OpenLot{
				Date:      currentLot.date,
				UnitCost:  currentLot.unitCost,
				Remaining: currentLot.remaining,
			})
		}
		positions = append(positions, OpenPosition{Key: key, Lots: open, Remaining: queue.total()})
	}
	return positions
}
