package lotmatch

// lot is a quantity of shares acquired at a specific date and unit cost,
// tracked until fully sold. A lot is owned exclusively by its ledger queue:
// it is created when an opening transaction is replayed, mutated as sales
// consume it, and removed the moment its remaining quantity reaches zero.
type lot struct {
	seq       int      // input sequence of the originating transaction
	date      Date     // trade date of the originating transaction
	unitCost  Money    // per-share cost at creation
	remaining Quantity // decreases monotonically as sales consume it
}

type lots []lot

// Fill is one (lot, quantity) pair produced by consuming the front of a
// FIFO queue. One sale may produce several fills when it spans lots.
type Fill struct {
	LotSeq   int      // input sequence of the transaction that opened the lot
	LotDate  Date     // trade date of the consumed lot
	UnitCost Money    // per-share cost of the consumed lot
	Quantity Quantity // shares taken from the lot by this fill
}

// total returns the cumulative remaining quantity across the queue.
func (l lots) total() Quantity {
	var sum Quantity
	for _, currentLot := range l {
		sum = sum.Add(currentLot.remaining)
	}
	return sum
}

// take consumes quantityToSell from the front of the queue and returns the
// ordered fills together with the queue that remains. When the requested
// quantity exceeds the front lot's remainder, the lot is fully consumed and
// taking continues with the next one (a split). Depleted lots are never
// retained as zero-size entries.
//
// The caller must ensure quantityToSell does not exceed l.total().
func (l lots) take(quantityToSell Quantity) ([]Fill, lots) {
	var fills []Fill
	remainingLots := make(lots, 0, len(l))

	for _, currentLot := range l {
		if !quantityToSell.IsPositive() {
			remainingLots = append(remainingLots, currentLot)
			continue
		}

		taken := currentLot.remaining.Min(quantityToSell)
		fills = append(fills, Fill{
			LotSeq:   currentLot.seq,
			LotDate:  currentLot.date,
			UnitCost: currentLot.unitCost,
			Quantity: taken,
		})
		quantityToSell = quantityToSell.Sub(taken)

		if currentLot.remaining.GreaterThan(taken) {
			// Partial sale from this lot.
			currentLot.remaining = currentLot.remaining.Sub(taken)
			remainingLots = append(remainingLots, currentLot)
		}
		// Full sale of this lot: drop it.
	}
	return fills, remainingLots
}
