package lotmatch

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. There are no run-fatal errors: a
// validation error excludes one transaction, an inventory error fails one
// security key, and everything else completes.
var (
	// ErrInvalidTransaction marks a transaction rejected before reaching
	// the ledger (non-positive quantity, negative price, missing key).
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrInsufficientInventory marks a sale requesting more shares than the
	// cumulative remaining quantity across all open lots for its key.
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// ErrOrderingAmbiguity marks two transactions with identical date and
	// no defined tie-break. It cannot occur through the public intake path,
	// which assigns a unique input sequence to every transaction; it is a
	// defensive assertion, not a recoverable condition.
	ErrOrderingAmbiguity = errors.New("ordering ambiguity")

	// ErrCurrencyMismatch marks amounts in different currencies meeting
	// where one currency is required: a security key mixing transaction
	// currencies, or run totals spanning currencies. The engine performs
	// no conversion.
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// KeyFailure records a failure scoped to a single security key. A failed
// key emits no matched lots, but does not block other keys in the run.
type KeyFailure struct {
	Key SecurityKey
	Err error
}

func (f KeyFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Key, f.Err)
}

func (f KeyFailure) Unwrap() error { return f.Err }

// Kind returns the stable name of the underlying error kind.
func (f KeyFailure) Kind() string {
	switch {
	case errors.Is(f.Err, ErrInsufficientInventory):
		return "insufficient-inventory"
	case errors.Is(f.Err, ErrInvalidTransaction):
		return "invalid-transaction"
	case errors.Is(f.Err, ErrOrderingAmbiguity):
		return "ordering-ambiguity"
	case errors.Is(f.Err, ErrCurrencyMismatch):
		return "currency-mismatch"
	default:
		return "error"
	}
}

// MarshalJSON implements the json.Marshaler interface for KeyFailure.
func (f KeyFailure) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(f.Key)
	w.Append("kind", f.Kind())
	w.Append("message", f.Err.Error())
	return w.MarshalJSON()
}

// TransactionError records a transaction rejected during validation,
// identified by its zero-based position in the input sequence.
type TransactionError struct {
	Seq int
	Err error
}

func (e TransactionError) Error() string {
	return fmt.Sprintf("transaction #%d: %v", e.Seq, e.Err)
}

func (e TransactionError) Unwrap() error { return e.Err }
