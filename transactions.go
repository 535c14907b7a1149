package lotmatch

import (
	"fmt"
)

// CommandType is a typed string for identifying transaction commands.
type CommandType string

// Command types used for identifying transactions.
const (
	CmdBeginningHolding CommandType = "beginning-holding"
	CmdPurchase         CommandType = "purchase"
	CmdSale             CommandType = "sale"
)

// Transaction defines the common interface for the records delivered to the
// engine by the upstream normalizer. Transactions are immutable inputs: the
// engine never mutates them.
type Transaction interface {
	What() CommandType // What returns the command type of the transaction (e.g., "purchase").
	When() Date        // When returns the trade date of the transaction.
	Key() SecurityKey  // Key returns the security key the transaction belongs to.
	Shares() Quantity  // Shares returns the transacted quantity, always positive.
	UnitPrice() Money  // UnitPrice returns the per-share price (cost basis for holdings).
	Validate() error
}

type baseCmd struct {
	Command CommandType `json:"command"`        // Command specifies the type of transaction.
	Date    Date        `json:"date"`           // Date is the trade date.
	Memo    string      `json:"memo,omitempty"` // Memo provides an optional note carried from the source row.
}

// What returns the command name for the transaction.
func (t baseCmd) What() CommandType { return t.Command }

// When returns the trade date of the transaction.
func (t baseCmd) When() Date { return t.Date }

// MarshalJSON implements the json.Marshaler interface for baseCmd.
func (t baseCmd) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("command", t.Command)
	w.Append("date", t.Date)
	w.Optional("memo", t.Memo)
	return w.MarshalJSON()
}

// secCmd is the component shared by all security transactions: the key that
// selects the FIFO queue, the quantity, and the per-share price.
type secCmd struct {
	baseCmd
	SecurityKey
	Quantity Quantity // Quantity is the number of shares, always positive.
	Price    Money    // Price is the per-share price.
}

func (t secCmd) Key() SecurityKey { return t.SecurityKey }
func (t secCmd) Shares() Quantity { return t.Quantity }
func (t secCmd) UnitPrice() Money { return t.Price }

// Validate checks the shared preconditions: a present security key, a
// strictly positive quantity, and a non-negative price. A zero or blank
// quantity means the row should have been skipped upstream.
func (t secCmd) Validate() error {
	if err := t.SecurityKey.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	if t.Date == (Date{}) {
		return fmt.Errorf("%w: trade date is missing", ErrInvalidTransaction)
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity %s is not positive", ErrInvalidTransaction, t.Quantity)
	}
	if t.Price.IsNegative() {
		return fmt.Errorf("%w: price %s is negative", ErrInvalidTransaction, t.Price.Decimal())
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for secCmd.
func (t secCmd) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.EmbedFrom(t.SecurityKey)
	w.Append("quantity", t.Quantity)
	w.Append("price", t.Price.Decimal())
	w.Optional("currency", t.Price.Currency())
	return w.MarshalJSON()
}

// BeginningHolding represents shares already held when the covered period
// starts. Its price is the cost basis, conventionally zero or nominal.
type BeginningHolding struct {
	secCmd
}

// NewBeginningHolding creates a new beginning-holding transaction.
func NewBeginningHolding(day Date, key SecurityKey, quantity Quantity, costBasis Money) BeginningHolding {
	return BeginningHolding{secCmd{
		baseCmd:     baseCmd{Command: CmdBeginningHolding, Date: day},
		SecurityKey: key,
		Quantity:    quantity,
		Price:       costBasis,
	}}
}

// Purchase represents an acquisition of shares at a per-share price.
type Purchase struct {
	secCmd
}

// NewPurchase creates a new purchase transaction.
func NewPurchase(day Date, key SecurityKey, quantity Quantity, price Money) Purchase {
	return Purchase{secCmd{
		baseCmd:     baseCmd{Command: CmdPurchase, Date: day},
		SecurityKey: key,
		Quantity:    quantity,
		Price:       price,
	}}
}

// Sale represents a disposal of shares at a per-share price. It consumes
// open lots of its key in FIFO order.
type Sale struct {
	secCmd
}

// NewSale creates a new sale transaction.
func NewSale(day Date, key SecurityKey, quantity Quantity, price Money) Sale {
	return Sale{secCmd{
		baseCmd:     baseCmd{Command: CmdSale, Date: day},
		SecurityKey: key,
		Quantity:    quantity,
		Price:       price,
	}}
}

// opensLot reports whether the transaction appends inventory to the ledger.
func opensLot(tx Transaction) bool {
	switch tx.What() {
	case CmdBeginningHolding, CmdPurchase:
		return true
	default:
		return false
	}
}
