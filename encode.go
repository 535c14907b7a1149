package lotmatch

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// This file implements the typed record boundary of the engine as JSONL:
// one transaction or matched lot per line, human-readable and
// git-friendly. Spreadsheet parsing and column mapping live upstream; by
// the time records reach this decoder they are already normalized.

// jtx is the wire form of a transaction line.
type jtx struct {
	Command  CommandType     `json:"command"`
	Date     Date            `json:"date"`
	Security string          `json:"security"`
	Fund     string          `json:"fund,omitempty"`
	Entity   string          `json:"entity,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency,omitempty"`
	Memo     string          `json:"memo,omitempty"`
}

// DecodeTransactions reads transactions from a JSONL stream. Lines that do
// not parse are reported with their line number; a format error on one
// line does not prevent decoding the rest, so callers can surface every
// problem of a file at once. The returned error joins all line errors.
func DecodeTransactions(r io.Reader) ([]Transaction, error) {
	var txs []Transaction
	var errs []error

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var jt jtx
		if err := json.Unmarshal(line, &jt); err != nil {
			errs = append(errs, fmt.Errorf("format error on line %d: %w", lineNo, err))
			continue
		}

		tx, err := jt.transaction()
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", lineNo, err))
			continue
		}
		txs = append(txs, tx)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	return txs, joinAll(errs)
}

// transaction builds the typed variant from the wire form, rejecting
// unknown commands at the boundary.
func (jt jtx) transaction() (Transaction, error) {
	key := NewSecurityKey(jt.Security, jt.Fund, jt.Entity)
	quantity := NewQuantity(jt.Quantity)
	price := NewMoney(jt.Price, jt.Currency)
	switch jt.Command {
	case CmdBeginningHolding:
		tx := NewBeginningHolding(jt.Date, key, quantity, price)
		tx.Memo = jt.Memo
		return tx, nil
	case CmdPurchase:
		tx := NewPurchase(jt.Date, key, quantity, price)
		tx.Memo = jt.Memo
		return tx, nil
	case CmdSale:
		tx := NewSale(jt.Date, key, quantity, price)
		tx.Memo = jt.Memo
		return tx, nil
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidTransaction, jt.Command)
	}
}

// EncodeTransaction writes a single transaction as one JSONL line.
func EncodeTransaction(w io.Writer, tx Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("could not marshal transaction: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// EncodeMatchedLots writes matched lots as JSONL, one per line.
func EncodeMatchedLots(w io.Writer, matches []MatchedLot) error {
	bw := bufio.NewWriter(w)
	for _, m := range matches {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("could not marshal matched lot: %w", err)
		}
		if _, err := fmt.Fprintf(bw, "%s\n", data); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodeSummaries writes summaries as JSONL, one per line.
func EncodeSummaries(w io.Writer, summaries []Summary) error {
	bw := bufio.NewWriter(w)
	for _, s := range summaries {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("could not marshal summary: %w", err)
		}
		if _, err := fmt.Fprintf(bw, "%s\n", data); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// jmatch is the wire form of a matched lot line.
type jmatch struct {
	Security       string          `json:"security"`
	Fund           string          `json:"fund,omitempty"`
	Entity         string          `json:"entity,omitempty"`
	BuyDate        Date            `json:"buy_date"`
	SellDate       Date            `json:"sell_date"`
	Shares         decimal.Decimal `json:"shares"`
	BuyPrice       decimal.Decimal `json:"buy_price"`
	SellPrice      decimal.Decimal `json:"sell_price"`
	Currency       string          `json:"currency,omitempty"`
	RealizedPNL    decimal.Decimal `json:"realized_pnl"`
	RecognizedLoss decimal.Decimal `json:"recognized_loss"`
	BuySeq         int             `json:"buy_seq"`
	SellSeq        int             `json:"sell_seq"`
}

// DecodeMatchedLots reads matched lots from a JSONL stream, typically to
// aggregate a previously saved run.
func DecodeMatchedLots(r io.Reader) ([]MatchedLot, error) {
	var matches []MatchedLot
	var errs []error

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var jm jmatch
		if err := json.Unmarshal(line, &jm); err != nil {
			errs = append(errs, fmt.Errorf("format error on line %d: %w", lineNo, err))
			continue
		}
		matches = append(matches, MatchedLot{
			Key:            NewSecurityKey(jm.Security, jm.Fund, jm.Entity),
			BuyDate:        jm.BuyDate,
			SellDate:       jm.SellDate,
			Shares:         NewQuantity(jm.Shares),
			BuyPrice:       NewMoney(jm.BuyPrice, jm.Currency),
			SellPrice:      NewMoney(jm.SellPrice, jm.Currency),
			RealizedPNL:    NewMoney(jm.RealizedPNL, jm.Currency),
			RecognizedLoss: NewMoney(jm.RecognizedLoss, jm.Currency),
			BuySeq:         jm.BuySeq,
			SellSeq:        jm.SellSeq,
		})
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	return matches, joinAll(errs)
}

// joinAll is errors.Join with a nil result for an empty slice.
func joinAll(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
