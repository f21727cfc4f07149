package model

import "github.com/shopspring/decimal"

// LedgerTable is the raw tabular ledger as read from the external source, before
// any column canonicalization or numeric coercion.
type LedgerTable struct {
	Columns []string
	Rows    [][]string
}

// HoldingRecord is one position from the ledger. Amount and BuyPrice are null when
// the ledger cell was empty or not numeric.
type HoldingRecord struct {
	Symbol   string
	Amount   decimal.NullDecimal
	BuyPrice decimal.NullDecimal
}

// Complete reports whether both numeric fields were parsed.
func (h HoldingRecord) Complete() bool {
	return h.Amount.Valid && h.BuyPrice.Valid
}

// IsAirdrop reports a holding with a recorded buy price of exactly zero.
func (h HoldingRecord) IsAirdrop() bool {
	return h.BuyPrice.Valid && h.BuyPrice.Decimal.IsZero()
}
