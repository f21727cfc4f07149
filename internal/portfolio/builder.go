package portfolio

import (
	"github.com/shopspring/decimal"

	"CryptoDashboard/internal/model"
)

var hundred = decimal.NewFromInt(100)

// QuoteIndex resolves one quote per symbol. When several providers quote the same
// symbol, the first quote carrying a last price wins; provider order is the
// precedence order.
type QuoteIndex struct {
	bySymbol map[string]model.PriceQuote
}

// IndexQuotes builds the index from a concatenated quote list.
func IndexQuotes(quotes []model.PriceQuote) *QuoteIndex {
	idx := &QuoteIndex{bySymbol: make(map[string]model.PriceQuote, len(quotes))}
	for _, q := range quotes {
		sym := CanonicalSymbol(q.Symbol)
		if sym == "" {
			continue
		}
		cur, seen := idx.bySymbol[sym]
		if !seen || (!cur.Last.Valid && q.Last.Valid) {
			idx.bySymbol[sym] = q
		}
	}
	return idx
}

// Quote returns the selected quote for symbol.
func (x *QuoteIndex) Quote(symbol string) (model.PriceQuote, bool) {
	q, ok := x.bySymbol[CanonicalSymbol(symbol)]
	return q, ok
}

// Price returns the last price for symbol, if one was quoted.
func (x *QuoteIndex) Price(symbol string) (decimal.Decimal, bool) {
	q, ok := x.Quote(symbol)
	if !ok || !q.Last.Valid {
		return decimal.Decimal{}, false
	}
	return q.Last.Decimal, true
}

// Len reports the number of distinct symbols quoted.
func (x *QuoteIndex) Len() int { return len(x.bySymbol) }

// Build left-joins holdings to quotes. Every holding yields exactly one row, in
// ledger order. A missing quote or last price falls back to the buy price, which
// makes the row flat (pnl 0).
func Build(holdings []model.HoldingRecord, quotes []model.PriceQuote) []model.ValuationRow {
	idx := IndexQuotes(quotes)
	rows := make([]model.ValuationRow, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, valueHolding(h, idx))
	}
	return rows
}

// BuildFromTable parses a raw ledger and builds the valuation. A ledger missing
// required columns is a SchemaError.
func BuildFromTable(table model.LedgerTable, quotes []model.PriceQuote) ([]model.ValuationRow, error) {
	holdings, err := ParseHoldings(table)
	if err != nil {
		return nil, err
	}
	return Build(holdings, quotes), nil
}

func valueHolding(h model.HoldingRecord, idx *QuoteIndex) model.ValuationRow {
	row := model.ValuationRow{
		Symbol:     CanonicalSymbol(h.Symbol),
		Amount:     h.Amount,
		BuyPrice:   h.BuyPrice,
		IsAirdrop:  h.IsAirdrop(),
		Incomplete: !h.Complete(),
	}

	q, quoted := idx.Quote(row.Symbol)
	if quoted {
		row.Change24hPct = q.Change24hPct
	}
	if quoted && q.Last.Valid {
		row.EffectivePrice = q.Last
		row.PriceSource = q.Source
	} else {
		row.EffectivePrice = h.BuyPrice
		row.PriceFallback = true
	}

	if row.Incomplete {
		return row
	}

	amount := h.Amount.Decimal
	cost := amount.Mul(h.BuyPrice.Decimal)
	value := amount.Mul(row.EffectivePrice.Decimal)
	pnl := value.Sub(cost)

	row.Cost = decimal.NewNullDecimal(cost)
	row.CurrentValue = decimal.NewNullDecimal(value)
	row.PnLAbs = decimal.NewNullDecimal(pnl)
	if cost.IsPositive() {
		row.PnLPct = decimal.NewNullDecimal(pnl.Div(cost).Mul(hundred))
	}
	// An airdrop has no cost basis, so its whole value counts as 24h P&L.
	if row.IsAirdrop {
		row.PnL24h = decimal.NewNullDecimal(value)
	} else if !row.PriceFallback && row.Change24hPct.Valid {
		row.PnL24h = decimal.NewNullDecimal(value.Mul(row.Change24hPct.Decimal).Div(hundred))
	}
	return row
}
