package portfolio

import (
	"strings"

	"github.com/shopspring/decimal"

	"CryptoDashboard/internal/model"
)

// Canonical ledger column names.
const (
	ColSymbol   = "symbol"
	ColAmount   = "amount"
	ColBuyPrice = "buy_price"
)

// columnAliases maps alternate ledger headers to the canonical column.
var columnAliases = map[string]string{
	"symbol":     ColSymbol,
	"coin":       ColSymbol,
	"ticker":     ColSymbol,
	"asset":      ColSymbol,
	"amount":     ColAmount,
	"qty":        ColAmount,
	"quantity":   ColAmount,
	"buy_price":  ColBuyPrice,
	"buyprice":   ColBuyPrice,
	"buy":        ColBuyPrice,
	"cost_price": ColBuyPrice,
	"avg_price":  ColBuyPrice,
}

// quoteSuffixes are stripped from ledger symbols written as trading pairs.
var quoteSuffixes = []string{"USDT", "USDC", "USD", "BUSD"}

// CanonicalColumn normalizes a header cell: trimmed, lower case, spaces and dashes
// as underscores, aliases resolved.
func CanonicalColumn(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	if c, ok := columnAliases[n]; ok {
		return c
	}
	return n
}

// CanonicalSymbol upper-cases a ticker and reduces pair notation ("btc-usdt",
// "BTC/USDT") to the base asset.
func CanonicalSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, sep := range []string{"-", "/", "_"} {
		if i := strings.Index(s, sep); i > 0 {
			quote := s[i+1:]
			for _, q := range quoteSuffixes {
				if quote == q {
					return s[:i]
				}
			}
		}
	}
	return s
}

// ParseDecimal is parse-or-null: empty or non-numeric cells become null, never zero.
// A leading "$" is tolerated.
func ParseDecimal(cell string) decimal.NullDecimal {
	s := strings.TrimPrefix(strings.TrimSpace(cell), "$")
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// ParseHoldings canonicalizes the ledger columns and coerces each row. It fails
// with a SchemaError when the symbol, amount or buy_price column is absent. Rows
// without a symbol are dropped; negative amounts or prices are coerced to null.
func ParseHoldings(table model.LedgerTable) ([]model.HoldingRecord, error) {
	idx := map[string]int{}
	for i, col := range table.Columns {
		c := CanonicalColumn(col)
		if _, dup := idx[c]; !dup {
			idx[c] = i
		}
	}
	var missing []string
	for _, c := range []string{ColSymbol, ColAmount, ColBuyPrice} {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &model.SchemaError{Source: "ledger", Missing: missing}
	}

	cell := func(row []string, col string) string {
		if i := idx[col]; i < len(row) {
			return row[i]
		}
		return ""
	}

	holdings := make([]model.HoldingRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		sym := CanonicalSymbol(cell(row, ColSymbol))
		if sym == "" {
			continue
		}
		holdings = append(holdings, model.HoldingRecord{
			Symbol:   sym,
			Amount:   nonNegative(ParseDecimal(cell(row, ColAmount))),
			BuyPrice: nonNegative(ParseDecimal(cell(row, ColBuyPrice))),
		})
	}
	return holdings, nil
}

func nonNegative(d decimal.NullDecimal) decimal.NullDecimal {
	if d.Valid && d.Decimal.IsNegative() {
		return decimal.NullDecimal{}
	}
	return d
}
