package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies the market-data provider a quote came from.
type Source string

const (
	SourceOKX     Source = "okx"
	SourceBinance Source = "binance"
	SourceMock    Source = "mock"
)

// PriceQuote is a normalized snapshot price for one base asset from one provider.
// Last and Open24h are null when the provider did not report a usable (> 0) value.
type PriceQuote struct {
	Symbol       string
	Last         decimal.NullDecimal
	Open24h      decimal.NullDecimal
	Change24hPct decimal.NullDecimal
	Source       Source
	FetchedAt    time.Time
}

var hundred = decimal.NewFromInt(100)

// DeriveChange24h returns (last - open) / open * 100, or null when either side is
// missing or open is zero.
func DeriveChange24h(last, open decimal.NullDecimal) decimal.NullDecimal {
	if !last.Valid || !open.Valid || open.Decimal.IsZero() {
		return decimal.NullDecimal{}
	}
	pct := last.Decimal.Sub(open.Decimal).Div(open.Decimal).Mul(hundred)
	return decimal.NewNullDecimal(pct)
}
