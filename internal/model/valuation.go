package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValuationRow is one holding joined with its price. Monetary fields are null when
// the holding's amount or buy price could not be parsed (Incomplete rows); such rows
// are displayed but never summed.
type ValuationRow struct {
	Symbol   string              `json:"symbol"`
	Amount   decimal.NullDecimal `json:"amount"`
	BuyPrice decimal.NullDecimal `json:"buy_price"`

	EffectivePrice decimal.NullDecimal `json:"effective_price"`
	PriceSource    Source              `json:"price_source,omitempty"` // empty when the price fell back to cost basis
	PriceFallback  bool                `json:"price_fallback"`

	Cost         decimal.NullDecimal `json:"cost"`
	CurrentValue decimal.NullDecimal `json:"current_value"`
	PnLAbs       decimal.NullDecimal `json:"pnl_abs"`
	PnLPct       decimal.NullDecimal `json:"pnl_pct"` // null for airdrops (zero cost)

	Change24hPct decimal.NullDecimal `json:"change_24h_pct"`
	PnL24h       decimal.NullDecimal `json:"pnl_24h"`

	IsAirdrop  bool `json:"is_airdrop"`
	Incomplete bool `json:"incomplete"`
}

// SymbolValue is a per-symbol amount used by the distribution views.
type SymbolValue struct {
	Symbol   string          `json:"symbol"`
	Value    decimal.Decimal `json:"value"`
	SharePct decimal.Decimal `json:"share_pct"`
}

// Mover is one entry of the top gainers / losers lists.
type Mover struct {
	Symbol string          `json:"symbol"`
	PnLPct decimal.Decimal `json:"pnl_pct"`
	PnLAbs decimal.Decimal `json:"pnl_abs"`
}

// Drawdown is the peak-to-trough decline over the value series. Meaningful is false
// when the series has fewer than two points.
type Drawdown struct {
	MaxPct     decimal.Decimal `json:"max_pct"`
	CurrentPct decimal.Decimal `json:"current_pct"`
	Peak       decimal.Decimal `json:"peak"`
	Points     int             `json:"points"`
	Meaningful bool            `json:"meaningful"`
}

// PortfolioSummary holds aggregate and per-asset metrics for one cycle.
type PortfolioSummary struct {
	TotalCost  decimal.Decimal `json:"total_cost"`
	TotalValue decimal.Decimal `json:"total_value"`
	PnLAbs     decimal.Decimal `json:"pnl_abs"`
	PnLPct     decimal.Decimal `json:"pnl_pct"`

	Allocation   []SymbolValue `json:"allocation"`
	Contribution []SymbolValue `json:"contribution"`
	TopGainers   []Mover       `json:"top_gainers"`
	TopLosers    []Mover       `json:"top_losers"`

	PnL24h      []SymbolValue   `json:"pnl_24h"`
	PnL24hTotal decimal.Decimal `json:"pnl_24h_total"`

	StableRatioPct decimal.Decimal `json:"stable_ratio_pct"`
	Drawdown       Drawdown        `json:"drawdown"`

	Holdings        int `json:"holdings"`
	IncompleteRows  int `json:"incomplete_rows"`
	FallbackPricing int `json:"fallback_pricing"`
	Airdrops        int `json:"airdrops"`
}

// Report is the full outcome of one evaluation cycle.
type Report struct {
	Rows              []ValuationRow   `json:"rows"`
	Summary           PortfolioSummary `json:"summary"`
	Alerts            []AlertEvent     `json:"alerts"`
	PricesUnavailable bool             `json:"prices_unavailable"`
	DegradedProviders []string         `json:"degraded_providers,omitempty"`
	GeneratedAt       time.Time        `json:"generated_at"`
}
