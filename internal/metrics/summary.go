package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"CryptoDashboard/internal/model"
)

var hundred = decimal.NewFromInt(100)

// DefaultTopN is the size of the gainers/losers lists when Options.TopN is unset.
const DefaultTopN = 5

// Options tunes Summarize.
type Options struct {
	StableAssets map[string]bool
	TopN         int
	// Airdrop24hFullValue counts an airdrop's whole current value as its 24h P&L.
	// When false, airdrops are left out of the 24h figures.
	Airdrop24hFullValue bool
	// History is the value series drawdown is computed over, oldest first.
	History []decimal.Decimal
}

// Summarize derives aggregate and per-asset metrics from valuation rows.
// Incomplete rows are counted but never summed.
func Summarize(rows []model.ValuationRow, opts Options) model.PortfolioSummary {
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	var s model.PortfolioSummary
	s.Holdings = len(rows)

	value := map[string]decimal.Decimal{}
	pnl := map[string]decimal.Decimal{}
	pnl24 := map[string]decimal.Decimal{}
	stable := decimal.Zero

	for _, r := range rows {
		if r.IsAirdrop {
			s.Airdrops++
		}
		if r.PriceFallback {
			s.FallbackPricing++
		}
		if r.Incomplete {
			s.IncompleteRows++
		}
		if r.Cost.Valid {
			s.TotalCost = s.TotalCost.Add(r.Cost.Decimal)
		}
		if !r.CurrentValue.Valid {
			continue
		}
		cv := r.CurrentValue.Decimal
		s.TotalValue = s.TotalValue.Add(cv)
		value[r.Symbol] = value[r.Symbol].Add(cv)
		if r.PnLAbs.Valid {
			pnl[r.Symbol] = pnl[r.Symbol].Add(r.PnLAbs.Decimal)
		}
		if opts.StableAssets[r.Symbol] {
			stable = stable.Add(cv)
		}

		switch {
		case r.IsAirdrop && opts.Airdrop24hFullValue:
			pnl24[r.Symbol] = pnl24[r.Symbol].Add(cv)
		case r.IsAirdrop:
		case r.PnL24h.Valid:
			pnl24[r.Symbol] = pnl24[r.Symbol].Add(r.PnL24h.Decimal)
		default:
			pnl24[r.Symbol] = pnl24[r.Symbol].Add(decimal.Zero)
		}
	}

	s.PnLAbs = s.TotalValue.Sub(s.TotalCost)
	s.PnLPct = percentOf(s.PnLAbs, s.TotalCost)
	s.StableRatioPct = percentOf(stable, s.TotalValue)

	s.Allocation = bySymbol(value, s.TotalValue)
	s.Contribution = bySymbol(pnl, s.TotalCost)
	s.PnL24h = bySymbol(pnl24, s.TotalValue)
	for _, v := range pnl24 {
		s.PnL24hTotal = s.PnL24hTotal.Add(v)
	}

	s.TopGainers, s.TopLosers = Movers(rows, topN)
	s.Drawdown = MaxDrawdown(opts.History)
	return s
}

// ApplyAirdrop24hPolicy aligns the per-row 24h P&L of airdrops with Summarize:
// the full current value when fullValue is set, null otherwise.
func ApplyAirdrop24hPolicy(rows []model.ValuationRow, fullValue bool) {
	for i := range rows {
		r := &rows[i]
		if !r.IsAirdrop || !r.CurrentValue.Valid {
			continue
		}
		if fullValue {
			r.PnL24h = r.CurrentValue
		} else {
			r.PnL24h = decimal.NullDecimal{}
		}
	}
}

// Movers ranks rows with a defined pnl percentage. Gainers are the top n by
// descending percentage and losers the bottom n by ascending percentage. When fewer
// than 2n rows are ranked the rows are split between the lists instead, so no row
// is listed twice; an odd middle row goes to the side matching its sign. Ties
// break on symbol ascending.
func Movers(rows []model.ValuationRow, n int) (gainers, losers []model.Mover) {
	n = max(n, 0)
	ranked := make([]model.ValuationRow, 0, len(rows))
	for _, r := range rows {
		if r.PnLPct.Valid {
			ranked = append(ranked, r)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].PnLPct.Decimal, ranked[j].PnLPct.Decimal
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	g, l := n, n
	if 2*n > len(ranked) {
		g, l = len(ranked)/2, len(ranked)/2
		if len(ranked)%2 == 1 {
			if ranked[g].PnLPct.Decimal.IsNegative() {
				l++
			} else {
				g++
			}
		}
	}
	gainers = toMovers(ranked[:g])

	rest := append([]model.ValuationRow(nil), ranked[g:]...)
	sort.SliceStable(rest, func(i, j int) bool {
		a, b := rest[i].PnLPct.Decimal, rest[j].PnLPct.Decimal
		if !a.Equal(b) {
			return a.LessThan(b)
		}
		return rest[i].Symbol < rest[j].Symbol
	})
	losers = toMovers(rest[:l])
	return gainers, losers
}

func toMovers(rows []model.ValuationRow) []model.Mover {
	out := make([]model.Mover, len(rows))
	for i, r := range rows {
		out[i] = model.Mover{Symbol: r.Symbol, PnLPct: r.PnLPct.Decimal, PnLAbs: r.PnLAbs.Decimal}
	}
	return out
}

// bySymbol turns per-symbol sums into entries sorted by value descending, with
// SharePct relative to base (zero when base is zero).
func bySymbol(sums map[string]decimal.Decimal, base decimal.Decimal) []model.SymbolValue {
	out := make([]model.SymbolValue, 0, len(sums))
	for sym, v := range sums {
		out = append(out, model.SymbolValue{Symbol: sym, Value: v, SharePct: percentOf(v, base)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Value.Equal(out[j].Value) {
			return out[i].Value.GreaterThan(out[j].Value)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// percentOf returns part/base*100, defined as zero when base is not positive.
func percentOf(part, base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	return part.Div(base).Mul(hundred)
}
