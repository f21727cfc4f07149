package metrics

import (
	"github.com/shopspring/decimal"

	"CryptoDashboard/internal/model"
)

// MaxDrawdown scans a value series for the largest peak-to-trough decline, in
// percent of the peak. A series with fewer than two points has no drawdown and is
// reported as not meaningful rather than as an error.
func MaxDrawdown(values []decimal.Decimal) model.Drawdown {
	dd := model.Drawdown{Points: len(values), Meaningful: len(values) >= 2}
	if len(values) == 0 {
		return dd
	}

	peak := values[0]
	for _, v := range values {
		if v.GreaterThan(peak) {
			peak = v
		}
		if !peak.IsPositive() {
			continue
		}
		pct := peak.Sub(v).Div(peak).Mul(hundred)
		if pct.GreaterThan(dd.MaxPct) {
			dd.MaxPct = pct
		}
	}
	dd.Peak = peak
	if last := values[len(values)-1]; peak.IsPositive() {
		dd.CurrentPct = peak.Sub(last).Div(peak).Mul(hundred)
	}
	return dd
}
