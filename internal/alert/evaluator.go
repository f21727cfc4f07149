package alert

import (
	"time"

	"github.com/shopspring/decimal"

	"CryptoDashboard/internal/model"
)

var hundred = decimal.NewFromInt(100)

// DefaultThresholdPct is the gain, in percent, at which a holding alerts.
var DefaultThresholdPct = decimal.NewFromInt(100)

// PriceLookup resolves the current price of a symbol.
type PriceLookup interface {
	Price(symbol string) (decimal.Decimal, bool)
}

// Evaluator checks holdings against a gain threshold. It keeps no state between
// calls, so a sustained gain alerts on every evaluation.
type Evaluator struct {
	ThresholdPct decimal.Decimal
	Now          func() time.Time
}

// NewEvaluator returns an Evaluator for thresholdPct.
func NewEvaluator(thresholdPct decimal.Decimal) *Evaluator {
	return &Evaluator{ThresholdPct: thresholdPct, Now: time.Now}
}

// Evaluate emits one event per holding whose gain is at or above the threshold.
// Holdings without a price, with incomplete ledger data or with zero cost are
// skipped.
func (e *Evaluator) Evaluate(holdings []model.HoldingRecord, prices PriceLookup) []model.AlertEvent {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	at := now()

	var events []model.AlertEvent
	for _, h := range holdings {
		if !h.Complete() {
			continue
		}
		price, ok := prices.Price(h.Symbol)
		if !ok {
			continue
		}
		cost := h.Amount.Decimal.Mul(h.BuyPrice.Decimal)
		if !cost.IsPositive() {
			continue
		}
		value := h.Amount.Decimal.Mul(price)
		gain := value.Div(cost).Sub(decimal.NewFromInt(1)).Mul(hundred)
		if gain.LessThan(e.ThresholdPct) {
			continue
		}
		events = append(events, model.AlertEvent{
			Symbol:       h.Symbol,
			GainPct:      gain,
			CurrentValue: value,
			Profit:       value.Sub(cost),
			Timestamp:    at,
		})
	}
	return events
}

// Evaluate is a one-shot evaluation at thresholdPct.
func Evaluate(holdings []model.HoldingRecord, prices PriceLookup, thresholdPct decimal.Decimal) []model.AlertEvent {
	return NewEvaluator(thresholdPct).Evaluate(holdings, prices)
}
