package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertEvent is emitted for a holding whose gain crossed the configured threshold.
// Events are not persisted; the notifier consumes them once.
type AlertEvent struct {
	Symbol       string          `json:"symbol"`
	GainPct      decimal.Decimal `json:"gain_pct"`
	CurrentValue decimal.Decimal `json:"current_value"`
	Profit       decimal.Decimal `json:"profit"`
	Timestamp    time.Time       `json:"timestamp"`
}
