package notifier

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"CryptoDashboard/internal/model"
)

// maxMessageLen is Telegram's limit for one message. Counting the raw HTML keeps
// the rendered text under it too.
const maxMessageLen = 4096

// FormatAlert formats a gain alert into a Telegram message.
func FormatAlert(ev model.AlertEvent) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚀 <b>%s</b> is up %s%%\n\n", html.EscapeString(ev.Symbol), ev.GainPct.StringFixed(1)))
	b.WriteString(fmt.Sprintf("Value: $%s\n", ev.CurrentValue.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Profit: %s\n", signedUSD(ev.Profit)))
	b.WriteString(fmt.Sprintf("Time: %s", ev.Timestamp.UTC().Format("2006-01-02 15:04 MST")))
	return b.String()
}

// FormatSummary formats the portfolio overview.
func FormatSummary(r *model.Report) string {
	s := r.Summary
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Portfolio</b> | %s\n\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Value: $%s\n", s.TotalValue.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Cost: $%s\n", s.TotalCost.StringFixed(2)))
	b.WriteString(fmt.Sprintf("P&L: %s (%s)\n", signedUSD(s.PnLAbs), signedPct(s.PnLPct)))
	b.WriteString(fmt.Sprintf("24h: %s\n", signedUSD(s.PnL24hTotal)))
	b.WriteString(fmt.Sprintf("Stablecoins: %s%%\n", s.StableRatioPct.StringFixed(1)))
	if s.Drawdown.Meaningful {
		b.WriteString(fmt.Sprintf("Max drawdown: %s%% (now %s%%, %d points)\n",
			s.Drawdown.MaxPct.StringFixed(1), s.Drawdown.CurrentPct.StringFixed(1), s.Drawdown.Points))
	}

	if len(s.Allocation) > 0 {
		b.WriteString("\n<b>Allocation</b>\n")
		for i, a := range s.Allocation {
			if i == 5 {
				b.WriteString(fmt.Sprintf("  … %d more\n", len(s.Allocation)-5))
				break
			}
			b.WriteString(fmt.Sprintf("  %s: %s%%\n", html.EscapeString(a.Symbol), a.SharePct.StringFixed(1)))
		}
	}

	b.WriteString(formatWarnings(r))
	return b.String()
}

// FormatHoldings formats the valuation table, one line per holding.
func FormatHoldings(r *model.Report) string {
	if len(r.Rows) == 0 {
		return "No holdings in ledger."
	}
	lines := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		lines = append(lines, holdingLine(row))
	}
	head := "📋 <b>Holdings</b>\n\n<pre>"
	tail := "</pre>"
	if r.Summary.FallbackPricing > 0 {
		tail += "\n* no live price, valued at cost"
	}
	budget := maxMessageLen - utf8.RuneCountInString(head) - utf8.RuneCountInString(tail)
	return head + fitLines(lines, budget) + tail
}

func holdingLine(row model.ValuationRow) string {
	sym := html.EscapeString(row.Symbol)
	switch {
	case row.Incomplete:
		return fmt.Sprintf("%-6s incomplete ledger row\n", sym)
	case row.IsAirdrop:
		return fmt.Sprintf("%-6s $%-12s airdrop\n", sym, row.CurrentValue.Decimal.StringFixed(2))
	}
	pct := "n/a"
	if row.PnLPct.Valid {
		pct = signedPct(row.PnLPct.Decimal)
	}
	mark := ""
	if row.PriceFallback {
		mark = " *"
	}
	return fmt.Sprintf("%-6s $%-12s %s%s\n", sym, row.CurrentValue.Decimal.StringFixed(2), pct, mark)
}

// fitLines joins lines until budget runes are used and replaces the rest with
// a "… N more" line.
func fitLines(lines []string, budget int) string {
	marker := utf8.RuneCountInString(moreLine(len(lines)))
	var b strings.Builder
	used := 0
	for i, line := range lines {
		n := utf8.RuneCountInString(line)
		need := n
		if i < len(lines)-1 {
			need += marker
		}
		if used+need > budget {
			b.WriteString(moreLine(len(lines) - i))
			break
		}
		b.WriteString(line)
		used += n
	}
	return b.String()
}

func moreLine(n int) string {
	return fmt.Sprintf("… %d more\n", n)
}

// FormatMovers formats the top gainers and losers.
func FormatMovers(r *model.Report) string {
	s := r.Summary
	if len(s.TopGainers) == 0 && len(s.TopLosers) == 0 {
		return "No movers yet."
	}
	var b strings.Builder
	b.WriteString("📈 <b>Top gainers</b>\n")
	for _, m := range s.TopGainers {
		b.WriteString(fmt.Sprintf("  %s %s (%s)\n", html.EscapeString(m.Symbol), signedPct(m.PnLPct), signedUSD(m.PnLAbs)))
	}
	b.WriteString("\n📉 <b>Top losers</b>\n")
	for _, m := range s.TopLosers {
		b.WriteString(fmt.Sprintf("  %s %s (%s)\n", html.EscapeString(m.Symbol), signedPct(m.PnLPct), signedUSD(m.PnLAbs)))
	}
	return b.String()
}

// FormatAlerts lists the alerts of the last cycle.
func FormatAlerts(r *model.Report) string {
	if len(r.Alerts) == 0 {
		return "No holdings above the alert threshold."
	}
	parts := make([]string, len(r.Alerts))
	for i, ev := range r.Alerts {
		parts[i] = FormatAlert(ev) + "\n\n"
	}
	return strings.TrimRight(fitLines(parts, maxMessageLen), "\n")
}

func formatWarnings(r *model.Report) string {
	var b strings.Builder
	if r.PricesUnavailable {
		b.WriteString("\n⚠️ Prices unavailable, showing cost basis")
	} else if len(r.DegradedProviders) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ Degraded providers: %s", html.EscapeString(strings.Join(r.DegradedProviders, ", "))))
	}
	if n := r.Summary.IncompleteRows; n > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ %d incomplete ledger row(s) excluded", n))
	}
	return b.String()
}

func signedUSD(v decimal.Decimal) string {
	if v.IsNegative() {
		return "-$" + v.Abs().StringFixed(2)
	}
	return "+$" + v.StringFixed(2)
}

func signedPct(v decimal.Decimal) string {
	if v.IsNegative() {
		return v.StringFixed(2) + "%"
	}
	return "+" + v.StringFixed(2) + "%"
}
