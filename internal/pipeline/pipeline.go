package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"CryptoDashboard/internal/alert"
	"CryptoDashboard/internal/collector"
	"CryptoDashboard/internal/ledger"
	"CryptoDashboard/internal/metrics"
	"CryptoDashboard/internal/model"
	"CryptoDashboard/internal/portfolio"
)

// PriceSource supplies price snapshots.
type PriceSource interface {
	Fetch(ctx context.Context) collector.Snapshot
	Refresh(ctx context.Context) collector.Snapshot
}

// Pipeline runs one evaluation cycle: load ledger, fetch prices, build the
// valuation, summarize and evaluate alerts.
type Pipeline struct {
	Ledger  ledger.Source
	Prices  PriceSource
	Alerts  *alert.Evaluator // nil disables alert evaluation
	Options metrics.Options
	// History only grows on scheduled cycles, one point per cycle.
	History *metrics.ValueSeries

	log      zerolog.Logger
	now      func() time.Time
	holdings *collector.Cache[[]model.HoldingRecord]
	mu       sync.RWMutex
	last     *model.Report
}

const ledgerKey = "ledger"

// New creates a Pipeline. The ledger is re-read at most once per ledgerTTL outside
// of Refresh.
func New(src ledger.Source, prices PriceSource, alerts *alert.Evaluator, opts metrics.Options, history *metrics.ValueSeries, ledgerTTL time.Duration, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		Ledger:   src,
		Prices:   prices,
		Alerts:   alerts,
		Options:  opts,
		History:  history,
		log:      log.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
		holdings: collector.NewCache[[]model.HoldingRecord](ledgerTTL),
	}
}

type runMode int

const (
	modeRead runMode = iota
	modeRefresh
	modeScheduled
)

// Run evaluates the portfolio from cached ledger and prices when fresh. A ledger
// that cannot be loaded or lacks required columns fails the run; price provider
// failures only degrade it. Run never records into History.
func (p *Pipeline) Run(ctx context.Context) (*model.Report, error) {
	return p.run(ctx, modeRead)
}

// Refresh is Run with the ledger and price caches bypassed.
func (p *Pipeline) Refresh(ctx context.Context) (*model.Report, error) {
	return p.run(ctx, modeRefresh)
}

// Cycle is the scheduled evaluation. It is Run plus one History point.
func (p *Pipeline) Cycle(ctx context.Context) (*model.Report, error) {
	return p.run(ctx, modeScheduled)
}

// Last returns the most recent successful report.
func (p *Pipeline) Last() (*model.Report, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.last != nil
}

// loadHoldings returns the parsed ledger. Only a ledger that parsed cleanly is cached.
func (p *Pipeline) loadHoldings(ctx context.Context, fresh bool) ([]model.HoldingRecord, error) {
	if fresh {
		p.holdings.Invalidate(ledgerKey)
	}
	holdings, _, err := p.holdings.GetOrLoad(ctx, ledgerKey, func(ctx context.Context) ([]model.HoldingRecord, error) {
		table, err := p.Ledger.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		holdings, err := portfolio.ParseHoldings(table)
		if err != nil {
			return nil, fmt.Errorf("parse ledger: %w", err)
		}
		return holdings, nil
	})
	return holdings, err
}

func (p *Pipeline) run(ctx context.Context, mode runMode) (*model.Report, error) {
	start := p.now()

	holdings, err := p.loadHoldings(ctx, mode == modeRefresh)
	if err != nil {
		return nil, err
	}

	var snap collector.Snapshot
	if mode == modeRefresh {
		snap = p.Prices.Refresh(ctx)
	} else {
		snap = p.Prices.Fetch(ctx)
	}

	rows := portfolio.Build(holdings, snap.Quotes)
	metrics.ApplyAirdrop24hPolicy(rows, p.Options.Airdrop24hFullValue)
	report := &model.Report{
		Rows:              rows,
		PricesUnavailable: len(snap.Quotes) == 0,
		DegradedProviders: snap.Degraded,
		GeneratedAt:       start,
	}

	opts := p.Options
	opts.History = nil
	report.Summary = metrics.Summarize(rows, opts)

	// Cost-basis valuations would fake a flat line, so they stay out of the series.
	if p.History != nil && mode == modeScheduled && !report.PricesUnavailable {
		p.History.Append(start, report.Summary.TotalValue)
	}
	if p.History != nil {
		report.Summary.Drawdown = metrics.MaxDrawdown(p.History.Values())
	}

	if p.Alerts != nil {
		report.Alerts = p.Alerts.Evaluate(holdings, portfolio.IndexQuotes(snap.Quotes))
	}

	p.mu.Lock()
	p.last = report
	p.mu.Unlock()

	p.log.Info().
		Int("holdings", len(rows)).
		Int("quotes", len(snap.Quotes)).
		Bool("cached", snap.Cached).
		Bool("scheduled", mode == modeScheduled).
		Strs("degraded", snap.Degraded).
		Str("total_value", report.Summary.TotalValue.StringFixed(2)).
		Int("alerts", len(report.Alerts)).
		Dur("took", p.now().Sub(start)).
		Msg("evaluation complete")
	if report.PricesUnavailable {
		p.log.Warn().Msg("no prices available, holdings valued at cost basis")
	}
	return report, nil
}
