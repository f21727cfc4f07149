package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoDashboard/internal/alert"
	"CryptoDashboard/internal/collector"
	"CryptoDashboard/internal/ledger"
	"CryptoDashboard/internal/metrics"
	"CryptoDashboard/internal/model"
)

func quote(sym, last string) model.PriceQuote {
	return model.PriceQuote{Symbol: sym, Last: decimal.NewNullDecimal(decimal.RequireFromString(last)), Source: model.SourceMock}
}

var table = model.LedgerTable{
	Columns: []string{"symbol", "amount", "buy_price"},
	Rows: [][]string{
		{"BTC", "1", "20000"},
		{"ETH", "2", "1000"},
		{"XYZ", "100", "0"},
	},
}

type countingSource struct {
	table model.LedgerTable
	loads int
}

func (c *countingSource) Load(context.Context) (model.LedgerTable, error) {
	c.loads++
	return c.table, nil
}

func newPipeline(f *collector.MockFetcher, src ledger.Source, history *metrics.ValueSeries) *Pipeline {
	return newPipelineTTL(f, src, history, time.Minute)
}

func newPipelineTTL(f *collector.MockFetcher, src ledger.Source, history *metrics.ValueSeries, ttl time.Duration) *Pipeline {
	col := collector.NewCollector([]collector.Fetcher{f}, time.Second, ttl, zerolog.Nop())
	opts := metrics.Options{TopN: 3, Airdrop24hFullValue: true}
	return New(src, col, alert.NewEvaluator(decimal.NewFromInt(100)), opts, history, ttl, zerolog.Nop())
}

func TestPipeline_Run(t *testing.T) {
	f := &collector.MockFetcher{Quotes: []model.PriceQuote{quote("BTC", "50000"), quote("ETH", "1500")}}
	p := newPipeline(f, ledger.StaticSource{Table: table}, metrics.NewValueSeries(10))

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)
	assert.False(t, report.PricesUnavailable)
	assert.Empty(t, report.DegradedProviders)

	// 50000 + 3000 + 0 (unquoted airdrop)
	assert.True(t, report.Summary.TotalValue.Equal(decimal.NewFromInt(53000)), report.Summary.TotalValue.String())

	require.Len(t, report.Alerts, 1)
	assert.Equal(t, "BTC", report.Alerts[0].Symbol)
	assert.True(t, report.Alerts[0].GainPct.Equal(decimal.NewFromInt(150)))

	last, ok := p.Last()
	require.True(t, ok)
	assert.Same(t, report, last)
	assert.False(t, report.Summary.Drawdown.Meaningful)
}

func TestPipeline_NoPricesDegrades(t *testing.T) {
	f := &collector.MockFetcher{Label: "down", Err: errors.New("timeout")}
	history := metrics.NewValueSeries(10)
	p := newPipeline(f, ledger.StaticSource{Table: table}, history)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.PricesUnavailable)
	assert.Equal(t, []string{"down"}, report.DegradedProviders)
	assert.Empty(t, report.Alerts)
	assert.True(t, report.Summary.TotalValue.Equal(report.Summary.TotalCost))
	assert.Empty(t, history.Values())
}

func TestPipeline_LedgerSchemaErrorFailsCycle(t *testing.T) {
	f := &collector.MockFetcher{}
	src := ledger.StaticSource{Table: model.LedgerTable{Columns: []string{"symbol", "amount"}}}
	p := newPipeline(f, src, nil)

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, model.ErrSchema)
	_, ok := p.Last()
	assert.False(t, ok)
	assert.Equal(t, int64(0), f.Calls())
}

func TestPipeline_DrawdownAcrossCycles(t *testing.T) {
	f := &collector.MockFetcher{Quotes: []model.PriceQuote{quote("BTC", "40000")}}
	p := newPipelineTTL(f, ledger.StaticSource{Table: table}, metrics.NewValueSeries(10), 0)

	_, err := p.Cycle(context.Background())
	require.NoError(t, err)

	f.Quotes = []model.PriceQuote{quote("BTC", "30000")}
	report, err := p.Cycle(context.Background())
	require.NoError(t, err)

	dd := report.Summary.Drawdown
	assert.True(t, dd.Meaningful)
	assert.Equal(t, 2, dd.Points)
	// 42000 -> 32000
	assert.True(t, dd.MaxPct.GreaterThan(decimal.NewFromInt(23)))
	assert.True(t, dd.MaxPct.LessThan(decimal.NewFromInt(24)))
}

func TestPipeline_ReadsDoNotGrowHistory(t *testing.T) {
	f := &collector.MockFetcher{Quotes: []model.PriceQuote{quote("BTC", "40000")}}
	src := &countingSource{table: table}
	history := metrics.NewValueSeries(10)
	p := newPipeline(f, src, history)

	for i := 0; i < 5; i++ {
		_, err := p.Run(context.Background())
		require.NoError(t, err)
	}
	assert.Empty(t, history.Values())
	assert.Equal(t, 1, src.loads)
	assert.Equal(t, int64(1), f.Calls())

	report, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history.Values())
	assert.Equal(t, 2, src.loads)
	assert.Equal(t, int64(2), f.Calls())
	assert.False(t, report.Summary.Drawdown.Meaningful)

	_, err = p.Cycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, history.Values(), 1)
}

func TestPipeline_LedgerFailureNotCached(t *testing.T) {
	f := &collector.MockFetcher{Quotes: []model.PriceQuote{quote("BTC", "40000")}}
	src := &countingSource{}
	p := newPipeline(f, src, nil)

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, model.ErrSchema)

	src.table = table
	_, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.loads)
}

func TestPipeline_RowPnL24hMatchesSummary(t *testing.T) {
	q := quote("XYZ", "2")
	q.Open24h = decimal.NewNullDecimal(decimal.RequireFromString("1.6"))
	q.Change24hPct = model.DeriveChange24h(q.Last, q.Open24h)
	f := &collector.MockFetcher{Quotes: []model.PriceQuote{q}}

	for _, full := range []bool{true, false} {
		p := newPipeline(f, ledger.StaticSource{Table: table}, nil)
		p.Options.Airdrop24hFullValue = full
		report, err := p.Refresh(context.Background())
		require.NoError(t, err)

		sum := decimal.Zero
		for _, r := range report.Rows {
			if r.PnL24h.Valid {
				sum = sum.Add(r.PnL24h.Decimal)
			}
		}
		assert.True(t, sum.Equal(report.Summary.PnL24hTotal), "full=%v", full)
	}
}

func TestPipeline_AlertsDisabled(t *testing.T) {
	f := &collector.MockFetcher{Quotes: []model.PriceQuote{quote("BTC", "90000")}}
	p := newPipeline(f, ledger.StaticSource{Table: table}, nil)
	p.Alerts = nil

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Alerts)
}
