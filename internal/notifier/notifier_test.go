package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoDashboard/internal/model"
)

type telegramStub struct {
	mu       sync.Mutex
	messages []map[string]string
	failures int
}

func (s *telegramStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failures > 0 {
			s.failures--
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var msg map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		s.messages = append(s.messages, msg)
		w.Write([]byte(`{"ok":true}`))
	}
}

func newTestNotifier(url string) *TelegramNotifier {
	n := NewTelegramNotifier("token", "42", "", zerolog.Nop())
	n.APIBase = url
	return n
}

func alertEvent(sym string) model.AlertEvent {
	return model.AlertEvent{
		Symbol:       sym,
		GainPct:      decimal.NewFromInt(150),
		CurrentValue: decimal.NewFromInt(25000),
		Profit:       decimal.NewFromInt(15000),
		Timestamp:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSend(t *testing.T) {
	stub := &telegramStub{}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).Send(context.Background(), "<b>hi</b>"))
	require.Len(t, stub.messages, 1)
	assert.Equal(t, "42", stub.messages[0]["chat_id"])
	assert.Equal(t, "HTML", stub.messages[0]["parse_mode"])
}

func TestSend_DisabledWithoutCredentials(t *testing.T) {
	n := NewTelegramNotifier("", "42", "", zerolog.Nop())
	assert.False(t, n.Enabled())
	assert.ErrorIs(t, n.Send(context.Background(), "x"), model.ErrConfigMissing)
	assert.Equal(t, 0, n.Dispatch(context.Background(), []model.AlertEvent{alertEvent("BTC")}))
}

func TestSendWithRetry(t *testing.T) {
	old := Backoff
	Backoff = time.Millisecond
	defer func() { Backoff = old }()

	stub := &telegramStub{failures: 2}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).SendWithRetry(context.Background(), "x", 3))
	assert.Len(t, stub.messages, 1)

	stub.failures = 5
	err := newTestNotifier(srv.URL).SendWithRetry(context.Background(), "x", 1)
	assert.ErrorIs(t, err, model.ErrUpstreamUnavailable)
}

func TestDispatch(t *testing.T) {
	old := Backoff
	Backoff = time.Millisecond
	defer func() { Backoff = old }()

	stub := &telegramStub{}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	n := newTestNotifier(srv.URL)
	sent := n.Dispatch(context.Background(), []model.AlertEvent{alertEvent("BTC"), alertEvent("ETH")})
	assert.Equal(t, 2, sent)
	require.Len(t, stub.messages, 2)
	assert.Contains(t, stub.messages[0]["text"], "<b>BTC</b> is up 150.0%")
}

func TestDispatch_FailureIsNotFatal(t *testing.T) {
	old := Backoff
	Backoff = time.Millisecond
	defer func() { Backoff = old }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	assert.Equal(t, 0, newTestNotifier(srv.URL).Dispatch(context.Background(), []model.AlertEvent{alertEvent("BTC")}))
}

func TestStartPolling(t *testing.T) {
	stub := &telegramStub{}
	var once sync.Once
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getUpdates") {
			served := false
			once.Do(func() {
				served = true
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":1,"message":{"text":"/portfolio","chat":{"id":42}}},
					{"update_id":2,"message":{"text":"/portfolio","chat":{"id":7}}}
				]}`))
			})
			if !served {
				<-r.Context().Done()
			}
			return
		}
		stub.handler(t)(w, r)
	}))
	defer srv.Close()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	go func() {
		newTestNotifier(srv.URL).StartPolling(ctx, func(_ context.Context, cmd string) string {
			mu.Lock()
			got = append(got, cmd)
			mu.Unlock()
			return "reply"
		})
		close(done)
	}()

	require.Eventually(t, func() bool {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		return len(stub.messages) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{"/portfolio"}, got)
}

func TestFormatters(t *testing.T) {
	r := &model.Report{
		Rows: []model.ValuationRow{
			{Symbol: "BTC", CurrentValue: decimal.NewNullDecimal(decimal.NewFromInt(30000)), PnLPct: decimal.NewNullDecimal(decimal.NewFromInt(50))},
			{Symbol: "XYZ", IsAirdrop: true, CurrentValue: decimal.NewNullDecimal(decimal.NewFromInt(10))},
			{Symbol: "SOL", Incomplete: true},
			{Symbol: "ADA", PriceFallback: true, CurrentValue: decimal.NewNullDecimal(decimal.NewFromInt(5)), PnLPct: decimal.NewNullDecimal(decimal.Zero)},
		},
		Summary: model.PortfolioSummary{
			TotalValue:      decimal.NewFromInt(30015),
			TotalCost:       decimal.NewFromInt(20005),
			PnLAbs:          decimal.NewFromInt(10010),
			PnLPct:          decimal.RequireFromString("50.04"),
			IncompleteRows:  1,
			FallbackPricing: 1,
			TopGainers:      []model.Mover{{Symbol: "BTC", PnLPct: decimal.NewFromInt(50), PnLAbs: decimal.NewFromInt(10000)}},
			TopLosers:       []model.Mover{{Symbol: "ADA", PnLPct: decimal.NewFromInt(-5), PnLAbs: decimal.NewFromInt(-1)}},
		},
		DegradedProviders: []string{"binance"},
		GeneratedAt:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	summary := FormatSummary(r)
	assert.Contains(t, summary, "Value: $30015.00")
	assert.Contains(t, summary, "P&L: +$10010.00 (+50.04%)")
	assert.Contains(t, summary, "Degraded providers: binance")
	assert.Contains(t, summary, "1 incomplete ledger row(s)")
	assert.NotContains(t, summary, "drawdown")

	holdings := FormatHoldings(r)
	assert.Contains(t, holdings, "airdrop")
	assert.Contains(t, holdings, "incomplete ledger row")
	assert.Contains(t, holdings, "+0.00% *")

	movers := FormatMovers(r)
	assert.Contains(t, movers, "BTC +50.00% (+$10000.00)")
	assert.Contains(t, movers, "ADA -5.00% (-$1.00)")

	assert.Equal(t, "No holdings above the alert threshold.", FormatAlerts(r))
	r.Alerts = []model.AlertEvent{alertEvent("BTC")}
	assert.Contains(t, FormatAlerts(r), "Profit: +$15000.00")
}

func TestFormatters_FitTelegramLimit(t *testing.T) {
	r := &model.Report{Summary: model.PortfolioSummary{FallbackPricing: 1}}
	for i := 0; i < 500; i++ {
		r.Rows = append(r.Rows, model.ValuationRow{
			Symbol:       fmt.Sprintf("COIN%03d", i),
			CurrentValue: decimal.NewNullDecimal(decimal.NewFromInt(int64(1000 + i))),
			PnLPct:       decimal.NewNullDecimal(decimal.NewFromInt(-12)),
		})
		r.Alerts = append(r.Alerts, alertEvent(fmt.Sprintf("COIN%03d", i)))
	}

	holdings := FormatHoldings(r)
	assert.LessOrEqual(t, utf8.RuneCountInString(holdings), maxMessageLen)
	shown := strings.Count(holdings, "COIN")
	require.Positive(t, shown)
	assert.Contains(t, holdings, fmt.Sprintf("… %d more\n</pre>", 500-shown))
	assert.True(t, strings.HasSuffix(holdings, "* no live price, valued at cost"))

	alerts := FormatAlerts(r)
	assert.LessOrEqual(t, utf8.RuneCountInString(alerts), maxMessageLen)
	shown = strings.Count(alerts, "COIN")
	require.Positive(t, shown)
	assert.True(t, strings.HasSuffix(alerts, fmt.Sprintf("… %d more", 500-shown)))

	small := &model.Report{Rows: r.Rows[:3]}
	assert.NotContains(t, FormatHoldings(small), "more")
}
