package collector

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"CryptoDashboard/internal/model"
)

// Fetcher defines the interface for fetching a price snapshot from one provider.
type Fetcher interface {
	FetchQuotes(ctx context.Context) ([]model.PriceQuote, error)
	Name() string
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Label  string
	Quotes []model.PriceQuote
	Err    error

	calls atomic.Int64
}

func (m *MockFetcher) Name() string {
	if m.Label != "" {
		return m.Label
	}
	return string(model.SourceMock)
}

func (m *MockFetcher) FetchQuotes(ctx context.Context) ([]model.PriceQuote, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]model.PriceQuote, len(m.Quotes))
	copy(out, m.Quotes)
	return out, nil
}

// Calls reports how many times FetchQuotes was invoked.
func (m *MockFetcher) Calls() int64 { return m.calls.Load() }

// NewFetcher builds the fetcher for a named provider.
func NewFetcher(name, baseURL, apiKey, quoteCurrency string, timeout time.Duration, proxyURL string) (Fetcher, error) {
	switch model.Source(strings.ToLower(name)) {
	case model.SourceOKX:
		return NewOKXFetcher(baseURL, apiKey, quoteCurrency, timeout, proxyURL), nil
	case model.SourceBinance:
		return NewBinanceFetcher(baseURL, apiKey, quoteCurrency, timeout, proxyURL), nil
	default:
		return nil, fmt.Errorf("unknown price provider %q", name)
	}
}
