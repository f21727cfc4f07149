package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"CryptoDashboard/internal/model"
)

// BinanceFetcher reads rolling 24h tickers from the Binance spot REST API.
type BinanceFetcher struct {
	BaseURL       string
	APIKey        string
	QuoteCurrency string
	Client        *http.Client
}

// NewBinanceFetcher creates a fetcher with a bounded timeout and optional proxy support.
func NewBinanceFetcher(baseURL, apiKey, quoteCurrency string, timeout time.Duration, proxyURL string) *BinanceFetcher {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	if quoteCurrency == "" {
		quoteCurrency = "USDT"
	}
	return &BinanceFetcher{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		APIKey:        apiKey,
		QuoteCurrency: strings.ToUpper(quoteCurrency),
		Client:        NewHTTPClient(timeout, proxyURL),
	}
}

func (f *BinanceFetcher) Name() string { return string(model.SourceBinance) }

var (
	binanceRootPath    = mustPath("$")
	binanceSymbolPaths = mustPaths("$.symbol", "$.Symbol", "$.s")
	binanceLastPaths   = mustPaths("$.lastPrice", "$.last_price", "$.LastPrice", "$.c")
	binanceOpenPaths   = mustPaths("$.openPrice", "$.open_price", "$.OpenPrice", "$.o")
)

func (f *BinanceFetcher) FetchQuotes(ctx context.Context) ([]model.PriceQuote, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/24hr", f.BaseURL)
	header := http.Header{}
	if f.APIKey != "" {
		header.Set("X-MBX-APIKEY", f.APIKey)
	}
	doc, err := getJSON(ctx, f.Client, f.Name(), endpoint, header)
	if err != nil {
		return nil, err
	}
	items, err := selectList(doc, f.Name(), binanceRootPath)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	quotes := make([]model.PriceQuote, 0, len(items))
	for _, item := range items {
		symbol, ok := lookupString(item, binanceSymbolPaths...)
		if !ok {
			continue
		}
		base, ok := binanceBase(symbol, f.QuoteCurrency)
		if !ok {
			continue
		}
		quotes = append(quotes, quoteFromItem(model.SourceBinance, base, item, binanceLastPaths, binanceOpenPaths, now))
	}
	return quotes, nil
}

// binanceBase turns "BTCUSDT" into "BTC" when the symbol ends with the quote asset.
func binanceBase(symbol, quote string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if len(s) <= len(quote) || !strings.HasSuffix(s, quote) {
		return "", false
	}
	return strings.TrimSuffix(s, quote), true
}
