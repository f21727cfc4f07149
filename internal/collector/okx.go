package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"CryptoDashboard/internal/model"
)

// OKXFetcher reads spot tickers from the OKX v5 market API.
type OKXFetcher struct {
	BaseURL       string
	APIKey        string
	QuoteCurrency string
	Client        *http.Client
}

// NewOKXFetcher creates a fetcher with a bounded timeout and optional proxy support.
func NewOKXFetcher(baseURL, apiKey, quoteCurrency string, timeout time.Duration, proxyURL string) *OKXFetcher {
	if baseURL == "" {
		baseURL = "https://www.okx.com"
	}
	if quoteCurrency == "" {
		quoteCurrency = "USDT"
	}
	return &OKXFetcher{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		APIKey:        apiKey,
		QuoteCurrency: strings.ToUpper(quoteCurrency),
		Client:        NewHTTPClient(timeout, proxyURL),
	}
}

func (f *OKXFetcher) Name() string { return string(model.SourceOKX) }

var (
	okxCodePath    = mustPath("$.code")
	okxMsgPath     = mustPath("$.msg")
	okxDataPath    = mustPath("$.data")
	okxSymbolPaths = mustPaths("$.instId", "$.instID", "$.inst_id")
	okxLastPaths   = mustPaths("$.last", "$.lastPx", "$.Last")
	okxOpenPaths   = mustPaths("$.open24h", "$.open_24h", "$.Open24h")
)

func (f *OKXFetcher) FetchQuotes(ctx context.Context) ([]model.PriceQuote, error) {
	endpoint := fmt.Sprintf("%s/api/v5/market/tickers?instType=SPOT", f.BaseURL)
	header := http.Header{}
	if f.APIKey != "" {
		header.Set("OK-ACCESS-KEY", f.APIKey)
	}
	doc, err := getJSON(ctx, f.Client, f.Name(), endpoint, header)
	if err != nil {
		return nil, err
	}

	// OKX reports API-level failures with HTTP 200 and a non-zero code.
	if code, ok := lookupString(doc, okxCodePath); ok && code != "0" {
		msg, _ := lookupString(doc, okxMsgPath)
		return nil, &model.UpstreamError{Upstream: f.Name(), Err: fmt.Errorf("api code %s: %s", code, msg)}
	}
	items, err := selectList(doc, f.Name(), okxDataPath)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	quotes := make([]model.PriceQuote, 0, len(items))
	for _, item := range items {
		instID, ok := lookupString(item, okxSymbolPaths...)
		if !ok {
			continue
		}
		base, ok := okxBase(instID, f.QuoteCurrency)
		if !ok {
			continue
		}
		quotes = append(quotes, quoteFromItem(model.SourceOKX, base, item, okxLastPaths, okxOpenPaths, now))
	}
	return quotes, nil
}

// okxBase turns "BTC-USDT" into "BTC" when the quote leg matches.
func okxBase(instID, quote string) (string, bool) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(instID)), "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] != quote {
		return "", false
	}
	return parts[0], true
}
