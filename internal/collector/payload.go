package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"CryptoDashboard/internal/model"
)

// maxPayload bounds how much of a provider response is read.
const maxPayload = 16 << 20

// NewHTTPClient builds a client with a bounded timeout and optional proxy support.
func NewHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// getJSON issues a GET and decodes the body into a generic document. Network
// failures, non-2xx statuses and empty bodies are reported as UpstreamError.
func getJSON(ctx context.Context, client *http.Client, upstream, endpoint string, header http.Header) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &model.UpstreamError{Upstream: upstream, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, &model.UpstreamError{Upstream: upstream, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &model.UpstreamError{Upstream: upstream, Err: fmt.Errorf("status %d, body: %s", resp.StatusCode, snippet)}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &model.UpstreamError{Upstream: upstream, Err: fmt.Errorf("empty payload")}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &model.SchemaError{Source: upstream, Missing: []string{"valid JSON document"}}
	}
	return doc, nil
}

// fieldPath is a JSONPath expression compiled once and evaluated per item.
type fieldPath struct {
	expr string
	eval gval.Evaluable
}

func mustPath(expr string) fieldPath {
	eval, err := jsonpath.New(expr)
	if err != nil {
		panic(fmt.Sprintf("compile json path %q: %v", expr, err))
	}
	return fieldPath{expr: expr, eval: eval}
}

func mustPaths(exprs ...string) []fieldPath {
	out := make([]fieldPath, len(exprs))
	for i, e := range exprs {
		out[i] = mustPath(e)
	}
	return out
}

func (p fieldPath) get(v any) (any, error) {
	return p.eval(context.Background(), v)
}

// selectList returns the array found at path, or a SchemaError when it is absent.
func selectList(doc any, upstream string, path fieldPath) ([]any, error) {
	v, err := path.get(doc)
	if err != nil {
		return nil, &model.SchemaError{Source: upstream, Missing: []string{path.expr}}
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &model.SchemaError{Source: upstream, Missing: []string{path.expr + " (array)"}}
	}
	return list, nil
}

// lookupString returns the first non-empty scalar found at any of paths. Providers
// rename and re-case fields between API versions, so callers list every spelling
// they accept.
func lookupString(item any, paths ...fieldPath) (string, bool) {
	for _, p := range paths {
		v, err := p.get(item)
		if err != nil {
			continue
		}
		// jsonpath may wrap a single answer in a list.
		if list, ok := v.([]any); ok {
			if len(list) == 0 {
				continue
			}
			v = list[0]
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		case float64:
			s = decimal.NewFromFloat(t).String()
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}

// lookupPositive parses the first present field as a decimal; values <= 0 and
// unparseable values become null.
func lookupPositive(item any, paths ...fieldPath) decimal.NullDecimal {
	s, ok := lookupString(item, paths...)
	if !ok {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// quoteFromItem normalizes one provider ticker entry for the given base symbol.
func quoteFromItem(src model.Source, base string, item any, lastPaths, openPaths []fieldPath, at time.Time) model.PriceQuote {
	last := lookupPositive(item, lastPaths...)
	open := lookupPositive(item, openPaths...)
	return model.PriceQuote{
		Symbol:       base,
		Last:         last,
		Open24h:      open,
		Change24hPct: model.DeriveChange24h(last, open),
		Source:       src,
		FetchedAt:    at,
	}
}
