package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"CryptoDashboard/internal/model"
)

// Source loads the raw holdings ledger.
type Source interface {
	Load(ctx context.Context) (model.LedgerTable, error)
}

// CSVSource downloads a published CSV sheet (e.g. a spreadsheet's "publish to web"
// CSV export).
type CSVSource struct {
	URL    string
	Client *http.Client
}

// NewCSVSource creates a source reading url with client.
func NewCSVSource(url string, client *http.Client) *CSVSource {
	return &CSVSource{URL: url, Client: client}
}

// Load fetches and parses the sheet. Transport failures are UpstreamError; a sheet
// without a header row is a SchemaError.
func (s *CSVSource) Load(ctx context.Context) (model.LedgerTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return model.LedgerTable{}, fmt.Errorf("build ledger request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return model.LedgerTable{}, &model.UpstreamError{Upstream: "ledger", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return model.LedgerTable{}, &model.UpstreamError{
			Upstream: "ledger",
			Err:      fmt.Errorf("status %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return Parse(resp.Body)
}

// Parse reads CSV rows. Ragged rows are accepted; short rows are padded with
// empty cells so every row has one cell per column.
func Parse(r io.Reader) (model.LedgerTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return model.LedgerTable{}, &model.SchemaError{Source: "ledger", Missing: []string{"header row"}}
	}
	if err != nil {
		return model.LedgerTable{}, fmt.Errorf("read ledger header: %w", err)
	}
	// Spreadsheet exports may start with a UTF-8 BOM.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	table := model.LedgerTable{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.LedgerTable{}, fmt.Errorf("read ledger row: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// StaticSource serves a fixed table.
type StaticSource struct {
	Table model.LedgerTable
}

func (s StaticSource) Load(context.Context) (model.LedgerTable, error) {
	return s.Table, nil
}

// Unconfigured is the source used when no ledger URL is set. Every load fails with
// a ConfigMissingError.
type Unconfigured struct{}

func (Unconfigured) Load(context.Context) (model.LedgerTable, error) {
	return model.LedgerTable{}, &model.ConfigMissingError{Feature: "ledger", Key: "ledger.url"}
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
