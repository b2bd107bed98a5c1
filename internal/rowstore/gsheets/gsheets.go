// Package gsheets backs the row store with a Google Sheets worksheet.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"racefeed/internal/retry"
	"racefeed/internal/rowstore"
)

// Config identifies the worksheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID      string
	WorksheetName      string
	CredentialsFile    string
	ServiceAccountJSON string
	// ClientOptions are appended after the credential options (tests pass an
	// endpoint and disable authentication here).
	ClientOptions []option.ClientOption
}

// Connector opens Sheets API sessions.
type Connector struct {
	cfg Config
}

// New returns a connector for cfg.
func New(cfg Config) *Connector {
	return &Connector{cfg: cfg}
}

func (c *Connector) Name() string { return "google" }

// Connect builds an authenticated Sheets service.
func (c *Connector) Connect(ctx context.Context) (rowstore.Conn, error) {
	if strings.TrimSpace(c.cfg.SpreadsheetID) == "" {
		return nil, retry.Permanent(errors.New("spreadsheet id is empty"))
	}
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	switch {
	case strings.TrimSpace(c.cfg.ServiceAccountJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(c.cfg.ServiceAccountJSON)))
	case strings.TrimSpace(c.cfg.CredentialsFile) != "":
		opts = append(opts, option.WithCredentialsFile(c.cfg.CredentialsFile))
	}
	opts = append(opts, c.cfg.ClientOptions...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &conn{svc: svc, spreadsheetID: c.cfg.SpreadsheetID, worksheet: c.cfg.WorksheetName}, nil
}

type conn struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
}

func (c *conn) Values(ctx context.Context) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheetRange(c.worksheet, "")).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("read values", err)
	}
	grid := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cellString(cell)
		}
		grid[i] = cells
	}
	return grid, nil
}

func (c *conn) UpdateCell(ctx context.Context, row, col int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return retry.Permanent(fmt.Errorf("cell address: %w", err))
	}
	body := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheetRange(c.worksheet, cell), body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return classify("update "+cell, err)
	}
	return nil
}

func (c *conn) Close() error { return nil }

// sheetRange quotes the worksheet title for A1 notation. An empty cell
// addresses the whole sheet.
func sheetRange(worksheet, cell string) string {
	if worksheet == "" {
		return cell
	}
	quoted := "'" + strings.ReplaceAll(worksheet, "'", "''") + "'"
	if cell == "" {
		return quoted
	}
	return quoted + "!" + cell
}

// classify marks client errors other than rate limiting as permanent.
func classify(op string, err error) error {
	wrapped := fmt.Errorf("sheets %s: %w", op, err)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return wrapped
		}
		return retry.Permanent(wrapped)
	}
	return wrapped
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
