// Package xlsx backs the row store with a local workbook. It is meant for
// offline runs and fixtures; writes are saved to disk immediately.
package xlsx

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"racefeed/internal/retry"
	"racefeed/internal/rowstore"
)

// Connector opens a workbook at Path.
type Connector struct {
	Path      string
	Worksheet string

	mu sync.Mutex
}

// New returns a workbook connector. An empty or missing worksheet name falls
// back to the first sheet.
func New(path, worksheet string) *Connector {
	return &Connector{Path: path, Worksheet: worksheet}
}

func (c *Connector) Name() string { return "xlsx" }

func (c *Connector) Connect(context.Context) (rowstore.Conn, error) {
	if strings.TrimSpace(c.Path) == "" {
		return nil, retry.Permanent(fmt.Errorf("xlsx path is empty"))
	}
	f, err := excelize.OpenFile(c.Path)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("open workbook: %w", err))
	}
	sheet := c.Worksheet
	if sheet == "" || indexOf(f.GetSheetList(), sheet) < 0 {
		list := f.GetSheetList()
		if len(list) == 0 {
			_ = f.Close()
			return nil, retry.Permanent(fmt.Errorf("workbook %s has no sheets", c.Path))
		}
		sheet = list[0]
	}
	return &conn{parent: c, file: f, sheet: sheet}, nil
}

type conn struct {
	parent *Connector
	file   *excelize.File
	sheet  string
}

func (c *conn) Values(context.Context) ([][]string, error) {
	c.parent.mu.Lock()
	defer c.parent.mu.Unlock()
	rows, err := c.file.GetRows(c.sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", c.sheet, err)
	}
	return rows, nil
}

func (c *conn) UpdateCell(_ context.Context, row, col int, value any) error {
	c.parent.mu.Lock()
	defer c.parent.mu.Unlock()
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return retry.Permanent(fmt.Errorf("cell address: %w", err))
	}
	if err := c.file.SetCellValue(c.sheet, cell, value); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}
	if err := c.file.SaveAs(c.parent.Path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func (c *conn) Close() error {
	return c.file.Close()
}

func indexOf(list []string, name string) int {
	for i, v := range list {
		if v == name {
			return i
		}
	}
	return -1
}
