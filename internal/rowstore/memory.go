package rowstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// ErrInjected is returned by MemoryConnector when a failure was scheduled.
var ErrInjected = errors.New("injected failure")

// CellUpdate records one write received by a MemoryConnector.
type CellUpdate struct {
	Row   int
	Col   int
	Value any
}

// MemoryConnector is an in-process spreadsheet. It counts connections and can
// fail a number of upcoming operations.
type MemoryConnector struct {
	mu          sync.Mutex
	grid        [][]string
	updates     []CellUpdate
	connects    int
	failConnect int
	failValues  int
	failUpdates int
}

// NewMemoryConnector seeds a grid from a header and record rows.
func NewMemoryConnector(header []string, records ...[]string) *MemoryConnector {
	grid := make([][]string, 0, len(records)+1)
	grid = append(grid, append([]string(nil), header...))
	for _, rec := range records {
		grid = append(grid, append([]string(nil), rec...))
	}
	return &MemoryConnector{grid: grid}
}

// NewMemoryConnectorFromMaps seeds a grid from field maps using header order.
func NewMemoryConnectorFromMaps(header []string, records ...map[string]string) *MemoryConnector {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(header))
		for i, name := range header {
			row[i] = rec[name]
		}
		rows = append(rows, row)
	}
	return NewMemoryConnector(header, rows...)
}

func (m *MemoryConnector) Name() string { return "memory" }

// FailNext schedules failures for the next connect, read and update calls.
func (m *MemoryConnector) FailNext(connects, reads, updates int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failConnect = connects
	m.failValues = reads
	m.failUpdates = updates
}

// Connects reports how many connections were opened.
func (m *MemoryConnector) Connects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects
}

// Updates returns every successful cell write.
func (m *MemoryConnector) Updates() []CellUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CellUpdate(nil), m.updates...)
}

// Cell returns the current value at a 1-based row and the named header column.
func (m *MemoryConnector) Cell(row int, field string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.grid) == 0 || row < 1 || row > len(m.grid) {
		return ""
	}
	for i, name := range m.grid[0] {
		if name == field {
			if i < len(m.grid[row-1]) {
				return m.grid[row-1][i]
			}
			return ""
		}
	}
	return ""
}

func (m *MemoryConnector) Connect(context.Context) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failConnect > 0 {
		m.failConnect--
		return nil, fmt.Errorf("connect: %w", ErrInjected)
	}
	m.connects++
	return &memoryConn{parent: m}, nil
}

type memoryConn struct {
	parent *MemoryConnector
}

func (c *memoryConn) Values(context.Context) ([][]string, error) {
	m := c.parent
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failValues > 0 {
		m.failValues--
		return nil, fmt.Errorf("values: %w", ErrInjected)
	}
	out := make([][]string, len(m.grid))
	for i, row := range m.grid {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (c *memoryConn) UpdateCell(_ context.Context, row, col int, value any) error {
	m := c.parent
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdates > 0 {
		m.failUpdates--
		return fmt.Errorf("update: %w", ErrInjected)
	}
	if row < 1 || col < 1 {
		return fmt.Errorf("update: invalid cell %d/%d", row, col)
	}
	for len(m.grid) < row {
		m.grid = append(m.grid, nil)
	}
	for len(m.grid[row-1]) < col {
		m.grid[row-1] = append(m.grid[row-1], "")
	}
	m.grid[row-1][col-1] = formatCell(value)
	m.updates = append(m.updates, CellUpdate{Row: row, Col: col, Value: value})
	return nil
}

func (c *memoryConn) Close() error { return nil }

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}
