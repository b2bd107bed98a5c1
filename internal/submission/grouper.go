package submission

import (
	"racefeed/internal/rowstore"
)

// Group is one head row and its trailing variant rows.
type Group struct {
	Head     rowstore.Row
	Variants []rowstore.Row
}

// Rows returns the head followed by the variants.
func (g Group) Rows() []rowstore.Row {
	out := make([]rowstore.Row, 0, len(g.Variants)+1)
	out = append(out, g.Head)
	return append(out, g.Variants...)
}

// VariantPositions lists the sheet positions of the variant rows.
func (g Group) VariantPositions() []int {
	out := make([]int, len(g.Variants))
	for i, row := range g.Variants {
		out[i] = row.Position
	}
	return out
}

// Terminator is a row with an unrecognised status that closed a group. Such
// rows belong to no group and are skipped.
type Terminator struct {
	Position     int
	Status       string
	HeadPosition int
}

// ScanResult is the output of Scan.
type ScanResult struct {
	Groups      []Group
	Terminators []Terminator
	// Skipped counts rows outside any group.
	Skipped int
}

type scanState int

const (
	stateScanning scanState = iota
	stateCollecting
)

// Scan partitions rows into groups in a single left-to-right pass. A row that
// ends a group is re-examined as a potential head rather than consumed.
func Scan(rows []rowstore.Row) ScanResult {
	var (
		result  ScanResult
		state   = stateScanning
		current Group
	)
	emit := func() {
		result.Groups = append(result.Groups, current)
		current = Group{}
		state = stateScanning
	}
	for i := 0; i < len(rows); {
		row := rows[i]
		status := row.Status()
		switch state {
		case stateScanning:
			if status == rowstore.StatusRevised {
				current = Group{Head: row}
				state = stateCollecting
			} else {
				result.Skipped++
			}
			i++
		case stateCollecting:
			if status == rowstore.StatusEmpty {
				current.Variants = append(current.Variants, row)
				i++
				continue
			}
			if status != rowstore.StatusRevised && status != rowstore.StatusPublished {
				result.Terminators = append(result.Terminators, Terminator{
					Position:     row.Position,
					Status:       row.Get(rowstore.FieldStatus),
					HeadPosition: current.Head.Position,
				})
			}
			emit()
		}
	}
	if state == stateCollecting {
		emit()
	}
	return result
}
