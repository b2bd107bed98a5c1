package submission

import (
	"reflect"
	"testing"

	"racefeed/internal/rowstore"
)

func row(position int, status string, fields ...string) rowstore.Row {
	r := rowstore.Row{Position: position, Fields: map[string]string{rowstore.FieldStatus: status}}
	for i := 0; i+1 < len(fields); i += 2 {
		r.Fields[fields[i]] = fields[i+1]
	}
	return r
}

func heads(groups []Group) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = g.Head.Position
	}
	return out
}

func TestScanGroupsHeadsWithTrailingVariants(t *testing.T) {
	rows := []rowstore.Row{
		row(1, "revised"),
		row(2, ""),
		row(3, ""),
		row(4, "revised"),
		row(5, "published"),
	}
	result := Scan(rows)
	if len(result.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(result.Groups))
	}
	if got := result.Groups[0].VariantPositions(); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Fatalf("unexpected variants for head 1: %v", got)
	}
	if result.Groups[1].Head.Position != 4 || len(result.Groups[1].Variants) != 0 {
		t.Fatalf("unexpected second group %+v", result.Groups[1])
	}
	if result.Skipped != 1 {
		t.Fatalf("expected row 5 skipped, got %d", result.Skipped)
	}
}

func TestScanStatusIsCaseAndSpaceInsensitive(t *testing.T) {
	rows := []rowstore.Row{
		row(2, "  ReViSeD "),
		row(3, "   "),
		row(4, "PUBLISHED"),
	}
	result := Scan(rows)
	if len(result.Groups) != 1 || len(result.Groups[0].Variants) != 1 {
		t.Fatalf("unexpected groups %+v", result.Groups)
	}
}

func TestScanCases(t *testing.T) {
	tests := []struct {
		name        string
		rows        []rowstore.Row
		heads       []int
		terminators []int
	}{
		{
			name:  "empty input",
			rows:  nil,
			heads: []int{},
		},
		{
			name:  "leading empties are skipped",
			rows:  []rowstore.Row{row(2, ""), row(3, ""), row(4, "revised"), row(5, "")},
			heads: []int{4},
		},
		{
			name:  "adjacent heads",
			rows:  []rowstore.Row{row(2, "revised"), row(3, "revised"), row(4, "revised")},
			heads: []int{2, 3, 4},
		},
		{
			name:        "unknown status ends group and is skipped",
			rows:        []rowstore.Row{row(2, "revised"), row(3, ""), row(4, "draft"), row(5, "")},
			heads:       []int{2},
			terminators: []int{4},
		},
		{
			name:  "only published",
			rows:  []rowstore.Row{row(2, "published"), row(3, "")},
			heads: []int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Scan(tt.rows)
			if got := heads(result.Groups); !reflect.DeepEqual(got, tt.heads) {
				t.Fatalf("heads = %v, want %v", got, tt.heads)
			}
			var terms []int
			for _, term := range result.Terminators {
				terms = append(terms, term.Position)
			}
			if !reflect.DeepEqual(terms, tt.terminators) {
				t.Fatalf("terminators = %v, want %v", terms, tt.terminators)
			}
		})
	}
}

func TestScanUnknownTerminatorRecordsHead(t *testing.T) {
	result := Scan([]rowstore.Row{row(2, "revised"), row(3, "On Hold")})
	if len(result.Terminators) != 1 {
		t.Fatalf("expected one terminator, got %v", result.Terminators)
	}
	term := result.Terminators[0]
	if term.HeadPosition != 2 || term.Status != "On Hold" {
		t.Fatalf("unexpected terminator %+v", term)
	}
	if len(result.Groups[0].Variants) != 0 {
		t.Fatalf("terminator must not become a variant")
	}
}
