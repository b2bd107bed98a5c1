package rowstore

import (
	"strings"
)

// Well-known field names.
const (
	FieldID             = "ID"
	FieldStatus         = "STATUS"
	FieldRaceName       = "RACE NAME"
	FieldRaceNamePT     = "RACE NAME (PT)"
	FieldLocation       = "LOCATION"
	FieldWebsite        = "WEBSITE"
	FieldRegulations    = "REGULATIONS"
	FieldCategory       = "CATEGORY"
	FieldSubcategory    = "SUBCATEGORY"
	FieldAttribute      = "ATTRIBUTE"
	FieldValue          = "VALUE"
	FieldPrice          = "PRICE"
	FieldSummary        = "SUMMARY"
	FieldOrgInfo        = "ORG INFO"
	FieldBenefits       = "BENEFITS"
	FieldSummaryPT      = "SUMMARY (PT)"
	FieldOrgInfoPT      = "ORG INFO (PT)"
	FieldBenefitsPT     = "BENEFITS (PT)"
	FieldImageURL       = "IMAGE URL"
	FieldImageID        = "IMAGE ID"
	FieldLat            = "LAT"
	FieldLon            = "LON"
	FieldLink           = "LINK RACEFINDER"
	FieldEventStartDate = "EVENT START DATE"
	FieldEventEndDate   = "EVENT END DATE"
	FieldEventStartTime = "EVENT START TIME"
	FieldDistance       = "DISTANCE"
	FieldTeam           = "TEAM"
	FieldType           = "TYPE"
	FieldLicense        = "LICENSE"
	FieldRaceStartDate  = "RACE START DATE"
	FieldRaceStartTime  = "RACE START TIME"
)

// Status values after normalization.
const (
	StatusEmpty     = ""
	StatusRevised   = "revised"
	StatusPublished = "published"
)

// PublishedStatus is the value written back once a group is published.
const PublishedStatus = "Published"

// NormalizeStatus lowercases and trims a raw status cell.
func NormalizeStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Row is one record of the work queue. Position is the sheet row number: the
// header occupies row 1, so the first record is row 2.
type Row struct {
	Position int
	Fields   map[string]string
}

// Get returns the trimmed value of field, or "" when absent.
func (r Row) Get(field string) string {
	if r.Fields == nil {
		return ""
	}
	return strings.TrimSpace(r.Fields[field])
}

// Set replaces the in-memory value of field.
func (r *Row) Set(field, value string) {
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[field] = value
}

// Status returns the normalized status of the row.
func (r Row) Status() string {
	return NormalizeStatus(r.Fields[FieldStatus])
}

// ID returns the ID column used in log lines.
func (r Row) ID() string {
	return r.Get(FieldID)
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	fields := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Row{Position: r.Position, Fields: fields}
}

// Schema maps header names to 1-based column indexes.
type Schema struct {
	columns []string
	index   map[string]int
}

// NewSchema builds a schema from a header row. Blank header cells are kept as
// positional placeholders but cannot be addressed; the first of any duplicate
// names wins.
func NewSchema(header []string) Schema {
	s := Schema{
		columns: make([]string, len(header)),
		index:   make(map[string]int, len(header)),
	}
	for i, name := range header {
		name = strings.TrimSpace(name)
		s.columns[i] = name
		if name == "" {
			continue
		}
		if _, exists := s.index[name]; !exists {
			s.index[name] = i + 1
		}
	}
	return s
}

// Column returns the 1-based column for field.
func (s Schema) Column(field string) (int, bool) {
	col, ok := s.index[field]
	return col, ok
}

// Has reports whether field exists in the header.
func (s Schema) Has(field string) bool {
	_, ok := s.index[field]
	return ok
}

// Fields returns the header names in column order.
func (s Schema) Fields() []string {
	return append([]string(nil), s.columns...)
}

// Len reports the number of header columns.
func (s Schema) Len() int {
	return len(s.columns)
}

// Update is one field write.
type Update struct {
	Field string
	Value any
}

// rowsFromGrid converts a raw value grid (header first) into rows.
func rowsFromGrid(grid [][]string) ([]Row, Schema) {
	if len(grid) == 0 {
		return nil, NewSchema(nil)
	}
	schema := NewSchema(grid[0])
	rows := make([]Row, 0, len(grid)-1)
	for i := 1; i < len(grid); i++ {
		fields := make(map[string]string, schema.Len())
		for col, name := range schema.columns {
			if name == "" {
				continue
			}
			if _, dup := fields[name]; dup {
				continue
			}
			value := ""
			if col < len(grid[i]) {
				value = grid[i][col]
			}
			fields[name] = value
		}
		rows = append(rows, Row{Position: i + 1, Fields: fields})
	}
	return rows, schema
}
