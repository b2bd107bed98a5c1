package submission

import (
	"racefeed/internal/attributes"
	"racefeed/internal/rowstore"
)

// DefaultPrice is used when a row has no PRICE value.
const DefaultPrice = "0"

// WellKnownColumn maps a sheet column to the catalog attribute it feeds.
type WellKnownColumn struct {
	Attribute string
	Field     string
}

// WellKnownColumns are read from every row after the ATTRIBUTE/VALUE pair.
var WellKnownColumns = []WellKnownColumn{
	{Attribute: "Distance", Field: rowstore.FieldDistance},
	{Attribute: "Team", Field: rowstore.FieldTeam},
	{Attribute: "Type", Field: rowstore.FieldType},
	{Attribute: "License", Field: rowstore.FieldLicense},
	{Attribute: "Race Start Date", Field: rowstore.FieldRaceStartDate},
	{Attribute: "Race Start Time", Field: rowstore.FieldRaceStartTime},
}

// Descriptor is one row's variation: a price and its attribute options.
type Descriptor struct {
	Position   int
	Price      string
	Attributes []attributes.Option
}

// AttributeMap returns the descriptor's attributes keyed by name. A name seen
// more than once maps to a list.
func (d Descriptor) AttributeMap() map[string]any {
	out := make(map[string]any, len(d.Attributes))
	for _, opt := range d.Attributes {
		switch existing := out[opt.Name].(type) {
		case nil:
			out[opt.Name] = opt.Option
		case string:
			out[opt.Name] = []any{existing, opt.Option}
		case []any:
			out[opt.Name] = append(existing, opt.Option)
		}
	}
	return out
}

// Plan is everything the publish step derives from a group.
type Plan struct {
	Categories  []attributes.CategoryPair
	Payload     *attributes.Payload
	Descriptors []Descriptor
}

// BuildPlan derives the category pairs, attribute payload and variation
// descriptors of g.
func BuildPlan(g Group) Plan {
	return Plan{
		Categories:  CategoryPairs(g),
		Payload:     BuildPayload(g),
		Descriptors: Descriptors(g),
	}
}

// rowContributions returns every (attribute, option) a row supplies: the
// declared ATTRIBUTE/VALUE pair first, then the well-known columns. Values are
// list-normalized so a cell never contributes an empty option.
func rowContributions(row rowstore.Row) []attributes.Option {
	raw := make(map[string]any, len(WellKnownColumns)+1)
	order := make([]string, 0, len(WellKnownColumns)+1)
	put := func(name, value string) {
		if name == "" || value == "" {
			return
		}
		if _, ok := raw[name]; !ok {
			order = append(order, name)
			raw[name] = []any{}
		}
		raw[name] = append(raw[name].([]any), value)
	}
	put(row.Get(rowstore.FieldAttribute), row.Get(rowstore.FieldValue))
	for _, col := range WellKnownColumns {
		put(col.Attribute, row.Get(col.Field))
	}
	normalized := attributes.NormalizeAttributePayload(raw)
	var out []attributes.Option
	seen := make(map[attributes.Option]struct{})
	for _, name := range order {
		for _, value := range normalized[name] {
			opt := attributes.Option{Name: name, Option: value}
			if _, dup := seen[opt]; dup {
				continue
			}
			seen[opt] = struct{}{}
			out = append(out, opt)
		}
	}
	return out
}

// RowOptions returns the options a row's variation carries, one per
// attribute name since a variation holds a single option per attribute. When
// a well-known column repeats the declared ATTRIBUTE, the column value wins;
// the name keeps the position of its first appearance.
func RowOptions(row rowstore.Row) []attributes.Option {
	contributed := rowContributions(row)
	out := make([]attributes.Option, 0, len(contributed))
	index := make(map[string]int, len(contributed))
	for _, opt := range contributed {
		if i, ok := index[opt.Name]; ok {
			out[i].Option = opt.Option
			continue
		}
		index[opt.Name] = len(out)
		out = append(out, opt)
	}
	return out
}

// BuildPayload merges every row's contributions into one ordered payload,
// including values a variation could not carry alongside a repeated name.
func BuildPayload(g Group) *attributes.Payload {
	payload := attributes.NewPayload()
	for _, row := range g.Rows() {
		for _, opt := range rowContributions(row) {
			payload.Add(opt.Name, opt.Option)
		}
	}
	return payload
}

// Descriptors builds one descriptor for the head and one for each variant
// that contributes at least one attribute, in row order.
func Descriptors(g Group) []Descriptor {
	out := []Descriptor{descriptorFor(g.Head)}
	for _, row := range g.Variants {
		d := descriptorFor(row)
		if len(d.Attributes) == 0 {
			continue
		}
		out = append(out, d)
	}
	return out
}

func descriptorFor(row rowstore.Row) Descriptor {
	price := row.Get(rowstore.FieldPrice)
	if price == "" {
		price = DefaultPrice
	}
	return Descriptor{
		Position:   row.Position,
		Price:      price,
		Attributes: RowOptions(row),
	}
}

// CategoryPairs collects each row's CATEGORY/SUBCATEGORY pair and its
// ATTRIBUTE/VALUE pair, then normalizes them across the whole group.
func CategoryPairs(g Group) []attributes.CategoryPair {
	var raw []attributes.RawCategoryPair
	for _, row := range g.Rows() {
		if category := row.Get(rowstore.FieldCategory); category != "" {
			raw = append(raw, attributes.RawCategoryPair{
				Category:    category,
				Subcategory: row.Get(rowstore.FieldSubcategory),
			})
		}
		if attr, value := row.Get(rowstore.FieldAttribute), row.Get(rowstore.FieldValue); attr != "" && value != "" {
			raw = append(raw, attributes.RawCategoryPair{Category: attr, Subcategory: value})
		}
	}
	return attributes.NormalizeCategoryPairs(raw)
}
