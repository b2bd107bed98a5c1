package submission

import (
	"reflect"
	"testing"

	"racefeed/internal/attributes"
	"racefeed/internal/rowstore"
)

func TestEndToEndGroupPlan(t *testing.T) {
	rows := []rowstore.Row{
		row(2, "revised", rowstore.FieldCategory, "Running", rowstore.FieldRaceName, "Lisbon Run"),
		row(3, "", rowstore.FieldDistance, "5km", rowstore.FieldPrice, "15"),
		row(4, "", rowstore.FieldDistance, "10km", rowstore.FieldPrice, "20"),
	}
	result := Scan(rows)
	if len(result.Groups) != 1 {
		t.Fatalf("expected one group, got %d", len(result.Groups))
	}
	plan := BuildPlan(result.Groups[0])

	if len(plan.Descriptors) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(plan.Descriptors))
	}
	head := plan.Descriptors[0]
	if head.Position != 2 || head.Price != DefaultPrice || len(head.Attributes) != 0 {
		t.Fatalf("unexpected head descriptor %+v", head)
	}
	if got := plan.Descriptors[2].Attributes; !reflect.DeepEqual(got, []attributes.Option{{Name: "Distance", Option: "10km"}}) {
		t.Fatalf("unexpected variant attributes %v", got)
	}
	want := map[string][]string{"Distance": {"5km", "10km"}}
	if got := plan.Payload.Map(); !reflect.DeepEqual(got, want) {
		t.Fatalf("payload = %v, want %v", got, want)
	}
	if got := plan.Categories; !reflect.DeepEqual(got, []attributes.CategoryPair{{Category: "Running"}}) {
		t.Fatalf("unexpected categories %v", got)
	}
}

func TestDescriptorRoundTripsThroughNormalizer(t *testing.T) {
	d := descriptorFor(row(2, "", rowstore.FieldDistance, "10km", rowstore.FieldPrice, "25"))
	if d.Price != "25" {
		t.Fatalf("expected price 25, got %q", d.Price)
	}
	got := attributes.NormalizeAttributePayload(d.AttributeMap())
	if !reflect.DeepEqual(got, map[string][]string{"Distance": {"10km"}}) {
		t.Fatalf("unexpected round trip %v", got)
	}
}

func TestRowOptionsOrderAndDedupe(t *testing.T) {
	r := row(2, "revised",
		rowstore.FieldAttribute, "Distance",
		rowstore.FieldValue, "21km",
		rowstore.FieldDistance, "21km",
		rowstore.FieldTeam, "Yes",
		rowstore.FieldRaceStartTime, "09:00",
	)
	want := []attributes.Option{
		{Name: "Distance", Option: "21km"},
		{Name: "Team", Option: "Yes"},
		{Name: "Race Start Time", Option: "09:00"},
	}
	if got := RowOptions(r); !reflect.DeepEqual(got, want) {
		t.Fatalf("RowOptions = %v, want %v", got, want)
	}
}

func TestRowOptionsKeepsOneOptionPerAttribute(t *testing.T) {
	head := row(2, "revised",
		rowstore.FieldAttribute, "Distance",
		rowstore.FieldValue, "5km",
		rowstore.FieldDistance, "10km",
		rowstore.FieldTeam, "Yes",
	)
	want := []attributes.Option{
		{Name: "Distance", Option: "10km"},
		{Name: "Team", Option: "Yes"},
	}
	if got := RowOptions(head); !reflect.DeepEqual(got, want) {
		t.Fatalf("RowOptions = %v, want %v", got, want)
	}

	plan := BuildPlan(Group{Head: head})
	if got := plan.Descriptors[0].Attributes; !reflect.DeepEqual(got, want) {
		t.Fatalf("head descriptor attributes = %v, want %v", got, want)
	}
	payload := map[string][]string{"Distance": {"5km", "10km"}, "Team": {"Yes"}}
	if got := plan.Payload.Map(); !reflect.DeepEqual(got, payload) {
		t.Fatalf("payload = %v, want %v", got, payload)
	}
}

func TestVariantWithoutAttributesHasNoDescriptor(t *testing.T) {
	g := Group{
		Head:     row(2, "revised", rowstore.FieldDistance, "42km"),
		Variants: []rowstore.Row{row(3, "", rowstore.FieldPrice, "10"), row(4, "", rowstore.FieldTeam, "Yes")},
	}
	descriptors := Descriptors(g)
	if len(descriptors) != 2 || descriptors[1].Position != 4 {
		t.Fatalf("unexpected descriptors %+v", descriptors)
	}
}

func TestCategoryPairsIncludeVariantsAndAttributePairs(t *testing.T) {
	g := Group{
		Head: row(2, "revised",
			rowstore.FieldCategory, "Run",
			rowstore.FieldSubcategory, "Road, Trail",
			rowstore.FieldAttribute, "Distance",
			rowstore.FieldValue, "10km",
		),
		Variants: []rowstore.Row{
			row(3, "", rowstore.FieldCategory, "Run", rowstore.FieldSubcategory, "Trail"),
			row(4, "", rowstore.FieldCategory, "Cycle"),
		},
	}
	want := []attributes.CategoryPair{
		{Category: "Run", Subcategory: "Road"},
		{Category: "Run", Subcategory: "Trail"},
		{Category: "Distance", Subcategory: "10km"},
		{Category: "Cycle"},
	}
	if got := CategoryPairs(g); !reflect.DeepEqual(got, want) {
		t.Fatalf("CategoryPairs = %v, want %v", got, want)
	}
}
