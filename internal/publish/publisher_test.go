package publish

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"racefeed/internal/rowstore"
	"racefeed/internal/services"
	"racefeed/internal/submission"
	"racefeed/internal/testsupport"
)

var _ Catalog = (*testsupport.Catalog)(nil)

func row(position int, status string, kv ...string) rowstore.Row {
	fields := map[string]string{rowstore.FieldStatus: status}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return rowstore.Row{Position: position, Fields: fields}
}

func sampleGroup() submission.Group {
	return submission.Group{
		Head: row(2, "Revised",
			rowstore.FieldRaceName, "Lisbon Run",
			rowstore.FieldRaceNamePT, "Corrida de Lisboa",
			rowstore.FieldCategory, "Running",
			rowstore.FieldSubcategory, "Road",
			rowstore.FieldLocation, "Lisboa, Portugal",
			rowstore.FieldLat, "38.72239",
			rowstore.FieldLon, "-9.13939",
			rowstore.FieldEventStartDate, "2025-09-14",
			rowstore.FieldSummaryPT, "Resumo",
		),
		Variants: []rowstore.Row{
			row(3, "", rowstore.FieldDistance, "5km", rowstore.FieldPrice, "15"),
			row(4, "", rowstore.FieldDistance, "10km", rowstore.FieldPrice, "20"),
			row(5, "", rowstore.FieldPrice, "99"),
		},
	}
}

func newPublisher(catalog Catalog) *Publisher {
	return New(catalog, nil, Options{
		EventBaseURL:        "https://site.example/event",
		TranslationLanguage: "pt",
		EventCountry:        "portugal",
	}, nil)
}

func TestPublishCreatesProductAndTranslation(t *testing.T) {
	catalog := testsupport.NewCatalog()
	result, err := newPublisher(catalog).Publish(context.Background(), sampleGroup())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", result.Warnings)
	}
	if result.Link != "https://site.example/event/lisbon-run" {
		t.Fatalf("unexpected link %q", result.Link)
	}
	if result.Variations != 3 {
		t.Fatalf("expected 3 variations, got %d", result.Variations)
	}

	primary, ok := catalog.Product(result.ProductID)
	if !ok {
		t.Fatal("primary product missing")
	}
	if primary.Type != "variable" || primary.Status != "draft" || primary.Name != "Lisbon Run" {
		t.Fatalf("unexpected primary %+v", primary.Product)
	}
	running, _ := catalog.CategoryID("Running", 0)
	road, _ := catalog.CategoryID("Road", running)
	if len(primary.Categories) != 2 || primary.Categories[0].ID != running || primary.Categories[1].ID != road {
		t.Fatalf("unexpected categories %+v", primary.Categories)
	}
	if primary.ACF[FieldEventLatitude] != 38.7223 || primary.ACF[FieldEventDateStart] != "20250914" {
		t.Fatalf("unexpected custom fields %v", primary.ACF)
	}
	if len(primary.Attributes) != 1 || !reflect.DeepEqual(primary.Attributes[0].Options, []string{"5km", "10km"}) {
		t.Fatalf("unexpected attributes %+v", primary.Attributes)
	}
	prices := []string{}
	for _, v := range primary.Variations {
		prices = append(prices, v.RegularPrice)
	}
	if !reflect.DeepEqual(prices, []string{"0", "15", "20"}) {
		t.Fatalf("unexpected variation prices %v", prices)
	}

	translation, ok := catalog.Product(result.TranslationID)
	if !ok {
		t.Fatal("translation missing")
	}
	if translation.Name != "Corrida de Lisboa" || translation.Lang != "pt" || translation.Slug != "lisbon-run" {
		t.Fatalf("unexpected translation %+v", translation)
	}
	if translation.Translations["en"] != result.ProductID {
		t.Fatalf("translation not tied to original: %v", translation.Translations)
	}
	if len(translation.Meta) != 3 || translation.Meta[0].Value != "Resumo" {
		t.Fatalf("unexpected translation meta %+v", translation.Meta)
	}
	if len(translation.Variations) != 3 {
		t.Fatalf("translation should carry 3 variations, got %d", len(translation.Variations))
	}
	links := catalog.Links()
	if len(links) != 1 || links[0] != (testsupport.TranslationLink{Original: result.ProductID, Translated: result.TranslationID, Lang: "pt"}) {
		t.Fatalf("unexpected links %+v", links)
	}
	if catalog.CallCount("EnsureAttribute") != 1 {
		t.Fatalf("attribute ids should be cached across products, got %d lookups", catalog.CallCount("EnsureAttribute"))
	}
}

func TestPublishBareCategoryCollapsesIntoParent(t *testing.T) {
	catalog := testsupport.NewCatalog()
	g := sampleGroup()
	g.Variants[0].Set(rowstore.FieldCategory, "Running")
	result, err := newPublisher(catalog).Publish(context.Background(), g)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(result.CategoryIDs) != 2 {
		t.Fatalf("bare pair must not add a category id: %v", result.CategoryIDs)
	}
}

func TestPublishDegradesPartialSteps(t *testing.T) {
	catalog := testsupport.NewCatalog()
	catalog.SetFailure("UpdateACF", errors.New("acf down"))
	catalog.SetFailure("LinkTranslation", errors.New("plugin missing"))
	result, err := newPublisher(catalog).Publish(context.Background(), sampleGroup())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", result.Warnings)
	}
	if result.TranslationID == 0 {
		t.Fatal("translation should still be created")
	}
}

func TestPublishLinkFallsBackToPermalink(t *testing.T) {
	catalog := testsupport.NewCatalog()
	catalog.PermalinkBase = "https://shop.example/product"
	result, err := newPublisher(catalog).Publish(context.Background(), sampleGroup())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if result.Link != "https://shop.example/product/lisbon-run" {
		t.Fatalf("unexpected link %q", result.Link)
	}
}

func TestPublishCategoryFailureIsSkipped(t *testing.T) {
	catalog := testsupport.NewCatalog()
	catalog.SetFailure("EnsureCategory", errors.New("forbidden"))
	result, err := newPublisher(catalog).Publish(context.Background(), sampleGroup())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(result.CategoryIDs) != 0 || len(result.Warnings) != 1 {
		t.Fatalf("expected skipped category with one warning, got ids=%v warnings=%v", result.CategoryIDs, result.Warnings)
	}
}

func TestPublishFailures(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		marker error
	}{
		{"create product", "CreateProduct", services.ErrExternal},
		{"attributes", "EnsureAttribute", services.ErrExternal},
		{"variations list", "ListVariations", services.ErrExternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := testsupport.NewCatalog()
			catalog.SetFailure(tt.op, errors.New("boom"))
			_, err := newPublisher(catalog).Publish(context.Background(), sampleGroup())
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
		})
	}
}

func TestPublishValidation(t *testing.T) {
	catalog := testsupport.NewCatalog()
	g := submission.Group{Head: row(2, "Revised", rowstore.FieldCategory, "Running")}
	_, err := newPublisher(catalog).Publish(context.Background(), g)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(catalog.Calls()) != 0 {
		t.Fatalf("validation failure must not touch the catalog: %v", catalog.Calls())
	}
}

func TestPublishIsRepeatSafeForVariations(t *testing.T) {
	catalog := testsupport.NewCatalog()
	pub := newPublisher(catalog)
	g := sampleGroup()
	result, err := pub.Publish(context.Background(), g)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	plan := submission.BuildPlan(g)
	var res Result
	created, err := pub.createVariations(context.Background(), result.ProductID, plan.Descriptors, &res)
	if err != nil {
		t.Fatalf("createVariations: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected no duplicates, created %d", created)
	}
	primary, _ := catalog.Product(result.ProductID)
	if len(primary.Variations) != 3 {
		t.Fatalf("expected 3 variations after rerun, got %d", len(primary.Variations))
	}
}

func TestRefreshCoordinatesKeepsEnrichedValuesOnMiss(t *testing.T) {
	calls := 0
	pub := New(testsupport.NewCatalog(), func(context.Context, string) (string, string) {
		calls++
		return "", ""
	}, Options{}, nil)
	head := row(2, "Revised", rowstore.FieldLat, "1.5", rowstore.FieldLon, "2.5", rowstore.FieldLocation, "X")
	pub.refreshCoordinates(context.Background(), &head)
	if calls != 1 || head.Get(rowstore.FieldLat) != "1.5" {
		t.Fatalf("coordinates overwritten: %v", head.Fields)
	}
	pub = New(testsupport.NewCatalog(), func(context.Context, string) (string, string) {
		return "3", "4"
	}, Options{}, nil)
	pub.refreshCoordinates(context.Background(), &head)
	if head.Get(rowstore.FieldLat) != "3" || head.Get(rowstore.FieldLon) != "4" {
		t.Fatalf("coordinates not refreshed: %v", head.Fields)
	}
}
