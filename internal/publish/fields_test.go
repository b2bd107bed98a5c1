package publish

import (
	"testing"

	"racefeed/internal/rowstore"
	"racefeed/internal/services/woocommerce"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-09-14", "20250914"},
		{"14/09/2025", "20250914"},
		{"2025/09/14", "20250914"},
		{"09/30/2025", "20250930"},
		{"  2025-01-02 ", "20250102"},
		{"September 14", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.in); got != tt.want {
			t.Fatalf("FormatDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateCoordinate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"38.72239", 38.7223, true},
		{"-9.13939", -9.1393, true},
		{"41.1", 41.1, true},
		{"38.72229999", 38.7222, true},
		{"12", 12, true},
		{"", 0, false},
		{"north", 0, false},
	}
	for _, tt := range tests {
		got, ok := TruncateCoordinate(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("TruncateCoordinate(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLocationText(t *testing.T) {
	if got := LocationText("Porto, Portugal"); got != "Porto" {
		t.Fatalf("unexpected %q", got)
	}
	if got := LocationText("  "); got != "" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestEventFields(t *testing.T) {
	head := rowstore.Row{Position: 2, Fields: map[string]string{
		rowstore.FieldEventStartDate: "14/09/2025",
		rowstore.FieldEventEndDate:   "bad",
		rowstore.FieldLocation:       "Porto, Portugal",
		rowstore.FieldWebsite:        "https://race.example",
		rowstore.FieldLat:            "41.14961",
		rowstore.FieldLon:            "",
		rowstore.FieldSummary:        "S",
		rowstore.FieldOrgInfo:        "O",
		rowstore.FieldBenefits:       "medal\nshirt",
		rowstore.FieldEventStartTime: "09:00",
	}}
	fields := EventFields(head, "portugal")
	checks := map[string]any{
		FieldEventDateStart:   "20250914",
		FieldEventDateEnd:     "",
		FieldEventLocation:    "Porto",
		FieldEventTicketURL:   "https://race.example",
		FieldEventLatitude:    41.1496,
		FieldEventLongitude:   "",
		FieldShortDescription: "S",
		FieldOrganizer:        "O",
		FieldRaceBenefits:     "medal\nshirt",
		FieldEventCountry:     "portugal",
		FieldEventStartTime:   "09:00",
	}
	if len(fields) != len(checks) {
		t.Fatalf("expected %d fields, got %d", len(checks), len(fields))
	}
	for key, want := range checks {
		if fields[key] != want {
			t.Fatalf("%s = %#v, want %#v", key, fields[key], want)
		}
	}
}

func TestPermalink(t *testing.T) {
	tests := []struct {
		name    string
		product woocommerce.Product
		base    string
		want    string
	}{
		{"permalink wins", woocommerce.Product{Permalink: "https://shop/p/x", Slug: "x"}, "https://site/event", "https://shop/p/x"},
		{"slug fallback", woocommerce.Product{Slug: "lisbon-run"}, "https://site/event/", "https://site/event/lisbon-run"},
		{"nothing", woocommerce.Product{}, "https://site/event", ""},
		{"no base", woocommerce.Product{Slug: "x"}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Permalink(tt.product, tt.base); got != tt.want {
				t.Fatalf("Permalink = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranslationTitle(t *testing.T) {
	head := rowstore.Row{Fields: map[string]string{rowstore.FieldRaceName: "Night Run"}}
	if got := TranslationTitle(head); got != "Night Run" {
		t.Fatalf("fallback title = %q", got)
	}
	head.Set(rowstore.FieldRaceNamePT, "Corrida Noturna")
	if got := TranslationTitle(head); got != "Corrida Noturna" {
		t.Fatalf("localized title = %q", got)
	}
}
