package publish

import (
	"strconv"
	"strings"
	"time"

	"racefeed/internal/rowstore"
	"racefeed/internal/services/woocommerce"
)

// Custom event field keys.
const (
	FieldEventDateStart   = "event_date_start"
	FieldEventLocation    = "event_location_text"
	FieldEventTicketURL   = "event_ticket_url"
	FieldEventLatitude    = "event_latitude"
	FieldEventLongitude   = "event_longitude"
	FieldShortDescription = "event_short_description"
	FieldOrganizer        = "organizer_description"
	FieldRaceBenefits     = "race_benefits"
	FieldEventCountry     = "event_country"
	FieldEventStartTime   = "event_start_time"
	FieldEventDateEnd     = "event_date_end"
)

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02", "01/02/2006"}

// FormatDate converts a sheet date into YYYYMMDD. Unparseable input yields "".
func FormatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("20060102")
		}
	}
	return ""
}

// TruncateCoordinate rounds a decimal coordinate toward zero at four places.
// The decimal text is cut rather than scaled so binary float error cannot
// bump the last digit.
func TruncateCoordinate(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	text := strconv.FormatFloat(v, 'f', -1, 64)
	if dot := strings.IndexByte(text, '.'); dot >= 0 && len(text)-dot-1 > 4 {
		text = text[:dot+5]
	}
	out, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return out, true
}

// LocationText returns the first comma-separated part of a location.
func LocationText(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	first, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(first)
}

func coordinateField(raw string) any {
	if v, ok := TruncateCoordinate(raw); ok {
		return v
	}
	return ""
}

// EventFields builds the custom field set sent for a primary product.
func EventFields(head rowstore.Row, country string) map[string]any {
	return map[string]any{
		FieldEventDateStart:   FormatDate(head.Get(rowstore.FieldEventStartDate)),
		FieldEventLocation:    LocationText(head.Get(rowstore.FieldLocation)),
		FieldEventTicketURL:   head.Get(rowstore.FieldWebsite),
		FieldEventLatitude:    coordinateField(head.Get(rowstore.FieldLat)),
		FieldEventLongitude:   coordinateField(head.Get(rowstore.FieldLon)),
		FieldShortDescription: head.Get(rowstore.FieldSummary),
		FieldOrganizer:        head.Get(rowstore.FieldOrgInfo),
		FieldRaceBenefits:     head.Get(rowstore.FieldBenefits),
		FieldEventCountry:     country,
		FieldEventStartTime:   head.Get(rowstore.FieldEventStartTime),
		FieldEventDateEnd:     FormatDate(head.Get(rowstore.FieldEventEndDate)),
	}
}

// TranslationMeta builds the localized meta entries of a translation.
func TranslationMeta(head rowstore.Row) []woocommerce.MetaData {
	return []woocommerce.MetaData{
		{Key: FieldShortDescription, Value: head.Get(rowstore.FieldSummaryPT)},
		{Key: FieldOrganizer, Value: head.Get(rowstore.FieldOrgInfoPT)},
		{Key: FieldRaceBenefits, Value: head.Get(rowstore.FieldBenefitsPT)},
	}
}

// Permalink picks the public link of a product: its permalink, else
// <eventBaseURL>/<slug>, else "".
func Permalink(product woocommerce.Product, eventBaseURL string) string {
	if link := strings.TrimSpace(product.Permalink); link != "" {
		return link
	}
	slug := strings.TrimSpace(product.Slug)
	base := strings.TrimRight(strings.TrimSpace(eventBaseURL), "/")
	if slug == "" || base == "" {
		return ""
	}
	return base + "/" + slug
}

// TranslationTitle returns the localized title, falling back to the race name.
func TranslationTitle(head rowstore.Row) string {
	if title := head.Get(rowstore.FieldRaceNamePT); title != "" {
		return title
	}
	return head.Get(rowstore.FieldRaceName)
}
