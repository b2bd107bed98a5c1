package testsupport

import (
	"context"
	"testing"
	"time"

	"racefeed/internal/rowstore"
)

// Header is the work queue header used by pipeline tests.
var Header = []string{
	rowstore.FieldID,
	rowstore.FieldStatus,
	rowstore.FieldRaceName,
	rowstore.FieldRaceNamePT,
	rowstore.FieldLocation,
	rowstore.FieldWebsite,
	rowstore.FieldRegulations,
	rowstore.FieldCategory,
	rowstore.FieldSubcategory,
	rowstore.FieldAttribute,
	rowstore.FieldValue,
	rowstore.FieldDistance,
	rowstore.FieldTeam,
	rowstore.FieldType,
	rowstore.FieldLicense,
	rowstore.FieldRaceStartDate,
	rowstore.FieldRaceStartTime,
	rowstore.FieldEventStartDate,
	rowstore.FieldEventEndDate,
	rowstore.FieldEventStartTime,
	rowstore.FieldPrice,
	rowstore.FieldSummary,
	rowstore.FieldOrgInfo,
	rowstore.FieldBenefits,
	rowstore.FieldSummaryPT,
	rowstore.FieldOrgInfoPT,
	rowstore.FieldBenefitsPT,
	rowstore.FieldImageURL,
	rowstore.FieldImageID,
	rowstore.FieldLat,
	rowstore.FieldLon,
	rowstore.FieldLink,
}

// MustOpenStore builds a row store over an in-memory sheet holding records
// (maps keyed by field name) below Header.
func MustOpenStore(t testing.TB, records ...map[string]string) (*rowstore.Store, *rowstore.MemoryConnector) {
	t.Helper()

	connector := rowstore.NewMemoryConnectorFromMaps(Header, records...)
	store := rowstore.New(connector, rowstore.Options{
		LoadAttempts:   2,
		UpdateAttempts: 2,
		Sleep:          func(context.Context, time.Duration) error { return nil },
	})
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, connector
}
