// Package enrichment derives the generated fields of a submission head row:
// coordinates, source material, localized title, generated copy and the
// feature image.
//
// The Enricher talks to its collaborators through small interfaces so the
// pipeline can run against fakes. Partial failures (geocoding, translation,
// image acquisition, archiving) degrade the affected field and are reported as
// warnings on the Result; only missing source material and generation
// failures abort the group.
package enrichment
