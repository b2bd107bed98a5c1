// Package publish turns an enriched submission group into catalog products:
// the primary product with its categories, custom event fields, attributes
// and variations, followed by the localized translation linked to it.
//
// Every step is safe to repeat. Variations are created only when no existing
// variation carries the same attribute set, so a group whose status write
// failed can be published again on the next pass.
package publish
