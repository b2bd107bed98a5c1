// Package attributes canonicalizes the taxonomy and attribute data carried by
// submission rows.
//
// Category pairs are expanded from comma-delimited subcategory cells and
// deduplicated in first-seen order. Attribute values are list-normalized so the
// head row and every variant contribute to a single ordered payload. Everything
// here is pure and safe to call from tests without fixtures.
package attributes
