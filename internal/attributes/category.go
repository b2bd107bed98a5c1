package attributes

import "strings"

// CategoryPair is a catalog category with an optional subcategory. An empty
// Subcategory means the pair targets the parent category only.
type CategoryPair struct {
	Category    string
	Subcategory string
}

// HasSubcategory reports whether the pair names a child category.
func (p CategoryPair) HasSubcategory() bool {
	return p.Subcategory != ""
}

func (p CategoryPair) String() string {
	if p.Subcategory == "" {
		return p.Category
	}
	return p.Category + " > " + p.Subcategory
}

// RawCategoryPair is a category cell paired with its unparsed subcategory
// value (a string, a list, or nil).
type RawCategoryPair struct {
	Category    string
	Subcategory any
}

// NormalizeCategoryPairs expands each raw pair into one pair per subcategory
// token, drops pairs with an empty category and removes duplicates while
// keeping first-seen order. A raw pair with no tokens yields the bare
// (category, none) pair.
func NormalizeCategoryPairs(raw []RawCategoryPair) []CategoryPair {
	seen := make(map[CategoryPair]struct{}, len(raw))
	var out []CategoryPair
	add := func(pair CategoryPair) {
		if _, ok := seen[pair]; ok {
			return
		}
		seen[pair] = struct{}{}
		out = append(out, pair)
	}
	for _, item := range raw {
		category := strings.TrimSpace(item.Category)
		if category == "" {
			continue
		}
		tokens := ParseSubcategoryValues(item.Subcategory)
		if len(tokens) == 0 {
			add(CategoryPair{Category: category})
			continue
		}
		for _, token := range tokens {
			add(CategoryPair{Category: category, Subcategory: token})
		}
	}
	return out
}
