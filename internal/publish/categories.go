package publish

import (
	"context"

	"racefeed/internal/logging"
	"racefeed/internal/services/woocommerce"
	"racefeed/internal/submission"
)

// resolveCategories get-or-creates the category IDs of every pair. The parent
// of a pair is always included, so a bare (category) pair adds nothing once a
// sibling pair with a subcategory has been resolved. A failing pair is logged
// and skipped.
func (p *Publisher) resolveCategories(ctx context.Context, plan submission.Plan, result *Result) []woocommerce.CategoryRef {
	logger := logging.WithContext(ctx, p.logger)
	seen := make(map[int64]struct{})
	var refs []woocommerce.CategoryRef
	add := func(id int64) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		refs = append(refs, woocommerce.CategoryRef{ID: id})
		result.CategoryIDs = append(result.CategoryIDs, id)
	}
	for _, pair := range plan.Categories {
		parentID, err := p.catalog.EnsureCategory(ctx, pair.Category, 0)
		if err != nil {
			logging.WarnWithContext(logger, "category not resolved", "category_failed",
				logging.String("category", pair.String()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "product published without this category"),
			)
			result.warn("category %s: %v", pair, err)
			continue
		}
		add(parentID)
		if !pair.HasSubcategory() {
			continue
		}
		childID, err := p.catalog.EnsureCategory(ctx, pair.Subcategory, parentID)
		if err != nil {
			logging.WarnWithContext(logger, "subcategory not resolved", "category_failed",
				logging.String("category", pair.String()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "product published without this subcategory"),
			)
			result.warn("category %s: %v", pair, err)
			continue
		}
		add(childID)
	}
	logger.Debug("categories resolved",
		logging.Int("pairs", len(plan.Categories)),
		logging.Int("ids", len(refs)),
	)
	return refs
}
