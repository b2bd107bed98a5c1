package publish

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"racefeed/internal/attributes"
	"racefeed/internal/logging"
	"racefeed/internal/services/woocommerce"
	"racefeed/internal/submission"
)

// assignAttributes get-or-creates every attribute and term of payload and
// attaches them to productID as variation attributes. attrIDs caches
// attribute IDs across products of the same group.
func (p *Publisher) assignAttributes(ctx context.Context, productID int64, payload *attributes.Payload, attrIDs map[string]int64) error {
	logger := logging.WithContext(ctx, p.logger).With(logging.Int64("product_id", productID))
	var attrs []woocommerce.ProductAttribute
	for _, name := range payload.Names() {
		attrID, ok := attrIDs[name]
		if !ok {
			id, err := p.catalog.EnsureAttribute(ctx, name)
			if err != nil {
				return fmt.Errorf("attribute %q: %w", name, err)
			}
			attrID = id
			attrIDs[name] = id
		}
		var options []string
		for _, option := range payload.Options(name) {
			if strings.TrimSpace(option) == "" {
				continue
			}
			if _, err := p.catalog.EnsureTerm(ctx, attrID, option); err != nil {
				return fmt.Errorf("term %q of %q: %w", option, name, err)
			}
			options = append(options, option)
		}
		if len(options) == 0 {
			continue
		}
		attrs = append(attrs, woocommerce.ProductAttribute{
			ID:        attrID,
			Name:      name,
			Variation: true,
			Visible:   true,
			Options:   options,
		})
	}
	if len(attrs) == 0 {
		logger.Info("no attributes to assign", logging.String(logging.FieldEventType, "attributes_empty"))
		return nil
	}
	if err := p.catalog.SetProductAttributes(ctx, productID, attrs); err != nil {
		return fmt.Errorf("assign attributes: %w", err)
	}
	logger.Info("attributes assigned",
		logging.Int("attributes", len(attrs)),
		logging.String(logging.FieldEventType, "attributes_assigned"),
	)
	return nil
}

// combinationKey identifies a variation by its unordered attribute set.
// Attribute names compare case-insensitively; options compare exactly.
func combinationKey(pairs []attributes.Option) string {
	fold := cases.Fold()
	parts := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		if pair.Name == "" || pair.Option == "" {
			continue
		}
		parts = append(parts, fold.String(pair.Name)+"\x00"+pair.Option)
	}
	sort.Strings(parts)
	return strings.Join(parts, "\x1f")
}

// createVariations creates one variation per descriptor unless the product
// already has a variation with the same attribute set. A single failed
// variation is recorded as a warning.
func (p *Publisher) createVariations(ctx context.Context, productID int64, descriptors []submission.Descriptor, result *Result) (int, error) {
	logger := logging.WithContext(ctx, p.logger).With(logging.Int64("product_id", productID))
	product, err := p.catalog.GetProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("load product attributes: %w", err)
	}
	fold := cases.Fold()
	attrIDs := make(map[string]int64, len(product.Attributes))
	for _, attr := range product.Attributes {
		if attr.ID != 0 {
			attrIDs[fold.String(attr.Name)] = attr.ID
		}
	}

	existing, err := p.catalog.ListVariations(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("list variations: %w", err)
	}
	combos := make(map[string]struct{}, len(existing))
	for _, variation := range existing {
		pairs := make([]attributes.Option, 0, len(variation.Attributes))
		for _, attr := range variation.Attributes {
			pairs = append(pairs, attributes.Option{Name: attr.Name, Option: attr.Option})
		}
		combos[combinationKey(pairs)] = struct{}{}
	}

	created := 0
	for _, desc := range descriptors {
		key := combinationKey(desc.Attributes)
		if _, dup := combos[key]; dup {
			logger.Info("variation exists; skipping",
				logging.Int("descriptor_row", desc.Position),
				logging.String(logging.FieldEventType, "variation_exists"),
			)
			continue
		}
		variation := woocommerce.Variation{RegularPrice: desc.Price}
		for _, opt := range desc.Attributes {
			id, ok := attrIDs[fold.String(opt.Name)]
			if !ok {
				logging.WarnWithContext(logger, "variation attribute missing on product", "variation_attribute_missing",
					logging.String("attribute", opt.Name),
					logging.Int("descriptor_row", desc.Position),
					logging.String(logging.FieldImpact, "variation created without this attribute"),
				)
				continue
			}
			variation.Attributes = append(variation.Attributes, woocommerce.VariationAttribute{ID: id, Option: opt.Option})
		}
		if _, err := p.catalog.CreateVariation(ctx, productID, variation); err != nil {
			logging.WarnWithContext(logger, "variation not created", "variation_failed",
				logging.Int("descriptor_row", desc.Position),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the product in the catalog admin"),
				logging.String(logging.FieldImpact, "one ticket option missing"),
			)
			result.warn("variation for row %d on product %d: %v", desc.Position, productID, err)
			continue
		}
		combos[key] = struct{}{}
		created++
	}
	logger.Info("variations synced",
		logging.Int("created", created),
		logging.Int("existing", len(existing)),
		logging.String(logging.FieldEventType, "variations_synced"),
	)
	return created, nil
}
