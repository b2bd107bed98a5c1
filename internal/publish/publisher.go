package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"racefeed/internal/logging"
	"racefeed/internal/rowstore"
	"racefeed/internal/services"
	"racefeed/internal/services/woocommerce"
	"racefeed/internal/submission"
)

const (
	productTypeVariable = "variable"
	productStatusDraft  = "draft"
	originalLanguage    = "en"
)

// Catalog is the catalog API surface used for publishing.
type Catalog interface {
	EnsureCategory(ctx context.Context, name string, parentID int64) (int64, error)
	CreateProduct(ctx context.Context, product woocommerce.NewProduct) (woocommerce.Product, error)
	GetProduct(ctx context.Context, id int64) (woocommerce.Product, error)
	UpdateProduct(ctx context.Context, id int64, fields map[string]any) error
	SetProductAttributes(ctx context.Context, id int64, attrs []woocommerce.ProductAttribute) error
	SetMetaData(ctx context.Context, id int64, meta []woocommerce.MetaData) error
	EnsureAttribute(ctx context.Context, name string) (int64, error)
	EnsureTerm(ctx context.Context, attrID int64, value string) (int64, error)
	ListVariations(ctx context.Context, productID int64) ([]woocommerce.Variation, error)
	CreateVariation(ctx context.Context, productID int64, variation woocommerce.Variation) (int64, error)
	UpdateACF(ctx context.Context, productID int64, fields map[string]any) error
	LinkTranslation(ctx context.Context, originalID, translatedID int64, lang string) error
}

var _ Catalog = (*woocommerce.Client)(nil)

// LocateFunc resolves a location into formatted coordinates; empty strings
// mean unknown.
type LocateFunc func(ctx context.Context, location string) (lat, lon string)

// Options controls publishing.
type Options struct {
	EventBaseURL        string
	TranslationLanguage string
	EventCountry        string
}

// Result describes what a publish produced.
type Result struct {
	ProductID     int64
	TranslationID int64
	Link          string
	CategoryIDs   []int64
	Variations    int
	Warnings      []string
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Publisher runs the publish sequence for one group at a time.
type Publisher struct {
	catalog Catalog
	locate  LocateFunc
	opts    Options
	logger  *slog.Logger
}

// New constructs a Publisher. locate may be nil, in which case the
// coordinates already on the head row are used.
func New(catalog Catalog, locate LocateFunc, opts Options, logger *slog.Logger) *Publisher {
	if strings.TrimSpace(opts.TranslationLanguage) == "" {
		opts.TranslationLanguage = "pt"
	}
	return &Publisher{
		catalog: catalog,
		locate:  locate,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "publish"),
	}
}

// Publish creates the primary product and its translation for g. The head row
// is expected to carry the enriched fields. The returned Result is populated
// as far as the sequence got, even on error.
func (p *Publisher) Publish(ctx context.Context, g submission.Group) (Result, error) {
	ctx = services.WithStage(ctx, "publish")
	logger := logging.WithContext(ctx, p.logger)
	var result Result

	head := g.Head.Clone()
	name := head.Get(rowstore.FieldRaceName)
	if name == "" {
		return result, services.Wrap(services.ErrValidation, "publish", "validate", "race name missing", nil)
	}
	translationTitle := TranslationTitle(head)
	if translationTitle == "" {
		return result, services.Wrap(services.ErrValidation, "publish", "validate", "no usable translation title", nil)
	}

	p.refreshCoordinates(ctx, &head)
	g.Head = head
	plan := submission.BuildPlan(g)
	logger.Info("publish plan built",
		logging.Int("categories", len(plan.Categories)),
		logging.Int("attributes", plan.Payload.Len()),
		logging.Int("descriptors", len(plan.Descriptors)),
		logging.Int("variants", len(g.Variants)),
		logging.String(logging.FieldEventType, "publish_plan_built"),
	)

	refs := p.resolveCategories(ctx, plan, &result)
	product, err := p.catalog.CreateProduct(ctx, woocommerce.NewProduct{
		Name:       name,
		Type:       productTypeVariable,
		Status:     productStatusDraft,
		Categories: refs,
	})
	if err != nil {
		return result, services.Wrap(services.ErrExternal, "publish", "create product", name, err)
	}
	result.ProductID = product.ID
	logger = logger.With(logging.Int64("product_id", product.ID))
	logger.Info("product created", logging.String(logging.FieldEventType, "product_created"))

	if err := p.catalog.UpdateACF(ctx, product.ID, EventFields(head, p.opts.EventCountry)); err != nil {
		logging.WarnWithContext(logger, "custom event fields not saved", "acf_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the admin credentials and the ACF REST endpoint"),
			logging.String(logging.FieldImpact, "event dates and location missing on the product page"),
		)
		result.warn("custom fields: %v", err)
	}

	slug := p.resolveLink(ctx, product, &result)

	attrIDs := make(map[string]int64)
	created, err := p.attachVariations(ctx, product.ID, plan, attrIDs, &result)
	if err != nil {
		return result, services.Wrap(services.ErrExternal, "publish", "variations", name, err)
	}
	result.Variations = created

	translationID, err := p.translate(ctx, head, product.ID, slug, translationTitle, refs, plan, attrIDs, &result)
	result.TranslationID = translationID
	if err != nil {
		return result, err
	}

	logger.Info("group published",
		logging.Int64("translation_id", translationID),
		logging.String("link", result.Link),
		logging.Int("variations", result.Variations),
		logging.Int("warnings", len(result.Warnings)),
		logging.String(logging.FieldEventType, "group_published"),
	)
	return result, nil
}

// refreshCoordinates re-resolves LAT/LON. An empty answer keeps the values
// written during enrichment.
func (p *Publisher) refreshCoordinates(ctx context.Context, head *rowstore.Row) {
	if p.locate == nil {
		return
	}
	lat, lon := p.locate(ctx, head.Get(rowstore.FieldLocation))
	if lat == "" || lon == "" {
		return
	}
	head.Set(rowstore.FieldLat, lat)
	head.Set(rowstore.FieldLon, lon)
}

// resolveLink sets the permalink on result and returns the product slug.
func (p *Publisher) resolveLink(ctx context.Context, product woocommerce.Product, result *Result) string {
	logger := logging.WithContext(ctx, p.logger)
	fetched, err := p.catalog.GetProduct(ctx, product.ID)
	if err != nil {
		logging.WarnWithContext(logger, "permalink lookup failed", "permalink_failed",
			logging.Int64("product_id", product.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "LINK RACEFINDER left empty"),
		)
		result.warn("permalink: %v", err)
		return product.Slug
	}
	result.Link = Permalink(fetched, p.opts.EventBaseURL)
	if result.Link == "" {
		logging.WarnWithContext(logger, "product has no permalink or slug", "permalink_missing",
			logging.Int64("product_id", product.ID),
			logging.String(logging.FieldImpact, "LINK RACEFINDER left empty"),
		)
		result.warn("permalink: product has no permalink or slug")
	}
	return fetched.Slug
}

// attachVariations registers the attribute payload on productID and creates
// the missing variations.
func (p *Publisher) attachVariations(ctx context.Context, productID int64, plan submission.Plan, attrIDs map[string]int64, result *Result) (int, error) {
	if err := p.assignAttributes(ctx, productID, plan.Payload, attrIDs); err != nil {
		return 0, err
	}
	return p.createVariations(ctx, productID, plan.Descriptors, result)
}

func (p *Publisher) translate(
	ctx context.Context,
	head rowstore.Row,
	originalID int64,
	slug, title string,
	refs []woocommerce.CategoryRef,
	plan submission.Plan,
	attrIDs map[string]int64,
	result *Result,
) (int64, error) {
	lang := p.opts.TranslationLanguage
	logger := logging.WithContext(ctx, p.logger).With(
		logging.Int64("product_id", originalID),
		logging.String("lang", lang),
	)
	translated, err := p.catalog.CreateProduct(ctx, woocommerce.NewProduct{
		Title:        title,
		Status:       productStatusDraft,
		Lang:         lang,
		Slug:         slug,
		Categories:   refs,
		Translations: map[string]int64{originalLanguage: originalID},
	})
	if err != nil {
		return 0, services.Wrap(services.ErrExternal, "publish", "create translation", title, err)
	}
	if translated.ID == 0 {
		return 0, services.Wrap(services.ErrExternal, "publish", "create translation", "response missing id", nil)
	}
	logger = logger.With(logging.Int64("translation_id", translated.ID))
	logger.Info("translation created", logging.String(logging.FieldEventType, "translation_created"))

	if err := p.catalog.UpdateProduct(ctx, translated.ID, map[string]any{"name": title, "lang": lang}); err != nil {
		logging.WarnWithContext(logger, "translation name not applied", "translation_name_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "translated product may show the original title"),
		)
		result.warn("translation name: %v", err)
	}
	if err := p.catalog.SetMetaData(ctx, translated.ID, TranslationMeta(head)); err != nil {
		logging.WarnWithContext(logger, "translation meta not applied", "translation_meta_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "translated product lacks localized descriptions"),
		)
		result.warn("translation meta: %v", err)
	}
	if err := p.catalog.LinkTranslation(ctx, originalID, translated.ID, lang); err != nil {
		logging.WarnWithContext(logger, "translation link failed", "translation_link_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "link the products manually in the translation plugin"),
			logging.String(logging.FieldImpact, "products are not paired as translations"),
		)
		result.warn("translation link: %v", err)
	} else {
		logger.Info("translation linked", logging.String(logging.FieldEventType, "translation_linked"))
	}

	if _, err := p.attachVariations(ctx, translated.ID, plan, attrIDs, result); err != nil {
		return translated.ID, services.Wrap(services.ErrExternal, "publish", "translation variations", title, err)
	}
	return translated.ID, nil
}
