package testsupport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"racefeed/internal/services/woocommerce"
)

// FakeProduct is a product held by Catalog.
type FakeProduct struct {
	woocommerce.Product
	Title        string
	Type         string
	Lang         string
	Categories   []woocommerce.CategoryRef
	Translations map[string]int64
	Meta         []woocommerce.MetaData
	ACF          map[string]any
	Variations   []woocommerce.Variation
	Updates      []map[string]any
}

// TranslationLink records one LinkTranslation call.
type TranslationLink struct {
	Original   int64
	Translated int64
	Lang       string
}

type categoryKey struct {
	name   string
	parent int64
}

// Catalog is an in-memory catalog implementing the publish API surface.
// Failures are injected per operation name (for example "UpdateACF").
type Catalog struct {
	mu sync.Mutex

	// PermalinkBase, when set, gives products a permalink of base/slug.
	PermalinkBase string
	// Fail maps an operation name to the error it returns.
	Fail map[string]error

	nextID     int64
	categories map[categoryKey]int64
	products   map[int64]*FakeProduct
	order      []int64
	attrs      map[string]int64
	attrNames  map[int64]string
	terms      map[int64]map[string]int64
	links      []TranslationLink
	calls      []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		Fail:       make(map[string]error),
		nextID:     100,
		categories: make(map[categoryKey]int64),
		products:   make(map[int64]*FakeProduct),
		attrs:      make(map[string]int64),
		attrNames:  make(map[int64]string),
		terms:      make(map[int64]map[string]int64),
	}
}

func (c *Catalog) begin(op string) error {
	c.calls = append(c.calls, op)
	return c.Fail[op]
}

func (c *Catalog) id() int64 {
	c.nextID++
	return c.nextID
}

// SetFailure injects err for op; a nil err clears it.
func (c *Catalog) SetFailure(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.Fail, op)
		return
	}
	c.Fail[op] = err
}

// Calls returns the operation names invoked so far.
func (c *Catalog) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// CallCount counts invocations of op.
func (c *Catalog) CallCount(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call == op {
			n++
		}
	}
	return n
}

// Products returns copies of every product in creation order.
func (c *Catalog) Products() []FakeProduct {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FakeProduct, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.products[id])
	}
	return out
}

// Product returns a copy of product id.
func (c *Catalog) Product(id int64) (FakeProduct, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return FakeProduct{}, false
	}
	return *p, true
}

// Links returns recorded translation links.
func (c *Catalog) Links() []TranslationLink {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TranslationLink(nil), c.links...)
}

// CategoryID returns the ID of a category created under parent.
func (c *Catalog) CategoryID(name string, parent int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.categories[categoryKey{name: strings.ToLower(name), parent: parent}]
	return id, ok
}

func (c *Catalog) EnsureCategory(_ context.Context, name string, parentID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("EnsureCategory"); err != nil {
		return 0, err
	}
	key := categoryKey{name: strings.ToLower(strings.TrimSpace(name)), parent: parentID}
	if id, ok := c.categories[key]; ok {
		return id, nil
	}
	id := c.id()
	c.categories[key] = id
	return id, nil
}

func (c *Catalog) CreateProduct(_ context.Context, product woocommerce.NewProduct) (woocommerce.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("CreateProduct"); err != nil {
		return woocommerce.Product{}, err
	}
	name := product.Name
	if name == "" {
		name = product.Title
	}
	slug := product.Slug
	if slug == "" {
		slug = woocommerce.CategorySlug(name)
	}
	fp := &FakeProduct{
		Product: woocommerce.Product{
			ID:     c.id(),
			Name:   name,
			Slug:   slug,
			Status: product.Status,
		},
		Title:        product.Title,
		Type:         product.Type,
		Lang:         product.Lang,
		Categories:   append([]woocommerce.CategoryRef(nil), product.Categories...),
		Translations: product.Translations,
	}
	if c.PermalinkBase != "" {
		fp.Permalink = strings.TrimRight(c.PermalinkBase, "/") + "/" + slug
	}
	c.products[fp.ID] = fp
	c.order = append(c.order, fp.ID)
	return fp.Product, nil
}

func (c *Catalog) lookup(id int64) (*FakeProduct, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, &woocommerce.APIError{Method: "GET", Path: fmt.Sprintf("products/%d", id), Status: 404, Code: "woocommerce_rest_product_invalid_id"}
	}
	return p, nil
}

func (c *Catalog) GetProduct(_ context.Context, id int64) (woocommerce.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("GetProduct"); err != nil {
		return woocommerce.Product{}, err
	}
	p, err := c.lookup(id)
	if err != nil {
		return woocommerce.Product{}, err
	}
	out := p.Product
	out.Attributes = append([]woocommerce.ProductAttribute(nil), p.Attributes...)
	return out, nil
}

func (c *Catalog) UpdateProduct(_ context.Context, id int64, fields map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("UpdateProduct"); err != nil {
		return err
	}
	p, err := c.lookup(id)
	if err != nil {
		return err
	}
	if name, ok := fields["name"].(string); ok {
		p.Name = name
	}
	if lang, ok := fields["lang"].(string); ok {
		p.Lang = lang
	}
	p.Updates = append(p.Updates, fields)
	return nil
}

func (c *Catalog) SetProductAttributes(_ context.Context, id int64, attrs []woocommerce.ProductAttribute) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("SetProductAttributes"); err != nil {
		return err
	}
	p, err := c.lookup(id)
	if err != nil {
		return err
	}
	out := make([]woocommerce.ProductAttribute, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Name == "" {
			attr.Name = c.attrNames[attr.ID]
		}
		out = append(out, attr)
	}
	p.Attributes = out
	return nil
}

func (c *Catalog) SetMetaData(_ context.Context, id int64, meta []woocommerce.MetaData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("SetMetaData"); err != nil {
		return err
	}
	p, err := c.lookup(id)
	if err != nil {
		return err
	}
	p.Meta = append([]woocommerce.MetaData(nil), meta...)
	return nil
}

func (c *Catalog) EnsureAttribute(_ context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("EnsureAttribute"); err != nil {
		return 0, err
	}
	key := strings.ToLower(name)
	if id, ok := c.attrs[key]; ok {
		return id, nil
	}
	id := c.id()
	c.attrs[key] = id
	c.attrNames[id] = name
	c.terms[id] = make(map[string]int64)
	return id, nil
}

func (c *Catalog) EnsureTerm(_ context.Context, attrID int64, value string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("EnsureTerm"); err != nil {
		return 0, err
	}
	terms, ok := c.terms[attrID]
	if !ok {
		return 0, fmt.Errorf("attribute %d not found", attrID)
	}
	key := strings.ToLower(value)
	if id, ok := terms[key]; ok {
		return id, nil
	}
	id := c.id()
	terms[key] = id
	return id, nil
}

func (c *Catalog) ListVariations(_ context.Context, productID int64) ([]woocommerce.Variation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("ListVariations"); err != nil {
		return nil, err
	}
	p, err := c.lookup(productID)
	if err != nil {
		return nil, err
	}
	return append([]woocommerce.Variation(nil), p.Variations...), nil
}

func (c *Catalog) CreateVariation(_ context.Context, productID int64, variation woocommerce.Variation) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("CreateVariation"); err != nil {
		return 0, err
	}
	p, err := c.lookup(productID)
	if err != nil {
		return 0, err
	}
	stored := woocommerce.Variation{ID: c.id(), RegularPrice: variation.RegularPrice}
	for _, attr := range variation.Attributes {
		stored.Attributes = append(stored.Attributes, woocommerce.VariationAttribute{
			ID:     attr.ID,
			Name:   c.attrNames[attr.ID],
			Option: attr.Option,
		})
	}
	p.Variations = append(p.Variations, stored)
	return stored.ID, nil
}

func (c *Catalog) UpdateACF(_ context.Context, productID int64, fields map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("UpdateACF"); err != nil {
		return err
	}
	p, err := c.lookup(productID)
	if err != nil {
		return err
	}
	p.ACF = fields
	return nil
}

func (c *Catalog) LinkTranslation(_ context.Context, originalID, translatedID int64, lang string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("LinkTranslation"); err != nil {
		return err
	}
	c.links = append(c.links, TranslationLink{Original: originalID, Translated: translatedID, Lang: lang})
	return nil
}
