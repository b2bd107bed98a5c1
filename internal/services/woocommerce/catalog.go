package woocommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Category is a product category.
type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Parent int64  `json:"parent"`
}

// ProductAttribute is an attribute attached to a product.
type ProductAttribute struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Variation bool     `json:"variation"`
	Visible   bool     `json:"visible"`
	Options   []string `json:"options"`
}

// Product is the subset of the product resource the pipeline reads.
type Product struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	Slug       string             `json:"slug"`
	Permalink  string             `json:"permalink"`
	Status     string             `json:"status"`
	Attributes []ProductAttribute `json:"attributes"`
}

// CategoryRef references a category by ID.
type CategoryRef struct {
	ID int64 `json:"id"`
}

// NewProduct is the payload for creating a product.
type NewProduct struct {
	Name         string           `json:"name,omitempty"`
	Title        string           `json:"title,omitempty"`
	Type         string           `json:"type,omitempty"`
	Status       string           `json:"status,omitempty"`
	Lang         string           `json:"lang,omitempty"`
	Slug         string           `json:"slug,omitempty"`
	Categories   []CategoryRef    `json:"categories,omitempty"`
	Translations map[string]int64 `json:"translations,omitempty"`
}

// MetaData is one product meta entry.
type MetaData struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Attribute is a global product attribute.
type Attribute struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Type string `json:"type"`
}

// Term is an attribute term.
type Term struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// VariationAttribute is one attribute of a variation. Name is filled on
// reads; ID on writes.
type VariationAttribute struct {
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Option string `json:"option"`
}

// Variation is a product variation.
type Variation struct {
	ID           int64                `json:"id,omitempty"`
	RegularPrice string               `json:"regular_price"`
	Attributes   []VariationAttribute `json:"attributes"`
}

// CategorySlug derives the slug used when creating a category.
func CategorySlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// EnsureCategory returns the ID of the category called name under parentID
// (0 for top level), creating it when no exact case-insensitive match exists.
func (c *Client) EnsureCategory(ctx context.Context, name string, parentID int64) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("category name required")
	}
	var found []Category
	if err := c.wc(ctx, http.MethodGet, "products/categories", pageQuery(url.Values{"search": {name}}), nil, &found); err != nil {
		return 0, fmt.Errorf("search category %q: %w", name, err)
	}
	for _, cat := range found {
		if sameName(cat.Name, name) && cat.Parent == parentID {
			return cat.ID, nil
		}
	}
	payload := map[string]any{"name": name, "slug": CategorySlug(name)}
	if parentID != 0 {
		payload["parent"] = parentID
	}
	var created Category
	if err := c.wc(ctx, http.MethodPost, "products/categories", nil, payload, &created); err != nil {
		return 0, fmt.Errorf("create category %q: %w", name, err)
	}
	if created.ID == 0 {
		return 0, fmt.Errorf("create category %q: response missing id", name)
	}
	return created.ID, nil
}

// CreateProduct creates a product and returns it.
func (c *Client) CreateProduct(ctx context.Context, product NewProduct) (Product, error) {
	var created Product
	if err := c.wc(ctx, http.MethodPost, "products", nil, product, &created); err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	if created.ID == 0 {
		return Product{}, errors.New("create product: response missing id")
	}
	return created, nil
}

// GetProduct fetches a product.
func (c *Client) GetProduct(ctx context.Context, id int64) (Product, error) {
	var product Product
	if err := c.wc(ctx, http.MethodGet, "products/"+strconv.FormatInt(id, 10), nil, nil, &product); err != nil {
		return Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return product, nil
}

// UpdateProduct applies a partial update.
func (c *Client) UpdateProduct(ctx context.Context, id int64, fields map[string]any) error {
	if err := c.wc(ctx, http.MethodPut, "products/"+strconv.FormatInt(id, 10), nil, fields, nil); err != nil {
		return fmt.Errorf("update product %d: %w", id, err)
	}
	return nil
}

// SetProductAttributes replaces the product's attributes.
func (c *Client) SetProductAttributes(ctx context.Context, id int64, attrs []ProductAttribute) error {
	return c.UpdateProduct(ctx, id, map[string]any{"attributes": attrs})
}

// SetMetaData writes product meta entries.
func (c *Client) SetMetaData(ctx context.Context, id int64, meta []MetaData) error {
	return c.UpdateProduct(ctx, id, map[string]any{"meta_data": meta})
}

// EnsureAttribute returns the ID of the global attribute called name,
// creating a select attribute when missing.
func (c *Client) EnsureAttribute(ctx context.Context, name string) (int64, error) {
	attrs, err := listAll[Attribute](ctx, c, "products/attributes", nil)
	if err != nil {
		return 0, fmt.Errorf("list attributes: %w", err)
	}
	for _, attr := range attrs {
		if sameName(attr.Name, name) {
			return attr.ID, nil
		}
	}
	var created Attribute
	if err := c.wc(ctx, http.MethodPost, "products/attributes", nil, map[string]any{"name": name, "type": "select"}, &created); err != nil {
		return 0, fmt.Errorf("create attribute %q: %w", name, err)
	}
	if created.ID == 0 {
		return 0, fmt.Errorf("create attribute %q: response missing id", name)
	}
	return created.ID, nil
}

// EnsureTerm returns the ID of value within attribute attrID. A term_exists
// rejection resolves to the existing term.
func (c *Client) EnsureTerm(ctx context.Context, attrID int64, value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("term value required")
	}
	path := "products/attributes/" + strconv.FormatInt(attrID, 10) + "/terms"
	terms, err := listAll[Term](ctx, c, path, nil)
	if err != nil {
		return 0, fmt.Errorf("list terms of %d: %w", attrID, err)
	}
	for _, term := range terms {
		if sameName(term.Name, value) {
			return term.ID, nil
		}
	}
	var created Term
	err = c.wc(ctx, http.MethodPost, path, nil, map[string]any{"name": value}, &created)
	if err != nil {
		if id, ok := existingTermID(err); ok {
			return id, nil
		}
		return 0, fmt.Errorf("create term %q: %w", value, err)
	}
	if created.ID == 0 {
		return 0, fmt.Errorf("create term %q: response missing id", value)
	}
	return created.ID, nil
}

func existingTermID(err error) (int64, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Code != "term_exists" {
		return 0, false
	}
	var data struct {
		ResourceID json.Number `json:"resource_id"`
	}
	if err := json.Unmarshal(apiErr.Data, &data); err != nil {
		return 0, false
	}
	id, err := data.ResourceID.Int64()
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// ListVariations returns every existing variation of the product.
func (c *Client) ListVariations(ctx context.Context, productID int64) ([]Variation, error) {
	path := "products/" + strconv.FormatInt(productID, 10) + "/variations"
	variations, err := listAll[Variation](ctx, c, path, nil)
	if err != nil {
		return nil, fmt.Errorf("list variations of %d: %w", productID, err)
	}
	return variations, nil
}

// CreateVariation adds a variation and returns its ID.
func (c *Client) CreateVariation(ctx context.Context, productID int64, variation Variation) (int64, error) {
	var created Variation
	path := "products/" + strconv.FormatInt(productID, 10) + "/variations"
	if err := c.wc(ctx, http.MethodPost, path, nil, variation, &created); err != nil {
		return 0, fmt.Errorf("create variation of %d: %w", productID, err)
	}
	return created.ID, nil
}
