// Package woocommerce is a client for the WooCommerce REST API (wc/v3) and
// the WordPress endpoints the catalog relies on: JWT authentication, ACF
// custom fields, the media library and the translation link hook.
//
// Catalog names (categories, attributes, terms) are matched case-insensitively
// using Unicode case folding. Requests are rate limited and retried with
// exponential backoff when the connection fails; HTTP errors are returned as
// *APIError without retrying.
package woocommerce
