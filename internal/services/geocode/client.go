// Package geocode resolves free-text locations to coordinates through the
// OpenCage geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the OpenCage forward geocoding endpoint.
const DefaultBaseURL = "https://api.opencagedata.com/geocode/v1/json"

// ErrNotFound reports that no result matched the configured country.
var ErrNotFound = errors.New("location not found")

// Coordinates is a resolved point.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Resolver resolves a location to coordinates.
type Resolver interface {
	Resolve(ctx context.Context, location string) (Coordinates, error)
}

type response struct {
	Results []struct {
		Components struct {
			CountryCode string `json:"country_code"`
		} `json:"components"`
		Geometry *struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
	} `json:"results"`
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

// Client queries OpenCage.
type Client struct {
	apiKey      string
	baseURL     string
	countryCode string
	language    string
	limit       int
	httpClient  *http.Client
}

var _ Resolver = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithCountry restricts results to an ISO country code.
func WithCountry(code string) Option {
	return func(c *Client) {
		c.countryCode = strings.ToLower(strings.TrimSpace(code))
	}
}

// WithLanguage sets the response language.
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = strings.TrimSpace(language)
	}
}

// WithLimit bounds the number of candidates requested.
func WithLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// New creates a geocoding client.
func New(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("opencage api key required")
	}
	client := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		countryCode: "pt",
		language:    "en",
		limit:       5,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Resolve returns the first candidate located in the configured country.
// ErrNotFound is returned when no candidate qualifies.
func (c *Client) Resolve(ctx context.Context, location string) (Coordinates, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Coordinates{}, ErrNotFound
	}
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return Coordinates{}, fmt.Errorf("parse geocode url: %w", err)
	}
	params := url.Values{}
	params.Set("q", location)
	params.Set("key", c.apiKey)
	params.Set("language", c.language)
	params.Set("limit", strconv.Itoa(c.limit))
	if c.countryCode != "" {
		params.Set("countrycode", c.countryCode)
	}
	params.Set("no_annotations", "1")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Coordinates{}, fmt.Errorf("build request: %w", err)
	}
	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return Coordinates{}, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("geocode returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Coordinates{}, fmt.Errorf("decode geocode response: %w", err)
	}
	for _, result := range payload.Results {
		if c.countryCode != "" && !strings.EqualFold(result.Components.CountryCode, c.countryCode) {
			continue
		}
		if result.Geometry == nil {
			continue
		}
		return Coordinates{Lat: result.Geometry.Lat, Lng: result.Geometry.Lng}, nil
	}
	return Coordinates{}, ErrNotFound
}
