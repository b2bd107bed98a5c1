package woocommerce

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"racefeed/internal/retry"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
	auth   string
}

type fakeSite struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recorded
	routes   map[string]http.HandlerFunc
}

func newFakeSite(t *testing.T) (*fakeSite, *Client) {
	t.Helper()
	site := &fakeSite{t: t, routes: map[string]http.HandlerFunc{}}
	server := httptest.NewServer(site)
	t.Cleanup(server.Close)
	client, err := New(Config{
		BaseURL:        server.URL + "/",
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		AdminUser:      "admin",
		AdminPass:      "pw",
	}, WithSleeper(retry.NoSleep))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return site, client
}

func (s *fakeSite) handle(method, path string, fn http.HandlerFunc) {
	s.routes[method+" "+path] = fn
}

func (s *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")}
	data, _ := io.ReadAll(r.Body)
	if len(data) > 0 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(data, &rec.body)
	}
	s.mu.Lock()
	s.requests = append(s.requests, rec)
	fn := s.routes[r.Method+" "+r.URL.Path]
	s.mu.Unlock()
	if fn == nil {
		s.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
		return
	}
	r.Body = io.NopCloser(strings.NewReader(string(data)))
	fn(w, r)
}

func (s *fakeSite) calls(method, path string) []recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recorded
	for _, rec := range s.requests {
		if rec.method == method && rec.path == path {
			out = append(out, rec)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestEnsureCategoryMatchesParentCaseInsensitively(t *testing.T) {
	site, client := newFakeSite(t)
	site.handle("GET", "/wp-json/wc/v3/products/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") != "trail" {
			t.Errorf("unexpected search %q", r.URL.Query().Get("search"))
		}
		writeJSON(w, 200, []Category{
			{ID: 5, Name: "Trail", Parent: 9},
			{ID: 6, Name: "TRAIL", Parent: 0},
		})
	})
	id, err := client.EnsureCategory(context.Background(), "trail", 0)
	if err != nil {
		t.Fatalf("EnsureCategory: %v", err)
	}
	if id != 6 {
		t.Fatalf("expected top-level match 6, got %d", id)
	}
	calls := site.calls("GET", "/wp-json/wc/v3/products/categories")
	if len(calls) != 1 || !strings.HasPrefix(calls[0].auth, "Basic ") {
		t.Fatalf("expected basic auth request, got %+v", calls)
	}
}

func TestEnsureCategoryCreatesChild(t *testing.T) {
	site, client := newFakeSite(t)
	site.handle("GET", "/wp-json/wc/v3/products/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []Category{{ID: 5, Name: "Road Running", Parent: 1}})
	})
	site.handle("POST", "/wp-json/wc/v3/products/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 201, Category{ID: 12, Name: "Road Running", Parent: 7})
	})
	id, err := client.EnsureCategory(context.Background(), "Road Running", 7)
	if err != nil {
		t.Fatalf("EnsureCategory: %v", err)
	}
	if id != 12 {
		t.Fatalf("expected created id 12, got %d", id)
	}
	body := site.calls("POST", "/wp-json/wc/v3/products/categories")[0].body
	if body["slug"] != "road-running" || body["parent"] != float64(7) {
		t.Fatalf("unexpected create payload %v", body)
	}
}

func TestEnsureTermReusesExistingOnConflict(t *testing.T) {
	site, client := newFakeSite(t)
	site.handle("GET", "/wp-json/wc/v3/products/attributes/3/terms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []Term{})
	})
	site.handle("POST", "/wp-json/wc/v3/products/attributes/3/terms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, map[string]any{
			"code":    "term_exists",
			"message": "A term with the name provided already exists.",
			"data":    map[string]any{"status": 400, "resource_id": 44},
		})
	})
	id, err := client.EnsureTerm(context.Background(), 3, "10km")
	if err != nil {
		t.Fatalf("EnsureTerm: %v", err)
	}
	if id != 44 {
		t.Fatalf("expected existing term 44, got %d", id)
	}
}

func TestEnsureAttributeCreatesSelect(t *testing.T) {
	site, client := newFakeSite(t)
	site.handle("GET", "/wp-json/wc/v3/products/attributes", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("per_page") != "100" {
			t.Errorf("expected per_page=100")
		}
		writeJSON(w, 200, []Attribute{{ID: 1, Name: "Team"}})
	})
	site.handle("POST", "/wp-json/wc/v3/products/attributes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 201, Attribute{ID: 2, Name: "Distance"})
	})
	if id, err := client.EnsureAttribute(context.Background(), "team"); err != nil || id != 1 {
		t.Fatalf("expected existing attribute 1, got %d %v", id, err)
	}
	if id, err := client.EnsureAttribute(context.Background(), "Distance"); err != nil || id != 2 {
		t.Fatalf("expected created attribute 2, got %d %v", id, err)
	}
	body := site.calls("POST", "/wp-json/wc/v3/products/attributes")[0].body
	if body["type"] != "select" {
		t.Fatalf("unexpected attribute payload %v", body)
	}
}

func TestUpdateACFRefreshesTokenOn401(t *testing.T) {
	site, client := newFakeSite(t)
	var tokens int32
	site.handle("POST", "/wp-json/jwt-auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&tokens, 1)
		writeJSON(w, 200, map[string]string{"token": "tok" + string(rune('0'+n))})
	})
	site.handle("POST", "/wp-json/acf/v3/product/9", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok2" {
			writeJSON(w, 401, map[string]string{"code": "jwt_auth_invalid_token"})
			return
		}
		writeJSON(w, 200, map[string]any{"acf": map[string]any{}})
	})
	err := client.UpdateACF(context.Background(), 9, map[string]any{"event_country": "portugal"})
	if err != nil {
		t.Fatalf("UpdateACF: %v", err)
	}
	if atomic.LoadInt32(&tokens) != 2 {
		t.Fatalf("expected token refresh, got %d token calls", tokens)
	}
	calls := site.calls("POST", "/wp-json/acf/v3/product/9")
	fields, _ := calls[1].body["fields"].(map[string]any)
	if fields["event_country"] != "portugal" {
		t.Fatalf("unexpected acf payload %v", calls[1].body)
	}
}

func TestUploadMediaSendsRawBody(t *testing.T) {
	site, client := newFakeSite(t)
	site.handle("POST", "/wp-json/jwt-auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]string{"token": "tok"})
	})
	site.handle("POST", "/wp-json/wp/v2/media", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Content-Disposition"); got != `attachment; filename="race.png"` {
			t.Errorf("unexpected disposition %q", got)
		}
		data, _ := io.ReadAll(r.Body)
		if string(data) != "PNGDATA" {
			t.Errorf("unexpected body %q", data)
		}
		writeJSON(w, 201, Media{ID: 77, SourceURL: "https://site/wp-content/uploads/race.png"})
	})
	media, err := client.UploadMedia(context.Background(), "race.png", "image/png", []byte("PNGDATA"))
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if media.ID != 77 || media.SourceURL == "" {
		t.Fatalf("unexpected media %+v", media)
	}
}

func TestVariationsRoundTrip(t *testing.T) {
	site, client := newFakeSite(t)
	site.handle("GET", "/wp-json/wc/v3/products/4/variations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, []Variation{{ID: 1, RegularPrice: "10", Attributes: []VariationAttribute{{ID: 2, Name: "Distance", Option: "5km"}}}})
	})
	site.handle("POST", "/wp-json/wc/v3/products/4/variations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 201, Variation{ID: 8})
	})
	existing, err := client.ListVariations(context.Background(), 4)
	if err != nil || len(existing) != 1 || existing[0].Attributes[0].Name != "Distance" {
		t.Fatalf("unexpected variations %+v %v", existing, err)
	}
	id, err := client.CreateVariation(context.Background(), 4, Variation{RegularPrice: "20", Attributes: []VariationAttribute{{ID: 2, Option: "10km"}}})
	if err != nil || id != 8 {
		t.Fatalf("CreateVariation = %d, %v", id, err)
	}
	body := site.calls("POST", "/wp-json/wc/v3/products/4/variations")[0].body
	if body["regular_price"] != "20" {
		t.Fatalf("unexpected payload %v", body)
	}
}

func TestListVariationsFollowsTotalPages(t *testing.T) {
	site, client := newFakeSite(t)
	site.handle("GET", "/wp-json/wc/v3/products/4/variations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WP-TotalPages", "2")
		page := r.URL.Query().Get("page")
		batch := make([]Variation, 0, listPageSize)
		switch page {
		case "1":
			for i := 1; i <= listPageSize; i++ {
				batch = append(batch, Variation{ID: int64(i)})
			}
		case "2":
			batch = append(batch, Variation{ID: 101, Attributes: []VariationAttribute{{ID: 2, Option: "42km"}}})
		default:
			t.Errorf("unexpected page %q", page)
		}
		writeJSON(w, 200, batch)
	})
	variations, err := client.ListVariations(context.Background(), 4)
	if err != nil {
		t.Fatalf("ListVariations: %v", err)
	}
	if len(variations) != listPageSize+1 || variations[listPageSize].ID != 101 {
		t.Fatalf("expected %d variations ending with 101, got %d", listPageSize+1, len(variations))
	}
	if n := len(site.calls("GET", "/wp-json/wc/v3/products/4/variations")); n != 2 {
		t.Fatalf("expected two page requests, got %d", n)
	}
}

func TestHTTPErrorsAreNotRetried(t *testing.T) {
	site, client := newFakeSite(t)
	site.handle("GET", "/wp-json/wc/v3/products/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, map[string]string{"code": "woocommerce_rest_product_invalid_id", "message": "Invalid ID."})
	})
	_, err := client.GetProduct(context.Background(), 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 404 || apiErr.Code != "woocommerce_rest_product_invalid_id" {
		t.Fatalf("expected 404 api error, got %v", err)
	}
	if n := len(site.calls("GET", "/wp-json/wc/v3/products/1")); n != 1 {
		t.Fatalf("expected one call, got %d", n)
	}
}

func TestTransientStatusesAreRetried(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway} {
		site, client := newFakeSite(t)
		var hits int32
		site.handle("GET", "/wp-json/wc/v3/products/7", func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&hits, 1) == 1 {
				writeJSON(w, status, map[string]string{"code": "unavailable", "message": "try later"})
				return
			}
			writeJSON(w, 200, Product{ID: 7, Name: "Lisbon Run"})
		})
		product, err := client.GetProduct(context.Background(), 7)
		if err != nil {
			t.Fatalf("status %d: GetProduct: %v", status, err)
		}
		if product.ID != 7 {
			t.Fatalf("status %d: unexpected product %+v", status, product)
		}
		if n := len(site.calls("GET", "/wp-json/wc/v3/products/7")); n != 2 {
			t.Fatalf("status %d: expected two calls, got %d", status, n)
		}
	}
}

func TestTransientStatusesExhaustAttempts(t *testing.T) {
	site, client := newFakeSite(t)
	site.handle("GET", "/wp-json/wc/v3/products/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"code": "unavailable"})
	})
	_, err := client.GetProduct(context.Background(), 7)
	if !IsStatus(err, http.StatusServiceUnavailable) {
		t.Fatalf("expected 503 api error, got %v", err)
	}
	if n := len(site.calls("GET", "/wp-json/wc/v3/products/7")); n != defaultMaxAttempts {
		t.Fatalf("expected %d calls, got %d", defaultMaxAttempts, n)
	}
}

func TestConnectionErrorsAreRetried(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()

	var delays []time.Duration
	client, err := New(Config{BaseURL: "http://" + addr, ConsumerKey: "k", ConsumerSecret: "s", MaxAttempts: 3},
		WithSleeper(func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.GetProduct(context.Background(), 1); err == nil {
		t.Fatal("expected connection error")
	}
	if len(delays) != 2 || delays[0] != 1500*time.Millisecond || delays[1] != 3*time.Second {
		t.Fatalf("unexpected backoff %v", delays)
	}
}

func TestLinkTranslationPayload(t *testing.T) {
	site, client := newFakeSite(t)
	site.handle("POST", "/wp-json/custom-api/v1/set-translation/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]bool{"success": true})
	})
	if err := client.LinkTranslation(context.Background(), 10, 11, "pt"); err != nil {
		t.Fatalf("LinkTranslation: %v", err)
	}
	body := site.calls("POST", "/wp-json/custom-api/v1/set-translation/")[0].body
	if body["original_id"] != float64(10) || body["translated_id"] != float64(11) || body["lang_code"] != "pt" {
		t.Fatalf("unexpected payload %v", body)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := New(Config{BaseURL: "https://x"}); err == nil {
		t.Fatal("expected error for missing keys")
	}
}
