package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"racefeed/internal/retry"
)

// rewriteTransport sends every request to target while keeping the path and
// query, so external hosts can be simulated.
type rewriteTransport struct {
	target *url.URL
	seen   []string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.seen = append(t.seen, req.URL.String())
	clone := req.Clone(req.Context())
	clone.URL.Scheme = t.target.Scheme
	clone.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(clone)
}

func newRewritingClient(t *testing.T, handler http.Handler) (*Client, *rewriteTransport) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	target, _ := url.Parse(server.URL)
	transport := &rewriteTransport{target: target}
	client := New(Options{
		HTTPClient:  &http.Client{Transport: transport},
		RetryDelays: []time.Duration{time.Second, 2 * time.Second},
		Sleep:       retry.NoSleep,
	})
	return client, transport
}

func TestFetchHTMLExtractsVisibleText(t *testing.T) {
	client, _ := newRewritingClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != DefaultUserAgent {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<html><head><style>body{}</style><script>var x=1;</script></head>
<body><h1>Lisbon  Half</h1><p>Start at
 9:00</p><noscript>enable js</noscript></body></html>`)
	}))
	result, err := client.Fetch(context.Background(), "https://race.example.com/")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Text != "Lisbon Half Start at 9:00" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.Document != nil {
		t.Fatal("html page must not produce a document")
	}
}

func TestFetchPDFLinkReturnsDocument(t *testing.T) {
	client, _ := newRewritingClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.WriteString(w, "%PDF-1.7 rules")
	}))
	result, err := client.Fetch(context.Background(), "https://race.example.com/files/Regulamento.PDF")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Document == nil || string(result.Document.Data) != "%PDF-1.7 rules" {
		t.Fatalf("expected document, got %+v", result)
	}
	if result.Document.Name != "Regulamento.PDF" || result.Document.ContentType != "application/pdf" {
		t.Fatalf("unexpected document metadata %+v", result.Document)
	}
}

func TestFetchPDFContentTypeReturnsDocument(t *testing.T) {
	client, _ := newRewritingClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF")
	}))
	result, err := client.Fetch(context.Background(), "https://race.example.com/download?doc=7")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Document == nil {
		t.Fatal("expected document for application/pdf response")
	}
}

func TestFetchDriveLinkIsConverted(t *testing.T) {
	client, transport := newRewritingClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "abc_123" || r.URL.Query().Get("export") != "download" {
			t.Errorf("unexpected drive request %s", r.URL)
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF")
	}))
	result, err := client.Fetch(context.Background(), "https://drive.google.com/file/d/abc_123/view?usp=sharing")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Document == nil || result.Document.Name != "abc_123.pdf" {
		t.Fatalf("expected drive document, got %+v", result)
	}
	if len(transport.seen) != 1 || !strings.HasPrefix(transport.seen[0], "https://drive.google.com/uc?export=download&id=abc_123") {
		t.Fatalf("unexpected requests %v", transport.seen)
	}
}

func TestFetchDriveHTMLIsEmptyWithWarning(t *testing.T) {
	client, _ := newRewritingClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html>Sign in</html>")
	}))
	result, err := client.Fetch(context.Background(), "https://drive.google.com/file/d/xyz/view")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !result.Empty() || result.Warning == "" {
		t.Fatalf("expected empty result with warning, got %+v", result)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	client, _ := newRewritingClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "<p>ok</p>")
	}))
	result, err := client.Fetch(context.Background(), "https://race.example.com/")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Text != "ok" || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("unexpected result %q after %d calls", result.Text, calls)
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	client, _ := newRewritingClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	if _, err := client.Fetch(context.Background(), "https://race.example.com/missing"); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestFetchEmptyURL(t *testing.T) {
	result, err := New(Options{}).Fetch(context.Background(), " ")
	if err != nil || !result.Empty() {
		t.Fatalf("expected empty result, got %+v %v", result, err)
	}
}

func TestDirectDownloadURL(t *testing.T) {
	tests := map[string]string{
		"https://drive.google.com/file/d/FILE-1/view": "https://drive.google.com/uc?export=download&id=FILE-1",
		"https://example.com/a.pdf":                   "https://example.com/a.pdf",
	}
	for in, want := range tests {
		if got := DirectDownloadURL(in); got != want {
			t.Fatalf("DirectDownloadURL(%q) = %q, want %q", in, got, want)
		}
	}
}
