package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"racefeed/internal/logging"
	"racefeed/internal/retry"
)

const (
	// DefaultUserAgent identifies the fetcher to remote sites.
	DefaultUserAgent       = "Mozilla/5.0 (compatible; racefeed/1.0)"
	defaultTimeout         = 30 * time.Second
	defaultMaxDocumentSize = 32 << 20
)

var driveFilePattern = regexp.MustCompile(`https://drive\.google\.com/file/d/([a-zA-Z0-9_-]+)/`)

// Document is a downloaded binary file.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result is the outcome of fetching one link. At most one of Text and
// Document is set; both are empty when the link yielded nothing usable.
type Result struct {
	URL      string
	Text     string
	Document *Document
	// Warning explains an empty result that was not an error.
	Warning string
}

// Empty reports whether the result carries no material.
func (r Result) Empty() bool {
	return strings.TrimSpace(r.Text) == "" && r.Document == nil
}

// Fetcher retrieves link material.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Result, error)
}

// Options configures a Client.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// RetryDelays lists the waits between attempts; its length plus one is
	// the attempt budget.
	RetryDelays      []time.Duration
	MaxDocumentBytes int64
	HTTPClient       *http.Client
	Logger           *slog.Logger
	Sleep            func(ctx context.Context, d time.Duration) error
}

// Client is the default Fetcher.
type Client struct {
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Fetcher = (*Client)(nil)

// New builds a client.
func New(opts Options) *Client {
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = defaultMaxDocumentSize
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		opts:       opts,
		httpClient: httpClient,
		logger:     logging.NewComponentLogger(opts.Logger, "fetch"),
	}
}

// DirectDownloadURL converts a Google Drive file view link into its direct
// download form. Other URLs are returned unchanged.
func DirectDownloadURL(rawURL string) string {
	match := driveFilePattern.FindStringSubmatch(rawURL)
	if match == nil {
		return rawURL
	}
	return "https://drive.google.com/uc?export=download&id=" + match[1]
}

func isDriveDownload(rawURL string) bool {
	return strings.Contains(rawURL, "drive.google.com/uc?export=download")
}

func looksLikeDocument(rawURL string) bool {
	if isDriveDownload(rawURL) {
		return true
	}
	trimmed := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil {
		trimmed = strings.ToLower(u.Path)
	}
	return strings.HasSuffix(trimmed, ".pdf")
}

// Fetch downloads rawURL and classifies the response.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Result, error) {
	rawURL = strings.TrimSpace(rawURL)
	result := Result{URL: rawURL}
	if rawURL == "" {
		return result, nil
	}
	direct := DirectDownloadURL(rawURL)
	if direct != rawURL {
		c.logger.Debug("converted drive link", logging.String("url", rawURL), logging.String("direct_url", direct))
	}
	wantDocument := looksLikeDocument(direct)

	var (
		body        []byte
		contentType string
	)
	err := retry.Do(ctx, c.policy(), func(ctx context.Context, _ int) error {
		data, ctype, err := c.get(ctx, direct)
		if err != nil {
			return err
		}
		body, contentType = data, ctype
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	mediaType = strings.ToLower(mediaType)
	if wantDocument && mediaType == "text/html" && strings.Contains(direct, "drive.google.com") {
		result.Warning = "drive file is not publicly downloadable"
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "drive link returned html", "fetch_drive_html",
			logging.String("url", rawURL),
			logging.String(logging.FieldErrorHint, "share the file publicly"),
			logging.String(logging.FieldImpact, "regulations are ignored for this race"),
		)
		return result, nil
	}
	if wantDocument || mediaType == "application/pdf" {
		if mediaType == "" || mediaType == "application/octet-stream" || mediaType == "text/html" {
			mediaType = "application/pdf"
		}
		result.Document = &Document{
			Name:        documentName(direct),
			ContentType: mediaType,
			Data:        body,
		}
		return result, nil
	}
	text, err := ExtractText(bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	result.Text = text
	return result, nil
}

func (c *Client) policy() retry.Policy {
	delays := c.opts.RetryDelays
	return retry.Policy{
		Attempts: len(delays) + 1,
		Sleep:    c.opts.Sleep,
		Delay: func(attempt int, _ error) (time.Duration, bool) {
			if attempt-1 < len(delays) {
				return delays[attempt-1], true
			}
			return 0, false
		},
		OnRetry: func(attempt int, delay time.Duration, err error) {
			c.logger.Debug("fetch retry",
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.Error(err),
			)
		},
	}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d", e.code)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", retry.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", retry.Permanent(err)
		}
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := &statusError{code: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, "", statusErr
		}
		return nil, "", retry.Permanent(statusErr)
	}
	limited := io.LimitReader(resp.Body, c.opts.MaxDocumentBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > c.opts.MaxDocumentBytes {
		return nil, "", retry.Permanent(fmt.Errorf("response exceeds %d bytes", c.opts.MaxDocumentBytes))
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func documentName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "document.pdf"
	}
	if id := u.Query().Get("id"); id != "" {
		return id + ".pdf"
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "document.pdf"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
