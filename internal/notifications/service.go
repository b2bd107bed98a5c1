package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"racefeed/internal/config"
)

const userAgent = "racefeed/0.1.0"

// PassStats summarizes a finished pass for a notification.
type PassStats struct {
	Groups           int
	Published        int
	Degraded         int
	Failed           int
	ValidationFailed int
	Duration         time.Duration
}

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyPassCompleted(ctx context.Context, stats PassStats) error
	NotifyGroupFailed(ctx context.Context, headRow int, raceName string, err error) error
	NotifyBatchFailed(ctx context.Context, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		passSummary:   cfg.Notifications.PassSummary,
		groupFailures: cfg.Notifications.GroupFailures,
		batchFailures: cfg.Notifications.BatchFailures,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client

	passSummary   bool
	groupFailures bool
	batchFailures bool
}

func (n *ntfyService) NotifyPassCompleted(ctx context.Context, stats PassStats) error {
	if !n.passSummary || stats.Groups == 0 {
		return nil
	}
	duration := stats.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	problems := stats.Failed + stats.ValidationFailed
	title := "racefeed - Pass Complete"
	message := fmt.Sprintf("Published %d of %d races in %s", stats.Published, stats.Groups, duration)
	if stats.Degraded > 0 {
		message += fmt.Sprintf("\n%d published with warnings", stats.Degraded)
	}
	if problems > 0 {
		title = "racefeed - Pass Complete (with errors)"
		message += fmt.Sprintf("\n%d failed, %d need fixes in the sheet", stats.Failed, stats.ValidationFailed)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"racefeed", "pass", "completed"},
	})
}

func (n *ntfyService) NotifyGroupFailed(ctx context.Context, headRow int, raceName string, err error) error {
	if !n.groupFailures {
		return nil
	}
	raceName = strings.TrimSpace(raceName)
	if raceName == "" {
		raceName = "untitled race"
	}
	return n.send(ctx, payload{
		title:   "racefeed - Race Not Published",
		message: fmt.Sprintf("Row %d (%s): %s", headRow, raceName, errorText(err)),
		tags:    []string{"racefeed", "group", "failed"},
	})
}

func (n *ntfyService) NotifyBatchFailed(ctx context.Context, err error) error {
	if !n.batchFailures {
		return nil
	}
	return n.send(ctx, payload{
		title:    "racefeed - Pass Failed",
		message:  "Rows could not be loaded: " + errorText(err),
		tags:     []string{"racefeed", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "racefeed - Test",
		message:  "Notification system test",
		tags:     []string{"racefeed", "test"},
		priority: "low",
	})
}

func errorText(err error) string {
	if err == nil {
		return "unknown"
	}
	return strings.TrimSpace(err.Error())
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyPassCompleted(context.Context, PassStats) error        { return nil }
func (noopService) NotifyGroupFailed(context.Context, int, string, error) error { return nil }
func (noopService) NotifyBatchFailed(context.Context, error) error              { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
