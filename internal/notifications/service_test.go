package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"racefeed/internal/config"
	"racefeed/internal/notifications"
)

type captured struct {
	title    string
	message  string
	tags     string
	priority string
}

func newRecorder(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte("nope"))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func configFor(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(configFor(""))
	if err := svc.NotifyBatchFailed(context.Background(), errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "clean pass",
			send: func(s notifications.Service) error {
				return s.NotifyPassCompleted(context.Background(), notifications.PassStats{Groups: 3, Published: 3, Duration: 95 * time.Second})
			},
			expectTitle:   "racefeed - Pass Complete",
			expectMessage: "Published 3 of 3 races in 1m35s",
			expectTags:    "racefeed,pass,completed",
		},
		{
			name: "pass with problems",
			send: func(s notifications.Service) error {
				return s.NotifyPassCompleted(context.Background(), notifications.PassStats{
					Groups: 4, Published: 2, Degraded: 1, Failed: 1, ValidationFailed: 1, Duration: 2 * time.Second,
				})
			},
			expectTitle:   "racefeed - Pass Complete (with errors)",
			expectMessage: "Published 2 of 4 races in 2s\n1 published with warnings\n1 failed, 1 need fixes in the sheet",
			expectTags:    "racefeed,pass,completed",
		},
		{
			name: "group failed",
			send: func(s notifications.Service) error {
				return s.NotifyGroupFailed(context.Background(), 7, "Lisbon Run", errors.New("catalog: create product: 500"))
			},
			expectTitle:   "racefeed - Race Not Published",
			expectMessage: "Row 7 (Lisbon Run): catalog: create product: 500",
			expectTags:    "racefeed,group,failed",
		},
		{
			name: "batch failed",
			send: func(s notifications.Service) error {
				return s.NotifyBatchFailed(context.Background(), errors.New("sheet unavailable"))
			},
			expectTitle:    "racefeed - Pass Failed",
			expectMessage:  "Rows could not be loaded: sheet unavailable",
			expectTags:     "racefeed,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "racefeed - Test",
			expectMessage:  "Notification system test",
			expectTags:     "racefeed,test",
			expectPriority: "low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := newRecorder(t, http.StatusOK)
			svc := notifications.NewService(configFor(srv.URL))
			if err := tt.send(svc); err != nil {
				t.Fatalf("send: %v", err)
			}
			if len(*got) != 1 {
				t.Fatalf("expected one request, got %d", len(*got))
			}
			req := (*got)[0]
			if req.title != tt.expectTitle {
				t.Fatalf("title = %q, want %q", req.title, tt.expectTitle)
			}
			if req.message != tt.expectMessage {
				t.Fatalf("message = %q, want %q", req.message, tt.expectMessage)
			}
			if req.tags != tt.expectTags {
				t.Fatalf("tags = %q, want %q", req.tags, tt.expectTags)
			}
			if req.priority != tt.expectPriority {
				t.Fatalf("priority = %q, want %q", req.priority, tt.expectPriority)
			}
		})
	}
}

func TestNtfyServiceHonoursToggles(t *testing.T) {
	srv, got := newRecorder(t, http.StatusOK)
	cfg := configFor(srv.URL)
	cfg.Notifications.PassSummary = false
	cfg.Notifications.GroupFailures = false
	cfg.Notifications.BatchFailures = false
	svc := notifications.NewService(cfg)
	ctx := context.Background()

	_ = svc.NotifyPassCompleted(ctx, notifications.PassStats{Groups: 1, Published: 1})
	_ = svc.NotifyGroupFailed(ctx, 2, "x", errors.New("y"))
	_ = svc.NotifyBatchFailed(ctx, errors.New("z"))
	if len(*got) != 0 {
		t.Fatalf("disabled notifications were sent: %+v", *got)
	}

	cfg.Notifications.PassSummary = true
	svc = notifications.NewService(cfg)
	_ = svc.NotifyPassCompleted(ctx, notifications.PassStats{})
	if len(*got) != 0 {
		t.Fatal("empty passes should not notify")
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newRecorder(t, http.StatusForbidden)
	svc := notifications.NewService(configFor(srv.URL))
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
