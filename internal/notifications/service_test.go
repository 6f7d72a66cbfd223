package notifications

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fieldframe/internal/config"
)

func TestNewServiceWithoutTopicIsNoop(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := NewService(&cfg)
	if _, ok := svc.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", svc)
	}
	if err := svc.NotifyPublishCompleted(context.Background(), "x", 1); err != nil {
		t.Fatalf("noop should never fail: %v", err)
	}
}

func TestPublishNotificationPostsToTopic(t *testing.T) {
	var gotTitle, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := NewService(&cfg)

	if err := svc.NotifyPublishCompleted(context.Background(), "Coffee Mug", 26); err != nil {
		t.Fatalf("NotifyPublishCompleted: %v", err)
	}
	if gotTitle != "FieldFrame - Published" {
		t.Fatalf("title = %q", gotTitle)
	}
	if !strings.Contains(gotBody, "26 files") || !strings.Contains(gotBody, "Coffee Mug") {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestDisabledEventKindIsSilent(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Errors = false
	svc := NewService(&cfg)

	if err := svc.NotifyError(context.Background(), io.EOF, "publishing"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if calls != 0 {
		t.Fatalf("disabled event still posted %d times", calls)
	}
}
