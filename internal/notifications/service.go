package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fieldframe/internal/config"
)

const userAgent = "FieldFrame-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyCaptureCompleted(ctx context.Context, title string, durationSeconds int) error
	NotifyExtractionCompleted(ctx context.Context, title string, frames int) error
	NotifyPublishCompleted(ctx context.Context, title string, files int) error
	NotifyExportCompleted(ctx context.Context, title, path string) error
	NotifyError(ctx context.Context, err error, context string) error
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
		captureEvents: cfg.Notifications.Capture,
		publishEvents: cfg.Notifications.Publish,
		errorEvents:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	captureEvents bool
	publishEvents bool
	errorEvents   bool
}

func (n *ntfyService) NotifyCaptureCompleted(ctx context.Context, title string, durationSeconds int) error {
	if !n.captureEvents {
		return nil
	}
	data := payload{
		title:   "FieldFrame - Capture Complete",
		message: fmt.Sprintf("Captured %s (%ds), queued for extraction", strings.TrimSpace(title), durationSeconds),
		tags:    []string{"fieldframe", "capture", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyExtractionCompleted(ctx context.Context, title string, frames int) error {
	if !n.captureEvents {
		return nil
	}
	data := payload{
		title:   "FieldFrame - Frames Extracted",
		message: fmt.Sprintf("Extracted %d frames from %s", frames, strings.TrimSpace(title)),
		tags:    []string{"fieldframe", "extract", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPublishCompleted(ctx context.Context, title string, files int) error {
	if !n.publishEvents {
		return nil
	}
	data := payload{
		title:    "FieldFrame - Published",
		message:  fmt.Sprintf("Uploaded %d files for %s", files, strings.TrimSpace(title)),
		tags:     []string{"fieldframe", "publish", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyExportCompleted(ctx context.Context, title, path string) error {
	if !n.publishEvents {
		return nil
	}
	message := fmt.Sprintf("Exported %s", strings.TrimSpace(title))
	if path = strings.TrimSpace(path); path != "" {
		message = fmt.Sprintf("%s\nPath: %s", message, path)
	}
	data := payload{
		title:   "FieldFrame - Exported",
		message: message,
		tags:    []string{"fieldframe", "export", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errorEvents {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "FieldFrame - Error",
		message:  builder.String(),
		tags:     []string{"fieldframe", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "FieldFrame - Test",
		message:  "Notification system test",
		tags:     []string{"fieldframe", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

func (noopService) NotifyCaptureCompleted(context.Context, string, int) error    { return nil }
func (noopService) NotifyExtractionCompleted(context.Context, string, int) error { return nil }
func (noopService) NotifyPublishCompleted(context.Context, string, int) error    { return nil }
func (noopService) NotifyExportCompleted(context.Context, string, string) error  { return nil }
func (noopService) NotifyError(context.Context, error, string) error             { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
