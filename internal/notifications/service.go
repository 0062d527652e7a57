package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cinetag/internal/config"
)

const userAgent = "Cinetag-Go/0.1.0"

// Service defines the notification surface exposed to the engine and daemon.
type Service interface {
	NotifyReconcileCompleted(ctx context.Context, runID string, mutations, grants, failures int) error
	NotifyReconcileFailed(ctx context.Context, runID string, err error) error
	NotifyForeignContent(ctx context.Context, paths []string) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
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
}

func (n *ntfyService) NotifyReconcileCompleted(ctx context.Context, runID string, mutations, grants, failures int) error {
	var message string
	var title string
	if failures == 0 {
		title = "Cinetag - Reconciled"
		message = fmt.Sprintf("Reconciliation complete: %d link changes, %d grant changes (run %s)", mutations, grants, runID)
	} else {
		title = "Cinetag - Reconciled (with errors)"
		message = fmt.Sprintf("Reconciliation complete: %d link changes, %d grant changes, %d failures (run %s)", mutations, grants, failures, runID)
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"cinetag", "reconcile", "completed"},
	}
	if failures > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReconcileFailed(ctx context.Context, runID string, err error) error {
	message := fmt.Sprintf("Reconciliation failed (run %s)", runID)
	if err != nil {
		message = fmt.Sprintf("%s: %s", message, strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Cinetag - Reconcile Failed",
		message:  message,
		tags:     []string{"cinetag", "reconcile", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyForeignContent(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	shown := paths
	if len(shown) > 5 {
		shown = shown[:5]
	}
	message := fmt.Sprintf("Unmanaged content found in the tag tree:\n%s", strings.Join(shown, "\n"))
	if len(paths) > len(shown) {
		message = fmt.Sprintf("%s\n(and %d more)", message, len(paths)-len(shown))
	}
	data := payload{
		title:    "Cinetag - Unmanaged Content",
		message:  message,
		tags:     []string{"cinetag", "foreign", "review"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
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
		title:    "Cinetag - Error",
		message:  builder.String(),
		tags:     []string{"cinetag", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Cinetag - Test",
		message:  "Notification system test",
		tags:     []string{"cinetag", "test"},
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

func (noopService) NotifyReconcileCompleted(context.Context, string, int, int, int) error { return nil }
func (noopService) NotifyReconcileFailed(context.Context, string, error) error            { return nil }
func (noopService) NotifyForeignContent(context.Context, []string) error                  { return nil }
func (noopService) NotifyError(context.Context, error, string) error                      { return nil }
func (noopService) TestNotification(context.Context) error                                { return nil }
