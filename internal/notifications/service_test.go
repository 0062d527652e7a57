package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cinetag/internal/config"
	"cinetag/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := &config.Config{}
	svc := notifications.NewService(cfg)
	if err := svc.NotifyReconcileCompleted(context.Background(), "run-1", 3, 1, 0); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "reconcile completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyReconcileCompleted(context.Background(), "run-1", 3, 2, 0)
			},
			expectTitle:   "Cinetag - Reconciled",
			expectMessage: "Reconciliation complete: 3 link changes, 2 grant changes (run run-1)",
			expectTags:    "cinetag,reconcile,completed",
		},
		{
			name: "reconcile completed with failures",
			notify: func(svc notifications.Service) error {
				return svc.NotifyReconcileCompleted(context.Background(), "run-2", 3, 0, 1)
			},
			expectTitle:    "Cinetag - Reconciled (with errors)",
			expectMessage:  "Reconciliation complete: 3 link changes, 0 grant changes, 1 failures (run run-2)",
			expectTags:     "cinetag,reconcile,completed",
			expectPriority: "high",
		},
		{
			name: "reconcile failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyReconcileFailed(context.Background(), "run-3", errors.New("movie root unreadable"))
			},
			expectTitle:    "Cinetag - Reconcile Failed",
			expectMessage:  "Reconciliation failed (run run-3): movie root unreadable",
			expectTags:     "cinetag,reconcile,failed",
			expectPriority: "high",
		},
		{
			name: "foreign content",
			notify: func(svc notifications.Service) error {
				return svc.NotifyForeignContent(context.Background(), []string{"/tags/action/notes.txt"})
			},
			expectTitle:    "Cinetag - Unmanaged Content",
			expectMessage:  "Unmanaged content found in the tag tree:\n/tags/action/notes.txt",
			expectTags:     "cinetag,foreign,review",
			expectPriority: "high",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("socket closed"), "daemon")
			},
			expectTitle:    "Cinetag - Error",
			expectMessage:  "Error with daemon: socket closed",
			expectTags:     "cinetag,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := &config.Config{}
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceSkipsEmptyForeignReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(cfg)
	if err := svc.NotifyForeignContent(context.Background(), nil); err != nil {
		t.Fatalf("expected nil for empty report, got %v", err)
	}
}
