package jellyfin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cinetag/internal/services"
)

// fakeServer models the three Jellyfin endpoints the client uses.
type fakeServer struct {
	mu        sync.Mutex
	libraries []Library
	users     []map[string]any
	policies  map[string]map[string]any
	authFail  bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		libraries: []Library{
			{ID: "lib-action", Name: "action"},
			{ID: "lib-noir", Name: "noir"},
		},
		users: []map[string]any{
			{"Id": "u1", "Name": "clock", "Policy": map[string]any{
				"IsAdministrator": false,
				"EnabledFolders":  []any{"lib-action"},
			}},
			{"Id": "u2", "Name": "admin", "Policy": map[string]any{
				"IsAdministrator": true,
				"EnabledFolders":  []any{},
			}},
		},
		policies: make(map[string]map[string]any),
	}
}

func (s *fakeServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if auth := r.Header.Get("Authorization"); s.authFail || !strings.HasPrefix(auth, `MediaBrowser Token="`) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/Library/MediaFolders":
			json.NewEncoder(w).Encode(map[string]any{"Items": s.libraries})
		case r.Method == http.MethodGet && r.URL.Path == "/Users":
			json.NewEncoder(w).Encode(s.users)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/Policy"):
			userID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/Users/"), "/Policy")
			var policy map[string]any
			if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
				t.Errorf("decode policy: %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			s.policies[userID] = policy
			for _, user := range s.users {
				if user["Id"] == userID {
					user["Policy"] = policy
				}
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestClient(t *testing.T, fake *fakeServer) *Client {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	return NewClientWith(server.URL, "token-123", "clock", server.Client())
}

func TestListLibrariesMapsNamesToIDs(t *testing.T) {
	client := newTestClient(t, newFakeServer())

	libraries, err := client.ListLibraries(context.Background())
	if err != nil {
		t.Fatalf("ListLibraries: %v", err)
	}
	if libraries["action"] != "lib-action" || libraries["noir"] != "lib-noir" {
		t.Fatalf("libraries = %v", libraries)
	}
}

func TestListGrantsReadsAccountPolicy(t *testing.T) {
	client := newTestClient(t, newFakeServer())

	grants, err := client.ListGrants(context.Background())
	if err != nil {
		t.Fatalf("ListGrants: %v", err)
	}
	if len(grants) != 1 || grants[0] != "lib-action" {
		t.Fatalf("grants = %v", grants)
	}
}

func TestListGrantsExpandsEnableAllFolders(t *testing.T) {
	fake := newFakeServer()
	fake.users[0]["Policy"] = map[string]any{
		"EnableAllFolders": true,
		"EnabledFolders":   []any{},
	}
	client := newTestClient(t, fake)

	grants, err := client.ListGrants(context.Background())
	if err != nil {
		t.Fatalf("ListGrants: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("grants = %v, want every library", grants)
	}
}

func TestGrantAppendsFolderAndPreservesPolicy(t *testing.T) {
	fake := newFakeServer()
	client := newTestClient(t, fake)

	if err := client.Grant(context.Background(), "lib-noir"); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	policy := fake.policies["u1"]
	if policy == nil {
		t.Fatal("no policy written for account")
	}
	folders, _ := policy["EnabledFolders"].([]any)
	if len(folders) != 2 {
		t.Fatalf("EnabledFolders = %v", folders)
	}
	if admin, ok := policy["IsAdministrator"].(bool); !ok || admin {
		t.Fatalf("unrelated policy field lost or changed: %v", policy)
	}
	if all, ok := policy["EnableAllFolders"].(bool); !ok || all {
		t.Fatalf("EnableAllFolders must be forced off, got %v", policy["EnableAllFolders"])
	}
}

func TestGrantIsIdempotent(t *testing.T) {
	fake := newFakeServer()
	client := newTestClient(t, fake)

	if err := client.Grant(context.Background(), "lib-action"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if len(fake.policies) != 0 {
		t.Fatalf("already-granted library must not trigger a write: %v", fake.policies)
	}
}

func TestRevokeRemovesFolder(t *testing.T) {
	fake := newFakeServer()
	client := newTestClient(t, fake)

	if err := client.Revoke(context.Background(), "lib-action"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	folders, _ := fake.policies["u1"]["EnabledFolders"].([]any)
	if len(folders) != 0 {
		t.Fatalf("EnabledFolders = %v", folders)
	}
}

func TestRevokeSeedsFoldersFromEnableAllFolders(t *testing.T) {
	fake := newFakeServer()
	fake.users[0]["Policy"] = map[string]any{
		"EnableAllFolders": true,
		"EnabledFolders":   []any{},
	}
	client := newTestClient(t, fake)

	if err := client.Revoke(context.Background(), "lib-noir"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	policy := fake.policies["u1"]
	if policy == nil {
		t.Fatal("no policy written for account")
	}
	if all, _ := policy["EnableAllFolders"].(bool); all {
		t.Fatal("EnableAllFolders must be forced off")
	}
	folders, _ := policy["EnabledFolders"].([]any)
	if len(folders) != 1 || folders[0] != "lib-action" {
		t.Fatalf("EnabledFolders = %v, want the remaining library seeded from the full set", folders)
	}
}

func TestGrantFlipsEnableAllFoldersKeepingLibraries(t *testing.T) {
	fake := newFakeServer()
	fake.users[0]["Policy"] = map[string]any{
		"EnableAllFolders": true,
		"EnabledFolders":   []any{},
	}
	client := newTestClient(t, fake)

	if err := client.Grant(context.Background(), "lib-action"); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	policy := fake.policies["u1"]
	if policy == nil {
		t.Fatal("granting an all-folders account must still write the explicit list")
	}
	if all, _ := policy["EnableAllFolders"].(bool); all {
		t.Fatal("EnableAllFolders must be forced off")
	}
	folders, _ := policy["EnabledFolders"].([]any)
	if len(folders) != 2 {
		t.Fatalf("EnabledFolders = %v, want every previously visible library kept", folders)
	}
}

func TestUnauthorizedIsAuthError(t *testing.T) {
	fake := newFakeServer()
	fake.authFail = true
	client := newTestClient(t, fake)

	_, err := client.ListGrants(context.Background())
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
	if services.Retryable(err) {
		t.Fatal("auth errors must not be retryable")
	}
}

func TestMissingAccountIsNotFound(t *testing.T) {
	fake := newFakeServer()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	client := NewClientWith(server.URL, "token-123", "nobody", server.Client())

	_, err := client.ListGrants(context.Background())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestServerErrorIsRetryableTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)
	client := NewClientWith(server.URL, "token-123", "clock", server.Client())

	_, err := client.Libraries(context.Background())
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if !services.Retryable(err) {
		t.Fatal("5xx must be retryable")
	}
}
