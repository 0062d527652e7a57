package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cinetag/internal/config"
	"cinetag/internal/services"
)

// HTTPDoer describes the HTTP client used by the Jellyfin client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Library is one Jellyfin media folder.
type Library struct {
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	Path           string `json:"Path,omitempty"`
	CollectionType string `json:"CollectionType,omitempty"`
}

// account carries a user's id and raw policy document. The policy is kept
// as-is so writes preserve every field the server knows about and only the
// enabled-folder list changes.
type account struct {
	ID     string         `json:"Id"`
	Name   string         `json:"Name"`
	Policy map[string]any `json:"Policy"`
}

func (a *account) enabledFolders() []string {
	raw, ok := a.Policy["EnabledFolders"].([]any)
	if !ok {
		return nil
	}
	folders := make([]string, 0, len(raw))
	for _, entry := range raw {
		if id, ok := entry.(string); ok {
			folders = append(folders, id)
		}
	}
	return folders
}

func (a *account) allFoldersEnabled() bool {
	enabled, ok := a.Policy["EnableAllFolders"].(bool)
	return ok && enabled
}

type apiList[T any] struct {
	Items []T `json:"Items"`
}

// Client talks to a Jellyfin server on behalf of one configured account.
type Client struct {
	baseURL  string
	apiKey   string
	username string
	http     HTTPDoer
}

// NewClient builds a client from the jellyfin config section.
func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Jellyfin.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewClientWith(cfg.Jellyfin.URL, cfg.Jellyfin.APIKey, cfg.Jellyfin.User, &http.Client{Timeout: timeout})
}

// NewClientWith constructs a client with an explicit HTTP doer, mainly for
// tests.
func NewClientWith(baseURL, apiKey, username string, doer HTTPDoer) *Client {
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:   strings.TrimSpace(apiKey),
		username: strings.TrimSpace(username),
		http:     doer,
	}
}

// Username returns the account name the client manages.
func (c *Client) Username() string { return c.username }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "jellyfin", method+" "+path, "encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "jellyfin", method+" "+path, "build request", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("MediaBrowser Token=%q", c.apiKey))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, "jellyfin", method+" "+path, "send request", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, method+" "+path); err != nil {
		return err
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransport, "jellyfin", method+" "+path, "decode response", err)
	}
	return nil
}

func classifyStatus(status int, operation string) error {
	switch {
	case status < http.StatusMultipleChoices:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrAuth, "jellyfin", operation, fmt.Sprintf("server rejected credentials (%d)", status), nil)
	case status == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "jellyfin", operation, "resource not found", nil)
	case status >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransport, "jellyfin", operation, fmt.Sprintf("server error (%d)", status), nil)
	default:
		return services.Wrap(services.ErrConfiguration, "jellyfin", operation, fmt.Sprintf("request rejected (%d)", status), nil)
	}
}

// Libraries fetches the server's media folders.
func (c *Client) Libraries(ctx context.Context) ([]Library, error) {
	var list apiList[Library]
	if err := c.do(ctx, http.MethodGet, "/Library/MediaFolders", nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// fetchAccount resolves the configured username to a user record. The user
// list is small enough that Jellyfin serves it unpaged.
func (c *Client) fetchAccount(ctx context.Context) (*account, error) {
	var users []account
	if err := c.do(ctx, http.MethodGet, "/Users", nil, &users); err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Name, c.username) {
			return &users[i], nil
		}
	}
	return nil, services.Wrap(services.ErrNotFound, "jellyfin", "GET /Users",
		fmt.Sprintf("account %q not found on server", c.username), nil)
}

// setEnabledFolders posts the account's policy back with the enabled-folder
// list replaced. EnableAllFolders is forced off so the explicit list is what
// the server enforces.
func (c *Client) setEnabledFolders(ctx context.Context, acct *account, folders []string) error {
	policy := make(map[string]any, len(acct.Policy)+2)
	for key, value := range acct.Policy {
		policy[key] = value
	}
	policy["EnabledFolders"] = folders
	policy["EnableAllFolders"] = false
	return c.do(ctx, http.MethodPost, "/Users/"+acct.ID+"/Policy", policy, nil)
}
