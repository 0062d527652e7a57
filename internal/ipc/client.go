package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start its background services.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Cinetag.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Cinetag.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Cinetag.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reconcile runs one reconcile-and-sync cycle.
func (c *Client) Reconcile() (*ReconcileResponse, error) {
	var resp ReconcileResponse
	if err := c.client.Call("Cinetag.Reconcile", ReconcileRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TagList returns per-tag summaries.
func (c *Client) TagList() (*TagListResponse, error) {
	var resp TagListResponse
	if err := c.client.Call("Cinetag.TagList", TagListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TagCreate registers a new tag and returns its canonical name.
func (c *Client) TagCreate(name string) (*TagCreateResponse, error) {
	var resp TagCreateResponse
	if err := c.client.Call("Cinetag.TagCreate", TagCreateRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TagDelete removes a tag and its assignments.
func (c *Client) TagDelete(name string) (*TagDeleteResponse, error) {
	var resp TagDeleteResponse
	if err := c.client.Call("Cinetag.TagDelete", TagDeleteRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MovieList returns the movie inventory with assigned tags.
func (c *Client) MovieList() (*MovieListResponse, error) {
	var resp MovieListResponse
	if err := c.client.Call("Cinetag.MovieList", MovieListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Assign adds one tag assignment.
func (c *Client) Assign(tag, movie string) (*AssignResponse, error) {
	var resp AssignResponse
	req := AssignRequest{Tag: tag, Movie: movie}
	if err := c.client.Call("Cinetag.Assign", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unassign removes one tag assignment.
func (c *Client) Unassign(tag, movie string) (*UnassignResponse, error) {
	var resp UnassignResponse
	req := UnassignRequest{Tag: tag, Movie: movie}
	if err := c.client.Call("Cinetag.Unassign", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Toggle flips one tag assignment.
func (c *Client) Toggle(tag, movie string) (*ToggleResponse, error) {
	var resp ToggleResponse
	req := ToggleRequest{Tag: tag, Movie: movie}
	if err := c.client.Call("Cinetag.Toggle", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Cinetag.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
