// Package client provides HTTP client functionality to communicate with a
// craftd daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/craftd/craftd/internal/instance"
)

// Client talks to the daemon's REST API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:7420/api",
		Timeout: 15 * time.Second,
	}
}

// New creates a new craftd API client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: config.BaseURL,
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// APIError is the daemon's error envelope.
type APIError struct {
	Kind    string `json:"kind"`
	Message string `json:"error"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Message
}

// IsReachable checks whether the daemon answers on the API address.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/servers", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Create provisions a new server instance.
func (c *Client) Create(ctx context.Context, req instance.CreateRequest) (*instance.Instance, error) {
	var inst instance.Instance
	if err := c.do(ctx, http.MethodPost, "/servers", req, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// Update merges the supplied fields into an instance.
func (c *Client) Update(ctx context.Context, req instance.UpdateRequest) (*instance.Instance, error) {
	var inst instance.Instance
	if err := c.do(ctx, http.MethodPatch, "/servers/"+req.ID, req, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// Delete removes an instance and its directory.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/servers/"+id, nil, nil)
}

// List returns all configured instances.
func (c *Client) List(ctx context.Context) ([]*instance.Instance, error) {
	var out []*instance.Instance
	if err := c.do(ctx, http.MethodGet, "/servers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one instance.
func (c *Client) Get(ctx context.Context, id string) (*instance.Instance, error) {
	var inst instance.Instance
	if err := c.do(ctx, http.MethodGet, "/servers/"+id, nil, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// Start launches an instance's server process.
func (c *Client) Start(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/servers/"+id+"/start", nil, nil)
}

// Stop requests a graceful stop.
func (c *Client) Stop(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/servers/"+id+"/stop", nil, nil)
}

// SendCommand writes a console command to a running server.
func (c *Client) SendCommand(ctx context.Context, id, command string) error {
	body := map[string]string{"command": command}
	return c.do(ctx, http.MethodPost, "/servers/"+id+"/command", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.logger.Debug("api request", "method", method, "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return apiErr
	}
	if out != nil && len(data) > 0 {
		return json.Unmarshal(data, out)
	}
	return nil
}
