package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-auth-client/identity"
)

// ProtectedResponse is the payload of the resource server's protected
// endpoint.
type ProtectedResponse struct {
	Message string            `json:"message"`
	User    identity.Identity `json:"user"`
	Data    string            `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Get issues an authorized GET against path on the configured base URL.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Get]")
	}
	return c.Do(req)
}

// Post issues an authorized POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.doJSON(ctx, http.MethodPost, path, body)
}

// Put issues an authorized PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.doJSON(ctx, http.MethodPut, path, body)
}

// Delete issues an authorized DELETE against path.
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Delete]")
	}
	return c.Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "[Client.doJSON json.Marshal]")
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.doJSON]")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req)
}

// CallProtected fetches the protected endpoint and decodes its payload.
// Non-2xx responses surface the server's error message when it sends
// one.
func (c *Client) CallProtected(ctx context.Context) (*ProtectedResponse, error) {
	resp, err := c.Get(ctx, "/api/protected")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var errResp errorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr != nil || errResp.Error == "" {
			errResp.Error = "unknown error"
		}
		return nil, fmt.Errorf("protected endpoint returned %d: %s", resp.StatusCode, errResp.Error)
	}

	var protected ProtectedResponse
	if err := json.NewDecoder(resp.Body).Decode(&protected); err != nil {
		return nil, errors.Wrap(err, "[Client.CallProtected json.Decode]")
	}
	return &protected, nil
}
