// Package graphql is a thin transport for the managed report backend: POST a
// named query or mutation with variables, get a typed payload back. Retry
// and caching policy belong to the callers, not here.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/RendaniXcode/moneypro/src/logger"
)

// ErrBackend wraps transport failures and errors returned inside a GraphQL
// response envelope.
var ErrBackend = errors.New("report backend error")

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type responseError struct {
	Message string `json:"message"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []responseError `json:"errors,omitempty"`
}

// HTTPClient executes operations against a single configured endpoint,
// authenticating with an API key header.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Execute runs one operation and decodes the field named by root out of the
// response's data object into out. A non-nil out with a null payload is left
// untouched; the caller decides whether absence is an error.
func (c *HTTPClient) Execute(ctx context.Context, query string, variables map[string]any, root string, out any) error {
	if c.endpoint == "" {
		return fmt.Errorf("%w: endpoint not configured", ErrBackend)
	}

	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("%w: encoding request: %v", ErrBackend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrBackend, resp.StatusCode)
	}

	var envelope response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrBackend, err)
	}
	if len(envelope.Errors) > 0 {
		logger.L.Warn("GraphQL operation returned errors", "root", root, "message", envelope.Errors[0].Message, "count", len(envelope.Errors))
		return fmt.Errorf("%w: %s", ErrBackend, envelope.Errors[0].Message)
	}

	if out == nil {
		return nil
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return fmt.Errorf("%w: decoding data: %v", ErrBackend, err)
	}
	payload, ok := data[root]
	if !ok || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decoding %s payload: %v", ErrBackend, root, err)
	}
	return nil
}
