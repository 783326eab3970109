// Package apiclient talks to the rental REST API. Every call makes a single
// attempt; failures come back as *Error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// The API expects prices and amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

type Client struct {
	baseURL string
	http    *http.Client
	token   string
	logger  *slog.Logger
}

// New returns a client for the API rooted at baseURL. A nil httpClient uses a
// plain http.Client with no timeout.
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// WithToken returns a copy of the client that sends token as a bearer
// credential. An empty token sends no Authorization header.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// BaseURL is the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Rental API unreachable", "method", method, "path", path, "error", err)
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := readError(resp)
		c.logger.DebugContext(ctx, "Rental API error",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"message", apiErr.Message)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &Error{
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Message:    "unexpected response from server",
			Err:        fmt.Errorf("decode %s %s: %w", method, path, err),
		}
	}
	return nil
}

func readError(resp *http.Response) *Error {
	apiErr := &Error{Kind: statusKind(resp.StatusCode), StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		apiErr.Err = err
	}
	var body errorBody
	if len(raw) > 0 && json.Unmarshal(raw, &body) != nil {
		// Plain-text error bodies are shown as they are.
		body.Message = strings.TrimSpace(string(raw))
	}
	apiErr.Message = strings.TrimSpace(body.Message)
	return apiErr
}

// pageBody is the paginated envelope; the collection key depends on the
// resource.
type pageBody[T any] struct {
	Properties   []T   `json:"properties"`
	Transactions []T   `json:"transactions"`
	CurrentPage  int   `json:"currentPage"`
	TotalItems   int64 `json:"totalItems"`
	TotalPages   int   `json:"totalPages"`
}
