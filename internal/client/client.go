package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"store/internal/logging"
	"store/internal/version"
)

const (
	// contentTypeJSON is the Content-Type header value for JSON requests.
	contentTypeJSON = "application/json"

	// headerRequestID carries the correlation ID of the request.
	headerRequestID = "X-Request-ID"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// StoreRequest is the JSON body POSTed to the storage API.
type StoreRequest struct {
	ProjectSlug string          `json:"project_slug"`
	DataType    string          `json:"data_type,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// StoreResult describes a successful (2xx) API response.
type StoreResult struct {
	StatusCode int
	Body       []byte
}

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	// Body is the raw response body.
	Body string
	// Detail is the "detail" or "message" field of a JSON error body, or the
	// raw body when it is not JSON.
	Detail string
}

// apiErrorBody is the error document returned by the storage API.
type apiErrorBody struct {
	Detail  *string `json:"detail"`
	Message *string `json:"message"`
}

// Error returns a message with a hint for the most common statuses.
func (e *APIError) Error() string {
	return "API request failed: " + e.Hint()
}

// Hint returns a short human-readable explanation of the status.
func (e *APIError) Hint() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "Unauthorized - check your API token"
	case http.StatusForbidden:
		return "Forbidden - you don't have permission for this project"
	case http.StatusNotFound:
		return "Not found - check the API URL and project slug"
	case http.StatusBadRequest:
		return "Bad request - " + e.Detail
	case http.StatusInternalServerError:
		return "Server error - please try again later"
	default:
		return fmt.Sprintf("HTTP %d - %s", e.StatusCode, e.Detail)
	}
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	raw := string(body)
	detail := raw

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Detail != nil:
			detail = *parsed.Detail
		case parsed.Message != nil:
			detail = *parsed.Message
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       raw,
		Detail:     strings.TrimSpace(detail),
	}
}

// Client sends payloads to the storage API.
// It handles authentication, request serialization, and response parsing.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     logging.ApplicationLogger
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
// A nil client is ignored.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger logging.ApplicationLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new API client with the given configuration.
// Returns an error if the configuration is nil or invalid.
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:     *config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logging.Nop(),
		userAgent:  version.Get().UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("dispatcher")

	return c, nil
}

// Store POSTs data to the configured endpoint exactly once.
// Transport failures are returned wrapped; non-2xx responses return *APIError.
func (c *Client) Store(ctx context.Context, data json.RawMessage) (*StoreResult, error) {
	payload := StoreRequest{
		ProjectSlug: c.config.Project,
		DataType:    c.config.DataType,
		Data:        data,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, requestID := logging.EnsureCorrelationID(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	req.Header.Set(headerRequestID, requestID)

	c.logger.Debug(ctx, "Sending store request", logging.Fields{
		"url":        c.config.APIURL,
		"project":    c.config.Project,
		"data_type":  c.config.DataType,
		"body_bytes": len(jsonData),
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug(ctx, "Store request failed", logging.Fields{"error": err.Error()})
		return nil, fmt.Errorf("failed to send request to API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug(ctx, "Received store response", logging.Fields{
		"status":     resp.StatusCode,
		"body_bytes": len(body),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp, body)
	}

	return &StoreResult{StatusCode: resp.StatusCode, Body: body}, nil
}
