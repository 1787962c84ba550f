// Package client implements the store client: configuration resolution,
// payload building, the HTTP dispatcher and result reporting.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/muesli/termenv"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Error codes reported in the JSON envelope.
const (
	ErrCodeInvalidConfig   = "INVALID_CONFIG"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeConnectionError = "CONNECTION_ERROR"
	ErrCodeTimeoutError    = "TIMEOUT_ERROR"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeServerError     = "SERVER_ERROR"
	ErrCodeAPIError        = "API_ERROR"
)

// Response represents the JSON output envelope. The Data and Error fields are
// mutually exclusive and omitted when nil.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *Error      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Error represents structured error information in a JSON response.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// StoredData is the Data of a successful JSON response.
type StoredData struct {
	StatusCode int         `json:"status_code"`
	Body       interface{} `json:"body,omitempty"`
}

// WriteSuccess writes a success envelope to w.
func WriteSuccess(w io.Writer, data interface{}) error {
	response := Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
	return json.NewEncoder(w).Encode(response)
}

// WriteError writes an error envelope to w.
func WriteError(w io.Writer, code, message string, details interface{}) error {
	response := Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	}
	return json.NewEncoder(w).Encode(response)
}

// ErrorCode classifies err into one of the ErrCode constants.
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 400:
			return ErrCodeBadRequest
		case apiErr.StatusCode == 401:
			return ErrCodeUnauthorized
		case apiErr.StatusCode == 403:
			return ErrCodeForbidden
		case apiErr.StatusCode == 404:
			return ErrCodeNotFound
		case apiErr.StatusCode >= 500:
			return ErrCodeServerError
		default:
			return ErrCodeAPIError
		}
	}

	if errors.Is(err, ErrInvalidConfig) {
		return ErrCodeInvalidConfig
	}
	if errors.Is(err, ErrInvalidInput) {
		return ErrCodeInvalidInput
	}
	if errors.Is(err, ErrInvalidArgument) {
		return ErrCodeInvalidArgument
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeoutError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrCodeTimeoutError
		}
		return ErrCodeConnectionError
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrCodeConnectionError
	}

	return ErrCodeAPIError
}

// Reporter prints the outcome of a store invocation.
type Reporter struct {
	stdout io.Writer
	stderr io.Writer
	format string
}

// NewReporter creates a reporter writing results to stdout and failures to
// stderr. Unknown formats fall back to text.
func NewReporter(stdout, stderr io.Writer, format string) *Reporter {
	if format != OutputJSON {
		format = OutputText
	}
	return &Reporter{stdout: stdout, stderr: stderr, format: format}
}

// ValidOutputFormat reports whether format is a supported output format.
func ValidOutputFormat(format string) bool {
	return format == OutputText || format == OutputJSON
}

// Success reports a stored payload.
func (r *Reporter) Success(result *StoreResult) error {
	if r.format == OutputJSON {
		return WriteSuccess(r.stdout, StoredData{
			StatusCode: result.StatusCode,
			Body:       decodeBody(result.Body),
		})
	}

	out := termenv.NewOutput(r.stdout)
	label := out.String("Success:").Foreground(out.Color("2"))
	if _, err := fmt.Fprintf(r.stdout, "%s Data stored successfully\n", label); err != nil {
		return err
	}

	body := strings.TrimSpace(string(result.Body))
	if body != "" && body != "null" {
		if _, err := fmt.Fprintln(r.stdout, body); err != nil {
			return err
		}
	}
	return nil
}

// Failure reports err with every wrapped cause.
func (r *Reporter) Failure(err error) error {
	var apiErr *APIError
	isAPIErr := errors.As(err, &apiErr)

	if r.format == OutputJSON {
		var details interface{}
		if isAPIErr {
			details = map[string]interface{}{
				"status_code": apiErr.StatusCode,
				"body":        decodeBody([]byte(apiErr.Body)),
			}
		}
		return WriteError(r.stderr, ErrorCode(err), err.Error(), details)
	}

	out := termenv.NewOutput(r.stderr)
	red := out.Color("1")

	if _, werr := fmt.Fprintf(r.stderr, "%s %s\n", out.String("Error:").Foreground(red), err); werr != nil {
		return werr
	}
	for _, msg := range causeMessages(err) {
		if _, werr := fmt.Fprintf(r.stderr, "%s %s\n", out.String("  Caused by:").Foreground(red), msg); werr != nil {
			return werr
		}
	}

	if isAPIErr {
		body := strings.TrimSpace(apiErr.Body)
		if body != "" && !strings.Contains(apiErr.Hint(), body) {
			if _, werr := fmt.Fprintf(r.stderr, "  Response: %s\n", body); werr != nil {
				return werr
			}
		}
	}
	return nil
}

// decodeBody returns the body as a JSON value when possible, else as a string.
func decodeBody(body []byte) interface{} {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	return trimmed
}

// causeMessages walks the wrapped errors of err depth-first, following both
// Unwrap() error and Unwrap() []error. Empty messages and messages already
// printed (including err's own) are skipped.
func causeMessages(err error) []string {
	seen := map[string]bool{err.Error(): true}
	var msgs []string

	var walk func(error)
	walk = func(e error) {
		var children []error
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			children = u.Unwrap()
		case interface{ Unwrap() error }:
			children = []error{u.Unwrap()}
		}
		for _, child := range children {
			if child == nil {
				continue
			}
			if msg := child.Error(); msg != "" && !seen[msg] {
				seen[msg] = true
				msgs = append(msgs, msg)
			}
			walk(child)
		}
	}
	walk(err)

	return msgs
}
