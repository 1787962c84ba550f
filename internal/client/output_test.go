package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseJSONResponse(t *testing.T, output []byte) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(output, &resp), "output should be valid JSON: %s", output)
	return resp
}

func TestWriteSuccess(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteSuccess(&buf, map[string]string{"id": "123"}))

	resp := parseJSONResponse(t, buf.Bytes())
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]interface{}{"id": "123"}, resp.Data)
	assert.WithinDuration(t, time.Now(), resp.Timestamp, time.Minute)
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteError(&buf, ErrCodeNotFound, "missing", "details"))

	resp := parseJSONResponse(t, buf.Bytes())
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "missing", resp.Error.Message)
	assert.Equal(t, "details", resp.Error.Details)
}

func TestErrorCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "config", err: fmt.Errorf("%w: missing", ErrInvalidConfig), want: ErrCodeInvalidConfig},
		{name: "input", err: fmt.Errorf("wrap: %w", ErrInvalidInput), want: ErrCodeInvalidInput},
		{name: "argument", err: fmt.Errorf("%w: unknown flag", ErrInvalidArgument), want: ErrCodeInvalidArgument},
		{name: "bad request", err: &APIError{StatusCode: 400}, want: ErrCodeBadRequest},
		{name: "unauthorized", err: &APIError{StatusCode: 401}, want: ErrCodeUnauthorized},
		{name: "forbidden", err: &APIError{StatusCode: 403}, want: ErrCodeForbidden},
		{name: "not found", err: &APIError{StatusCode: 404}, want: ErrCodeNotFound},
		{name: "server error", err: &APIError{StatusCode: 503}, want: ErrCodeServerError},
		{name: "other api error", err: &APIError{StatusCode: 409}, want: ErrCodeAPIError},
		{name: "deadline", err: fmt.Errorf("send: %w", context.DeadlineExceeded), want: ErrCodeTimeoutError},
		{name: "connection", err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}, want: ErrCodeConnectionError},
		{name: "unknown", err: errors.New("something else"), want: ErrCodeAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestReporter_TextSuccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "with body", body: `{"id": 1}`, want: "Success: Data stored successfully\n{\"id\": 1}\n"},
		{name: "empty body", body: "", want: "Success: Data stored successfully\n"},
		{name: "null body", body: "null", want: "Success: Data stored successfully\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			r := NewReporter(&stdout, &stderr, OutputText)

			require.NoError(t, r.Success(&StoreResult{StatusCode: 201, Body: []byte(tt.body)}))

			assert.Equal(t, tt.want, stdout.String())
			assert.Empty(t, stderr.String())
		})
	}
}

func TestReporter_TextFailure(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	r := NewReporter(&stdout, &stderr, OutputText)

	cause := errors.New("dial tcp: connection refused")
	require.NoError(t, r.Failure(fmt.Errorf("failed to send request to API: %w", cause)))

	assert.Empty(t, stdout.String())
	assert.Equal(t,
		"Error: failed to send request to API: dial tcp: connection refused\n"+
			"  Caused by: dial tcp: connection refused\n",
		stderr.String())
}

func TestReporter_TextFailureJoinedCauses(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	r := NewReporter(&stdout, &stderr, OutputText)

	parseErr := errors.New("yaml: line 1: did not find expected node content")
	err := fmt.Errorf("%w: reading config file store.yaml: %w", ErrInvalidConfig, parseErr)
	require.NoError(t, r.Failure(err))

	assert.Equal(t,
		"Error: invalid configuration: reading config file store.yaml: yaml: line 1: did not find expected node content\n"+
			"  Caused by: invalid configuration\n"+
			"  Caused by: yaml: line 1: did not find expected node content\n",
		stderr.String())
}

func TestCauseMessages(t *testing.T) {
	t.Parallel()

	inner := errors.New("unknown flag: --nope")
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{name: "no cause", err: errors.New("plain"), want: nil},
		{name: "single wrap", err: fmt.Errorf("send: %w", inner), want: []string{"unknown flag: --nope"}},
		{
			name: "two verbs",
			err:  fmt.Errorf("%w: %w", ErrInvalidArgument, inner),
			want: []string{ErrInvalidArgument.Error(), "unknown flag: --nope"},
		},
		{
			name: "nested join",
			err:  fmt.Errorf("outer: %w", errors.Join(inner, fmt.Errorf("deeper: %w", inner))),
			want: []string{"unknown flag: --nope\ndeeper: unknown flag: --nope", "unknown flag: --nope", "deeper: unknown flag: --nope"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, causeMessages(tt.err))
		})
	}
}

func TestReporter_TextAPIFailureShowsBody(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	r := NewReporter(&stdout, &stderr, OutputText)

	apiErr := &APIError{StatusCode: 500, Body: "database unavailable", Detail: "database unavailable"}
	require.NoError(t, r.Failure(apiErr))

	assert.Contains(t, stderr.String(), "Error: API request failed: Server error - please try again later")
	assert.Contains(t, stderr.String(), "Response: database unavailable")
}

func TestReporter_JSON(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	r := NewReporter(&stdout, &stderr, OutputJSON)

	require.NoError(t, r.Success(&StoreResult{StatusCode: 200, Body: []byte(`{"id": 9}`)}))
	resp := parseJSONResponse(t, stdout.Bytes())
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]interface{}{
		"status_code": float64(200),
		"body":        map[string]interface{}{"id": float64(9)},
	}, resp.Data)

	require.NoError(t, r.Failure(&APIError{StatusCode: 404, Body: "not here"}))
	errResp := parseJSONResponse(t, stderr.Bytes())
	assert.False(t, errResp.Success)
	require.NotNil(t, errResp.Error)
	assert.Equal(t, ErrCodeNotFound, errResp.Error.Code)
	assert.Equal(t, map[string]interface{}{
		"status_code": float64(404),
		"body":        "not here",
	}, errResp.Error.Details)
}

func TestNewReporter_UnknownFormatFallsBackToText(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	r := NewReporter(&stdout, &bytes.Buffer{}, "xml")

	require.NoError(t, r.Success(&StoreResult{StatusCode: 200}))
	assert.Equal(t, "Success: Data stored successfully\n", stdout.String())
	assert.False(t, ValidOutputFormat("xml"))
	assert.True(t, ValidOutputFormat(OutputJSON))
}
