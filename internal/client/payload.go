package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is wrapped by every payload parsing error.
var ErrInvalidInput = errors.New("invalid data input")

// ErrInvalidArgument is wrapped by command-line usage errors such as unknown
// flags or a missing data argument.
var ErrInvalidArgument = errors.New("invalid argument")

// expectedForms describes the accepted argument shapes in error messages.
const expectedForms = `expected a JSON value (e.g. '{"enabled": true}') or key=value pairs (e.g. key1=value1 key2=value2)`

// ParseData turns the positional arguments into the JSON value stored under "data".
//
// A single argument that is valid JSON is used verbatim. Otherwise every
// argument must be a key=value token; the value is decoded as JSON when it is
// valid JSON and kept as a string otherwise. Later duplicate keys win.
func ParseData(args []string) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no data given, %s", ErrInvalidInput, expectedForms)
	}

	if len(args) == 1 {
		trimmed := strings.TrimSpace(args[0])
		if trimmed != "" && json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed), nil
		}
		if !strings.Contains(args[0], "=") {
			return nil, fmt.Errorf("%w: %q is neither valid JSON nor a key=value pair, %s",
				ErrInvalidInput, args[0], expectedForms)
		}
	}

	fields := make(map[string]json.RawMessage, len(args))
	for _, pair := range args {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: invalid key=value pair %q, expected format: key=value", ErrInvalidInput, pair)
		}
		if key == "" {
			return nil, fmt.Errorf("%w: invalid key=value pair %q, key cannot be empty", ErrInvalidInput, pair)
		}
		fields[key] = parseValue(value)
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode data: %w", err)
	}
	return data, nil
}

// parseValue keeps JSON-typed values (numbers, booleans, objects, ...) and
// falls back to a JSON string for everything else.
func parseValue(value string) json.RawMessage {
	trimmed := strings.TrimSpace(value)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	// Marshalling a string cannot fail.
	encoded, _ := json.Marshal(value)
	return encoded
}
