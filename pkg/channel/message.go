package channel

import (
	"encoding/json"
	"errors"
	"time"
)

// SchemaVersion identifies the current stored message format.
const SchemaVersion = 1

var errMalformedMessage = errors.New("malformed sync message")

// envelope is the stored wire shape. Pointer fields distinguish a missing
// key from a zero value, and RawMessage keeps "value": null valid (null
// is a legitimate payload).
type envelope struct {
	Value         json.RawMessage `json:"value"`
	Timestamp     *int64          `json:"timestamp"`
	SchemaVersion *int            `json:"schemaVersion"`
}

// encodeMessage serializes a value into the stored envelope text.
// The timestamp is informational only; it is never used for conflict
// resolution.
func encodeMessage(value any, at time.Time) (string, error) {
	vb, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	ts := at.UnixMilli()
	sv := SchemaVersion
	b, err := json.Marshal(envelope{Value: vb, Timestamp: &ts, SchemaVersion: &sv})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeMessage parses stored envelope text and returns the payload.
// Any text lacking the required shape (value present, numeric timestamp,
// numeric schemaVersion) is rejected.
func decodeMessage(raw string) (any, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, err
	}
	if env.Value == nil || env.Timestamp == nil || env.SchemaVersion == nil {
		return nil, errMalformedMessage
	}
	var v any
	if err := json.Unmarshal(env.Value, &v); err != nil {
		return nil, err
	}
	return v, nil
}
