package channel

import (
	"reflect"
	"testing"
	"time"
)

func TestMessageRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		value any
		want  any // decoded JSON form
	}{
		{name: "string", value: "dark", want: "dark"},
		{name: "null", value: nil, want: nil},
		{name: "number", value: 42, want: float64(42)},
		{name: "bool", value: true, want: true},
		{name: "array", value: []any{"a", float64(1)}, want: []any{"a", float64(1)}},
		{
			name:  "nested object",
			value: map[string]any{"theme": "dark", "opts": map[string]any{"n": float64(2)}},
			want:  map[string]any{"theme": "dark", "opts": map[string]any{"n": float64(2)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := encodeMessage(tt.value, time.Now())
			if err != nil {
				t.Fatalf("encodeMessage error: %v", err)
			}
			got, err := decodeMessage(raw)
			if err != nil {
				t.Fatalf("decodeMessage error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("decoded = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeMessageRejectsMalformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "certainly not json"},
		{name: "empty", raw: ""},
		{name: "bare string", raw: `"dark"`},
		{name: "missing value", raw: `{"timestamp":1,"schemaVersion":1}`},
		{name: "missing timestamp", raw: `{"value":"x","schemaVersion":1}`},
		{name: "missing schemaVersion", raw: `{"value":"x","timestamp":1}`},
		{name: "non-numeric timestamp", raw: `{"value":"x","timestamp":"soon","schemaVersion":1}`},
		{name: "non-numeric schemaVersion", raw: `{"value":"x","timestamp":1,"schemaVersion":"one"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeMessage(tt.raw); err == nil {
				t.Fatalf("decodeMessage(%q) accepted malformed input", tt.raw)
			}
		})
	}
}

func TestDecodeMessageNullValueIsValid(t *testing.T) {
	t.Parallel()
	v, err := decodeMessage(`{"value":null,"timestamp":1,"schemaVersion":1}`)
	if err != nil {
		t.Fatalf("decodeMessage error: %v", err)
	}
	if v != nil {
		t.Fatalf("decoded = %#v, want nil", v)
	}
}
