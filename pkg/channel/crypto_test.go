package channel

import (
	"strings"
	"testing"
)

func TestObfuscateRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		plain  string
		secret string
	}{
		{name: "empty", plain: "", secret: "s3cret"},
		{name: "short", plain: "dark", secret: "s3cret"},
		{name: "json envelope", plain: `{"value":"dark","timestamp":1,"schemaVersion":1}`, secret: "another-secret"},
		{name: "unicode", plain: "héllo wörld ✓", secret: "s3cret"},
		{name: "long", plain: strings.Repeat("x", 10000), secret: "k"},
		{name: "secret longer than text", plain: "a", secret: strings.Repeat("key", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := obfuscate(tt.plain, tt.secret)
			if tt.plain != "" && enc == tt.plain {
				t.Fatalf("obfuscate returned plaintext unchanged")
			}
			dec, err := deobfuscate(enc, tt.secret)
			if err != nil {
				t.Fatalf("deobfuscate error: %v", err)
			}
			if dec != tt.plain {
				t.Fatalf("round trip = %q, want %q", dec, tt.plain)
			}
		})
	}
}

func TestDeobfuscateInvalidText(t *testing.T) {
	t.Parallel()
	if _, err := deobfuscate("not base64 at all!!!", "s3cret"); err == nil {
		t.Fatal("expected error for invalid encoded text")
	}
}

func TestObfuscateEmptySecretPassthrough(t *testing.T) {
	t.Parallel()
	if got := obfuscate("plain", ""); got != "plain" {
		t.Fatalf("got %q, want passthrough", got)
	}
	got, err := deobfuscate("plain", "")
	if err != nil || got != "plain" {
		t.Fatalf("got %q, %v; want passthrough", got, err)
	}
}
