package share

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw := "diff --git a/foo.txt b/foo.txt\n--- a/foo.txt\n+++ b/foo.txt\n@@ -1 +1 @@\n-old\n+new\n"

	token, err := Encode(raw)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.ContainsAny(token, "+/=") {
		t.Errorf("token %q is not URL-safe", token)
	}

	got, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != raw {
		t.Errorf("round trip mismatch:\ngot  %q\nwant %q", got, raw)
	}
}

func TestEncodeCompressesRepetitiveText(t *testing.T) {
	raw := strings.Repeat("+added line of patch content\n", 500)
	token, err := Encode(raw)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(token) >= len(raw) {
		t.Errorf("token (%d bytes) not smaller than input (%d bytes)", len(token), len(raw))
	}
}

func TestDecodeRejectsBadTokens(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "!!!not-base64!!!"},
		{"valid base64, not deflate", "aGVsbG8gd29ybGQ"},
		{"oversized", strings.Repeat("A", MaxTokenLen+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.token); !errors.Is(err, ErrBadToken) {
				t.Errorf("Decode(%s) error = %v, want ErrBadToken", tt.name, err)
			}
		})
	}
}
