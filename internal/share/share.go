// Package share encodes raw patch text into compact URL-safe tokens.
package share

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrBadToken is returned when a token cannot be decoded back to text.
var ErrBadToken = errors.New("invalid share token")

// MaxTokenLen bounds accepted token size; longer tokens are rejected
// before any decompression happens.
const MaxTokenLen = 64 << 10

// Encode compresses raw patch text and encodes it as a URL-safe token.
// Only the raw text is ever shared; the structured form is rebuilt by
// re-parsing after Decode.
func Encode(raw string) (string, error) {
	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("create compressor: %w", err)
	}
	if _, err := zw.Write([]byte(raw)); err != nil {
		return "", fmt.Errorf("compress patch: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress patch: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. Any malformed token yields ErrBadToken.
func Decode(token string) (string, error) {
	if token == "" || len(token) > MaxTokenLen {
		return "", ErrBadToken
	}
	compressed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	zr := flate.NewReader(bytes.NewReader(compressed))
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	return string(raw), nil
}
