// Package artifact encodes search indexes into the files the browser widget
// loads and moves them between the indexer and the searcher through a
// pluggable Store.
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Format selects the artifact wrapper.
type Format string

const (
	// FormatJS assigns the index to window.search so a plain <script> tag
	// can load it.
	FormatJS   Format = "js"
	FormatJSON Format = "json"
)

const (
	jsPrefix = "Object.assign(window.search, "
	jsSuffix = ");"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJS:
		return FormatJS, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown artifact format %q", s)
}

// ContentType is the HTTP content type for f.
func (f Format) ContentType() string {
	if f == FormatJS {
		return "application/javascript; charset=utf-8"
	}
	return "application/json"
}

// Ext is the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Encode serializes b in format f.
func Encode(b *index.Bundle, f Format) ([]byte, error) {
	data, err := b.Encode()
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatJSON:
		return data, nil
	case FormatJS:
		out := make([]byte, 0, len(jsPrefix)+len(data)+len(jsSuffix))
		out = append(out, jsPrefix...)
		out = append(out, data...)
		out = append(out, jsSuffix...)
		return out, nil
	}
	return nil, fmt.Errorf("unknown artifact format %q", f)
}

// Decode parses either format and validates the result.
func Decode(data []byte) (*index.Bundle, error) {
	payload := bytes.TrimSpace(data)
	if bytes.HasPrefix(payload, []byte(jsPrefix)) {
		payload = bytes.TrimPrefix(payload, []byte(jsPrefix))
		if !bytes.HasSuffix(payload, []byte(jsSuffix)) {
			return nil, fmt.Errorf("%w: unterminated script wrapper", apperrors.ErrMalformedIndex)
		}
		payload = bytes.TrimSuffix(payload, []byte(jsSuffix))
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty artifact", apperrors.ErrMalformedIndex)
	}

	var b index.Bundle
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrMalformedIndex, err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Fingerprint identifies artifact bytes; equal fingerprints mean an
// unchanged index.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
