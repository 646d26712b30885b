// Package token implements the opaque concurrency tokens attached to every
// mutable simulation record. A token identifies exactly one committed version
// of a record: every successful write mints a fresh value, and a write
// presenting a token that does not match the stored one is rejected.
//
// Tokens are random bytes rather than a per-record counter so the values
// surfaced to clients as ETags carry no ordering or rate information.
package token

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Size is the number of random bytes in a freshly minted token.
const Size = 8

var (
	ErrMissing = errors.New("concurrency token is required")
	ErrInvalid = errors.New("invalid concurrency token: must be base64")
)

// Token is an opaque concurrency version stamp. The only supported
// operations are equality comparison and regeneration.
type Token []byte

// New mints a fresh token from crypto-random bytes.
func New() (Token, error) {
	b := make([]byte, Size)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}
	return Token(b), nil
}

// Parse decodes the base64 wire form of a token.
func Parse(s string) (Token, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrMissing
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalid
	}
	if len(raw) == 0 {
		return nil, ErrInvalid
	}
	return Token(raw), nil
}

// ParseIfMatch decodes a token supplied through an If-Match header. Clients
// commonly echo the quoted ETag form back, optionally with a weak-validator
// prefix; both are stripped before decoding.
func ParseIfMatch(header string) (Token, error) {
	v := strings.TrimSpace(header)
	if strings.HasPrefix(v, "W/") || strings.HasPrefix(v, "w/") {
		v = v[2:]
	}
	v = strings.Trim(v, `"`)
	return Parse(v)
}

// Equal reports whether two tokens identify the same record version.
func (t Token) Equal(other Token) bool {
	return bytes.Equal(t, other)
}

// String returns the base64 wire form.
func (t Token) String() string {
	return base64.StdEncoding.EncodeToString(t)
}

// ETag returns the quoted entity-tag form used in HTTP headers.
func (t Token) ETag() string {
	return `"` + t.String() + `"`
}

// IsZero reports whether the token is empty.
func (t Token) IsZero() bool {
	return len(t) == 0
}
