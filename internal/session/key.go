// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/samber/oops"
)

// MinKeyBytes is the shortest signing key accepted.
const MinKeyBytes = 32

// NewRandomKey returns n random bytes for use as a signing key.
func NewRandomKey(n int) ([]byte, error) {
	if n < MinKeyBytes {
		n = MinKeyBytes
	}
	key := make([]byte, n)
	if _, err := rand.Read(key); err != nil {
		return nil, oops.Code(CodeKeyInvalid).With("operation", "generate key").Wrap(err)
	}
	return key, nil
}

// EncodeKey renders key in the form LoadKey reads back.
func EncodeKey(key []byte) string {
	return base64.RawURLEncoding.EncodeToString(key)
}

// LoadKey decodes configured key material. Hex and base64 (URL or standard
// alphabet, padded or raw) are accepted.
func LoadKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, oops.Code(CodeKeyInvalid).Errorf("session key is empty")
	}

	key, ok := decodeKey(encoded)
	if !ok {
		return nil, oops.Code(CodeKeyInvalid).Errorf("session key is neither hex nor base64")
	}
	if len(key) < MinKeyBytes {
		return nil, oops.Code(CodeKeyInvalid).
			With("bytes", len(key)).
			Errorf("session key must be at least %d bytes", MinKeyBytes)
	}
	return key, nil
}

func decodeKey(s string) ([]byte, bool) {
	if len(s)%2 == 0 {
		if b, err := hex.DecodeString(s); err == nil {
			return b, true
		}
	}
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, true
		}
	}
	return nil, false
}
