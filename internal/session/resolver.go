// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

// Decoder turns a token into an identity. *Codec implements it.
type Decoder interface {
	Decode(token string) (Identity, bool)
}

// RequireAuthenticated resolves token or fails with ErrUnauthorized.
func RequireAuthenticated(d Decoder, token string) (Identity, error) {
	identity, ok := d.Decode(token)
	if !ok {
		return Identity{}, ErrUnauthorized
	}
	return identity, nil
}

// OptionalAuthenticated resolves token when it is valid and never rejects.
func OptionalAuthenticated(d Decoder, token string) (Identity, bool) {
	return d.Decode(token)
}
