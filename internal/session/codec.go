// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

const (
	// DefaultTTL is how long an issued session token stays valid.
	DefaultTTL = 24 * time.Hour

	// Issuer is stamped into and required on every token.
	Issuer = "gatehouse"

	clockLeeway = 30 * time.Second
)

type claims struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs identities into HS256 tokens and verifies them back.
// It is safe for concurrent use.
type Codec struct {
	key     []byte
	ttl     time.Duration
	now     func() time.Time
	revoked *Revocations
}

// Option configures a Codec.
type Option func(*Codec)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides time.Now for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithRevocations enables Revoke and makes Decode consult the denylist.
func WithRevocations(r *Revocations) Option {
	return func(c *Codec) { c.revoked = r }
}

// NewCodec creates a Codec signing with key.
func NewCodec(key []byte, opts ...Option) (*Codec, error) {
	if len(key) < MinKeyBytes {
		return nil, oops.Code(CodeKeyInvalid).
			With("bytes", len(key)).
			Errorf("session key must be at least %d bytes", MinKeyBytes)
	}
	c := &Codec{
		key: append([]byte(nil), key...),
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Encode signs identity into a token valid for TTL.
func (c *Codec) Encode(identity Identity) (string, error) {
	now := c.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:       identity.Email,
		Username:    identity.Username,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    Issuer,
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	signed, err := tok.SignedString(c.key)
	if err != nil {
		return "", oops.Code(CodeEncoding).
			With("operation", "sign session token").
			With("user_id", identity.ID).
			Wrap(err)
	}
	return signed, nil
}

// Decode verifies token and returns its identity. Any defect (bad
// signature, wrong algorithm or issuer, expiry, revocation, missing
// subject) yields false; callers never see why.
func (c *Codec) Decode(token string) (Identity, bool) {
	cl, ok := c.parse(token)
	if !ok {
		return Identity{}, false
	}
	return Identity{
		ID:          cl.Subject,
		Email:       cl.Email,
		Username:    cl.Username,
		DisplayName: cl.DisplayName,
		AvatarURL:   cl.AvatarURL,
	}, true
}

// Revoke denies token until its natural expiry. Invalid tokens and codecs
// without a denylist are ignored, so logout stays idempotent.
func (c *Codec) Revoke(token string) {
	if c.revoked == nil {
		return
	}
	cl, ok := c.parse(token)
	if !ok {
		return
	}
	c.revoked.Revoke(cl.ID, cl.ExpiresAt.Add(clockLeeway))
}

func (c *Codec) parse(token string) (*claims, bool) {
	if token == "" {
		return nil, false
	}
	var cl claims
	parsed, err := jwt.ParseWithClaims(token, &cl, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockLeeway),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if cl.Subject == "" || cl.ID == "" {
		return nil, false
	}
	if c.revoked != nil && c.revoked.IsRevoked(cl.ID) {
		return nil, false
	}
	return &cl, true
}
