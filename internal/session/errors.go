// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import "github.com/samber/oops"

// Error codes returned by this package.
const (
	CodeUnauthorized = "SESSION_UNAUTHORIZED"
	CodeEncoding     = "SESSION_ENCODING"
	CodeKeyInvalid   = "SESSION_KEY_INVALID"
)

// ErrUnauthorized is returned by RequireAuthenticated when the request
// carries no valid session.
var ErrUnauthorized = oops.Code(CodeUnauthorized).Errorf("authentication required")
