// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes carried by oops errors returned from this package and its
// repository implementations.
const (
	CodeValidationFailed   = "AUTH_VALIDATION_FAILED"
	CodeConflict           = "AUTH_CONFLICT"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeStorage            = "AUTH_STORAGE"
	CodeCrypto             = "AUTH_CRYPTO"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is wrapped by repositories when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate")

// ErrInvalidCredentials is the single failure returned for an unknown email,
// an inactive account and a wrong password alike.
var ErrInvalidCredentials = oops.Code(CodeInvalidCredentials).Errorf("Invalid email or password")

// IsCode reports whether err carries the given oops code anywhere in its chain.
func IsCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == code
}

// ConflictField returns which unique field ("email" or "username") a
// conflict error refers to, or "" when unknown.
func ConflictField(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	field, _ := oopsErr.Context()["field"].(string)
	return field
}

// ConflictError builds the conflict error repositories return for a unique
// violation on field.
func ConflictError(field string, cause error) error {
	return oops.Code(CodeConflict).
		With("field", field).
		Wrapf(errors.Join(ErrDuplicate, cause), "%s already in use", field)
}
