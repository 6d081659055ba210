// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth registers users and verifies their passwords.
//
// # Errors
//
// Every failure returned from this package is an oops error carrying one
// of the Code* constants:
//   - CodeValidationFailed - the request broke field rules; see AsViolations
//   - CodeConflict - email or username already taken; see ConflictField
//   - CodeInvalidCredentials - login did not match an active user
//   - CodeStorage - the repository failed
//   - CodeCrypto - hashing or hash verification failed
//
// Repository implementations live in the postgres and sqlite subpackages.
package auth
