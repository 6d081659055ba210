// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import "github.com/samber/oops"

// Dialect names a supported database backend.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Validate rejects unknown dialects.
func (d Dialect) Validate() error {
	switch d {
	case DialectSQLite, DialectPostgres:
		return nil
	default:
		return oops.Code("UNKNOWN_DIALECT").With("dialect", string(d)).Errorf("unsupported database driver %q", string(d))
	}
}
