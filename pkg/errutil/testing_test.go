// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/holomush/gatehouse/pkg/errutil"
)

func TestAssertErrorCode(t *testing.T) {
	inner := oops.Code("DB_CONNECT_FAILED").Errorf("connection refused")

	t.Run("direct", func(t *testing.T) {
		errutil.AssertErrorCode(t, inner, "DB_CONNECT_FAILED")
	})
	t.Run("wrapped without a code", func(t *testing.T) {
		errutil.AssertErrorCode(t, oops.With("driver", "postgres").Wrap(inner), "DB_CONNECT_FAILED")
	})
}

func TestAssertErrorContext(t *testing.T) {
	err := oops.With("field", "email").Errorf("email taken")
	errutil.AssertErrorContext(t, err, "field", "email")

	wrapped := oops.Code("AUTH_CONFLICT").With("operation", "create user").Wrap(err)
	errutil.AssertErrorContext(t, wrapped, "field", "email")
	errutil.AssertErrorContext(t, wrapped, "operation", "create user")
}
