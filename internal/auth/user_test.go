// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/holomush/gatehouse/internal/auth"
)

func strPtr(s string) *string { return &s }

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name  string
		first *string
		last  *string
		want  string
	}{
		{name: "both names", first: strPtr("Ada"), last: strPtr("Lovelace"), want: "Ada Lovelace"},
		{name: "first only", first: strPtr("Ada"), want: "Ada"},
		{name: "last only", last: strPtr("Lovelace"), want: "Lovelace"},
		{name: "neither", want: "ada"},
		{name: "blank names fall back", first: strPtr(" "), last: strPtr(""), want: "ada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &auth.User{Username: "ada", FirstName: tt.first, LastName: tt.last}
			assert.Equal(t, tt.want, u.DisplayName())
		})
	}
}
