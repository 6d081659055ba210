// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session_test

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gatehouse/internal/session"
	"github.com/holomush/gatehouse/pkg/errutil"
)

func TestNewRandomKey(t *testing.T) {
	key, err := session.NewRandomKey(8)
	require.NoError(t, err)
	assert.Len(t, key, session.MinKeyBytes, "short requests are raised to the minimum")

	other, err := session.NewRandomKey(48)
	require.NoError(t, err)
	assert.Len(t, other, 48)
	assert.NotEqual(t, key, other[:session.MinKeyBytes])
}

func TestLoadKey(t *testing.T) {
	raw, err := session.NewRandomKey(32)
	require.NoError(t, err)

	encodings := map[string]string{
		"encoded":     session.EncodeKey(raw),
		"hex":         hex.EncodeToString(raw),
		"std base64":  base64.StdEncoding.EncodeToString(raw),
		"url padded":  base64.URLEncoding.EncodeToString(raw),
		"surrounding": "  " + session.EncodeKey(raw) + "\n",
	}
	for name, encoded := range encodings {
		t.Run(name, func(t *testing.T) {
			key, err := session.LoadKey(encoded)
			require.NoError(t, err)
			assert.Equal(t, raw, key)
		})
	}
}

func TestLoadKey_Rejects(t *testing.T) {
	tests := map[string]string{
		"empty":     "",
		"too short": session.EncodeKey([]byte("tiny")),
		"not key":   "!!!not base64!!!",
	}
	for name, encoded := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := session.LoadKey(encoded)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, session.CodeKeyInvalid)
		})
	}
}
