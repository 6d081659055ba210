// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/gatehouse/internal/config"
	"github.com/holomush/gatehouse/internal/session"
)

// NewKeygenCmd creates the keygen subcommand.
func NewKeygenCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a session signing key",
		Long: `Print a random session signing key as an environment assignment.
Set it on every instance so sessions survive restarts and are shared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if size < session.MinKeyBytes {
				return oops.Code("INVALID_KEY_SIZE").
					With("bytes", size).
					Errorf("--bytes must be at least %d", session.MinKeyBytes)
			}
			key, err := session.NewRandomKey(size)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%sSESSION_KEY=%s\n", config.EnvPrefix, session.EncodeKey(key))
			return err //nolint:wrapcheck // write to stdout
		},
	}

	cmd.Flags().IntVar(&size, "bytes", session.MinKeyBytes, "key length in bytes")

	return cmd
}
