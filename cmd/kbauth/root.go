package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kbauth",
		Short: "OAuth 2.1 authorization server for a single-owner knowledge base",
		Long: `kbauth issues JWT access tokens to dynamically registered clients
on behalf of exactly one owner account.

Secrets (signing key, owner password hash, optional TOTP secret and pepper)
are read from KBAUTH_SECRET_<NAME> variables or AWS Secrets Manager. Use the
hash-password, gen-key and totp commands to produce them.`,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{printf "kbauth version %s\n" .Version}}`)

	root.AddCommand(
		newServeCmd(),
		newHashPasswordCmd(),
		newGenKeyCmd(),
		newTOTPCmd(),
	)
	return root
}
