package main

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/kbauth/internal/auth/secrets"
	"github.com/pquerna/otp/totp"
	"github.com/spf13/cobra"
)

func newTOTPCmd() *cobra.Command {
	var (
		email  string
		issuer string
	)

	cmd := &cobra.Command{
		Use:   "totp",
		Short: "Enrol an authenticator app for the owner",
		Long: `Generate a TOTP secret for the owner's second factor.

Store the secret as the ` + secrets.OwnerTOTPSecret + ` secret and add the
otpauth:// URL to an authenticator app. Once the secret is set, every login
asks for a one-time code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			key, err := totp.Generate(totp.GenerateOpts{
				Issuer:      issuer,
				AccountName: email,
			})
			if err != nil {
				return fmt.Errorf("generate totp secret: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "secret: %s\n", key.Secret())
			fmt.Fprintf(w, "url:    %s\n", key.URL())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "owner email shown in the authenticator app")
	cmd.Flags().StringVar(&issuer, "issuer", "kbauth", "issuer label shown in the authenticator app")
	return cmd
}
