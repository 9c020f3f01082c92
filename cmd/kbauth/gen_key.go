package main

import (
	"crypto"
	"fmt"
	"os"

	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
	"github.com/spf13/cobra"
)

func newGenKeyCmd() *cobra.Command {
	var (
		alg     string
		rsaBits int
		out     string
	)

	cmd := &cobra.Command{
		Use:   "gen-key",
		Short: "Generate a PEM signing key",
		Long: `Generate a PKCS8 PEM private key for signing access tokens.

Store the output as the signing-key secret and set AUTH_ALGORITHM to the
same algorithm. The key id the server will publish is printed to stderr.`,
		Example: `  kbauth gen-key --alg ES256 --out signing-key.pem`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pemKey, err := generateKey(alg, rsaBits)
			if err != nil {
				return err
			}

			kid, err := keyID(pemKey)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				if _, err := cmd.OutOrStdout().Write(pemKey); err != nil {
					return err
				}
			} else if err := os.WriteFile(out, pemKey, 0o600); err != nil {
				return fmt.Errorf("write key: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "alg=%s kid=%s\n", alg, kid)
			return nil
		},
	}

	cmd.Flags().StringVar(&alg, "alg", "EdDSA", "signing algorithm: EdDSA, ES256 or RS256")
	cmd.Flags().IntVar(&rsaBits, "rsa-bits", 3072, "RSA modulus size for RS256")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the key to this file (mode 0600) instead of stdout")
	return cmd
}

func generateKey(alg string, rsaBits int) ([]byte, error) {
	switch alg {
	case "EdDSA":
		return cryptox.GenerateEd25519Key()
	case "ES256":
		return cryptox.GenerateES256Key()
	case "RS256":
		return cryptox.GenerateRSAKey(rsaBits)
	default:
		return nil, fmt.Errorf("unsupported algorithm %q (want EdDSA, ES256 or RS256)", alg)
	}
}

func keyID(pemKey []byte) (string, error) {
	key, err := cryptox.ParsePrivateKeyPEM(pemKey)
	if err != nil {
		return "", err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return "", fmt.Errorf("key type %T cannot sign", key)
	}
	return cryptox.PublicKeyThumbprint(signer.Public())
}
