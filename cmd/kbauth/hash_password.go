package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aussiebroadwan/kbauth/internal/auth/secrets"
	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
	"github.com/spf13/cobra"
)

func newHashPasswordCmd() *cobra.Command {
	var pepper string

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash the owner password read from stdin",
		Long: `Read one line from stdin and print its Argon2id hash in PHC format.

Store the output as the owner-password-hash secret. When the server runs
with a password-pepper secret, pass the same pepper here; it defaults to
` + secrets.EnvName(secrets.PasswordPepper) + `.`,
		Example: `  printf '%s' "$OWNER_PASSWORD" | kbauth hash-password`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("pepper") {
				v, err := secrets.GetOptional(cmd.Context(), secrets.NewEnvStore(), secrets.PasswordPepper)
				if err != nil {
					return err
				}
				pepper = string(v)
			}

			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}

			hash, err := cryptox.PasswordHasher{Pepper: pepper}.Hash(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&pepper, "pepper", "", "server-side pepper mixed into the hash")
	return cmd
}

// readPassword takes the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password on stdin")
	}
	return password, nil
}
