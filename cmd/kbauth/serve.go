package main

import (
	"github.com/aussiebroadwan/kbauth/internal/auth/app"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the authorization server",
		Long: `Run the authorization server until SIGINT or SIGTERM.

Configuration is read from the environment (and a .env file in the working
directory, when present). AUTH_ISSUER and AUTH_OWNER_EMAIL are required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(cmd.Context(), app.LoadConfig())
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
}
