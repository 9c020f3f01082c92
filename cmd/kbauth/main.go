package main

import (
	"os"

	"github.com/aussiebroadwan/kbauth/internal/auth/app"
)

func main() {
	root := newRootCmd()
	root.Version = app.BuildVersion
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
