package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/arena-shell/frontend"
	"github.com/brianly1003/arena-shell/internal/app"
	"github.com/brianly1003/arena-shell/internal/config"
)

// Version is set by ldflags during build.
var Version = "dev"

func main() {
	assets, err := frontend.Assets()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Warn().Err(err).Msg("failed to load config, using defaults")
		cfg = config.Default()
	}

	if err := app.New(cfg, assets, Version).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
