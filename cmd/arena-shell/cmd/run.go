package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brianly1003/arena-shell/frontend"
	"github.com/brianly1003/arena-shell/internal/app"
	"github.com/brianly1003/arena-shell/internal/config"
)

var runAPIURL string

// runCmd opens the desktop window.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the desktop window",
	Long: `Open the Arena window and block until it is closed.

Example:
  arena-shell run
  arena-shell run --config ./config.yaml
  arena-shell run --api-url https://api.example.com/v1

--api-url also adds the URL to the HTTP allow list.`,
	RunE: runApp,
}

func init() {
	runCmd.Flags().StringVar(&runAPIURL, "api-url", "", "backend base URL (overrides api.base_url)")
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runAPIURL != "" {
		cfg.API.BaseURL = strings.TrimRight(runAPIURL, "/")
		cfg.HTTP.Allow = append(cfg.HTTP.Allow, cfg.API.BaseURL+"/*")
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	setupLogging(cfg)

	assets, err := frontend.Assets()
	if err != nil {
		return err
	}

	log.Debug().Str("api", cfg.API.BaseURL).Msg("opening window")
	return app.New(cfg, assets, version, app.WithConfigPath(cfgFile)).Run()
}
