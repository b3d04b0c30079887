package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/arena-shell/internal/config"
	"github.com/brianly1003/arena-shell/internal/plugin"
	"github.com/brianly1003/arena-shell/internal/plugins/logplugin"
)

func TestSetupLogging_LevelStaysOnCLILogger(t *testing.T) {
	prevLogger, prevGlobal := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevGlobal)
	})

	setupLogging(&config.Config{Logging: config.LoggingConfig{Level: "error", Format: "json"}})

	if got := log.Logger.GetLevel(); got != zerolog.ErrorLevel {
		t.Errorf("CLI logger level = %v, want error", got)
	}
	if got := zerolog.GlobalLevel(); got != prevGlobal {
		t.Errorf("global level changed to %v", got)
	}

	var buf bytes.Buffer
	p := logplugin.NewBuilder().
		Level(zerolog.InfoLevel).
		Stdout(&buf).
		Format("json").
		Build()
	if err := plugin.NewHost().Plugin(p); err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	log.Info().Msg("plugin-info")
	log.Warn().Msg("plugin-warn")
	log.Debug().Msg("plugin-debug")

	out := buf.String()
	if !strings.Contains(out, "plugin-info") || !strings.Contains(out, "plugin-warn") {
		t.Errorf("log plugin should keep info and above after the CLI set error, got %q", out)
	}
	if strings.Contains(out, "plugin-debug") {
		t.Errorf("debug record should stay filtered, got %q", out)
	}
}
