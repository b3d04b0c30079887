package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brianly1003/arena-shell/internal/app"
	"github.com/brianly1003/arena-shell/internal/buildmode"
	"github.com/brianly1003/arena-shell/internal/window"
)

var windowPlatform string

// windowCmd prints the main window configuration without opening it.
var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Print the main window configuration",
	Long: `Print the main window descriptor and the plugins this build attaches,
as YAML. No window is opened.

Examples:
  arena-shell window
  arena-shell window --platform darwin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeWindowSnapshot(os.Stdout, windowPlatform, buildmode.Debug)
	},
}

func init() {
	windowCmd.Flags().StringVar(&windowPlatform, "platform", runtime.GOOS, "target platform (darwin, windows, linux)")
}

type windowSnapshot struct {
	Build   string            `yaml:"build"`
	Window  window.Descriptor `yaml:"window"`
	Plugins []string          `yaml:"plugins"`
}

func writeWindowSnapshot(w io.Writer, goos string, debug bool) error {
	desc, err := window.Main(goos).Build()
	if err != nil {
		return fmt.Errorf("failed to build main window: %w", err)
	}

	build := "release"
	if debug {
		build = "debug"
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(windowSnapshot{
		Build:   build,
		Window:  desc,
		Plugins: app.PluginNames(debug),
	}); err != nil {
		return err
	}
	return enc.Close()
}
