package window

import (
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
)

// ProgramName is reported to the Linux window manager.
const ProgramName = "arena-shell"

// Apply copies the descriptor onto Wails application options. Only the
// platform section matching the descriptor's platform is touched, and only
// when that platform needs more than the common fields.
func (d Descriptor) Apply(opts *options.App) {
	opts.Title = d.Title
	opts.Width = int(d.InnerSize.Width)
	opts.Height = int(d.InnerSize.Height)
	opts.MinWidth = int(d.MinInnerSize.Width)
	opts.MinHeight = int(d.MinInnerSize.Height)
	opts.Frameless = !d.Decorations

	switch d.Platform {
	case "darwin":
		if opts.Mac == nil {
			opts.Mac = &mac.Options{}
		}
		opts.Mac.TitleBar = d.macTitleBar()
	case "windows":
		// Frameless covers it. Wails keeps the drop shadow and rounded
		// corners of a frameless window unless
		// DisableFramelessWindowDecorations is set.
	default:
		if opts.Linux == nil {
			opts.Linux = &linux.Options{}
		}
		opts.Linux.ProgramName = ProgramName
	}
}

// macTitleBar translates the titlebar style. Wails v2 cannot place the
// traffic lights at an absolute position; a non-zero offset selects the inset
// toolbar layout, which moves them away from the window corner.
func (d Descriptor) macTitleBar() *mac.TitleBar {
	var tb *mac.TitleBar
	switch d.TitleBarStyle {
	case TitleBarOverlay:
		tb = &mac.TitleBar{
			TitlebarAppearsTransparent: true,
			FullSizeContent:            true,
			HideToolbarSeparator:       true,
		}
		if d.TrafficLightPosition != nil && !d.TrafficLightPosition.IsZero() {
			tb.UseToolbar = true
		}
	case TitleBarTransparent:
		tb = &mac.TitleBar{
			TitlebarAppearsTransparent: true,
		}
	default:
		tb = mac.TitleBarDefault()
	}
	tb.HideTitle = d.HiddenTitle
	return tb
}
