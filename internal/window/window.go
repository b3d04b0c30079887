// Package window describes the application's native window: title, sizes and
// the per-platform titlebar and decoration treatment.
package window

import (
	"errors"
	"fmt"
	"strings"
)

// Main window defaults.
const (
	MainLabel = "main"
	MainTitle = "Transparent Titlebar Window"
)

var (
	MainSize         = LogicalSize{Width: 1000, Height: 800}
	MainMinSize      = LogicalSize{Width: 900, Height: 700}
	MainTrafficLight = LogicalPosition{X: 20, Y: 24}
)

// Errors returned by Build.
var (
	ErrInvalidSize    = errors.New("window size must be positive")
	ErrMinExceedsSize = errors.New("window minimum size exceeds initial size")
	ErrEmptyLabel     = errors.New("window label cannot be empty")
)

// LogicalSize is a size in resolution-independent units.
type LogicalSize struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

func (s LogicalSize) positive() bool {
	return s.Width > 0 && s.Height > 0
}

// LogicalPosition is a point in resolution-independent units.
type LogicalPosition struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// IsZero reports whether p is the origin.
func (p LogicalPosition) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// TitleBarStyle selects how the macOS titlebar is drawn.
type TitleBarStyle int

const (
	// TitleBarVisible is the regular opaque titlebar.
	TitleBarVisible TitleBarStyle = iota
	// TitleBarTransparent keeps the titlebar height but draws it transparent.
	TitleBarTransparent
	// TitleBarOverlay draws the titlebar over the content area.
	TitleBarOverlay
)

func (s TitleBarStyle) String() string {
	switch s {
	case TitleBarVisible:
		return "visible"
	case TitleBarTransparent:
		return "transparent"
	case TitleBarOverlay:
		return "overlay"
	default:
		return fmt.Sprintf("TitleBarStyle(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s TitleBarStyle) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Descriptor is a validated window configuration snapshot.
type Descriptor struct {
	Label                string           `json:"label" yaml:"label"`
	Title                string           `json:"title" yaml:"title"`
	InnerSize            LogicalSize      `json:"inner_size" yaml:"inner_size"`
	MinInnerSize         LogicalSize      `json:"min_inner_size" yaml:"min_inner_size"`
	TitleBarStyle        TitleBarStyle    `json:"title_bar_style" yaml:"title_bar_style"`
	TrafficLightPosition *LogicalPosition `json:"traffic_light_position,omitempty" yaml:"traffic_light_position,omitempty"`
	Decorations          bool             `json:"decorations" yaml:"decorations"`
	HiddenTitle          bool             `json:"hidden_title" yaml:"hidden_title"`
	Platform             string           `json:"platform" yaml:"platform"`
}

// Builder accumulates window settings. The zero value is not usable; call
// NewBuilder.
type Builder struct {
	d Descriptor
}

// NewBuilder starts a window with the given label. Decorations are on by
// default.
func NewBuilder(label string) *Builder {
	return &Builder{d: Descriptor{
		Label:       label,
		Decorations: true,
	}}
}

func (b *Builder) Title(title string) *Builder {
	b.d.Title = title
	return b
}

func (b *Builder) InnerSize(width, height float64) *Builder {
	b.d.InnerSize = LogicalSize{Width: width, Height: height}
	return b
}

func (b *Builder) MinInnerSize(width, height float64) *Builder {
	b.d.MinInnerSize = LogicalSize{Width: width, Height: height}
	return b
}

func (b *Builder) TitleBarStyle(style TitleBarStyle) *Builder {
	b.d.TitleBarStyle = style
	return b
}

func (b *Builder) TrafficLightPosition(pos LogicalPosition) *Builder {
	b.d.TrafficLightPosition = &pos
	return b
}

func (b *Builder) Decorations(on bool) *Builder {
	b.d.Decorations = on
	return b
}

func (b *Builder) HiddenTitle(hidden bool) *Builder {
	b.d.HiddenTitle = hidden
	return b
}

func (b *Builder) platform(goos string) *Builder {
	b.d.Platform = goos
	return b
}

// Build validates the settings and returns the descriptor.
func (b *Builder) Build() (Descriptor, error) {
	d := b.d
	if strings.TrimSpace(d.Label) == "" {
		return Descriptor{}, ErrEmptyLabel
	}
	if !d.InnerSize.positive() {
		return Descriptor{}, fmt.Errorf("%w: inner size %gx%g", ErrInvalidSize, d.InnerSize.Width, d.InnerSize.Height)
	}
	// A zero min size means "unconstrained".
	if d.MinInnerSize != (LogicalSize{}) {
		if !d.MinInnerSize.positive() {
			return Descriptor{}, fmt.Errorf("%w: min inner size %gx%g", ErrInvalidSize, d.MinInnerSize.Width, d.MinInnerSize.Height)
		}
		if d.MinInnerSize.Width > d.InnerSize.Width || d.MinInnerSize.Height > d.InnerSize.Height {
			return Descriptor{}, ErrMinExceedsSize
		}
	}
	if d.TrafficLightPosition != nil {
		pos := *d.TrafficLightPosition
		d.TrafficLightPosition = &pos
	}
	return d, nil
}

// Main returns the builder for the application's main window on goos
// ("darwin", "windows", ...).
func Main(goos string) *Builder {
	b := NewBuilder(MainLabel).
		Title(MainTitle).
		InnerSize(MainSize.Width, MainSize.Height).
		MinInnerSize(MainMinSize.Width, MainMinSize.Height).
		platform(goos)

	switch goos {
	case "darwin":
		b = b.TitleBarStyle(TitleBarOverlay).
			TrafficLightPosition(MainTrafficLight)
	case "windows":
		b = b.Decorations(false)
	}

	return b.HiddenTitle(true)
}
