// Package app assembles the desktop shell: it attaches the plugins, builds
// the main window and hands control to the Wails event loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/brianly1003/arena-shell/internal/buildmode"
	"github.com/brianly1003/arena-shell/internal/config"
	"github.com/brianly1003/arena-shell/internal/plugin"
	"github.com/brianly1003/arena-shell/internal/plugins/httpclient"
	"github.com/brianly1003/arena-shell/internal/plugins/logplugin"
	"github.com/brianly1003/arena-shell/internal/session"
	"github.com/brianly1003/arena-shell/internal/store"
	"github.com/brianly1003/arena-shell/internal/sync"
	"github.com/brianly1003/arena-shell/internal/window"
)

// ErrAlreadyRun is returned by a second call to Run.
var ErrAlreadyRun = errors.New("application has already been run")

// Runner starts the native event loop and blocks until it exits.
type Runner func(opts *options.App) error

// App is the desktop shell.
type App struct {
	cfg        *config.Config
	configPath string
	assets     fs.FS
	version    string

	// Resolved at compile time in production; overridden by tests.
	goos   string
	debug  bool
	runner Runner

	host    *plugin.Host
	http    *httpclient.Plugin
	logger  *logplugin.Plugin
	session *session.Plugin
	window  window.Descriptor

	mu  sync.Mutex
	ran bool
}

// Option configures an App.
type Option func(*App)

// WithConfigPath sets the config file watched for HTTP scope changes.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithRunner replaces wails.Run.
func WithRunner(r Runner) Option {
	return func(a *App) { a.runner = r }
}

// New creates the application. assets is the embedded frontend bundle.
func New(cfg *config.Config, assets fs.FS, version string, opts ...Option) *App {
	a := &App{
		cfg:     cfg,
		assets:  assets,
		version: version,
		goos:    runtime.GOOS,
		debug:   buildmode.Debug,
		runner:  wails.Run,
		host:    plugin.NewHost(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run attaches the plugins, runs setup once and blocks in the event loop.
func (a *App) Run() error {
	a.mu.Lock()
	if a.ran {
		a.mu.Unlock()
		return ErrAlreadyRun
	}
	a.ran = true
	a.mu.Unlock()

	if err := a.attachHTTP(); err != nil {
		return fmt.Errorf("error while running arena-shell application: %w", err)
	}

	opts, err := a.setup()
	if err != nil {
		return err
	}

	log.Info().
		Str("version", a.version).
		Str("build", buildmode.Name()).
		Str("platform", a.goos).
		Strs("plugins", a.host.Names()).
		Msg("starting arena-shell")

	if err := a.runner(opts); err != nil {
		return fmt.Errorf("error while running arena-shell application: %w", err)
	}
	return nil
}

// PluginNames lists the plugins Run attaches, in attach order, for the
// given build mode.
func PluginNames(debug bool) []string {
	names := []string{httpclient.Name}
	if debug {
		names = append(names, logplugin.Name)
	}
	return append(names, store.Name, session.Name)
}

// Host returns the plugin registry.
func (a *App) Host() *plugin.Host { return a.host }

// Window returns the main window descriptor built during setup.
func (a *App) Window() window.Descriptor { return a.window }

func (a *App) attachHTTP() error {
	a.http = httpclient.New(httpclient.Options{
		Allow:           a.cfg.HTTP.Allow,
		Deny:            a.cfg.HTTP.Deny,
		Timeout:         time.Duration(a.cfg.HTTP.TimeoutSeconds) * time.Second,
		MaxRedirections: a.cfg.HTTP.MaxRedirections,
	})
	return a.host.Plugin(a.http)
}

// setup builds the main window and attaches the remaining plugins. A window
// that cannot be built is fatal; plugin attach errors abort startup.
func (a *App) setup() (*options.App, error) {
	desc, err := window.Main(a.goos).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create main window: %w", err)
	}
	a.window = desc

	if a.debug {
		a.logger = logplugin.NewBuilder().
			Level(zerolog.InfoLevel).
			Format(a.cfg.Logging.Format).
			LogDir(a.cfg.Logging.Dir).
			Rotation(a.cfg.Logging.MaxSizeMB, a.cfg.Logging.MaxBackups, a.cfg.Logging.MaxAgeDays).
			Build()
		if err := a.host.Plugin(a.logger); err != nil {
			return nil, fmt.Errorf("error while running arena-shell application: %w", err)
		}
	} else {
		log.Logger = zerolog.Nop()
	}

	st, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("error while running arena-shell application: %w", err)
	}
	if err := a.host.Plugin(store.NewPlugin(st)); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("error while running arena-shell application: %w", err)
	}

	a.session = session.NewPlugin(session.Options{
		BaseURL:     a.cfg.API.BaseURL,
		DeviceID:    a.cfg.API.DeviceID,
		Doer:        a.http,
		Store:       st,
		RefreshLead: time.Duration(a.cfg.Session.RefreshLeadSeconds) * time.Second,
		MinRefresh:  time.Duration(a.cfg.Session.MinRefreshSeconds) * time.Second,
	})
	if err := a.host.Plugin(a.session); err != nil {
		return nil, fmt.Errorf("error while running arena-shell application: %w", err)
	}

	a.watchConfig()

	opts := &options.App{
		AssetServer: &assetserver.Options{
			Assets:  a.assets,
			Handler: a.host.Handler(),
		},
		OnStartup:  a.startup,
		OnShutdown: a.shutdown,
	}
	desc.Apply(opts)

	if a.logger != nil {
		opts.Logger = a.logger.WailsLogger()
		opts.LogLevel = a.logger.WailsLevel()
	}

	return opts, nil
}

func (a *App) watchConfig() {
	watching, err := config.Watch(a.configPath, func(cfg *config.Config) {
		a.http.SetScope(cfg.HTTP.Allow, cfg.HTTP.Deny)
	})
	if err != nil {
		log.Warn().Err(err).Msg("config watch disabled")
		return
	}
	if watching {
		log.Debug().Msg("watching config for HTTP scope changes")
	}
}

func (a *App) startup(ctx context.Context) {
	a.host.Start(ctx)
	log.Info().Msg("window ready")
}

func (a *App) shutdown(ctx context.Context) {
	log.Info().Msg("shutting down")
	if err := a.host.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close plugins")
	}
}
