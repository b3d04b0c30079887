package logplugin

import (
	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/logger"
)

// WailsLogger adapts the plugin to the framework's logger interface.
func (p *Plugin) WailsLogger() logger.Logger {
	return &wailsLogger{l: p.logger.With().Str("source", "wails").Logger()}
}

// WailsLevel maps the plugin level onto the framework's levels.
func (p *Plugin) WailsLevel() logger.LogLevel {
	switch {
	case p.cfg.level <= zerolog.TraceLevel:
		return logger.TRACE
	case p.cfg.level == zerolog.DebugLevel:
		return logger.DEBUG
	case p.cfg.level == zerolog.InfoLevel:
		return logger.INFO
	case p.cfg.level == zerolog.WarnLevel:
		return logger.WARNING
	default:
		return logger.ERROR
	}
}

type wailsLogger struct {
	l zerolog.Logger
}

func (w *wailsLogger) Print(message string)   { w.l.Log().Msg(message) }
func (w *wailsLogger) Trace(message string)   { w.l.Trace().Msg(message) }
func (w *wailsLogger) Debug(message string)   { w.l.Debug().Msg(message) }
func (w *wailsLogger) Info(message string)    { w.l.Info().Msg(message) }
func (w *wailsLogger) Warning(message string) { w.l.Warn().Msg(message) }
func (w *wailsLogger) Error(message string)   { w.l.Error().Msg(message) }

// Fatal logs at fatal level; the framework exits on its own.
func (w *wailsLogger) Fatal(message string) { w.l.WithLevel(zerolog.FatalLevel).Msg(message) }
