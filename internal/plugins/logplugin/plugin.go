// Package logplugin is the logging plugin. Once attached it becomes the
// process-wide zerolog sink, writes to stdout and a rotating file in the log
// directory, accepts log records from the webview and serves as the
// framework's logger.
package logplugin

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/brianly1003/arena-shell/internal/plugin"
)

// Name is the plugin name.
const Name = "log"

// FileName is the log file created in the log directory.
const FileName = "arena-shell.log"

// Builder configures the plugin.
type Builder struct {
	level      zerolog.Level
	stdout     io.Writer
	format     string
	dir        string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	global     bool
}

// NewBuilder returns a builder that logs everything to stdout as console
// output and installs itself as the global logger.
func NewBuilder() *Builder {
	return &Builder{
		level:      zerolog.TraceLevel,
		stdout:     os.Stdout,
		format:     "console",
		maxSizeMB:  10,
		maxBackups: 3,
		maxAgeDays: 28,
		global:     true,
	}
}

// Level sets the minimum level.
func (b *Builder) Level(level zerolog.Level) *Builder {
	b.level = level
	return b
}

// Stdout sets the console target; nil disables it.
func (b *Builder) Stdout(w io.Writer) *Builder {
	b.stdout = w
	return b
}

// Format selects "console" or "json" for the stdout target. The file target
// is always JSON.
func (b *Builder) Format(format string) *Builder {
	b.format = format
	return b
}

// LogDir enables the file target in dir.
func (b *Builder) LogDir(dir string) *Builder {
	b.dir = dir
	return b
}

// Rotation sets lumberjack rotation limits.
func (b *Builder) Rotation(maxSizeMB, maxBackups, maxAgeDays int) *Builder {
	b.maxSizeMB = maxSizeMB
	b.maxBackups = maxBackups
	b.maxAgeDays = maxAgeDays
	return b
}

// Global controls whether Init replaces zerolog's global logger.
func (b *Builder) Global(on bool) *Builder {
	b.global = on
	return b
}

// Build returns the plugin. Targets are opened when the plugin is attached.
func (b *Builder) Build() *Plugin {
	cfg := *b
	return &Plugin{cfg: cfg, logger: zerolog.Nop()}
}

// Plugin is the logging plugin.
type Plugin struct {
	cfg    Builder
	logger zerolog.Logger
	file   *lumberjack.Logger
}

func (p *Plugin) Name() string { return Name }

// Init opens the targets. Failing to prepare the log directory fails the
// attach.
func (p *Plugin) Init(h *plugin.Host) error {
	var writers []io.Writer

	if p.cfg.stdout != nil {
		if p.cfg.format == "json" {
			writers = append(writers, p.cfg.stdout)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{Out: p.cfg.stdout, TimeFormat: time.Kitchen})
		}
	}

	if p.cfg.dir != "" {
		if err := os.MkdirAll(p.cfg.dir, 0755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		path := filepath.Join(p.cfg.dir, FileName)
		// lumberjack opens lazily; open it now so an unwritable directory
		// fails the attach instead of the first log call.
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		_ = f.Close()

		p.file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    p.cfg.maxSizeMB,
			MaxBackups: p.cfg.maxBackups,
			MaxAge:     p.cfg.maxAgeDays,
		}
		writers = append(writers, p.file)
	}

	p.logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(p.cfg.level).
		With().
		Timestamp().
		Logger()

	if p.cfg.global {
		log.Logger = p.logger
	}

	h.Handle(Name, "log", p.handleLog)
	return nil
}

// Logger returns the plugin's logger.
func (p *Plugin) Logger() zerolog.Logger {
	return p.logger
}

// Level returns the configured minimum level.
func (p *Plugin) Level() zerolog.Level {
	return p.cfg.level
}

// Dir returns the log directory, or "" when the file target is off.
func (p *Plugin) Dir() string {
	return p.cfg.dir
}

// Close flushes and closes the file target.
func (p *Plugin) Close() error {
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// Record is a log entry sent from the webview.
type Record struct {
	Level     Level             `json:"level"`
	Message   string            `json:"message"`
	Location  string            `json:"location,omitempty"`
	File      string            `json:"file,omitempty"`
	Line      int               `json:"line,omitempty"`
	KeyValues map[string]string `json:"keyValues,omitempty"`
}

// Write logs r through the plugin's level filter.
func (p *Plugin) Write(r Record) {
	ev := p.logger.WithLevel(zerolog.Level(r.Level)).Str("source", "webview")
	if r.Location != "" {
		ev = ev.Str("location", r.Location)
	}
	if r.File != "" {
		ev = ev.Str("file", r.File).Int("line", r.Line)
	}
	for k, v := range r.KeyValues {
		ev = ev.Str(k, v)
	}
	ev.Msg(r.Message)
}

func (p *Plugin) handleLog(r *http.Request) (any, error) {
	var rec Record
	rec.Level = Level(zerolog.InfoLevel)
	if err := plugin.Decode(r, &rec); err != nil {
		return nil, err
	}
	p.Write(rec)
	return nil, nil
}

// Level accepts either a level name ("info") or the numeric webview levels
// 1 (trace) through 5 (error).
type Level zerolog.Level

// UnmarshalJSON implements json.Unmarshaler.
func (l *Level) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		lvl, err := zerolog.ParseLevel(strings.ToLower(name))
		if err != nil {
			return err
		}
		*l = Level(lvl)
		return nil
	}

	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid log level %s", data)
	}
	if n < 1 || n > 5 {
		return fmt.Errorf("log level %d out of range 1-5", n)
	}
	// 1 trace, 2 debug, 3 info, 4 warn, 5 error
	*l = Level(zerolog.Level(n - 2))
	return nil
}
