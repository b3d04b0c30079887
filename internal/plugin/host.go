package plugin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/arena-shell/internal/sync"
)

// Host keeps the ordered plugin registry and the command router.
type Host struct {
	mu      sync.RWMutex
	plugins []Plugin
	names   map[string]bool
	router  *mux.Router
}

// NewHost creates an empty host.
func NewHost() *Host {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, Errorf(http.StatusNotFound, "no such command: %s", r.URL.Path))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, Errorf(http.StatusMethodNotAllowed, "plugin commands must be invoked with POST"))
	})
	router.Use(logRequests)

	return &Host{
		names:  make(map[string]bool),
		router: router,
	}
}

// Plugin attaches p. Names are unique; Init errors are returned wrapped with
// the plugin name and leave the registry unchanged.
func (h *Host) Plugin(p Plugin) error {
	name := p.Name()
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}

	h.mu.Lock()
	if h.names[name] {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, name)
	}
	h.names[name] = true
	h.mu.Unlock()

	if err := p.Init(h); err != nil {
		h.mu.Lock()
		delete(h.names, name)
		h.mu.Unlock()
		return fmt.Errorf("plugin %s: %w", name, err)
	}

	h.mu.Lock()
	h.plugins = append(h.plugins, p)
	h.mu.Unlock()

	log.Debug().Str("plugin", name).Msg("plugin attached")
	return nil
}

// Has reports whether a plugin with the given name is attached.
func (h *Host) Has(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range h.plugins {
		if p.Name() == name {
			return true
		}
	}
	return false
}

// Names returns attached plugin names in attach order.
func (h *Host) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, len(h.plugins))
	for i, p := range h.plugins {
		names[i] = p.Name()
	}
	return names
}

// Handle registers a command for plugin.
func (h *Host) Handle(plugin, command string, fn CommandFunc) {
	path := fmt.Sprintf("%s/%s/%s", RoutePrefix, plugin, command)
	h.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		result, err := fn(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if result == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}).Methods(http.MethodPost)
}

// Handler returns the command router.
func (h *Host) Handler() http.Handler {
	return h.router
}

// Start passes the runtime context to every Starter in attach order.
func (h *Host) Start(ctx context.Context) {
	h.mu.RLock()
	plugins := append([]Plugin(nil), h.plugins...)
	h.mu.RUnlock()

	for _, p := range plugins {
		if s, ok := p.(Starter); ok {
			s.Start(ctx)
		}
	}
}

// Close closes plugins in reverse attach order and joins their errors.
func (h *Host) Close() error {
	h.mu.RLock()
	plugins := append([]Plugin(nil), h.plugins...)
	h.mu.RUnlock()

	var errs []error
	for i := len(plugins) - 1; i >= 0; i-- {
		if c, ok := plugins[i].(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("plugin %s: %w", plugins[i].Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("plugin command")
	})
}
