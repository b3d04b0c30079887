// Package plugin hosts the application's plugins. Plugins register commands
// on a shared router that the webview reaches through the asset server at
// /_plugin/{name}/{command}.
package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// RoutePrefix is the path prefix for plugin commands.
const RoutePrefix = "/_plugin"

// Plugin is a named unit of functionality attached to a Host.
type Plugin interface {
	Name() string
	// Init is called once when the plugin is attached. An error aborts the
	// attach and is returned to the caller of Host.Plugin.
	Init(h *Host) error
}

// Starter is implemented by plugins that need the framework's runtime
// context.
type Starter interface {
	Start(ctx context.Context)
}

// Closer is implemented by plugins holding resources.
type Closer interface {
	Close() error
}

// CommandFunc handles a plugin command. The returned value is encoded as the
// JSON response body; a nil value yields 204 No Content.
type CommandFunc func(r *http.Request) (any, error)

// Sentinel errors.
var (
	ErrDuplicatePlugin = errors.New("plugin already attached")
	ErrInvalidName     = errors.New("plugin name cannot be empty")
)

// Error is a command error carrying an HTTP status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf returns an *Error with the given status.
func Errorf(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Decode reads the JSON request body into v. An empty body leaves v
// untouched.
func Decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return Errorf(http.StatusBadRequest, "invalid request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes {"message": "..."}, the shape the frontend reads error
// text from.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var pe *Error
	if errors.As(err, &pe) {
		status = pe.Status
	}
	writeJSON(w, status, map[string]string{"message": err.Error()})
}
