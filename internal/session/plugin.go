package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/brianly1003/arena-shell/internal/apiclient"
	"github.com/brianly1003/arena-shell/internal/plugin"
	"github.com/brianly1003/arena-shell/internal/sync"
)

// Name is the plugin name.
const Name = "session"

// Plugin exposes a Manager to the webview and forwards session changes as
// runtime events once the framework has started.
type Plugin struct {
	manager *Manager

	mu  sync.RWMutex
	ctx context.Context
}

// NewPlugin builds the manager from opts. opts.Emit is replaced by the
// plugin's event forwarder.
func NewPlugin(opts Options) *Plugin {
	p := &Plugin{}
	opts.Emit = p.emit
	p.manager = NewManager(opts)
	return p
}

func (p *Plugin) Name() string { return Name }

// Manager returns the session manager.
func (p *Plugin) Manager() *Manager { return p.manager }

func (p *Plugin) Init(h *plugin.Host) error {
	h.Handle(Name, "login", p.handleLogin)
	h.Handle(Name, "logout", p.handleLogout)
	h.Handle(Name, "refresh", p.handleRefresh)
	h.Handle(Name, "current", p.handleCurrent)
	h.Handle(Name, "request", p.handleRequest)
	return nil
}

// Start records the runtime context and restores the persisted session in
// the background.
func (p *Plugin) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()

	go p.manager.Restore(ctx)
}

func (p *Plugin) Close() error {
	return p.manager.Close()
}

func (p *Plugin) emit(event string, data any) {
	p.mu.RLock()
	ctx := p.ctx
	p.mu.RUnlock()
	if ctx == nil {
		return
	}
	runtime.EventsEmit(ctx, event, data)
}

func (p *Plugin) handleLogin(r *http.Request) (any, error) {
	var tokens Tokens
	if err := plugin.Decode(r, &tokens); err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return nil, plugin.Errorf(http.StatusBadRequest, "accessToken and refreshToken are required")
	}

	s, err := p.manager.Login(r.Context(), tokens)
	if err != nil {
		return nil, loginError(err)
	}
	return s, nil
}

func loginError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidToken):
		return plugin.Errorf(http.StatusBadRequest, "%v", err)
	case errors.Is(err, apiclient.ErrUnauthorized):
		return plugin.Errorf(http.StatusUnauthorized, "%v", err)
	default:
		return plugin.Errorf(http.StatusBadGateway, "%v", err)
	}
}

func (p *Plugin) handleLogout(r *http.Request) (any, error) {
	p.manager.Logout(r.Context())
	return nil, nil
}

func (p *Plugin) handleRefresh(r *http.Request) (any, error) {
	return map[string]bool{"refreshed": p.manager.Refresh(r.Context())}, nil
}

func (p *Plugin) handleCurrent(r *http.Request) (any, error) {
	return map[string]*Session{"session": p.manager.Current()}, nil
}

// APIRequest is an authenticated call to the backend made on behalf of the
// webview.
type APIRequest struct {
	Method   string          `json:"method"`
	Endpoint string          `json:"endpoint"`
	Body     json.RawMessage `json:"body,omitempty"`
}

func (p *Plugin) handleRequest(r *http.Request) (any, error) {
	var req APIRequest
	if err := plugin.Decode(r, &req); err != nil {
		return nil, err
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	req.Method = strings.ToUpper(req.Method)
	if !strings.HasPrefix(req.Endpoint, "/") {
		return nil, plugin.Errorf(http.StatusBadRequest, "endpoint must start with /")
	}
	if p.manager.Current() == nil {
		return nil, plugin.Errorf(http.StatusUnauthorized, "not signed in")
	}

	var data any
	if len(req.Body) > 0 {
		data = req.Body
	}
	var out json.RawMessage
	if err := p.manager.Client().Do(r.Context(), req.Method, req.Endpoint, data, &out); err != nil {
		return nil, requestError(err)
	}
	return map[string]json.RawMessage{"data": out}, nil
}

func requestError(err error) error {
	var se *apiclient.StatusError
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		return plugin.Errorf(http.StatusUnauthorized, "%v", err)
	case errors.As(err, &se):
		return plugin.Errorf(se.Status, "%s", se.Message)
	default:
		return plugin.Errorf(http.StatusBadGateway, "%v", err)
	}
}
