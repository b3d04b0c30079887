package store

import (
	"errors"
	"net/http"

	"github.com/brianly1003/arena-shell/internal/plugin"
)

// Name is the plugin name.
const Name = "store"

// Plugin exposes a Store to the webview. It owns the store and closes it on
// shutdown.
type Plugin struct {
	store *Store
}

// NewPlugin wraps s.
func NewPlugin(s *Store) *Plugin {
	return &Plugin{store: s}
}

func (p *Plugin) Name() string { return Name }

// Store returns the underlying store.
func (p *Plugin) Store() *Store { return p.store }

func (p *Plugin) Init(h *plugin.Host) error {
	h.Handle(Name, "get", p.handleGet)
	h.Handle(Name, "set", p.handleSet)
	h.Handle(Name, "delete", p.handleDelete)
	h.Handle(Name, "keys", p.handleKeys)
	h.Handle(Name, "clear", p.handleClear)
	return nil
}

func (p *Plugin) Close() error {
	return p.store.Close()
}

type keyRequest struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// getResponse mirrors localStorage.getItem: a missing key yields null.
type getResponse struct {
	Value *string `json:"value"`
}

func decodeKey(r *http.Request) (keyRequest, error) {
	var req keyRequest
	if err := plugin.Decode(r, &req); err != nil {
		return req, err
	}
	if req.Key == "" {
		return req, plugin.Errorf(http.StatusBadRequest, "key is required")
	}
	return req, nil
}

func (p *Plugin) handleGet(r *http.Request) (any, error) {
	req, err := decodeKey(r)
	if err != nil {
		return nil, err
	}
	value, err := p.store.Get(r.Context(), req.Key)
	if errors.Is(err, ErrNotFound) {
		return getResponse{}, nil
	}
	if err != nil {
		return nil, err
	}
	return getResponse{Value: &value}, nil
}

func (p *Plugin) handleSet(r *http.Request) (any, error) {
	req, err := decodeKey(r)
	if err != nil {
		return nil, err
	}
	return nil, p.store.Set(r.Context(), req.Key, req.Value)
}

func (p *Plugin) handleDelete(r *http.Request) (any, error) {
	req, err := decodeKey(r)
	if err != nil {
		return nil, err
	}
	return nil, p.store.Delete(r.Context(), req.Key)
}

func (p *Plugin) handleKeys(r *http.Request) (any, error) {
	keys, err := p.store.Keys(r.Context())
	if err != nil {
		return nil, err
	}
	return map[string][]string{"keys": keys}, nil
}

func (p *Plugin) handleClear(r *http.Request) (any, error) {
	return nil, p.store.Clear(r.Context())
}
