// Package httpclient is the HTTP client plugin. It lets the webview make
// requests that bypass browser CORS rules, restricted to a configured URL
// scope, and gives Go callers the same scoped client.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/arena-shell/internal/plugin"
	"github.com/brianly1003/arena-shell/internal/sync"
)

// Name is the plugin name.
const Name = "http"

// StatusClientClosedRequest is returned for fetches cancelled by the caller.
const StatusClientClosedRequest = 499

// Sentinel errors.
var (
	ErrURLNotAllowed    = errors.New("url not allowed on the configured scope")
	ErrCanceled         = errors.New("request cancelled")
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Options configures the plugin.
type Options struct {
	Allow           []string
	Deny            []string
	Timeout         time.Duration
	MaxRedirections int
	// MaxBodyBytes caps response bodies returned to the webview; 0 means no
	// limit.
	MaxBodyBytes int64
	// Transport overrides the default transport, mainly for tests.
	Transport http.RoundTripper
}

// FetchRequest is the payload of the fetch command. Body is base64 in JSON.
type FetchRequest struct {
	Method          string      `json:"method"`
	URL             string      `json:"url"`
	Headers         [][2]string `json:"headers,omitempty"`
	Body            []byte      `json:"body,omitempty"`
	TimeoutMS       int         `json:"timeout,omitempty"`
	MaxRedirections *int        `json:"maxRedirections,omitempty"`
}

// FetchResponse is the result of the fetch command.
type FetchResponse struct {
	RID        string      `json:"rid"`
	Status     int         `json:"status"`
	StatusText string      `json:"statusText"`
	URL        string      `json:"url"`
	Headers    [][2]string `json:"headers"`
	Body       []byte      `json:"body"`
}

// Plugin is the HTTP client plugin.
type Plugin struct {
	opts Options

	scopeMu sync.RWMutex
	scope   *Scope

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// New creates the plugin.
func New(opts Options) *Plugin {
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	return &Plugin{
		opts:     opts,
		scope:    NewScope(opts.Allow, opts.Deny),
		inflight: make(map[string]context.CancelFunc),
	}
}

func (p *Plugin) Name() string { return Name }

// Init registers the fetch and cancel commands.
func (p *Plugin) Init(h *plugin.Host) error {
	h.Handle(Name, "fetch", p.handleFetch)
	h.Handle(Name, "cancel", p.handleCancel)
	return nil
}

// SetScope replaces the URL scope.
func (p *Plugin) SetScope(allow, deny []string) {
	scope := NewScope(allow, deny)
	p.scopeMu.Lock()
	p.scope = scope
	p.scopeMu.Unlock()
	log.Info().Strs("allow", allow).Strs("deny", deny).Msg("http scope updated")
}

// Allowed reports whether u is inside the current scope.
func (p *Plugin) Allowed(u *url.URL) bool {
	p.scopeMu.RLock()
	defer p.scopeMu.RUnlock()
	return p.scope.Allowed(u)
}

// Do sends req with the plugin's client after checking the scope. It
// satisfies the Doer interface used by the API client.
func (p *Plugin) Do(req *http.Request) (*http.Response, error) {
	if !p.Allowed(req.URL) {
		return nil, fmt.Errorf("%w: %s", ErrURLNotAllowed, req.URL)
	}
	return p.client(p.opts.MaxRedirections, p.opts.Timeout).Do(req)
}

// Fetch performs a webview fetch. The request can be cancelled with Cancel
// using the returned rid while it is in flight.
func (p *Plugin) Fetch(ctx context.Context, fr FetchRequest) (*FetchResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(fr.Method))
	if method == "" {
		method = http.MethodGet
	}

	u, err := url.Parse(fr.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, plugin.Errorf(http.StatusBadRequest, "invalid url: %q", fr.URL)
	}
	if !p.Allowed(u) {
		return nil, plugin.Errorf(http.StatusForbidden, "%s: %s", ErrURLNotAllowed, u)
	}

	rid := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.track(rid, cancel)
	defer p.untrack(rid)

	timeout := p.opts.Timeout
	if fr.TimeoutMS > 0 {
		timeout = time.Duration(fr.TimeoutMS) * time.Millisecond
	}
	maxRedirects := p.opts.MaxRedirections
	if fr.MaxRedirections != nil {
		maxRedirects = *fr.MaxRedirections
	}

	var body io.Reader
	if len(fr.Body) > 0 {
		body = bytes.NewReader(fr.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, plugin.Errorf(http.StatusBadRequest, "invalid request: %v", err)
	}
	for _, kv := range fr.Headers {
		req.Header.Add(kv[0], kv[1])
	}

	start := time.Now()
	resp, err := p.client(maxRedirects, timeout).Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, &plugin.Error{Status: StatusClientClosedRequest, Message: ErrCanceled.Error()}
		}
		if errors.Is(err, ErrURLNotAllowed) {
			return nil, plugin.Errorf(http.StatusForbidden, "%v", err)
		}
		log.Warn().Err(err).Str("rid", rid).Str("url", u.String()).Msg("fetch failed")
		return nil, plugin.Errorf(http.StatusBadGateway, "fetch failed: %v", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if p.opts.MaxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, p.opts.MaxBodyBytes)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, &plugin.Error{Status: StatusClientClosedRequest, Message: ErrCanceled.Error()}
		}
		return nil, plugin.Errorf(http.StatusBadGateway, "reading response body: %v", err)
	}

	log.Debug().
		Str("rid", rid).
		Str("method", method).
		Str("url", u.String()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("fetch")

	return &FetchResponse{
		RID:        rid,
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		URL:        resp.Request.URL.String(),
		Headers:    flattenHeaders(resp.Header),
		Body:       data,
	}, nil
}

// Cancel aborts an in-flight fetch. It reports whether rid was found.
func (p *Plugin) Cancel(rid string) bool {
	p.mu.Lock()
	cancel, ok := p.inflight[rid]
	p.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// InFlight returns the ids of fetches currently running.
func (p *Plugin) InFlight() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.inflight))
	for id := range p.inflight {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close cancels every in-flight fetch.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, cancel := range p.inflight {
		cancel()
		delete(p.inflight, id)
	}
	return nil
}

func (p *Plugin) track(rid string, cancel context.CancelFunc) {
	p.mu.Lock()
	p.inflight[rid] = cancel
	p.mu.Unlock()
}

func (p *Plugin) untrack(rid string) {
	p.mu.Lock()
	delete(p.inflight, rid)
	p.mu.Unlock()
}

// client builds a client whose redirect policy enforces both the redirect
// limit and the scope.
func (p *Plugin) client(maxRedirects int, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: p.opts.Transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return ErrTooManyRedirects
			}
			if !p.Allowed(req.URL) {
				return fmt.Errorf("%w: %s", ErrURLNotAllowed, req.URL)
			}
			return nil
		},
	}
}

func flattenHeaders(h http.Header) [][2]string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, 0, len(h))
	for _, k := range keys {
		for _, v := range h[k] {
			out = append(out, [2]string{k, v})
		}
	}
	return out
}

func (p *Plugin) handleFetch(r *http.Request) (any, error) {
	var fr FetchRequest
	if err := plugin.Decode(r, &fr); err != nil {
		return nil, err
	}
	return p.Fetch(r.Context(), fr)
}

func (p *Plugin) handleCancel(r *http.Request) (any, error) {
	var body struct {
		RID string `json:"rid"`
	}
	if err := plugin.Decode(r, &body); err != nil {
		return nil, err
	}
	if !p.Cancel(body.RID) {
		return nil, plugin.Errorf(http.StatusNotFound, "no in-flight request with rid %q", body.RID)
	}
	return nil, nil
}
