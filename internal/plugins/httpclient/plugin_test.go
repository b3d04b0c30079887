package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brianly1003/arena-shell/internal/plugin"
)

func newTestPlugin(t *testing.T, srv *httptest.Server) *Plugin {
	t.Helper()
	return New(Options{
		Allow:           []string{srv.URL + "/*"},
		Deny:            []string{srv.URL + "/private/*"},
		Timeout:         5 * time.Second,
		MaxRedirections: 2,
	})
}

func statusOf(err error) int {
	var pe *plugin.Error
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Auth", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	p := newTestPlugin(t, srv)
	resp, err := p.Fetch(context.Background(), FetchRequest{
		Method:  "post",
		URL:     srv.URL + "/v1/users",
		Headers: [][2]string{{"Authorization", "Bearer abc"}},
		Body:    []byte(`{"name":"x"}`),
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if resp.Status != http.StatusCreated || resp.StatusText != "Created" {
		t.Errorf("status = %d %s", resp.Status, resp.StatusText)
	}
	if string(resp.Body) != `{"name":"x"}` {
		t.Errorf("body = %s", resp.Body)
	}
	if resp.RID == "" {
		t.Error("rid should be set")
	}
	headers := map[string]string{}
	for _, kv := range resp.Headers {
		headers[kv[0]] = kv[1]
	}
	if headers["X-Method"] != "POST" {
		t.Errorf("method seen by server = %s", headers["X-Method"])
	}
	if headers["X-Auth"] != "Bearer abc" {
		t.Errorf("auth seen by server = %s", headers["X-Auth"])
	}
	if len(p.InFlight()) != 0 {
		t.Error("finished fetch should not stay in flight")
	}
}

func TestFetch_Scope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	p := newTestPlugin(t, srv)

	_, err := p.Fetch(context.Background(), FetchRequest{URL: srv.URL + "/private/keys"})
	if statusOf(err) != http.StatusForbidden {
		t.Errorf("denied url error = %v, want 403", err)
	}

	_, err = p.Fetch(context.Background(), FetchRequest{URL: "http://example.invalid/"})
	if statusOf(err) != http.StatusForbidden {
		t.Errorf("out-of-scope error = %v, want 403", err)
	}

	_, err = p.Fetch(context.Background(), FetchRequest{URL: "not a url"})
	if statusOf(err) != http.StatusBadRequest {
		t.Errorf("invalid url error = %v, want 400", err)
	}
}

func TestFetch_UserinfoHostIsNotTrusted(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	// The allowed origin appears only as userinfo; the real host is srv.
	p := New(Options{Allow: []string{"http://localhost:3000*"}, Timeout: time.Second})
	target := strings.Replace(srv.URL, "http://", "http://localhost:3000@", 1) + "/steal"

	_, err := p.Fetch(context.Background(), FetchRequest{URL: target})
	if statusOf(err) != http.StatusForbidden {
		t.Errorf("Fetch(%s) error = %v, want 403", target, err)
	}

	req, _ := http.NewRequest(http.MethodGet, target, nil)
	if _, err := p.Do(req); !errors.Is(err, ErrURLNotAllowed) {
		t.Errorf("Do(%s) error = %v, want ErrURLNotAllowed", target, err)
	}
	if hit {
		t.Error("request reached a host outside the scope")
	}
}

func TestFetch_RedirectOutOfScope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/private/secret", http.StatusFound)
	}))
	defer srv.Close()
	p := newTestPlugin(t, srv)

	_, err := p.Fetch(context.Background(), FetchRequest{URL: srv.URL + "/start"})
	if statusOf(err) != http.StatusForbidden {
		t.Errorf("redirect into denied scope error = %v, want 403", err)
	}
}

func TestFetch_TooManyRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()
	p := newTestPlugin(t, srv)

	zero := 0
	_, err := p.Fetch(context.Background(), FetchRequest{URL: srv.URL + "/loop", MaxRedirections: &zero})
	if statusOf(err) != http.StatusBadGateway || !strings.Contains(err.Error(), "too many redirects") {
		t.Errorf("error = %v, want too many redirects", err)
	}
}

func TestFetch_Cancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)
	p := newTestPlugin(t, srv)

	errc := make(chan error, 1)
	go func() {
		_, err := p.Fetch(context.Background(), FetchRequest{URL: srv.URL + "/slow"})
		errc <- err
	}()

	var rid string
	deadline := time.Now().Add(5 * time.Second)
	for rid == "" {
		if ids := p.InFlight(); len(ids) == 1 {
			rid = ids[0]
		} else if time.Now().After(deadline) {
			t.Fatal("fetch never became in flight")
		} else {
			time.Sleep(5 * time.Millisecond)
		}
	}

	if !p.Cancel(rid) {
		t.Fatal("Cancel() should find the in-flight request")
	}
	err := <-errc
	if statusOf(err) != StatusClientClosedRequest {
		t.Errorf("cancelled fetch error = %v, want 499", err)
	}
	if p.Cancel(rid) {
		t.Error("Cancel() after completion should report false")
	}
}

func TestFetch_MaxBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), 100))
	}))
	defer srv.Close()

	p := New(Options{Allow: []string{srv.URL + "/*"}, Timeout: time.Second, MaxBodyBytes: 10})
	resp, err := p.Fetch(context.Background(), FetchRequest{URL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(resp.Body) != 10 {
		t.Errorf("body length = %d, want 10", len(resp.Body))
	}
}

func TestDo_Scope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	p := newTestPlugin(t, srv)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/ok", nil)
	resp, err := p.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	if _, err := p.Do(req); !errors.Is(err, ErrURLNotAllowed) {
		t.Errorf("Do() error = %v, want ErrURLNotAllowed", err)
	}
}

func TestSetScope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	p := New(Options{Timeout: time.Second})

	if _, err := p.Fetch(context.Background(), FetchRequest{URL: srv.URL}); statusOf(err) != http.StatusForbidden {
		t.Fatalf("empty scope should deny, got %v", err)
	}

	p.SetScope([]string{srv.URL + "/*"}, nil)
	if _, err := p.Fetch(context.Background(), FetchRequest{URL: srv.URL}); err != nil {
		t.Errorf("Fetch() after SetScope error = %v", err)
	}
}

func TestCommands(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	h := plugin.NewHost()
	if err := h.Plugin(newTestPlugin(t, srv)); err != nil {
		t.Fatalf("attach: %v", err)
	}

	payload, _ := json.Marshal(FetchRequest{URL: srv.URL + "/greeting"})
	req := httptest.NewRequest(http.MethodPost, "/_plugin/http/fetch", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("fetch status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp FetchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("body = %q, want hello", resp.Body)
	}

	req = httptest.NewRequest(http.MethodPost, "/_plugin/http/cancel", strings.NewReader(`{"rid":"nope"}`))
	rec = httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cancel unknown rid status = %d, want 404", rec.Code)
	}
}
