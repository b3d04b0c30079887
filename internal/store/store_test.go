package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brianly1003/arena-shell/internal/plugin"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "store.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "b", "1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "a", "2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "b", "3"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	if v, err := s.Get(ctx, "b"); err != nil || v != "3" {
		t.Errorf("Get(b) = %q, %v; want 3", v, err)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if strings.Join(keys, ",") != "a,b" {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}

	if err := s.Delete(ctx, "a", "never-set"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Error("deleted key should be gone")
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if keys, _ := s.Keys(ctx); len(keys) != 0 {
		t.Errorf("Keys() after Clear = %v", keys)
	}
}

func TestStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "arena_refresh_token", "rt"); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if v, err := s.Get(ctx, "arena_refresh_token"); err != nil || v != "rt" {
		t.Errorf("Get() after reopen = %q, %v", v, err)
	}
}

func TestStore_Memory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	_ = s.Set(ctx, "k", "v")
	if v, _ := s.Get(ctx, "k"); v != "v" {
		t.Errorf("Get() = %q", v)
	}
}

func post(t *testing.T, h http.Handler, command, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/_plugin/store/"+command, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPlugin_Commands(t *testing.T) {
	h := plugin.NewHost()
	if err := h.Plugin(NewPlugin(openTemp(t))); err != nil {
		t.Fatal(err)
	}
	handler := h.Handler()

	rec := post(t, handler, "get", `{"key":"arena_session"}`)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"value":null}` {
		t.Errorf("get missing = %d %s", rec.Code, rec.Body.String())
	}

	if rec := post(t, handler, "set", `{"key":"arena_session","value":"{\"a\":1}"}`); rec.Code != http.StatusNoContent {
		t.Errorf("set status = %d", rec.Code)
	}

	rec = post(t, handler, "get", `{"key":"arena_session"}`)
	var got getResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Value == nil || *got.Value != `{"a":1}` {
		t.Errorf("get = %v", got.Value)
	}

	rec = post(t, handler, "keys", "")
	if !strings.Contains(rec.Body.String(), `"arena_session"`) {
		t.Errorf("keys = %s", rec.Body.String())
	}

	if rec := post(t, handler, "set", `{"value":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("set without key status = %d, want 400", rec.Code)
	}

	if rec := post(t, handler, "delete", `{"key":"arena_session"}`); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := post(t, handler, "clear", ""); rec.Code != http.StatusNoContent {
		t.Errorf("clear status = %d", rec.Code)
	}
}
