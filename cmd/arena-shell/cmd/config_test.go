package cmd

import (
	"reflect"
	"testing"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  any
	}{
		{"http.allow", "https://a.example/*, http://localhost:3000/*", []string{"https://a.example/*", "http://localhost:3000/*"}},
		{"http.deny", "", []string(nil)},
		{"http.timeout_seconds", "60", 60},
		{"logging.level", "debug", "debug"},
		{"api.base_url", "https://api.example.com/v1", "https://api.example.com/v1"},
		{"some.flag", "true", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := parseValue(tt.key, tt.value); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseValue(%q, %q) = %#v, want %#v", tt.key, tt.value, got, tt.want)
			}
		})
	}
}

func TestSetNestedValue(t *testing.T) {
	data := map[string]any{
		"api": map[string]any{"device_id": "web-app"},
	}

	if err := setNestedValue(data, "api.base_url", "https://api.example.com/v1"); err != nil {
		t.Fatal(err)
	}
	api := data["api"].(map[string]any)
	if api["base_url"] != "https://api.example.com/v1" || api["device_id"] != "web-app" {
		t.Errorf("api = %v", api)
	}

	if err := setNestedValue(data, "session.min_refresh_seconds", "30"); err != nil {
		t.Fatal(err)
	}
	if data["session"].(map[string]any)["min_refresh_seconds"] != 30 {
		t.Errorf("session = %v", data["session"])
	}

	if err := setNestedValue(data, "api.base_url.scheme", "x"); err == nil {
		t.Error("setting below a scalar should fail")
	}
	if err := setNestedValue(data, "toplevel", "x"); err == nil {
		t.Error("keys without a section should be rejected")
	}
}
