package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brianly1003/arena-shell/internal/config"
)

func TestSummarizeDoctorChecks(t *testing.T) {
	checks := []doctorCheck{
		{ID: "a", Status: doctorStatusOK},
		{ID: "b", Status: doctorStatusWarn},
		{ID: "c", Status: doctorStatusFail},
		{ID: "d", Status: doctorStatusOK},
	}

	summary := summarizeDoctorChecks(checks)
	if summary.Total != 4 || summary.OK != 2 || summary.Warn != 1 || summary.Fail != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		summary doctorSummary
		want    doctorStatus
	}{
		{name: "all ok", summary: doctorSummary{Total: 2, OK: 2}, want: doctorStatusOK},
		{name: "warn only", summary: doctorSummary{Total: 2, OK: 1, Warn: 1}, want: doctorStatusWarn},
		{name: "fail takes precedence", summary: doctorSummary{Total: 3, OK: 1, Warn: 1, Fail: 1}, want: doctorStatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overallStatus(tt.summary); got != tt.want {
				t.Fatalf("overallStatus(%+v) = %q, want %q", tt.summary, got, tt.want)
			}
		})
	}
}

func TestCheckAPIScope(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		allow []string
		deny  []string
		want  doctorStatus
	}{
		{name: "allowed", base: "http://localhost:3000/v1", allow: []string{"http://localhost:3000/*"}, want: doctorStatusOK},
		{name: "not allowed", base: "https://api.example.com/v1", allow: []string{"http://localhost:3000/*"}, want: doctorStatusFail},
		{name: "denied", base: "http://localhost:3000/v1", allow: []string{"*"}, deny: []string{"http://localhost:3000/*"}, want: doctorStatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				API:  config.APIConfig{BaseURL: tt.base},
				HTTP: config.HTTPConfig{Allow: tt.allow, Deny: tt.deny},
			}
			if got := checkAPIScope(cfg).Status; got != tt.want {
				t.Fatalf("checkAPIScope() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckAPIReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := &config.Config{
		API:  config.APIConfig{BaseURL: srv.URL + "/v1"},
		HTTP: config.HTTPConfig{Allow: []string{srv.URL + "/*"}},
	}
	check := checkAPIReachable(context.Background(), cfg, 0)
	if check.Status != doctorStatusOK {
		t.Fatalf("reachable backend: %+v", check)
	}
	if check.Details["status_code"] != http.StatusNotFound {
		t.Errorf("status_code = %v", check.Details["status_code"])
	}

	srv.Close()
	if check := checkAPIReachable(context.Background(), cfg, 0); check.Status != doctorStatusWarn {
		t.Errorf("closed backend: %+v", check)
	}
}

func TestCheckStore(t *testing.T) {
	dir := t.TempDir()

	if check := checkStore(filepath.Join(dir, "store.db")); check.Status != doctorStatusOK {
		t.Errorf("fresh store: %+v", check)
	}

	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if check := checkStore(filepath.Join(blocker, "store.db")); check.Status != doctorStatusFail {
		t.Errorf("store under a file: %+v", check)
	}
}

func TestCheckLogDir(t *testing.T) {
	dir := t.TempDir()

	if check := checkLogDir(filepath.Join(dir, "logs")); check.Status != doctorStatusOK {
		t.Errorf("writable dir: %+v", check)
	}

	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if check := checkLogDir(filepath.Join(blocker, "logs")); check.Status != doctorStatusWarn {
		t.Errorf("dir under a file: %+v", check)
	}
}

func TestPrintDoctorText(t *testing.T) {
	var buf bytes.Buffer
	printDoctorText(&buf, doctorReport{
		Build:   "release",
		Overall: doctorStatusWarn,
		Summary: doctorSummary{Total: 1, Warn: 1},
		Checks: []doctorCheck{{
			ID:          "api.reachable",
			Status:      doctorStatusWarn,
			Message:     "Backend is not reachable",
			Remediation: "Start the backend",
		}},
	})

	out := buf.String()
	for _, want := range []string{"Backend is not reachable", "api.reachable", "Start the backend", "doctor finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
