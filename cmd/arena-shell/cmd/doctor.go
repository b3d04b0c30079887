package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/brianly1003/arena-shell/internal/buildmode"
	"github.com/brianly1003/arena-shell/internal/config"
	"github.com/brianly1003/arena-shell/internal/plugins/httpclient"
	"github.com/brianly1003/arena-shell/internal/store"
)

var (
	doctorJSON        bool
	doctorStrict      bool
	doctorHTTPTimeout int
)

type doctorStatus string

const (
	doctorStatusOK   doctorStatus = "ok"
	doctorStatusWarn doctorStatus = "warn"
	doctorStatusFail doctorStatus = "fail"
)

type doctorCheck struct {
	ID          string         `json:"id"`
	Status      doctorStatus   `json:"status"`
	Message     string         `json:"message"`
	Details     map[string]any `json:"details,omitempty"`
	Remediation string         `json:"remediation,omitempty"`
}

type doctorSummary struct {
	Total int `json:"total"`
	OK    int `json:"ok"`
	Warn  int `json:"warn"`
	Fail  int `json:"fail"`
}

type doctorReport struct {
	Version     string        `json:"version"`
	Build       string        `json:"build"`
	GeneratedAt string        `json:"generated_at"`
	Overall     doctorStatus  `json:"overall_status"`
	Summary     doctorSummary `json:"summary"`
	Checks      []doctorCheck `json:"checks"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run local diagnostics with remediation hints",
	Long: `Run diagnostics against the local arena-shell setup: config,
storage, log directory and the configured backend.

Use --json for machine-readable output.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output machine-readable JSON")
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "return non-zero on warnings")
	doctorCmd.Flags().IntVar(&doctorHTTPTimeout, "http-timeout", 2, "backend reachability timeout in seconds")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	report := collectDoctorReport(cmd.Context())

	if doctorJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printDoctorText(os.Stderr, report)
	}

	if report.Summary.Fail > 0 {
		return fmt.Errorf("doctor found %d failing check(s)", report.Summary.Fail)
	}
	if doctorStrict && report.Summary.Warn > 0 {
		return fmt.Errorf("doctor strict mode failed with %d warning(s)", report.Summary.Warn)
	}
	return nil
}

func collectDoctorReport(ctx context.Context) doctorReport {
	if ctx == nil {
		ctx = context.Background()
	}
	checks := make([]doctorCheck, 0, 6)

	cfg, cfgCheck := checkConfigLoad(cfgFile)
	checks = append(checks, cfgCheck)
	if cfg == nil {
		cfg = config.Default()
	}

	checks = append(checks, checkConfigDirectory())
	checks = append(checks, checkStore(cfg.Store.Path))
	checks = append(checks, checkLogDir(cfg.Logging.Dir))

	scopeCheck := checkAPIScope(cfg)
	checks = append(checks, scopeCheck)
	if scopeCheck.Status == doctorStatusOK {
		checks = append(checks, checkAPIReachable(ctx, cfg, time.Duration(doctorHTTPTimeout)*time.Second))
	}

	summary := summarizeDoctorChecks(checks)
	return doctorReport{
		Version:     version,
		Build:       buildmode.Name(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Overall:     overallStatus(summary),
		Summary:     summary,
		Checks:      checks,
	}
}

func checkConfigLoad(path string) (*config.Config, doctorCheck) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, doctorCheck{
			ID:          "config.load",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to load config: %v", err),
			Details:     map[string]any{"search_paths": configSearchPaths(path)},
			Remediation: "Fix the config file, or run `arena-shell config init --force` to regenerate defaults.",
		}
	}

	msg := "Configuration loaded using built-in defaults and environment overrides"
	source := config.ConfigFileUsed(path)
	if source != "" {
		msg = "Configuration loaded successfully"
	}
	return cfg, doctorCheck{
		ID:      "config.load",
		Status:  doctorStatusOK,
		Message: msg,
		Details: map[string]any{"loaded_from": source},
	}
}

func checkConfigDirectory() doctorCheck {
	dir, err := config.GetConfigDir()
	if err != nil {
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to resolve config directory: %v", err),
			Remediation: "Verify your HOME environment.",
		}
	}

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusWarn,
			Message:     "Config directory does not exist yet",
			Details:     map[string]any{"path": dir},
			Remediation: "Run `arena-shell config init` or open the window once.",
		}
	case err != nil:
		return doctorCheck{
			ID:      "config.directory",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Failed to inspect config directory: %v", err),
			Details: map[string]any{"path": dir},
		}
	case !info.IsDir():
		return doctorCheck{
			ID:          "config.directory",
			Status:      doctorStatusFail,
			Message:     "Config path exists but is not a directory",
			Details:     map[string]any{"path": dir},
			Remediation: "Remove the file so the directory can be created.",
		}
	}

	return doctorCheck{
		ID:      "config.directory",
		Status:  doctorStatusOK,
		Message: "Config directory exists",
		Details: map[string]any{"path": dir},
	}
}

func checkStore(path string) doctorCheck {
	st, err := store.Open(path)
	if err != nil {
		return doctorCheck{
			ID:          "store.open",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Failed to open store: %v", err),
			Details:     map[string]any{"path": path},
			Remediation: "Check permissions on the store directory, or set `store.path`.",
		}
	}
	defer func() { _ = st.Close() }()

	keys, err := st.Keys(context.Background())
	if err != nil {
		return doctorCheck{
			ID:          "store.open",
			Status:      doctorStatusFail,
			Message:     fmt.Sprintf("Store is not readable: %v", err),
			Details:     map[string]any{"path": path},
			Remediation: "Delete the store file; it will be recreated (you will be signed out).",
		}
	}

	return doctorCheck{
		ID:      "store.open",
		Status:  doctorStatusOK,
		Message: "Store is readable",
		Details: map[string]any{"path": path, "keys": len(keys)},
	}
}

func checkLogDir(dir string) doctorCheck {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return doctorCheck{
			ID:          "logging.dir",
			Status:      doctorStatusWarn,
			Message:     fmt.Sprintf("Log directory is not writable: %v", err),
			Details:     map[string]any{"path": dir},
			Remediation: "Debug builds will fail to start. Set `logging.dir` to a writable directory.",
		}
	}

	tmp, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return doctorCheck{
			ID:          "logging.dir",
			Status:      doctorStatusWarn,
			Message:     fmt.Sprintf("Log directory is not writable: %v", err),
			Details:     map[string]any{"path": dir},
			Remediation: "Debug builds will fail to start. Set `logging.dir` to a writable directory.",
		}
	}
	_ = tmp.Close()
	_ = os.Remove(tmp.Name())

	return doctorCheck{
		ID:      "logging.dir",
		Status:  doctorStatusOK,
		Message: "Log directory is writable",
		Details: map[string]any{"path": dir, "file": filepath.Join(dir, "arena-shell.log")},
	}
}

func checkAPIScope(cfg *config.Config) doctorCheck {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return doctorCheck{
			ID:      "api.scope",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("api.base_url is not a URL: %v", err),
		}
	}

	if !httpclient.NewScope(cfg.HTTP.Allow, cfg.HTTP.Deny).Allowed(u) {
		return doctorCheck{
			ID:      "api.scope",
			Status:  doctorStatusFail,
			Message: "api.base_url is outside the HTTP allow list",
			Details: map[string]any{
				"base_url": cfg.API.BaseURL,
				"allow":    cfg.HTTP.Allow,
				"deny":     cfg.HTTP.Deny,
			},
			Remediation: fmt.Sprintf("Add %q to `http.allow`.", cfg.API.BaseURL+"/*"),
		}
	}

	return doctorCheck{
		ID:      "api.scope",
		Status:  doctorStatusOK,
		Message: "api.base_url is inside the HTTP allow list",
		Details: map[string]any{"base_url": cfg.API.BaseURL},
	}
}

// checkAPIReachable treats any HTTP response as reachable; only transport
// errors warn.
func checkAPIReachable(ctx context.Context, cfg *config.Config, timeout time.Duration) doctorCheck {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	client := httpclient.New(httpclient.Options{
		Allow:   cfg.HTTP.Allow,
		Deny:    cfg.HTTP.Deny,
		Timeout: timeout,
	})
	defer func() { _ = client.Close() }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.API.BaseURL, nil)
	if err != nil {
		return doctorCheck{
			ID:      "api.reachable",
			Status:  doctorStatusFail,
			Message: fmt.Sprintf("Failed to build request: %v", err),
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return doctorCheck{
			ID:          "api.reachable",
			Status:      doctorStatusWarn,
			Message:     fmt.Sprintf("Backend is not reachable: %v", err),
			Details:     map[string]any{"url": cfg.API.BaseURL},
			Remediation: "Start the backend or update `api.base_url`.",
		}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	return doctorCheck{
		ID:      "api.reachable",
		Status:  doctorStatusOK,
		Message: "Backend is reachable",
		Details: map[string]any{"url": cfg.API.BaseURL, "status_code": resp.StatusCode},
	}
}

func summarizeDoctorChecks(checks []doctorCheck) doctorSummary {
	summary := doctorSummary{Total: len(checks)}
	for _, check := range checks {
		switch check.Status {
		case doctorStatusOK:
			summary.OK++
		case doctorStatusWarn:
			summary.Warn++
		case doctorStatusFail:
			summary.Fail++
		}
	}
	return summary
}

func overallStatus(summary doctorSummary) doctorStatus {
	if summary.Fail > 0 {
		return doctorStatusFail
	}
	if summary.Warn > 0 {
		return doctorStatusWarn
	}
	return doctorStatusOK
}

func printDoctorText(w io.Writer, report doctorReport) {
	logger := slog.New(tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))

	for _, check := range report.Checks {
		attrs := []any{"check", check.ID}
		for k, v := range check.Details {
			attrs = append(attrs, k, v)
		}
		if check.Remediation != "" {
			attrs = append(attrs, "hint", check.Remediation)
		}

		switch check.Status {
		case doctorStatusFail:
			logger.Error(check.Message, attrs...)
		case doctorStatusWarn:
			logger.Warn(check.Message, attrs...)
		default:
			logger.Info(check.Message, attrs...)
		}
	}

	logger.Info("doctor finished",
		"overall", string(report.Overall),
		"ok", report.Summary.OK,
		"warn", report.Summary.Warn,
		"fail", report.Summary.Fail,
		"build", report.Build,
	)
}
