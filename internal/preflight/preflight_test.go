package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"payloadkeeper/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBridge_Running(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckBridge(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckBridge_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := CheckBridge(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	if result.Passed || !strings.Contains(result.Detail, "503") {
		t.Fatalf("expected unhealthy result, got %+v", result)
	}
}

func TestCheckBridge_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	result := CheckBridge(context.Background(), addr)
	if result.Passed || !strings.Contains(result.Detail, "not running") {
		t.Fatalf("expected not running, got %+v", result)
	}
	if CheckBridge(context.Background(), " ").Passed {
		t.Fatal("expected failure for empty bind")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.PayloadsDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	if err := os.MkdirAll(cfg.DraftsDir(), 0o755); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), &cfg)
	// payloads + drafts + logs
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_IncludesInboxWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.PayloadsDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.InboxDir = filepath.Join(t.TempDir(), "missing")

	results := RunAll(context.Background(), &cfg)
	failed := Failed(results)
	names := make([]string, 0, len(failed))
	for _, r := range failed {
		names = append(names, r.Name)
	}
	if len(failed) != 2 || names[0] != "Drafts directory" || names[1] != "Inbox directory" {
		t.Fatalf("expected drafts and inbox failures, got %v", names)
	}
}
