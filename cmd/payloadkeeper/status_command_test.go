package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"payloadkeeper/internal/layout"
	"payloadkeeper/internal/payload"
	"payloadkeeper/internal/preflight"
	"payloadkeeper/internal/testsupport"
)

func TestStatusPrinterLineNoColor(t *testing.T) {
	p := newStatusPrinter(io.Discard)
	p.line("Payloads", statusInfo, "3")
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Payloads:", "[INFO] 3")
	if got := p.String(); got != want {
		t.Fatalf("line mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestStatusPrinterPaintsWhenColorized(t *testing.T) {
	p := &statusPrinter{colorize: true}
	p.check("HTTP bridge", true, "running", statusWarn)
	got := p.String()
	if !strings.HasPrefix(got, statusStyles[statusOK].color) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}

func TestWriteStatus(t *testing.T) {
	summary := layout.Summary{Payloads: 2, Drafts: 1, Skeletons: []string{"single"}}
	checks := []preflight.Result{
		{Name: "Payload directory", Passed: true, Detail: "/p (read/write ok)"},
		{Name: "Log directory", Detail: "/l (error: does not exist)"},
	}
	bridge := preflight.Result{Name: "HTTP bridge", Detail: "127.0.0.1:7489 (not running)"}

	p := newStatusPrinter(io.Discard)
	writeStatus(p, "/p", summary, checks, bridge)
	joined := p.String()
	for _, want := range []string{
		"== Payload tree ==",
		"== Checks ==",
		"[INFO] 2",
		"[WARN] none saved yet",
		"[INFO] single",
		"[OK] /p (read/write ok)",
		"[ERROR] /l (error: does not exist)",
		"[WARN] 127.0.0.1:7489 (not running)",
	} {
		requireContains(t, joined, want)
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WritePayload(t, filepath.Join(env.cfg.Paths.PayloadsDir, "20240101100000.json"),
		payload.Payload{"prompt": "a", "enable_hr": true})

	out, _, err := runCLI(t, []string{"status"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, env.cfg.Paths.PayloadsDir)
	requireContains(t, out, "Payload directory:")
	requireContains(t, out, "HTTP bridge:")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	report := decodeJSON[statusReport](t, out)
	if report.Tree.Payloads != 1 || report.Tree.Drafts != 0 {
		t.Fatalf("unexpected tree counts: %+v", report.Tree)
	}
	if len(report.Checks) != 4 {
		t.Fatalf("expected three directory checks plus the bridge, got %+v", report.Checks)
	}
}
