package main

import (
	"path/filepath"
	"strings"
	"testing"

	"payloadkeeper/internal/hostapi"
	"payloadkeeper/internal/layout"
	"payloadkeeper/internal/testsupport"
)

const hiresEvent = `{"payload": {"prompt": "lighthouse at dusk", "seed": 42, "enable_hr": true}, "metadata": {"hr_enabled": true}}`

func TestSaveWritesPayloadAndSuppressesDuplicates(t *testing.T) {
	env := setupCLITestEnv(t)
	first := writeEvent(t, env.baseDir, "first.json", hiresEvent)
	second := writeEvent(t, env.baseDir, "second.json", hiresEvent)

	out, _, err := runCLI(t, []string{"save", first, second}, env.configPath, nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two result lines, got %q", out)
	}
	requireContains(t, lines[0], "first.json: saved "+env.cfg.Paths.PayloadsDir)
	requireContains(t, lines[0], "skeleton "+layout.SkeletonSingleFileName)
	requireContains(t, lines[1], "second.json: skipped duplicate")

	latest := testsupport.ReadPayload(t, filepath.Join(env.cfg.Paths.PayloadsDir, layout.LatestFileName))
	if latest.Prompt() != "lighthouse at dusk" {
		t.Fatalf("unexpected latest payload: %v", latest)
	}
}

func TestSaveReadsStdinAndRoutesDrafts(t *testing.T) {
	env := setupCLITestEnv(t)

	body := `{"prompt": "quick sketch", "alwayson_scripts": {"controlnet": {"args": [{"enabled": true}]}}}`
	out, _, err := runCLI(t, []string{"save", "--json"}, env.configPath, strings.NewReader(body))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	results := decodeJSON[[]hostapi.GenerationResponse](t, out)
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	got := results[0]
	if !got.Saved || !got.Draft {
		t.Fatalf("expected a saved draft, got %+v", got)
	}
	if filepath.Dir(got.Path) != env.cfg.DraftsDir() {
		t.Fatalf("expected draft under %s, got %s", env.cfg.DraftsDir(), got.Path)
	}
	if !strings.HasSuffix(got.Path, "_cnet.json") {
		t.Fatalf("expected cnet tag in name, got %s", got.Path)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "cnet" {
		t.Fatalf("unexpected tags: %v", got.Tags)
	}
}

func TestSaveRejectsMalformedEvent(t *testing.T) {
	env := setupCLITestEnv(t)
	bad := writeEvent(t, env.baseDir, "bad.json", `{"prompt": `)

	if _, _, err := runCLI(t, []string{"save", bad}, env.configPath, nil); err == nil {
		t.Fatal("expected malformed event to fail")
	}
}

func TestSaveRefusesLockedTree(t *testing.T) {
	env := setupCLITestEnv(t)
	holder := testsupport.MustOpenStore(t, env.cfg)
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: %v %v", locked, err)
	}
	t.Cleanup(func() { _ = holder.Unlock() })

	event := writeEvent(t, env.baseDir, "event.json", hiresEvent)
	_, _, err = runCLI(t, []string{"save", event}, env.configPath, nil)
	if err == nil {
		t.Fatal("expected save to refuse a locked tree")
	}
	requireContains(t, err.Error(), "locked")
}
