package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"payloadkeeper/internal/hostapi"
	"payloadkeeper/internal/payload"
	"payloadkeeper/internal/testsupport"
)

func startServe(t *testing.T, env *cliTestEnv) (string, *bytes.Buffer) {
	t.Helper()

	configPath := env.configPath
	cc := newCommandContext(&configPath)
	runCtx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	var out bytes.Buffer

	go func() {
		done <- runServe(runCtx, cc, "", &out, func(addr string) { ready <- addr })
	}()

	var addr string
	select {
	case addr = <-ready:
	case err := <-done:
		cancel()
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("serve did not become ready")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("serve did not shut down")
		}
	})
	return addr, &out
}

func TestServeReconcilesThenAcceptsEvents(t *testing.T) {
	env := setupCLITestEnv(t)
	legacy := filepath.Join(env.cfg.Paths.PayloadsDir, "payload_20240101_100000.json")
	testsupport.WritePayload(t, legacy, payload.Payload{"prompt": "old", "enable_hr": true})

	addr, out := startServe(t, env)
	if exists(t, legacy) {
		t.Fatal("expected startup reconcile to rename the legacy file")
	}
	if !exists(t, filepath.Join(env.cfg.Paths.PayloadsDir, "20240101100000.json")) {
		t.Fatal("expected canonical name after startup reconcile")
	}
	requireContains(t, out.String(), "Reconciled: 0 moved, 1 renamed")

	resp, err := http.Post("http://"+addr+"/api/generation", "application/json", strings.NewReader(hiresEvent))
	if err != nil {
		t.Fatalf("post generation: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
	var gen hostapi.GenerationResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !gen.Saved || gen.Draft {
		t.Fatalf("expected saved non-draft payload, got %+v", gen)
	}
	if !exists(t, gen.Path) {
		t.Fatalf("expected %s on disk", gen.Path)
	}

	health, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("unexpected healthz status %d", health.StatusCode)
	}
}

func TestServeRefusesLockedTree(t *testing.T) {
	env := setupCLITestEnv(t)
	holder := testsupport.MustOpenStore(t, env.cfg)
	if locked, err := holder.TryLock(); err != nil || !locked {
		t.Fatalf("TryLock: %v %v", locked, err)
	}
	t.Cleanup(func() { _ = holder.Unlock() })

	configPath := env.configPath
	err := runServe(context.Background(), newCommandContext(&configPath), "", io.Discard, nil)
	if err == nil {
		t.Fatal("expected serve to refuse a locked tree")
	}
	requireContains(t, err.Error(), "locked")
}

func TestServeIngestsInboxFiles(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithInbox())
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.InboxDir, "event.json"), hiresEvent)

	addr, _ := startServe(t, env)

	resp, err := http.Get("http://" + addr + "/api/payload")
	if err != nil {
		t.Fatalf("get current payload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected current payload from the inbox, got status %d", resp.StatusCode)
	}
	if exists(t, filepath.Join(env.cfg.Paths.InboxDir, "event.json")) {
		t.Fatal("expected ingested inbox file removed")
	}
}
