package reconcile_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"payloadkeeper/internal/layout"
	"payloadkeeper/internal/metrics"
	"payloadkeeper/internal/payload"
	"payloadkeeper/internal/reconcile"
	"payloadkeeper/internal/testsupport"
)

func seedTree(t *testing.T) *layout.Store {
	t.Helper()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	root := store.Root()
	files := map[string]payload.Payload{
		"20240101100000.json":          {"prompt": "cat", "negative_prompt": "blurry", "seed": 1, "enable_hr": true},
		"20240101100500_cnet.json":     {"prompt": " cat ", "negative_prompt": "blurry", "seed": 2, "enable_hr": true, "controlnet": map[string]any{"enabled": true}},
		"payload_20240101_101000.json": {"prompt": "cat", "negative_prompt": "blurry\n", "seed": 3, "enable_hr": true},
		"20240101090000.json":          {"prompt": "dog", "negative_prompt": "", "enable_hr": true},
		"20240101110000.json":          {"prompt": "cat", "negative_prompt": "blurry", "enable_hr": false},
	}
	for name, p := range files {
		testsupport.WritePayload(t, filepath.Join(root, name), p)
	}
	return store
}

func TestRunKeepsNewestOfEachPromptPair(t *testing.T) {
	store := seedTree(t)
	m := metrics.New()

	result, err := reconcile.Run(context.Background(), store, reconcile.Options{Deduplicate: true, Metrics: m})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Groups != 1 || len(result.Deletions) != 2 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	kept := filepath.Join(store.Root(), "20240101101000.json")
	for _, d := range result.Deletions {
		if d.Kept != kept {
			t.Fatalf("expected newest legacy file to be kept, got %+v", d)
		}
	}

	want := []string{"20240101090000.json", "20240101101000.json"}
	if diff := cmp.Diff(want, testsupport.ListNames(t, store.Root())); diff != "" {
		t.Fatalf("unexpected root (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"20240101110000.json"}, testsupport.ListNames(t, store.DraftsDir())); diff != "" {
		t.Fatalf("drafts must not take part in prompt dedup (-want +got):\n%s", diff)
	}
	if got := testsupport.ReadPayload(t, kept)["seed"]; got == nil {
		t.Fatal("kept file lost its content")
	}

	expected := `
# HELP payloadkeeper_reconcile_operations_total File operations performed by startup reconciliation.
# TYPE payloadkeeper_reconcile_operations_total counter
payloadkeeper_reconcile_operations_total{op="deleted"} 2
payloadkeeper_reconcile_operations_total{op="moved"} 1
payloadkeeper_reconcile_operations_total{op="renamed"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "payloadkeeper_reconcile_operations_total"); err != nil {
		t.Fatalf("unexpected reconcile counters: %v", err)
	}
}

func TestRunContinuesPastDeleteFailure(t *testing.T) {
	store := seedTree(t)
	stuck := filepath.Join(store.Root(), "20240101100000.json")
	remove := func(path string) error {
		if path == stuck {
			return &fs.PathError{Op: "remove", Path: path, Err: syscall.EBUSY}
		}
		return store.Delete(path)
	}

	result, err := reconcile.Run(context.Background(), store, reconcile.Options{Deduplicate: true, Remove: remove})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(result.Errors) != 1 || result.Errors[0].Path != stuck {
		t.Fatalf("expected one delete error for %s, got %+v", stuck, result.Errors)
	}
	if !errors.Is(result.Errors[0].Err, syscall.EBUSY) {
		t.Fatalf("expected the remove error to be kept, got %v", result.Errors[0].Err)
	}
	if len(result.Deletions) != 1 {
		t.Fatalf("expected the other duplicate to be deleted, got %+v", result.Deletions)
	}
	if _, err := os.Stat(result.Deletions[0].Path); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err=%v", result.Deletions[0].Path, err)
	}
	if _, err := os.Stat(stuck); err != nil {
		t.Fatalf("expected failed duplicate to stay on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "20240101101000.json")); err != nil {
		t.Fatalf("expected newest file kept: %v", err)
	}
}

func TestRunWithThreeTimestampsLeavesOnlyLatest(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		p := payload.Payload{"prompt": "same", "negative_prompt": "same neg", "seed": i, "enable_hr": true}
		if _, err := store.Save(context.Background(), p, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := reconcile.Run(context.Background(), store, reconcile.Options{Deduplicate: true}); err != nil {
		t.Fatal(err)
	}
	files, err := store.List(context.Background(), layout.ScopeRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "20240301080200.json" {
		t.Fatalf("expected only the latest file to remain, got %+v", files)
	}
}

func TestRunDryRunChangesNothing(t *testing.T) {
	store := seedTree(t)
	root := store.Root()
	before := testsupport.ListNames(t, root)

	result, err := reconcile.Run(context.Background(), store, reconcile.Options{Deduplicate: true, DryRun: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !result.DryRun {
		t.Fatal("expected dry-run result")
	}
	if diff := cmp.Diff(before, testsupport.ListNames(t, root)); diff != "" {
		t.Fatalf("dry run changed the tree (-before +after):\n%s", diff)
	}
	if len(testsupport.ListNames(t, store.DraftsDir())) != 0 {
		t.Fatal("dry run must not move drafts")
	}
	if len(result.Reorganize.Moved) != 1 || len(result.Reorganize.Renamed) != 1 {
		t.Fatalf("expected planned reorganize operations, got %+v", result.Reorganize)
	}
	if len(result.Deletions) != 2 {
		t.Fatalf("expected two planned deletions, got %+v", result.Deletions)
	}
	for _, d := range result.Deletions {
		if filepath.Base(d.Kept) != "payload_20240101_101000.json" {
			t.Fatalf("unexpected keeper in dry run: %+v", d)
		}
	}
}

func TestRunWithoutDedupOnlyReorganizes(t *testing.T) {
	store := seedTree(t)
	result, err := reconcile.Run(context.Background(), store, reconcile.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Deletions) != 0 || result.Groups != 0 {
		t.Fatalf("dedup disabled but got %+v", result)
	}
	if len(testsupport.ListNames(t, store.Root())) != 4 {
		t.Fatalf("expected four root payloads to survive, got %v", testsupport.ListNames(t, store.Root()))
	}
}

func TestPromptKeyNormalizes(t *testing.T) {
	composed := reconcile.PromptKey("caf\u00e9", "")
	decomposed := reconcile.PromptKey("  cafe\u0301\t", " ")
	if composed != decomposed {
		t.Fatalf("expected NFC and trimmed keys to match: %q vs %q", composed, decomposed)
	}
	if reconcile.PromptKey("a", "b") == reconcile.PromptKey("a b", "") {
		t.Fatal("prompt and negative prompt must stay separate")
	}
}
