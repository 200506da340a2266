package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Payload directory: "+env.cfg.Paths.PayloadsDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", nil)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", nil); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", nil); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateReportsBadFile(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[naming]\ncollision_policy = \"rename\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, nil); err == nil {
		t.Fatal("expected validation failure")
	}
	if _, _, err := runCLI(t, []string{"list"}, env.configPath, nil); err == nil {
		t.Fatal("expected commands to fail on an invalid config")
	}
}

func TestConfigInitUsesGlobalConfigPath(t *testing.T) {
	setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "nested", "payloadkeeper.toml")

	out, _, err := runCLI(t, []string{"config", "init"}, target, nil)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)

	out, _, err = runCLI(t, []string{"config", "validate"}, target, nil)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	_, _, err = runCLI(t, []string{"config", "init"}, target, nil)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing file to be refused, got %v", err)
	}
}
