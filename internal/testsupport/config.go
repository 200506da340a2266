package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"payloadkeeper/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.PayloadsDir = filepath.Join(base, "payloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithIncludeImages toggles display.include_base64_images.
func WithIncludeImages(include bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Display.IncludeBase64Images = include
	}
}

// WithStartupDeduplicate toggles display.startup_deduplicate.
func WithStartupDeduplicate(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Display.StartupDeduplicate = enabled
	}
}

// WithCollisionPolicy sets naming.collision_policy.
func WithCollisionPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Naming.CollisionPolicy = policy
	}
}

// WithInbox enables the drop-folder inbox under the temp base directory.
func WithInbox() ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "inbox")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir inbox: %v", err)
		}
		b.cfg.Paths.InboxDir = dir
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.PayloadsDir)
}
