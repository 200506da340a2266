package testsupport

import (
	"testing"

	"payloadkeeper/internal/config"
	"payloadkeeper/internal/layout"
)

// MustOpenStore opens a layout.Store on the config's payload directory.
func MustOpenStore(t testing.TB, cfg *config.Config) *layout.Store {
	t.Helper()

	store, err := layout.Open(cfg.Paths.PayloadsDir, layout.Options{
		CollisionPolicy: cfg.Naming.CollisionPolicy,
	})
	if err != nil {
		t.Fatalf("layout.Open: %v", err)
	}
	return store
}
