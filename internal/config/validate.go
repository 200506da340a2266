package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if c.Dedup.WindowSeconds < 0 {
		return errors.New("dedup.window_seconds must be >= 0")
	}
	switch c.Naming.CollisionPolicy {
	case CollisionOverwrite, CollisionSuffix:
	default:
		return fmt.Errorf("naming.collision_policy must be %q or %q, got %q", CollisionOverwrite, CollisionSuffix, c.Naming.CollisionPolicy)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.PayloadsDir) == "" {
		return errors.New("paths.payloads_dir must be set")
	}
	if c.Paths.InboxDir == "" {
		return nil
	}
	inbox := filepath.Clean(c.Paths.InboxDir)
	root := filepath.Clean(c.Paths.PayloadsDir)
	if inbox == root || strings.HasPrefix(inbox, root+string(filepath.Separator)) {
		return errors.New("paths.inbox_dir must not be inside paths.payloads_dir")
	}
	return nil
}
