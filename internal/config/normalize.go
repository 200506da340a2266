package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDisplay(); err != nil {
		return err
	}
	c.normalizeDedup()
	c.normalizeNaming()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("PAYLOADKEEPER_PAYLOADS_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.PayloadsDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.PayloadsDir) == "" {
		c.Paths.PayloadsDir = defaultPayloadsDir
	}
	if c.Paths.PayloadsDir, err = expandPath(c.Paths.PayloadsDir); err != nil {
		return fmt.Errorf("paths.payloads_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.InboxDir = strings.TrimSpace(c.Paths.InboxDir)
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	return nil
}

// normalizeDisplay applies the host's setting names as environment overrides so
// a host that only exports environment variables can still drive both switches.
func (c *Config) normalizeDisplay() error {
	if value, ok := os.LookupEnv("API_DISPLAY_INCLUDE_BASE64_IMAGES"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("API_DISPLAY_INCLUDE_BASE64_IMAGES: %w", err)
		}
		c.Display.IncludeBase64Images = parsed
	}
	if value, ok := os.LookupEnv("API_DISPLAY_STARTUP_DEDUPLICATE"); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("API_DISPLAY_STARTUP_DEDUPLICATE: %w", err)
		}
		c.Display.StartupDeduplicate = parsed
	}
	return nil
}

func (c *Config) normalizeDedup() {
	if c.Dedup.WindowSeconds == 0 {
		c.Dedup.WindowSeconds = defaultDedupWindow
	}
}

func (c *Config) normalizeNaming() {
	c.Naming.CollisionPolicy = strings.ToLower(strings.TrimSpace(c.Naming.CollisionPolicy))
	if c.Naming.CollisionPolicy == "" {
		c.Naming.CollisionPolicy = defaultCollisionPolicy
	}
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
