package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"payloadkeeper/internal/fileutil"
	"payloadkeeper/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	PayloadsDir string `toml:"payloads_dir"`
	LogDir      string `toml:"log_dir"`
	InboxDir    string `toml:"inbox_dir"`
}

// Display mirrors the two switches the host's settings page exposes.
type Display struct {
	// IncludeBase64Images keeps embedded images in saved payloads and in
	// fingerprints. When false, image data is replaced by a placeholder.
	IncludeBase64Images bool `toml:"include_base64_images"`
	// StartupDeduplicate enables the prompt-level dedup pass at startup.
	StartupDeduplicate bool `toml:"startup_deduplicate"`
}

// Dedup contains the runtime duplicate suppression settings.
type Dedup struct {
	WindowSeconds int `toml:"window_seconds"`
}

// Naming contains filename policy settings.
type Naming struct {
	CollisionPolicy string `toml:"collision_policy"`
}

// Server contains the HTTP bridge configuration.
type Server struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for payloadkeeper.
//
// Configuration sections by subsystem:
//   - Paths: payload tree, log directory and drop-folder inbox
//   - Display: host settings (base64 images, startup dedup)
//   - Dedup: runtime duplicate suppression window
//   - Naming: same-second filename collision policy
//   - Server: HTTP bridge bind address
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Display Display `toml:"display"`
	Dedup   Dedup   `toml:"dedup"`
	Naming  Naming  `toml:"naming"`
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is loaded
// first; it never overrides variables already present in the environment.
func Load(path string) (*Config, string, bool, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "load .env", "", err)
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the payload tree and log directory. The inbox is
// created only when configured.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.PayloadsDir, c.DraftsDir(), c.Paths.LogDir}
	if strings.TrimSpace(c.Paths.InboxDir) != "" {
		dirs = append(dirs, c.Paths.InboxDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DraftsDir returns the drafts directory inside the payload tree.
func (c *Config) DraftsDir() string {
	return filepath.Join(c.Paths.PayloadsDir, DraftsDirName)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the sample configuration to path. Unless overwrite is
// set an existing file is left alone and created reports false.
func CreateSample(path string, overwrite bool) (created bool, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	if overwrite {
		if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644); err != nil {
			return false, fmt.Errorf("write sample config: %w", err)
		}
		return true, nil
	}
	created, err = fileutil.WriteFileExclusive(path, []byte(sampleConfig), 0o644)
	if err != nil {
		return false, fmt.Errorf("write sample config: %w", err)
	}
	return created, nil
}
