package config

import "time"

const (
	defaultConfigPath      = "~/.config/payloadkeeper/config.toml"
	projectConfigName      = "payloadkeeper.toml"
	defaultPayloadsDir     = "~/.local/share/payloadkeeper/payloads"
	defaultLogDir          = "~/.local/share/payloadkeeper/logs"
	defaultDedupWindow     = 2
	defaultServerBind      = "127.0.0.1:7489"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultCollisionPolicy = CollisionOverwrite
)

// DraftsDirName is the drafts subdirectory of the payload tree.
const DraftsDirName = "drafts"

// Collision policies for two saves that resolve to the same filename.
const (
	CollisionOverwrite = "overwrite"
	CollisionSuffix    = "suffix"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			PayloadsDir: defaultPayloadsDir,
			LogDir:      defaultLogDir,
		},
		Dedup: Dedup{
			WindowSeconds: defaultDedupWindow,
		},
		Naming: Naming{
			CollisionPolicy: defaultCollisionPolicy,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DedupWindow returns the runtime dedup window as a duration.
func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.Dedup.WindowSeconds) * time.Second
}
