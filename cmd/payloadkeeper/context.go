package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"payloadkeeper/internal/config"
	"payloadkeeper/internal/layout"
	"payloadkeeper/internal/logging"
	"payloadkeeper/internal/services"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// openStore opens the configured payload tree with the command logger attached.
func (c *commandContext) openStore() (*layout.Store, *config.Config, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := layout.Open(cfg.Paths.PayloadsDir, layout.Options{
		CollisionPolicy: cfg.Naming.CollisionPolicy,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return store, cfg, logger, nil
}

// withTreeLock runs fn while holding the tree lock. A zero wait fails fast when
// another process (usually `payloadkeeper serve`) holds it.
func withTreeLock(ctx context.Context, store *layout.Store, wait time.Duration, fn func() error) error {
	if wait <= 0 {
		ok, err := store.TryLock()
		if err != nil {
			return err
		}
		if !ok {
			return services.Wrap(services.ErrConflict, "cli", "lock", "payload tree is locked by another process (is `payloadkeeper serve` running?)", nil)
		}
	} else {
		lockCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		if err := store.Lock(lockCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return services.Wrap(services.ErrConflict, "cli", "lock", fmt.Sprintf("payload tree still locked after %s", wait), nil)
			}
			return err
		}
	}
	defer func() { _ = store.Unlock() }()
	return fn()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
