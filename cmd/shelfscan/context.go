package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ayusman/shelfscan/internal/app"
	"github.com/ayusman/shelfscan/internal/config"
	"github.com/ayusman/shelfscan/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	// appOptions lets tests inject mock devices and decoders.
	appOptions app.Options
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// logger builds the process logger from the config and the --log-level
// flag.
func (c *commandContext) logger(out io.Writer) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		level = *c.logLevelFlag
	}
	return logging.New(logging.Options{Level: level, Format: cfg.Logging.Format, Output: out})
}

// withRuntime bootstraps the application for one command and closes it
// afterwards.
func (c *commandContext) withRuntime(cmd *cobra.Command, fn func(context.Context, *app.Runtime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	opts := c.appOptions
	opts.Logger = logger

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := app.Bootstrap(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			logger.Warn("closing runtime failed", logging.Error(cerr))
		}
	}()
	return fn(ctx, rt)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
