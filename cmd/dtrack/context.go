package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"dtrack/internal/config"
	"dtrack/internal/features"
	"dtrack/internal/logging"
	"dtrack/internal/registry"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	closers    []io.Closer
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

// appLogger returns the process logger, writing to stderr and the workspace
// log file. Logger construction failures fall back to stderr only.
func (c *commandContext) appLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger, _ = logging.New(logging.Options{Level: "info", Format: "console"})
			logger.Warn("workspace log file unavailable", logging.Error(err))
		}
		c.logger = logger
	})
	return c.logger
}

// teeRunLog adds a debug-level JSON log file to the process logger.
func (c *commandContext) teeRunLog(path string) (*slog.Logger, error) {
	handler, closer, err := logging.NewFileHandler(path, "json", "debug")
	if err != nil {
		return c.appLogger(), err
	}
	c.closers = append(c.closers, closer)
	c.logger = logging.TeeLogger(c.appLogger(), handler)
	return c.logger, nil
}

func (c *commandContext) close() {
	for _, closer := range c.closers {
		_ = closer.Close()
	}
	c.closers = nil
}

func (c *commandContext) registry() (*registry.Registry, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return registry.New(cfg.Layout().ModelsDir(), c.appLogger()), nil
}

func newExtractor() (*features.Extractor, error) {
	ext, err := features.NewExtractor(features.DefaultParams())
	if err != nil {
		return nil, fmt.Errorf("init feature extractor: %w", err)
	}
	return ext, nil
}

// resolveModels returns args when given, else the configured names.
func (c *commandContext) resolveModels(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if len(cfg.Models.Names) == 0 {
		return nil, errors.New("no models given; pass model names or set [models] names in the config")
	}
	return cfg.Models.Names, nil
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
