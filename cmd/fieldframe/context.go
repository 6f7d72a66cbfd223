package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"fieldframe/internal/config"
	"fieldframe/internal/export"
	"fieldframe/internal/extractor"
	"fieldframe/internal/logging"
	"fieldframe/internal/queue"
	"fieldframe/internal/stage"
	"fieldframe/internal/uploader"
	"fieldframe/internal/workflow"
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
	return &commandContext{configFlag: configFlag}
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
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			OutputPaths: []string{
				"stdout",
				filepath.Join(cfg.Paths.LogDir, "fieldframe.log"),
			},
		})
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openStore() (*config.Config, *queue.Store, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, store, logger, nil
}

// publisherStage selects the publish handler by export mode.
func publisherStage(cfg *config.Config, store *queue.Store, logger *slog.Logger) stage.Handler {
	if cfg.Export.Mode == config.ExportModeLocal {
		return export.New(cfg, store, logger)
	}
	return uploader.New(cfg, store, logger)
}

func buildManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *workflow.Manager {
	manager := workflow.NewManager(cfg, store, logger)
	manager.ConfigureStages(workflow.StageSet{
		Extractor: extractor.New(cfg, store, logger),
		Publisher: publisherStage(cfg, store, logger),
	})
	return manager
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
