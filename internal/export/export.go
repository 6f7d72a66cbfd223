// Package export copies finished frame sets into a local directory instead of
// the remote store. Selected with export.mode = "local", typically for
// air-gapped collection sites.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fieldframe/internal/config"
	"fieldframe/internal/fileutil"
	"fieldframe/internal/logging"
	"fieldframe/internal/notifications"
	"fieldframe/internal/queue"
	"fieldframe/internal/services"
	"fieldframe/internal/stage"
	"fieldframe/internal/textutil"
)

// Exporter is the workflow stage that publishes frame sets to local storage.
type Exporter struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
}

// New constructs the local export stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Exporter {
	return NewWithDependencies(cfg, store, logger, notifications.NewService(cfg))
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Exporter {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "exporter"))
	}
	return &Exporter{cfg: cfg, store: store, logger: stageLogger, notifier: notifier}
}

func (e *Exporter) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("Publishing", "Preparing local export")

	if strings.TrimSpace(item.FrameDir) == "" {
		return services.Wrap(
			services.ErrValidation, "publishing", "validate inputs",
			"Recording has no frame directory; extraction must complete first", nil)
	}
	empty, err := fileutil.DirIsEmpty(item.FrameDir)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "publishing", "validate inputs",
			"Frame directory is missing or unreadable", err)
	}
	if empty {
		return services.Wrap(
			services.ErrValidation, "publishing", "validate inputs",
			"Frame directory is empty; re-run extraction", nil)
	}
	if strings.TrimSpace(e.cfg.Paths.ExportDir) == "" {
		return services.Wrap(
			services.ErrConfiguration, "publishing", "resolve export dir",
			"Export directory not configured; set paths.export_dir", nil)
	}
	return nil
}

func (e *Exporter) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)

	slug := textutil.LabelSlug(item.ObjectLabel)
	destDir := filepath.Join(e.cfg.Paths.ExportDir, slug, filepath.Base(item.FrameDir))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrTransient, "publishing", "create export dir",
			"Failed to create export directory; check the storage is mounted", err)
	}

	files, err := fileutil.ListRegularFiles(item.FrameDir)
	if err != nil {
		return services.Wrap(services.ErrTransient, "publishing", "list frames", "Failed to list frame directory", err)
	}
	if len(files) == 0 {
		return services.Wrap(services.ErrValidation, "publishing", "list frames", "Frame directory is empty; re-run extraction", nil)
	}

	for i, src := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := filepath.Join(destDir, filepath.Base(src))
		if err := fileutil.CopyFileVerified(src, dst); err != nil {
			return services.Wrap(
				services.ErrTransient, "publishing", "copy file",
				fmt.Sprintf("Failed exporting %s", filepath.Base(src)), err)
		}
		percent := float64(i+1) / float64(len(files)) * 100
		e.updateProgress(ctx, item, fmt.Sprintf("Exported %d of %d files", i+1, len(files)), percent)
	}

	item.ExportPath = destDir
	item.SetProgressComplete("Publishing", fmt.Sprintf("%d files exported", len(files)))

	if err := fileutil.RemoveDirIfExists(item.FrameDir); err != nil {
		logger.Warn("failed to purge staged frames after export", logging.Error(err))
	}

	logger.Info("export completed",
		logging.String("export_path", destDir),
		logging.Int("files", len(files)))

	if e.notifier != nil {
		title := textutil.DisplayTitle(item.ObjectLabel)
		if err := e.notifier.NotifyExportCompleted(ctx, title, destDir); err != nil {
			logger.Warn("export notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck verifies the export directory is writable.
func (e *Exporter) HealthCheck(ctx context.Context) stage.Health {
	const name = "exporter"
	if e.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	dir := strings.TrimSpace(e.cfg.Paths.ExportDir)
	if dir == "" {
		return stage.Unhealthy(name, "export directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stage.Unhealthy(name, "export directory unavailable: "+err.Error())
	}
	return stage.Healthy(name)
}

func (e *Exporter) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, e.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := e.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist export progress", logging.Error(err))
		return
	}
	*item = copy
}
