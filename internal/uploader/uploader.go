// Package uploader publishes extracted frame sets to the remote object store.
// Each recording lands in {root}/{label}/{label}_{timestamp}; files already
// present remotely are skipped so a retried publish never duplicates work.
package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"fieldframe/internal/config"
	"fieldframe/internal/fileutil"
	"fieldframe/internal/logging"
	"fieldframe/internal/notifications"
	"fieldframe/internal/queue"
	"fieldframe/internal/remote"
	"fieldframe/internal/services"
	"fieldframe/internal/stage"
	"fieldframe/internal/textutil"
)

// Uploader is the workflow stage that pushes frame sets to the remote store.
type Uploader struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	remote   remote.ObjectStore
	notifier notifications.Service
}

// New constructs the upload stage handler with the HTTP object store client.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Uploader {
	return NewWithDependencies(cfg, store, logger, remote.NewClient(cfg), notifications.NewService(cfg))
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, objectStore remote.ObjectStore, notifier notifications.Service) *Uploader {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "uploader"))
	}
	return &Uploader{cfg: cfg, store: store, logger: stageLogger, remote: objectStore, notifier: notifier}
}

func (u *Uploader) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, u.logger)
	item.InitProgress("Publishing", "Preparing upload")

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

	if !u.cfg.RemoteConfigured() {
		return services.Wrap(
			services.ErrNotAuthenticated, "publishing", "validate session",
			"No remote session configured; sign in before publishing", nil)
	}

	logger.Info("starting upload preparation",
		logging.String("frame_dir", item.FrameDir),
		logging.Int("prior_attempts", item.UploadAttempts))
	return nil
}

func (u *Uploader) Execute(ctx context.Context, item *queue.Item) error {
	item.UploadAttempts++
	if err := u.store.Update(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "publishing", "record attempt", "Failed to persist upload attempt", err)
	}

	err := u.publish(ctx, item)
	if services.IsRetryEligible(err) {
		// An authentication hold does not consume an attempt.
		item.UploadAttempts--
		if updateErr := u.store.Update(ctx, item); updateErr != nil {
			logging.WithContext(ctx, u.logger).Warn("failed to roll back upload attempt", logging.Error(updateErr))
		}
	}
	return err
}

func (u *Uploader) publish(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, u.logger)

	folder, err := u.ensureRemoteFolders(ctx, item)
	if err != nil {
		return err
	}

	files, err := fileutil.ListRegularFiles(item.FrameDir)
	if err != nil {
		return services.Wrap(services.ErrTransient, "publishing", "list frames", "Failed to list frame directory", err)
	}
	if len(files) == 0 {
		return services.Wrap(services.ErrValidation, "publishing", "list frames", "Frame directory is empty; re-run extraction", nil)
	}

	uploaded := 0
	skipped := 0
	failed := 0
	var lastErr error
	var lastName string
	for i, localPath := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Base(localPath)

		existing, err := u.remote.FindFile(ctx, folder.ID, name)
		if err != nil {
			failed++
			lastErr, lastName = err, name
			logger.Warn("remote file check failed",
				logging.String("file", name),
				logging.Error(err))
			continue
		}
		if existing != nil {
			skipped++
		} else if _, err := u.remote.UploadFile(ctx, folder.ID, localPath); err != nil {
			// A single file failure never aborts the batch; the remaining
			// files are still attempted and the failure is counted.
			failed++
			lastErr, lastName = err, name
			logger.Warn("file upload failed",
				logging.String("file", name),
				logging.Error(err))
			continue
		} else {
			uploaded++
		}

		percent := float64(i+1) / float64(len(files)) * 100
		u.updateProgress(ctx, item, fmt.Sprintf("Uploaded %d of %d files (%s)", i+1, len(files), name), percent)
	}

	if failed > 0 {
		landed := uploaded + skipped
		u.updateProgress(ctx, item,
			fmt.Sprintf("Uploaded %d of %d files; %d failed", landed, len(files), failed),
			float64(landed)/float64(len(files))*100)
		return wrapRemoteErr(lastErr, "upload files",
			fmt.Sprintf("Uploaded %d of %d files; %d failed, last was %s", landed, len(files), failed, lastName))
	}

	item.RemoteFolder = remoteFolderPath(u.cfg, item)
	item.SetProgressComplete("Publishing", fmt.Sprintf("%d files published", len(files)))

	// The staging copy is only purged after every file is confirmed remote.
	if err := fileutil.RemoveDirIfExists(item.FrameDir); err != nil {
		logger.Warn("failed to purge staged frames after publish", logging.Error(err))
	}

	logger.Info("upload completed",
		logging.String("remote_folder", item.RemoteFolder),
		logging.Int("uploaded", uploaded),
		logging.Int("skipped", skipped))

	if u.notifier != nil {
		title := textutil.DisplayTitle(item.ObjectLabel)
		if err := u.notifier.NotifyPublishCompleted(ctx, title, len(files)); err != nil {
			logger.Warn("publish notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck verifies a remote session is configured.
func (u *Uploader) HealthCheck(ctx context.Context) stage.Health {
	const name = "uploader"
	if u.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if !u.cfg.RemoteConfigured() {
		return stage.Unhealthy(name, "remote session not configured")
	}
	if u.remote == nil {
		return stage.Unhealthy(name, "remote client unavailable")
	}
	return stage.Healthy(name)
}

func (u *Uploader) ensureRemoteFolders(ctx context.Context, item *queue.Item) (remote.Folder, error) {
	slug := textutil.LabelSlug(item.ObjectLabel)

	root, err := u.remote.EnsureFolder(ctx, "", u.cfg.Remote.RootFolder)
	if err != nil {
		return remote.Folder{}, wrapRemoteErr(err, "ensure root folder", "Failed to resolve remote root folder")
	}
	labelFolder, err := u.remote.EnsureFolder(ctx, root.ID, slug)
	if err != nil {
		return remote.Folder{}, wrapRemoteErr(err, "ensure label folder", "Failed to resolve remote object folder")
	}
	setFolder, err := u.remote.EnsureFolder(ctx, labelFolder.ID, fmt.Sprintf("%s_%d", slug, item.ID))
	if err != nil {
		return remote.Folder{}, wrapRemoteErr(err, "ensure frame set folder", "Failed to resolve remote frame set folder")
	}
	return setFolder, nil
}

func remoteFolderPath(cfg *config.Config, item *queue.Item) string {
	slug := textutil.LabelSlug(item.ObjectLabel)
	return fmt.Sprintf("%s/%s/%s_%d", cfg.Remote.RootFolder, slug, slug, item.ID)
}

func wrapRemoteErr(err error, operation, message string) error {
	marker := services.ErrTransient
	if services.IsRetryEligible(err) {
		marker = services.ErrNotAuthenticated
	}
	return services.Wrap(marker, "publishing", operation, message, err)
}

func (u *Uploader) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, u.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := u.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist upload progress", logging.Error(err))
		return
	}
	*item = copy
}
