// Package capture runs guided recording sessions. A session pairs the phase
// sequencer with the camera recorder, then waits for operator approval
// before the recording enters the processing queue.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldframe/internal/config"
	"fieldframe/internal/logging"
	"fieldframe/internal/notifications"
	"fieldframe/internal/queue"
	"fieldframe/internal/recorder"
	"fieldframe/internal/sequencer"
	"fieldframe/internal/services"
	"fieldframe/internal/textutil"
)

// Result describes a finished recording awaiting approval.
type Result struct {
	SessionID       string
	ItemID          int64
	ObjectLabel     string
	VideoPath       string
	DurationSeconds int
}

// UpdateFunc receives session snapshots while a capture runs. Pulse is true
// when a phase boundary fired since the previous update.
type UpdateFunc func(snap sequencer.Snapshot, pulse bool)

// Service orchestrates one guided capture at a time.
type Service struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	rec      recorder.Recorder
	notifier notifications.Service

	// pollInterval controls snapshot delivery to the capture surface.
	pollInterval time.Duration
}

// NewService constructs the capture service with default collaborators.
func NewService(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Service, error) {
	rec, err := recorder.New(cfg.FFmpegBinary())
	if err != nil {
		return nil, fmt.Errorf("construct recorder: %w", err)
	}
	return NewServiceWithDependencies(cfg, store, logger, rec, notifications.NewService(cfg)), nil
}

// NewServiceWithDependencies allows injecting collaborators (used in tests).
func NewServiceWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, rec recorder.Recorder, notifier notifications.Service) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "capture"),
		rec:          rec,
		notifier:     notifier,
		pollInterval: 500 * time.Millisecond,
	}
}

// Run records one guided session for the labeled object. It starts the
// phase sequencer and the camera recorder together, streams snapshots to
// onUpdate, and returns once the recording is finalized on disk. The
// returned result is not queued until Approve is called.
func (s *Service) Run(ctx context.Context, objectLabel string, onUpdate UpdateFunc) (*Result, error) {
	slug := textutil.LabelSlug(objectLabel)
	if slug == "" {
		return nil, services.Wrap(
			services.ErrValidation, "capturing", "validate label",
			"Object label is empty after sanitization; provide a descriptive label", nil,
		)
	}
	device := strings.TrimSpace(s.cfg.Capture.Device)
	if device == "" {
		return nil, services.Wrap(
			services.ErrConfiguration, "capturing", "resolve device",
			"No capture device configured; set capture.device", nil,
		)
	}

	sessionID := uuid.NewString()
	itemID := time.Now().UnixMilli()
	totalSeconds := s.cfg.Capture.TotalCaptureSeconds()
	videoPath := filepath.Join(
		s.cfg.Paths.CaptureDir,
		fmt.Sprintf("%s_%d%s", slug, itemID, s.cfg.Capture.VideoExtension),
	)

	logger := s.logger.With(
		logging.String("session_id", sessionID),
		logging.String("object_label", slug),
	)
	logger.Info("starting guided capture",
		logging.String("device", device),
		logging.Int("total_seconds", totalSeconds),
		logging.String("video_path", videoPath),
	)

	seq, err := sequencer.New(s.cfg.Capture, s.logger)
	if err != nil {
		return nil, services.Wrap(
			services.ErrConfiguration, "capturing", "build sequencer",
			"Capture phase table is empty; configure capture.phases", err,
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := seq.Start(runCtx); err != nil {
		return nil, fmt.Errorf("start sequencer: %w", err)
	}
	defer seq.Stop()

	recordErr := make(chan error, 1)
	go func() {
		recordErr <- s.rec.Record(runCtx, recorder.Request{
			Device:     device,
			OutputPath: videoPath,
			Duration:   time.Duration(totalSeconds) * time.Second,
		}, func(event recorder.Event) {
			if event.Kind == recorder.EventFinalized {
				logger.Info("recording finalized", logging.String("video_path", event.Path))
			}
		})
	}()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cancel()
			<-recordErr
			return nil, ctx.Err()
		case err := <-recordErr:
			if err != nil {
				cancel()
				return nil, services.Wrap(
					services.ErrExternalTool, "capturing", "record video",
					"Camera recording failed; check the capture device", err,
				)
			}
			if onUpdate != nil {
				onUpdate(seq.Snapshot(), seq.ConsumePulse())
			}
			logger.Info("guided capture complete", logging.Int64("item_id", itemID))
			return &Result{
				SessionID:       sessionID,
				ItemID:          itemID,
				ObjectLabel:     objectLabel,
				VideoPath:       videoPath,
				DurationSeconds: totalSeconds,
			}, nil
		case <-ticker.C:
			if onUpdate != nil {
				onUpdate(seq.Snapshot(), seq.ConsumePulse())
			}
		}
	}
}

// Approve records the finished capture in the queue so extraction picks it
// up. Re-approving a capture with the same timestamp replaces the earlier
// entity and clears its stage state.
func (s *Service) Approve(ctx context.Context, result *Result) (*queue.Item, error) {
	if result == nil {
		return nil, errors.New("capture: nil result")
	}
	if _, err := os.Stat(result.VideoPath); err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "capturing", "verify recording",
			"Recorded video is missing; re-run the capture", err,
		)
	}

	item, err := s.store.NewRecording(ctx, result.ItemID, result.VideoPath, result.ObjectLabel)
	if err != nil {
		return nil, fmt.Errorf("queue recording: %w", err)
	}

	s.logger.Info("capture approved and queued",
		logging.Int64("item_id", item.ID),
		logging.String("video_path", result.VideoPath),
	)
	if s.notifier != nil {
		title := textutil.DisplayTitle(result.ObjectLabel)
		if err := s.notifier.NotifyCaptureCompleted(ctx, title, result.DurationSeconds); err != nil {
			s.logger.Warn("capture notification failed", logging.Error(err))
		}
	}
	return item, nil
}

// Discard deletes a recording the operator rejected. Missing files are not
// an error.
func (s *Service) Discard(result *Result) error {
	if result == nil {
		return nil
	}
	if err := os.Remove(result.VideoPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discard recording: %w", err)
	}
	s.logger.Info("capture discarded", logging.String("video_path", result.VideoPath))
	return nil
}
