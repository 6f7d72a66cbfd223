package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"fieldframe/internal/config"
	"fieldframe/internal/fileutil"
	"fieldframe/internal/logging"
	"fieldframe/internal/metadata"
	"fieldframe/internal/queue"
	"fieldframe/internal/services"
	"fieldframe/internal/stage"
	"fieldframe/internal/textutil"
)

// Extractor is the workflow stage that turns a recorded video into a frame
// set with a metadata sidecar.
type Extractor struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	engine *Engine
}

// New constructs the extraction stage handler using the ffmpeg-backed engine.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Extractor {
	decoder := NewFFmpegDecoder(cfg.FFmpegBinary(), cfg.Extraction.JPEGQuality)
	probe := DefaultProbe(cfg.FFprobeBinary())
	return NewWithEngine(cfg, store, logger, NewEngine(decoder, probe, cfg.Extraction.FPS, logger))
}

// NewWithEngine allows injecting the walk engine (used in tests).
func NewWithEngine(cfg *config.Config, store *queue.Store, logger *slog.Logger, engine *Engine) *Extractor {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "extractor"))
	}
	return &Extractor{cfg: cfg, store: store, logger: stageLogger, engine: engine}
}

// FrameDirFor returns the staging directory that holds one recording's frames.
func FrameDirFor(cfg *config.Config, item *queue.Item) string {
	folder := fmt.Sprintf("%s_%d", textutil.LabelSlug(item.ObjectLabel), item.ID)
	return filepath.Join(cfg.Paths.StagingDir, folder)
}

func (e *Extractor) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)
	item.InitProgress("Extracting", "Preparing frame extraction")

	if strings.TrimSpace(item.VideoPath) == "" {
		return services.Wrap(
			services.ErrValidation, "extracting", "validate inputs",
			"Recording has no video path; re-enqueue the capture", nil)
	}
	if _, err := os.Stat(item.VideoPath); err != nil {
		return services.Wrap(
			services.ErrValidation, "extracting", "validate inputs",
			"Recorded video is missing from the capture directory", err)
	}

	// A retried extraction starts from a clean directory so partial walks
	// cannot leave orphan frames behind.
	frameDir := FrameDirFor(e.cfg, item)
	if err := fileutil.RemoveDirIfExists(frameDir); err != nil {
		return services.Wrap(
			services.ErrTransient, "extracting", "clean frame dir",
			"Failed to clear previous frame directory", err)
	}

	logger.Info("starting extraction preparation",
		logging.String("video", filepath.Base(item.VideoPath)),
		logging.String("frame_dir", frameDir))
	return nil
}

func (e *Extractor) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)
	frameDir := FrameDirFor(e.cfg, item)

	result, err := e.engine.Extract(ctx, item.VideoPath, frameDir, func(percent float64, message string) {
		e.updateProgress(ctx, item, message, percent)
	})
	if err != nil {
		_ = fileutil.RemoveDirIfExists(frameDir)
		if errors.Is(err, ErrInvalidVideo) {
			return services.Wrap(
				services.ErrValidation, "extracting", "probe video",
				"Recorded video has no usable video stream", err)
		}
		if errors.Is(err, ErrNoFrames) {
			return services.Wrap(
				services.ErrValidation, "extracting", "decode frames",
				"No frames could be decoded from the recording", err)
		}
		return services.Wrap(
			services.ErrExternalTool, "extracting", "decode frames",
			"Frame extraction failed", err)
	}

	slug := textutil.LabelSlug(item.ObjectLabel)
	meta := metadata.RecordingMetadata{
		ObjectName:      slug,
		Timestamp:       item.ID,
		FrameCount:      result.FrameCount,
		VideoResolution: metadata.Resolution(result.Video.Width, result.Video.Height),
		VideoWidth:      result.Video.Width,
		VideoHeight:     result.Video.Height,
		VideoDurationMS: result.Video.DurationMS,
		ExtractionFPS:   e.cfg.Extraction.FPS,
		CaptureDate:     metadata.CaptureDate(item.Timestamp().Local()),
		FolderName:      filepath.Base(frameDir),
	}
	if _, err := metadata.Write(frameDir, meta); err != nil {
		_ = fileutil.RemoveDirIfExists(frameDir)
		return services.Wrap(
			services.ErrTransient, "extracting", "write metadata",
			"Failed to write metadata sidecar", err)
	}

	item.FrameDir = frameDir
	item.FrameCount = result.FrameCount
	item.SetProgressComplete("Extracting", fmt.Sprintf("%d frames extracted", result.FrameCount))

	logger.Info("extraction completed",
		logging.Int("frames", result.FrameCount),
		logging.Int("skipped", result.Skipped),
		logging.String("frame_dir", frameDir))
	return nil
}

// HealthCheck verifies the external decode binaries are available.
func (e *Extractor) HealthCheck(ctx context.Context) stage.Health {
	const name = "extractor"
	if e.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if _, err := exec.LookPath(e.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy(name, "ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath(e.cfg.FFprobeBinary()); err != nil {
		return stage.Unhealthy(name, "ffprobe not found in PATH")
	}
	return stage.Healthy(name)
}

func (e *Extractor) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, e.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := e.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist extraction progress", logging.Error(err))
		return
	}
	*item = copy
}
