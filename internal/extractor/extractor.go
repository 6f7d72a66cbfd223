// Package extractor samples still frames from recorded capture videos. The
// walk probes the video, decodes one frame per sampling interval, and writes
// a metadata sidecar describing the finished frame set.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fieldframe/internal/logging"
	"fieldframe/internal/media/ffprobe"
)

// ErrInvalidVideo indicates the source has no usable video stream or duration.
var ErrInvalidVideo = errors.New("extractor: invalid video")

// ErrNoFrames indicates every sampled offset failed to decode.
var ErrNoFrames = errors.New("extractor: no frames produced")

// Progress weights for the three extraction stages.
const (
	probeWeight    = 0.10
	walkWeight     = 0.85
	finalizeWeight = 0.05
)

// VideoInfo describes the probed source video.
type VideoInfo struct {
	DurationMS int64
	Width      int
	Height     int
}

// ProbeFunc inspects a video file. The default implementation shells out to
// ffprobe; tests substitute a fake.
type ProbeFunc func(ctx context.Context, path string) (VideoInfo, error)

// Result describes a completed frame walk.
type Result struct {
	FrameDir   string
	FrameCount int
	Skipped    int
	Video      VideoInfo
}

// ProgressFunc receives walk progress in [0,100] with a short message.
type ProgressFunc func(percent float64, message string)

// Engine performs the sampling walk over one video at a time.
type Engine struct {
	decoder FrameDecoder
	probe   ProbeFunc
	fps     int
	logger  *slog.Logger
}

// NewEngine constructs a walk engine. fps is assumed pre-clamped by config.
func NewEngine(decoder FrameDecoder, probe ProbeFunc, fps int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if fps < 1 {
		fps = 1
	}
	return &Engine{
		decoder: decoder,
		probe:   probe,
		fps:     fps,
		logger:  logging.NewComponentLogger(logger, "extractor"),
	}
}

// DefaultProbe returns a ProbeFunc backed by the ffprobe binary.
func DefaultProbe(binary string) ProbeFunc {
	return func(ctx context.Context, path string) (VideoInfo, error) {
		result, err := ffprobe.Inspect(ctx, binary, path)
		if err != nil {
			return VideoInfo{}, err
		}
		if result.VideoStreamCount() == 0 {
			return VideoInfo{}, fmt.Errorf("%w: no video stream in %s", ErrInvalidVideo, filepath.Base(path))
		}
		width, height := result.VideoDimensions()
		return VideoInfo{
			DurationMS: int64(result.DurationSeconds() * 1000),
			Width:      width,
			Height:     height,
		}, nil
	}
}

// Extract walks the video and writes frames into frameDir. Offsets that fail
// to decode are skipped; the walk only fails when no frame decodes at all.
func (e *Engine) Extract(ctx context.Context, videoPath, frameDir string, onProgress ProgressFunc) (Result, error) {
	if onProgress == nil {
		onProgress = func(float64, string) {}
	}
	logger := logging.WithContext(ctx, e.logger)

	onProgress(0, "Probing video")
	info, err := e.probe(ctx, videoPath)
	if err != nil {
		return Result{}, err
	}
	if info.DurationMS <= 0 {
		return Result{}, fmt.Errorf("%w: zero duration in %s", ErrInvalidVideo, filepath.Base(videoPath))
	}
	onProgress(probeWeight*100, "Video probed")

	// Ceiling division so a trailing partial interval still gets sampled.
	// Any positive duration yields at least one offset.
	total := int((info.DurationMS*int64(e.fps) + 999) / 1000)
	logger.Info("starting frame walk",
		logging.String("video", filepath.Base(videoPath)),
		logging.Int64("duration_ms", info.DurationMS),
		logging.Int("fps", e.fps),
		logging.Int("planned_frames", total))

	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create frame dir: %w", err)
	}

	written := 0
	skipped := 0
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		offsetMS := int64(i) * 1000 / int64(e.fps)
		outPath := filepath.Join(frameDir, fmt.Sprintf("frame_%04d.jpg", written+1))
		if err := e.decoder.DecodeFrame(ctx, videoPath, offsetMS, outPath); err != nil {
			skipped++
			logger.Warn("frame decode failed, skipping offset",
				logging.Int64("offset_ms", offsetMS),
				logging.Error(err))
			continue
		}
		written++
		percent := (probeWeight + walkWeight*float64(i+1)/float64(total)) * 100
		onProgress(percent, fmt.Sprintf("Extracted frame %d of %d", written, total))
	}

	if written == 0 {
		return Result{}, fmt.Errorf("%w: all %d offsets failed", ErrNoFrames, total)
	}

	onProgress(100, fmt.Sprintf("%d frames written", written))
	logger.Info("frame walk completed",
		logging.Int("frames", written),
		logging.Int("skipped", skipped))

	return Result{
		FrameDir:   frameDir,
		FrameCount: written,
		Skipped:    skipped,
		Video:      info,
	}, nil
}
