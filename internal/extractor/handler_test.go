package extractor_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"fieldframe/internal/extractor"
	"fieldframe/internal/logging"
	"fieldframe/internal/metadata"
	"fieldframe/internal/services"
	"fieldframe/internal/testsupport"
)

type writingDecoder struct{}

func (writingDecoder) DecodeFrame(ctx context.Context, videoPath string, offsetMS int64, outputPath string) error {
	return os.WriteFile(outputPath, []byte(fmt.Sprintf("frame@%d", offsetMS)), 0o644)
}

func TestExecuteWritesFramesAndSidecar(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	videoPath := filepath.Join(cfg.Paths.CaptureDir, "capture_1700000000000.mp4")
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	item := testsupport.NewRecording(t, store, 1700000000000, videoPath, "Coffee Mug")

	probe := func(ctx context.Context, path string) (extractor.VideoInfo, error) {
		return extractor.VideoInfo{DurationMS: 3000, Width: 1920, Height: 1080}, nil
	}
	engine := extractor.NewEngine(writingDecoder{}, probe, 1, logging.NewNop())
	handler := extractor.NewWithEngine(cfg, store, logging.NewNop(), engine)

	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	wantDir := filepath.Join(cfg.Paths.StagingDir, "coffee_mug_1700000000000")
	if item.FrameDir != wantDir {
		t.Fatalf("frame dir = %q, want %q", item.FrameDir, wantDir)
	}
	if item.FrameCount != 3 {
		t.Fatalf("frame count = %d, want 3", item.FrameCount)
	}
	if item.ProgressPercent != 100 {
		t.Fatalf("progress = %f", item.ProgressPercent)
	}

	meta, err := metadata.Read(filepath.Join(wantDir, metadata.FileName))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if meta.ObjectName != "coffee_mug" || meta.FrameCount != 3 {
		t.Fatalf("sidecar = %+v", meta)
	}
	if meta.VideoResolution != "1920x1080" {
		t.Fatalf("resolution = %q", meta.VideoResolution)
	}
	if meta.FolderName != "coffee_mug_1700000000000" {
		t.Fatalf("folder name = %q", meta.FolderName)
	}
}

func TestPrepareRejectsMissingVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewRecording(t, store, 1, filepath.Join(cfg.Paths.CaptureDir, "gone.mp4"), "lamp")
	handler := extractor.New(cfg, store, logging.NewNop())

	err := handler.Prepare(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPrepareClearsStaleFrameDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	videoPath := filepath.Join(cfg.Paths.CaptureDir, "a.mp4")
	if err := os.MkdirAll(cfg.Paths.CaptureDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	item := testsupport.NewRecording(t, store, 7, videoPath, "lamp")

	staleDir := extractor.FrameDirFor(cfg, item)
	if err := os.MkdirAll(staleDir, 0o755); err != nil {
		t.Fatalf("mkdir stale: %v", err)
	}
	stale := filepath.Join(staleDir, "frame_0099.jpg")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}

	handler := extractor.New(cfg, store, logging.NewNop())
	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale frame should be removed, stat err = %v", err)
	}
}

func TestExecuteInvalidVideoIsTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	videoPath := filepath.Join(cfg.Paths.CaptureDir, "bad.mp4")
	if err := os.WriteFile(videoPath, []byte("not a video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	item := testsupport.NewRecording(t, store, 9, videoPath, "lamp")

	probe := func(ctx context.Context, path string) (extractor.VideoInfo, error) {
		return extractor.VideoInfo{}, fmt.Errorf("%w: probe says no", extractor.ErrInvalidVideo)
	}
	engine := extractor.NewEngine(writingDecoder{}, probe, 1, logging.NewNop())
	handler := extractor.NewWithEngine(cfg, store, logging.NewNop(), engine)

	err := handler.Execute(ctx, item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !services.IsTerminal(err) {
		t.Fatal("invalid video should be terminal")
	}
}
