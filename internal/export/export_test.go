package export_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"fieldframe/internal/export"
	"fieldframe/internal/logging"
	"fieldframe/internal/queue"
	"fieldframe/internal/services"
	"fieldframe/internal/testsupport"
)

func stagedItem(t *testing.T, store *queue.Store, stagingDir string, frames int) *queue.Item {
	t.Helper()
	item := testsupport.NewRecording(t, store, 1700000000000, "/videos/x.mp4", "vintage lamp")

	frameDir := filepath.Join(stagingDir, "vintage_lamp_1700000000000")
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		t.Fatalf("mkdir frames: %v", err)
	}
	for i := 1; i <= frames; i++ {
		name := fmt.Sprintf("frame_%04d.jpg", i)
		if err := os.WriteFile(filepath.Join(frameDir, name), []byte("jpeg"), 0o644); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(frameDir, "metadata.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	item.Status = queue.StatusExtracted
	item.FrameDir = frameDir
	item.FrameCount = frames
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return item
}

func TestExecuteCopiesFrameSetAndPurgesStaging(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithExportMode("local"))
	store := testsupport.MustOpenStore(t, cfg)
	item := stagedItem(t, store, cfg.Paths.StagingDir, 2)
	handler := export.NewWithDependencies(cfg, store, logging.NewNop(), nil)
	ctx := context.Background()

	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	wantDir := filepath.Join(cfg.Paths.ExportDir, "vintage_lamp", "vintage_lamp_1700000000000")
	if item.ExportPath != wantDir {
		t.Fatalf("export path = %q, want %q", item.ExportPath, wantDir)
	}
	for _, name := range []string{"frame_0001.jpg", "frame_0002.jpg", "metadata.json"} {
		if _, err := os.Stat(filepath.Join(wantDir, name)); err != nil {
			t.Errorf("exported file %s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(item.FrameDir); !os.IsNotExist(err) {
		t.Fatalf("staging dir should be purged, stat err = %v", err)
	}
}

func TestPrepareRejectsMissingFrameDir(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithExportMode("local"))
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewRecording(t, store, 7, "/videos/x.mp4", "lamp")
	handler := export.NewWithDependencies(cfg, store, logging.NewNop(), nil)

	err := handler.Prepare(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPrepareRejectsMissingExportDir(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithExportMode("local"))
	store := testsupport.MustOpenStore(t, cfg)
	item := stagedItem(t, store, cfg.Paths.StagingDir, 1)
	cfg.Paths.ExportDir = ""
	handler := export.NewWithDependencies(cfg, store, logging.NewNop(), nil)

	err := handler.Prepare(context.Background(), item)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
