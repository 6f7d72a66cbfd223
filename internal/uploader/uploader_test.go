package uploader_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"fieldframe/internal/config"
	"fieldframe/internal/logging"
	"fieldframe/internal/queue"
	"fieldframe/internal/remote"
	"fieldframe/internal/services"
	"fieldframe/internal/testsupport"
	"fieldframe/internal/uploader"
)

type fakeObjectStore struct {
	mu        sync.Mutex
	folders   map[string]remote.Folder // "parent/name" -> folder
	files     map[string]remote.File   // "folderID/name" -> file
	nextID    int
	uploads   int
	failNames map[string]bool
	authFail  bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		folders:   make(map[string]remote.Folder),
		files:     make(map[string]remote.File),
		failNames: make(map[string]bool),
	}
}

func (f *fakeObjectStore) EnsureFolder(ctx context.Context, parentID, name string) (remote.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authFail {
		return remote.Folder{}, services.ErrNotAuthenticated
	}
	key := parentID + "/" + name
	if folder, ok := f.folders[key]; ok {
		return folder, nil
	}
	f.nextID++
	folder := remote.Folder{ID: fmt.Sprintf("f%d", f.nextID), Name: name, ParentID: parentID}
	f.folders[key] = folder
	return folder, nil
}

func (f *fakeObjectStore) FindFile(ctx context.Context, folderID, name string) (*remote.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file, ok := f.files[folderID+"/"+name]; ok {
		return &file, nil
	}
	return nil, nil
}

func (f *fakeObjectStore) UploadFile(ctx context.Context, folderID, localPath string) (remote.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(localPath)
	if f.failNames[name] {
		return remote.File{}, errors.New("remote write failed")
	}
	f.uploads++
	f.nextID++
	file := remote.File{ID: fmt.Sprintf("x%d", f.nextID), Name: name, FolderID: folderID}
	f.files[folderID+"/"+name] = file
	return file, nil
}

func extractedItem(t *testing.T, cfg *config.Config, store *queue.Store, frames int) *queue.Item {
	t.Helper()
	item := testsupport.NewRecording(t, store, 1700000000000, "/videos/x.mp4", "coffee mug")

	frameDir := filepath.Join(cfg.Paths.StagingDir, "coffee_mug_1700000000000")
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

func TestExecuteUploadsAllFilesAndPurgesStaging(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := extractedItem(t, cfg, store, 3)
	objectStore := newFakeObjectStore()
	handler := uploader.NewWithDependencies(cfg, store, logging.NewNop(), objectStore, nil)
	ctx := context.Background()

	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// 3 frames + metadata.json
	if objectStore.uploads != 4 {
		t.Fatalf("uploads = %d, want 4", objectStore.uploads)
	}
	if item.UploadAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", item.UploadAttempts)
	}
	if item.RemoteFolder != "FieldFrame/coffee_mug/coffee_mug_1700000000000" {
		t.Fatalf("remote folder = %q", item.RemoteFolder)
	}
	if item.ProgressPercent != 100 {
		t.Fatalf("progress = %f", item.ProgressPercent)
	}
	if _, err := os.Stat(item.FrameDir); !os.IsNotExist(err) {
		t.Fatalf("staging dir should be purged, stat err = %v", err)
	}
}

func TestExecuteContinuesPastSingleFileFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := extractedItem(t, cfg, store, 3)
	objectStore := newFakeObjectStore()
	objectStore.failNames["frame_0002.jpg"] = true
	handler := uploader.NewWithDependencies(cfg, store, logging.NewNop(), objectStore, nil)
	ctx := context.Background()

	err := handler.Execute(ctx, item)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient batch failure, got %v", err)
	}

	// The files after the failing one must still land: 3 frames plus the
	// sidecar minus the one failure.
	if objectStore.uploads != 3 {
		t.Fatalf("uploads = %d, want 3", objectStore.uploads)
	}
	if _, ok := objectStore.files["f3/frame_0003.jpg"]; !ok {
		t.Fatal("frame_0003.jpg was not attempted after the failure")
	}
	if _, ok := objectStore.files["f3/metadata.json"]; !ok {
		t.Fatal("metadata.json was not attempted after the failure")
	}
	if !strings.Contains(err.Error(), "3 of 4") {
		t.Fatalf("batch error should report the uploaded count, got %q", err.Error())
	}

	// The staging copy survives a partial batch so the retry can finish it.
	if _, statErr := os.Stat(item.FrameDir); statErr != nil {
		t.Fatalf("frame dir should survive partial failure: %v", statErr)
	}

	// Retry lands only the failed file.
	objectStore.failNames["frame_0002.jpg"] = false
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("retry Execute: %v", err)
	}
	if objectStore.uploads != 4 {
		t.Fatalf("uploads after retry = %d, want 4 (no re-uploads)", objectStore.uploads)
	}
}

func TestExecuteSkipsFilesAlreadyRemote(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := extractedItem(t, cfg, store, 2)
	objectStore := newFakeObjectStore()
	handler := uploader.NewWithDependencies(cfg, store, logging.NewNop(), objectStore, nil)
	ctx := context.Background()

	// First publish fails on the sidecar after the frames went up.
	objectStore.failNames["metadata.json"] = true
	if err := handler.Execute(ctx, item); err == nil {
		t.Fatal("expected first publish to fail")
	}
	if objectStore.uploads != 2 {
		t.Fatalf("uploads after failure = %d, want 2", objectStore.uploads)
	}

	// Retry uploads only the missing sidecar.
	objectStore.failNames["metadata.json"] = false
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("retry Execute: %v", err)
	}
	if objectStore.uploads != 3 {
		t.Fatalf("uploads after retry = %d, want 3 (no re-uploads)", objectStore.uploads)
	}
	if item.UploadAttempts != 2 {
		t.Fatalf("attempts = %d, want 2", item.UploadAttempts)
	}
}

func TestExecuteAuthFailureDoesNotConsumeAttempt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := extractedItem(t, cfg, store, 1)
	objectStore := newFakeObjectStore()
	objectStore.authFail = true
	handler := uploader.NewWithDependencies(cfg, store, logging.NewNop(), objectStore, nil)
	ctx := context.Background()

	err := handler.Execute(ctx, item)
	if !services.IsRetryEligible(err) {
		t.Fatalf("expected retry-eligible auth error, got %v", err)
	}
	if item.UploadAttempts != 0 {
		t.Fatalf("attempts = %d, auth hold must not consume one", item.UploadAttempts)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.UploadAttempts != 0 {
		t.Fatalf("persisted attempts = %d, want 0", got.UploadAttempts)
	}
}

func TestPrepareRejectsMissingSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Remote.Token = ""
	store := testsupport.MustOpenStore(t, cfg)
	item := extractedItem(t, cfg, store, 1)
	handler := uploader.NewWithDependencies(cfg, store, logging.NewNop(), newFakeObjectStore(), nil)

	err := handler.Prepare(context.Background(), item)
	if !services.IsRetryEligible(err) {
		t.Fatalf("expected retry-eligible hold, got %v", err)
	}
}

func TestPrepareRejectsEmptyFrameDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewRecording(t, store, 5, "/videos/x.mp4", "lamp")
	item.Status = queue.StatusExtracted
	handler := uploader.NewWithDependencies(cfg, store, logging.NewNop(), newFakeObjectStore(), nil)

	err := handler.Prepare(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
