package workflow_test

import (
	"context"
	"testing"

	"fieldframe/internal/logging"
	"fieldframe/internal/queue"
	"fieldframe/internal/services"
	"fieldframe/internal/stage"
	"fieldframe/internal/testsupport"
	"fieldframe/internal/workflow"
)

type fakeHandler struct {
	name       string
	prepareErr error
	executeErr error
	executed   int
	mutate     func(*queue.Item)
}

func (f *fakeHandler) Prepare(ctx context.Context, item *queue.Item) error {
	return f.prepareErr
}

func (f *fakeHandler) Execute(ctx context.Context, item *queue.Item) error {
	f.executed++
	if f.executeErr != nil {
		return f.executeErr
	}
	if f.mutate != nil {
		f.mutate(item)
	}
	return nil
}

func (f *fakeHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(f.name)
}

func TestRunOnceAdvancesPendingToExtracted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewRecording(t, store, 1, "/videos/a.mp4", "a")

	extract := &fakeHandler{name: "extract", mutate: func(item *queue.Item) {
		item.FrameDir = "/staging/a_1"
		item.FrameCount = 5
	}}
	manager := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), nil)
	manager.ConfigureStages(workflow.StageSet{Extractor: extract, Publisher: &fakeHandler{name: "publish"}})

	processed, err := manager.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !processed {
		t.Fatal("expected an item to be processed")
	}
	if extract.executed != 1 {
		t.Fatalf("extract executed %d times", extract.executed)
	}

	got, _ := store.GetByID(ctx, 1)
	if got.Status != queue.StatusExtracted {
		t.Fatalf("status = %s, want extracted", got.Status)
	}
	if got.FrameCount != 5 {
		t.Fatalf("frame count = %d", got.FrameCount)
	}
}

func TestRunOncePublishCompletesItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewRecording(t, store, 1, "/videos/a.mp4", "a")
	item.Status = queue.StatusExtracted
	item.FrameDir = "/staging/a_1"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	manager := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), nil)
	manager.ConfigureStages(workflow.StageSet{
		Extractor: &fakeHandler{name: "extract"},
		Publisher: &fakeHandler{name: "publish"},
	})

	if _, err := manager.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got, _ := store.GetByID(ctx, 1)
	if got.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.ProgressPercent != 100 {
		t.Fatalf("progress = %f", got.ProgressPercent)
	}
	if got.LastHeartbeat != nil {
		t.Fatal("heartbeat should be cleared on completion")
	}
}

func TestRunOnceTerminalErrorFailsItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewRecording(t, store, 1, "/videos/a.mp4", "a")

	boom := services.Wrap(services.ErrValidation, "extracting", "probe video", "Video is unreadable", nil)
	manager := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), nil)
	manager.ConfigureStages(workflow.StageSet{
		Extractor: &fakeHandler{name: "extract", executeErr: boom},
		Publisher: &fakeHandler{name: "publish"},
	})

	if _, err := manager.RunOnce(ctx); err == nil {
		t.Fatal("expected stage error")
	}

	got, _ := store.GetByID(ctx, 1)
	if got.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Fatal("error message should be recorded")
	}
}

func TestRunOnceAuthHoldKeepsItemExtracted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewRecording(t, store, 1, "/videos/a.mp4", "a")
	item.Status = queue.StatusExtracted
	item.FrameDir = "/staging/a_1"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	hold := services.Wrap(services.ErrNotAuthenticated, "publishing", "validate session", "No session", nil)
	manager := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), nil)
	manager.ConfigureStages(workflow.StageSet{
		Extractor: &fakeHandler{name: "extract"},
		Publisher: &fakeHandler{name: "publish", executeErr: hold},
	})

	if _, err := manager.RunOnce(ctx); err == nil {
		t.Fatal("expected hold error to propagate")
	}

	got, _ := store.GetByID(ctx, 1)
	if got.Status != queue.StatusExtracted {
		t.Fatalf("status = %s, auth hold should keep item extracted", got.Status)
	}
}

func TestRunOncePublishRetriesUntilCeiling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Upload.MaxAttempts = 3
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewRecording(t, store, 1, "/videos/a.mp4", "a")
	item.Status = queue.StatusExtracted
	item.FrameDir = "/staging/a_1"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// The real uploader persists the attempt counter itself; mirror that here.
	attempts := 0
	publisher := handlerFunc{
		execute: func(ctx context.Context, item *queue.Item) error {
			attempts++
			item.UploadAttempts = attempts
			if err := store.Update(ctx, item); err != nil {
				return err
			}
			return services.Wrap(services.ErrTransient, "publishing", "upload file", "Remote unreachable", nil)
		},
	}

	manager := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), nil)
	manager.ConfigureStages(workflow.StageSet{
		Extractor: &fakeHandler{name: "extract"},
		Publisher: publisher,
	})

	// First two failures roll the item back to extracted.
	for i := 1; i <= 2; i++ {
		if _, err := manager.RunOnce(ctx); err == nil {
			t.Fatalf("attempt %d should fail", i)
		}
		got, _ := store.GetByID(ctx, 1)
		if got.Status != queue.StatusExtracted {
			t.Fatalf("attempt %d: status = %s, want extracted", i, got.Status)
		}
	}

	// Third failure exhausts the ceiling.
	if _, err := manager.RunOnce(ctx); err == nil {
		t.Fatal("final attempt should fail")
	}
	got, _ := store.GetByID(ctx, 1)
	if got.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed after %d attempts", got.Status, attempts)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestStartRequiresConfiguredStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	manager := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), nil)
	if err := manager.Start(context.Background()); err == nil {
		manager.Stop()
		t.Fatal("expected error without configured stages")
	}
}

func TestStatusReportsStageHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	manager := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), nil)
	manager.ConfigureStages(workflow.StageSet{
		Extractor: &fakeHandler{name: "extract"},
		Publisher: &fakeHandler{name: "publish"},
	})

	summary := manager.Status(context.Background())
	if summary.Running {
		t.Fatal("manager should not be running")
	}
	if len(summary.StageHealth) != 2 {
		t.Fatalf("stage health entries = %d, want 2", len(summary.StageHealth))
	}
	if !summary.StageHealth["extract"].Ready {
		t.Fatal("extract stage should be healthy")
	}
}

// handlerFunc adapts closures to the stage.Handler interface.
type handlerFunc struct {
	prepare func(context.Context, *queue.Item) error
	execute func(context.Context, *queue.Item) error
}

func (h handlerFunc) Prepare(ctx context.Context, item *queue.Item) error {
	if h.prepare == nil {
		return nil
	}
	return h.prepare(ctx, item)
}

func (h handlerFunc) Execute(ctx context.Context, item *queue.Item) error {
	if h.execute == nil {
		return nil
	}
	return h.execute(ctx, item)
}

func (h handlerFunc) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("handler")
}
