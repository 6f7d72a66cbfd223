package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	meta := RecordingMetadata{
		ObjectName:      "coffee_mug",
		Timestamp:       1700000000000,
		FrameCount:      25,
		VideoResolution: "1080p",
		VideoWidth:      1920,
		VideoHeight:     1080,
		VideoDurationMS: 25048,
		ExtractionFPS:   1,
		CaptureDate:     "2023-11-14T22:13:20.000+00:00",
		FolderName:      "coffee_mug_1700000000000",
	}

	path, err := Write(dir, meta)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != FileName {
		t.Fatalf("path = %q, want %s", path, FileName)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != meta {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, meta)
	}
}

func TestWriteUsesStableFieldNames(t *testing.T) {
	dir := t.TempDir()
	meta := RecordingMetadata{ObjectName: "lamp", FrameCount: 1}
	path, err := Write(dir, meta)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	for _, field := range []string{
		"object_name", "timestamp", "frame_count", "video_resolution",
		"video_width", "video_height", "video_duration_ms",
		"extraction_fps", "capture_date", "folder_name",
	} {
		if !strings.Contains(string(raw), `"`+field+`"`) {
			t.Errorf("field %q missing from document", field)
		}
	}
}

func TestWriteRejectsEmptyObjectName(t *testing.T) {
	if _, err := Write(t.TempDir(), RecordingMetadata{}); err == nil {
		t.Fatal("expected error for empty object name")
	}
}

func TestReadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	payload := `{"object_name":"x","bogus_field":true}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Fatal("expected unknown field rejection")
	}
}

func TestResolution(t *testing.T) {
	cases := []struct {
		width, height int
		want          string
	}{
		{3840, 2160, "4K"},
		{1920, 1080, "1080p"},
		{1080, 1920, "1080p"},
		{1280, 720, "720p"},
		{854, 480, "480p"},
		{640, 480, "640x480"},
		{0, 480, "unknown"},
	}
	for _, tc := range cases {
		if got := Resolution(tc.width, tc.height); got != tc.want {
			t.Errorf("Resolution(%d,%d) = %q, want %q", tc.width, tc.height, got, tc.want)
		}
	}
}

func TestCaptureDate(t *testing.T) {
	ts := time.UnixMilli(1700000000000).UTC()
	if got := CaptureDate(ts); got != "2023-11-14T22:13:20.000+00:00" {
		t.Fatalf("CaptureDate = %q", got)
	}
}
