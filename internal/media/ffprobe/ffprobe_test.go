package ffprobe

import (
	"context"
	"testing"
)

func TestVideoDimensions(t *testing.T) {
	result := Result{Streams: []Stream{
		{CodecType: "audio"},
		{CodecType: "video", Width: 1920, Height: 1080},
		{CodecType: "video", Width: 640, Height: 480},
	}}
	width, height := result.VideoDimensions()
	if width != 1920 || height != 1080 {
		t.Fatalf("VideoDimensions = %dx%d, want first video stream 1920x1080", width, height)
	}
	if result.VideoStreamCount() != 2 {
		t.Fatalf("VideoStreamCount = %d", result.VideoStreamCount())
	}
}

func TestVideoDimensionsNoVideoStream(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "audio"}}}
	if width, height := result.VideoDimensions(); width != 0 || height != 0 {
		t.Fatalf("expected zeros, got %dx%d", width, height)
	}
}

func TestDurationSeconds(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"25.048", 25.048},
		{"", 0},
		{"garbage", 0},
		{"-3", 0},
	}
	for _, tc := range cases {
		result := Result{Format: Format{Duration: tc.raw}}
		if got := result.DurationSeconds(); got != tc.want {
			t.Errorf("DurationSeconds(%q) = %f, want %f", tc.raw, got, tc.want)
		}
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "ffprobe", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
