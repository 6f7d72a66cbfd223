// Package metadata renders the sidecar document that travels with every
// extracted frame set. The JSON layout is consumed by downstream training
// tooling and must stay stable.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName is the sidecar file written alongside extracted frames.
const FileName = "metadata.json"

// RecordingMetadata describes one extracted frame set.
type RecordingMetadata struct {
	ObjectName      string `json:"object_name"`
	Timestamp       int64  `json:"timestamp"`
	FrameCount      int    `json:"frame_count"`
	VideoResolution string `json:"video_resolution"`
	VideoWidth      int    `json:"video_width"`
	VideoHeight     int    `json:"video_height"`
	VideoDurationMS int64  `json:"video_duration_ms"`
	ExtractionFPS   int    `json:"extraction_fps"`
	CaptureDate     string `json:"capture_date"`
	FolderName      string `json:"folder_name"`
}

// Resolution classifies pixel dimensions into a display class by the larger
// dimension: 4K, 1080p, 720p, or 480p. Smaller frames render literally as
// "WIDTHxHEIGHT" and unknown dimensions as "unknown".
func Resolution(width, height int) string {
	if width <= 0 || height <= 0 {
		return "unknown"
	}
	larger := width
	if height > larger {
		larger = height
	}
	switch {
	case larger >= 3840:
		return "4K"
	case larger >= 1920:
		return "1080p"
	case larger >= 1280:
		return "720p"
	case larger >= 854:
		return "480p"
	default:
		return fmt.Sprintf("%dx%d", width, height)
	}
}

// CaptureDate formats a capture timestamp as ISO-8601 with millisecond
// precision and the timestamp's numeric UTC offset.
func CaptureDate(ts time.Time) string {
	return ts.Format("2006-01-02T15:04:05.000-07:00")
}

// Write marshals the metadata and writes it to dir/metadata.json.
func Write(dir string, meta RecordingMetadata) (string, error) {
	if meta.ObjectName == "" {
		return "", errors.New("metadata: object name is empty")
	}
	if meta.FrameCount < 0 {
		return "", fmt.Errorf("metadata: negative frame count %d", meta.FrameCount)
	}

	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	payload = append(payload, '\n')

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	return path, nil
}

// Read loads and strictly decodes a sidecar document. Unknown fields are
// rejected so schema drift is caught at read time instead of downstream.
func Read(path string) (RecordingMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return RecordingMetadata{}, fmt.Errorf("open metadata: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()

	var meta RecordingMetadata
	if err := decoder.Decode(&meta); err != nil {
		return RecordingMetadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, nil
}
