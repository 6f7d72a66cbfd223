package extractor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// FrameDecoder produces one still image from a video at a given offset.
type FrameDecoder interface {
	DecodeFrame(ctx context.Context, videoPath string, offsetMS int64, outputPath string) error
}

// FFmpegDecoder decodes frames by input-seeking with the ffmpeg binary.
// Input seeking (-ss before -i) lands on the closest preceding keyframe and
// decodes forward, so each call is cheap even deep into the video.
type FFmpegDecoder struct {
	Binary      string
	JPEGQuality int
}

// NewFFmpegDecoder constructs a decoder for the given binary and JPEG quality.
func NewFFmpegDecoder(binary string, jpegQuality int) *FFmpegDecoder {
	return &FFmpegDecoder{Binary: binary, JPEGQuality: jpegQuality}
}

// DecodeFrame writes the frame at offsetMS to outputPath as a JPEG.
func (d *FFmpegDecoder) DecodeFrame(ctx context.Context, videoPath string, offsetMS int64, outputPath string) error {
	binary := strings.TrimSpace(d.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}

	offset := fmt.Sprintf("%d.%03d", offsetMS/1000, offsetMS%1000)
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-hide_banner",
		"-ss", offset,
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", fmt.Sprintf("%d", qscaleForQuality(d.JPEGQuality)),
		"-y",
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg decode at %sms: %w: %s", offset, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// qscaleForQuality maps a 1..100 JPEG quality to ffmpeg's 2..31 qscale range,
// where lower qscale means higher quality. The default quality of 90 maps to
// qscale 2.
func qscaleForQuality(quality int) int {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	qscale := (100 - quality) / 4
	if qscale < 2 {
		qscale = 2
	}
	if qscale > 31 {
		qscale = 31
	}
	return qscale
}
