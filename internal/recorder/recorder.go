// Package recorder captures guided-session video from a camera device by
// shelling out to ffmpeg.
package recorder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// EventKind identifies a recording lifecycle event.
type EventKind string

const (
	// EventStarted fires once the capture process is running.
	EventStarted EventKind = "started"
	// EventFinalized fires once the output file is complete on disk.
	EventFinalized EventKind = "finalized"
)

// Event reports recording lifecycle progress to the capture session.
type Event struct {
	Kind      EventKind
	Path      string
	ElapsedMS int64
	At        time.Time
}

// Request describes one recording run.
type Request struct {
	Device     string
	OutputPath string
	Duration   time.Duration
}

// Recorder records a single video per request, blocking until the output
// file is finalized or the context ends.
type Recorder interface {
	Record(ctx context.Context, req Request, onEvent func(Event)) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the ffmpeg recorder.
type Option func(*FFmpegRecorder)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *FFmpegRecorder) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// FFmpegRecorder records from a video4linux device via ffmpeg.
type FFmpegRecorder struct {
	binary string
	exec   Executor
}

// New constructs an ffmpeg-backed recorder.
func New(binary string, opts ...Option) (*FFmpegRecorder, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	recorder := &FFmpegRecorder{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(recorder)
	}
	return recorder, nil
}

// Record runs ffmpeg against the configured device for the requested
// duration and verifies the output file exists before finalizing.
func (r *FFmpegRecorder) Record(ctx context.Context, req Request, onEvent func(Event)) error {
	device := strings.TrimSpace(req.Device)
	if device == "" {
		return errors.New("capture device required")
	}
	output := strings.TrimSpace(req.OutputPath)
	if output == "" {
		return errors.New("output path required")
	}
	if req.Duration <= 0 {
		return errors.New("recording duration must be positive")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create capture directory: %w", err)
	}

	seconds := req.Duration.Seconds()
	args := []string{
		"-hide_banner",
		"-f", "v4l2",
		"-i", device,
		"-t", strconv.FormatFloat(seconds, 'f', -1, 64),
		"-y",
		output,
	}

	emit(onEvent, Event{Kind: EventStarted, Path: output, At: time.Now()})

	if err := r.exec.Run(ctx, r.binary, args, func(line string) {
		if elapsed, ok := parseElapsed(line); ok {
			emit(onEvent, Event{Kind: EventStarted, Path: output, ElapsedMS: elapsed, At: time.Now()})
		}
	}); err != nil {
		_ = os.Remove(output)
		return fmt.Errorf("ffmpeg capture: %w", err)
	}

	info, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("ffmpeg produced no output file: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(output)
		return errors.New("ffmpeg produced an empty recording")
	}

	emit(onEvent, Event{Kind: EventFinalized, Path: output, ElapsedMS: req.Duration.Milliseconds(), At: time.Now()})
	return nil
}

func emit(onEvent func(Event), event Event) {
	if onEvent != nil {
		onEvent(event)
	}
}

// parseElapsed extracts the elapsed capture time from an ffmpeg status
// line, e.g. "frame=  120 fps= 30 ... time=00:00:04.02 bitrate=...".
func parseElapsed(line string) (int64, bool) {
	idx := strings.Index(line, "time=")
	if idx < 0 {
		return 0, false
	}
	fields := strings.Fields(line[idx+len("time="):])
	if len(fields) == 0 {
		return 0, false
	}
	parts := strings.Split(fields[0], ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}
	totalMS := int64(hours)*3600_000 + int64(minutes)*60_000 + int64(seconds*1000)
	if totalMS < 0 {
		return 0, false
	}
	return totalMS, true
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
