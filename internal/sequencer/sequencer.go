// Package sequencer drives the guided capture countdown. A session walks the
// configured phase table one second at a time, raising a pulse at every phase
// boundary so the capture surface can buzz and swap instructions.
package sequencer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fieldframe/internal/config"
	"fieldframe/internal/logging"
)

// State describes where a session is in its lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// ErrNoPhases indicates the phase table is empty.
var ErrNoPhases = errors.New("sequencer: no phases configured")

// Snapshot is a point-in-time view of the session for display surfaces.
type Snapshot struct {
	State          State
	PhaseIndex     int
	PhaseCount     int
	Instruction    string
	Label          string
	Icon           string
	PhaseRemaining int
	TotalElapsed   int
	TotalDuration  int
	Progress       float64
}

// Sequencer runs one guided capture session at a time.
type Sequencer struct {
	logger *slog.Logger

	mu           sync.Mutex
	phases       []config.Phase
	total        int
	state        State
	phaseIndex   int
	phaseElapsed int
	totalElapsed int
	pulsePending bool
	done         chan struct{}
	cancel       context.CancelFunc
}

// New constructs a sequencer over the configured phase table.
func New(capture config.Capture, logger *slog.Logger) (*Sequencer, error) {
	if len(capture.Phases) == 0 {
		return nil, ErrNoPhases
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sequencer{
		logger: logging.NewComponentLogger(logger, "sequencer"),
		phases: capture.Phases,
		total:  capture.TotalCaptureSeconds(),
		state:  StateIdle,
	}, nil
}

// Start begins ticking the session at one-second intervals. The session runs
// until Stop is called or the context is cancelled; reaching the end of the
// phase table does not end it. Starting while a session is active cancels
// the previous ticker first, so at most one runs per sequencer.
func (s *Sequencer) Start(ctx context.Context) error {
	s.mu.Lock()
	for s.state == StateRunning && s.cancel != nil {
		cancel := s.cancel
		done := s.done
		s.mu.Unlock()
		cancel()
		if done != nil {
			<-done
		}
		s.mu.Lock()
	}
	s.resetLocked()
	s.state = StateRunning
	s.pulsePending = true // opening pulse announces the first instruction
	s.done = make(chan struct{})
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	done := s.done
	s.mu.Unlock()

	s.logger.Info("capture session started",
		logging.Int("phases", len(s.phases)),
		logging.Int("total_seconds", s.total))

	go s.run(runCtx, done)
	return nil
}

func (s *Sequencer) run(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.state == StateRunning {
				s.state = StateStopped
			}
			s.mu.Unlock()
			close(done)
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances the session by one second. The ticker goroutine calls this
// once per second; tests drive it directly. Phase advancement is strictly
// forward, and the final phase idles once its duration passes: the walk is
// guidance, the recording length is decided by the operator.
func (s *Sequencer) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return
	}

	s.phaseElapsed++
	s.totalElapsed++

	if s.phaseElapsed >= s.phases[s.phaseIndex].DurationSeconds && s.phaseIndex+1 < len(s.phases) {
		s.pulsePending = true
		s.phaseIndex++
		s.phaseElapsed = 0
		s.logger.Debug("phase advanced",
			logging.Int("phase", s.phaseIndex),
			logging.String("label", s.phases[s.phaseIndex].Label))
	}
}

// Stop halts a running session without completing the phase walk.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	if s.state == StateRunning {
		s.state = StateStopped
	}
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Reset returns the session to idle so it can be started again.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Sequencer) resetLocked() {
	s.state = StateIdle
	s.phaseIndex = 0
	s.phaseElapsed = 0
	s.totalElapsed = 0
	s.pulsePending = false
	s.done = nil
	s.cancel = nil
}

// Done returns a channel closed when the running session ends. Returns nil
// when no session has been started.
func (s *Sequencer) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// ConsumePulse reports whether a phase boundary fired since the last call
// and clears the flag. Boundaries are edge-triggered so a slow poller sees
// at most one pulse per boundary.
func (s *Sequencer) ConsumePulse() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fired := s.pulsePending
	s.pulsePending = false
	return fired
}

// Snapshot returns the current session view.
func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:         s.state,
		PhaseIndex:    s.phaseIndex,
		PhaseCount:    len(s.phases),
		TotalElapsed:  s.totalElapsed,
		TotalDuration: s.total,
	}
	phase := s.phases[s.phaseIndex]
	snap.Instruction = phase.Instruction
	snap.Label = phase.Label
	snap.Icon = phase.Icon
	snap.PhaseRemaining = phase.DurationSeconds - s.phaseElapsed
	if snap.PhaseRemaining < 0 {
		snap.PhaseRemaining = 0
	}
	if s.total > 0 {
		snap.Progress = float64(s.totalElapsed) / float64(s.total)
		if snap.Progress > 1 {
			snap.Progress = 1
		}
	}
	return snap
}
