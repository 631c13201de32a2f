package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Recorder captures the practice session alongside playback.
type Recorder interface {
	// Ready starts capture and returns once it is running. An error ends
	// the session before anything is played.
	Ready(ctx context.Context) error
	// Finish stops capture and persists the result.
	Finish(ctx context.Context) error
}

// NoopRecorder is used when no capture is configured.
type NoopRecorder struct{}

func (NoopRecorder) Ready(context.Context) error  { return nil }
func (NoopRecorder) Finish(context.Context) error { return nil }

// DefaultSettle is the pause before capture starts.
const DefaultSettle = 800 * time.Millisecond

// startupGrace is how long a freshly started capture process must survive
// to count as running.
const startupGrace = 250 * time.Millisecond

// CommandRecorder runs an external capture program (ffmpeg, arecord, ...)
// for the length of the session. The program is interrupted on Finish.
type CommandRecorder struct {
	// Command is split on whitespace; quoting is not supported.
	Command string
	Settle  time.Duration
	Logger  *log.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	exited chan error
}

// NewCommandRecorder returns a recorder for command.
func NewCommandRecorder(command string, settle time.Duration, logger *log.Logger) *CommandRecorder {
	if logger == nil {
		logger = log.Default()
	}
	return &CommandRecorder{Command: command, Settle: settle, Logger: logger}
}

// Ready waits for the settle delay, then starts the capture program.
func (r *CommandRecorder) Ready(ctx context.Context) error {
	args := strings.Fields(r.Command)
	if len(args) == 0 {
		return errors.New("recorder command is empty")
	}

	if r.Settle > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Settle):
		}
	}

	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("unable to start recorder: %w", err)
	}
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case err := <-exited:
		if err == nil {
			err = errors.New("exited immediately")
		}
		return fmt.Errorf("recorder stopped during startup: %w", err)
	case <-ctx.Done():
		cmd.Process.Kill() //nolint:errcheck
		return ctx.Err()
	case <-time.After(startupGrace):
	}

	r.mu.Lock()
	r.cmd = cmd
	r.exited = exited
	r.mu.Unlock()
	r.Logger.Info("recorder started", "command", args[0], "pid", cmd.Process.Pid)
	return nil
}

// Finish interrupts the capture program and waits for it to write its
// output. The program is killed if ctx ends first.
func (r *CommandRecorder) Finish(ctx context.Context) error {
	r.mu.Lock()
	cmd, exited := r.cmd, r.exited
	r.cmd, r.exited = nil, nil
	r.mu.Unlock()
	if cmd == nil {
		return nil
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		r.Logger.Debug("interrupt failed, killing recorder", "err", err)
		cmd.Process.Kill() //nolint:errcheck
	}

	select {
	case err := <-exited:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// ffmpeg and arecord exit non-zero on SIGINT.
			r.Logger.Debug("recorder exited", "code", exitErr.ExitCode())
			return nil
		}
		return err
	case <-ctx.Done():
		cmd.Process.Kill() //nolint:errcheck
		<-exited
		return ctx.Err()
	}
}
