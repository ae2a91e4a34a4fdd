package media

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/yeti47/framegrab/server/core/ccc/logging"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultKillGrace = 2 * time.Second

	// maxStderrBytes limits how much ffmpeg diagnostics end up in an error
	maxStderrBytes = 4096
)

// ExecutionOutcome captures what happened to one ffmpeg process.
type ExecutionOutcome struct {
	ExitSuccess bool
	ExitCode    int
	Stdout      []byte
	Stderr      []byte
	TimedOut    bool
	Elapsed     time.Duration
}

// Executor runs a CommandSpec under a hard deadline and verifies its output.
type Executor interface {
	Execute(ctx context.Context, spec CommandSpec) (*ExecutionOutcome, error)
}

// ExecutorSettings configures a ProcessExecutor.
type ExecutorSettings struct {
	Timeout   time.Duration // hard limit measured from process launch
	KillGrace time.Duration // how long to wait for the process to exit after it was killed
}

// DefaultExecutorSettings returns a 30 second timeout with a 2 second kill grace
func DefaultExecutorSettings() ExecutorSettings {
	return ExecutorSettings{
		Timeout:   DefaultTimeout,
		KillGrace: DefaultKillGrace,
	}
}

// ProcessExecutor runs ffmpeg as a child process.
type ProcessExecutor struct {
	logger   logging.Logger
	settings ExecutorSettings
}

// NewProcessExecutor creates an executor; zero settings fall back to the defaults
func NewProcessExecutor(logger logging.Logger, settings ExecutorSettings) *ProcessExecutor {
	if logger == nil {
		logger = logging.NopLogger
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	if settings.KillGrace <= 0 {
		settings.KillGrace = DefaultKillGrace
	}
	return &ProcessExecutor{
		logger:   logger,
		settings: settings,
	}
}

// Execute starts the process described by spec and waits for it, the hard
// timeout, or ctx, whichever comes first. On timeout or cancellation the
// process is killed and reaped before Execute returns, so no child outlives
// the call by more than the kill grace. A successful exit is only reported as
// success when spec.OutputPath exists and is non-empty.
func (e *ProcessExecutor) Execute(ctx context.Context, spec CommandSpec) (*ExecutionOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewCanceledError(err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(spec.Program, spec.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = e.settings.KillGrace

	e.logger.Debug("Starting ffmpeg", "program", spec.Program, "args", strings.Join(spec.Args, " "))

	started := time.Now()
	if err := cmd.Start(); err != nil {
		e.logger.Error("Failed to start ffmpeg", "program", spec.Program, "error", err)
		return nil, NewSpawnError(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(e.settings.Timeout)
	defer timer.Stop()

	outcome := &ExecutionOutcome{ExitCode: -1}

	select {
	case waitErr := <-done:
		outcome.Elapsed = time.Since(started)
		outcome.Stdout = stdout.Bytes()
		outcome.Stderr = stderr.Bytes()
		return e.finish(spec, outcome, waitErr)

	case <-timer.C:
		e.kill(cmd, done)
		outcome.TimedOut = true
		outcome.Elapsed = time.Since(started)
		e.logger.Warn("ffmpeg timed out and was killed", "timeout", e.settings.Timeout, "output", spec.OutputPath)
		return outcome, NewTimeoutError(e.settings.Timeout)

	case <-ctx.Done():
		e.kill(cmd, done)
		outcome.Elapsed = time.Since(started)
		e.logger.Warn("ffmpeg canceled and was killed", "output", spec.OutputPath, "error", ctx.Err())
		return outcome, NewCanceledError(ctx.Err())
	}
}

// kill terminates the process and waits up to the kill grace for Wait to return
func (e *ProcessExecutor) kill(cmd *exec.Cmd, done <-chan error) {
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		e.logger.Error("Failed to kill ffmpeg", "pid", cmd.Process.Pid, "error", err)
	}

	grace := time.NewTimer(e.settings.KillGrace)
	defer grace.Stop()

	select {
	case <-done:
	case <-grace.C:
		e.logger.Warn("ffmpeg did not exit within kill grace", "pid", cmd.Process.Pid, "grace", e.settings.KillGrace)
	}
}

// finish classifies the exit status and checks the output file
func (e *ProcessExecutor) finish(spec CommandSpec, outcome *ExecutionOutcome, waitErr error) (*ExecutionOutcome, error) {
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			outcome.ExitCode = exitErr.ExitCode()
			stderrText := tail(outcome.Stderr, maxStderrBytes)
			e.logger.Warn("ffmpeg exited with failure", "exit_code", outcome.ExitCode, "stderr", stderrText)
			return outcome, NewExecutionFailedError(outcome.ExitCode, stderrText)
		}
		e.logger.Error("Failed to wait for ffmpeg", "error", waitErr)
		return outcome, NewJoinError(waitErr)
	}

	outcome.ExitSuccess = true
	outcome.ExitCode = 0

	info, err := os.Stat(spec.OutputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return outcome, NewOutputMissingError(spec.OutputPath)
		}
		return outcome, NewIOError("failed to stat output file", err)
	}
	if info.Size() == 0 {
		return outcome, NewOutputEmptyError(spec.OutputPath)
	}

	e.logger.Debug("ffmpeg finished", "output", spec.OutputPath, "size", info.Size(), "elapsed", outcome.Elapsed)
	return outcome, nil
}

// tail returns at most limit trailing bytes of b as trimmed text
func tail(b []byte, limit int) string {
	if len(b) > limit {
		b = b[len(b)-limit:]
	}
	return strings.TrimSpace(string(b))
}
