package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// CommandRunner runs external tools under a timeout in their own process
// group, forwarding output to the logger.
type CommandRunner struct {
	logger  *zap.Logger
	timeout time.Duration
}

// NewCommandRunner creates a new CommandRunner. A zero timeout uses DefaultCommandTimeout.
func NewCommandRunner(logger *zap.Logger, timeout time.Duration) *CommandRunner {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &CommandRunner{logger: logger, timeout: timeout}
}

// Run executes argv in dir with env appended to the process environment.
func (r *CommandRunner) Run(ctx context.Context, dir string, env []string, argv []string) error {
	if len(argv) == 0 {
		return errors.New("command cannot be empty")
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	ConfigureProcessGroup(cmd)
	cmd.Cancel = func() error {
		pid := cmd.Process.Pid
		if err := TerminateProcessGroup(pid); err != nil {
			return KillProcessGroup(pid)
		}
		go func() {
			time.Sleep(KillGracePeriod)
			_ = KillProcessGroup(pid)
		}()
		return nil
	}
	cmd.WaitDelay = KillGracePeriod

	logger := r.logger.With(zap.String("command", argv[0]), zap.String("dir", dir))
	stdout := NewLogWriter(logger, "stdout")
	stderr := NewLogWriter(logger, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Debug("Running command", zap.Strings("args", argv[1:]))
	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("command %s timed out after %v", argv[0], r.timeout)
		}
		if tail := stderr.Tail(); tail != "" {
			return fmt.Errorf("command %s failed: %w: %s", argv[0], err, tail)
		}
		return fmt.Errorf("command %s failed: %w", argv[0], err)
	}
	return nil
}
