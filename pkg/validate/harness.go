package validate

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"depsweep-go/pkg/logger"
)

// DefaultGracePeriod is how long the dev server is given to start before
// the harness declares the fix validated.
const DefaultGracePeriod = 5 * time.Second

// DefaultCommand is the dev server invocation used when nothing else is
// configured.
var DefaultCommand = []string{"npm", "run", "dev"}

// Outcome describes one validation attempt.
type Outcome struct {
	Passed bool
	// Output holds the captured stdout/stderr of the launched process.
	// It is never surfaced on the caller's console, only kept for logs.
	Output string
	// LaunchError is set when the process could not be started at all.
	LaunchError error
}

// Harness validates a fix by launching a long-running process and
// observing whether it starts. This is a liveness heuristic, not a
// correctness check: a process that starts and then misbehaves inside or
// after the grace window is indistinguishable from a healthy one.
type Harness struct {
	command []string
	grace   time.Duration
	log     *logger.Logger
}

// NewHarness creates a harness for the given start command. A nil or
// empty command falls back to DefaultCommand; a zero grace period falls
// back to DefaultGracePeriod.
func NewHarness(command []string, grace time.Duration) *Harness {
	if len(command) == 0 {
		command = DefaultCommand
	}
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Harness{
		command: command,
		grace:   grace,
		log:     logger.GetLogger().WithField("component", "validation_harness"),
	}
}

// Validate launches the configured command with its working directory set
// to projectRoot. A launch failure is a FAIL. Otherwise the harness waits
// the full grace period, terminates the process, and reports PASS.
// Cancelling ctx during the wait counts as a FAIL so the caller can treat
// an interrupted attempt like a failed one.
func (h *Harness) Validate(ctx context.Context, projectRoot string) Outcome {
	cmd := exec.Command(h.command[0], h.command[1:]...)
	cmd.Dir = projectRoot
	// The child gets its own process group so terminate can reach
	// grandchildren too: npm-style wrappers spawn the real server as a
	// child that inherits the output pipes, and Wait cannot return while
	// anything still holds them open.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = 2 * time.Second

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	h.log.WithFields(map[string]interface{}{
		"command": h.command,
		"grace":   h.grace.String(),
	}).Debug("Launching validation process")

	if err := cmd.Start(); err != nil {
		h.log.WithError(err).Warn("Validation process failed to launch")
		return Outcome{
			Passed:      false,
			LaunchError: fmt.Errorf("failed to launch %v: %w", h.command, err),
		}
	}

	// Reap the child in the background so terminate below cannot leave a
	// zombie behind.
	waitDone := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(waitDone)
	}()

	interrupted := false
	select {
	case <-time.After(h.grace):
	case <-ctx.Done():
		interrupted = true
	}

	h.terminate(cmd)
	<-waitDone

	if interrupted {
		h.log.Warn("Validation interrupted, treating as failure")
		return Outcome{Passed: false, Output: output.String(), LaunchError: ctx.Err()}
	}

	h.log.Debug("Validation process survived launch, treating as pass")
	return Outcome{Passed: true, Output: output.String()}
}

// terminate kills the whole process group. Killing only the direct child
// leaves grandchildren running and holding the output pipes open.
func (h *Harness) terminate(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}
