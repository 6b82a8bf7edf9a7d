// Package renderer supervises the external pbrt process and turns its
// output into progress callbacks.
package renderer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"pbrt-iile/internal/logger"

	"github.com/mattn/go-shellwords"
	"golang.org/x/sync/errgroup"
)

// OutputGrace bounds how long output is drained after pbrt exits or is
// killed. Children that inherited the pipes cannot hold Stop hostage.
const OutputGrace = 2 * time.Second

var (
	ErrAlreadyRunning = errors.New("renderer already running")
	ErrNotRunning     = errors.New("renderer not running")
)

// Callbacks receive renderer lifecycle notifications. They are invoked from
// supervisor goroutines; nil callbacks are skipped.
type Callbacks struct {
	OnExit             func(code int, signal string)
	OnRenderFinish     func()
	OnIndirectProgress func(progress float64)
	OnDirectProgress   func(progress float64)
}

// Options configure how pbrt is launched
type Options struct {
	Binary string
	Scene  string
	// ExtraArgs is a shell-style argument string placed before the scene
	ExtraArgs string
	// Dir is the control directory the renderer writes its buffers into
	Dir string
}

// Command builds the argv for the renderer
func (o Options) Command() ([]string, error) {
	if o.Binary == "" {
		return nil, fmt.Errorf("renderer binary not configured")
	}

	argv := []string{o.Binary}
	if o.ExtraArgs != "" {
		extra, err := shellwords.Parse(o.ExtraArgs)
		if err != nil {
			return nil, fmt.Errorf("invalid renderer arguments %q: %w", o.ExtraArgs, err)
		}
		argv = append(argv, extra...)
	}
	if o.Scene != "" {
		argv = append(argv, o.Scene)
	}
	return argv, nil
}

type Supervisor struct {
	opts   Options
	logger logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewSupervisor(opts Options, log logger.Logger) *Supervisor {
	return &Supervisor{
		opts:   opts,
		logger: log,
	}
}

// Start launches the renderer and returns once the process is running.
// Output is consumed in the background until the process exits.
func (s *Supervisor) Start(ctx context.Context, cb Callbacks) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	argv, err := s.opts.Command()
	if err != nil {
		return err
	}

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, argv[0], argv[1:]...)
	cmd.Dir = s.opts.Dir
	// pbrt spawns helper processes (the NN connector); run them in their
	// own group so stopping the render takes the whole tree down
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killGroup(cmd)
	}
	cmd.WaitDelay = OutputGrace

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		cancel()
		stdoutW.Close()
		stderrW.Close()
		return fmt.Errorf("failed to start renderer: %w", err)
	}

	s.logger.Info("Supervisor", "renderer started", map[string]interface{}{
		"pid":  cmd.Process.Pid,
		"argv": argv,
		"dir":  s.opts.Dir,
	})

	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.supervise(cmd, stdoutR, stderrR, stdoutW, stderrW, cb, s.done)

	return nil
}

func (s *Supervisor) supervise(cmd *exec.Cmd, stdout, stderr io.Reader, stdoutW, stderrW *io.PipeWriter, cb Callbacks, done chan struct{}) {
	defer close(done)

	var g errgroup.Group
	g.Go(func() error {
		return s.consumeStdout(stdout, cb)
	})
	g.Go(func() error {
		return s.consumeStderr(stderr)
	})

	// Wait returns once pbrt has exited and its output is copied, or
	// OutputGrace after that if a child still holds the pipes
	waitErr := cmd.Wait()
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		s.logger.Warning("Supervisor", "renderer children kept output open after exit", nil)
	}
	if err := killGroup(cmd); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Warning("Supervisor", "failed to stop renderer children", map[string]interface{}{
			"error": err.Error(),
		})
	}
	stdoutW.Close()
	stderrW.Close()

	if err := g.Wait(); err != nil {
		s.logger.Warning("Supervisor", "renderer output stream failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	code, signal := exitStatus(cmd, waitErr)

	s.mu.Lock()
	s.running = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.logger.Info("Supervisor", "renderer exited", map[string]interface{}{
		"code":   code,
		"signal": signal,
	})

	if cb.OnExit != nil {
		cb.OnExit(code, signal)
	}
}

func (s *Supervisor) consumeStdout(r io.Reader, cb Callbacks) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		event := ParseLine(scanner.Text())
		switch event.Kind {
		case EventIndirectProgress:
			if cb.OnIndirectProgress != nil {
				cb.OnIndirectProgress(event.Progress)
			}
		case EventDirectProgress:
			if cb.OnDirectProgress != nil {
				cb.OnDirectProgress(event.Progress)
			}
		case EventRenderFinished:
			s.logger.Info("Supervisor", "render finished", nil)
			if cb.OnRenderFinish != nil {
				cb.OnRenderFinish()
			}
		default:
			logger.RendererLine(s.logger, logger.StreamStdout, event.Line)
		}
	}
	return drain(r, scanner.Err())
}

func (s *Supervisor) consumeStderr(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.RendererLine(s.logger, logger.StreamStderr, scanner.Text())
	}
	return drain(r, scanner.Err())
}

// drain keeps reading after a scanner failure so the renderer never
// blocks on a full pipe
func drain(r io.Reader, err error) error {
	if err != nil {
		io.Copy(io.Discard, r)
	}
	return err
}

// Running reports whether the renderer process is alive
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done is closed once the current process has exited and OnExit returned
func (s *Supervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Stop kills the renderer and waits for the exit callback to complete
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	s.logger.Info("Supervisor", "stopping renderer", nil)
	cancel()
	<-done
	return nil
}

// Shutdown stops the renderer if it is still running
func (s *Supervisor) Shutdown() {
	if err := s.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		s.logger.Error("Supervisor", err, nil)
	}
}

// killGroup sends SIGKILL to the renderer's process group
func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

// exitStatus extracts the exit code and terminating signal name.
// A process killed by a signal reports code -1.
func exitStatus(cmd *exec.Cmd, waitErr error) (int, string) {
	state := cmd.ProcessState
	if state == nil {
		return -1, ""
	}

	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return -1, status.Signal().String()
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode(), ""
	}
	return state.ExitCode(), ""
}
