// Package preview runs the live preview server of the site.
package preview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/compozy/sitepublish/internal/domain"
	"github.com/compozy/sitepublish/internal/service"
	"go.uber.org/zap"
)

// State is the lifecycle state of the preview process.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

var (
	ErrAlreadyRunning = errors.New("Preview is already running")
	ErrNotRunning     = errors.New("Preview is not running")
)

// Options configures the preview process.
type Options struct {
	SiteDir string
	// Command may contain {port}, replaced with Port.
	Command []string
	Port    int
	URL     string
}

type session struct {
	cmd       *exec.Cmd
	port      int
	url       string
	startedAt time.Time
	done      chan struct{}
}

// Manager owns at most one preview process at a time.
type Manager struct {
	opts    Options
	content service.ContentProcessor
	logger  *zap.Logger

	mu      sync.Mutex
	state   State
	current *session
}

// NewManager creates a new Manager.
func NewManager(opts Options, content service.ContentProcessor, logger *zap.Logger) *Manager {
	return &Manager{opts: opts, content: content, logger: logger}
}

// Start processes content and spawns the preview command. It returns once
// the process is spawned, not once the server is ready.
func (m *Manager) Start(ctx context.Context) (domain.PublishResult, error) {
	m.mu.Lock()
	if m.state != StateStopped {
		m.mu.Unlock()
		return domain.PublishResult{}, domain.NewStageError(domain.StagePreview, domain.ErrConflict, ErrAlreadyRunning)
	}
	m.state = StateStarting
	m.mu.Unlock()

	s, err := m.spawn(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateStopped
		return domain.PublishResult{}, err
	}
	m.state = StateRunning
	m.current = s
	go m.wait(s)
	m.logger.Info("Preview started", zap.Int("pid", s.cmd.Process.Pid), zap.String("url", s.url))
	return domain.PublishResult{Success: true, Message: "Preview started at " + s.url, URL: s.url}, nil
}

func (m *Manager) spawn(ctx context.Context) (*session, error) {
	if err := m.content.Process(ctx); err != nil {
		return nil, err
	}
	argv := m.command()
	if len(argv) == 0 {
		return nil, domain.NewStageError(domain.StagePreview, domain.ErrConfiguration, errors.New("preview command is empty"))
	}
	// The process outlives the request that started it
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = m.opts.SiteDir
	cmd.Env = append(os.Environ(), "PORT="+strconv.Itoa(m.opts.Port))
	service.ConfigureProcessGroup(cmd)
	cmd.Stdout = service.NewLogWriter(m.logger, "stdout")
	cmd.Stderr = service.NewLogWriter(m.logger, "stderr")
	if err := cmd.Start(); err != nil {
		return nil, domain.NewStageError(domain.StagePreview, domain.ErrBuild,
			fmt.Errorf("failed to start preview command: %w", err))
	}
	return &session{
		cmd:       cmd,
		port:      m.opts.Port,
		url:       m.opts.URL,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}, nil
}

func (m *Manager) command() []string {
	port := strconv.Itoa(m.opts.Port)
	argv := make([]string, 0, len(m.opts.Command))
	for _, arg := range m.opts.Command {
		argv = append(argv, strings.ReplaceAll(arg, "{port}", port))
	}
	return argv
}

// wait clears the session when the process exits on its own.
func (m *Manager) wait(s *session) {
	defer close(s.done)
	err := s.cmd.Wait()
	for _, w := range []any{s.cmd.Stdout, s.cmd.Stderr} {
		if lw, ok := w.(*service.LogWriter); ok {
			lw.Flush()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != s {
		return
	}
	m.current = nil
	m.state = StateStopped
	m.logger.Info("Preview process exited", zap.Error(err))
}

// Stop signals the whole process group and forgets the session. It does
// not wait for the process to exit.
func (m *Manager) Stop(_ context.Context) (domain.PublishResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRunning || m.current == nil {
		return domain.PublishResult{}, domain.NewStageError(domain.StagePreview, domain.ErrConflict, ErrNotRunning)
	}
	s := m.current
	m.current = nil
	m.state = StateStopped
	if err := service.TerminateProcessGroup(s.cmd.Process.Pid); err != nil {
		m.logger.Warn("Failed to signal preview process group", zap.Error(err))
	}
	m.logger.Info("Preview stopped", zap.Int("pid", s.cmd.Process.Pid))
	return domain.PublishResult{Success: true, Message: "Preview stopped"}, nil
}

// Status reports the session without touching the process.
func (m *Manager) Status() domain.PreviewStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRunning || m.current == nil {
		return domain.PreviewStatus{}
	}
	return domain.PreviewStatus{IsRunning: true, URL: m.current.url, Port: m.current.port}
}

// Shutdown stops a running preview and waits up to grace for it to exit,
// killing the process group after that.
func (m *Manager) Shutdown(grace time.Duration) {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return
	}
	if _, err := m.Stop(context.Background()); err != nil {
		return
	}
	select {
	case <-s.done:
	case <-time.After(grace):
		_ = service.KillProcessGroup(s.cmd.Process.Pid)
	}
}
