// Package exec abstracts the external commands navgroup runs: the launcher
// that opens a child context, and the version probes of doctor. Production
// code uses RealExecutor, while tests inject a MockExecutor.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// LookPath resolves name the way a shell would.
	LookPath(name string) (string, error)

	// Output runs a command to completion and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// Start starts a command without waiting for it to complete.
	Start(ctx context.Context, name string, args ...string) (CommandHandle, error)
}

// CommandHandle represents a started command.
type CommandHandle interface {
	// Wait blocks until the command exits. Stderr is returned for logging.
	Wait() (stderr []byte, err error)
}

// RealExecutor runs commands with os/exec.
type RealExecutor struct{}

// NewRealExecutor returns a new RealExecutor.
func NewRealExecutor() *RealExecutor {
	return &RealExecutor{}
}

func (e *RealExecutor) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (e *RealExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Start starts name. A launcher usually hands the URL to a running browser
// and exits; its stdout is discarded.
func (e *RealExecutor) Start(ctx context.Context, name string, args ...string) (CommandHandle, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	h := &realCommandHandle{cmd: cmd}
	cmd.Stderr = &h.stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return h, nil
}

type realCommandHandle struct {
	cmd    *exec.Cmd
	stderr bytes.Buffer
}

func (h *realCommandHandle) Wait() ([]byte, error) {
	err := h.cmd.Wait()
	return h.stderr.Bytes(), err
}

// MockResponse is what a mocked command does.
type MockResponse struct {
	Output []byte
	Stderr []byte
	Err    error

	// OnStart runs in its own goroutine when the command is started, and
	// Wait returns once it has finished. Tests use it to play the launched
	// child.
	OnStart func(args []string)
}

// MockCall records a command invocation for verification.
type MockCall struct {
	Name string
	Args []string
}

// MockExecutor answers commands by name. Every command is found by
// LookPath unless marked Missing; unknown commands succeed doing nothing.
type MockExecutor struct {
	mu        sync.RWMutex
	responses map[string]MockResponse
	missing   map[string]bool
	calls     []MockCall
}

// NewMockExecutor creates an empty MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		responses: make(map[string]MockResponse),
		missing:   make(map[string]bool),
	}
}

// On sets the response for every invocation of name.
func (e *MockExecutor) On(name string, response MockResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[name] = response
}

// Missing makes LookPath fail for name.
func (e *MockExecutor) Missing(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.missing[name] = true
}

// Calls returns all recorded Output and Start invocations.
func (e *MockExecutor) Calls() []MockCall {
	e.mu.RLock()
	defer e.mu.RUnlock()
	calls := make([]MockCall, len(e.calls))
	copy(calls, e.calls)
	return calls
}

func (e *MockExecutor) record(name string, args []string) MockResponse {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, MockCall{Name: name, Args: args})
	return e.responses[name]
}

func (e *MockExecutor) LookPath(name string) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.missing[name] {
		return "", fmt.Errorf("exec: %q: %w", name, exec.ErrNotFound)
	}
	return "/mock/bin/" + name, nil
}

func (e *MockExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	resp := e.record(name, args)
	if resp.OnStart != nil {
		resp.OnStart(args)
	}
	return resp.Output, resp.Err
}

func (e *MockExecutor) Start(ctx context.Context, name string, args ...string) (CommandHandle, error) {
	resp := e.record(name, args)

	h := &mockCommandHandle{response: resp, done: make(chan struct{})}
	if resp.OnStart != nil {
		go func() {
			defer close(h.done)
			resp.OnStart(args)
		}()
	} else {
		close(h.done)
	}
	return h, nil
}

type mockCommandHandle struct {
	response MockResponse
	done     chan struct{}
}

func (h *mockCommandHandle) Wait() ([]byte, error) {
	<-h.done
	return h.response.Stderr, h.response.Err
}

var (
	_ CommandExecutor = (*RealExecutor)(nil)
	_ CommandExecutor = (*MockExecutor)(nil)
)
