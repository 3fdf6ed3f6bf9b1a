package exec

import (
	"context"
	"errors"
	"os/exec"
	"sync/atomic"
	"testing"
)

func TestRealExecutor_Output(t *testing.T) {
	executor := NewRealExecutor()

	stdout, err := executor.Output(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(stdout) != "hello\n" {
		t.Errorf("expected 'hello\\n', got %q", string(stdout))
	}
}

func TestRealExecutor_Start(t *testing.T) {
	executor := NewRealExecutor()

	handle, err := executor.Start(context.Background(), "sh", "-c", "echo oops >&2; exit 3")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	stderr, err := handle.Wait()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Fatalf("Wait error = %v, want exit status 3", err)
	}
	if string(stderr) != "oops\n" {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRealExecutor_Missing(t *testing.T) {
	executor := NewRealExecutor()
	if _, err := executor.LookPath("navgroup-definitely-not-installed"); err == nil {
		t.Error("LookPath should fail for a missing binary")
	}
	if _, err := executor.Start(context.Background(), "navgroup-definitely-not-installed"); err == nil {
		t.Error("Start should fail for a missing binary")
	}
}

func TestMockExecutor_Output(t *testing.T) {
	mock := NewMockExecutor()
	mock.On("sqlite3", MockResponse{Output: []byte("3.45.1\n")})

	stdout, err := mock.Output(context.Background(), "sqlite3", "--version")
	if err != nil {
		t.Fatal(err)
	}
	if string(stdout) != "3.45.1\n" {
		t.Errorf("stdout = %q", stdout)
	}

	// Unknown commands succeed with no output
	stdout, err = mock.Output(context.Background(), "other")
	if stdout != nil || err != nil {
		t.Errorf("unknown command = %q, %v", stdout, err)
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Name != "sqlite3" || calls[0].Args[0] != "--version" {
		t.Errorf("unexpected call record: %+v", calls[0])
	}
}

func TestMockExecutor_StartRunsOnStart(t *testing.T) {
	mock := NewMockExecutor()
	var seen atomic.Value
	wantErr := errors.New("launcher crashed")
	mock.On("open", MockResponse{
		Stderr: []byte("no display"),
		Err:    wantErr,
		OnStart: func(args []string) {
			seen.Store(args[0])
		},
	})

	h, err := mock.Start(context.Background(), "open", "https://child")
	if err != nil {
		t.Fatal(err)
	}
	stderr, err := h.Wait()
	if !errors.Is(err, wantErr) {
		t.Errorf("Wait error = %v", err)
	}
	if string(stderr) != "no display" {
		t.Errorf("stderr = %q", stderr)
	}
	if seen.Load() != "https://child" {
		t.Errorf("OnStart saw %v", seen.Load())
	}
}

func TestMockExecutor_LookPath(t *testing.T) {
	mock := NewMockExecutor()
	mock.Missing("xdg-open")

	if path, err := mock.LookPath("open"); err != nil || path != "/mock/bin/open" {
		t.Errorf("LookPath(open) = %q, %v", path, err)
	}
	if _, err := mock.LookPath("xdg-open"); !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("LookPath(xdg-open) error = %v, want ErrNotFound", err)
	}
}
