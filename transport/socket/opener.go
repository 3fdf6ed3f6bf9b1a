package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"sync"

	pexec "github.com/zhubert/navgroup/exec"
	"github.com/zhubert/navgroup/logger"
	"github.com/zhubert/navgroup/navstate"
	"github.com/zhubert/navgroup/params"
	"github.com/zhubert/navgroup/transport"
)

// ErrNoGroup is returned when the target URL does not name a group.
var ErrNoGroup = errors.New("socket: target has no group parameter")

// Opener launches children with an external command and waits for them to
// dial back on their group's socket.
type Opener struct {
	executor pexec.CommandExecutor
	launcher string
	args     []string
}

// NewOpener returns an Opener that runs "launcher args... <target>".
func NewOpener(executor pexec.CommandExecutor, launcher string, args ...string) *Opener {
	return &Opener{executor: executor, launcher: launcher, args: args}
}

// Open listens on the socket for target's group and launches the child.
// The returned Context emits pagehide when the child disconnects, or when
// the launcher fails before the child ever connected.
func (o *Opener) Open(ctx context.Context, target string) (transport.Context, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target: %w", err)
	}
	groupID := params.FromURL(u).Get(params.Group, "")
	if groupID == "" || groupID == navstate.DefaultGroup {
		return nil, fmt.Errorf("%w: %s", ErrNoGroup, target)
	}

	path := SocketPath(groupID)
	log := logger.WithGroup(groupID).With("component", "socket")

	// Remove a stale socket left by a crashed opener
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	log.Info("listening", "socketPath", path)

	pc := &parentContext{
		peer:    peer{url: target, log: log},
		ln:      ln,
		path:    path,
		started: make(chan struct{}),
	}
	pc.onHide = func() {
		pc.release()
		pc.Start()
	}
	go pc.accept()

	args := append(append([]string{}, o.args...), target)
	handle, err := o.executor.Start(ctx, o.launcher, args...)
	if err != nil {
		pc.release()
		return nil, fmt.Errorf("launch %s: %w", o.launcher, err)
	}

	go func() {
		stderr, err := handle.Wait()
		if err == nil {
			return
		}
		log.Warn("launcher failed", "launcher", o.launcher, "error", err, "stderr", string(stderr))
		<-pc.started
		if !pc.connected() {
			pc.hide()
		}
	}()

	return pc, nil
}

// parentContext is the opener's handle on a launched child. Nothing is
// read from the child until Start is called.
type parentContext struct {
	peer
	ln   net.Listener
	path string

	started   chan struct{}
	startOnce sync.Once
}

// Start releases event delivery.
func (pc *parentContext) Start() {
	pc.startOnce.Do(func() { close(pc.started) })
}

// accept takes exactly one connection, then reads it until it ends.
func (pc *parentContext) accept() {
	conn, err := pc.ln.Accept()
	if err != nil {
		// Listener closed by release
		return
	}
	pc.ln.Close()

	pc.mu.Lock()
	if pc.closed {
		pc.mu.Unlock()
		conn.Close()
		return
	}
	pc.conn = conn
	pc.mu.Unlock()

	pc.log.Info("child connected")
	<-pc.started
	pc.readLoop(conn, true)
}

func (pc *parentContext) connected() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.conn != nil
}

// release closes the listener and removes the socket file.
func (pc *parentContext) release() {
	pc.ln.Close()
	if err := os.Remove(pc.path); err != nil && !os.IsNotExist(err) {
		pc.log.Warn("failed to remove socket", "error", err)
	}
}

var (
	_ transport.Opener  = (*Opener)(nil)
	_ transport.Context = (*parentContext)(nil)
	_ transport.Starter = (*parentContext)(nil)
)
