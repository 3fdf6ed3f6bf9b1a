// Package socket connects an opener and the child it launched through a Unix
// socket named after the child's group.
//
// # Flow
//
//	Opener.Open(target)
//	    ↓ listen on /tmp/ng-<hash(group)>.sock
//	    ↓ launch "<launcher> <target>"
//	child process
//	    ↓ Attach(group) dials the socket
//	    ↓ PostMessage → {"type":"message","data":...}
//	    ↓ Close      → {"type":"pagehide"} then EOF
//	parent Context emits message / pagehide to its subscribers
//
// One socket carries exactly one child. The listener stops accepting after
// the first connection and the socket file is removed on teardown.
package socket

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zhubert/navgroup/transport"
)

// SocketWriteTimeout bounds every frame write so a stuck peer cannot block
// the sender indefinitely.
const SocketWriteTimeout = 10 * time.Second

// FrameType identifies a frame on the wire.
type FrameType string

const (
	FrameMessage  FrameType = "message"
	FramePageHide FrameType = "pagehide"
)

// Frame is one newline-delimited JSON record on the socket.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SocketPath returns the socket path for groupID. The group ID is hashed to
// keep the path under the ~104 byte limit for Unix socket names.
func SocketPath(groupID string) string {
	sum := sha256.Sum256([]byte(groupID))
	return filepath.Join(os.TempDir(), "ng-"+hex.EncodeToString(sum[:])[:16]+".sock")
}

// peer is the connection-handling half shared by both ends.
type peer struct {
	url       string
	log       *slog.Logger
	listeners transport.Listeners

	mu     sync.Mutex
	conn   net.Conn
	closed bool

	hideOnce sync.Once
	onHide   func()
}

func (p *peer) URL() string {
	return p.url
}

func (p *peer) Subscribe(event transport.Event, h transport.Handler) func() {
	return p.listeners.Add(event, h)
}

// ListenerCount returns how many handlers are registered for event.
func (p *peer) ListenerCount(event transport.Event) int {
	return p.listeners.Count(event)
}

// PostMessage sends data to the other end. Before the other end has
// connected there is nobody to deliver to and the message is dropped.
func (p *peer) PostMessage(data json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return transport.ErrContextClosed
	}
	if p.conn == nil {
		p.log.Debug("message dropped, peer not connected")
		return nil
	}
	return writeFrame(p.conn, Frame{Type: FrameMessage, Data: data})
}

// Close tells the other end this context is going away and fires pagehide.
func (p *peer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.conn != nil {
		if err := writeFrame(p.conn, Frame{Type: FramePageHide}); err != nil {
			p.log.Debug("pagehide frame not sent", "error", err)
		}
	}
	p.mu.Unlock()

	p.hide()
	return nil
}

// hide fires pagehide once and releases the connection.
func (p *peer) hide() {
	p.hideOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		conn := p.conn
		p.mu.Unlock()

		if conn != nil {
			conn.Close()
		}
		if p.onHide != nil {
			p.onHide()
		}
		p.log.Debug("context hidden")
		p.listeners.Emit(transport.EventPageHide, nil)
	})
}

// readLoop emits incoming frames until the connection ends.
// When hideOnEOF is set the end of the stream counts as disappearance.
func (p *peer) readLoop(conn net.Conn, hideOnEOF bool) {
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			var f Frame
			if jsonErr := json.Unmarshal(line, &f); jsonErr != nil {
				p.log.Warn("invalid frame", "error", jsonErr)
			} else {
				switch f.Type {
				case FrameMessage:
					p.listeners.Emit(transport.EventMessage, f.Data)
				case FramePageHide:
					if hideOnEOF {
						p.hide()
					}
					return
				default:
					p.log.Warn("unknown frame type", "type", f.Type)
				}
			}
		}
		if err != nil {
			if hideOnEOF {
				p.hide()
			}
			return
		}
	}
}

func writeFrame(conn net.Conn, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(SocketWriteTimeout))
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write %s frame: %w", f.Type, err)
	}
	return nil
}
