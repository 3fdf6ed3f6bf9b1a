package socket

import (
	"context"
	"fmt"
	"net"

	"github.com/zhubert/navgroup/logger"
	"github.com/zhubert/navgroup/transport"
)

// ChildContext is a launched child's handle on itself. Messages it posts
// reach the opener's subscribers; Close fires the child's own pagehide and
// tells the opener it is gone.
type ChildContext struct {
	peer
}

// Attach dials the socket the opener created for groupID.
func Attach(ctx context.Context, groupID, selfURL string) (*ChildContext, error) {
	path := SocketPath(groupID)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}

	cc := &ChildContext{
		peer: peer{
			url:  selfURL,
			log:  logger.WithGroup(groupID).With("component", "socket-child"),
			conn: conn,
		},
	}
	go cc.readLoop(conn, false)
	return cc, nil
}

// Detached returns a ChildContext for a child whose opener is gone. It is
// already closed: posts fail with transport.ErrContextClosed and pagehide
// never fires.
func Detached(groupID, selfURL string) *ChildContext {
	return &ChildContext{
		peer: peer{
			url:    selfURL,
			log:    logger.WithGroup(groupID).With("component", "socket-child"),
			closed: true,
		},
	}
}

var _ transport.Context = (*ChildContext)(nil)
