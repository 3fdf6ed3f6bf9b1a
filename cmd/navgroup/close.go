package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhubert/navgroup/group"
	"github.com/zhubert/navgroup/navstate"
	"github.com/zhubert/navgroup/params"
	"github.com/zhubert/navgroup/transport/socket"
)

// DefaultCloseWait bounds how long close waits for its own teardown.
const DefaultCloseWait = 5 * time.Second

// CloseOptions holds flags for the close command.
type CloseOptions struct {
	*RootOptions
	Result string
	Wait   time.Duration
}

// NewCloseCommand creates the close command.
func NewCloseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CloseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "close <self-url>",
		Short: "Report a result to the opener of the group in self-url and close it",
		Long: `Report a result to the opener of the group in self-url and close it.

Run by a child launched with "navgroup spawn". The result is delivered to
the waiting spawn, then the group's store is evicted. When no spawn is
waiting any more the result is dropped and the store is still evicted.

Example:
  navgroup close "$URL" --result '{"card":"visa"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClose(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Result, "result", "", "result as JSON (default null)")
	cmd.Flags().DurationVar(&opts.Wait, "wait", DefaultCloseWait, "how long to wait for the close to finish")

	return cmd
}

func runClose(opts *CloseOptions, cmd *cobra.Command, selfURL string) error {
	out := opts.output(cmd)

	u, err := url.Parse(selfURL)
	if err != nil {
		return out.Failure(fmt.Errorf("invalid url: %w", err))
	}
	p := params.FromURL(u)
	if !p.Has(params.Group) {
		return out.Failure(fmt.Errorf("%s is not running in a spawned group", selfURL))
	}
	state := navstate.Decode(p)

	var result any
	if opts.Result != "" {
		if !json.Valid([]byte(opts.Result)) {
			return out.Failure(fmt.Errorf("result is not valid JSON: %s", opts.Result))
		}
		result = json.RawMessage(opts.Result)
	}

	store, err := opts.cfg.OpenStore()
	if err != nil {
		return out.Failure(fmt.Errorf("failed to open store: %w", err))
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Wait)
	defer cancel()

	self, err := socket.Attach(ctx, state.Group, selfURL)
	if err != nil {
		// Nobody to report to, but the group still has to go away
		out.VerboseLog("no opener is waiting for group %s: %v", state.Group, err)
		self = socket.Detached(state.Group, selfURL)
	}

	sess := group.NewSession(state.Group, self, store, group.WithCloseDelay(opts.cfg.GetCloseDelay()))
	if err := sess.Close(result); err != nil {
		return out.Failure(err)
	}

	select {
	case <-sess.Done():
	case <-ctx.Done():
		return out.Failure(fmt.Errorf("group %s did not close: %w", state.Group, ctx.Err()))
	}

	out.VerboseLog("closed group %s", state.Group)
	return out.Success(map[string]string{"group": state.Group}, "closed group "+state.Group)
}
