package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhubert/navgroup/navigation"
	"github.com/zhubert/navgroup/transport"
)

// PushOptions holds flags for the push command.
type PushOptions struct {
	*RootOptions
	Replace  bool
	Group    string
	KeepHost bool
}

type pushOutput struct {
	From   string `json:"from"`
	Target string `json:"target"`
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PushOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "push <current-url> <deeplink>",
		Short: "Resolve the URL a push from current-url to deeplink navigates to",
		Long: `Resolve the URL a push from current-url to deeplink navigates to.

A deep link wrapping its target in a "url" parameter gets the next
navigation state, and is pointed at the current host when that host starts
with "dev." (disable with --keep-host or dev_host_rewrite=false). Host rules
from the host rules file apply to every target.

Example:
  navgroup push https://dev.shop.example.com/ 'myapp://open?url=https%3A%2F%2Fshop.example.com%2Fcart'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace the current screen")
	cmd.Flags().StringVar(&opts.Group, "group", "", "move the target into this screen group")
	cmd.Flags().BoolVar(&opts.KeepHost, "keep-host", false, "never point the target at a dev host")

	return cmd
}

func runPush(opts *PushOptions, cmd *cobra.Command, current, deeplink string) error {
	out := opts.output(cmd)

	rules, err := opts.cfg.LoadHostRules()
	if err != nil {
		return out.Failure(err)
	}

	tab := navigation.NewTab(current)
	nav := navigation.New(tab, tab, noOpener, navigation.WithRules(rules))
	out.VerboseLog("current state: %s", nav.State())

	target, err := nav.Push(deeplink, navigation.PushOptions{
		Replace:        opts.Replace,
		ScreensGroup:   opts.Group,
		KeepTargetHost: opts.KeepHost || !opts.cfg.GetDevHostRewrite(),
	})
	if err != nil {
		return out.Failure(err)
	}

	return out.Success(pushOutput{From: current, Target: target}, target)
}

// noOpener backs navigators that never open children.
var noOpener = transport.OpenerFunc(func(context.Context, string) (transport.Context, error) {
	return nil, fmt.Errorf("opening contexts is not supported here")
})
