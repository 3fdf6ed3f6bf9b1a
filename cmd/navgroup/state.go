package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/zhubert/navgroup/navstate"
	"github.com/zhubert/navgroup/params"
)

// NewStateCommand creates the state command and its subcommands.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and advance the navigation state carried in a URL",
	}

	cmd.AddCommand(newStateDecodeCommand(rootOpts))
	cmd.AddCommand(newStateNextCommand(rootOpts))

	return cmd
}

type stateOutput struct {
	Group   string `json:"group"`
	Screens int    `json:"screens"`
	URL     string `json:"url,omitempty"`
}

func newStateDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <url>",
		Short: "Print the screen group and depth of a URL",
		Example: `  navgroup state decode 'https://shop.example.com/?__navgroup__group=cart&__navgroup__screens=2'
  cart#2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.output(cmd)
			u, err := url.Parse(args[0])
			if err != nil {
				return out.Failure(fmt.Errorf("invalid url: %w", err))
			}

			s := navstate.Decode(params.FromURL(u))
			return out.Success(stateOutput{Group: s.Group, Screens: s.Screens}, s.String())
		},
	}
}

type stateNextOptions struct {
	*RootOptions
	Group   string
	Replace bool
}

func newStateNextCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &stateNextOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "next <url>",
		Short: "Rewrite a URL with the state after one navigation",
		Long: `Rewrite a URL with the state after one navigation.

Staying in the group pushes one screen, or keeps the depth with --replace.
Moving to another --group starts over at depth 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.output(cmd)
			u, err := url.Parse(args[0])
			if err != nil {
				return out.Failure(fmt.Errorf("invalid url: %w", err))
			}

			p := params.FromURL(u)
			next := navstate.Decode(p).TransitionTo(navstate.Transition{
				Group:   opts.Group,
				Replace: opts.Replace,
			})
			next.Encode(p)
			p.ApplyTo(u)

			out.VerboseLog("next state: %s", next)
			return out.Success(stateOutput{Group: next.Group, Screens: next.Screens, URL: u.String()}, u.String())
		},
	}

	cmd.Flags().StringVar(&opts.Group, "group", "", "move to this screen group")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace the current screen")

	return cmd
}
