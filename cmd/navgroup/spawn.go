package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhubert/navgroup/group"
	"github.com/zhubert/navgroup/navigation"
	"github.com/zhubert/navgroup/transport/socket"
)

// SpawnOptions holds flags for the spawn command.
type SpawnOptions struct {
	*RootOptions
	From    string
	Timeout time.Duration
}

type spawnOutput struct {
	Group  string          `json:"group"`
	Result json.RawMessage `json:"result"`
}

// NewSpawnCommand creates the spawn command.
func NewSpawnCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SpawnOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "spawn <deeplink>",
		Short: "Open a deep link under a fresh group and print its result",
		Long: `Open a deep link under a fresh group and print its result.

The child is launched with the configured launcher and must report back
with "navgroup close <its url> --result <json>". A child that goes away
without a result makes spawn fail.

Example:
  navgroup spawn 'https://pay.example.com/card?amount=5'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpawn(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "URL of the opening context (used for host resolution)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "give up waiting after this long (0 waits forever)")

	return cmd
}

func runSpawn(opts *SpawnOptions, cmd *cobra.Command, deeplink string) error {
	out := opts.output(cmd)
	cfg := opts.cfg

	rules, err := cfg.LoadHostRules()
	if err != nil {
		return out.Failure(err)
	}

	navOpts := []navigation.Option{navigation.WithRules(rules)}
	if cfg.GetOrphanEviction() {
		store, err := cfg.OpenStore()
		if err != nil {
			return out.Failure(fmt.Errorf("failed to open store: %w", err))
		}
		defer store.Close()
		navOpts = append(navOpts, navigation.WithSpawnerOptions(group.WithOrphanEviction(store)))
	}

	launcher, launcherArgs := cfg.GetLauncher()
	opener := socket.NewOpener(opts.commandExecutor(), launcher, launcherArgs...)

	tab := navigation.NewTab(opts.From)
	nav := navigation.New(tab, tab, opener, navOpts...)

	ctx := cmd.Context()
	pending, err := nav.Spawn(ctx, deeplink)
	if err != nil {
		return out.Failure(err)
	}
	out.VerboseLog("waiting for group %s", pending.GroupID())

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	result, err := pending.Wait(ctx)
	switch {
	case errors.Is(err, group.ErrContextClosed):
		return out.Failure(fmt.Errorf("child closed without a result: %w", err))
	case err != nil:
		return out.Failure(fmt.Errorf("waiting for group %s: %w", pending.GroupID(), err))
	}

	return out.Success(spawnOutput{Group: pending.GroupID(), Result: result}, string(result))
}
