package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhubert/navgroup/groupstore"
)

// NewStoreCommand creates the store command and its subcommands.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Read and write group stores",
		Long: `Read and write group stores.

Entries are JSON documents keyed by (group, selector). The selector
defaults to "` + groupstore.DefaultSelector + `". The backend and its location come from
the config file.`,
	}

	cmd.AddCommand(newStoreGetCommand(rootOpts))
	cmd.AddCommand(newStoreSetCommand(rootOpts))
	cmd.AddCommand(newStoreListCommand(rootOpts))
	cmd.AddCommand(newStoreEvictCommand(rootOpts))

	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(opts *RootOptions, fn func(*groupstore.Store) error) error {
	store, err := opts.cfg.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func selectorArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return groupstore.DefaultSelector
}

func newStoreGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <group> [selector]",
		Short: "Print a stored document ({} when unset)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.output(cmd)
			return out.Failure(withStore(rootOpts, func(store *groupstore.Store) error {
				value, err := store.Get(args[0], selectorArg(args, 1))
				if err != nil {
					return err
				}
				return out.Success(value, string(value))
			}))
		},
	}
}

func newStoreSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <group> <selector> <json>",
		Short: "Overwrite a stored document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.output(cmd)
			value := json.RawMessage(args[2])
			if !json.Valid(value) {
				return out.Failure(fmt.Errorf("value is not valid JSON: %s", args[2]))
			}

			return out.Failure(withStore(rootOpts, func(store *groupstore.Store) error {
				if err := store.Set(args[0], args[1], value); err != nil {
					return err
				}
				key := groupstore.Key(args[0], args[1])
				return out.Success(map[string]string{"key": key}, key)
			}))
		},
	}
}

func newStoreListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <group>",
		Short: "List the selectors stored for a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.output(cmd)
			return out.Failure(withStore(rootOpts, func(store *groupstore.Store) error {
				selectors, err := store.Selectors(args[0])
				if err != nil {
					return err
				}
				if selectors == nil {
					selectors = []string{}
				}
				if out.Format == "json" {
					return out.Success(selectors, "")
				}
				for _, sel := range selectors {
					fmt.Fprintln(out.Writer, sel)
				}
				return nil
			}))
		},
	}
}

func newStoreEvictCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "evict <group>",
		Short: "Delete every document stored for a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.output(cmd)
			return out.Failure(withStore(rootOpts, func(store *groupstore.Store) error {
				n, err := store.EvictGroup(args[0])
				if err != nil {
					return err
				}
				return out.Success(map[string]int{"evicted": n}, fmt.Sprintf("evicted %d entries", n))
			}))
		},
	}
}
