package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/zhubert/navgroup/config"
	pexec "github.com/zhubert/navgroup/exec"
	"github.com/zhubert/navgroup/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Debug      bool
	Format     string // "json" | "text"
	ConfigPath string

	cfg      *config.Config
	executor pexec.CommandExecutor
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the navgroup CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "navgroup",
		Short: "Screen groups and open-for-result flows across browsing contexts",
		Long: `navgroup tracks screen groups and depth in URLs, opens child contexts
under fresh groups, and hands their single result back to the opener.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.load()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: config.json in the config dir)")

	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewPushCommand(opts))
	cmd.AddCommand(NewStoreCommand(opts))
	cmd.AddCommand(NewSpawnCommand(opts))
	cmd.AddCommand(NewCloseCommand(opts))
	cmd.AddCommand(NewDoctorCommand(opts))
	cmd.AddCommand(NewLogsCommand(opts))

	return cmd
}

// load reads the config and applies it to logging.
func (o *RootOptions) load() error {
	var err error
	if o.ConfigPath != "" {
		o.cfg, err = config.LoadFrom(o.ConfigPath)
	} else {
		o.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetDebug(o.Debug || o.cfg.GetDebug())
	return nil
}

// commandExecutor returns the executor used to launch children and probe commands.
func (o *RootOptions) commandExecutor() pexec.CommandExecutor {
	if o.executor == nil {
		return pexec.NewRealExecutor()
	}
	return o.executor
}

func (o *RootOptions) output(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
