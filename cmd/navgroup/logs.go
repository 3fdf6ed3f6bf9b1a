package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhubert/navgroup/logger"
)

// LogsOptions holds flags for the logs command.
type LogsOptions struct {
	*RootOptions
	Clear bool
}

// NewLogsCommand creates the logs command.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the log file path, or remove log files with --clear",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.output(cmd)

			if opts.Clear {
				n, err := logger.ClearLogs()
				if err != nil {
					return out.Failure(fmt.Errorf("failed to clear logs: %w", err))
				}
				return out.Success(map[string]int{"removed": n}, fmt.Sprintf("removed %d log files", n))
			}

			path := logger.Path()
			if path == "" {
				var err error
				if path, err = logger.DefaultLogPath(); err != nil {
					return out.Failure(err)
				}
			}
			return out.Success(map[string]string{"path": path}, path)
		},
	}

	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "remove all log files")

	return cmd
}
