package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhubert/navgroup/cli"
	"github.com/zhubert/navgroup/logger"
)

type doctorOutput struct {
	Config   string          `json:"config"`
	Store    string          `json:"store"`
	Backend  string          `json:"backend"`
	Log      string          `json:"log"`
	Commands []commandStatus `json:"commands"`
}

type commandStatus struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Found    bool   `json:"found"`
	Path     string `json:"path,omitempty"`
	Version  string `json:"version,omitempty"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the launcher and print where navgroup keeps its files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(rootOpts, cmd)
		},
	}
}

func runDoctor(opts *RootOptions, cmd *cobra.Command) error {
	out := opts.output(cmd)
	cfg := opts.cfg

	launcher, _ := cfg.GetLauncher()
	results := cli.CheckAll(cmd.Context(), opts.commandExecutor(), cli.Prerequisites(launcher))

	storePath, err := cfg.GetStorePath()
	if err != nil {
		return out.Failure(err)
	}
	if storePath == "" {
		storePath = "(in memory)"
	}
	logPath := logger.Path()
	if logPath == "" {
		if logPath, err = logger.DefaultLogPath(); err != nil {
			return out.Failure(err)
		}
	}

	report := doctorOutput{
		Config:  cfg.FilePath(),
		Store:   storePath,
		Backend: string(cfg.GetStoreBackend()),
		Log:     logPath,
	}
	for _, r := range results {
		report.Commands = append(report.Commands, commandStatus{
			Name:     r.Prerequisite.Name,
			Required: r.Prerequisite.Required,
			Found:    r.Found,
			Path:     r.Path,
			Version:  r.Version,
		})
	}

	var sb strings.Builder
	sb.WriteString("Files:\n")
	fmt.Fprintf(&sb, "  config  %s\n", report.Config)
	fmt.Fprintf(&sb, "  store   %s (%s)\n", report.Store, report.Backend)
	fmt.Fprintf(&sb, "  log     %s\n", report.Log)
	sb.WriteString(cli.FormatCheckResults(results))

	if err := out.Success(report, strings.TrimRight(sb.String(), "\n")); err != nil {
		return err
	}
	return cli.MissingRequired(results)
}
