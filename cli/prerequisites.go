// Package cli checks the external tools navgroup shells out to.
package cli

import (
	"context"
	"fmt"
	"strings"

	pexec "github.com/zhubert/navgroup/exec"
)

// Prerequisite represents an external command navgroup may run
type Prerequisite struct {
	Name        string // Command name (e.g., "xdg-open")
	Required    bool   // Whether spawning children needs it
	Description string // Human-readable description
	VersionFlag string // Flag that prints a version; empty skips the version probe
}

// Prerequisites returns the tools needed to spawn children with launcher
func Prerequisites(launcher string) []Prerequisite {
	return []Prerequisite{
		{
			Name:        launcher,
			Required:    true,
			Description: "URL launcher used to open child contexts",
		},
		{
			Name:        "sqlite3",
			Required:    false, // Only for inspecting the store database by hand
			Description: "SQLite shell (optional, for inspecting store.db)",
			VersionFlag: "--version",
		},
	}
}

// CheckResult contains the result of checking a prerequisite
type CheckResult struct {
	Prerequisite Prerequisite
	Found        bool
	Path         string // Path to the executable if found
	Version      string // Version string if available
	Error        error
}

// Check verifies that a command is available in PATH
func Check(ctx context.Context, executor pexec.CommandExecutor, prereq Prerequisite) CheckResult {
	result := CheckResult{Prerequisite: prereq}

	path, err := executor.LookPath(prereq.Name)
	if err != nil {
		result.Error = fmt.Errorf("%s not found in PATH", prereq.Name)
		return result
	}

	result.Found = true
	result.Path = path

	if prereq.VersionFlag != "" {
		result.Version = getVersion(ctx, executor, prereq.Name, prereq.VersionFlag)
	}

	return result
}

// CheckAll verifies all prerequisites and returns results
func CheckAll(ctx context.Context, executor pexec.CommandExecutor, prereqs []Prerequisite) []CheckResult {
	results := make([]CheckResult, len(prereqs))
	for i, prereq := range prereqs {
		results[i] = Check(ctx, executor, prereq)
	}
	return results
}

// MissingRequired returns an error naming every required command that was
// not found, or nil
func MissingRequired(results []CheckResult) error {
	var missing []string

	for _, r := range results {
		if r.Prerequisite.Required && !r.Found {
			missing = append(missing, fmt.Sprintf("  - %s (%s)", r.Prerequisite.Name, r.Prerequisite.Description))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required commands:\n%s", strings.Join(missing, "\n"))
	}

	return nil
}

// getVersion returns the first line a command prints for flag
func getVersion(ctx context.Context, executor pexec.CommandExecutor, name, flag string) string {
	output, err := executor.Output(ctx, name, flag)
	if err != nil {
		return ""
	}
	version, _, _ := strings.Cut(string(output), "\n")
	version = strings.TrimSpace(version)
	// Limit length to avoid overly long version strings
	if len(version) > 100 {
		version = version[:100] + "..."
	}
	return version
}

// FormatCheckResults formats check results for display
func FormatCheckResults(results []CheckResult) string {
	var sb strings.Builder

	sb.WriteString("Commands:\n")
	for _, r := range results {
		status := "✓"
		if !r.Found {
			if r.Prerequisite.Required {
				status = "✗"
			} else {
				status = "○"
			}
		}

		sb.WriteString(fmt.Sprintf("  %s %s", status, r.Prerequisite.Name))
		if r.Found && r.Version != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", r.Version))
		} else if !r.Found {
			if r.Prerequisite.Required {
				sb.WriteString(" [REQUIRED]")
			} else {
				sb.WriteString(" [optional]")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
