package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/swaggerview/internal/output"
	"github.com/mark3labs/swaggerview/internal/spec"
)

// ErrLintFailed is returned when lint reports at least one issue.
var ErrLintFailed = errors.New("lint found issues")

// LintConfig captures the options for the lint command.
type LintConfig struct {
	Input      string
	ConfigPath string
	Verbose    bool

	stdout io.Writer
	stderr io.Writer
}

var lintRunner = runLint

func newLintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check a Swagger 2.0 descriptor for unresolved references and schema errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &LintConfig{}
			fc, configPath, err := readConfigFlag(cmd)
			if err != nil {
				return err
			}
			cfg.ConfigPath = configPath
			if fc.has("input") {
				cfg.Input = fc.Input
			}
			if fc.has("verbose") {
				cfg.Verbose = fc.Verbose
			}
			if cmd.Flags().Changed("input") {
				if cfg.Input, err = cmd.Flags().GetString("input"); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("verbose") {
				if cfg.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
					return err
				}
			}
			cfg.Input = strings.TrimSpace(cfg.Input)
			if cfg.Input == "" {
				return newUsageError("lint: --input is required (set via flag or config file)")
			}
			cfg.stdout = cmd.OutOrStdout()
			cfg.stderr = cmd.ErrOrStderr()
			return lintRunner(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("input", "", "Path or URL to the Swagger 2.0 document")
	return cmd
}

func runLint(ctx context.Context, cfg *LintConfig) error {
	stdout, stderr := writersOf(cfg.stdout, cfg.stderr)
	printer := output.NewPrinter(stdout, stderr, output.PrinterOptions{})

	doc, err := spec.Load(ctx, cfg.Input)
	if err != nil {
		return describeSpecError(err)
	}
	issues, err := spec.Lint(ctx, doc)
	if err != nil {
		return describeSpecError(err)
	}
	if len(issues) == 0 {
		printer.Printf("OK: %s has no issues\n", cfg.Input)
		return nil
	}
	for _, is := range issues {
		if is.JSONPointer != "" {
			printer.Printf("- %s (%s)\n", is.Message, is.JSONPointer)
			continue
		}
		printer.Printf("- %s\n", is.Message)
	}
	printer.Warnf("%d issue(s) found in %s\n", len(issues), cfg.Input)
	return fmt.Errorf("%w: %d issue(s) in %s", ErrLintFailed, len(issues), cfg.Input)
}
