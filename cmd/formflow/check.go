package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/formflow/internal/config"
)

func newCheckCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check [config]",
		Short: "Validate a forms config and report repairs",
		Long: `Validates the config, prints lint warnings, then builds every form and
reports pruned references, re-attached rules and cycles.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfig
			if len(args) > 0 {
				path = args[0]
			}
			return runCheck(cmd.OutOrStdout(), path, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when lint warnings are reported")
	return cmd
}

func runCheck(out io.Writer, path string, strict bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	warnings := config.Lint(cfg)
	for _, w := range warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}

	forms, err := config.BuildAll(cfg)
	if err != nil {
		return err
	}
	for _, f := range forms {
		rep := f.Repair
		fmt.Fprintf(out, "form %s: %d blocks, %d connections", f.ID, f.Graph.BlockCount(), f.Graph.ConnectionCount())
		if n := len(rep.Pruned.Connections); n > 0 {
			fmt.Fprintf(out, ", pruned connections [%s]", strings.Join(rep.Pruned.Connections, " "))
		}
		if n := len(rep.Pruned.Rules); n > 0 {
			fmt.Fprintf(out, ", pruned %d rule(s)", n)
		}
		if rep.Preserved > 0 {
			fmt.Fprintf(out, ", re-attached rules on %d connection(s)", rep.Preserved)
		}
		fmt.Fprintln(out)
		for _, comp := range rep.Cycles {
			fmt.Fprintf(out, "  cycle among: %s\n", strings.Join(comp, ", "))
		}
	}

	if strict && len(warnings) > 0 {
		return fmt.Errorf("%d lint warning(s)", len(warnings))
	}
	fmt.Fprintln(out, "config is valid")
	return nil
}
