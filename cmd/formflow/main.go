package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultConfig = "configs/forms.yaml"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "formflow",
		Short:         "Formflow routes respondents through branching forms",
		Long:          `Formflow loads form workflows from YAML, repairs their routing graphs and serves routing decisions over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newCheckCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
