package main

import (
	"fmt"

	"github.com/alfredjeanlab/atlasgraph/internal/panel"
	"github.com/spf13/cobra"
)

var explainCmd = &cobra.Command{
	Use:     "explain <relationship-type>",
	Short:   "Explain a relationship type",
	GroupID: "local",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		relType := args[0]
		text := panel.Explain(relType)
		// An explicit --server asks that server instead.
		if cmd.Flags().Changed("server") {
			var err error
			text, err = viewsClient.Explain(cmd.Context(), relType)
			if err != nil {
				return fmt.Errorf("explaining %s: %w", relType, err)
			}
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]string{"type": relType, "explanation": text})
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}
