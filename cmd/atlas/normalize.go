package main

import (
	"github.com/alfredjeanlab/atlasgraph/internal/normalize"
	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:     "normalize <file>",
	Short:   "Print the canonical graph of a payload file",
	GroupID: "local",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := readPayload(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), normalize.Normalize(v))
	},
}
