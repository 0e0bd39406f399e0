package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alfredjeanlab/atlasgraph/internal/client"
	"github.com/alfredjeanlab/atlasgraph/internal/model"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create [file]",
	Short:   "Mount a view on the server, optionally loading a payload file",
	GroupID: "views",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload json.RawMessage
		if len(args) == 1 {
			var err error
			if payload, err = readRawPayload(args[0]); err != nil {
				return err
			}
		}
		resp, err := viewsClient.CreateView(cmd.Context(), payload)
		if err != nil {
			return fmt.Errorf("creating view: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%d nodes, %d edges)\n", resp.ID, resp.NodeCount, resp.EdgeCount)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List mounted views",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		views, err := viewsClient.ListViews(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing views: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), views)
		}
		printViewTable(cmd.OutOrStdout(), views)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:     "show <view-id>",
	Short:   "Show the focus and detail panel of a view",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := viewsClient.GetView(cmd.Context(), args[0])
		if err != nil {
			return viewError("getting view", args[0], err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), snap)
		}
		return printSnapshot(cmd.OutOrStdout(), snap)
	},
}

var pushCmd = &cobra.Command{
	Use:     "push <view-id> <file>",
	Short:   "Load a payload file into a mounted view",
	GroupID: "views",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readRawPayload(args[1])
		if err != nil {
			return err
		}
		res, err := viewsClient.LoadPayload(cmd.Context(), args[0], payload)
		if err != nil {
			return viewError("pushing payload", args[0], err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s payload into %s (%d nodes, %d edges)\n",
			res.Shape, args[0], res.NodeCount, res.EdgeCount)
		return nil
	},
}

var selectCmd = &cobra.Command{
	Use:     "select <view-id> [node-id]",
	Short:   "Select a node, or an edge with --edge",
	GroupID: "views",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		edgeFlag, _ := cmd.Flags().GetString("edge")
		var (
			changed bool
			err     error
		)
		switch {
		case edgeFlag != "" && len(args) == 2:
			return fmt.Errorf("give either a node id or --edge, not both")
		case edgeFlag != "":
			key, ok := model.ParseEdgeKey(edgeFlag)
			if !ok {
				return fmt.Errorf("invalid --edge %q (want SOURCE,TARGET,TYPE)", edgeFlag)
			}
			changed, err = viewsClient.SelectEdge(cmd.Context(), args[0], key)
		case len(args) == 2:
			changed, err = viewsClient.SelectNode(cmd.Context(), args[0], args[1])
		default:
			return fmt.Errorf("missing node id or --edge")
		}
		if err != nil {
			return viewError("selecting", args[0], err)
		}
		return reportChange(cmd, changed)
	},
}

var hoverCmd = &cobra.Command{
	Use:     "hover <view-id> [node-id]",
	Short:   "Set or clear the hovered node",
	GroupID: "views",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID := ""
		if len(args) == 2 {
			nodeID = args[1]
		}
		changed, err := viewsClient.Hover(cmd.Context(), args[0], nodeID)
		if err != nil {
			return viewError("hovering", args[0], err)
		}
		return reportChange(cmd, changed)
	},
}

var resetCmd = &cobra.Command{
	Use:     "reset <view-id>",
	Short:   "Clear the selection and focus of a view",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viewsClient.ResetView(cmd.Context(), args[0]); err != nil {
			return viewError("resetting view", args[0], err)
		}
		if !jsonOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", args[0])
		}
		return nil
	},
}

var closeCmd = &cobra.Command{
	Use:     "close <view-id>",
	Short:   "Unmount a view",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viewsClient.DeleteView(cmd.Context(), args[0]); err != nil {
			return viewError("closing view", args[0], err)
		}
		if !jsonOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "Closed %s\n", args[0])
		}
		return nil
	},
}

// viewError names the server when the view is unknown, since a wrong
// --server is the usual cause.
func viewError(op, id string, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.NotFound() {
		return fmt.Errorf("%s: view %s is not mounted on %s", op, id, serverURL)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func reportChange(cmd *cobra.Command, changed bool) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]bool{"changed": changed})
	}
	if changed {
		fmt.Fprintln(cmd.OutOrStdout(), "Focus updated")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "No change")
	}
	return nil
}

func init() {
	selectCmd.Flags().String("edge", "", "select the edge SOURCE,TARGET,TYPE")
}
