package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/alfredjeanlab/atlasgraph/internal/client"
	"github.com/alfredjeanlab/atlasgraph/internal/explorer"
	"github.com/alfredjeanlab/atlasgraph/internal/panel"
	"github.com/alfredjeanlab/atlasgraph/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printViewTable(w io.Writer, views []client.ViewInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLOADED\tNODES\tEDGES\tREVISION")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%t\t%d\t%d\t%d\n", v.ID, v.Loaded, v.NodeCount, v.EdgeCount, v.Revision)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d views\n", len(views))
}

// printSnapshot writes the summary line and the detail panel of s.
func printSnapshot(w io.Writer, s *explorer.Snapshot) error {
	if s.Summary != nil {
		fmt.Fprintln(w, ui.RenderBold(*s.Summary))
	}
	if s.Loaded {
		fmt.Fprintln(w, ui.RenderMuted(fmt.Sprintf("%s payload, revision %d", s.Shape, s.Revision)))
	}
	fmt.Fprintln(w)
	return panel.WriteText(w, s.Detail)
}

func warn(format string, args ...any) {
	fmt.Fprintln(os.Stderr, ui.RenderMuted(fmt.Sprintf(format, args...)))
}
