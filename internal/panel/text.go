package panel

import (
	"fmt"
	"io"
	"strings"

	"github.com/alfredjeanlab/atlasgraph/internal/model"
	"github.com/alfredjeanlab/atlasgraph/internal/ui"
)

// WriteText writes a terminal readout of d.
func WriteText(w io.Writer, d Detail) error {
	var b strings.Builder

	if d.Error != "" {
		b.WriteString(ui.Card(ui.RenderBold(MsgUnavailable) + "\n" + ui.RenderError(d.Error)))
		b.WriteString("\n\n")
	} else if d.Notice != "" {
		b.WriteString(ui.RenderMuted(d.Notice))
		b.WriteString("\n\n")
	}

	if d.Focus != nil {
		b.WriteString(ui.Card(focusText(*d.Focus)))
		b.WriteString("\n\n")
	}

	b.WriteString(ui.RenderMuted(d.Picker.Heading()))
	b.WriteByte('\n')
	for _, e := range d.Picker.Entries {
		marker := " "
		if e.Selected {
			marker = ui.RenderAccent(">")
		}
		fmt.Fprintf(&b, "%s %s %s\n", marker, ui.Swatch(e.Color), e.Caption)
	}
	if f := d.Picker.Footer(); f != "" {
		b.WriteString(ui.RenderMuted(f))
		b.WriteByte('\n')
	}

	if d.Selected != nil {
		b.WriteByte('\n')
		writeNode(&b, *d.Selected)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func focusText(c FocusCard) string {
	var b strings.Builder
	b.WriteString(ui.RenderBold(c.Title()))
	b.WriteByte('\n')
	switch c.Kind {
	case model.FocusNode:
		b.WriteString(ui.RenderMuted(c.NodeType))
		fmt.Fprintf(&b, "\nIncoming: %d · Outgoing: %d", c.Incoming, c.Outgoing)
		for _, p := range c.Properties {
			fmt.Fprintf(&b, "\n%s %s", ui.RenderMuted(p.Key+":"), p.Value)
		}
	case model.FocusEdge:
		fmt.Fprintf(&b, "%s → %s\n", c.Source, c.Target)
		b.WriteString(c.Explanation)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n NodeDetail) {
	fmt.Fprintf(b, "%s %s\n", ui.Swatch(n.Color), ui.RenderBold(n.Label))
	b.WriteString(ui.RenderMuted(strings.ToUpper(n.Type)))
	b.WriteString("\n\nProperties\n")
	for _, p := range n.Properties {
		fmt.Fprintf(b, "  %s %s\n", ui.RenderMuted(p.Key+":"), p.Value)
	}
	b.WriteString("\nRelationships\n")
	if len(n.Incoming) > 0 {
		fmt.Fprintf(b, "  Incoming (%d)\n", len(n.Incoming))
		for _, e := range n.Incoming {
			fmt.Fprintf(b, "    %s from %s\n", ui.RenderAccent("← "+e.Type), e.Peer)
		}
	}
	if len(n.Outgoing) > 0 {
		fmt.Fprintf(b, "  Outgoing (%d)\n", len(n.Outgoing))
		for _, e := range n.Outgoing {
			fmt.Fprintf(b, "    %s to %s\n", ui.RenderAccent(e.Type+" →"), e.Peer)
		}
	}
	if len(n.Incoming) == 0 && len(n.Outgoing) == 0 {
		fmt.Fprintf(b, "  %s\n", ui.RenderMuted(MsgNoRelations))
	}
}
