package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/alfredjeanlab/atlasgraph/internal/ui"
	"github.com/spf13/cobra"
)

// helpRule styles every match of re. Submatch 1 is kept as is and submatch 2
// is passed to style; a pattern without groups styles the whole match.
type helpRule struct {
	re    *regexp.Regexp
	style func(string) string
}

var helpRules = []helpRule{
	// Group headers such as "Views:" or "Flags:". "Usage:" stays plain.
	{regexp.MustCompile(`(?m)^()((?:[A-TV-Z]|U[^s])[^\n]*:)[ \t]*$`), ui.RenderAccent},
	// Command names in a command list.
	{regexp.MustCompile(`(?m)^(  )([a-z][\w-]*)(?:  )`), ui.RenderCommand},
	// Flag value types, e.g. "--edge string".
	{regexp.MustCompile(`(--[\w-]+ )(string|int|duration)\b`), ui.RenderMuted},
	// Defaults, e.g. (default "http://localhost:8080").
	{regexp.MustCompile(`()(\(default [^)]*\))`), ui.RenderMuted},
}

// colorizedHelpFunc returns a help function that styles cobra's usage text
// when the terminal supports colour.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	for _, rule := range helpRules {
		s = rule.re.ReplaceAllStringFunc(s, func(match string) string {
			parts := rule.re.FindStringSubmatch(match)
			if len(parts) < 3 {
				return rule.style(match)
			}
			rest := match[len(parts[1])+len(parts[2]):]
			return parts[1] + rule.style(parts[2]) + rest
		})
	}
	return s
}
