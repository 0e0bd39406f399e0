package main

import (
	"fmt"
	"os"

	"github.com/alfredjeanlab/atlasgraph/internal/client"
	"github.com/alfredjeanlab/atlasgraph/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	authToken  string
	jsonOutput bool

	viewsClient client.ViewsClient
)

func defaultServer() string {
	if s := os.Getenv("ATLAS_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:           "atlas <command>",
	Short:         "Explore resource relationship graphs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.ConfigureColor()
		viewsClient = client.NewHTTPClient(serverURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if viewsClient != nil {
			viewsClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "view server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("ATLAS_AUTH_TOKEN"), "bearer token for the view server")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "local", Title: "Local:"},
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Local
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(explainCmd)

	// Views
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(hoverCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(closeCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError("Error: "+err.Error()))
		os.Exit(1)
	}
}
