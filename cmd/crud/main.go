// Command crud drives the user operations from the terminal: a guided
// walkthrough against either store, the HTTP API, seeding, a ping and a
// live feed of changes on the hosted store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crud",
	Short: "Users and orders over SQL or a hosted PostgREST project",
	Long: "crud runs the user operations against a SQL database (DB_* settings) or a " +
		"hosted Supabase project (SUPABASE_URL, SUPABASE_KEY). Without a subcommand " +
		"it runs the walkthrough on the SQL path.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd, backendSQL)
	},
}

func init() {
	// Walkthrough
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(watchCmd)

	// Server
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	// Database
	rootCmd.AddCommand(seedCmd)
}
