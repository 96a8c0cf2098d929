package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/database/seeders"
)

var seedBackend *string

// crud seed: insert the sample users and orders.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all registered seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, title, err := openService(*seedBackend)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Seeding %s…\n", title)
		if err := seeders.RunAll(cmd.Context(), out, svc); err != nil {
			return err
		}
		fmt.Fprintln(out, "✅  Seeding complete.")
		return nil
	},
}

func init() {
	seedBackend = backendFlag(seedCmd, backendSQL)
}
