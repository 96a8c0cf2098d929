package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/walkthrough"
)

var demoBackend *string

// crud demo: run every operation once and print what happened.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the user operations walkthrough",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd, *demoBackend)
	},
}

var pingBackend *string

// crud ping: check the store answers.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connectivity to the selected store",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := openService(*pingBackend)
		if err != nil {
			return err
		}
		res := svc.Ping(cmd.Context())
		if !res.OK() {
			return fmt.Errorf("%s store unreachable: %w", *pingBackend, res.Err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅  Connected: %s\n", res.Value)
		return nil
	},
}

func init() {
	demoBackend = backendFlag(demoCmd, backendSQL)
	pingBackend = backendFlag(pingCmd, backendSQL)
}

func runDemo(cmd *cobra.Command, backend string) error {
	svc, title, err := openService(backend)
	if err != nil {
		return err
	}
	sum := walkthrough.Run(cmd.Context(), cmd.OutOrStdout(), svc, walkthrough.Options{Title: title})
	if sum.Failed > 0 {
		return fmt.Errorf("walkthrough finished with %d failed steps", sum.Failed)
	}
	return nil
}
