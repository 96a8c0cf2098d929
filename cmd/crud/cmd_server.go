package main

import (
	"fmt"
	"net"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/config"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/server"
)

var (
	serveBackend *string
	serveAddr    string
)

// crud serve: expose the operations over HTTP until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := openService(*serveBackend)
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = net.JoinHostPort("", config.AppPort())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.Start(ctx, addr, svc)
	},
}

// crud routes: print all registered named routes.
var routeListCmd = &cobra.Command{
	Use:     "routes",
	Aliases: []string{"route:list"},
	Short:   "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Building the router needs no store; handlers are never invoked.
		named := server.NewRouter(nil).Routes()

		names := make([]string, 0, len(named))
		for name := range named {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if named[names[i]] != named[names[j]] {
				return named[names[i]] < named[names[j]]
			}
			return names[i] < names[j]
		})

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tPATH")
		fmt.Fprintln(w, "----\t----")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%s\n", name, named[name])
		}
		return w.Flush()
	},
}

func init() {
	serveBackend = backendFlag(serveCmd, backendSQL)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :APP_PORT)")
}
