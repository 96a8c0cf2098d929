package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/models"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/services"
)

var watchBackend *string

// crud watch: print every change on users until interrupted.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream inserts, updates and deletes on users (hosted store only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, title, err := openService(*watchBackend)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, cmd.OutOrStdout(), svc, title)
	},
}

func init() {
	watchBackend = backendFlag(watchCmd, backendSupabase)
}

func runWatch(ctx context.Context, out io.Writer, svc *services.UserService, title string) error {
	fmt.Fprintf(out, "👀 Watching users on %s (Ctrl+C to stop)\n", title)
	res := svc.WatchUsers(ctx, func(c models.UserChange) {
		fmt.Fprintf(out, "🔔 %-6s id=%d %s <%s> age=%d\n", c.Type, c.User.ID, c.User.Name, c.User.Email, c.User.Age)
	})
	if !res.OK() {
		return fmt.Errorf("watch: %w", res.Err)
	}
	fmt.Fprintf(out, "✅ Stopped after %d changes\n", res.Value)
	return nil
}
