package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/repositories"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/services"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/supabase"
)

const (
	backendSQL      = "sql"
	backendSupabase = "supabase"
)

// backendFlag registers --backend on cmd, defaulting to def, and returns
// its value holder.
func backendFlag(cmd *cobra.Command, def string) *string {
	return cmd.Flags().StringP("backend", "b", def, "store to use: sql or supabase")
}

// openService builds the service for backend and a banner title for it.
func openService(backend string) (*services.UserService, string, error) {
	switch backend {
	case backendSQL:
		conn, err := database.FromConfig()
		if err != nil {
			return nil, "", err
		}
		return services.NewUserService(repositories.NewUserRepository(conn)), fmt.Sprintf("SQL (%s)", conn.Driver()), nil
	case backendSupabase:
		client, err := supabase.FromConfig()
		if err != nil {
			return nil, "", err
		}
		return services.NewUserService(repositories.NewSupabaseUserRepository(client)), "SUPABASE", nil
	default:
		return nil, "", fmt.Errorf("unknown backend %q (want %s or %s)", backend, backendSQL, backendSupabase)
	}
}
