package walkthrough_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/repositories"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/repositories/repositoriestest"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/services"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/walkthrough"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/database"
)

func TestRun_SQL(t *testing.T) {
	repo, _ := repositoriestest.SQL(t)
	svc := services.NewUserService(repo)

	var out bytes.Buffer
	sum := walkthrough.Run(context.Background(), &out, svc, walkthrough.Options{Title: "SQL (sqlite)"})

	assert.Equal(t, walkthrough.Summary{OK: 10}, sum)
	text := out.String()
	assert.Contains(t, text, "USER OPERATIONS WALKTHROUGH · SQL (sqlite)")
	assert.Contains(t, text, "✅ Connected: sqlite 3.")
	assert.Contains(t, text, "✅ User created: María García (id 1)")
	assert.Contains(t, text, "   - María García (maria@email.com)")
	assert.Contains(t, text, "✅ User updated: María Fernanda García")
	assert.Contains(t, text, "✅ María Fernanda García has 0 orders (total 0.00)")
	assert.Contains(t, text, "   Age 30: 1 users")
	assert.Contains(t, text, "✅ User 2 and order 1 created in one transaction")
	assert.Contains(t, text, "✅ User 1 deleted")
	assert.Contains(t, text, "✅ WALKTHROUGH COMPLETE")
	assert.NotContains(t, text, "❌")
}

func TestRun_Hosted(t *testing.T) {
	repo, srv := repositoriestest.Hosted(t)
	svc := services.NewUserService(repo)

	var out bytes.Buffer
	sum := walkthrough.Run(context.Background(), &out, svc, walkthrough.Options{KeepUser: true})

	assert.Equal(t, 9, sum.OK)
	assert.Zero(t, sum.Failed)
	assert.NotContains(t, out.String(), "DELETE USER")
	assert.Len(t, srv.Rows("users"), 2)
	assert.Len(t, srv.Rows("orders"), 1)
}

func TestRun_ReportsFailures(t *testing.T) {
	repo, _ := repositoriestest.SQL(t, database.WithPlugins(repositoriestest.FailOrders{}))
	svc := services.NewUserService(repo)

	var out bytes.Buffer
	sum := walkthrough.Run(context.Background(), &out, svc, walkthrough.Options{})

	require.Equal(t, 1, sum.Failed)
	text := out.String()
	assert.Contains(t, text, "❌ Error: Transaction failed, nothing was written")
	assert.Contains(t, text, "❌ WALKTHROUGH COMPLETE WITH 1 FAILURES")
}

func TestRun_SkipsUserStepsWhenCreateFails(t *testing.T) {
	conn, err := database.New("sqlite", "file:/nonexistent/dir/crud.db?mode=ro")
	require.NoError(t, err)
	repo := repositories.NewUserRepository(conn)
	svc := services.NewUserService(repo)

	var out bytes.Buffer
	sum := walkthrough.Run(context.Background(), &out, svc, walkthrough.Options{})

	assert.Zero(t, sum.OK)
	text := out.String()
	assert.NotContains(t, text, "GET USER BY ID")
	assert.NotContains(t, text, "DELETE USER")
	assert.Contains(t, text, "❌ Error: Could not create user")
}
