package services_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/models"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/repositories"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/repositories/repositoriestest"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/services"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/logger"
)

// backends builds a service over each store so the same properties are
// checked on both access paths.
var backends = map[string]func(t *testing.T) *services.UserService{
	"sql": func(t *testing.T) *services.UserService {
		repo, _ := repositoriestest.SQL(t)
		return services.NewUserService(repo)
	},
	"supabase": func(t *testing.T) *services.UserService {
		repo, _ := repositoriestest.Hosted(t)
		return services.NewUserService(repo)
	},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, svc *services.UserService)) {
	for name, build := range backends {
		t.Run(name, func(t *testing.T) { fn(t, build(t)) })
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf, "test")
	t.Cleanup(func() { logger.SetOutput(os.Stderr, "test") })
	return &buf
}

func TestCreateThenGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *services.UserService) {
		ctx := context.Background()

		created := svc.CreateUser(ctx, models.NewUser{Name: "María García", Email: "maria@email.com", Age: 30})
		require.True(t, created.OK(), "create: %v", created.Err)

		got := svc.GetUser(ctx, created.Value.ID)
		require.True(t, got.OK())
		assert.Equal(t, "María García", got.Value.Name)
		assert.Equal(t, "maria@email.com", got.Value.Email)
		assert.Equal(t, 30, got.Value.Age)
		assert.True(t, got.Value.Active)
	})
}

func TestDeleteThenGet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *services.UserService) {
		ctx := context.Background()
		created := svc.CreateUser(ctx, models.NewUser{Name: "Ana", Email: "ana@email.com", Age: 22})
		require.True(t, created.OK())

		deleted := svc.DeleteUser(ctx, created.Value.ID)
		assert.True(t, deleted.Value)
		assert.Equal(t, services.OK, deleted.Outcome)

		got := svc.GetUser(ctx, created.Value.ID)
		assert.Nil(t, got.Value)
		assert.Equal(t, services.Missing, got.Outcome)

		again := svc.DeleteUser(ctx, created.Value.ID)
		assert.True(t, again.Value, "deleting an unknown id still succeeds")
		assert.Equal(t, services.OK, again.Outcome)
	})
}

func TestUpdateWithoutFields(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *services.UserService) {
		ctx := context.Background()
		created := svc.CreateUser(ctx, models.NewUser{Name: "Ana", Email: "ana@email.com", Age: 22})
		require.True(t, created.OK())

		blank := " "
		res := svc.UpdateUser(ctx, created.Value.ID, models.UserChanges{Name: &blank})
		assert.Nil(t, res.Value)
		assert.Equal(t, services.Missing, res.Outcome)
		assert.ErrorIs(t, res.Err, repositories.ErrNoChanges)

		got := svc.GetUser(ctx, created.Value.ID)
		require.True(t, got.OK())
		assert.Equal(t, "Ana", got.Value.Name, "nothing was written")

		name := "Ana María"
		res = svc.UpdateUser(ctx, created.Value.ID, models.UserChanges{Name: &name})
		require.True(t, res.OK())
		assert.Equal(t, "Ana María", res.Value.Name)
	})
}

func TestActiveAdultsNeverIncludeMinors(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *services.UserService) {
		ctx := context.Background()
		for _, age := range []int{12, 17, 18, 19, 65} {
			require.True(t, svc.CreateUser(ctx, models.NewUser{Name: "u", Email: "u@email.com", Age: age}).OK())
		}

		res := svc.ListActiveAdults(ctx)
		require.True(t, res.OK())
		assert.Len(t, res.Value, 3)
		for _, u := range res.Value {
			assert.GreaterOrEqual(t, u.Age, 18)
			assert.True(t, u.Active)
		}
	})
}

func TestCountUsersByAge(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *services.UserService) {
		ctx := context.Background()

		empty := svc.CountUsersByAge(ctx)
		require.True(t, empty.OK())
		assert.NotNil(t, empty.Value)
		assert.Empty(t, empty.Value)

		for _, age := range []int{30, 25, 30, 41, 25, 30, 19} {
			require.True(t, svc.CreateUser(ctx, models.NewUser{Name: "u", Email: "u@email.com", Age: age}).OK())
		}

		res := svc.CountUsersByAge(ctx)
		require.True(t, res.OK())
		assert.Equal(t, []models.AgeCount{
			{Age: 19, Count: 1},
			{Age: 25, Count: 2},
			{Age: 30, Count: 3},
			{Age: 41, Count: 1},
		}, res.Value)

		var total int64
		for i, bucket := range res.Value {
			total += bucket.Count
			if i > 0 {
				assert.Greater(t, bucket.Age, res.Value[i-1].Age, "keys strictly ascending")
			}
		}
		users := svc.ListUsers(ctx)
		require.True(t, users.OK())
		assert.Equal(t, int64(len(users.Value)), total)
	})
}

func TestAggregationStrategyFollowsStore(t *testing.T) {
	sqlRepo, _ := repositoriestest.SQL(t)
	hostedRepo, _ := repositoriestest.Hosted(t)

	assert.True(t, services.NewUserService(sqlRepo).NativeAggregation())
	assert.False(t, services.NewUserService(hostedRepo).NativeAggregation())
}

// The walkthrough scenario: María is created with no orders, Carlos is
// created together with a Laptop order.
func TestScenario(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *services.UserService) {
		ctx := context.Background()

		maria := svc.CreateUser(ctx, models.NewUser{Name: "María García", Email: "maria@email.com", Age: 30})
		require.True(t, maria.OK())
		assert.True(t, maria.Value.Active)

		withOrders := svc.GetUserWithOrders(ctx, maria.Value.ID)
		require.True(t, withOrders.OK())
		assert.NotNil(t, withOrders.Value.Orders)
		assert.Empty(t, withOrders.Value.Orders)

		ids := svc.CreateUserWithOrder(ctx, models.NewUserOrder{
			NewUser: models.NewUser{Name: "Carlos López", Email: "carlos@email.com", Age: 35},
			Product: "Laptop",
			Price:   1500.00,
		})
		require.True(t, ids.OK(), "create with order: %v", ids.Err)

		carlos := svc.GetUserWithOrders(ctx, ids.Value.UserID)
		require.True(t, carlos.OK())
		assert.Equal(t, "Carlos López", carlos.Value.Name)
		require.Len(t, carlos.Value.Orders, 1)
		assert.Equal(t, ids.Value.OrderID, carlos.Value.Orders[0].ID)
		assert.Equal(t, "Laptop", carlos.Value.Orders[0].Product)
		assert.InDelta(t, 1500.00, carlos.Value.Orders[0].Price, 0.001)

		missing := svc.GetUserWithOrders(ctx, 999)
		assert.Nil(t, missing.Value)
		assert.Equal(t, services.Missing, missing.Outcome)
	})
}

func TestCreateUserWithOrderLeavesNoPartialRow(t *testing.T) {
	repo, _ := repositoriestest.SQL(t, database.WithPlugins(repositoriestest.FailOrders{}))
	svc := services.NewUserService(repo)
	logs := captureLogs(t)
	ctx := context.Background()

	res := svc.CreateUserWithOrder(ctx, models.NewUserOrder{
		NewUser: models.NewUser{Name: "Carlos López", Email: "carlos@email.com", Age: 35},
		Product: "Laptop",
		Price:   1500.00,
	})
	assert.Nil(t, res.Value)
	assert.Equal(t, services.Failed, res.Outcome)
	assert.ErrorIs(t, res.Err, repositoriestest.ErrForcedOrderFailure)
	assert.Contains(t, logs.String(), "op=create-user-with-order")

	users := svc.ListUsers(ctx)
	require.True(t, users.OK())
	assert.Empty(t, users.Value)
}

func TestPing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *services.UserService) {
		res := svc.Ping(context.Background())
		require.True(t, res.OK(), "ping: %v", res.Err)
		assert.NotEmpty(t, res.Value)
	})
}

// brokenStore fails every operation.
type brokenStore struct{}

var errBroken = errors.New("connection refused")

func (brokenStore) Create(context.Context, models.NewUser) (*models.User, error) { return nil, errBroken }
func (brokenStore) List(context.Context) ([]models.User, error)                  { return nil, errBroken }
func (brokenStore) FindByID(context.Context, int64) (*models.User, error)        { return nil, errBroken }
func (brokenStore) ListActiveAdults(context.Context) ([]models.User, error)      { return nil, errBroken }
func (brokenStore) Update(context.Context, int64, models.UserChanges) (*models.User, error) {
	return nil, errBroken
}
func (brokenStore) Delete(context.Context, int64) (bool, error) { return false, errBroken }
func (brokenStore) FindWithOrders(context.Context, int64) (*models.UserWithOrders, error) {
	return nil, errBroken
}
func (brokenStore) ListAges(context.Context) ([]int, error) { return nil, errBroken }
func (brokenStore) CreateWithOrder(context.Context, models.NewUserOrder) (*models.UserOrderIDs, error) {
	return nil, errBroken
}
func (brokenStore) Ping(context.Context) (string, error) { return "", errBroken }

func TestFailuresBecomeSentinels(t *testing.T) {
	svc := services.NewUserService(brokenStore{})
	logs := captureLogs(t)
	ctx := context.Background()
	name := "x"

	created := svc.CreateUser(ctx, models.NewUser{Name: "x"})
	assert.Nil(t, created.Value)
	assert.Equal(t, services.Failed, created.Outcome)

	list := svc.ListUsers(ctx)
	assert.NotNil(t, list.Value)
	assert.Empty(t, list.Value)

	assert.Nil(t, svc.GetUser(ctx, 1).Value)
	assert.Empty(t, svc.ListActiveAdults(ctx).Value)
	assert.Nil(t, svc.UpdateUser(ctx, 1, models.UserChanges{Name: &name}).Value)
	assert.False(t, svc.DeleteUser(ctx, 1).Value)
	assert.Nil(t, svc.GetUserWithOrders(ctx, 1).Value)

	counts := svc.CountUsersByAge(ctx)
	assert.NotNil(t, counts.Value)
	assert.Empty(t, counts.Value)
	assert.Equal(t, services.Failed, counts.Outcome)

	assert.Nil(t, svc.CreateUserWithOrder(ctx, models.NewUserOrder{}).Value)
	assert.Empty(t, svc.Ping(ctx).Value)

	watched := svc.WatchUsers(ctx, func(models.UserChange) { t.Error("no change expected") })
	assert.Zero(t, watched.Value)
	assert.Equal(t, services.Failed, watched.Outcome)
	assert.ErrorIs(t, watched.Err, repositories.ErrUnsupported)

	out := logs.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "connection refused")
	for _, op := range []string{
		services.OpCreateUser, services.OpListUsers, services.OpGetUser,
		services.OpListActiveAdults, services.OpUpdateUser, services.OpDeleteUser,
		services.OpGetUserWithOrders, services.OpCountUsersByAge,
		services.OpCreateUserWithOrder, services.OpPing, services.OpWatchUsers,
	} {
		assert.Contains(t, out, "op="+op)
	}
}

func TestWatchUsers(t *testing.T) {
	repo, srv := repositoriestest.Hosted(t)
	svc := services.NewUserService(repo)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan models.UserChange, 8)
	done := make(chan services.Result[int], 1)
	go func() {
		done <- svc.WatchUsers(ctx, func(c models.UserChange) { changes <- c })
	}()
	require.Eventually(t, func() bool { return srv.Subscribers("users") == 1 }, 5*time.Second, 10*time.Millisecond)

	created := svc.CreateUser(context.Background(), models.NewUser{Name: "Ana", Email: "ana@email.com", Age: 22})
	require.True(t, created.OK())
	name := "Ana María"
	require.True(t, svc.UpdateUser(context.Background(), created.Value.ID, models.UserChanges{Name: &name}).OK())
	require.True(t, svc.DeleteUser(context.Background(), created.Value.ID).OK())

	var got []string
	for len(got) < 3 {
		select {
		case c := <-changes:
			got = append(got, c.Type+" "+c.User.Name)
		case <-time.After(5 * time.Second):
			t.Fatalf("only got %v", got)
		}
	}
	assert.Equal(t, []string{"INSERT Ana", "UPDATE Ana María", "DELETE Ana María"}, got)

	cancel()
	select {
	case res := <-done:
		assert.Equal(t, services.OK, res.Outcome, "stopping is not a failure: %v", res.Err)
		assert.Equal(t, 3, res.Value)
	case <-time.After(5 * time.Second):
		t.Fatal("WatchUsers did not return")
	}
}

func TestWatchUsersNeedsChangeFeed(t *testing.T) {
	repo, _ := repositoriestest.SQL(t)
	res := services.NewUserService(repo).WatchUsers(context.Background(), func(models.UserChange) {})

	assert.Equal(t, services.Failed, res.Outcome)
	assert.ErrorIs(t, res.Err, repositories.ErrUnsupported)
}

type panickyStore struct{ brokenStore }

func (panickyStore) FindByID(context.Context, int64) (*models.User, error) {
	panic("driver exploded")
}

func TestPanicBecomesFailed(t *testing.T) {
	svc := services.NewUserService(panickyStore{})
	logs := captureLogs(t)

	var res services.Result[*models.User]
	require.NotPanics(t, func() { res = svc.GetUser(context.Background(), 7) })

	assert.Nil(t, res.Value)
	assert.Equal(t, services.Failed, res.Outcome)
	assert.ErrorIs(t, res.Err, services.ErrPanic)
	assert.Contains(t, res.Err.Error(), "driver exploded")
	assert.Contains(t, logs.String(), "op="+services.OpGetUser)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "ok", services.OK.String())
	assert.Equal(t, "missing", services.Missing.String())
	assert.Equal(t, "failed", services.Failed.String())
}
