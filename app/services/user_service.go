// Package services is the boundary callers use. Every operation catches the
// store's failures, logs them and returns a sentinel in a Result.
package services

import (
	"context"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/models"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/repositories"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/collection"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/logger"
)

// Operation names, as logged and counted.
const (
	OpCreateUser          = "create-user"
	OpListUsers           = "list-users"
	OpGetUser             = "get-user-by-id"
	OpListActiveAdults    = "list-active-adult-users"
	OpUpdateUser          = "update-user"
	OpDeleteUser          = "delete-user"
	OpGetUserWithOrders   = "get-user-with-orders"
	OpCountUsersByAge     = "count-users-by-age"
	OpCreateUserWithOrder = "create-user-with-order"
	OpPing                = "ping"
	OpWatchUsers          = "watch-users"
)

type UserService struct {
	repo    repositories.Store
	counter repositories.AgeCounter
	watcher repositories.Watcher
}

// NewUserService wraps repo. If repo can group by age natively that is used
// for CountUsersByAge; otherwise ages are fetched and counted in memory.
func NewUserService(repo repositories.Store) *UserService {
	s := &UserService{repo: repo}
	if c, ok := repo.(repositories.AgeCounter); ok {
		s.counter = c
	}
	if w, ok := repo.(repositories.Watcher); ok {
		s.watcher = w
	}
	return s
}

// NativeAggregation reports whether CountUsersByAge runs in the store.
func (s *UserService) NativeAggregation() bool { return s.counter != nil }

func (s *UserService) CreateUser(ctx context.Context, in models.NewUser) Result[*models.User] {
	return run(ctx, OpCreateUser, nil, func() (*models.User, error) {
		return s.repo.Create(ctx, in)
	})
}

func (s *UserService) ListUsers(ctx context.Context) Result[[]models.User] {
	return run(ctx, OpListUsers, []models.User{}, func() ([]models.User, error) {
		return s.repo.List(ctx)
	})
}

// GetUser yields a nil Value with Outcome Missing when id does not exist.
func (s *UserService) GetUser(ctx context.Context, id int64) Result[*models.User] {
	return run(ctx, OpGetUser, nil, func() (*models.User, error) {
		return s.repo.FindByID(ctx, id)
	})
}

func (s *UserService) ListActiveAdults(ctx context.Context) Result[[]models.User] {
	return run(ctx, OpListActiveAdults, []models.User{}, func() ([]models.User, error) {
		return s.repo.ListActiveAdults(ctx)
	})
}

// UpdateUser writes the non-blank fields of changes. With nothing to write
// it yields Missing without touching the store.
func (s *UserService) UpdateUser(ctx context.Context, id int64, changes models.UserChanges) Result[*models.User] {
	return run(ctx, OpUpdateUser, nil, func() (*models.User, error) {
		if changes.IsEmpty() {
			return nil, repositories.ErrNoChanges
		}
		return s.repo.Update(ctx, id, changes)
	})
}

// DeleteUser yields true once the delete ran, whether or not id existed.
// Only a store failure yields false.
func (s *UserService) DeleteUser(ctx context.Context, id int64) Result[bool] {
	return run(ctx, OpDeleteUser, false, func() (bool, error) {
		removed, err := s.repo.Delete(ctx, id)
		if err != nil {
			return false, err
		}
		if !removed {
			logger.WithCtx(ctx).Debug("delete matched no user", "id", id)
		}
		return true, nil
	})
}

func (s *UserService) GetUserWithOrders(ctx context.Context, id int64) Result[*models.UserWithOrders] {
	return run(ctx, OpGetUserWithOrders, nil, func() (*models.UserWithOrders, error) {
		return s.repo.FindWithOrders(ctx, id)
	})
}

// CountUsersByAge returns one bucket per distinct age, ascending.
func (s *UserService) CountUsersByAge(ctx context.Context) Result[[]models.AgeCount] {
	return run(ctx, OpCountUsersByAge, []models.AgeCount{}, func() ([]models.AgeCount, error) {
		if s.counter != nil {
			return s.counter.CountByAge(ctx)
		}
		ages, err := s.repo.ListAges(ctx)
		if err != nil {
			return nil, err
		}
		return foldAges(ages), nil
	})
}

func foldAges(ages []int) []models.AgeCount {
	counts := collection.CountBy(ages, func(age int) int { return age })
	return collection.Map(collection.SortedKeys(counts), func(age int) models.AgeCount {
		return models.AgeCount{Age: age, Count: counts[age]}
	})
}

// CreateUserWithOrder inserts a user and its first order atomically. On
// failure neither row persists.
func (s *UserService) CreateUserWithOrder(ctx context.Context, in models.NewUserOrder) Result[*models.UserOrderIDs] {
	return run(ctx, OpCreateUserWithOrder, nil, func() (*models.UserOrderIDs, error) {
		return s.repo.CreateWithOrder(ctx, in)
	})
}

// Ping describes the backend when it is reachable.
func (s *UserService) Ping(ctx context.Context) Result[string] {
	res := run(ctx, OpPing, "", func() (string, error) {
		return s.repo.Ping(ctx)
	})
	if res.OK() {
		logger.WithCtx(ctx).Info("store reachable", "backend", res.Value)
	}
	return res
}

// WatchUsers passes every change on users to fn until ctx ends. Value is the
// number of changes delivered. Stores without a change feed fail with
// repositories.ErrUnsupported.
func (s *UserService) WatchUsers(ctx context.Context, fn func(models.UserChange)) Result[int] {
	return run(ctx, OpWatchUsers, 0, func() (int, error) {
		if s.watcher == nil {
			return 0, repositories.ErrUnsupported
		}
		n := 0
		err := s.watcher.WatchUsers(ctx, func(c models.UserChange) {
			n++
			fn(c)
		})
		return n, err
	})
}
