// Package repositories holds the two access paths to the users/orders
// schema: UserRepository talks SQL through a database.Connector, and
// SupabaseUserRepository talks to a hosted Supabase project over REST.
// Both return plain errors; turning them into sentinels is the service's job.
package repositories

import (
	"context"
	"errors"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/models"
)

var (
	// ErrNotFound means no user has the requested id.
	ErrNotFound = errors.New("user not found")

	// ErrNoChanges means an update carried no fields to write.
	ErrNoChanges = errors.New("no fields to update")

	// ErrUnsupported means the store cannot perform the operation at all.
	ErrUnsupported = errors.New("operation not supported by this store")
)

// Store is the set of operations both access paths provide.
type Store interface {
	Create(ctx context.Context, in models.NewUser) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ListActiveAdults(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id int64, changes models.UserChanges) (*models.User, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)
	FindWithOrders(ctx context.Context, id int64) (*models.UserWithOrders, error)
	// ListAges returns the age of every user, for client-side aggregation.
	ListAges(ctx context.Context) ([]int, error)
	CreateWithOrder(ctx context.Context, in models.NewUserOrder) (*models.UserOrderIDs, error)
	// Ping checks connectivity and describes the backend.
	Ping(ctx context.Context) (string, error)
}

// AgeCounter is implemented by stores that can group users by age natively.
type AgeCounter interface {
	// CountByAge returns one bucket per distinct age, ascending by age.
	CountByAge(ctx context.Context) ([]models.AgeCount, error)
}

// MinAdultAge is the lower bound of ListActiveAdults.
const MinAdultAge = 18

// Watcher is implemented by stores with a change feed on users.
type Watcher interface {
	// WatchUsers calls fn for every change until ctx ends.
	WatchUsers(ctx context.Context, fn func(models.UserChange)) error
}
