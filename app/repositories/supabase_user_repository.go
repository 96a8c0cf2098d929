package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/models"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/logger"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/supabase"
)

const (
	usersTable = "users"

	// CreateUserWithOrderFunc is the server-side function that inserts a
	// user and its first order in one database transaction.
	CreateUserWithOrderFunc = "create_user_with_order"
)

// SupabaseUserRepository runs the user operations against a hosted Supabase
// project. The REST surface has no GROUP BY, so it does not implement
// AgeCounter. It watches users over Realtime.
type SupabaseUserRepository struct {
	client *supabase.Client
}

var (
	_ Store   = (*SupabaseUserRepository)(nil)
	_ Watcher = (*SupabaseUserRepository)(nil)
)

func NewSupabaseUserRepository(client *supabase.Client) *SupabaseUserRepository {
	return &SupabaseUserRepository{client: client}
}

func (r *SupabaseUserRepository) Create(ctx context.Context, in models.NewUser) (*models.User, error) {
	var rows []models.User
	err := r.client.From(usersTable).Insert(in).Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("repositories: create user: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("repositories: create user: empty representation")
	}
	return &rows[0], nil
}

func (r *SupabaseUserRepository) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := r.client.From(usersTable).Select("*").Order("id", supabase.Asc).Execute(ctx, &users)
	if err != nil {
		return nil, fmt.Errorf("repositories: list users: %w", err)
	}
	return users, nil
}

func (r *SupabaseUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := r.client.From(usersTable).Select("*").Eq("id", id).Single().Execute(ctx, &u)
	if supabase.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repositories: find user %d: %w", id, err)
	}
	return &u, nil
}

func (r *SupabaseUserRepository) ListActiveAdults(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := r.client.From(usersTable).
		Select("*").
		Eq("active", true).
		Gte("age", MinAdultAge).
		Order("registered_at", supabase.Desc).
		Order("id", supabase.Desc).
		Execute(ctx, &users)
	if err != nil {
		return nil, fmt.Errorf("repositories: list active adults: %w", err)
	}
	return users, nil
}

func (r *SupabaseUserRepository) Update(ctx context.Context, id int64, changes models.UserChanges) (*models.User, error) {
	cols := changes.Columns()
	if len(cols) == 0 {
		return nil, ErrNoChanges
	}

	var rows []models.User
	err := r.client.From(usersTable).Update(cols).Eq("id", id).Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("repositories: update user %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (r *SupabaseUserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var rows []models.User
	err := r.client.From(usersTable).Delete().Eq("id", id).Execute(ctx, &rows)
	if err != nil {
		return false, fmt.Errorf("repositories: delete user %d: %w", id, err)
	}
	return len(rows) > 0, nil
}

// FindWithOrders embeds the orders resource in the user select.
func (r *SupabaseUserRepository) FindWithOrders(ctx context.Context, id int64) (*models.UserWithOrders, error) {
	var out models.UserWithOrders
	err := r.client.From(usersTable).Select("*,orders(*)").Eq("id", id).Single().Execute(ctx, &out)
	if supabase.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repositories: find user %d with orders: %w", id, err)
	}
	if out.Orders == nil {
		out.Orders = []models.Order{}
	}
	return &out, nil
}

// ListAges fetches only the age column of every user.
func (r *SupabaseUserRepository) ListAges(ctx context.Context) ([]int, error) {
	var rows []struct {
		Age int `json:"age"`
	}
	if err := r.client.From(usersTable).Select("age").Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("repositories: list ages: %w", err)
	}
	ages := make([]int, len(rows))
	for i, row := range rows {
		ages[i] = row.Age
	}
	return ages, nil
}

// CreateWithOrder delegates to the create_user_with_order function, which
// owns the transaction.
func (r *SupabaseUserRepository) CreateWithOrder(ctx context.Context, in models.NewUserOrder) (*models.UserOrderIDs, error) {
	params := map[string]any{
		"name":    in.Name,
		"email":   in.Email,
		"age":     in.Age,
		"product": in.Product,
		"price":   in.Price,
	}
	var ids models.UserOrderIDs
	if err := r.CallFunction(ctx, CreateUserWithOrderFunc, params, &ids); err != nil {
		return nil, fmt.Errorf("repositories: create user with order: %w", err)
	}
	return &ids, nil
}

// CallFunction invokes a server-side function by name and decodes its
// result into dest, which may be nil.
func (r *SupabaseUserRepository) CallFunction(ctx context.Context, name string, params, dest any) error {
	return r.client.RPC(name, params).Execute(ctx, dest)
}

// Ping reads at most one id to prove the endpoint and key are usable.
func (r *SupabaseUserRepository) Ping(ctx context.Context) (string, error) {
	if err := r.client.From(usersTable).Select("id").Limit(1).Execute(ctx, nil); err != nil {
		return "", fmt.Errorf("repositories: ping: %w", err)
	}
	return "supabase " + r.client.URL(), nil
}

// WatchUsers subscribes to Realtime changes on users. A delete carries the
// removed row, which may hold only its id. Rows that do not decode are
// logged and skipped.
func (r *SupabaseUserRepository) WatchUsers(ctx context.Context, fn func(models.UserChange)) error {
	err := r.client.Subscribe(ctx, usersTable, func(c supabase.Change) {
		raw := c.Record
		if c.Type == supabase.ChangeDelete {
			raw = c.OldRecord
		}
		var u models.User
		if err := json.Unmarshal(raw, &u); err != nil {
			logger.WithCtx(ctx).Warn("skipping undecodable users change", "type", c.Type, "error", err)
			return
		}
		fn(models.UserChange{Type: c.Type, User: u})
	})
	if err != nil {
		return fmt.Errorf("repositories: watch users: %w", err)
	}
	return nil
}
