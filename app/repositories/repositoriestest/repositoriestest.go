// Package repositoriestest builds both user stores on throwaway backends: a
// SQLite file for the SQL path and an in-process fake project for the
// hosted path.
package repositoriestest

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/models"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/repositories"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/database/databasetest"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/supabase"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/supabase/supabasetest"
)

// ErrForcedOrderFailure is what FailOrders makes every orders insert fail with.
var ErrForcedOrderFailure = errors.New("forced order failure")

// FailOrders is a GORM plugin that rejects every insert into orders.
type FailOrders struct{}

func (FailOrders) Name() string { return "test:fail_orders" }

func (FailOrders) Initialize(db *gorm.DB) error {
	return db.Callback().Create().Before("gorm:create").Register("test:fail_orders", func(tx *gorm.DB) {
		if tx.Statement.Table == "orders" {
			_ = tx.AddError(ErrForcedOrderFailure)
		}
	})
}

// SQL returns a UserRepository over a migrated SQLite database.
func SQL(t testing.TB, opts ...database.Option) (*repositories.UserRepository, *database.Connector) {
	t.Helper()
	conn := databasetest.Open(t, models.All(), opts...)
	return repositories.NewUserRepository(conn), conn
}

// Hosted returns a SupabaseUserRepository over a fake project with the
// users and orders tables and the create_user_with_order function. Each
// inserted user is registered one second after the previous one.
func Hosted(t testing.TB) (*repositories.SupabaseUserRepository, *supabasetest.Server) {
	t.Helper()
	srv := supabasetest.New(t)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	srv.Defaults("users", func() supabasetest.Row {
		clock = clock.Add(time.Second)
		return supabasetest.Row{"active": true, "registered_at": clock.Format(time.RFC3339)}
	})
	srv.Defaults("orders", func() supabasetest.Row {
		return supabasetest.Row{"quantity": 1, "ordered_at": clock.Format(time.RFC3339)}
	})
	srv.Relate("users", "orders", "user_id")
	srv.HandleRPC(repositories.CreateUserWithOrderFunc, CreateUserWithOrder)

	return repositories.NewSupabaseUserRepository(srv.Client(t)), srv
}

// CreateUserWithOrder stands in for the SQL function of the same name. It
// validates both rows before writing either, so a rejected call leaves no
// rows behind. A negative price is rejected.
func CreateUserWithOrder(s *supabasetest.Server, p map[string]any) (any, error) {
	if price, _ := p["price"].(float64); price < 0 {
		return nil, &supabase.Error{Status: http.StatusBadRequest, Code: "23514", Message: "price must not be negative"}
	}
	user, err := s.InsertLocked("users", supabasetest.Row{"name": p["name"], "email": p["email"], "age": p["age"]})
	if err != nil {
		return nil, err
	}
	order, err := s.InsertLocked("orders", supabasetest.Row{"user_id": user["id"], "product": p["product"], "price": p["price"]})
	if err != nil {
		return nil, err
	}
	return map[string]any{"user_id": user["id"], "order_id": order["id"]}, nil
}
