package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/models"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/database"
)

// UserRepository runs the user operations as SQL through a Connector. Every
// method uses a connection of its own.
type UserRepository struct {
	conn *database.Connector
}

var (
	_ Store      = (*UserRepository)(nil)
	_ AgeCounter = (*UserRepository)(nil)
)

func NewUserRepository(conn *database.Connector) *UserRepository {
	return &UserRepository{conn: conn}
}

// Create inserts a user and returns the stored row, server defaults included.
func (r *UserRepository) Create(ctx context.Context, in models.NewUser) (*models.User, error) {
	var out models.User
	err := r.conn.Session(ctx, func(tx *gorm.DB) error {
		u := models.User{Name: in.Name, Email: in.Email, Age: in.Age}
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		return tx.First(&out, u.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("repositories: create user: %w", err)
	}
	return &out, nil
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := r.conn.Session(ctx, func(tx *gorm.DB) error {
		return tx.Order("id").Find(&users).Error
	})
	if err != nil {
		return nil, fmt.Errorf("repositories: list users: %w", err)
	}
	return users, nil
}

// FindByID returns ErrNotFound when no row has id.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var out models.User
	err := r.conn.Session(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).First(&out).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repositories: find user %d: %w", id, err)
	}
	return &out, nil
}

// ListActiveAdults returns active users aged MinAdultAge or more, newest
// registration first.
func (r *UserRepository) ListActiveAdults(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := r.conn.Session(ctx, func(tx *gorm.DB) error {
		return tx.Where("active = ? AND age >= ?", true, MinAdultAge).
			Order("registered_at DESC").
			Order("id DESC").
			Find(&users).Error
	})
	if err != nil {
		return nil, fmt.Errorf("repositories: list active adults: %w", err)
	}
	return users, nil
}

// Update writes the non-blank fields of changes and returns the updated row.
// It returns ErrNoChanges without touching the database when there is
// nothing to write.
func (r *UserRepository) Update(ctx context.Context, id int64, changes models.UserChanges) (*models.User, error) {
	cols := changes.Columns()
	if len(cols) == 0 {
		return nil, ErrNoChanges
	}

	var out models.User
	err := r.conn.Session(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&out).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repositories: update user %d: %w", id, err)
	}
	return &out, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var removed int64
	err := r.conn.Session(ctx, func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.User{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("repositories: delete user %d: %w", id, err)
	}
	return removed > 0, nil
}

// userOrderRow is one line of the users LEFT JOIN orders result. The order
// columns are NULL for a user without orders.
type userOrderRow struct {
	models.User
	OrderID   *int64
	Product   *string
	Quantity  *int
	Price     *float64
	OrderedAt *time.Time
}

// FindWithOrders returns the user and all of its orders, oldest order first.
func (r *UserRepository) FindWithOrders(ctx context.Context, id int64) (*models.UserWithOrders, error) {
	var rows []userOrderRow
	err := r.conn.Session(ctx, func(tx *gorm.DB) error {
		return tx.Table("users AS u").
			Select("u.id, u.name, u.email, u.age, u.active, u.registered_at, "+
				"o.id AS order_id, o.product, o.quantity, o.price, o.ordered_at").
			Joins("LEFT JOIN orders AS o ON o.user_id = u.id").
			Where("u.id = ?", id).
			Order("o.id").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("repositories: find user %d with orders: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	out := &models.UserWithOrders{User: rows[0].User, Orders: []models.Order{}}
	for _, row := range rows {
		if row.OrderID == nil {
			continue
		}
		o := models.Order{ID: *row.OrderID, UserID: row.User.ID}
		if row.Product != nil {
			o.Product = *row.Product
		}
		if row.Quantity != nil {
			o.Quantity = *row.Quantity
		}
		if row.Price != nil {
			o.Price = *row.Price
		}
		if row.OrderedAt != nil {
			o.OrderedAt = *row.OrderedAt
		}
		out.Orders = append(out.Orders, o)
	}
	return out, nil
}

func (r *UserRepository) ListAges(ctx context.Context) ([]int, error) {
	ages := []int{}
	err := r.conn.Session(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.User{}).Pluck("age", &ages).Error
	})
	if err != nil {
		return nil, fmt.Errorf("repositories: list ages: %w", err)
	}
	return ages, nil
}

// CountByAge groups users by age in the database.
func (r *UserRepository) CountByAge(ctx context.Context) ([]models.AgeCount, error) {
	counts := []models.AgeCount{}
	err := r.conn.Session(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.User{}).
			Select("age, COUNT(*) AS count").
			Group("age").
			Order("age").
			Scan(&counts).Error
	})
	if err != nil {
		return nil, fmt.Errorf("repositories: count by age: %w", err)
	}
	return counts, nil
}

// CreateWithOrder inserts a user and its first order in one transaction. If
// the order insert fails the user insert is rolled back.
func (r *UserRepository) CreateWithOrder(ctx context.Context, in models.NewUserOrder) (*models.UserOrderIDs, error) {
	var ids models.UserOrderIDs
	err := r.conn.Session(ctx, func(tx *gorm.DB) error {
		u := models.User{Name: in.Name, Email: in.Email, Age: in.Age}
		if err := tx.Create(&u).Error; err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		o := models.Order{UserID: u.ID, Product: in.Product, Price: in.Price}
		if err := tx.Create(&o).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		ids = models.UserOrderIDs{UserID: u.ID, OrderID: o.ID}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repositories: create user with order: %w", err)
	}
	return &ids, nil
}

// Ping returns "<driver> <server version>".
func (r *UserRepository) Ping(ctx context.Context) (string, error) {
	version, err := r.conn.Ping(ctx)
	if err != nil {
		return "", err
	}
	return r.conn.Driver() + " " + version, nil
}
