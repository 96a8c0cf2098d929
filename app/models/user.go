package models

import (
	"encoding/json"
	"strings"
	"time"
)

// User is one row of the users table. ID, Active and RegisteredAt are
// assigned by the store on insert.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;not null" json:"email"`
	Age          int       `gorm:"not null;index" json:"age"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	RegisteredAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"registered_at"`
}

func (User) TableName() string { return "users" }

// UnmarshalJSON accepts registered_at with or without a zone offset.
func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	aux := struct {
		*plain
		RegisteredAt timestamp `json:"registered_at"`
	}{plain: (*plain)(u), RegisteredAt: timestamp(u.RegisteredAt)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	u.RegisteredAt = time.Time(aux.RegisteredAt)
	return nil
}

// UserChanges is the input of a partial update. A nil or blank field is left
// untouched.
type UserChanges struct {
	Name  *string `json:"name,omitempty"  validate:"nullable,max=255"`
	Email *string `json:"email,omitempty" validate:"nullable,email,max=255"`
}

// Columns returns the column→value pairs to write.
func (c UserChanges) Columns() map[string]any {
	cols := make(map[string]any, 2)
	if c.Name != nil && strings.TrimSpace(*c.Name) != "" {
		cols["name"] = *c.Name
	}
	if c.Email != nil && strings.TrimSpace(*c.Email) != "" {
		cols["email"] = *c.Email
	}
	return cols
}

// IsEmpty reports whether the update would write nothing.
func (c UserChanges) IsEmpty() bool { return len(c.Columns()) == 0 }

// UserWithOrders is a user together with every order that references it.
// Orders is never nil.
type UserWithOrders struct {
	User
	Orders []Order `json:"orders"`
}

// UnmarshalJSON keeps User's decoder from hiding the orders field.
func (u *UserWithOrders) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &u.User); err != nil {
		return err
	}
	var rest struct {
		Orders []Order `json:"orders"`
	}
	if err := json.Unmarshal(b, &rest); err != nil {
		return err
	}
	u.Orders = rest.Orders
	if u.Orders == nil {
		u.Orders = []Order{}
	}
	return nil
}

// UserChange is one row change on users pushed by the hosted backend. User
// is the row after the change, or the removed row for a DELETE, in which
// case the backend may only send its id.
type UserChange struct {
	Type string `json:"type"`
	User User   `json:"user"`
}

// AgeCount is one bucket of the users-per-age aggregation.
type AgeCount struct {
	Age   int   `json:"age"`
	Count int64 `json:"count"`
}

// All returns the models making up the schema, parents first.
func All() []any {
	return []any{&User{}, &Order{}}
}
