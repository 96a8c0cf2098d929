package models

import (
	"encoding/json"
	"time"
)

// Order is one row of the orders table; every order belongs to exactly one
// user.
type Order struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Product   string    `gorm:"size:255;not null" json:"product"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	Price     float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	OrderedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"ordered_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Order) TableName() string { return "orders" }

// UnmarshalJSON accepts ordered_at with or without a zone offset.
func (o *Order) UnmarshalJSON(b []byte) error {
	type plain Order
	aux := struct {
		*plain
		OrderedAt timestamp `json:"ordered_at"`
	}{plain: (*plain)(o), OrderedAt: timestamp(o.OrderedAt)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	o.OrderedAt = time.Time(aux.OrderedAt)
	return nil
}

// UserOrderIDs identifies the pair of rows written by a create-user-with-order
// transaction.
type UserOrderIDs struct {
	UserID  int64 `json:"user_id"`
	OrderID int64 `json:"order_id"`
}
