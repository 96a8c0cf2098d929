package models

// NewUser is the caller-supplied part of a user row.
type NewUser struct {
	Name  string `json:"name"  validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
	Age   int    `json:"age"   validate:"gte=0,lte=150"`
}

// NewUserOrder is a new user together with the first order placed for them.
type NewUserOrder struct {
	NewUser
	Product string  `json:"product" validate:"required,max=255"`
	Price   float64 `json:"price"   validate:"gte=0"`
}
