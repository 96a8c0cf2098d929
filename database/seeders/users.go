package seeders

import (
	"context"
	"fmt"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/models"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/services"
)

func init() {
	Register("users", SeedUsers)
}

// SampleUsers are the rows SeedUsers creates. The last one places an order.
var SampleUsers = []models.NewUserOrder{
	{NewUser: models.NewUser{Name: "María García", Email: "maria@email.com", Age: 30}},
	{NewUser: models.NewUser{Name: "Juan Pérez", Email: "juan@email.com", Age: 25}},
	{NewUser: models.NewUser{Name: "Sofía Martínez", Email: "sofia@email.com", Age: 17}},
	{NewUser: models.NewUser{Name: "Andrés Gómez", Email: "andres@email.com", Age: 42}},
	{NewUser: models.NewUser{Name: "Carlos López", Email: "carlos@email.com", Age: 35}, Product: "Laptop", Price: 1500.00},
}

// SeedUsers creates SampleUsers.
func SeedUsers(ctx context.Context, svc *services.UserService) error {
	for _, in := range SampleUsers {
		if in.Product != "" {
			if res := svc.CreateUserWithOrder(ctx, in); !res.OK() {
				return fmt.Errorf("create %s with order (%s): %w", in.Name, res.Outcome, res.Err)
			}
			continue
		}
		if res := svc.CreateUser(ctx, in.NewUser); !res.OK() {
			return fmt.Errorf("create %s (%s): %w", in.Name, res.Outcome, res.Err)
		}
	}
	return nil
}
