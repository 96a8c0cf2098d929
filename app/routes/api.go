package routes

import (
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/controllers"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/services"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/router"
)

// RegisterAPI mounts the user endpoints under /api. Static segments are
// registered alongside {id}; chi prefers them.
func RegisterAPI(r *router.Router, svc *services.UserService) {
	users := controllers.NewUserController(svc, r)

	api := r.Group("/api")
	api.Get("/health", "health", users.Health)

	u := api.Group("/users")
	u.Get("/", "users.index", users.Index)
	u.Post("/", "users.store", users.Store)
	u.Get("/active", "users.active", users.Active)
	u.Get("/stats/ages", "users.stats.ages", users.AgeStats)
	u.Post("/with-order", "users.store_with_order", users.StoreWithOrder)
	u.Get("/{id}", "users.show", users.Show)
	u.Patch("/{id}", "users.update", users.Update)
	u.Delete("/{id}", "users.destroy", users.Destroy)
	u.Get("/{id}/orders", "users.orders", users.Orders)
}
