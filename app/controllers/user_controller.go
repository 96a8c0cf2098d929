package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/models"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/repositories"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/services"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/bind"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/response"
)

// UserController exposes the user operations over HTTP. Outcomes map to
// status codes: Missing is 404 (422 for an update with no fields) and
// Failed is 500.
type UserController struct {
	service *services.UserService
	links   Linker
}

// Linker resolves a named route to a path.
type Linker interface {
	URL(name string, params map[string]string) (string, error)
}

// NewUserController serves svc. links, when non-nil, is used to point the
// Location header of a created user at users.show.
func NewUserController(service *services.UserService, links Linker) *UserController {
	return &UserController{service: service, links: links}
}

// Index lists every user.
func (c *UserController) Index(w http.ResponseWriter, r *http.Request) {
	reply(w, c.service.ListUsers(r.Context()), response.Success)
}

// Store creates a user.
func (c *UserController) Store(w http.ResponseWriter, r *http.Request) {
	var in models.NewUser
	if !decode(w, r, &in) {
		return
	}
	res := c.service.CreateUser(r.Context(), in)
	if res.OK() && c.links != nil {
		if loc, err := c.links.URL("users.show", map[string]string{"id": strconv.FormatInt(res.Value.ID, 10)}); err == nil {
			w.Header().Set("Location", loc)
		}
	}
	reply(w, res, response.Created)
}

// Active lists active users aged 18 or more, newest first.
func (c *UserController) Active(w http.ResponseWriter, r *http.Request) {
	reply(w, c.service.ListActiveAdults(r.Context()), response.Success)
}

// AgeStats counts users per age.
func (c *UserController) AgeStats(w http.ResponseWriter, r *http.Request) {
	reply(w, c.service.CountUsersByAge(r.Context()), response.Success)
}

// StoreWithOrder creates a user and its first order in one transaction.
func (c *UserController) StoreWithOrder(w http.ResponseWriter, r *http.Request) {
	var in models.NewUserOrder
	if !decode(w, r, &in) {
		return
	}
	reply(w, c.service.CreateUserWithOrder(r.Context(), in), response.Created)
}

func (c *UserController) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	reply(w, c.service.GetUser(r.Context(), id), response.Success)
}

// Update applies a partial update. Blank fields are ignored.
func (c *UserController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var changes models.UserChanges
	if !decode(w, r, &changes) {
		return
	}
	reply(w, c.service.UpdateUser(r.Context(), id, changes), response.Success)
}

func (c *UserController) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	reply(w, c.service.DeleteUser(r.Context(), id), func(w http.ResponseWriter, deleted interface{}) {
		response.Success(w, map[string]interface{}{"deleted": deleted})
	})
}

// Orders returns the user with every order it placed.
func (c *UserController) Orders(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	reply(w, c.service.GetUserWithOrders(r.Context(), id), response.Success)
}

// Health reports whether the backing store answers.
func (c *UserController) Health(w http.ResponseWriter, r *http.Request) {
	res := c.service.Ping(r.Context())
	if !res.OK() {
		response.ServiceUnavailable(w, "store unreachable")
		return
	}
	response.Success(w, map[string]string{"backend": res.Value})
}

func reply[T any](w http.ResponseWriter, res services.Result[T], ok func(http.ResponseWriter, interface{})) {
	switch res.Outcome {
	case services.OK:
		ok(w, res.Value)
	case services.Missing:
		if errors.Is(res.Err, repositories.ErrNoChanges) {
			response.Error(w, http.StatusUnprocessableEntity, "no fields to update")
			return
		}
		response.NotFound(w, "user not found")
	default:
		response.Error(w, http.StatusInternalServerError, "store operation failed")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	errs, err := bind.JSON(w, r, dest)
	if err != nil {
		response.BadRequest(w, err.Error())
		return false
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return false
	}
	return true
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "user id must be a positive integer")
		return 0, false
	}
	return id, true
}
