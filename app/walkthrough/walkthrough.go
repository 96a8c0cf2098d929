// Package walkthrough runs every user operation in sequence against sample
// data and prints a human-readable status line for each step.
package walkthrough

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/models"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/services"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/collection"
)

const (
	glyphOK      = "✅"
	glyphWarning = "⚠️"
	glyphError   = "❌"
)

// Options tunes a run.
type Options struct {
	// Title is printed in the banner, e.g. "SQL (postgres)".
	Title string
	// KeepUser skips the final delete step.
	KeepUser bool
	// ListLimit caps how many users step 2 prints. Zero means 3.
	ListLimit int
}

// Summary counts the steps by outcome.
type Summary struct {
	OK, Missing, Failed int
}

func (s *Summary) add(o services.Outcome) {
	switch o {
	case services.OK:
		s.OK++
	case services.Missing:
		s.Missing++
	default:
		s.Failed++
	}
}

// Sample data used by Run.
var (
	SampleUser      = models.NewUser{Name: "María García", Email: "maria@email.com", Age: 30}
	SampleRename    = "María Fernanda García"
	SampleUserOrder = models.NewUserOrder{
		NewUser: models.NewUser{Name: "Carlos López", Email: "carlos@email.com", Age: 28},
		Product: "Laptop",
		Price:   1500.00,
	}
)

// Run exercises the operations in order: ping, create, list, get, active
// adults, update, with-orders, count by age, create with order, delete.
// Steps that need the created user are skipped when creation failed.
func Run(ctx context.Context, w io.Writer, svc *services.UserService, opts Options) Summary {
	if opts.ListLimit <= 0 {
		opts.ListLimit = 3
	}
	p := &printer{w: w}
	var sum Summary

	rule := strings.Repeat("=", 60)
	title := "USER OPERATIONS WALKTHROUGH"
	if opts.Title != "" {
		title += " · " + opts.Title
	}
	p.line("\n%s\n%s\n%s\n", rule, title, rule)

	p.step(0, "CONNECTION TEST")
	ping := svc.Ping(ctx)
	sum.add(ping.Outcome)
	if ping.OK() {
		p.status(services.OK, "Connected: %s", ping.Value)
	} else {
		p.status(ping.Outcome, "Could not connect")
	}

	p.step(1, "CREATE USER")
	created := svc.CreateUser(ctx, SampleUser)
	sum.add(created.Outcome)
	var userID int64
	if created.OK() {
		userID = created.Value.ID
		p.status(services.OK, "User created: %s (id %d)", created.Value.Name, userID)
	} else {
		p.status(created.Outcome, "Could not create user")
	}

	p.step(2, "LIST USERS")
	list := svc.ListUsers(ctx)
	sum.add(list.Outcome)
	p.status(list.Outcome, "%d users found", len(list.Value))
	for _, u := range collection.Take(list.Value, opts.ListLimit) {
		p.line("   - %s (%s)\n", u.Name, u.Email)
	}

	if userID != 0 {
		p.step(3, "GET USER BY ID")
		got := svc.GetUser(ctx, userID)
		sum.add(got.Outcome)
		if got.OK() {
			p.status(services.OK, "User: %s, %d years old", got.Value.Name, got.Value.Age)
		} else {
			p.status(got.Outcome, "User %d not found", userID)
		}
	}

	p.step(4, "ACTIVE ADULT USERS")
	adults := svc.ListActiveAdults(ctx)
	sum.add(adults.Outcome)
	p.status(adults.Outcome, "%d active adult users", len(adults.Value))

	if userID != 0 {
		p.step(5, "UPDATE USER")
		updated := svc.UpdateUser(ctx, userID, models.UserChanges{Name: &SampleRename})
		sum.add(updated.Outcome)
		if updated.OK() {
			p.status(services.OK, "User updated: %s", updated.Value.Name)
		} else {
			p.status(updated.Outcome, "User %d not updated", userID)
		}

		p.step(6, "USER WITH ORDERS")
		withOrders := svc.GetUserWithOrders(ctx, userID)
		sum.add(withOrders.Outcome)
		if withOrders.OK() {
			total := collection.Sum(withOrders.Value.Orders, func(o models.Order) float64 {
				return o.Price * float64(o.Quantity)
			})
			p.status(services.OK, "%s has %d orders (total %.2f)", withOrders.Value.Name, len(withOrders.Value.Orders), total)
		} else {
			p.status(withOrders.Outcome, "User %d not found", userID)
		}
	}

	p.step(7, "COUNT BY AGE")
	counts := svc.CountUsersByAge(ctx)
	sum.add(counts.Outcome)
	p.status(counts.Outcome, "Users per age:")
	for _, c := range counts.Value {
		p.line("   Age %d: %d users\n", c.Age, c.Count)
	}

	p.step(8, "CREATE WITH TRANSACTION")
	ids := svc.CreateUserWithOrder(ctx, SampleUserOrder)
	sum.add(ids.Outcome)
	if ids.OK() {
		p.status(services.OK, "User %d and order %d created in one transaction", ids.Value.UserID, ids.Value.OrderID)
	} else {
		p.status(ids.Outcome, "Transaction failed, nothing was written")
	}

	if userID != 0 && !opts.KeepUser {
		p.step(9, "DELETE USER")
		deleted := svc.DeleteUser(ctx, userID)
		sum.add(deleted.Outcome)
		if deleted.Value {
			p.status(services.OK, "User %d deleted", userID)
		} else {
			p.status(deleted.Outcome, "User %d not deleted", userID)
		}
	}

	p.line("%s\n", rule)
	if sum.Failed == 0 {
		p.line("%s WALKTHROUGH COMPLETE\n", glyphOK)
	} else {
		p.line("%s WALKTHROUGH COMPLETE WITH %d FAILURES\n", glyphError, sum.Failed)
	}
	p.line("%s\n", rule)
	return sum
}

// printer writes to w and ignores write errors; the walkthrough is best
// effort output.
type printer struct {
	w io.Writer
}

func (p *printer) line(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) step(n int, title string) {
	p.line("\n%d. %s\n", n, title)
}

func (p *printer) status(o services.Outcome, format string, args ...any) {
	glyph := glyphOK
	switch o {
	case services.Missing:
		glyph = glyphWarning
	case services.Failed:
		glyph = glyphError
		format = "Error: " + format
	}
	p.line(glyph+" "+format+"\n", args...)
}
