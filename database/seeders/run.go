// Package seeders provides a registry of seed functions that fill a store
// with sample rows through the user service.
//
// Usage (define a seeder in any file in this package):
//
//	func init() {
//	    seeders.Register("users", SeedUsers)
//	}
//
//	func SeedUsers(ctx context.Context, svc *services.UserService) error {
//	    // create rows …
//	    return nil
//	}
//
// Then run via CLI: crud seed
package seeders

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/services"
)

// SeederFunc is the signature for a seed function.
type SeederFunc func(ctx context.Context, svc *services.UserService) error

type seederEntry struct {
	name string
	fn   SeederFunc
}

var (
	mu      sync.Mutex
	entries []seederEntry
)

// Register adds a seeder to the global registry.
// Call this from init() in your seeder files.
func Register(name string, fn SeederFunc) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, seederEntry{name: name, fn: fn})
}

// Names lists the registered seeders in registration order.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// RunAll executes every registered seeder in registration order, reporting
// progress to w. It stops on the first error.
func RunAll(ctx context.Context, w io.Writer, svc *services.UserService) error {
	mu.Lock()
	current := make([]seederEntry, len(entries))
	copy(current, entries)
	mu.Unlock()

	if len(current) == 0 {
		fmt.Fprintln(w, "  (no seeders registered)")
		return nil
	}

	for _, e := range current {
		fmt.Fprintf(w, "  • Running seeder: %s … ", e.name)
		if err := e.fn(ctx, svc); err != nil {
			fmt.Fprintln(w, "FAILED")
			return fmt.Errorf("seeder %q: %w", e.name, err)
		}
		fmt.Fprintln(w, "done")
	}
	return nil
}
