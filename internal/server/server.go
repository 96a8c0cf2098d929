// Package server builds the API handler and runs it until its context ends.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/routes"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/services"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/logger"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/metrics"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/middleware"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/reqid"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/response"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/router"
)

const shutdownTimeout = 10 * time.Second

// NewRouter wires the global middleware, the /metrics endpoint and the API
// routes for svc.
func NewRouter(svc *services.UserService) *router.Router {
	r := router.New()

	// Outermost first: metrics see total latency, Recovery turns panics into
	// 500s, then every request gets an ID before anything logs.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)

	r.Handle("/metrics", metrics.Handler())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "")
	})

	routes.RegisterAPI(r, svc)
	return r
}

// Start serves the API on addr until ctx is cancelled, then drains
// in-flight requests.
func Start(ctx context.Context, addr string, svc *services.UserService) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(svc).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
