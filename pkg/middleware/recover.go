package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/logger"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/response"
)

// Recovery catches any panic in downstream handlers, logs the stack trace
// and answers 500 with the JSON error envelope.
//
//	r.Use(metrics.Middleware())
//	r.Use(middleware.Recovery)
//	r.Use(reqid.Middleware())
//	r.Use(middleware.Logger)
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}
			logger.WithCtx(r.Context()).Error("panic recovered",
				"error", fmt.Sprintf("%v", err),
				"stack", string(debug.Stack()),
				"method", r.Method,
				"path", r.URL.Path,
			)
			response.Error(w, http.StatusInternalServerError, "Internal Server Error")
		}()
		next.ServeHTTP(w, r)
	})
}
