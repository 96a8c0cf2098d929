package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/app/repositories"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/logger"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/metrics"
)

// Outcome classifies how an operation ended.
type Outcome int

const (
	// OK means the store answered and Value holds the answer.
	OK Outcome = iota
	// Missing means the target row does not exist or there was nothing to
	// write. Value holds the sentinel.
	Missing
	// Failed means the store operation failed. Value holds the sentinel and
	// the failure has been logged.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Missing:
		return "missing"
	default:
		return "failed"
	}
}

// ErrPanic marks a store operation that panicked. The panic is recovered
// and reported as Failed.
var ErrPanic = errors.New("store operation panicked")

// Result is what every UserService operation returns. Callers branch on
// Value's sentinel or on Outcome; Err is kept for diagnostics only.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool { return r.Outcome == OK }

// run executes fn as operation op. A failure is logged and replaced by
// sentinel; it never reaches the caller as an error return.
func run[T any](ctx context.Context, op string, sentinel T, fn func() (T, error)) Result[T] {
	start := time.Now()
	v, err := call(fn)
	log := logger.WithCtx(ctx).With("op", op, "duration", time.Since(start))

	var res Result[T]
	switch {
	case err == nil:
		res = Result[T]{Value: v, Outcome: OK}
		log.Debug("user operation succeeded")
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, repositories.ErrNoChanges):
		res = Result[T]{Value: sentinel, Outcome: Missing, Err: err}
		log.Warn("user operation found nothing to do", "reason", err.Error())
	default:
		res = Result[T]{Value: sentinel, Outcome: Failed, Err: err}
		log.Error("user operation failed", "error", err)
	}

	metrics.RecordOutcome(op, res.Outcome.String())
	return res
}

func call[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}
