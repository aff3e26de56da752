package handler

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Result is the success envelope of an invocation.
type Result struct {
	Response any `json:"response"`
}

type outcome struct {
	value any
	err   error
}

// Execute runs h with a deadline of timeout. Whichever comes first, the
// domain result or the deadline, decides the outcome; a late result is
// dropped. A nil domain result becomes an empty JSON object. Only an untyped
// nil does: a typed nil such as a nil map or nil pointer is kept and
// serializes as null.
func Execute(ctx context.Context, name string, h Handler, timeout time.Duration) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if s, ok := h.(starter); ok {
		s.markStarted(name, time.Now())
	}

	// Buffered so an abandoned handler can still deliver and exit.
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrHandlerPanic, rec)}
			}
		}()
		v, err := h.Process(ctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, &ExecError{Name: name, Err: out.err}
		}
		if out.value == nil {
			return &Result{Response: struct{}{}}, nil
		}
		return &Result{Response: out.value}, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &ExecError{Name: name, Err: ErrTimeout}
		}
		return nil, &ExecError{Name: name, Err: ctx.Err()}
	}
}
