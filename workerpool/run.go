package workerpool

import (
	"context"
	"fmt"
)

type result[T any] struct {
	value T
	err   error
}

// Run executes fn on the pool and waits for its result. The context passed to
// fn is canceled when either ctx is done or the pool is shut down abruptly.
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan result[T], 1)

	err := p.Submit(ctx, func(poolCtx context.Context) {
		if poolCtx.Err() != nil {
			cancel()
		}

		stop := context.AfterFunc(poolCtx, cancel)
		defer stop()

		var res result[T]

		defer func() {
			if r := recover(); r != nil {
				res = result[T]{err: fmt.Errorf("task panicked: %v", r)}
			}

			done <- res
		}()

		res.value, res.err = fn(runCtx)
	})

	if err != nil {
		return zero, err
	}

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
