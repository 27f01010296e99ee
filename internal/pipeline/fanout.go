package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// result is the settled outcome of one fanned-out call.
type result[T any] struct {
	value T
	err   error
}

// fanOut runs call once per input, at most limit at a time, and waits for
// every call to settle. Results are stored by input position so callers can
// correlate them regardless of completion order. A failing call is recorded
// in its slot and never cancels its siblings.
func fanOut[In, Out any](ctx context.Context, limit int, inputs []In, call func(context.Context, In) (Out, error)) []result[Out] {
	results := make([]result[Out], len(inputs))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			out, err := call(ctx, in)
			results[i] = result[Out]{value: out, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
