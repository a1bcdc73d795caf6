package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Outcome records which items of a batch failed. Items never share state, so
// each worker only writes its own slot.
type Outcome struct {
	Total  int
	errs   []error
	failed int
}

// Run calls fn for every index in [0, n) with at most limit calls in flight.
// A failing item never stops the others. Items not yet started when ctx is
// cancelled are recorded as failed with ctx.Err().
func Run(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) Outcome {
	if limit < 1 {
		limit = 1
	}
	out := Outcome{Total: n, errs: make([]error, n)}

	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out.errs[i] = err
				return nil
			}
			out.errs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range out.errs {
		if err != nil {
			out.failed++
		}
	}
	return out
}

// Err returns the error recorded for item i, or nil.
func (o Outcome) Err(i int) error {
	if i < 0 || i >= len(o.errs) {
		return nil
	}
	return o.errs[i]
}

func (o Outcome) Failed() int    { return o.failed }
func (o Outcome) Succeeded() int { return o.Total - o.failed }

// AllFailed is true when nothing succeeded, including the empty batch.
func (o Outcome) AllFailed() bool { return o.failed == o.Total }

// FailedIndices lists failing items in ascending order.
func (o Outcome) FailedIndices() []int {
	var idx []int
	for i, err := range o.errs {
		if err != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

// Summary describes the failures for an all-failed error message.
func (o Outcome) Summary() error {
	if o.Total == 0 {
		return fmt.Errorf("no scenes to process")
	}
	first := o.FailedIndices()
	if len(first) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d scenes failed (first: scene %d: %v)", o.failed, o.Total, first[0], o.errs[first[0]])
}
