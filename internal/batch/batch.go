package batch

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

const DefaultSize = 5

// ErrStopped is returned when a Between hook ends the run early.
var ErrStopped = errors.New("batch run stopped")

// Options tunes a Run.
type Options struct {
	// Between runs after each batch has drained and before the next starts.
	// Returning an error stops the run; the results gathered so far are kept.
	Between func(ctx context.Context, done, total int) error
}

// Run processes items in consecutive batches of at most size items. Items of
// one batch run concurrently; the next batch starts only after the current
// one drains. Results are returned in input order. A failing fn cancels its
// batch and ends the run.
//
// On early exit Run returns the results of the completed batches together
// with the error.
func Run[T, R any](ctx context.Context, items []T, size int, fn func(ctx context.Context, index int, item T) (R, error), opts Options) ([]R, error) {
	if size <= 0 {
		size = DefaultSize
	}

	out := make([]R, 0, len(items))
	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		end := min(start+size, len(items))
		results := make([]R, end-start)

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				r, err := fn(gctx, i, items[i])
				if err != nil {
					return err
				}
				results[i-start] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return out, err
		}
		out = append(out, results...)

		if opts.Between != nil && end < len(items) {
			if err := opts.Between(ctx, end, len(items)); err != nil {
				if errors.Is(err, ErrStopped) {
					return out, err
				}
				return out, errors.Join(ErrStopped, err)
			}
		}
	}
	return out, nil
}
