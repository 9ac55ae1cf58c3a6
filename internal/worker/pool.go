package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one named task.
type Outcome[T any] struct {
	Name  string
	Value T
	Err   error
}

// RunBounded runs fn once per name with at most limit tasks in flight and
// returns the outcomes in completion order.
//
// With failFast the first error cancels the context handed to the remaining
// tasks, stops further submissions and is returned. Otherwise every task
// runs, failed outcomes carry their error and the returned error joins them.
// A task that would start after ctx is done still reports an outcome
// carrying ctx's error, so a cancelled run is never mistaken for a clean one.
func RunBounded[T any](ctx context.Context, limit int, names []string, failFast bool, fn func(ctx context.Context, name string) (T, error)) ([]Outcome[T], error) {
	if limit < 1 {
		limit = 1
	}

	var g *errgroup.Group
	taskCtx := ctx
	if failFast {
		g, taskCtx = errgroup.WithContext(ctx)
	} else {
		g = new(errgroup.Group)
	}
	g.SetLimit(limit)

	done := make(chan Outcome[T], len(names))
	for _, name := range names {
		if failFast && taskCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := taskCtx.Err(); err != nil {
				err = fmt.Errorf("%s: %w", name, err)
				done <- Outcome[T]{Name: name, Err: err}
				return err
			}
			v, err := fn(taskCtx, name)
			if err != nil {
				err = fmt.Errorf("%s: %w", name, err)
			}
			done <- Outcome[T]{Name: name, Value: v, Err: err}
			if failFast {
				return err
			}
			return nil
		})
	}

	waitErr := g.Wait()
	close(done)

	outcomes := make([]Outcome[T], 0, len(names))
	var errs []error
	for o := range done {
		outcomes = append(outcomes, o)
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}

	if failFast {
		if waitErr != nil {
			slog.DebugContext(ctx, "pool stopped early", "completed", len(outcomes), "submitted", len(names), "error", waitErr)
		}
		return outcomes, waitErr
	}
	return outcomes, errors.Join(errs...)
}
