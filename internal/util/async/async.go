package async

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes tasks concurrently, at most limit at a time
// (limit <= 0 means no limit). The first failing task cancels the context
// passed to the others and its error is returned once all have finished.
func RunParallel(ctx context.Context, tasks []Task, limit int) error {
	if len(tasks) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, task := range tasks {
		g.Go(func() error {
			if err := task.Func(gctx); err != nil {
				return fmt.Errorf("%s: %w", task.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

var errUnsatisfied = errors.New("predicate not satisfied")

// All reports whether pred holds for every item. Items are evaluated
// concurrently in no particular order; the first false result cancels
// the remaining evaluations.
func All[T any](ctx context.Context, items []T, pred func(context.Context, T) bool) bool {
	tasks := make([]Task, 0, len(items))
	for i, item := range items {
		tasks = append(tasks, Task{
			Name: fmt.Sprintf("item %d", i),
			Func: func(ctx context.Context) error {
				if !pred(ctx, item) {
					return errUnsatisfied
				}
				return nil
			},
		})
	}
	return RunParallel(ctx, tasks, 0) == nil
}
