// Copyright The LearnLoop Contributors.
// SPDX-License-Identifier: MIT

// Package concurrent provides the worker pool used to fan out independent
// side effects.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerPool bounds how many submitted functions run concurrently.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a pool running at most workerCount functions at once.
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}

// Run executes all functions and returns the first error encountered,
// cancelling work that has not started yet. Use for groups where one failure
// makes the rest pointless.
func (wp *WorkerPool) Run(ctx context.Context, functions ...func() error) error {
	if len(functions) == 0 {
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(wp.workerCount)

	for _, fn := range functions {
		g.Go(func() error {
			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			default:
			}

			return fn()
		})
	}

	return g.Wait()
}

// RunAll executes all functions to completion regardless of failures and
// returns every non-nil error. No function's failure cancels a sibling;
// callers that need per-task attribution wrap each function to record its
// own outcome.
func (wp *WorkerPool) RunAll(ctx context.Context, functions ...func() error) []error {
	if len(functions) == 0 {
		return nil
	}

	errorChan := make(chan error, len(functions))

	// Plain group: errors flow through the channel, never to errgroup, so no
	// sibling is ever cancelled.
	g := new(errgroup.Group)
	g.SetLimit(wp.workerCount)

	for _, fn := range functions {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				errorChan <- ctx.Err()
				return nil
			default:
			}

			if err := fn(); err != nil {
				errorChan <- err
			}
			return nil
		})
	}

	_ = g.Wait()
	close(errorChan)

	var errs []error
	for err := range errorChan {
		errs = append(errs, err)
	}

	return errs
}
