package service

import (
	"context"
	"errors"
	"sync"

	"github.com/apetrenko/linkgraph/internal/domain"
)

// TaskError accumulates multiple errors produced during bulk loading.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// BulkLoader pushes large person and transfer datasets through the service
// using a worker pool. Context cancellation stops dispatch; individual upsert
// failures are collected and returned together.
type BulkLoader struct {
	service *LinkService
	workers int
}

// NewBulkLoader creates a BulkLoader with the provided concurrency.
func NewBulkLoader(service *LinkService, workers int) *BulkLoader {
	if workers <= 0 {
		workers = 4
	}
	return &BulkLoader{
		service: service,
		workers: workers,
	}
}

// LoadPersons upserts the provided person patches concurrently.
func (bl *BulkLoader) LoadPersons(ctx context.Context, patches []domain.PersonPatch) error {
	return bl.run(ctx, len(patches), func(idx int) error {
		_, err := bl.service.UpsertPerson(ctx, patches[idx])
		return err
	})
}

// LoadTransfers upserts the provided transfer patches concurrently.
func (bl *BulkLoader) LoadTransfers(ctx context.Context, patches []domain.TransferPatch) error {
	return bl.run(ctx, len(patches), func(idx int) error {
		_, err := bl.service.UpsertTransfer(ctx, patches[idx])
		return err
	})
}

func (bl *BulkLoader) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < bl.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
