// Package fetcher retrieves per-record comment counts, which bulk listings
// do not expose, in paced batches.
//
// Requests run concurrently within a batch and batches run strictly one
// after another with a fixed pause in between. A failed request records a
// zero count and an error entry; it never aborts the batch.
package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/agentstation/tasklink/pkg/constants"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/logging"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/sources"
)

// Counts maps record ids to comment counts.
type Counts map[string]int

// Result is the outcome of one fetch run against a single system.
type Result struct {
	Counts Counts
	Errors []records.ErrorEntry

	failed map[string]bool
}

// Failed reports whether the fetch for id failed. Failed ids still carry
// a zero count.
func (r *Result) Failed(id string) bool {
	return r.failed[id]
}

// SleepFunc pauses between batches. It returns early with the context's
// error when the context is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher runs paced batches of comment requests.
type Fetcher struct {
	batchSize int
	delay     time.Duration
	sleep     SleepFunc
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBatchSize sets the number of concurrent requests per batch.
func WithBatchSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.batchSize = n
		}
	}
}

// WithDelay sets the pause between batches.
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d >= 0 {
			f.delay = d
		}
	}
}

// WithSleep replaces the pause implementation.
func WithSleep(fn SleepFunc) Option {
	return func(f *Fetcher) {
		if fn != nil {
			f.sleep = fn
		}
	}
}

// New creates a Fetcher with the reference pacing of
// constants.FetchBatchSize requests per batch and constants.FetchBatchDelay between batches.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		batchSize: constants.FetchBatchSize,
		delay:     constants.FetchBatchDelay,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type fetched struct {
	id    string
	count int
	err   error
}

// Fetch counts the comments of every id on src. Duplicate ids are fetched
// once. The only error returned is the context's, when it ends between
// batches; requests already in flight run to completion regardless.
func (f *Fetcher) Fetch(ctx context.Context, src sources.Source, ids []string) (*Result, error) {
	result := &Result{Counts: make(Counts), failed: make(map[string]bool)}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return result, nil
	}

	system := src.Capabilities().System
	logger := logging.FromContext(ctx)
	requestCtx := context.WithoutCancel(ctx)

	for start := 0; start < len(ids); start += f.batchSize {
		if start > 0 {
			if err := f.sleep(ctx, f.delay); err != nil {
				return result, err
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := min(start+f.batchSize, len(ids))
		batch := ids[start:end]

		var wg sync.WaitGroup
		results := make(chan fetched, len(batch))
		for _, id := range batch {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				comments, err := src.ListComments(requestCtx, id)
				results <- fetched{id: id, count: len(comments), err: err}
			}(id)
		}
		wg.Wait()
		close(results)

		for r := range results {
			if r.err != nil {
				ferr := errors.NewFetchError(system, "list_comments", r.id, r.err)
				logger.Warn().
					Err(r.err).
					Str("system", system).
					Str("record_id", r.id).
					Msg("Comment fetch failed, recording zero")
				result.Counts[r.id] = 0
				result.failed[r.id] = true
				result.Errors = append(result.Errors, records.ErrorEntry{
					System:    system,
					Operation: ferr.Operation,
					RecordID:  r.id,
					Message:   ferr.Error(),
				})
				continue
			}
			result.Counts[r.id] = r.count
		}

		logger.Debug().
			Str("system", system).
			Int("batch_start", start).
			Int("batch_size", len(batch)).
			Msg("Comment batch settled")
	}

	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
