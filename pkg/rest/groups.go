package rest

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	// RunGroupConcurrencyLimit is the default number of concurrent requests of a RunGroup.
	RunGroupConcurrencyLimit = 32
	// WaitGroupConcurrencyLimit is the default number of concurrent requests of a WaitGroup.
	WaitGroupConcurrencyLimit = 8
)

// limiter sends at most N requests at once.
type limiter struct {
	sem *semaphore.Weighted
}

func newLimiter(limit int64) limiter {
	if limit < 1 {
		limit = 1
	}
	return limiter{sem: semaphore.NewWeighted(limit)}
}

// send blocks until a slot is free or the ctx is done.
func (l limiter) send(ctx context.Context, request Sendable) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return request.SendOrErr(ctx)
}

// RunGroup collects requests by the Add method, they are sent on the RunAndWait call.
// The first error cancels the group context and it is returned by the RunAndWait.
// Use the WaitGroup to send requests immediately and to collect all errors.
type RunGroup struct {
	ctx     context.Context
	group   *errgroup.Group
	limiter limiter
	started chan struct{}
	run     sync.Once
	err     error
}

// NewRunGroup creates a RunGroup with the RunGroupConcurrencyLimit.
func NewRunGroup(ctx context.Context) *RunGroup {
	return NewRunGroupWithLimit(ctx, RunGroupConcurrencyLimit)
}

// NewRunGroupWithLimit creates a RunGroup, at most limit requests are sent at once.
func NewRunGroupWithLimit(ctx context.Context, limit int64) *RunGroup {
	group, ctx := errgroup.WithContext(ctx)
	return &RunGroup{ctx: ctx, group: group, limiter: newLimiter(limit), started: make(chan struct{})}
}

// Add schedules the request.
// It can be called from a callback of another request of the group, while the RunAndWait is running.
func (g *RunGroup) Add(request Sendable) {
	g.group.Go(func() error {
		<-g.started
		return g.limiter.send(g.ctx, request)
	})
}

// RunAndWait sends all scheduled requests and waits until they are done or the first error occurs.
// The group context is cancelled at the end, a repeated call only returns the result of the first one.
func (g *RunGroup) RunAndWait() error {
	g.run.Do(func() {
		close(g.started)
		g.err = g.group.Wait()
	})
	return g.err
}

// WaitGroup sends each request immediately by the Send method.
// An error does not stop other requests, the Wait method returns all errors.
// Use the RunGroup to stop on the first error.
type WaitGroup struct {
	ctx     context.Context
	wg      sync.WaitGroup
	limiter limiter

	errLock sync.Mutex
	errs    *multierror.Error
}

// NewWaitGroup creates a WaitGroup with the WaitGroupConcurrencyLimit.
func NewWaitGroup(ctx context.Context) *WaitGroup {
	return NewWaitGroupWithLimit(ctx, WaitGroupConcurrencyLimit)
}

// NewWaitGroupWithLimit creates a WaitGroup, at most limit requests are sent at once.
func NewWaitGroupWithLimit(ctx context.Context, limit int64) *WaitGroup {
	return &WaitGroup{ctx: ctx, limiter: newLimiter(limit)}
}

// Send starts the request in a new goroutine.
func (g *WaitGroup) Send(request Sendable) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := g.limiter.send(g.ctx, request); err != nil {
			g.errLock.Lock()
			g.errs = multierror.Append(g.errs, err)
			g.errLock.Unlock()
		}
	}()
}

// Wait until all sent requests are done.
// A single error is returned as it is, multiple errors as a *multierror.Error.
func (g *WaitGroup) Wait() error {
	g.wg.Wait()
	g.errLock.Lock()
	defer g.errLock.Unlock()
	if g.errs != nil && len(g.errs.Errors) == 1 {
		return g.errs.Errors[0]
	}
	return g.errs.ErrorOrNil()
}
