package rest

import "context"

// Sendable is a Call or any other unit of work for a WaitGroup or RunGroup.
type Sendable interface {
	SendOrErr(ctx context.Context) error
}

// SendFunc adapts a function to the Sendable interface.
type SendFunc func(ctx context.Context) error

func (f SendFunc) SendOrErr(ctx context.Context) error {
	return f(ctx)
}

// ParallelRequests wraps parallel requests to one Sendable interface.
type ParallelRequests []Sendable

// Parallel wraps parallel requests to one Sendable interface.
func Parallel(requests ...Sendable) ParallelRequests {
	return requests
}

func (v ParallelRequests) SendOrErr(ctx context.Context) error {
	wg := NewWaitGroup(ctx)
	for _, r := range v {
		wg.Send(r)
	}
	return wg.Wait()
}
