package core

import (
	"context"
	"sync"
)

// Completion is a single-assignment result of an utterance.
type Completion struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewCompletion returns an unresolved Completion.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Resolved returns a Completion that is already resolved with err.
func Resolved(err error) *Completion {
	c := NewCompletion()
	c.Resolve(err)

	return c
}

// Resolve sets the outcome. Only the first call has an effect; it reports
// whether this call was the one that resolved c.
func (c *Completion) Resolve(err error) bool {
	resolved := false

	c.once.Do(func() {
		c.err = err
		close(c.done)

		resolved = true
	})

	return resolved
}

// Done is closed once the Completion is resolved.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the outcome. It is only meaningful after Done is closed.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Wait blocks until c resolves or ctx ends.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
