// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

package pixstream

import (
	"context"
	"sync"
)

// Completion is a one-shot result. It moves from pending to resolved exactly
// once, either with a byte count or with an error, and never changes afterwards.
type Completion struct {
	once  sync.Once
	done  chan struct{}
	total int
	err   error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// settle resolves the completion and reports whether this call did so.
func (c *Completion) settle(total int, err error) bool {
	settled := false
	c.once.Do(func() {
		c.total = total
		c.err = err
		settled = true
		close(c.done)
	})
	return settled
}

// Done returns a channel that is closed once the completion is resolved.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Resolved reports whether the completion has left the pending state.
func (c *Completion) Resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the completion resolves or ctx is done. It returns the
// total bytes consumed, or the terminal decode error.
func (c *Completion) Wait(ctx context.Context) (int, error) {
	select {
	case <-c.done:
		return c.total, c.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
