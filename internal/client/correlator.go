package client

import (
	"context"
	"time"

	"github.com/bowerhall/bubble/internal/logger"
)

const DefaultTimeout = 30 * time.Second

func NewCorrelator(timeout time.Duration) *Correlator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Correlator{
		pending: make(map[string]*Pending),
		timeout: timeout,
	}
}

// Start registers id as awaiting a reply. An earlier request still
// pending under the same id is rejected with ErrDuplicateRequest.
func (c *Correlator) Start(id string) *Pending {
	p := &Pending{
		ID:        id,
		CreatedAt: time.Now(),
		resultCh:  make(chan result, 1),
	}

	c.mu.Lock()
	prev, dup := c.pending[id]
	if dup {
		prev.resolved = true
	}
	c.pending[id] = p
	c.mu.Unlock()

	if dup {
		logger.Warn("message id reused while pending", "id", id)
		prev.resultCh <- result{err: ErrDuplicateRequest}
	}

	return p
}

// Wait blocks until p is resolved, rejected, timed out or ctx is done.
// A timeout rejects only this request.
func (c *Correlator) Wait(ctx context.Context, p *Pending) (Reply, error) {
	id := p.ID
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		c.settlePending(p, result{err: ctx.Err()})
	case <-timer.C:
		if c.settlePending(p, result{err: &TimeoutError{MessageID: id, After: c.timeout}}) {
			logger.Debug("reply timed out", "id", id)
		}
	case r := <-p.resultCh:
		return r.reply, r.err
	}

	// settle may have lost to a concurrent resolve; either way exactly one
	// result is buffered
	r := <-p.resultCh
	return r.reply, r.err
}

// Resolve delivers reply to its pending request. It reports false for an
// unknown or already settled id.
func (c *Correlator) Resolve(reply Reply) bool {
	return c.settle(reply.MessageID, result{reply: reply})
}

// Reject fails one pending request.
func (c *Correlator) Reject(id string, err error) bool {
	return c.settle(id, result{err: err})
}

// Cancel abandons a pending request; its waiter gets context.Canceled.
func (c *Correlator) Cancel(id string) bool {
	return c.settle(id, result{err: context.Canceled})
}

// RejectAll fails every outstanding request with a TransportError.
func (c *Correlator) RejectAll(err error) int {
	c.mu.Lock()
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	n := 0
	for _, id := range ids {
		if c.settle(id, result{err: &TransportError{Err: err}}) {
			n++
		}
	}
	return n
}

// Outstanding counts the requests still awaiting a reply.
func (c *Correlator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Correlator) Timeout() time.Duration {
	return c.timeout
}

// settle completes id at most once and forgets it.
func (c *Correlator) settle(id string, r result) bool {
	c.mu.Lock()
	p, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return c.settlePending(p, r)
}

// settlePending completes p unless it was settled or replaced already.
func (c *Correlator) settlePending(p *Pending, r result) bool {
	c.mu.Lock()
	if p.resolved || c.pending[p.ID] != p {
		c.mu.Unlock()
		return false
	}
	p.resolved = true
	delete(c.pending, p.ID)
	c.mu.Unlock()

	p.resultCh <- r
	return true
}
